/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package retriever

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	vectorsFile  = "vectors.bin"
	metadataFile = "index_meta.json"
	lockFile     = "index.lock"

	vectorsMagic   = uint32(0x41445658) // "ADVX"
	vectorsVersion = uint32(1)
)

// toolMeta is the persisted per-tool record.
type toolMeta struct {
	Idx         int    `json:"idx"`
	Description string `json:"description"`
}

// metadata mirrors the on-disk JSON: a forward map and the reverse map,
// both persisted so a consistency check can run without the vectors file.
type metadata struct {
	Tools     map[string]toolMeta `json:"tools"`
	IdxToTool map[string]string   `json:"idx_to_tool"`
	Dim       int                 `json:"dim"`
}

// Store persists the index in a data directory: raw float32 vectors in a
// binary file beside a JSON metadata file. Writes go to *.tmp then rename,
// guarded by an advisory file lock for multi-process safety.
type Store struct {
	dir string
}

// NewStore creates the persistence layer rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes the index atomically.
func (s *Store) Save(ix *Index) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	lock := flock.New(filepath.Join(s.dir, lockFile))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire index lock: %w", err)
	}
	defer lock.Unlock()

	dim, names, vectors, descs := ix.snapshot()

	meta := metadata{
		Tools:     make(map[string]toolMeta, len(names)),
		IdxToTool: make(map[string]string, len(names)),
		Dim:       dim,
	}
	for i, name := range names {
		desc := descs[name]
		if len(desc) > 200 {
			desc = desc[:200]
		}
		meta.Tools[name] = toolMeta{Idx: i, Description: desc}
		meta.IdxToTool[fmt.Sprintf("%d", i)] = name
	}

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	metaPath := filepath.Join(s.dir, metadataFile)
	if err := os.WriteFile(metaPath+".tmp", metaBytes, 0o644); err != nil {
		return err
	}
	if err := os.Rename(metaPath+".tmp", metaPath); err != nil {
		return err
	}

	vecPath := filepath.Join(s.dir, vectorsFile)
	f, err := os.Create(vecPath + ".tmp")
	if err != nil {
		return err
	}
	if err := writeVectors(f, dim, vectors); err != nil {
		f.Close()
		os.Remove(vecPath + ".tmp")
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(vecPath + ".tmp")
		return err
	}
	return os.Rename(vecPath+".tmp", vecPath)
}

// Load reads a persisted index. A missing pair returns an empty index.
// A metadata/vectors disagreement is an error: the caller rebuilds.
func (s *Store) Load() (*Index, error) {
	lock := flock.New(filepath.Join(s.dir, lockFile))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire index lock: %w", err)
	}
	defer lock.Unlock()

	metaBytes, err := os.ReadFile(filepath.Join(s.dir, metadataFile))
	if os.IsNotExist(err) {
		return NewIndex(), nil
	}
	if err != nil {
		return nil, err
	}

	var meta metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("corrupt index metadata: %w", err)
	}

	f, err := os.Open(filepath.Join(s.dir, vectorsFile))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("index metadata present but vectors file missing")
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dim, vectors, err := readVectors(f)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(meta.Tools) {
		return nil, fmt.Errorf("index size mismatch: %d vectors vs %d tools", len(vectors), len(meta.Tools))
	}
	if dim != meta.Dim && len(vectors) > 0 {
		return nil, fmt.Errorf("dimension mismatch: vectors %d vs metadata %d", dim, meta.Dim)
	}

	ix := NewIndex()
	// Insert in position order so positions survive the round-trip.
	ordered := make([]string, len(meta.Tools))
	for name, tm := range meta.Tools {
		if tm.Idx < 0 || tm.Idx >= len(ordered) {
			return nil, fmt.Errorf("tool %q has out-of-range position %d", name, tm.Idx)
		}
		ordered[tm.Idx] = name
	}
	for i, name := range ordered {
		if name == "" {
			return nil, fmt.Errorf("no tool at position %d", i)
		}
		if meta.IdxToTool[fmt.Sprintf("%d", i)] != name {
			return nil, fmt.Errorf("mapping mismatch for %s", name)
		}
		if err := ix.Add(name, vectors[i], meta.Tools[name].Description); err != nil {
			return nil, err
		}
	}
	return ix, nil
}

func writeVectors(f *os.File, dim int, vectors [][]float32) error {
	header := []uint32{vectorsMagic, vectorsVersion, uint32(dim), uint32(len(vectors))}
	for _, h := range header {
		if err := binary.Write(f, binary.LittleEndian, h); err != nil {
			return err
		}
	}
	for _, vec := range vectors {
		for _, x := range vec {
			if err := binary.Write(f, binary.LittleEndian, math.Float32bits(x)); err != nil {
				return err
			}
		}
	}
	return nil
}

func readVectors(f *os.File) (int, [][]float32, error) {
	var magic, version, dim, count uint32
	for _, p := range []*uint32{&magic, &version, &dim, &count} {
		if err := binary.Read(f, binary.LittleEndian, p); err != nil {
			return 0, nil, fmt.Errorf("corrupt vectors file: %w", err)
		}
	}
	if magic != vectorsMagic {
		return 0, nil, fmt.Errorf("vectors file has wrong magic %#x", magic)
	}
	if version != vectorsVersion {
		return 0, nil, fmt.Errorf("unsupported vectors file version %d", version)
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		vec := make([]float32, dim)
		for j := range vec {
			var bits uint32
			if err := binary.Read(f, binary.LittleEndian, &bits); err != nil {
				return 0, nil, fmt.Errorf("truncated vectors file: %w", err)
			}
			vec[j] = math.Float32frombits(bits)
		}
		vectors[i] = vec
	}
	return int(dim), vectors, nil
}
