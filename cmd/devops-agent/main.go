/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// devops-agent is the command-line front-end of the natural-language
// dispatcher. The async surface lives in the orchestrator; this binary is
// the only place a blocking wrapper exists.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/NayanEupho/Agentic-DevOps/internal/orchestrator"
	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

func main() {
	root := &cobra.Command{
		Use:          "devops-agent",
		Short:        "Natural-language dispatcher for Docker and Kubernetes operations",
		SilenceUsage: true,
	}

	root.AddCommand(newQueryCmd(), newREPLCmd(), newPulseCmd(), newRAGCmd(), newSessionsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// signalContext cancels on SIGINT/SIGTERM so a user interrupt propagates
// through every in-flight suspension.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newQueryCmd() *cobra.Command {
	var (
		sessionID string
		noConfirm bool
		backends  []string
	)

	cmd := &cobra.Command{
		Use:   "query <text...>",
		Short: "Resolve and execute one request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			runTurn(ctx, a, orchestrator.Request{
				SessionID:      sessionID,
				Query:          strings.Join(args, " "),
				ForcedBackends: backends,
				PreApproved:    noConfirm,
			})
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (generated when omitted)")
	cmd.Flags().BoolVar(&noConfirm, "no-confirm", false, "skip the confirmation gate for this command")
	cmd.Flags().StringSliceVar(&backends, "backend", nil, "force the candidate backends (docker, k8s_local, k8s_remote)")
	return cmd
}

func newREPLCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			fmt.Printf("DevOps Agent — session %s (exit with ctrl-d)\n", sessionID)

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					fmt.Println()
					return nil
				}
				query := strings.TrimSpace(scanner.Text())
				if query == "" {
					continue
				}
				if query == "exit" || query == "quit" {
					return nil
				}
				runTurn(ctx, a, orchestrator.Request{SessionID: sessionID, Query: query})
				if ctx.Err() != nil {
					return nil
				}
			}
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "resume an existing session")
	return cmd
}

// runTurn executes one turn including the human-in-the-loop paths:
// confirmation for dangerous calls and numbered disambiguation.
func runTurn(ctx context.Context, a *app, req orchestrator.Request) {
	resp := a.orch.Handle(ctx, req)

	if resp.Confirmation != nil {
		if !confirmInteractively(resp) {
			fmt.Println("❌ Action cancelled.")
			return
		}
		// Re-invoke with the per-turn approval flag set.
		req.PreApproved = true
		resp = a.orch.Handle(ctx, req)
	}

	if len(resp.Disambiguation) > 0 {
		choice := chooseOption(resp.Disambiguation)
		if choice == nil {
			fmt.Println("❌ Invalid choice.")
			return
		}
		// Re-run the resolved call against the selected variant.
		calls := append([]registry.ToolCall(nil), resp.ToolCalls...)
		for i := range calls {
			calls[i].Name = choice.Tool
		}
		resp = a.orch.ExecuteCalls(ctx, req.SessionID, calls, req.PreApproved)
	}

	fmt.Println(resp.Output)
}

func confirmInteractively(resp *orchestrator.Response) bool {
	c := resp.Confirmation
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("🚨 APPROVAL REQUIRED: %s\n", c.Tool)
	fmt.Printf("⚠️  Risk: %s\n", c.Risk.Level)
	if c.Risk.Reason != "" {
		fmt.Printf("   Reason: %s\n", c.Risk.Reason)
	}
	if len(c.Risk.Impacts) > 0 {
		fmt.Println("\n   Impact:")
		for _, impact := range c.Risk.Impacts {
			fmt.Printf("   • %s\n", impact)
		}
	}
	fmt.Printf("\n   Arguments: %v\n", c.Arguments)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Print("Do you want to proceed? [y/N]: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

func chooseOption(options []orchestrator.Option) *orchestrator.Option {
	fmt.Println("🤔 This query is ambiguous. Please select the target:")
	for _, opt := range options {
		fmt.Printf("   [%s] %s\n", opt.Key, opt.Label)
	}
	fmt.Print("Enter your choice: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return nil
	}
	choice := strings.TrimSpace(scanner.Text())
	for i := range options {
		if options[i].Key == choice {
			return &options[i]
		}
	}
	return nil
}

func newPulseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pulse",
		Short: "Show backend health",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			snaps := a.pulse.All()
			ids := make([]string, 0, len(snaps))
			for id := range snaps {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			fmt.Println("💓 Backend health")
			for _, id := range ids {
				snap := snaps[id]
				emoji := "🔴"
				switch snap.Status {
				case "healthy":
					emoji = "🟢"
				case "degraded":
					emoji = "🟡"
				}
				fmt.Printf("  %s %-11s %-13s", emoji, id, snap.Status)
				if snap.Err != "" {
					fmt.Printf("  (%s)", snap.Err)
				}
				fmt.Println()
			}
			fmt.Printf("\n%d resources discovered\n", a.pulse.Resources().Len())
			return nil
		},
	}
}

func newRAGCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rag",
		Short: "Inspect and maintain the tool vector index",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "verify",
			Short: "Check index consistency",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := signalContext()
				defer cancel()

				a, err := buildApp(ctx)
				if err != nil {
					return err
				}
				defer a.close()

				rep := a.retriever.Verify()
				if rep.Valid {
					fmt.Printf("✅ Index valid: %d tools\n", rep.ToolCount)
					return nil
				}
				fmt.Printf("❌ Index invalid (%d tools, %d vectors):\n", rep.ToolCount, rep.IndexSize)
				for _, issue := range rep.Issues {
					fmt.Println("  -", issue)
				}
				return fmt.Errorf("index verification failed")
			},
		},
		&cobra.Command{
			Use:   "rebuild",
			Short: "Re-embed every tool and replace the index",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := signalContext()
				defer cancel()

				a, err := buildApp(ctx)
				if err != nil {
					return err
				}
				defer a.close()

				if err := a.retriever.Rebuild(ctx); err != nil {
					return err
				}
				fmt.Println("✅ Index rebuilt")
				return nil
			},
		},
	)
	return cmd
}

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			list, err := a.sessions.List()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No sessions yet.")
				return nil
			}
			for _, s := range list {
				fmt.Printf("%s  %-30s  last active %s\n",
					s.ID, s.Title, s.LastActivity.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}
