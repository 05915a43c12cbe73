package cli

// This file contains the report command for displaying the last run.

import (
	"fmt"
	"strings"
	"time"

	"github.com/solverify/solverify/model"
	"github.com/solverify/solverify/report"
	"github.com/urfave/cli/v2"
)

func (a *App) report(ctx *cli.Context) error {
	rep, err := report.Load(ctx.String("output-dir"))
	if err != nil {
		return err
	}

	timestamp := rep.Timestamp.Format("2006-01-02 15:04:05")
	duration := rep.Duration.Round(time.Millisecond)

	// Show short ID (first 8 chars)
	shortID := rep.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	failed := 0
	for _, j := range rep.Jobs {
		if j.Outcome != model.OutcomePass.String() {
			failed++
		}
	}

	fmt.Printf("\n=== Run %s ===\n\n", shortID)
	fmt.Printf("Started:  %s\n", timestamp)
	fmt.Printf("Duration: %s\n", duration)
	if len(rep.Args) > 1 {
		fmt.Printf("Args:     %s\n", strings.Join(rep.Args[1:], " "))
	}
	if rep.WorkDir != "" {
		fmt.Printf("Path:     %s\n", rep.WorkDir)
	}
	if rep.Target != nil && rep.Target.RemoteHost != "" {
		fmt.Printf("Remote:   %s (%s)\n", rep.Target.RemoteHost, rep.Target.RunDir)
	}
	fmt.Printf("Tests:    %d total, %d passed, %d failed\n\n", len(rep.Jobs), len(rep.Jobs)-failed, failed)

	for _, j := range rep.Jobs {
		status := "✓"
		if j.Outcome != model.OutcomePass.String() {
			status = "✗"
		}
		fmt.Printf("%s  %s  [%s]  %s\n", status, j.Name, j.Duration.Round(time.Millisecond), j.Outcome)
		if j.Error != "" {
			fmt.Printf("   Error: %s\n", j.Error)
		}
		if j.Phases != nil {
			var parts []string
			if j.Phases.Compile != nil {
				parts = append(parts, fmt.Sprintf("compile=%.2fs", *j.Phases.Compile))
			}
			if j.Phases.Package != nil {
				parts = append(parts, fmt.Sprintf("package=%.2fs", *j.Phases.Package))
			}
			if j.Phases.Solve != nil {
				parts = append(parts, fmt.Sprintf("solve=%.2fs", *j.Phases.Solve))
			}
			if len(parts) > 0 {
				fmt.Printf("   Phases: %s\n", strings.Join(parts, "  "))
			}
		}
	}
	fmt.Println()

	return nil
}
