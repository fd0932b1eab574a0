package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"candycheck/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	bestStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true)
)

var statsRecent int

// statsCmd summarizes the outcome log
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show persona effectiveness from the outcome log",
	Long: `Aggregates the recorded outcome events per persona: how many checks
surfaced problems under each persona and how many fixes came back.
Requires outcome_log.path in the config (or CANDYCHECK_OUTCOME_DB).`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsRecent, "recent", 0, "Also list the N most recent outcome events")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.OutcomeLog.Path == "" {
		return errors.New("no outcome log configured; set outcome_log.path or CANDYCHECK_OUTCOME_DB")
	}

	outcomes, err := store.OpenOutcomeLog(cfg.OutcomeLog.Path)
	if err != nil {
		return err
	}
	defer outcomes.Close()

	summary, err := outcomes.PersonaSummary()
	if err != nil {
		return err
	}
	if len(summary) == 0 {
		fmt.Println("no outcome events recorded yet")
		return nil
	}

	// Highlight the persona with the best fix-through rate
	best := -1.0
	for _, s := range summary {
		if s.Shown > 0 && s.FixRate > best {
			best = s.FixRate
		}
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-20s %8s %8s %9s", "PERSONA", "SHOWN", "FIXED", "FIX RATE")))
	for _, s := range summary {
		line := fmt.Sprintf("%-20s %8d %8d %8.1f%%", s.Persona, s.Shown, s.Fixed, s.FixRate*100)
		if s.Shown > 0 && s.FixRate == best {
			line = bestStyle.Render(line)
		}
		fmt.Println(line)
	}

	if statsRecent > 0 {
		events, err := outcomes.Events(statsRecent)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(headerStyle.Render(fmt.Sprintf("%-20s %-16s %-13s %7s %9s", "TIME", "PERSONA", "KIND", "ERRORS", "UNLOCKED")))
		for _, ev := range events {
			fmt.Printf("%-20s %-16s %-13s %7d %9d\n",
				ev.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				ev.Persona, ev.Kind, ev.ErrorCount, ev.UnlockedDelta)
		}
	}
	return nil
}
