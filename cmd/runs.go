package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sheltermap/campaddr/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded addressing runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded yet")
			return nil
		}

		fmt.Printf("%-36s %-9s %9s %9s %9s %6s %s\n",
			"Run", "Status", "Shelters", "Addressed", "Fallback", "Diag", "Started At")
		fmt.Println(strings.Repeat("-", 96))

		for _, r := range runs {
			shelters, addressed, fallback, diagCount := "-", "-", "-", "-"
			if r.Summary != nil {
				shelters = fmt.Sprintf("%d", r.Summary.Shelters)
				addressed = fmt.Sprintf("%d", r.Summary.Addressed)
				fallback = fmt.Sprintf("%d", r.Summary.Fallback)
				diagCount = fmt.Sprintf("%d", len(r.Summary.Diagnostics))
			}
			fmt.Printf("%-36s %-9s %9s %9s %9s %6s %s\n",
				r.ID, r.Status, shelters, addressed, fallback, diagCount,
				r.StartedAt.Format("2006-01-02 15:04"))
		}

		return nil
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}
