package main

import (
	"encoding/json"
	"fmt"
	"time"

	"garden_insights/internal/service"

	"github.com/spf13/cobra"
)

var (
	seedReset   bool
	seedHistory time.Duration
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the demo gardens, zones, metric catalog and reading history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		sum, err := a.services.Seed(cmd.Context(), service.SeedOptions{Reset: seedReset, History: seedHistory})
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		return printJSON(cmd, sum)
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run a single generate and evaluate cycle, then exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		report, err := a.services.RunCycle(cmd.Context())
		if perr := printJSON(cmd, report); perr != nil {
			return perr
		}
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("garden-insights %s\n", Version)
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "wipe every table before seeding")
	seedCmd.Flags().DurationVar(&seedHistory, "history", service.DefaultSeedHistory, "how much reading history to back-fill")
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
