package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Verify the storage root is consistent",
	Long: `Checks that every index decodes, every indexed case has a body file,
every dependent reference has its entity file, and reports orphaned bodies.
Exits non-zero when any inconsistency is found.`,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	problems, err := st.Check(cmd.Context())
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(problems) == 0 {
		fmt.Fprintf(out, "OK: storage at %s is consistent\n", cfg.StoragePath)
		return nil
	}
	for _, p := range problems {
		fmt.Fprintf(out, "PROBLEM: %s\n", p)
	}
	return fmt.Errorf("%d problem(s) found", len(problems))
}
