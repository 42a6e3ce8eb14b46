package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var backupFlags struct {
	out string
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Archive the storage root to a .tar.gz",
	Long: `Writes a gzipped tar of every case, evidence, analysis, and report file
plus the indexes. The investigation index is locked for the duration, so no
case is created or evicted mid-archive.`,
	RunE: runBackup,
}

func init() {
	backupCmd.Flags().StringVar(&backupFlags.out, "out", "", "Output archive path (required)")
	_ = backupCmd.MarkFlagRequired("out")
}

func runBackup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	f, err := os.Create(backupFlags.out)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	if err := st.Backup(cmd.Context(), f); err != nil {
		os.Remove(backupFlags.out)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Backed up %s to %s\n", cfg.StoragePath, backupFlags.out)
	return nil
}
