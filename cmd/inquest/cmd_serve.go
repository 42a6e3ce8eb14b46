package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"inquest/internal/logging"
	mcpserver "inquest/internal/mcp"
)

var serveFlags struct {
	reportDir string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout. An MCP client (editor, agent
runtime) connects by spawning this process and speaking JSON-RPC on the pipes.

The server monitors for parent process death: when the client disconnects or
restarts, the server self-terminates rather than lingering as a zombie.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.reportDir, "report-dir", "", "Directory for binary report artifacts (default <storage>/artifacts)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	reportDir := serveFlags.reportDir
	if reportDir == "" {
		reportDir = filepath.Join(cfg.StoragePath, "artifacts")
	}
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	mcpserver.WatchParent(ctx, cancel)

	logging.New("serve").Info("serving investigations over MCP",
		"storage", cfg.StoragePath, "max_investigations", cfg.MaxInvestigations)
	return mcpserver.NewServer(st, version, reportDir).Run(ctx)
}
