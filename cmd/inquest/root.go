package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"inquest/internal/config"
	"inquest/internal/logging"
	"inquest/internal/store"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath        string
	storagePath       string
	maxInvestigations int
	logLevel          string
	logFormat         string
}

var rootCmd = &cobra.Command{
	Use:   "inquest",
	Short: "Case management for forensic-style investigations",
	Long: "Inquest records investigation cases with their evidence, analysis\n" +
		"results, findings, and reports, and serves them to MCP clients.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "Path to a YAML config file")
	pf.StringVar(&rootFlags.storagePath, "storage", "", "Storage root directory (overrides config)")
	pf.IntVar(&rootFlags.maxInvestigations, "max-investigations", 0, "FIFO retention ceiling (overrides config)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&rootFlags.logFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.Version = version
}

// loadConfig resolves the effective configuration: defaults, then the config
// file if given, then environment, then command-line flags. It also wires the
// global logger.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if rootFlags.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(rootFlags.configPath); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if rootFlags.storagePath != "" {
		cfg.StoragePath = rootFlags.storagePath
	}
	if rootFlags.maxInvestigations > 0 {
		cfg.MaxInvestigations = rootFlags.maxInvestigations
	}
	if rootFlags.logLevel != "" {
		cfg.LogLevel = rootFlags.logLevel
	}
	if rootFlags.logFormat != "" {
		cfg.LogFormat = rootFlags.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	// MCP clients own stdout; logs always go to stderr.
	logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	return cfg, nil
}

func openStore(cfg config.Config) (*store.Store, error) {
	return store.Open(store.Options{
		Root:              cfg.StoragePath,
		MaxInvestigations: cfg.MaxInvestigations,
		LockTimeout:       cfg.LockTimeout,
		LockStaleAfter:    cfg.LockStaleAfter,
	}, logging.New("store"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
