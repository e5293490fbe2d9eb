package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neotomadb/neotoma-loader/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "neotoma-loader",
	Short: "Resolve, validate and upload Neotoma templates",
	Long:  "Maps CSV uploads onto Neotoma tables through a YAML or XLSX template, validates the result and inserts it through the Neotoma stored procedures.",
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// The pre-run hook is attached in init because it calls configMode, which
// refers back to rootCmd; wiring it in the composite literal is an
// initialization cycle.
func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if servePort > 0 {
			cfg.Server.Port = servePort
		}
		if mode := configMode(cmd); mode != "" {
			return cfg.Validate(mode)
		}
		return nil
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configMode names the config.Validate mode for cmd: the top-level subcommand
// it belongs to, or "" for commands that need no configuration (help,
// completion).
func configMode(cmd *cobra.Command) string {
	for cmd.HasParent() && cmd.Parent() != rootCmd {
		cmd = cmd.Parent()
	}
	switch name := cmd.Name(); name {
	case "upload":
		if uploadDryRun {
			return "validate"
		}
		return name
	case "resolve", "validate", "runs", "serve":
		return name
	default:
		return ""
	}
}
