package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lakshayknows/banking-operations-mcp-server/internal/buildinfo"
	"github.com/lakshayknows/banking-operations-mcp-server/internal/config"
)

// defaultConfigPath is where commands look for the configuration file
// unless --config says otherwise.
const defaultConfigPath = "bankd.yaml"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "bankd",
		Short:   "Demonstration banking ledger served over MCP and HTTP",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", defaultConfigPath, "path to bankd.yaml")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newDumpCommand())

	return rootCmd
}

// loadConfig reads the configured bankd.yaml. A missing file is not an
// error: the defaults plus environment overrides apply, so the server
// runs unconfigured out of the box.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return config.FromEnv(), nil
	}
	return cfg, err
}

// newLogger builds the process logger. Stderr only: stdout belongs to
// the MCP transport when serving stdio.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
