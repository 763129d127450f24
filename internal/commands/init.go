package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lakshayknows/banking-operations-mcp-server/internal/config"
	"github.com/lakshayknows/banking-operations-mcp-server/internal/ledger"
)

func newInitCommand() *cobra.Command {
	var dbPath string
	var listenAddr string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a bankd.yaml and create the ledger database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			return runInit(path, dbPath, listenAddr, force)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "banking.db", "ledger database file")
	cmd.Flags().StringVar(&listenAddr, "listen", ":8080", "http listen address")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(configPath, dbPath, listenAddr string, force bool) error {
	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}
	}

	cfg := config.Default()
	cfg.Database.Path = dbPath
	cfg.Server.ListenAddr = listenAddr
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	// Opening the store creates the database file and its schema.
	store, err := ledger.OpenStore(ledger.StoreConfig{Path: dbPath})
	if err != nil {
		return err
	}
	if err := store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}

	fmt.Printf("Initialized %s with ledger database %s\n", configPath, dbPath)
	return nil
}
