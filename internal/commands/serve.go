package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lakshayknows/banking-operations-mcp-server/internal/ledger"
	"github.com/lakshayknows/banking-operations-mcp-server/internal/mcp"
	"github.com/lakshayknows/banking-operations-mcp-server/internal/server"
	"github.com/lakshayknows/banking-operations-mcp-server/internal/tools"
)

func newServeCommand() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the banking tools over MCP stdio or HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger := newLogger()
			store, err := ledger.OpenStore(ledger.StoreConfig{
				Path:     cfg.Database.Path,
				PoolSize: cfg.Database.PoolSize,
				Logger:   logger,
			})
			if err != nil {
				return err
			}
			defer store.Close()

			registry := tools.NewRegistry(ledger.NewService(store, logger))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			switch transport {
			case "stdio":
				return mcp.NewServer(registry, logger).Serve(ctx)
			case "http":
				return server.New(server.Config{
					Addr:     cfg.Server.ListenAddr,
					APIKey:   cfg.Server.APIKey,
					Registry: registry,
					Logger:   logger,
				}).ListenAndServe(ctx)
			default:
				return fmt.Errorf("unknown transport %q (want stdio or http)", transport)
			}
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "transport to serve: stdio or http")

	return cmd
}
