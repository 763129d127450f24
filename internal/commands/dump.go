package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lakshayknows/banking-operations-mcp-server/internal/ledger"
	"github.com/lakshayknows/banking-operations-mcp-server/internal/model"
)

func newDumpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the accounts and their transaction histories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			store, err := ledger.OpenStore(ledger.StoreConfig{Path: cfg.Database.Path})
			if err != nil {
				return err
			}
			defer store.Close()

			return runDump(cmd, ledger.NewService(store, nil))
		},
	}
	return cmd
}

func runDump(cmd *cobra.Command, svc *ledger.Service) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	// The dump bypasses the API listing limits: every account (any
	// status) and every transaction, in insertion order.
	accounts, err := svc.DumpAccounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		fmt.Fprintln(out, "No accounts.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tBALANCE\tSTATUS\tCREATED")
	for _, account := range accounts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			account.ID, account.Name, account.Email,
			account.Balance.StringFixed(2), account.Status,
			account.CreatedAt.Format(time.DateTime))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, account := range accounts {
		txns, err := svc.DumpTransactions(ctx, account.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nAccount %d (%s): %d transactions\n", account.ID, account.Name, len(txns))
		if err := writeTransactions(out, txns); err != nil {
			return err
		}
	}
	return nil
}

func writeTransactions(out io.Writer, txns []model.Transaction) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tAMOUNT\tBALANCE\tDESCRIPTION\tWHEN")
	for _, txn := range txns {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			txn.ID, txn.Type,
			txn.Amount.StringFixed(2), txn.BalanceAfter.StringFixed(2),
			txn.Description, txn.CreatedAt.Format(time.DateTime))
	}
	return w.Flush()
}
