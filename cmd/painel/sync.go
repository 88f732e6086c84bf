package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-status",
		Short: "Rewrite the stored status column from the due dates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Services.Customers.SyncStoredStatus(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%d clientes atualizados\n", n)
			return err
		},
	}
}
