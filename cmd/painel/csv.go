package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tekinformatica/painel-go/internal/listing"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import customers from a CSV file (all rows or none)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := opts.buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Services.Customers.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d clientes importados\n", n)
			return nil
		},
	}
}

type exportFlags struct {
	output    string
	search    string
	status    string
	tier      string
	sortField string
	direction string
}

// query builds the view-state from the flags and validates it through the
// same URL parsing the HTTP list endpoint uses.
func (f exportFlags) query() (listing.Query, error) {
	q := listing.Query{}.
		WithSearch(strings.TrimSpace(f.search)).
		WithStatus(f.status).
		WithTier(f.tier).
		WithSort(f.sortField, listing.Direction(f.direction))
	return listing.ParseQuery(q.Values())
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var flags exportFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the filtered customer list as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}

			a, err := opts.buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var w io.Writer = cmd.OutOrStdout()
			if flags.output != "" && flags.output != "-" {
				f, err := os.Create(flags.output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			n, err := a.Services.Customers.Export(cmd.Context(), w, q)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d clientes exportados\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&flags.output, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&flags.search, "busca", "", "search term (name, phone or code)")
	cmd.Flags().StringVar(&flags.status, "status", listing.All, "Ativo, Vencido or Todos")
	cmd.Flags().StringVar(&flags.tier, "servidor", listing.All, "tier or Todos")
	cmd.Flags().StringVar(&flags.sortField, "ordenar", listing.FieldName, "sort column")
	cmd.Flags().StringVar(&flags.direction, "direcao", string(listing.Asc), "asc or desc")
	return cmd
}
