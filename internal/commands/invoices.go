package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/recondash-dev/recondash/internal/api"
	"github.com/recondash-dev/recondash/internal/id"
)

func newInvoicesCommand() *cobra.Command {
	invoicesCmd := &cobra.Command{
		Use:   "invoices",
		Short: "Invoice operations",
	}
	invoicesCmd.AddCommand(newInvoiceSearchCommand())
	return invoicesCmd
}

func newInvoiceSearchCommand() *cobra.Command {
	var amountFlag string
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search invoices by customer name or exact amount",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := api.InvoiceQuery{Limit: limit}
			switch {
			case amountFlag != "":
				amount, err := decimal.NewFromString(amountFlag)
				if err != nil {
					return fmt.Errorf("invalid amount %q: %w", amountFlag, err)
				}
				query.Amount = &amount
			case len(args) == 1:
				query.Text = args[0]
			default:
				return fmt.Errorf("provide a query or --amount")
			}

			store, _, err := storeFromFlags(cmd)
			if err != nil {
				return err
			}

			invoices, err := store.Client().SearchInvoices(cmd.Context(), query)
			if err != nil {
				return err
			}

			if len(invoices) == 0 {
				cmd.Println("No invoices found.")
				return nil
			}
			for _, inv := range invoices {
				cmd.Printf("%s  %-12s  %10s  %-8s  %s\n",
					id.Short(inv.ID), inv.InvoiceNumber,
					inv.Amount.StringFixed(2), inv.Status, inv.CustomerName)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&amountFlag, "amount", "", "search by exact amount instead of text")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results")

	return cmd
}
