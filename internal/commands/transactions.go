package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/recondash-dev/recondash/internal/collection"
	"github.com/recondash-dev/recondash/internal/id"
	"github.com/recondash-dev/recondash/internal/model"
)

func newTransactionsCommand() *cobra.Command {
	var statusFlag string
	var page int
	var all bool
	var limit int

	cmd := &cobra.Command{
		Use:   "transactions <batchId>",
		Short: "List a batch's transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid batch id %q: %w", args[0], err)
			}
			if all && page > 0 {
				return fmt.Errorf("--all and --page are mutually exclusive")
			}

			store, cfg, err := storeFromFlags(cmd)
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = cfg.List.PageSize
			}

			coll := collection.NewManager(store.Client(), batchID, limit)
			if statusFlag != "" {
				status, ok := model.ParseTransactionStatus(statusFlag)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFlag)
				}
				coll.SetFilter(status)
			}

			ctx := cmd.Context()
			switch {
			case page > 0:
				err = coll.LoadPage(ctx, page)
			case all:
				err = loadAll(ctx, coll)
			default:
				err = coll.Load(ctx)
			}
			if err != nil {
				return err
			}

			printTransactions(cmd, coll.Transactions())
			if pg, ok := coll.Pagination(); ok {
				cmd.Printf("Page %d of %d (%d total)\n", pg.Page, pg.TotalPages, pg.Total)
			} else if coll.HasMore() {
				cmd.Println("More transactions available; use --all to fetch everything.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "filter by status (e.g. needs_review)")
	cmd.Flags().IntVar(&page, "page", 0, "jump to a specific page")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")
	cmd.Flags().IntVar(&limit, "limit", 0, "rows per page")

	return cmd
}

func printTransactions(cmd *cobra.Command, txns []model.Transaction) {
	if len(txns) == 0 {
		cmd.Println("No transactions.")
		return
	}
	for _, tx := range txns {
		line := fmt.Sprintf("%s  %s  %10s  %-12s  %s",
			id.Short(tx.ID), tx.Date.Format("2006-01-02"),
			tx.Amount.StringFixed(2), tx.Status, tx.Description)
		if tx.MatchedInvoice != nil {
			line += fmt.Sprintf("  -> %s (%s)", tx.MatchedInvoice.InvoiceNumber, tx.MatchedInvoice.CustomerName)
		}
		if tx.Confidence.Valid {
			line += fmt.Sprintf("  [%s%%]", tx.Confidence.Decimal.StringFixed(0))
		}
		cmd.Println(line)
	}
}

// loadAll fetches every cursor page of a collection.
func loadAll(ctx context.Context, coll *collection.Manager) error {
	if err := coll.Load(ctx); err != nil {
		return err
	}
	for coll.HasMore() {
		if err := coll.LoadMore(ctx); err != nil {
			return err
		}
	}
	return nil
}
