package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/recondash-dev/recondash/internal/actions"
	"github.com/recondash-dev/recondash/internal/dashboard"
	"github.com/recondash-dev/recondash/internal/id"
	"github.com/recondash-dev/recondash/internal/model"
)

// newActionCommand builds confirm, reject, and external, which differ
// only in the action kind they dispatch.
func newActionCommand(verb, short string) *cobra.Command {
	var batchFlag string
	var yes bool

	cmd := &cobra.Command{
		Use:   verb + " <txnId>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, actions.Request{Kind: actions.Kind(verb), Confirmed: yes}, batchFlag, args[0], yes)
		},
	}

	cmd.Flags().StringVar(&batchFlag, "batch", "", "batch the transaction belongs to (required)")
	_ = cmd.MarkFlagRequired("batch")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the action")

	return cmd
}

func newMatchCommand() *cobra.Command {
	var batchFlag string
	var yes bool

	cmd := &cobra.Command{
		Use:   "match <txnId> <invoiceId>",
		Short: "Manually match a transaction to an invoice",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			invoiceID, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid invoice id %q: %w", args[1], err)
			}
			req := actions.Request{Kind: actions.KindMatch, InvoiceID: invoiceID, Confirmed: yes}
			return runAction(cmd, req, batchFlag, args[0], yes)
		},
	}

	cmd.Flags().StringVar(&batchFlag, "batch", "", "batch the transaction belongs to (required)")
	_ = cmd.MarkFlagRequired("batch")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the action")

	return cmd
}

func runAction(cmd *cobra.Command, req actions.Request, batchFlag, txnInput string, yes bool) error {
	if !yes {
		return fmt.Errorf("refusing to %s without --yes", req.Kind)
	}

	batchID, err := uuid.Parse(batchFlag)
	if err != nil {
		return fmt.Errorf("invalid batch id %q: %w", batchFlag, err)
	}

	store, _, err := storeFromFlags(cmd)
	if err != nil {
		return err
	}

	view := store.Batch(batchID)
	txn, err := findTransaction(cmd.Context(), view, txnInput)
	if err != nil {
		return err
	}
	req.TransactionID = txn.ID

	updated, err := view.Dispatch(cmd.Context(), req)
	if err != nil {
		return err
	}

	cmd.Printf("%s %s: now %s\n", req.Kind, id.Short(updated.ID), updated.Status)
	if updated.MatchedInvoice != nil {
		cmd.Printf("Matched to %s (%s)\n", updated.MatchedInvoice.InvoiceNumber, updated.MatchedInvoice.CustomerName)
	}
	return nil
}

// findTransaction loads the batch's transactions and resolves user
// input, full uuid or shortened prefix, to exactly one of them.
func findTransaction(ctx context.Context, view *dashboard.BatchView, input string) (model.Transaction, error) {
	coll := view.Collection()
	if err := loadAll(ctx, coll); err != nil {
		return model.Transaction{}, err
	}

	txns := coll.Transactions()
	ids := make([]uuid.UUID, len(txns))
	for i, tx := range txns {
		ids[i] = tx.ID
	}

	resolved, err := id.Resolve(input, ids)
	if err != nil {
		return model.Transaction{}, err
	}
	txn, ok := coll.Transaction(resolved)
	if !ok {
		return model.Transaction{}, fmt.Errorf("transaction %s is not in batch %s", resolved, view.BatchID())
	}
	return txn, nil
}

func newBulkConfirmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-confirm <batchId>",
		Short: "Confirm every auto-matched transaction in a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid batch id %q: %w", args[0], err)
			}

			store, _, err := storeFromFlags(cmd)
			if err != nil {
				return err
			}

			view := store.Batch(batchID)
			if err := view.Tracker().Refresh(cmd.Context()); err != nil {
				return err
			}

			res, err := view.BulkConfirm(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Confirmed %d transactions\n", res.ConfirmedCount)
			return nil
		},
	}
}
