package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/recondash-dev/recondash/internal/dashboard"
	"github.com/recondash-dev/recondash/internal/model"
	"github.com/recondash-dev/recondash/internal/poll"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <batchId>",
		Short: "Show a one-shot snapshot of a reconciliation batch",
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

			batch, err := store.Client().Batch(cmd.Context(), batchID)
			if err != nil {
				return err
			}
			printBatch(cmd, batch)
			return nil
		},
	}
}

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <batchId>",
		Short: "Poll a batch until it reaches a terminal state",
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
			return watchBatch(cmd, store.Batch(batchID))
		},
	}
}

// watchBatch drives a view's tracker to a terminal state, printing a
// progress line per snapshot.
func watchBatch(cmd *cobra.Command, view *dashboard.BatchView) error {
	tracker := view.Tracker()
	tracker.OnSnapshot(func(b model.Batch) {
		cmd.Printf("%s: %d/%d processed (auto-matched %d, needs review %d, unmatched %d)\n",
			b.Status, b.ProcessedCount, b.TotalTransactions,
			b.AutoMatchedCount, b.NeedsReviewCount, b.UnmatchedCount)
	})

	tracker.Start(cmd.Context())
	<-tracker.Done()

	switch tracker.State() {
	case poll.StateCompleted:
		return nil
	case poll.StateFailed:
		return fmt.Errorf("batch %s failed during processing", view.BatchID())
	case poll.StateAbandoned:
		return fmt.Errorf("gave up polling batch %s: %w", view.BatchID(), tracker.Err())
	default:
		return nil
	}
}

func printBatch(cmd *cobra.Command, b model.Batch) {
	cmd.Printf("Batch:        %s\n", b.ID)
	cmd.Printf("File:         %s\n", b.Filename)
	cmd.Printf("Status:       %s\n", b.Status)
	cmd.Printf("Processed:    %d/%d\n", b.ProcessedCount, b.TotalTransactions)
	cmd.Printf("Auto-matched: %d\n", b.AutoMatchedCount)
	cmd.Printf("Needs review: %d\n", b.NeedsReviewCount)
	cmd.Printf("Unmatched:    %d\n", b.UnmatchedCount)
}
