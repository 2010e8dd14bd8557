package commands

import (
	"github.com/spf13/cobra"

	"github.com/recondash-dev/recondash/internal/statement"
)

func newUploadCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a bank transaction file for reconciliation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := statement.PrecheckFile(args[0])
			if err != nil {
				return err
			}
			cmd.Printf("%d transactions, %s to %s, net %s\n",
				sum.Rows, sum.From.Format("2006-01-02"), sum.To.Format("2006-01-02"),
				sum.Total.StringFixed(2))

			store, _, err := storeFromFlags(cmd)
			if err != nil {
				return err
			}

			batchID, err := store.Upload(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Uploaded %s as batch %s\n", args[0], batchID)

			if !watch {
				return nil
			}
			return watchBatch(cmd, store.Batch(batchID))
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "poll the batch to completion after uploading")

	return cmd
}
