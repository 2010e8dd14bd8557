package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recondash-dev/recondash/internal/buildinfo"
	"github.com/recondash-dev/recondash/internal/config"
	"github.com/recondash-dev/recondash/internal/dashboard"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "recondash",
		Short:   "Bank reconciliation review dashboard",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", config.Filename, "path to recondash.yaml")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newUploadCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newTransactionsCommand())
	rootCmd.AddCommand(newActionCommand("confirm", "Confirm a proposed match"))
	rootCmd.AddCommand(newActionCommand("reject", "Reject a proposed match"))
	rootCmd.AddCommand(newActionCommand("external", "Mark a transaction as handled outside invoicing"))
	rootCmd.AddCommand(newMatchCommand())
	rootCmd.AddCommand(newBulkConfirmCommand())
	rootCmd.AddCommand(newInvoicesCommand())

	return rootCmd
}

// storeFromFlags loads the config named by --config and builds the store.
func storeFromFlags(cmd *cobra.Command) (*dashboard.Store, *config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return dashboard.New(cfg), cfg, nil
}
