package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/recondash-dev/recondash/internal/config"
)

func newInitCommand() *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default recondash.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, absDir, apiURL)
		},
	}

	cmd.Flags().StringVar(&apiURL, "api-url", "http://localhost:3000", "reconciliation backend base URL")

	return cmd
}

func runInit(cmd *cobra.Command, dir, apiURL string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	path := filepath.Join(dir, config.Filename)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	cfg := config.Default(apiURL)
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, cfg.Log.Dir), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized recondash config at %s\n", path)
	return nil
}
