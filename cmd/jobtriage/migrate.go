package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobtriage/internal/approval"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema for the approval queue",
	Long:  `Apply pending migrations to the database named by DATABASE_URL. Not needed when the queue is kept in a JSON file.`,
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	if err := approval.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}
	logger.Info("migrations applied")
	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}
