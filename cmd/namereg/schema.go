package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"namereg/internal/storage"
)

var schemaDB string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the users table if it does not exist",
	Long: `Open the database and ensure the users table exists. Safe to run any number
of times, including while a server is running against the same file.`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().StringVar(&schemaDB, "db", "", "SQLite database file (default from config)")
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if schemaDB != "" {
		cfg.Database.Path = schemaDB
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := newLogger(os.Stderr, cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := storage.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.InitSchema(ctx, db); err != nil {
		return err
	}

	conn, err := db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	n, err := storage.CountRecords(ctx, conn, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema ready: %s (%d records)\n", db.Path(), n)
	return nil
}
