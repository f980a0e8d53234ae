package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"inorbit/internal/cli"
	"inorbit/internal/config"
	"inorbit/internal/log"
	"inorbit/internal/seed"
	"inorbit/internal/storage"
)

type rootOptions struct {
	dbPath   string
	logLevel string
	logger   *log.Logger
}

func newRootCmd() *cobra.Command {
	cli.LoadEnvFile()
	cfg := config.Load()
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "inorbit-admin",
		Short:         "Maintain the inorbit database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logger = cli.SetupLogger(log.ComponentAdmin, opts.logLevel)
		},
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", cfg.SQLiteDBPath, "SQLite database path")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newMigrateCmd(opts), newSeedCmd(opts), newCategoriesCmd(opts))
	return root
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect schema migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.RunMigrations(opts.dbPath); err != nil {
				return err
			}
			return printVersion(cmd, opts.dbPath)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersion(cmd, opts.dbPath)
		},
	}

	downCmd := &cobra.Command{
		Use:   "down <steps>",
		Short: "Roll back the given number of migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := strconv.Atoi(args[0])
			if err != nil || steps <= 0 {
				return fmt.Errorf("invalid steps %q: must be a positive number", args[0])
			}
			if err := storage.RollbackMigrations(opts.dbPath, steps); err != nil {
				return err
			}
			return printVersion(cmd, opts.dbPath)
		},
	}

	migrateCmd.AddCommand(upCmd, statusCmd, downCmd)
	return migrateCmd
}

func printVersion(cmd *cobra.Command, dbPath string) error {
	version, dirty, err := storage.MigrationVersion(dbPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", version, dirty)
	return nil
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool

	seedCmd := &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Load categories, goals and completions from a YAML fixture",
		Long: `Load a YAML fixture into the database.

Completion times may be RFC 3339 timestamps or offsets from now such as
"-1d" or "-2d3h". Use --dry-run to validate the file without writing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			f, err := seed.LoadFile(args[0])
			if err != nil {
				return err
			}
			if err := f.Validate(now); err != nil {
				return fmt.Errorf("invalid fixture: %w", err)
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "fixture ok: %d categories, %d goals\n", len(f.Categories), len(f.Goals))
				return nil
			}

			repo, err := storage.NewSQLiteRepository(opts.dbPath)
			if err != nil {
				return err
			}
			defer repo.Close()

			res, err := seed.Apply(cmd.Context(), repo, f, now)
			if err != nil {
				return err
			}
			opts.logger.Info("Fixture applied", "file", args[0], "goals", res.Goals, "completions", res.Completions)
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d categories, %d goals, %d completions\n",
				res.Categories, res.Goals, res.Completions)
			return nil
		},
	}
	seedCmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the fixture without writing")
	return seedCmd
}

func newCategoriesCmd(opts *rootOptions) *cobra.Command {
	categoriesCmd := &cobra.Command{
		Use:   "categories",
		Short: "Inspect categories",
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := storage.NewSQLiteRepository(opts.dbPath)
			if err != nil {
				return err
			}
			defer repo.Close()

			cats, err := repo.Categories(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cats) == 0 {
				fmt.Fprintln(out, "no categories")
				return nil
			}
			for _, c := range cats {
				fmt.Fprintf(out, "%s\t%s\n", c.ID, c.Name)
			}
			return nil
		},
	}
	categoriesCmd.AddCommand(listCmd)
	return categoriesCmd
}
