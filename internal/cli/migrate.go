package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"finflow/internal/storage"
)

func newMigrateCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := storage.RunMigrations(opts.cfg.SQLiteDBPath); err != nil {
					return err
				}
				return printVersion(cmd, opts.cfg.SQLiteDBPath)
			},
		},
		newMigrateDownCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return printVersion(cmd, opts.cfg.SQLiteDBPath)
			},
		},
	)
	return cmd
}

func newMigrateDownCmd(opts *RootOptions) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("invalid --steps value %d: must be at least 1", steps)
			}
			if err := storage.MigrateDown(opts.cfg.SQLiteDBPath, steps); err != nil {
				return err
			}
			opts.logger.Warn("Rolled back migrations", "steps", steps, "db", opts.cfg.SQLiteDBPath)
			return printVersion(cmd, opts.cfg.SQLiteDBPath)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	return cmd
}

func printVersion(cmd *cobra.Command, dbPath string) error {
	version, dirty, err := storage.MigrationVersion(dbPath)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", version, state)
	return err
}
