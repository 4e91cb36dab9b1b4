// Package cli wires configuration, storage and services into the finflow
// commands: the web server, the sheets mirror worker, schema migrations and
// one-off report exports.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"finflow/internal/config"
	flog "finflow/internal/log"
)

type RootOptions struct {
	EnvFile string
	DBPath  string

	cfg    *config.Config
	logger *flog.Logger
}

func NewRootCmd() *cobra.Command {
	opts := &RootOptions{EnvFile: ".env"}

	cmd := &cobra.Command{
		Use:           "finflow",
		Short:         "FinFlow tracks income and expenses for small businesses",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// No .env file is the normal case in production.
			if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", opts.EnvFile, err)
			}

			opts.cfg = config.Load()
			if opts.DBPath != "" {
				opts.cfg.SQLiteDBPath = opts.DBPath
			}

			opts.logger = flog.New(flog.Config{
				Level:     flog.ParseLevel(opts.cfg.LogLevel),
				Format:    opts.cfg.LogFormat,
				Component: flog.ComponentApp,
				Output:    os.Stdout,
			})
			flog.SetDefault(opts.logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", opts.EnvFile, "Environment file loaded before reading configuration")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db-path", "", "SQLite database path (overrides SQLITE_DB_PATH)")

	cmd.AddCommand(
		newServeCmd(opts),
		newWorkerCmd(opts),
		newMigrateCmd(opts),
		newReportCmd(opts),
	)

	return cmd
}
