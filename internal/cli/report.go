package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"finflow/internal/export"
	"finflow/internal/services"
	"finflow/internal/storage"
)

type reportFlags struct {
	username string
	format   string
	out      string
}

func newReportCmd(opts *RootOptions) *cobra.Command {
	flags := &reportFlags{format: string(export.CSV)}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export a user's full report to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			username := strings.TrimSpace(flags.username)
			if username == "" {
				return fmt.Errorf("--user is required")
			}
			format, err := export.ParseFormat(flags.format)
			if err != nil {
				return fmt.Errorf("invalid --format value %q: supported values are csv|excel|pdf", flags.format)
			}

			repo, err := storage.NewSQLiteRepository(opts.cfg.SQLiteDBPath)
			if err != nil {
				return fmt.Errorf("open database %s: %w", opts.cfg.SQLiteDBPath, err)
			}
			defer repo.Close()

			ctx := cmd.Context()
			u, err := repo.GetUserByUsername(ctx, username)
			if err != nil {
				return fmt.Errorf("find user %q: %w", username, err)
			}

			reports := services.NewReportService(repo, services.ReportOptions{
				Months:   opts.cfg.DashboardMonths,
				Currency: opts.cfg.CurrencyPrefix,
			})
			doc, err := reports.Export(ctx, u.ID, format)
			if err != nil {
				return err
			}

			out := flags.out
			if out == "" {
				out = doc.Filename
			}
			if err := os.WriteFile(out, doc.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(doc.Data))
			return err
		},
	}

	cmd.Flags().StringVar(&flags.username, "user", "", "Username whose ledger is exported")
	cmd.Flags().StringVar(&flags.format, "format", flags.format, "Export format: csv|excel|pdf")
	cmd.Flags().StringVar(&flags.out, "out", "", "Output file (defaults to the generated report name)")
	return cmd
}
