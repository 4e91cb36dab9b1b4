package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"finflow/internal/amqp"
	"finflow/internal/config"
	flog "finflow/internal/log"
	"finflow/internal/metrics"
	"finflow/internal/sheets"
	gsheet "finflow/internal/sheets/google"
	"finflow/internal/sheets/memory"
	"finflow/internal/storage"
	"finflow/internal/worker"
)

type workerOptions struct {
	metricsAddr string
	dryRun      bool
}

func newWorkerCmd(opts *RootOptions) *cobra.Command {
	wo := &workerOptions{}

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Mirror each user's ledger into Google Sheets as ledger events arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if err := cfg.Validate(); err != nil {
				return err
			}
			if wo.dryRun {
				if cfg.AMQPURL == "" {
					return errors.New("AMQP_URL is required for the worker")
				}
			} else if err := cfg.ValidateMirror(); err != nil {
				return err
			}
			return runWorker(cmd.Context(), cfg, opts.logger.WithComponent(flog.ComponentWorker), wo)
		},
	}

	cmd.Flags().StringVar(&wo.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9100")
	cmd.Flags().BoolVar(&wo.dryRun, "dry-run", false, "Keep mirrored tabs in memory instead of writing to Google Sheets")
	return cmd
}

func runWorker(ctx context.Context, cfg *config.Config, logger *flog.Logger, wo *workerOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.SQLiteDBPath, err)
	}
	defer repo.Close()

	var mirror sheets.LedgerMirror
	if wo.dryRun {
		mirror = memory.New()
		logger.Info("Dry run, mirrored tabs stay in memory")
	} else {
		creds, err := cfg.GoogleCredentials()
		if err != nil {
			return fmt.Errorf("read service account: %w", err)
		}
		gm, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, creds)
		if err != nil {
			return fmt.Errorf("create sheets client: %w", err)
		}
		mirror = gm
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer client.Close()

	m := metrics.New()
	w := worker.NewMirrorWorker(repo, mirror, cfg.GoogleSheetName)
	w.Observe = m.ObserveMirror

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue)
		return w.Run(gctx, client)
	})

	if wo.metricsAddr != "" {
		ms := &http.Server{
			Addr:              wo.metricsAddr,
			Handler:           m.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics listener: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return ms.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	synced, skipped := w.Stats()
	logger.Info("Worker stopped", "synced", synced, "skipped", skipped)
	return err
}
