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
	"finflow/internal/auth"
	"finflow/internal/cache"
	"finflow/internal/config"
	apphttp "finflow/internal/http"
	flog "finflow/internal/log"
	"finflow/internal/metrics"
	"finflow/internal/middleware/ratelimit"
	"finflow/internal/report"
	"finflow/internal/services"
	"finflow/internal/storage"
)

const (
	shutdownTimeout = 30 * time.Second
	reportCacheSize = 512
)

func newServeCmd(opts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web application",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(); err != nil {
				return err
			}
			if addr == "" {
				addr = ":" + opts.cfg.Port
			}
			return runServe(cmd.Context(), opts.cfg, opts.logger, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to :$PORT)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *flog.Logger, addr string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.SQLiteDBPath, err)
	}
	defer repo.Close()

	m := metrics.New()

	var next services.EventPublisher = services.NopPublisher{}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		defer client.Close()
		next = client
		logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP_URL not set, ledger events are counted but not published")
	}
	publisher := metrics.LedgerPublisher{Next: next, Metrics: m}

	janitor := cache.NewJanitor(time.Minute)
	reportOpts := services.ReportOptions{Months: cfg.DashboardMonths, Currency: cfg.CurrencyPrefix}
	if cfg.ReportCacheTTL > 0 {
		summaries := cache.NewLRUCache[report.Summary](reportCacheSize, cfg.ReportCacheTTL)
		reportOpts.Cache = summaries
		janitor.Register(summaries)
	}
	reports := services.NewReportService(repo, reportOpts)

	svc := apphttp.Services{
		Auth:         services.NewAuthService(repo, auth.NewHasher(cfg.BcryptCost)),
		Transactions: services.NewTransactionService(repo, publisher, reports),
		Categories:   services.NewCategoryService(repo, publisher, reports),
		Profiles:     services.NewProfileService(repo, cfg.UploadDir),
		Reports:      reports,
	}
	srv := apphttp.NewServer(addr, svc, apphttp.Options{
		Sessions: auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure),
		DB:       repo,
		Logger:   logger,
		Metrics:  m,
		Limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		Currency: cfg.CurrencyPrefix,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting finflow server",
			flog.FieldOperation, flog.OpStartup,
			"addr", addr,
			"db", cfg.SQLiteDBPath,
			"dashboard_months", cfg.DashboardMonths)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error { return janitor.Run(gctx) })
	g.Go(func() error { return srv.Limiter().Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", flog.FieldOperation, flog.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
