package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"finflow/internal/cache"
	"finflow/internal/core"
	"finflow/internal/export"
	flog "finflow/internal/log"
	"finflow/internal/report"
	"finflow/internal/storage"
)

// ReportService fetches a user's snapshot and runs the aggregation engine over it.
type ReportService struct {
	store    LedgerStore
	cache    cache.Cache[report.Summary]
	months   int
	currency string
	now      func() time.Time

	// gens counts invalidations per user. A load that saw an older
	// generation must not be cached.
	mu   sync.Mutex
	gens map[int64]uint64
}

// ReportOptions configures ReportService. Zero values take defaults.
type ReportOptions struct {
	Months   int
	Currency string
	Cache    cache.Cache[report.Summary]
}

func NewReportService(store LedgerStore, opts ReportOptions) *ReportService {
	if opts.Months < 1 {
		opts.Months = report.DefaultMonths
	}
	if opts.Currency == "" {
		opts.Currency = export.DefaultCurrency
	}
	return &ReportService{
		store:    store,
		cache:    opts.Cache,
		months:   opts.Months,
		currency: opts.Currency,
		now:      time.Now,
		gens:     make(map[int64]uint64),
	}
}

// Summary reports as of today using the configured bucket count.
func (s *ReportService) Summary(ctx context.Context, userID int64) (report.Summary, error) {
	return s.SummaryAt(ctx, userID, s.now(), s.months)
}

// SummaryAt reports as of ref with the given bucket count. Results are cached
// per (user, day, months) until the user's ledger changes.
func (s *ReportService) SummaryAt(ctx context.Context, userID int64, ref time.Time, months int) (report.Summary, error) {
	key := summaryKey(userID, ref, months)
	var gen uint64
	if s.cache != nil {
		if sum, ok := s.cache.Get(key); ok {
			return sum, nil
		}
		gen = s.generation(userID)
	}

	var (
		txs  []core.Transaction
		cats []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactions(gctx, storage.TransactionFilter{UserID: userID})
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = s.store.ListCategories(gctx, userID, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return report.Summary{}, classify("load report data", err)
	}

	sum := report.Build(txs, cats, ref, months)
	if s.cache != nil {
		s.cacheIfCurrent(userID, gen, key, sum)
	}
	return sum, nil
}

func (s *ReportService) generation(userID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[userID]
}

// cacheIfCurrent caches sum unless userID was invalidated after gen was read.
func (s *ReportService) cacheIfCurrent(userID int64, gen uint64, key string, sum report.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[userID] != gen {
		return
	}
	s.cache.Set(key, sum)
}

// InvalidateUser drops every cached summary of userID.
func (s *ReportService) InvalidateUser(userID int64) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	s.gens[userID]++
	s.mu.Unlock()
	if n := s.cache.DeletePrefix(userPrefix(userID)); n > 0 {
		slog.Debug("Invalidated cached reports", flog.FieldComponent, flog.ComponentCache, flog.FieldUserID, userID, "entries", n)
	}
}

// Export is a rendered document ready to send.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Export renders the user's full, unfiltered history.
func (s *ReportService) Export(ctx context.Context, userID int64, format export.Format) (Export, error) {
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{UserID: userID})
	if err != nil {
		return Export{}, classify("load export data", err)
	}

	now := s.now()
	data, err := export.Render(format, export.NewDocument(txs, now, s.currency))
	if err != nil {
		return Export{}, core.Upstream(err)
	}
	slog.InfoContext(ctx, "Report exported",
		flog.FieldComponent, flog.ComponentExport,
		flog.FieldOperation, flog.OpExport,
		flog.FieldUserID, userID,
		flog.FieldFormat, format,
		"transactions", len(txs),
		"bytes", len(data))
	return Export{
		Filename:    export.Filename(format, now),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

func userPrefix(userID int64) string {
	return fmt.Sprintf("user:%d:", userID)
}

func summaryKey(userID int64, ref time.Time, months int) string {
	return fmt.Sprintf("%s%s:%d", userPrefix(userID), ref.Format(core.DateLayout), months)
}
