package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"finflow/internal/auth"
	"finflow/internal/export"
	flog "finflow/internal/log"
	"finflow/internal/metrics"
	"finflow/internal/middleware/ratelimit"
	"finflow/internal/middleware/security"
	"finflow/internal/middleware/trace"
	"finflow/internal/services"
	appweb "finflow/web"
)

// Services are the application operations the handlers call.
type Services struct {
	Auth         *services.AuthService
	Transactions *services.TransactionService
	Categories   *services.CategoryService
	Profiles     *services.ProfileService
	Reports      *services.ReportService
}

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries the infrastructure the server is wired with. Nil Logger,
// Metrics, Limiter and Detector get working defaults.
type Options struct {
	Sessions *auth.Sessions
	DB       Pinger
	Logger   *flog.Logger
	Metrics  *metrics.Metrics
	Limiter  *ratelimit.Limiter
	Detector *security.Detector
	Currency string
}

type Server struct {
	http.Server
	svc       Services
	sessions  *auth.Sessions
	db        Pinger
	logger    *flog.Logger
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	templates map[string]*template.Template
	currency  string
	started   time.Time
	now       func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(addr string, svc Services, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = flog.New(flog.DefaultConfig())
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	if opts.Detector == nil {
		opts.Detector = security.NewDetector()
	}
	if opts.Currency == "" {
		opts.Currency = export.DefaultCurrency
	}

	s := &Server{
		svc:      svc,
		sessions: opts.Sessions,
		db:       opts.DB,
		logger:   opts.Logger.WithComponent(flog.ComponentHTTP),
		metrics:  opts.Metrics,
		limiter:  opts.Limiter,
		detector: opts.Detector,
		currency: opts.Currency,
		started:  time.Now(),
		now:      time.Now,
	}

	t, err := parseTemplates(appweb.TemplatesFS, s.funcs())
	if err != nil {
		s.logger.Error("Failed parsing templates", flog.FieldError, err)
	}
	s.templates = t

	s.detector.OnSuspicious = func(*http.Request) { s.metrics.ObserveRejected("suspicious") }

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", flog.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /accounts/login/", s.handleLoginPage)
	mux.HandleFunc("POST /accounts/login/", s.handleLogin)
	mux.HandleFunc("GET /accounts/register/", s.handleRegisterPage)
	mux.HandleFunc("POST /accounts/register/", s.handleRegister)
	mux.HandleFunc("POST /accounts/logout/", s.handleLogout)

	mux.HandleFunc("GET /{$}", s.requireUser(s.handleDashboard))
	mux.HandleFunc("GET /reports/", s.requireUser(s.handleReports))

	mux.HandleFunc("GET /transactions/", s.requireUser(s.handleTransactions))
	mux.HandleFunc("POST /transactions/add/{$}", s.requireUser(s.handleCreateTransaction))
	mux.HandleFunc("GET /transactions/{id}/edit/", s.requireUser(s.handleEditTransactionPage))
	mux.HandleFunc("POST /transactions/{a}/{b}/", s.requireUser(memberRoute(s.handleUpdateTransaction, s.handleDeleteTransaction)))

	mux.HandleFunc("GET /categories/", s.requireUser(s.handleCategories))
	mux.HandleFunc("POST /categories/add/{$}", s.requireUser(s.handleCreateCategory))
	mux.HandleFunc("GET /categories/{id}/edit/", s.requireUser(s.handleEditCategoryPage))
	mux.HandleFunc("POST /categories/{a}/{b}/", s.requireUser(memberRoute(s.handleUpdateCategory, s.handleDeleteCategory)))

	mux.HandleFunc("GET /settings/", s.requireUser(s.handleSettings))
	mux.HandleFunc("POST /settings/", s.requireUser(s.handleUpdateSettings))
	mux.HandleFunc("GET /media/logos/{name}", s.requireUser(s.handleLogo))

	mux.HandleFunc("GET /reports/export/{format}/", s.requireUser(s.handleExport))

	// Outermost first: trace, headers, detector, rate limit, metrics, mux.
	var h http.Handler = s.metrics.Middleware(mux)
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP).Middleware(h)
	return h
}

// memberRoute serves both "/{id}/edit/" and "/delete/{id}/". ServeMux rejects
// the two as overlapping patterns ("/delete/edit/" matches both), so one
// pattern takes them and the id is set before dispatch. The "add/" routes
// end in {$} for the same reason: a bare trailing slash would also claim
// everything below it.
func memberRoute(edit, del http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, b := r.PathValue("a"), r.PathValue("b")
		switch {
		case a == "delete":
			r.SetPathValue("id", b)
			del(w, r)
		case b == "edit":
			r.SetPathValue("id", a)
			edit(w, r)
		default:
			http.NotFound(w, r)
		}
	}
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.ObserveRejected("rate_limited")
	flog.FromContext(r.Context()).WithComponent(flog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		flog.FieldClientIP, s.detector.ExtractClientIP(r),
		flog.FieldMethod, r.Method,
		flog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// Limiter exposes the rate limiter so its janitor can run beside the server.
func (s *Server) Limiter() *ratelimit.Limiter {
	return s.limiter
}

// Shutdown gracefully shuts down the server. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		slog.InfoContext(ctx, "HTTP server shutting down", flog.FieldComponent, flog.ComponentHTTP, flog.FieldOperation, flog.OpShutdown)
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
