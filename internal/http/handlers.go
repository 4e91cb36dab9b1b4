package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"finflow/internal/auth"
	"finflow/internal/core"
	flog "finflow/internal/log"
	"finflow/internal/middleware/security"
)

const (
	loginPath     = "/accounts/login/"
	dashboardPath = "/"
	flashCookie   = "finflow_flash"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks templates and the database.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.db == nil:
		checks["database"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.db.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", flog.FieldError, err)
			checks["database"] = "failed"
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}

	NewHTMXResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// requireUser loads the session user into the request context. Anonymous
// requests are sent to the login page, or get 401 when partial.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		uid, err := s.sessions.FromRequest(r)
		if err == nil {
			var u core.User
			if u, err = s.svc.Auth.User(ctx, uid); err == nil {
				logger := flog.FromContext(ctx).With(flog.FieldUserID, u.ID)
				ctx = flog.IntoContext(auth.WithUser(ctx, u), logger)
				security.NoStore(next).ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if !errors.Is(err, core.ErrNotFoundOrForbidden) {
				s.fail(w, r, err, dashboardPath)
				return
			}
			// The account is gone; drop its cookie.
			s.sessions.ClearCookie(w)
		}

		if isPartial(r) {
			ErrorResponse(http.StatusUnauthorized, "Authentication required.").Write(w)
			return
		}
		target := loginPath
		if r.Method == http.MethodGet && r.URL.Path != dashboardPath {
			target += "?next=" + url.QueryEscape(r.URL.RequestURI())
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	}
}

// currentUser is only valid behind requireUser.
func currentUser(r *http.Request) core.User {
	u, _ := auth.UserFrom(r.Context())
	return u
}

// isPartial selects incremental responses: HTMX requests, JSON clients and
// ?mode=partial.
func isPartial(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return r.URL.Query().Get("mode") == "partial"
}

// safeNext accepts only local absolute paths as redirect targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return dashboardPath
	}
	return next
}

// Flash is a one-shot message shown on the next full page.
type Flash struct {
	Level   NotificationType
	Message string
}

func setFlash(w http.ResponseWriter, level NotificationType, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(string(level) + "|" + msg),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the pending flash message.
func popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteLaxMode})

	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	level, msg, ok := strings.Cut(raw, "|")
	if !ok || msg == "" {
		return nil
	}
	switch NotificationType(level) {
	case NotificationSuccess, NotificationError, NotificationInfo:
	default:
		level = string(NotificationInfo)
	}
	return &Flash{Level: NotificationType(level), Message: msg}
}

// redirect finishes a full-page mutation: flash, then 303 to target.
func redirect(w http.ResponseWriter, r *http.Request, target string, level NotificationType, msg string) {
	if msg != "" {
		setFlash(w, level, msg)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFoundOrForbidden):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateCategory):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail reports err to the client. Partial requests get a JSON error; full-page
// form errors are flashed back to back; missing records and internal failures
// render the error page. Causes of 500s are logged, never sent.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, back string) {
	status := statusFor(err)
	msg := core.PublicMessage(err)
	logger := flog.FromContext(r.Context())
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			flog.FieldError, err,
			flog.FieldMethod, r.Method,
			flog.FieldPath, r.URL.Path)
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			flog.FieldError, err,
			flog.FieldStatusCode, status)
	}

	if isPartial(r) {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			FieldErrorResponse(ve.Field, ve.Msg).Write(w)
			return
		}
		ErrorResponse(status, msg).Write(w)
		return
	}

	if r.Method == http.MethodPost && (status == http.StatusUnprocessableEntity || status == http.StatusConflict) {
		redirect(w, r, back, NotificationError, msg)
		return
	}
	s.renderStatus(w, r, status, "error.html", "Error", errorPage{Status: status, Message: msg})
}

type errorPage struct {
	Status  int
	Message string
}

// handleLogo serves the current user's own uploaded logo.
func (s *Server) handleLogo(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	name := r.PathValue("name")
	if !strings.HasPrefix(name, strconv.FormatInt(u.ID, 10)+"_") {
		s.fail(w, r, core.ErrNotFoundOrForbidden, dashboardPath)
		return
	}
	path, ok := s.svc.Profiles.LogoFile(name)
	if !ok {
		s.fail(w, r, core.ErrNotFoundOrForbidden, dashboardPath)
		return
	}
	if _, err := os.Stat(path); err != nil {
		s.fail(w, r, core.ErrNotFoundOrForbidden, dashboardPath)
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeFile(w, r, path)
}
