package http

import (
	"net/http"
	"strconv"

	"finflow/internal/core"
	"finflow/internal/export"
)

// handleExport streams the user's report as csv, excel or pdf. Nothing is
// written until the document has rendered completely.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.PathValue("format"))
	if err != nil {
		s.fail(w, r, core.ErrNotFoundOrForbidden, "/reports/")
		return
	}

	u := currentUser(r)
	out, err := s.svc.Reports.Export(r.Context(), u.ID, format)
	if err != nil {
		s.fail(w, r, err, "/reports/")
		return
	}
	s.metrics.ObserveExport(string(format))

	h := w.Header()
	h.Set("Content-Type", out.ContentType)
	h.Set("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	h.Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}
