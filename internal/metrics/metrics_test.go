package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finflow/internal/amqp"
)

func TestMiddleware_LabelsByPattern(t *testing.T) {
	m := New()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transactions/delete/{id}/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := m.Middleware(mux)

	for _, id := range []string{"1", "2"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/transactions/delete/"+id+"/", nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "POST /transactions/delete/{id}/", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", unmatched, "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	pub := LedgerPublisher{Metrics: m}
	require.NoError(t, pub.PublishLedgerEvent(context.Background(), amqp.NewLedgerEvent(amqp.TransactionCreated, 1, 2)))
	m.ObserveExport("pdf")
	m.ObserveRejected("rate_limited")
	m.ObserveMirror(false)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, want := range []string{
		`finflow_ledger_events_total{kind="transaction.created"} 1`,
		`finflow_report_exports_total{format="pdf"} 1`,
		`finflow_http_rejected_requests_total{reason="rate_limited"} 1`,
		`finflow_mirror_runs_total{outcome="failure"} 1`,
		"go_goroutines",
	} {
		assert.True(t, strings.Contains(body, want), "missing %q", want)
	}
}
