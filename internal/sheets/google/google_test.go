package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
)

type fakeSheets struct {
	mu     sync.Mutex
	tabs   []string
	calls  []string
	values [][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet:
		f.calls = append(f.calls, "get")
		var sheets []map[string]any
		for _, t := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "add")
		_, _ = io.WriteString(w, `{}`)
	case strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "update")
		var body struct {
			Values [][]any `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.values = body.Values
		_, _ = io.WriteString(w, `{}`)
	default:
		http.Error(w, `{"error":{"code":404}}`, http.StatusNotFound)
	}
}

func newTestMirror(t *testing.T, fake *fakeSheets) *Mirror {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	m, err := New(context.Background(), "sheet-id", nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(context.Background(), " ", []byte(`{}`)); err == nil || !strings.Contains(err.Error(), "missing spreadsheet ID") {
		t.Errorf("expected missing spreadsheet ID error, got %v", err)
	}
	if _, err := New(context.Background(), "id", nil); err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Errorf("expected missing credentials error, got %v", err)
	}
}

func TestMirror_ReplaceLedgerCreatesMissingTab(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"Sheet1"}}
	m := newTestMirror(t, fake)

	rows := [][]any{{"Date", "Amount"}, {"2024-01-05", 10.5}}
	if err := m.ReplaceLedger(context.Background(), "alice Ledger", rows); err != nil {
		t.Fatalf("ReplaceLedger() error = %v", err)
	}

	want := []string{"get", "add", "clear", "update"}
	if strings.Join(fake.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", fake.calls, want)
	}
	if len(fake.values) != 2 {
		t.Errorf("written rows = %v", fake.values)
	}

	// The tab is remembered; no lookup on the second write.
	fake.calls = nil
	if err := m.ReplaceLedger(context.Background(), "alice Ledger", rows[:1]); err != nil {
		t.Fatalf("ReplaceLedger() error = %v", err)
	}
	if strings.Join(fake.calls, ",") != "clear,update" {
		t.Errorf("calls = %v", fake.calls)
	}
}

func TestMirror_ReplaceLedgerExistingTab(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"bob Ledger"}}
	m := newTestMirror(t, fake)

	if err := m.ReplaceLedger(context.Background(), "bob Ledger", [][]any{{"Date"}}); err != nil {
		t.Fatalf("ReplaceLedger() error = %v", err)
	}
	for _, c := range fake.calls {
		if c == "add" {
			t.Fatalf("existing tab must not be re-created: %v", fake.calls)
		}
	}
}

func TestMirror_NilService(t *testing.T) {
	m := &Mirror{spreadsheetID: "x", known: map[string]bool{}}
	if err := m.ReplaceLedger(context.Background(), "t", nil); err == nil {
		t.Fatal("expected error for nil service")
	}
}

func TestQuoteTab(t *testing.T) {
	if got := quoteTab("o'brien Ledger"); got != "'o''brien Ledger'" {
		t.Errorf("quoteTab() = %q", got)
	}
}
