package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"finflow/internal/core"
)

func newBodyRequest(body, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	return req
}

func TestRequestBodyParser_JSON(t *testing.T) {
	req := newBodyRequest(`{"id": "123", "name": " test ", "amount": 42.5}`, "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if id := parser.Get("id"); id != "123" {
		t.Errorf("Get('id') = %q, want '123'", id)
	}
	if name := parser.Get("name"); name != "test" {
		t.Errorf("Get('name') = %q, want 'test'", name)
	}
	if amount := parser.Get("amount"); amount != "42.5" {
		t.Errorf("Get('amount') = %q, want '42.5'", amount)
	}
	if missing := parser.Get("missing"); missing != "" {
		t.Errorf("Get('missing') = %q, want empty", missing)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	req := newBodyRequest("id=456&name=form+test&password=+spaced+", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if id := parser.Get("id"); id != "456" {
		t.Errorf("Get('id') = %q, want '456'", id)
	}
	if name := parser.Get("name"); name != "form test" {
		t.Errorf("Get('name') = %q, want 'form test'", name)
	}
	if pw := parser.Raw("password"); pw != " spaced " {
		t.Errorf("Raw('password') = %q, want ' spaced '", pw)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	parser := NewRequestBodyParser(newBodyRequest("", "application/x-www-form-urlencoded"))
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		ct   string
	}{
		{"malformed json", `{"id":`, "application/json"},
		{"oversized", "description=" + strings.Repeat("a", maxFormBytes+1), "application/x-www-form-urlencoded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRequestBodyParser(newBodyRequest(tt.body, tt.ct)).Parse()
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("Parse() error = %v, want validation error", err)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x00b\tc\x07 "); got != "ab\tc" {
		t.Errorf("sanitizeInput = %q, want %q", got, "ab\tc")
	}
}

func parseForm(t *testing.T, values url.Values) (core.Transaction, error) {
	t.Helper()
	p := NewRequestBodyParser(newBodyRequest(values.Encode(), "application/x-www-form-urlencoded"))
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return parseTransactionForm(p)
}

func TestParseTransactionForm(t *testing.T) {
	valid := url.Values{
		"date":        {"2024-03-05"},
		"description": {" Office rent "},
		"category":    {"3"},
		"type":        {"Expense"},
		"amount":      {"1200,50"},
	}

	tx, err := parseForm(t, valid)
	if err != nil {
		t.Fatalf("parseTransactionForm() error = %v", err)
	}
	if tx.Date.String() != "2024-03-05" || tx.Description != "Office rent" || tx.Type != core.Expense {
		t.Errorf("unexpected transaction %+v", tx)
	}
	if tx.CategoryID == nil || *tx.CategoryID != 3 {
		t.Errorf("CategoryID = %v, want 3", tx.CategoryID)
	}
	if tx.Amount.Cents != 120050 {
		t.Errorf("Amount = %d cents, want 120050", tx.Amount.Cents)
	}

	uncategorized := url.Values{}
	for k, v := range valid {
		uncategorized[k] = v
	}
	uncategorized.Set("category", "")
	if tx, err := parseForm(t, uncategorized); err != nil || tx.CategoryID != nil {
		t.Errorf("empty category: tx=%+v err=%v", tx, err)
	}

	tests := []struct {
		field, value string
		want         error
	}{
		{"date", "05/03/2024", core.ErrInvalidDate},
		{"category", "abc", core.ErrInvalidCategory},
		{"category", "-1", core.ErrInvalidCategory},
		{"type", "transfer", core.ErrInvalidType},
		{"amount", "-5", core.ErrInvalidAmount},
		{"amount", "", core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.field+"="+tt.value, func(t *testing.T) {
			values := url.Values{}
			for k, v := range valid {
				values[k] = v
			}
			values.Set(tt.field, tt.value)
			if _, err := parseForm(t, values); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseCategoryForm(t *testing.T) {
	p := NewRequestBodyParser(newBodyRequest(`{"name":"Consulting","category_type":"income"}`, "application/json"))
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	name, kind, err := parseCategoryForm(p)
	if err != nil || name != "Consulting" || kind != core.Income {
		t.Errorf("parseCategoryForm = %q, %q, %v", name, kind, err)
	}

	p = NewRequestBodyParser(newBodyRequest("name=Rent&category_type=other", "application/x-www-form-urlencoded"))
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	if _, _, err := parseCategoryForm(p); !errors.Is(err, core.ErrInvalidType) {
		t.Errorf("error = %v, want ErrInvalidType", err)
	}
}

func TestParseTransactionQuery(t *testing.T) {
	q, raw := parseTransactionQuery(url.Values{"search": {" rent "}, "type": {"income"}, "category": {"9"}})
	if q.Search != "rent" || q.Type != core.Income || q.CategoryID != 9 {
		t.Errorf("query = %+v", q)
	}
	if raw.Category != "9" || raw.Type != "income" {
		t.Errorf("raw = %+v", raw)
	}

	q, raw = parseTransactionQuery(url.Values{"type": {"bogus"}, "category": {"x"}})
	if q.Type != "" || q.CategoryID != 0 || raw.Type != "" || raw.Category != "" {
		t.Errorf("invalid filters should be dropped: q=%+v raw=%+v", q, raw)
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		value string
		want  int64
		ok    bool
	}{
		{"12", 12, true},
		{"0", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.SetPathValue("id", tt.value)
		id, err := pathID(req)
		if tt.ok && (err != nil || id != tt.want) {
			t.Errorf("pathID(%q) = %d, %v", tt.value, id, err)
		}
		if !tt.ok && !errors.Is(err, core.ErrNotFoundOrForbidden) {
			t.Errorf("pathID(%q) error = %v, want ErrNotFoundOrForbidden", tt.value, err)
		}
	}
}
