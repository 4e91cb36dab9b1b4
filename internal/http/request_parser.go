package http

// This file implements utilities for parsing and validating HTTP request data:
// a body parser that accepts both form and JSON payloads, and the typed
// readers for the ledger forms and list filters.

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"finflow/internal/core"
	"finflow/internal/services"
)

// maxFormBytes caps non-upload request bodies.
const maxFormBytes = 1 << 20

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once, up to maxFormBytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxFormBytes+1))
		if p.err == nil && len(p.body) > maxFormBytes {
			p.err = errBodyTooLarge
		}
	}
	return p
}

var errBodyTooLarge = core.Invalid("form", "Request body too large.")

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = core.Invalid("form", "Malformed JSON body.")
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = core.Invalid("form", "Malformed form body.")
	}
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Raw returns a value without trimming; passwords keep their spaces.
func (p *RequestBodyParser) Raw(key string) string {
	if p.jsonData != nil {
		return stringValue(p.jsonData[key])
	}
	return p.formData.Get(key)
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, then trims whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// parseBody reads the request as a form or JSON object.
func parseBody(r *http.Request) (*RequestBodyParser, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, err
	}
	return p, nil
}

// parseTransactionForm reads date, description, category, type and amount.
// Errors are reported in form field order.
func parseTransactionForm(p *RequestBodyParser) (core.Transaction, error) {
	date, err := core.ParseDate(p.Get("date"))
	if err != nil {
		return core.Transaction{}, err
	}

	var categoryID *int64
	if v := p.Get("category"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return core.Transaction{}, core.ErrInvalidCategory
		}
		categoryID = &id
	}

	kind, err := core.ParseKind(p.Get("type"))
	if err != nil {
		return core.Transaction{}, err
	}

	cents, err := core.ParseDecimalToCents(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, err
	}

	return core.Transaction{
		Date:        date,
		Description: p.Get("description"),
		CategoryID:  categoryID,
		Type:        kind,
		Amount:      core.Money{Cents: cents},
	}, nil
}

// parseCategoryForm reads name and category_type.
func parseCategoryForm(p *RequestBodyParser) (string, core.Kind, error) {
	kind, err := core.ParseKind(p.Get("category_type"))
	if err != nil {
		return "", "", err
	}
	return p.Get("name"), kind, nil
}

// ListFilter echoes the raw list query back to the page.
type ListFilter struct {
	Search   string
	Type     string
	Category string
}

// parseTransactionQuery reads search, type and category. Unknown types and
// malformed category ids are ignored rather than rejected.
func parseTransactionQuery(q url.Values) (services.TransactionQuery, ListFilter) {
	raw := ListFilter{
		Search:   sanitizeInput(q.Get("search")),
		Type:     sanitizeInput(q.Get("type")),
		Category: sanitizeInput(q.Get("category")),
	}

	query := services.TransactionQuery{Search: raw.Search}
	if kind, err := core.ParseKind(raw.Type); err == nil {
		query.Type = kind
	} else {
		raw.Type = ""
	}
	if id, err := strconv.ParseInt(raw.Category, 10, 64); err == nil && id > 0 {
		query.CategoryID = id
	} else {
		raw.Category = ""
	}
	return query, raw
}

// pathID reads the {id} wildcard. Malformed ids look like missing records.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFoundOrForbidden
	}
	return id, nil
}
