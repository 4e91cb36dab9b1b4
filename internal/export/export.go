// Package export renders a user's ledger as CSV, XLSX or PDF documents.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"finflow/internal/core"
	"finflow/internal/report"
)

const (
	Title           = "FinFlow - Financial Report"
	DefaultCurrency = "Ksh"
)

// Format selects a document encoding.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
	PDF  Format = "pdf"
)

// ParseFormat accepts the route and CLI spellings, including "excel".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "xlsx", "excel":
		return XLSX, nil
	case "pdf":
		return PDF, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case PDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Filename is finflow_report_YYYYMMDD.<ext> for the given day.
func Filename(f Format, day time.Time) string {
	return fmt.Sprintf("finflow_report_%s.%s", day.Format("20060102"), f)
}

// Document is everything an exporter needs; no exporter queries storage.
type Document struct {
	Generated    time.Time
	Totals       report.Totals
	Transactions []core.Transaction
	Currency     string
}

// NewDocument copies txs newest first and computes their totals.
func NewDocument(txs []core.Transaction, generated time.Time, currency string) Document {
	sorted := make([]core.Transaction, len(txs))
	copy(sorted, txs)
	report.SortNewestFirst(sorted)
	if currency == "" {
		currency = DefaultCurrency
	}
	return Document{
		Generated:    generated,
		Totals:       report.ComputeTotals(sorted),
		Transactions: sorted,
		Currency:     currency,
	}
}

func (d Document) money(m core.Money) string {
	return d.Currency + " " + m.String()
}

// Render encodes doc fully in memory so a failure never yields a partial file.
func Render(f Format, doc Document) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case CSV:
		err = writeCSV(&buf, doc)
	case XLSX:
		err = writeXLSX(&buf, doc)
	case PDF:
		err = writePDF(&buf, doc)
	default:
		return nil, fmt.Errorf("unknown export format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", f, err)
	}
	return buf.Bytes(), nil
}
