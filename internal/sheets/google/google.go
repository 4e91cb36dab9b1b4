package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	flog "finflow/internal/log"
	ports "finflow/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Mirror writes ledger tabs into a single spreadsheet.
type Mirror struct {
	svc           *gsheet.Service
	spreadsheetID string

	mu    sync.Mutex
	known map[string]bool
}

var _ ports.LedgerMirror = (*Mirror)(nil)

// New creates a Mirror authenticated with service account credentials.
// Extra options are appended after the credentials (tests pass an endpoint).
func New(ctx context.Context, spreadsheetID string, credentialsJSON []byte, opts ...goption.ClientOption) (*Mirror, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}

	all := opts
	if len(credentialsJSON) > 0 {
		all = append([]goption.ClientOption{
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, opts...)
	} else if len(opts) == 0 {
		return nil, errors.New("missing service account credentials")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		flog.FieldComponent, flog.ComponentSheets,
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Mirror{svc: svc, spreadsheetID: spreadsheetID, known: map[string]bool{}}, nil
}

// ReplaceLedger creates tab when missing, clears it and writes rows from A1.
func (m *Mirror) ReplaceLedger(ctx context.Context, tab string, rows [][]any) error {
	if m.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := m.ensureTab(ctx, tab); err != nil {
		return err
	}

	quoted := quoteTab(tab)
	if _, err := m.svc.Spreadsheets.Values.Clear(m.spreadsheetID, quoted, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}

	vr := &gsheet.ValueRange{MajorDimension: "ROWS", Values: rows}
	if _, err := m.svc.Spreadsheets.Values.Update(m.spreadsheetID, quoted+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", tab, err)
	}

	slog.InfoContext(ctx, "Mirrored ledger to Google Sheets", flog.FieldComponent, flog.ComponentSheets, "tab", tab, "rows", len(rows))
	return nil
}

func (m *Mirror) ensureTab(ctx context.Context, tab string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.known[tab] {
		return nil
	}

	ss, err := m.svc.Spreadsheets.Get(m.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			m.known[sh.Properties.Title] = true
		}
	}
	if m.known[tab] {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}},
	}
	if _, err := m.svc.Spreadsheets.BatchUpdate(m.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", tab, err)
	}
	m.known[tab] = true
	slog.InfoContext(ctx, "Created ledger tab", flog.FieldComponent, flog.ComponentSheets, "tab", tab)
	return nil
}

// quoteTab quotes a sheet title for A1 notation.
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}
