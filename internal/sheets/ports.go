package sheets

import (
	"context"
	"fmt"
	"strings"

	"finflow/internal/core"
)

// Header is the first row of every mirrored ledger tab.
var Header = []any{"Date", "Description", "Category", "Type", "Amount"}

// Ports for outbound adapters.
type (
	// LedgerMirror replaces the content of a ledger tab with rows.
	// The first row is the header.
	LedgerMirror interface {
		ReplaceLedger(ctx context.Context, tab string, rows [][]any) error
	}
)

// TabName returns the tab that mirrors username's ledger, e.g. "alice Ledger".
func TabName(username, sheetName string) string {
	if sheetName == "" {
		sheetName = "Ledger"
	}
	return fmt.Sprintf("%s %s", strings.TrimSpace(username), sheetName)
}

// LedgerRows lays out txs in the order given, header first. Amounts are numbers so
// the sheet can sum them.
func LedgerRows(txs []core.Transaction) [][]any {
	rows := make([][]any, 0, len(txs)+1)
	rows = append(rows, Header)
	for _, t := range txs {
		rows = append(rows, []any{
			t.Date.String(),
			t.Description,
			t.CategoryName,
			t.Type.Title(),
			t.Amount.Float(),
		})
	}
	return rows
}
