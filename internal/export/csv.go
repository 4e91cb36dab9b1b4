package export

import (
	"encoding/csv"
	"io"
)

func writeCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{Title},
		{"Generated: " + doc.Generated.Format("2006-01-02 15:04")},
		{},
		{"Profit & Loss Statement"},
		{"Total Income", doc.money(doc.Totals.Income)},
		{"Total Expenses", doc.money(doc.Totals.Expense)},
		{"Net Profit", doc.money(doc.Totals.Net)},
		{},
		{"All Transactions"},
		{"Date", "Description", "Category", "Type", "Amount"},
	}
	for _, t := range doc.Transactions {
		rows = append(rows, []string{
			t.Date.String(),
			t.Description,
			t.CategoryName,
			t.Type.Title(),
			doc.money(t.Amount),
		})
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
