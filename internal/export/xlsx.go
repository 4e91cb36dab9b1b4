package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const SheetName = "FinFlow Report"

var sheetHeaders = []string{"Date", "Description", "Category", "Type", "Amount"}

func writeXLSX(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet so the workbook holds exactly one.
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	for i, h := range sheetHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return err
		}
	}

	for idx, t := range doc.Transactions {
		row := idx + 2
		values := []any{t.Date.String(), t.Description, t.CategoryName, t.Type.Title(), t.Amount.Float()}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	f.SetColWidth(SheetName, "A", "A", 12)
	f.SetColWidth(SheetName, "B", "B", 40)
	f.SetColWidth(SheetName, "C", "C", 20)
	f.SetColWidth(SheetName, "D", "D", 10)
	f.SetColWidth(SheetName, "E", "E", 14)

	return f.Write(w)
}
