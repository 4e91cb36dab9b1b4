package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"finflow/internal/core"
	"finflow/internal/report"
)

// Page geometry in points, measured from the top of a Letter page.
const (
	pdfMargin     = 50.0
	pdfTitleGap   = 40.0
	pdfLineHeight = 18.0
)

func writePDF(w io.Writer, doc Document) error {
	pdf, err := layoutPDF(doc)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

// layoutPDF draws the title and one line per transaction, starting a page
// only when another line still has to be drawn.
func layoutPDF(doc Document) (*fpdf.Fpdf, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	_, height := pdf.GetPageSize()
	bottom := height - pdfMargin

	pdf.AddPage()
	y := pdfMargin
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(pdfMargin, y, Title)

	y += pdfTitleGap
	pdf.SetFont("Helvetica", "", 12)
	for _, t := range doc.Transactions {
		if y > bottom {
			pdf.AddPage()
			pdf.SetFont("Helvetica", "", 12)
			y = pdfMargin
		}
		pdf.Text(pdfMargin, y, tr(pdfLine(doc, t)))
		y += pdfLineHeight
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	return pdf, nil
}

// pdfLine renders a categorized transaction's category as "Name (Type)".
func pdfLine(doc Document, t core.Transaction) string {
	category := report.NoCategory
	if t.CategoryName != "" {
		category = fmt.Sprintf("%s (%s)", t.CategoryName, t.CategoryType.Title())
	}
	return fmt.Sprintf("%s - %s - %s - %s - %s", t.Date, t.Description, category, t.Type, doc.money(t.Amount))
}
