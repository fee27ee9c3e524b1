package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// Column widths in mm; they add up to the 190 mm printable A4 width.
var pdfWidths = []float64{42, 38, 70, 40}

func writePDF(w io.Writer, doc Document) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	q := doc.Report.Query

	pdf.SetTitle(fmt.Sprintf("Air Freight Report %s %s", q.Plant, q.Month), true)
	pdf.AddPage()

	pdf.SetFillColor(40, 40, 40)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 12, tr(fmt.Sprintf("  Air Freight Cost - Plant %s", q.Plant)), "", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.SetTextColor(50, 50, 50)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("  %s  |  Invoice date %s  |  Client %s", q.Month.Label(), q.InvoiceDate(), q.ClientID)), "", 1, "L", true, 0, "")
	if doc.FromCache {
		pdf.SetTextColor(192, 96, 0)
		pdf.CellFormat(0, 6, tr("  Served from cache, fetched "+doc.FetchedAt.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
		pdf.SetTextColor(50, 50, 50)
	}
	pdf.Ln(6)

	for _, v := range categoryViews(doc.Report) {
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(0, 0, 0)
		pdf.Cell(0, 8, tr(v.Title))
		pdf.Ln(9)

		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(58, 169, 159)
		pdf.SetTextColor(255, 255, 255)
		for i, h := range csvHeaders[1:] {
			align := "L"
			if i == len(pdfWidths)-1 {
				align = "R"
			}
			pdf.CellFormat(pdfWidths[i], 7, tr(h), "1", 0, align, true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(50, 50, 50)
		if len(v.Table.Rows) == 0 {
			pdf.CellFormat(sum(pdfWidths), 7, tr("No air freight charged."), "1", 1, "C", false, 0, "")
		}
		for i, r := range v.Table.Rows {
			fill := i%2 == 1
			pdf.SetFillColor(248, 248, 246)
			cells := []string{r.MaterialGroup, r.Material, r.ReasonForAir, r.AirFreightAmount.StringFixed(2)}
			for j, cell := range cells {
				align := "L"
				if j == len(cells)-1 {
					align = "R"
				}
				pdf.CellFormat(pdfWidths[j], 6, tr(truncate(pdf, cell, pdfWidths[j]-2)), "1", 0, align, fill, 0, "")
			}
			pdf.Ln(-1)
		}

		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 225)
		labelWidth := sum(pdfWidths[:len(pdfWidths)-1])
		pdf.CellFormat(labelWidth, 7, tr(totalLabel), "1", 0, "L", true, 0, "")
		pdf.CellFormat(pdfWidths[len(pdfWidths)-1], 7, v.Table.Total.StringFixed(2), "1", 1, "R", true, 0, "")
		pdf.Ln(8)
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 8, tr("Grand total: "+doc.Report.GrandTotal().StringFixed(2)), "", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, tr("Generated "+doc.GeneratedAt.Format("2006-01-02 15:04:05")), "", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing PDF: %w", err)
	}
	return nil
}

// truncate shortens s with "..." until it fits width at the current font.
func truncate(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func sum(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}
