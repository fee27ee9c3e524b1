package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

var xlsxColumns = []string{"A", "B", "C", "D"}

type xlsxStyles struct {
	title, subtitle, header, data, amount, totalLabel, totalValue int
}

func writeXLSX(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	styles, err := newXLSXStyles(f)
	if err != nil {
		return err
	}

	for i, v := range categoryViews(doc.Report) {
		sheet := v.Category.Short()
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return fmt.Errorf("set sheet name: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("new sheet %s: %w", sheet, err)
		}
		if err := writeCategorySheet(f, sheet, doc, v, styles); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write excel: %w", err)
	}
	return nil
}

func writeCategorySheet(f *excelize.File, sheet string, doc Document, v categoryView, st xlsxStyles) error {
	widths := []float64{24, 22, 40, 20}
	for i, col := range xlsxColumns {
		if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
			return fmt.Errorf("set col width %s: %w", col, err)
		}
	}
	lastCol := xlsxColumns[len(xlsxColumns)-1]
	q := doc.Report.Query

	if err := f.MergeCell(sheet, "A1", lastCol+"1"); err != nil {
		return fmt.Errorf("merge title: %w", err)
	}
	_ = f.SetCellValue(sheet, "A1", v.Title)
	_ = f.SetCellStyle(sheet, "A1", lastCol+"1", st.title)

	if err := f.MergeCell(sheet, "A2", lastCol+"2"); err != nil {
		return fmt.Errorf("merge subtitle: %w", err)
	}
	_ = f.SetCellValue(sheet, "A2", fmt.Sprintf("Plant %s, %s (invoice date %s)", sanitizeExcelCell(q.Plant), q.Month.Label(), q.InvoiceDate()))
	_ = f.SetCellStyle(sheet, "A2", lastCol+"2", st.subtitle)

	for i, h := range csvHeaders[1:] {
		_ = f.SetCellValue(sheet, fmt.Sprintf("%s4", xlsxColumns[i]), h)
	}
	_ = f.SetCellStyle(sheet, "A4", lastCol+"4", st.header)

	row := 5
	for _, r := range v.Table.Rows {
		rs := fmt.Sprintf("%d", row)
		_ = f.SetCellValue(sheet, "A"+rs, sanitizeExcelCell(r.MaterialGroup))
		_ = f.SetCellValue(sheet, "B"+rs, sanitizeExcelCell(r.Material))
		_ = f.SetCellValue(sheet, "C"+rs, sanitizeExcelCell(r.ReasonForAir))
		_ = f.SetCellValue(sheet, "D"+rs, r.AirFreightAmount.InexactFloat64())
		_ = f.SetCellStyle(sheet, "A"+rs, "C"+rs, st.data)
		_ = f.SetCellStyle(sheet, "D"+rs, "D"+rs, st.amount)
		row++
	}

	rs := fmt.Sprintf("%d", row)
	if err := f.MergeCell(sheet, "A"+rs, "C"+rs); err != nil {
		return fmt.Errorf("merge total: %w", err)
	}
	_ = f.SetCellValue(sheet, "A"+rs, totalLabel)
	_ = f.SetCellStyle(sheet, "A"+rs, "C"+rs, st.totalLabel)
	_ = f.SetCellValue(sheet, "D"+rs, v.Table.Total.InexactFloat64())
	_ = f.SetCellStyle(sheet, "D"+rs, "D"+rs, st.totalValue)

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      4,
		TopLeftCell: "A5",
		ActivePane:  "bottomLeft",
	})
}

func newXLSXStyles(f *excelize.File) (xlsxStyles, error) {
	var st xlsxStyles
	var err error
	amountFmt := "#,##0.00"

	if st.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	}); err != nil {
		return st, fmt.Errorf("create title style: %w", err)
	}
	if st.subtitle, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 10, Color: "#6F6E69"},
	}); err != nil {
		return st, fmt.Errorf("create subtitle style: %w", err)
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#3AA99F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	}); err != nil {
		return st, fmt.Errorf("create header style: %w", err)
	}
	if st.data, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 10},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		Border:    thinBorders(),
	}); err != nil {
		return st, fmt.Errorf("create data style: %w", err)
	}
	if st.amount, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 10},
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       thinBorders(),
		CustomNumFmt: &amountFmt,
	}); err != nil {
		return st, fmt.Errorf("create amount style: %w", err)
	}
	if st.totalLabel, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#E6E6E1"}, Pattern: 1},
		Border: thinBorders(),
	}); err != nil {
		return st, fmt.Errorf("create total label style: %w", err)
	}
	if st.totalValue, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true, Size: 11},
		Fill:         excelize.Fill{Type: "pattern", Color: []string{"#E6E6E1"}, Pattern: 1},
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       thinBorders(),
		CustomNumFmt: &amountFmt,
	}); err != nil {
		return st, fmt.Errorf("create total value style: %w", err)
	}
	return st, nil
}

// sanitizeExcelCell prefixes values Excel would treat as formulas. A lone
// character such as the "-" placeholder is left alone.
func sanitizeExcelCell(s string) string {
	if len(s) < 2 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#BBBBBB", Style: 1}
	}
	return borders
}
