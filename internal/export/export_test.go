package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/freightdash/internal/model"
)

func testDoc() Document {
	victora := &model.CategoryTable{
		Category: model.VictoraAccount,
		Rows: []model.LeafRow{
			{MaterialGroup: "Bearings", Material: "B-1", ReasonForAir: "Line stop", AirFreightAmount: decimal.RequireFromString("1200.5")},
			{MaterialGroup: "Seals", Material: "=HYPERLINK()", ReasonForAir: "-", AirFreightAmount: decimal.RequireFromString("99.5")},
		},
		Total: decimal.RequireFromString("1300"),
	}
	customer := &model.CategoryTable{Category: model.CustomerAccount, Total: decimal.Zero}

	r := &model.Report{
		Query: model.Query{ClientID: "AACCS3034M", Month: model.Month{Year: 2025, Month: 5}, Type: "daily", Plant: "1000"},
		Tables: map[model.Category]*model.CategoryTable{
			model.VictoraAccount:  victora,
			model.CustomerAccount: customer,
		},
	}
	return Document{
		Report:      r,
		GeneratedAt: time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		FetchedAt:   time.Date(2025, 6, 1, 9, 29, 0, 0, time.UTC),
	}
}

func render(t *testing.T, f Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Render(&buf, testDoc(), f); err != nil {
		t.Fatalf("Render(%s): %v", f, err)
	}
	return buf.Bytes()
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"csv", CSV}, {"JSON", JSON}, {"yml", YAML}, {"pdf", PDF}, {"excel", XLSX}, {" html ", HTML},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseFormat("docx"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("err = %v, want ErrUnknownFormat", err)
	}
}

func TestRenderCSV(t *testing.T) {
	records, err := csv.NewReader(bytes.NewReader(render(t, CSV))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// header + 2 victora rows + victora total + customer total
	if len(records) != 5 {
		t.Fatalf("records = %d, want 5: %v", len(records), records)
	}
	if records[1][4] != "1200.50" {
		t.Errorf("amount = %q, want 1200.50", records[1][4])
	}
	if records[3][1] != totalLabel || records[3][4] != "1300.00" {
		t.Errorf("victora total = %v", records[3])
	}
	if records[4][0] != "Customer Account" || records[4][4] != "0.00" {
		t.Errorf("customer total = %v", records[4])
	}
}

func TestRenderJSON(t *testing.T) {
	var got documentDTO
	if err := json.Unmarshal(render(t, JSON), &got); err != nil {
		t.Fatal(err)
	}
	if got.InvoiceDate != "2025-05-31" || got.GrandTotal != "1300.00" {
		t.Fatalf("InvoiceDate=%s GrandTotal=%s", got.InvoiceDate, got.GrandTotal)
	}
	if len(got.Categories) != 2 || got.Categories[0].Title != "Detail Report- Freight Account-Plant" {
		t.Fatalf("categories = %+v", got.Categories)
	}
	if len(got.Categories[0].Groups) != 2 || got.Categories[0].Groups[0].Materials != "B-1" {
		t.Fatalf("groups = %+v", got.Categories[0].Groups)
	}
	if got.Categories[1].Rows == nil {
		t.Fatal("empty category should encode rows as [] not null")
	}
}

func TestRenderYAML(t *testing.T) {
	var got documentDTO
	if err := yaml.Unmarshal(render(t, YAML), &got); err != nil {
		t.Fatal(err)
	}
	if got.Plant != "1000" || got.Month != "2025-05" {
		t.Fatalf("Plant=%s Month=%s", got.Plant, got.Month)
	}
	if got.Categories[0].Rows[1].AirFreightAmount != "99.50" {
		t.Fatalf("amount = %q", got.Categories[0].Rows[1].AirFreightAmount)
	}
}

func TestRenderPDF(t *testing.T) {
	out := render(t, PDF)
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output does not look like a PDF: %q", out[:min(len(out), 16)])
	}
}

func TestRenderXLSX(t *testing.T) {
	f, err := excelize.OpenReader(bytes.NewReader(render(t, XLSX)))
	if err != nil {
		t.Fatalf("result is not valid Excel: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Plant" || sheets[1] != "Customer" {
		t.Fatalf("sheets = %v", sheets)
	}
	title, _ := f.GetCellValue("Plant", "A1")
	if title != "Detail Report- Freight Account-Plant" {
		t.Errorf("title = %q", title)
	}
	material, _ := f.GetCellValue("Plant", "B6")
	if material != "'=HYPERLINK()" {
		t.Errorf("formula-like cell = %q, want quoted", material)
	}
	reason, _ := f.GetCellValue("Plant", "C6")
	if reason != "-" {
		t.Errorf("placeholder reason = %q, want -", reason)
	}
	total, _ := f.GetCellValue("Plant", "A7")
	if total != totalLabel {
		t.Errorf("total label = %q", total)
	}
}

func TestRenderHTML(t *testing.T) {
	doc := testDoc()
	doc.Report.Tables[model.VictoraAccount].Rows[0].ReasonForAir = "<script>alert(1)</script>"
	doc.RefreshSeconds = 60

	var buf bytes.Buffer
	if err := Render(&buf, doc, HTML); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Detail Report- Freight Account-Plant",
		"Detail Report- Freight Account-Customer Account",
		"1,200.50",
		"Total Air Freight Amount",
		"No air freight charged.",
		`content="60"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
	if strings.Contains(out, "<script>alert") {
		t.Error("reason was not escaped")
	}
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := Write(testDoc(), CSV, dir)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "freight_1000_2025-05_") || filepath.Ext(path) != ".csv" {
		t.Fatalf("path = %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
}

func TestRender_NilReport(t *testing.T) {
	if err := Render(&bytes.Buffer{}, Document{}, CSV); err == nil {
		t.Fatal("nil report should fail")
	}
}
