package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/freightdash/internal/model"
)

var csvHeaders = []string{"Category", "Material Group", "Material", "Reason for Air", "Air Freight Amount"}

const totalLabel = "Total Air Freight Amount"

func writeCSV(w io.Writer, doc Document) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, v := range categoryViews(doc.Report) {
		for _, r := range v.Table.Rows {
			record := []string{
				string(v.Category),
				r.MaterialGroup,
				r.Material,
				r.ReasonForAir,
				r.AirFreightAmount.StringFixed(2),
			}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("writing CSV row: %w", err)
			}
		}
		if err := writer.Write([]string{string(v.Category), totalLabel, "", "", v.Table.Total.StringFixed(2)}); err != nil {
			return fmt.Errorf("writing CSV total: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// documentDTO is the JSON/YAML shape of an export. Amounts are fixed
// two-decimal strings so they survive round trips exactly.
type documentDTO struct {
	ClientID    string        `json:"clientId" yaml:"client_id"`
	Plant       string        `json:"plant" yaml:"plant"`
	Month       string        `json:"month" yaml:"month"`
	InvoiceDate string        `json:"invoiceDate" yaml:"invoice_date"`
	Type        string        `json:"type" yaml:"type"`
	GeneratedAt time.Time     `json:"generatedAt" yaml:"generated_at"`
	FetchedAt   time.Time     `json:"fetchedAt" yaml:"fetched_at"`
	FromCache   bool          `json:"fromCache" yaml:"from_cache"`
	GrandTotal  string        `json:"grandTotal" yaml:"grand_total"`
	Categories  []categoryDTO `json:"categories" yaml:"categories"`
}

type categoryDTO struct {
	Category string     `json:"category" yaml:"category"`
	Title    string     `json:"title" yaml:"title"`
	Total    string     `json:"total" yaml:"total"`
	Share    float64    `json:"share" yaml:"share"`
	Rows     []rowDTO   `json:"rows" yaml:"rows"`
	Groups   []groupDTO `json:"groups" yaml:"groups"`
}

type rowDTO struct {
	MaterialGroup    string `json:"materialGroup" yaml:"material_group"`
	Material         string `json:"material" yaml:"material"`
	ReasonForAir     string `json:"reasonForAir" yaml:"reason_for_air"`
	AirFreightAmount string `json:"airFreightAmount" yaml:"air_freight_amount"`
}

type groupDTO struct {
	MaterialGroup string `json:"materialGroup" yaml:"material_group"`
	Materials     string `json:"materials" yaml:"materials"`
	ReasonForAir  string `json:"reasonForAir" yaml:"reason_for_air"`
	Rows          int    `json:"rows" yaml:"rows"`
	Amount        string `json:"amount" yaml:"amount"`
}

func toDTO(doc Document) documentDTO {
	q := doc.Report.Query
	out := documentDTO{
		ClientID:    q.ClientID,
		Plant:       q.Plant,
		Month:       q.Month.String(),
		InvoiceDate: q.InvoiceDate(),
		Type:        q.Type,
		GeneratedAt: doc.GeneratedAt.UTC(),
		FetchedAt:   doc.FetchedAt.UTC(),
		FromCache:   doc.FromCache,
		GrandTotal:  doc.Report.GrandTotal().StringFixed(2),
	}

	for _, v := range categoryViews(doc.Report) {
		c := categoryDTO{
			Category: string(v.Category),
			Title:    v.Title,
			Total:    v.Table.Total.StringFixed(2),
			Share:    v.Share,
			Rows:     make([]rowDTO, 0, len(v.Table.Rows)),
			Groups:   make([]groupDTO, 0, len(v.Groups)),
		}
		for _, r := range v.Table.Rows {
			c.Rows = append(c.Rows, rowFromLeaf(r))
		}
		for _, g := range v.Groups {
			c.Groups = append(c.Groups, groupDTO{
				MaterialGroup: g.MaterialGroup,
				Materials:     g.Materials,
				ReasonForAir:  g.ReasonForAir,
				Rows:          g.Rows,
				Amount:        g.Amount.StringFixed(2),
			})
		}
		out.Categories = append(out.Categories, c)
	}
	return out
}

func rowFromLeaf(r model.LeafRow) rowDTO {
	return rowDTO{
		MaterialGroup:    r.MaterialGroup,
		Material:         r.Material,
		ReasonForAir:     r.ReasonForAir,
		AirFreightAmount: r.AirFreightAmount.StringFixed(2),
	}
}

func writeJSON(w io.Writer, doc Document) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(toDTO(doc)); err != nil {
		return fmt.Errorf("encoding JSON data: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, doc Document) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(toDTO(doc)); err != nil {
		return fmt.Errorf("encoding YAML data: %w", err)
	}
	return encoder.Close()
}
