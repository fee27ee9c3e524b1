package model

import "github.com/shopspring/decimal"

// Category is the borne-by classification of a deepest freight log.
type Category string

// The two recognized borne-by categories. Anything else is dropped.
const (
	VictoraAccount  Category = "Victora Account"
	CustomerAccount Category = "Customer Account"
)

// Categories lists the recognized categories in display order.
var Categories = []Category{VictoraAccount, CustomerAccount}

// ParseCategory maps a freightBorneBy value to a Category.
// The match is exact, as the endpoint returns these labels verbatim.
func ParseCategory(borneBy string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == borneBy {
			return c, true
		}
	}
	return "", false
}

// Title returns the report heading shown above the category's table.
func (c Category) Title() string {
	switch c {
	case VictoraAccount:
		return "Detail Report- Freight Account-Plant"
	case CustomerAccount:
		return "Detail Report- Freight Account-Customer Account"
	default:
		return string(c)
	}
}

// Short returns a compact label for tabs and narrow columns.
func (c Category) Short() string {
	switch c {
	case VictoraAccount:
		return "Plant"
	case CustomerAccount:
		return "Customer"
	default:
		return string(c)
	}
}

// LeafRow is one rendered table row, traced to exactly one machine log.
type LeafRow struct {
	MaterialGroup    string          `json:"materialGroup" yaml:"material_group"`
	Material         string          `json:"material" yaml:"material"`
	ReasonForAir     string          `json:"reasonForAir" yaml:"reason_for_air"`
	AirFreightAmount decimal.Decimal `json:"airFreightAmount" yaml:"air_freight_amount"`
}

// CategoryTable holds the ordered rows of one category plus their total.
type CategoryTable struct {
	Category Category        `json:"category" yaml:"category"`
	Rows     []LeafRow       `json:"rows" yaml:"rows"`
	Total    decimal.Decimal `json:"total" yaml:"total"`
}

// GroupSummary collapses the rows of one material group within a category.
type GroupSummary struct {
	MaterialGroup string          `json:"materialGroup" yaml:"material_group"`
	Materials     string          `json:"materials" yaml:"materials"`
	ReasonForAir  string          `json:"reasonForAir" yaml:"reason_for_air"`
	Rows          int             `json:"rows" yaml:"rows"`
	Amount        decimal.Decimal `json:"amount" yaml:"amount"`
}

// Report is the flattened result for one query.
type Report struct {
	Query  Query                       `json:"query" yaml:"query"`
	Tables map[Category]*CategoryTable `json:"tables" yaml:"tables"`
}

// Table returns the table for c, never nil.
func (r *Report) Table(c Category) *CategoryTable {
	if r == nil || r.Tables == nil {
		return &CategoryTable{Category: c}
	}
	if t, ok := r.Tables[c]; ok {
		return t
	}
	return &CategoryTable{Category: c}
}

// GrandTotal sums the totals of all categories.
func (r *Report) GrandTotal() decimal.Decimal {
	total := decimal.Zero
	for _, c := range Categories {
		total = total.Add(r.Table(c).Total)
	}
	return total
}

// RowCount returns the number of rows across all categories.
func (r *Report) RowCount() int {
	n := 0
	for _, c := range Categories {
		n += len(r.Table(c).Rows)
	}
	return n
}

// Share returns the category's fraction of the grand total in 0.0-1.0.
func (r *Report) Share(c Category) float64 {
	grand := r.GrandTotal()
	if !grand.IsPositive() {
		return 0
	}
	return r.Table(c).Total.Div(grand).InexactFloat64()
}
