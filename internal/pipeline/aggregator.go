package pipeline

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/freightdash/internal/model"
)

// Summarize collapses a category table into one entry per material group,
// ordered by first appearance. Materials are joined with ", " in row order
// without duplicates.
func Summarize(table *model.CategoryTable) []model.GroupSummary {
	if table == nil || len(table.Rows) == 0 {
		return nil
	}

	index := make(map[string]int)
	seen := make(map[string]map[string]struct{})
	var groups []model.GroupSummary
	var materials [][]string

	for _, row := range table.Rows {
		idx, ok := index[row.MaterialGroup]
		if !ok {
			idx = len(groups)
			index[row.MaterialGroup] = idx
			seen[row.MaterialGroup] = make(map[string]struct{})
			groups = append(groups, model.GroupSummary{
				MaterialGroup: row.MaterialGroup,
				ReasonForAir:  row.ReasonForAir,
				Amount:        decimal.Zero,
			})
			materials = append(materials, nil)
		}

		g := &groups[idx]
		g.Rows++
		g.Amount = g.Amount.Add(row.AirFreightAmount)
		if g.ReasonForAir == NoReason && row.ReasonForAir != NoReason {
			g.ReasonForAir = row.ReasonForAir
		}
		if _, dup := seen[row.MaterialGroup][row.Material]; !dup && row.Material != "" {
			seen[row.MaterialGroup][row.Material] = struct{}{}
			materials[idx] = append(materials[idx], row.Material)
		}
	}

	for i := range groups {
		if len(materials[i]) == 0 {
			groups[i].Materials = NoReason
			continue
		}
		groups[i].Materials = strings.Join(materials[i], ", ")
	}
	return groups
}

// TopGroups returns the n material groups with the largest amount across
// all categories, largest first. n <= 0 returns all of them.
func TopGroups(report *model.Report, n int) []model.GroupSummary {
	byGroup := make(map[string]*model.GroupSummary)
	var order []string
	for _, c := range model.Categories {
		for _, g := range Summarize(report.Table(c)) {
			agg, ok := byGroup[g.MaterialGroup]
			if !ok {
				gc := g
				byGroup[g.MaterialGroup] = &gc
				order = append(order, g.MaterialGroup)
				continue
			}
			agg.Rows += g.Rows
			agg.Amount = agg.Amount.Add(g.Amount)
			agg.Materials = mergeMaterials(agg.Materials, g.Materials)
		}
	}

	result := make([]model.GroupSummary, 0, len(order))
	for _, name := range order {
		result = append(result, *byGroup[name])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Amount.GreaterThan(result[j].Amount)
	})
	if n > 0 && len(result) > n {
		result = result[:n]
	}
	return result
}

// FilterByMaterialGroup returns a copy of the report keeping only rows whose
// material group contains the substring (case-insensitive). Totals are
// recomputed from the kept rows.
func FilterByMaterialGroup(report *model.Report, group string) *model.Report {
	if group == "" || report == nil {
		return report
	}

	out := &model.Report{Query: report.Query, Tables: make(map[model.Category]*model.CategoryTable)}
	for _, c := range model.Categories {
		src := report.Table(c)
		dst := &model.CategoryTable{Category: c, Total: decimal.Zero}
		for _, row := range src.Rows {
			if containsIgnoreCase(row.MaterialGroup, group) {
				dst.Rows = append(dst.Rows, row)
				dst.Total = dst.Total.Add(row.AirFreightAmount)
			}
		}
		out.Tables[c] = dst
	}
	return out
}

func mergeMaterials(a, b string) string {
	if a == NoReason {
		return b
	}
	if b == NoReason {
		return a
	}
	have := make(map[string]struct{})
	parts := strings.Split(a, ", ")
	for _, p := range parts {
		have[p] = struct{}{}
	}
	for _, p := range strings.Split(b, ", ") {
		if _, ok := have[p]; !ok {
			parts = append(parts, p)
			have[p] = struct{}{}
		}
	}
	return strings.Join(parts, ", ")
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
