// Package pipeline turns fetched freight reports into flat category tables.
package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/freightdash/internal/model"
)

// NoReason is shown when no log in the chain explains the air shipment.
const NoReason = "-"

// Flatten walks the three-level freight-log tree of every report item and
// groups the charged machine logs of each deepest log by borne-by category.
// Both recognized categories are always present in the result.
func Flatten(items []model.ReportItem) *model.Report {
	report := &model.Report{Tables: make(map[model.Category]*model.CategoryTable, len(model.Categories))}
	for _, c := range model.Categories {
		report.Tables[c] = &model.CategoryTable{Category: c, Total: decimal.Zero}
	}

	for i := range items {
		for j := range items[i].FreightLogs {
			top := &items[i].FreightLogs[j]
			for k := range top.FreightLogs {
				inner := &top.FreightLogs[k]
				for m := range inner.FreightLogs {
					deepest := &inner.FreightLogs[m]

					category, ok := model.ParseCategory(deepest.FreightBorneBy)
					if !ok {
						continue
					}
					table := report.Tables[category]
					for _, row := range deepestRows(deepest, inner, top) {
						table.Rows = append(table.Rows, row)
						table.Total = table.Total.Add(row.AirFreightAmount)
					}
				}
			}
		}
	}

	return report
}

// deepestRows emits one row per charged machine log of the deepest log.
func deepestRows(deepest, inner, top *model.FreightLog) []model.LeafRow {
	if len(deepest.MachineLogs) == 0 {
		return nil
	}

	var rows []model.LeafRow
	reason := ""
	for _, ml := range deepest.MachineLogs {
		if !ml.Charged() {
			continue
		}
		if reason == "" {
			reason = resolveReason(deepest.MaterialGroup, deepest, inner, top)
		}
		rows = append(rows, model.LeafRow{
			MaterialGroup:    deepest.MaterialGroup,
			Material:         ml.Material,
			ReasonForAir:     reason,
			AirFreightAmount: ml.AirFreightAmount,
		})
	}
	return rows
}

// resolveReason finds the reason for air shipment of a material group.
// The chain is checked nearest first (deepest, inner, top), then the whole
// top-level subtree depth-first so a sibling carrying the reason still
// counts. Falls back to NoReason.
func resolveReason(group string, deepest, inner, top *model.FreightLog) string {
	for _, l := range []*model.FreightLog{deepest, inner, top} {
		if explains(l, group) {
			return l.ReasonForAir
		}
	}
	if reason, ok := searchReason(top, group); ok {
		return reason
	}
	return NoReason
}

// searchReason is a pre-order depth-first search over l's subtree.
func searchReason(l *model.FreightLog, group string) (string, bool) {
	if explains(l, group) {
		return l.ReasonForAir, true
	}
	for i := range l.FreightLogs {
		if reason, ok := searchReason(&l.FreightLogs[i], group); ok {
			return reason, true
		}
	}
	return "", false
}

func explains(l *model.FreightLog, group string) bool {
	return l.MaterialGroup == group && l.ReasonForAir != ""
}
