// Package model defines domain types for freight-cost reports.
package model

import "github.com/shopspring/decimal"

// ReportItem is one top-level element of the safety-sheet response.
type ReportItem struct {
	FreightLogs []FreightLog `json:"freightLogs"`
}

// FreightLog is a node of the nested freight-log tree. The same shape is
// used at every level; only the deepest level carries FreightBorneBy and
// MachineLogs in practice.
type FreightLog struct {
	MaterialGroup  string       `json:"materialGroup,omitempty"`
	ReasonForAir   string       `json:"reasonForAir,omitempty"`
	FreightBorneBy string       `json:"freightBorneBy,omitempty"`
	FreightLogs    []FreightLog `json:"freightLogs,omitempty"`
	MachineLogs    []MachineLog `json:"machineLogs,omitempty"`
}

// MachineLog is the leaf record of actual freight cost on one material.
type MachineLog struct {
	Material         string          `json:"material"`
	AirFreightAmount decimal.Decimal `json:"airFreightAmount"`
}

// Charged reports whether the machine log carries a positive amount.
func (m MachineLog) Charged() bool {
	return m.AirFreightAmount.IsPositive()
}
