package config

import (
	"sort"
	"strings"
)

// PlantInfo is one selectable plant in the dashboard's plant picker.
type PlantInfo struct {
	Code string
	Name string
}

// Label returns "CODE Name", or just the code when no name is configured.
func (p PlantInfo) Label() string {
	if p.Name == "" {
		return p.Code
	}
	return p.Code + " " + p.Name
}

// Plants returns the plant picker list: the default plant first, then the
// configured plants in order, then any plant that only has a name entry.
// Blank and duplicate codes are skipped.
func Plants(cfg Config) []PlantInfo {
	seen := make(map[string]bool)
	var out []PlantInfo
	add := func(code string) {
		code = strings.TrimSpace(code)
		if code == "" || seen[code] {
			return
		}
		seen[code] = true
		out = append(out, PlantInfo{Code: code, Name: cfg.General.PlantNames[code]})
	}

	add(cfg.General.DefaultPlant)
	for _, p := range cfg.General.Plants {
		add(p)
	}

	var named []string
	for code := range cfg.General.PlantNames {
		named = append(named, code)
	}
	sort.Strings(named)
	for _, code := range named {
		add(code)
	}
	return out
}

// NextPlant returns the plant after current in the picker list, wrapping.
// An unknown current selects the first plant.
func NextPlant(plants []PlantInfo, current string) string {
	if len(plants) == 0 {
		return current
	}
	for i, p := range plants {
		if p.Code == current {
			return plants[(i+1)%len(plants)].Code
		}
	}
	return plants[0].Code
}
