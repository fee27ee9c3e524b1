// Package export writes flattened freight reports as CSV, JSON, YAML, PDF,
// XLSX or HTML files.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theirongolddev/freightdash/internal/model"
	"github.com/theirongolddev/freightdash/internal/pipeline"
)

// Format is an export file format.
type Format string

// Supported export formats.
const (
	CSV  Format = "csv"
	JSON Format = "json"
	YAML Format = "yaml"
	PDF  Format = "pdf"
	XLSX Format = "xlsx"
	HTML Format = "html"
)

// Formats lists every supported format.
var Formats = []Format{CSV, JSON, YAML, PDF, XLSX, HTML}

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("export: unknown format")

// ParseFormat maps a format name (case-insensitive, "yml" and "excel"
// accepted) to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "pdf":
		return PDF, nil
	case "xlsx", "excel":
		return XLSX, nil
	case "html", "htm":
		return HTML, nil
	}
	return "", fmt.Errorf("%w %q (want one of %s)", ErrUnknownFormat, s, formatList())
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case JSON:
		return "application/json"
	case YAML:
		return "application/yaml"
	case PDF:
		return "application/pdf"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case HTML:
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}

// Document is a report plus the metadata written alongside it.
type Document struct {
	Report      *model.Report
	GeneratedAt time.Time
	FetchedAt   time.Time
	FromCache   bool
	// RefreshSeconds adds an auto-refresh header to HTML output when > 0.
	RefreshSeconds int
}

// NewDocument wraps a report for export, stamped with the current time.
func NewDocument(r *model.Report, fetchedAt time.Time, fromCache bool) Document {
	return Document{
		Report:      r,
		GeneratedAt: time.Now(),
		FetchedAt:   fetchedAt,
		FromCache:   fromCache,
	}
}

// BaseName returns the default file base name for the document, e.g.
// "freight_1000_2025-05".
func (d Document) BaseName() string {
	plant := d.Report.Query.Plant
	if plant == "" {
		plant = "all"
	}
	return fmt.Sprintf("freight_%s_%s", sanitizeName(plant), d.Report.Query.Month)
}

// Render writes the document in format f to w.
func Render(w io.Writer, doc Document, f Format) error {
	if doc.Report == nil {
		return errors.New("export: nil report")
	}
	switch f {
	case CSV:
		return writeCSV(w, doc)
	case JSON:
		return writeJSON(w, doc)
	case YAML:
		return writeYAML(w, doc)
	case PDF:
		return writePDF(w, doc)
	case XLSX:
		return writeXLSX(w, doc)
	case HTML:
		return writeHTML(w, doc)
	}
	return fmt.Errorf("%w %q", ErrUnknownFormat, f)
}

// Write renders the document into a timestamped file in dir (the working
// directory when empty) and returns its absolute path.
func Write(doc Document, f Format, dir string) (string, error) {
	path, err := generateFilename(doc.BaseName(), dir, string(f))
	if err != nil {
		return "", err
	}

	//nolint:gosec // output path is chosen by the local user
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s file: %w", strings.ToUpper(string(f)), err)
	}

	if err := Render(file, doc, f); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}

	return filepath.Abs(path)
}

// categoryView bundles what every format renders per category.
type categoryView struct {
	Category model.Category
	Title    string
	Table    *model.CategoryTable
	Groups   []model.GroupSummary
	Share    float64
}

func categoryViews(r *model.Report) []categoryView {
	views := make([]categoryView, 0, len(model.Categories))
	for _, c := range model.Categories {
		t := r.Table(c)
		views = append(views, categoryView{
			Category: c,
			Title:    c.Title(),
			Table:    t,
			Groups:   pipeline.Summarize(t),
			Share:    r.Share(c),
		})
	}
	return views
}

func generateFilename(base, dir, ext string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("could not get current working directory: %w", err)
		}
		dir = cwd
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating output directory %q: %w", dir, err)
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.%s", base, timestamp, ext)
	return filepath.Join(dir, filename), nil
}

func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}

func formatList() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
