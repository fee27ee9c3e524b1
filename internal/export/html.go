package export

import (
	"fmt"
	"html/template"
	"io"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/freightdash/internal/cli"
)

var pageTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"amount":  func(d decimal.Decimal) string { return cli.FormatAmount(d) },
	"percent": cli.FormatPercent,
	"stamp":   func(d Document) string { return d.GeneratedAt.Format("2006-01-02 15:04:05") },
}).Parse(pageHTML))

type pageData struct {
	Doc        Document
	Label      string
	Plant      string
	Invoice    string
	Categories []categoryView
	GrandTotal decimal.Decimal
	TotalLabel string
}

func writeHTML(w io.Writer, doc Document) error {
	q := doc.Report.Query
	data := pageData{
		Doc:        doc,
		Label:      q.Month.Label(),
		Plant:      q.Plant,
		Invoice:    q.InvoiceDate(),
		Categories: categoryViews(doc.Report),
		GrandTotal: doc.Report.GrandTotal(),
		TotalLabel: totalLabel,
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("rendering HTML: %w", err)
	}
	return nil
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
{{- if gt .Doc.RefreshSeconds 0}}
<meta http-equiv="refresh" content="{{.Doc.RefreshSeconds}}">
{{- end}}
<title>Air Freight - Plant {{.Plant}} - {{.Label}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #1C1B1A; background: #FFFCF0; }
h1 { font-size: 1.4rem; margin-bottom: .2rem; }
.meta { color: #6F6E69; margin-bottom: 1.5rem; }
.stale { color: #DA702C; }
.table-wrapper { margin-bottom: 2.5rem; }
h3.Thead { font-size: 1.1rem; color: #24837B; }
table { border-collapse: collapse; width: 100%; }
th.headtab { background: #3AA99F; color: #fff; text-align: left; padding: .4rem .6rem; }
td { border: 1px solid #E6E4D9; padding: .35rem .6rem; }
tbody tr:nth-child(even) { background: #F2F0E5; }
td.num, th.num { text-align: right; }
.total-amount { margin-top: .5rem; text-align: right; }
.amount-value { font-weight: 600; color: #66800B; }
.empty { color: #6F6E69; font-style: italic; }
footer { color: #6F6E69; font-size: .8rem; }
</style>
</head>
<body>
<h1>Air Freight Cost - Plant {{.Plant}}</h1>
<div class="meta">{{.Label}} &middot; invoice date {{.Invoice}} &middot; grand total <strong>{{amount .GrandTotal}}</strong>
{{- if .Doc.FromCache}} <span class="stale">(served from cache)</span>{{end}}</div>
{{range .Categories}}
<div class="table-wrapper">
  <h3 class="Thead">{{.Title}} <small>({{percent .Share}})</small></h3>
  {{- if .Table.Rows}}
  <table>
    <thead>
      <tr>
        <th class="headtab">Material Group</th>
        <th class="headtab">Material</th>
        <th class="headtab">Reason for Air</th>
        <th class="headtab num">Air Freight Amount</th>
      </tr>
    </thead>
    <tbody>
      {{- range .Table.Rows}}
      <tr>
        <td>{{.MaterialGroup}}</td>
        <td>{{.Material}}</td>
        <td>{{.ReasonForAir}}</td>
        <td class="num">{{amount .AirFreightAmount}}</td>
      </tr>
      {{- end}}
    </tbody>
  </table>
  {{- else}}
  <p class="empty">No air freight charged.</p>
  {{- end}}
  <div class="total-amount">
    <strong>{{$.TotalLabel}}: </strong>
    <span class="amount-value">{{amount .Table.Total}}</span>
  </div>
</div>
{{end}}
<footer>Generated {{stamp .Doc}}</footer>
</body>
</html>
`
