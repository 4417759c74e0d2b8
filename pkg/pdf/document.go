// Package pdf renders proposal documents to PDF with headless Chrome.
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// Document is the printable form of a proposal.
type Document struct {
	Title    string
	Subtitle string
	Meta     []MetaField
	Sections []Section
	Footer   string
}

// MetaField is a label/value pair printed above the sections.
type MetaField struct {
	Label string
	Value string
}

// Section is one proposal section split into highlightable segments.
type Section struct {
	Label    string
	Segments []Segment
}

// Segment is a run of text, flagged when it falls inside the similarity highlight.
type Segment struct {
	Text    string
	Flagged bool
}

var documentTemplate = template.Must(template.New("proposal").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: "Times New Roman", serif; font-size: 12pt; line-height: 1.5; color: #111; }
  h1 { font-size: 18pt; margin-bottom: 0; }
  h2 { font-size: 13pt; margin-top: 18pt; border-bottom: 1px solid #999; }
  .subtitle { color: #555; margin-top: 2pt; }
  table.meta { border-collapse: collapse; margin-top: 12pt; }
  table.meta td { padding: 2pt 10pt 2pt 0; vertical-align: top; }
  table.meta td.label { font-weight: bold; }
  mark { background: #ffe08a; }
  .empty { color: #888; font-style: italic; }
  footer { margin-top: 24pt; font-size: 9pt; color: #666; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{if .Subtitle}}<p class="subtitle">{{.Subtitle}}</p>{{end}}
<table class="meta">
{{range .Meta}}<tr><td class="label">{{.Label}}</td><td>{{.Value}}</td></tr>
{{end}}</table>
{{range .Sections}}<h2>{{.Label}}</h2>
<p>{{if .Segments}}{{range .Segments}}{{if .Flagged}}<mark>{{.Text}}</mark>{{else}}{{.Text}}{{end}}{{end}}{{else}}<span class="empty">Not provided</span>{{end}}</p>
{{end}}
{{if .Footer}}<footer>{{.Footer}}</footer>{{end}}
</body>
</html>
`))

// HTML renders the document to a standalone HTML page.
func HTML(doc Document) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("render proposal html: %w", err)
	}
	return buf.String(), nil
}

// Filename derives a download-safe file name from a title.
func Filename(title string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}

	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "proposal"
	}
	if len(name) > 80 {
		name = name[:80]
	}
	return name + ".pdf"
}
