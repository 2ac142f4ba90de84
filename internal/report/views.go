package report

import (
	"fmt"
	htmltemplate "html/template"
	"io"
	"strings"
	texttemplate "text/template"
	"time"
)

var funcs = map[string]any{
	"date":     func(t time.Time) string { return t.Format("2006-01-02") },
	"datetime": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
	"cell":     mdCell,
	"fallback": orDefault,
}

// mdCell keeps a value on one table row.
func mdCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

var markdownTmpl = texttemplate.Must(texttemplate.New("md").Funcs(funcs).Parse(
	`# 🛒 Scraper Results

**Last Updated:** {{ .Updated }}

| Date | Task | Item | Price | Link | Reasoning |
|---|---|---|---|---|---|
{{ range .Entries -}}
| {{ date .Timestamp }} | {{ cell (fallback .Task "Unknown") }} | {{ cell (fallback .ItemName "N/A") }} | {{ cell (fallback .Price "N/A") }} | [View]({{ fallback .URL "#" }}) | {{ cell .Reasoning }} |
{{ end }}`))

var htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Funcs(htmltemplate.FuncMap(funcs)).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Scraper Results</title>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/@picocss/pico@1/css/pico.min.css">
    <style>
        body { padding: 20px; }
        .badge { background: #333; color: #fff; padding: 4px 8px; border-radius: 4px; font-size: 0.8em; }
    </style>
</head>
<body>
    <main class="container">
        <h1>🛒 Scraper Hits</h1>
        <p>Latest found items from agentic scraping tasks.</p>
        <figure>
            <table role="grid">
                <thead>
                    <tr>
                        <th>Date</th>
                        <th>Task</th>
                        <th>Item</th>
                        <th>Price</th>
                        <th>Reasoning</th>
                        <th>Link</th>
                    </tr>
                </thead>
                <tbody>
{{- range . }}
                    <tr>
                        <td>{{ datetime .Timestamp }}</td>
                        <td><span class="badge">{{ fallback .Task "Unknown" }}</span></td>
                        <td>{{ .ItemName }}</td>
                        <td><strong>{{ .Price }}</strong></td>
                        <td>{{ .Reasoning }}</td>
                        <td><a href="{{ .URL }}" target="_blank" role="button">Open</a></td>
                    </tr>
{{- end }}
                </tbody>
            </table>
        </figure>
    </main>
</body>
</html>
`))

func renderMarkdown(w io.Writer, entries []Entry, updated time.Time) error {
	err := markdownTmpl.Execute(w, struct {
		Updated string
		Entries []Entry
	}{
		Updated: updated.Format("2006-01-02 15:04:05"),
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	return nil
}

func renderHTML(w io.Writer, entries []Entry) error {
	if err := htmlTmpl.Execute(w, entries); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}
