package report

import (
	"bytes"
	"html/template"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/cockroachdb/errors"
	"github.com/microcosm-cc/bluemonday"
)

var page = template.Must(template.New("report").Funcs(template.FuncMap{
	"message": Message,
}).Parse(`<article>
<h1>Accessibility report</h1>
{{- if .Title}}<p><strong>Page:</strong> {{.Title}}</p>{{end}}
{{- if .URL}}<p><strong>URL:</strong> <a href="{{.URL}}">{{.URL}}</a></p>{{end}}
<ul>
<li>Elements visited: {{.Stats.Elements}}</li>
<li>Errors: {{.Stats.Errors}}</li>
<li>Warnings: {{.Stats.Warnings}}</li>
</ul>
{{- with .Stats.TopRules}}
<h2>Violations by rule</h2>
<table>
<thead><tr><th>Rule</th><th>Count</th></tr></thead>
<tbody>{{range .}}<tr><td>{{.RuleName}}</td><td>{{.Count}}</td></tr>{{end}}</tbody>
</table>
{{- end}}
{{- with .Violations}}
<h2>Violations</h2>
<table>
<thead><tr><th>Severity</th><th>Rule</th><th>Element</th><th>Message</th></tr></thead>
<tbody>{{range .}}<tr><td>{{.Result.Type}}</td><td>{{.Result.RuleName}}</td><td><code>{{.XPath}}</code></td><td>{{message .Result}}</td></tr>{{end}}</tbody>
</table>
{{- else}}
<p>No violations found.</p>
{{- end}}
{{- with .Failures}}
<h2>Rule failures</h2>
<ul>{{range .}}<li>{{.RuleName}} at <code>{{.XPath}}</code>: {{.Error}}</li>{{end}}</ul>
{{- end}}
</article>`))

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy

	mdOnce sync.Once
	md     *converter.Converter
)

func sanitizer() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()
		policy.RequireNoFollowOnLinks(true)
	})
	return policy
}

func markdownConverter() *converter.Converter {
	mdOnce.Do(func() {
		md = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		)
	})
	return md
}

// HTML renders the report as a sanitised HTML fragment.
func HTML(r *Report) (string, error) {
	var buf bytes.Buffer
	if err := page.Execute(&buf, r); err != nil {
		return "", errors.Wrap(err, "report: render html")
	}
	return sanitizer().Sanitize(buf.String()), nil
}

// Markdown renders the report as Markdown.
func Markdown(r *Report) (string, error) {
	h, err := HTML(r)
	if err != nil {
		return "", err
	}
	out, err := markdownConverter().ConvertString(h)
	if err != nil {
		return "", errors.Wrap(err, "report: render markdown")
	}
	return out, nil
}
