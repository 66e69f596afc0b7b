package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"brokerportal/api/internal/store"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"formatDate": func(t time.Time) string {
		return t.Format("02/01/2006 15:04")
	},
	"formatDatePtr": func(t *time.Time) string {
		if t == nil {
			return "—"
		}
		return t.Format("02/01/2006 15:04")
	},
}).Parse(reportTemplateHTML))

const reportTemplateHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Account.Name}} — Account Activity</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; color: #111827; margin: 0; }
  h1 { font-size: 22px; margin-bottom: 2px; }
  h2 { font-size: 15px; margin-top: 26px; border-bottom: 1px solid #e5e7eb; padding-bottom: 4px; }
  .meta { color: #6b7280; font-size: 12px; }
  table { width: 100%; border-collapse: collapse; font-size: 12px; margin-top: 8px; }
  th { text-align: left; color: #6b7280; font-weight: 600; padding: 4px 8px 4px 0; border-bottom: 1px solid #e5e7eb; }
  td { padding: 5px 8px 5px 0; border-bottom: 1px solid #f3f4f6; vertical-align: top; }
  .badge { display: inline-block; padding: 1px 8px; border-radius: 999px; background: #f3f4f6; font-size: 11px; }
</style>
</head>
<body>
  <h1>{{.Account.Name}}</h1>
  <div class="meta">
    {{.Account.Email}} · <span class="badge">{{.Account.Status}}</span> ·
    Registered {{formatDatePtr .Account.RegisteredAt}} ·
    Last login {{formatDatePtr .Account.LastLoginAt}}
  </div>

  <h2>Policies</h2>
  <table>
    <tr><th>Policy number</th><th>Line</th><th>Status</th></tr>
    {{range .Account.Policies}}
    <tr><td>{{.PolicyNumber}}</td><td>{{.Line}}</td><td>{{.Status}}</td></tr>
    {{else}}
    <tr><td colspan="3">No policies.</td></tr>
    {{end}}
  </table>

  <h2>Documents</h2>
  <table>
    <tr><th>Name</th><th>Type</th><th>Uploaded by</th><th>Created</th><th>Accessed</th></tr>
    {{range .Account.Documents}}
    <tr>
      <td>{{.Name}}</td><td>{{.Type}}</td><td>{{.UploadedBy}}</td>
      <td>{{formatDate .CreatedAt}}</td>
      <td>{{if .Accessed}}{{formatDatePtr .AccessedAt}}{{else}}Never{{end}}</td>
    </tr>
    {{else}}
    <tr><td colspan="5">No documents.</td></tr>
    {{end}}
  </table>

  <h2>Activity</h2>
  <table>
    <tr><th>When</th><th>Event</th><th>Detail</th></tr>
    {{range .Account.Audit}}
    <tr><td>{{formatDate .At}}</td><td>{{.Event}}</td><td>{{.Detail}}</td></tr>
    {{else}}
    <tr><td colspan="3">No activity recorded.</td></tr>
    {{end}}
  </table>

  <div class="meta" style="margin-top:30px;">Generated {{formatDate .GeneratedAt}}</div>
</body>
</html>`

type reportData struct {
	Account     store.CustomerAccount
	GeneratedAt time.Time
}

func renderReportHTML(account store.CustomerAccount) (string, error) {
	var buf bytes.Buffer
	err := reportTemplate.Execute(&buf, reportData{
		Account:     account,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("render report template: %w", err)
	}
	return buf.String(), nil
}
