package delivery

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"

	"github.com/totalaudiopromo/intel-export/internal/model"
)

// Email is a rendered notification.
type Email struct {
	To      string
	Subject string
	HTML    string
}

var (
	messagePolicyOnce sync.Once
	messagePolicy     *bluemonday.Policy
)

// customMessagePolicy allows basic formatting and links in the free-text
// message a sender attaches to an export.
func customMessagePolicy() *bluemonday.Policy {
	messagePolicyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowURLSchemes("http", "https", "mailto")
		p.RequireParseableURLs(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		messagePolicy = p
	})
	return messagePolicy
}

// Subject returns the e-mail subject for a notification.
func Subject(n model.Notification) string {
	company := n.WhiteLabel.CompanyName
	if company == "" {
		company = "Audio Intel"
	}
	switch n.Kind {
	case model.KindContacts:
		return fmt.Sprintf("%s - Contact Export (%d contacts)", company, n.ItemCount)
	case model.KindAnalytics:
		return company + " - Analytics Report"
	case model.KindSearchResults:
		return company + " - Search Results Export"
	case model.KindAgentReport:
		return company + " - AI Agent Report"
	}
	return company + " - Export"
}

var summaries = map[model.Kind]string{
	model.KindContacts:      "Your contact export with %d enriched contacts is ready.",
	model.KindAnalytics:     "Your analytics report is ready.",
	model.KindSearchResults: "Your search results export with %d results is ready.",
	model.KindAgentReport:   "Your AI agent report is ready.",
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>{{.Subject}}</title></head>
<body style="margin:0;padding:0;background:#f5f7fa;font-family:Helvetica,Arial,sans-serif;color:#212529">
<table role="presentation" width="100%" cellpadding="0" cellspacing="0"><tr><td align="center">
<table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background:#ffffff">
<tr><td style="background:{{.Color}};padding:28px 24px;color:#ffffff">
{{if .LogoURL}}<img src="{{.LogoURL}}" alt="{{.Company}}" height="32" style="display:block;margin-bottom:8px">{{end}}
<div style="font-size:22px;font-weight:bold">{{.Company}}</div>
</td></tr>
<tr><td style="height:3px;background:#ffc107"></td></tr>
<tr><td style="padding:28px 24px;font-size:15px;line-height:1.6">
<p>Hi{{if .User}} {{.User}}{{end}},</p>
<p>{{.Summary}}</p>
{{if .Message}}<div style="border-left:3px solid {{.Color}};padding:8px 14px;margin:18px 0;background:#f5f7fa">{{.Message}}</div>{{end}}
{{if .DownloadURL}}<p style="margin:26px 0"><a href="{{.DownloadURL}}" style="background:{{.Color}};color:#ffffff;padding:12px 22px;text-decoration:none;font-weight:bold">Download {{.Filename}}</a></p>
{{else}}<p>The file {{.Filename}} has been generated and is available from your dashboard.</p>{{end}}
</td></tr>
<tr><td style="padding:18px 24px;font-size:12px;color:#6c757d;border-top:1px solid #dee2e6">Sent by {{.Company}}</td></tr>
</table>
</td></tr></table>
</body>
</html>
`))

type emailView struct {
	Subject     string
	Company     string
	LogoURL     string
	Color       template.CSS
	User        string
	Summary     string
	Message     template.HTML
	DownloadURL string
	Filename    string
}

// RenderEmail renders the subject and HTML body for a notification. The
// custom message is sanitized before it is embedded.
func RenderEmail(n model.Notification) (Email, error) {
	summary := summaries[n.Kind]
	if strings.Contains(summary, "%d") {
		summary = fmt.Sprintf(summary, n.ItemCount)
	}
	if summary == "" {
		summary = "Your export is ready."
	}

	view := emailView{
		Subject:     Subject(n),
		Company:     n.WhiteLabel.CompanyName,
		LogoURL:     n.WhiteLabel.LogoURL,
		Color:       template.CSS(safeColor(n.WhiteLabel.PrimaryColor)),
		User:        n.UserLabel,
		Summary:     summary,
		DownloadURL: n.DownloadURL,
		Filename:    n.Filename,
	}
	if view.Company == "" {
		view.Company = "Audio Intel"
	}
	if msg := strings.TrimSpace(n.CustomMessage); msg != "" {
		clean := customMessagePolicy().Sanitize(strings.ReplaceAll(msg, "\n", "<br>"))
		view.Message = template.HTML(clean) //nolint:gosec // sanitized above
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, view); err != nil {
		return Email{}, eris.Wrap(err, "delivery: render email")
	}
	return Email{To: n.RecipientEmail, Subject: view.Subject, HTML: buf.String()}, nil
}

// safeColor accepts #RGB or #RRGGBB hex colours only.
func safeColor(c string) string {
	c = strings.TrimSpace(c)
	if !strings.HasPrefix(c, "#") {
		c = "#" + c
	}
	if len(c) != 4 && len(c) != 7 {
		return "#1e88e5"
	}
	for _, r := range c[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return "#1e88e5"
		}
	}
	return c
}
