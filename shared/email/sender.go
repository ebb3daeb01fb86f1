package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"adindex/internal/models"
	"adindex/shared/config"
)

// Sender delivers batch run reports over SMTP. Optional: callers should
// check config.EmailConfig.Enabled before constructing one.
type Sender struct {
	config *config.EmailConfig
}

func NewSender(cfg *config.EmailConfig) *Sender {
	return &Sender{
		config: cfg,
	}
}

// SendBatchReport emails the outcome of one catalog run.
func (s *Sender) SendBatchReport(summary *models.BatchSummary) error {
	if summary == nil {
		return fmt.Errorf("summary cannot be nil")
	}
	if len(summary.Entries) == 0 {
		return nil // Nothing to report
	}

	subject := fmt.Sprintf("Ad Audit Report - %d/%d analyzed (%s)",
		summary.Succeeded(), len(summary.Entries), summary.StartedAt.Format("Jan 2, 2006"))

	body, err := s.generateEmailBody(summary)
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	return s.sendViaSMTP(subject, body)
}

func (s *Sender) sendViaSMTP(subject, body string) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)

	to := []string{s.config.ToEmail}
	msg := []byte(fmt.Sprintf(`To: %s
From: %s
Subject: %s
MIME-Version: 1.0
Content-Type: text/html; charset=UTF-8

%s`, s.config.ToEmail, s.config.FromEmail, subject, body))

	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.FromEmail, to, msg)
}

func (s *Sender) generateEmailBody(summary *models.BatchSummary) (string, error) {
	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, summary); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const reportTemplate = `<html>
<body style="font-family: sans-serif; color: #1f1f1f;">
<h2>Responsible Advertising Index - Batch Report</h2>
<p>Run started {{.StartedAt.Format "2006-01-02 15:04"}}{{if .Catalog}} from catalog {{.Catalog}}{{end}}.</p>
<table border="1" cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
<tr>
  <th>#</th><th>Brand</th><th>Status</th><th>Overall</th>
  <th>Climate</th><th>Social</th><th>Cultural</th><th>Ethical</th>
</tr>
{{range .Entries}}
<tr>
  <td>{{.Index}}</td>
  <td>{{if .Brand}}{{.Brand}}{{else}}{{.URL}}{{end}}</td>
  <td>{{.Status}}</td>
  <td>{{printf "%.1f" .OverallScore}}</td>
  <td>{{printf "%.0f" .ClimateScore}}</td>
  <td>{{printf "%.0f" .SocialScore}}</td>
  <td>{{printf "%.0f" .CulturalScore}}</td>
  <td>{{printf "%.0f" .EthicalScore}}</td>
</tr>
{{end}}
</table>
</body>
</html>`
