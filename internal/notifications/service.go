package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/demandradar/demand-radar/internal/config"
	"github.com/demandradar/demand-radar/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service sends digest emails summarizing recent analysis runs.
type Service struct {
	config *config.Config
	send   func(m *gomail.Message) error
}

var _ Notifier = (*Service)(nil)

// NewService creates a notification service.
func NewService(cfg *config.Config) *Service {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	return &Service{
		config: cfg,
		send: func(m *gomail.Message) error {
			return dialer.DialAndSend(m)
		},
	}
}

// digestView is the data handed to the digest templates.
type digestView struct {
	Period      string
	GeneratedAt time.Time
	Completed   []*models.RequestStatus
	Failed      []*models.RequestStatus
}

// SendDigest emails a summary of the given analysis records. Without a
// configured recipient it logs and returns nil so schedules stay quiet on
// minimal deployments.
func (s *Service) SendDigest(period string, records []*models.RequestStatus) error {
	if s.config.NotificationEmail == "" {
		logrus.Debug("No notification email configured, skipping digest")
		return nil
	}

	view := buildDigestView(period, records)
	subject := fmt.Sprintf("Demand Radar %s digest (%d analyses)",
		period, len(view.Completed)+len(view.Failed))

	htmlBody, err := buildDigestHTML(view)
	if err != nil {
		return fmt.Errorf("failed to build digest HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", buildDigestText(view))
	m.AddAlternative("text/html", htmlBody)

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send digest email: %w", err)
	}

	logrus.Infof("Sent %s digest covering %d analyses to %s",
		period, len(records), s.config.NotificationEmail)
	return nil
}

func buildDigestView(period string, records []*models.RequestStatus) digestView {
	view := digestView{
		Period:      period,
		GeneratedAt: time.Now().UTC(),
	}
	for _, record := range records {
		switch record.Status {
		case models.StatusCompleted:
			view.Completed = append(view.Completed, record)
		case models.StatusFailed:
			view.Failed = append(view.Failed, record)
		}
	}
	return view
}

const digestTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Demand Radar Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #ff4500; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .analysis { border-left: 4px solid #ff4500; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .analysis-meta { color: #666; font-size: 0.9em; }
        .failed { border-left-color: #d13438; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Demand Radar Digest</h1>
        <p>{{.Period}} digest generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Completed analyses:</strong> {{len .Completed}}</p>
        <p><strong>Failed analyses:</strong> {{len .Failed}}</p>
    </div>

    {{if .Completed}}
    <h2>Completed Analyses</h2>
    {{range .Completed}}
    <div class="analysis">
        <div><strong>r/{{join .Subreddits ", r/"}}</strong> &mdash; {{join .Keywords ", "}}</div>
        <div class="analysis-meta">
            {{if .Report}}{{.Report.TotalPosts}} posts scanned,
            {{.Report.FilteredPosts}} relevant,
            {{.Report.HighIntentPosts}} with buying intent,
            {{.Report.HighIntentComments}} high-intent comment threads{{end}}
            | completed {{.UpdatedAt.Format "Jan 2, 2006 15:04 UTC"}}
        </div>
    </div>
    {{end}}
    {{end}}

    {{if .Failed}}
    <h2>Failed Analyses</h2>
    {{range .Failed}}
    <div class="analysis failed">
        <div><strong>r/{{join .Subreddits ", r/"}}</strong> &mdash; {{join .Keywords ", "}}</div>
        <div class="analysis-meta">{{.Error}}</div>
    </div>
    {{end}}
    {{end}}
</body>
</html>
`

func buildDigestHTML(view digestView) (string, error) {
	t, err := template.New("digest").Funcs(template.FuncMap{
		"join": strings.Join,
	}).Parse(digestTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildDigestText(view digestView) string {
	var text strings.Builder

	fmt.Fprintf(&text, "Demand Radar %s digest\n", view.Period)
	fmt.Fprintf(&text, "Generated: %s\n\n", view.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	fmt.Fprintf(&text, "Completed analyses: %d\n", len(view.Completed))
	fmt.Fprintf(&text, "Failed analyses: %d\n", len(view.Failed))

	if len(view.Completed) > 0 {
		text.WriteString("\nCOMPLETED\n")
		text.WriteString("=========\n")
		for i, record := range view.Completed {
			fmt.Fprintf(&text, "\n%d. r/%s | keywords: %s\n",
				i+1, strings.Join(record.Subreddits, ", r/"), strings.Join(record.Keywords, ", "))
			if record.Report != nil {
				fmt.Fprintf(&text, "   %d posts scanned, %d relevant, %d with buying intent\n",
					record.Report.TotalPosts, record.Report.FilteredPosts, record.Report.HighIntentPosts)
			}
			fmt.Fprintf(&text, "   Completed: %s\n", record.UpdatedAt.Format("Jan 2, 2006 15:04 UTC"))
		}
	}

	if len(view.Failed) > 0 {
		text.WriteString("\nFAILED\n")
		text.WriteString("======\n")
		for i, record := range view.Failed {
			fmt.Fprintf(&text, "\n%d. r/%s | keywords: %s\n",
				i+1, strings.Join(record.Subreddits, ", r/"), strings.Join(record.Keywords, ", "))
			fmt.Fprintf(&text, "   Error: %s\n", record.Error)
		}
	}

	return text.String()
}
