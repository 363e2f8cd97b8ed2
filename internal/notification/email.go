package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smukkama/aqi-forecaster/pkg/config"
)

var alertTemplate = template.Must(template.New("alert").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
<h2>{{.Subject}}</h2>
{{range .Lines}}<p>{{.}}</p>
{{end}}<hr>
<p style="color: #666;">You are receiving this because you subscribed to air quality alerts.
Stay safe.</p>
</body>
</html>
`))

// RenderHTML wraps a plain-text alert body in the e-mail layout
func RenderHTML(subject, body string) (string, error) {
	data := struct {
		Subject string
		Lines   []string
	}{
		Subject: subject,
		Lines:   strings.Split(strings.TrimSpace(body), "\n"),
	}

	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends alert e-mails over SMTP
type EmailNotifier struct {
	config *config.SMTPConfig
	logger *zap.Logger
	send   sendFunc
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.SMTPConfig, logger *zap.Logger) *EmailNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailNotifier{config: cfg, logger: logger, send: smtp.SendMail}
}

// Configured reports whether SMTP credentials are present
func (e *EmailNotifier) Configured() bool {
	return e.config.Host != "" && e.config.Username != "" && e.config.Password != ""
}

// Notify renders and sends one alert e-mail. Without SMTP credentials the
// message is logged instead.
func (e *EmailNotifier) Notify(ctx context.Context, email, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	html, err := RenderHTML(subject, body)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	if !e.Configured() {
		e.logger.Info("SMTP not configured, skipping email",
			zap.String("to", email),
			zap.String("subject", subject),
			zap.String("body", body))
		return nil
	}

	msg := buildMessage(e.config.From, email, subject, html, time.Now())
	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)
	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)

	if err := e.send(addr, auth, e.config.From, []string{email}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	e.logger.Info("Email sent", zap.String("to", email), zap.String("subject", subject))
	return nil
}

func buildMessage(from, to, subject, html string, date time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", date.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return []byte(b.String())
}

// TestConnection tests the SMTP connection
func (e *EmailNotifier) TestConnection() error {
	if !e.Configured() {
		return fmt.Errorf("SMTP not configured")
	}

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	return nil
}

// LogNotifier writes alerts to the log instead of delivering them
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new log-only notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, email, subject, body string) error {
	n.logger.Info("Alert notification",
		zap.String("to", email),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}
