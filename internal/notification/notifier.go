// Package notification delivers scan alerts by email.
package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Sown0205/Anubis/internal/config"
	"github.com/Sown0205/Anubis/internal/core/model"
)

// Notifier delivers a rendered alert.
type Notifier interface {
	Send(subject, body string) error
}

// EmailNotifier implements Notifier over SMTP.
type EmailNotifier struct {
	cfg  config.SMTPConfig
	auth smtp.Auth
}

// NewEmailNotifier creates a new EmailNotifier.
func NewEmailNotifier(cfg config.SMTPConfig) Notifier {
	// PlainAuth will not send credentials until the server identifies itself as a trusted one.
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	return &EmailNotifier{cfg: cfg, auth: auth}
}

// Send delivers an email to the configured recipients.
func (n *EmailNotifier) Send(subject, body string) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	recipients := strings.Split(n.cfg.To, ",")

	msg := []byte("To: " + n.cfg.To + "\r\n" +
		"From: " + n.cfg.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		body)

	if err := smtp.SendMail(addr, n.auth, n.cfg.From, recipients, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SessionReport renders the alert mail for a finished session with
// detected attacks.
func SessionReport(session model.ScanSession) (subject, body string) {
	subject = fmt.Sprintf("[ANUBIS] %d threats detected in scan %s", session.AttackCount, session.ID)

	var b strings.Builder
	b.WriteString("<h3>ANUBIS scan report</h3>")
	b.WriteString(fmt.Sprintf("<p>Session <code>%s</code> finished with status %s.</p>", session.ID, session.Status))
	b.WriteString("<ul>")
	b.WriteString(fmt.Sprintf("<li>Total flows: %d</li>", session.TotalFlows))
	b.WriteString(fmt.Sprintf("<li>Benign flows: %d</li>", session.BenignCount))
	b.WriteString(fmt.Sprintf("<li>Attack flows: %d</li>", session.AttackCount))
	b.WriteString(fmt.Sprintf("<li>Overall status: %s</li>", model.OverallStatus(session.TotalFlows, session.AttackCount)))
	b.WriteString("</ul>")
	return subject, b.String()
}
