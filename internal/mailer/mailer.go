// Package mailer delivers outbound mail over SMTP.  Delivery failures are
// the caller's to log; nothing here ever blocks or fails an auth flow.
package mailer

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/userstack/auth-service/internal/config"
)

// Email is a single outbound message.  HTML takes precedence over Text when
// both are set.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends mail through the configured SMTP relay.
type Mailer struct {
	cfg       config.MailConfig
	siteTitle string
}

func New(cfg config.MailConfig, siteTitle string) *Mailer {
	return &Mailer{cfg: cfg, siteTitle: siteTitle}
}

// Send delivers a single email.  With no SMTP host configured the message
// is logged and dropped, which keeps development environments working
// without a relay.
func (m *Mailer) Send(e Email) error {
	if m.cfg.Host == "" {
		log.Printf("mailer: no SMTP host configured, dropping mail to=%s subject=%q", e.To, e.Subject)
		return nil
	}

	contentType := "text/plain; charset=\"UTF-8\""
	body := e.Text
	if e.HTML != "" {
		contentType = "text/html; charset=\"UTF-8\""
		body = e.HTML
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.cfg.FromName, m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", e.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", e.Subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: %s\r\n", contentType)
	fmt.Fprintf(&msg, "\r\n%s\r\n", body)

	addr := m.cfg.Host + ":" + m.cfg.Port
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{e.To}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", e.To, err)
	}
	log.Printf("mailer: sent to=%s subject=%q", e.To, e.Subject)
	return nil
}
