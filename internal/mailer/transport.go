package mailer

import (
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// Transport delivers one rendered email. Implementations own their own
// timeout budget; the dispatcher treats any returned error as a
// transient delivery failure.
type Transport interface {
	Send(recipient, subject, htmlBody string) error
}

// SMTPTransport sends mail through an SMTP relay via gomail.
type SMTPTransport struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPTransport builds the transport from SMTP configuration.
func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	return &SMTPTransport{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send delivers a single message with an HTML body and a plain-text
// fallback for clients that cannot render HTML.
func (t *SMTPTransport) Send(recipient, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", t.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", "Please view this email in an HTML-compatible email client.")
	m.AddAlternative("text/html", htmlBody)

	return t.dialer.DialAndSend(m)
}
