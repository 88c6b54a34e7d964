package mailer

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"

	"github.com/edusetu/school-onboard-api/pkg/config"
)

// Mailer sends transactional mail over SMTP with mandatory STARTTLS.
type Mailer struct {
	cfg config.SMTPConfig
}

// New constructs a Mailer from SMTP configuration.
func New(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send delivers an HTML message to the given recipient. Returns an error
// when SMTP is not configured so callers can decide whether delivery is
// best-effort.
func (m *Mailer) Send(to, subject, html string) error {
	if to == "" {
		return nil
	}
	if m.cfg.Host == "" || m.cfg.From == "" {
		return fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	d := mail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.User, m.cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         m.cfg.Host,
		InsecureSkipVerify: m.cfg.SkipTLSVerify,
	}

	return d.DialAndSend(msg)
}
