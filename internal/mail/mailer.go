// Package mail sends transactional email over SMTP. Sending is
// best-effort: callers must tolerate an unconfigured or failing relay.
package mail

import (
	"fmt"

	"digital-store/config"
	"digital-store/internal/util"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Mailer struct {
	dialer *gomail.Dialer
	sender string
	logger *zap.Logger
}

// NewMailer creates a mailer from config. When no MAIL_USERNAME is
// configured the mailer is disabled and every Send reports failure.
func NewMailer(cfg config.Mail) *Mailer {
	m := &Mailer{
		sender: cfg.Sender,
		logger: util.GetLogger(),
	}
	if cfg.Username != "" {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return m
}

// Enabled reports whether the mail relay is configured
func (m *Mailer) Enabled() bool {
	return m.dialer != nil
}

// Send delivers one HTML email. Returns an error when the relay is
// unconfigured or the send fails; it never blocks beyond the SMTP
// dial.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	if !m.Enabled() {
		return fmt.Errorf("mail is not configured")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		util.MailFailedTotal.Inc()
		m.logger.Error("Failed to send email",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
		return err
	}

	util.MailSentTotal.Inc()
	return nil
}
