package utils

import (
	"errors"
	"fmt"
	"html"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/HSouheill/nestfire_backend/config"
)

// ErrMailDisabled is returned when no SMTP host is configured
var ErrMailDisabled = errors.New("mail delivery is not configured")

// Mailer sends account emails over SMTP
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// NewMailer builds a Mailer from the SMTP settings. Without SMTP_HOST every send
// fails with ErrMailDisabled.
func NewMailer(cfg *config.Config, logger *zap.Logger) *Mailer {
	m := &Mailer{from: cfg.FromEmail, logger: logger.Named("mail")}
	if cfg.MailEnabled() {
		m.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	}
	return m
}

// SendPasswordReset mails the reset deep link to the account owner
func (m *Mailer) SendPasswordReset(to, name, link string) error {
	if m.dialer == nil {
		m.logger.Warn("password reset mail not sent", zap.String("to", to), zap.Error(ErrMailDisabled))
		return ErrMailDisabled
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Password Reset Request")
	msg.SetBody("text/html", resetBody(name, link))
	msg.AddAlternative("text/plain", fmt.Sprintf("Hi %s,\n\nTo reset your password open %s\n\nThe link expires in 10 minutes.", name, link))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	m.logger.Info("password reset mail sent", zap.String("to", to))
	return nil
}

func resetBody(name, link string) string {
	return fmt.Sprintf(`<p>Hi %s,</p>
<p>To reset your password, click <a href="%s">here</a>.</p>
<p>The link expires in 10 minutes. If you did not ask for a reset you can ignore this email.</p>`,
		html.EscapeString(name), html.EscapeString(link))
}
