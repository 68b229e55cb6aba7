// Package mailer sends transactional email over SMTP.
package mailer

import (
	"fmt"
	"html"
	"log/slog"

	"gopkg.in/gomail.v2"
)

type Mailer struct {
	dialer *gomail.Dialer
	from   string
	logger *slog.Logger
}

// New returns a mailer. With an empty host messages are only logged.
func New(host string, port int, user, pass, from string, logger *slog.Logger) *Mailer {
	m := &Mailer{from: from, logger: logger}
	if host != "" {
		m.dialer = gomail.NewDialer(host, port, user, pass)
	}
	return m
}

func (m *Mailer) SendInvite(to, link, shopName string) error {
	if m.dialer == nil {
		m.logger.Info("smtp not configured, invite not sent", "to", to, "link", link)
		return nil
	}
	message := gomail.NewMessage()
	message.SetHeader("From", m.from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", fmt.Sprintf("You have been invited to %s", shopName))
	message.SetBody("text/html", `
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px; border: 1px solid #ddd; border-radius: 8px;">
			<h2 style="color: #333; text-align: center;">Join `+html.EscapeString(shopName)+`</h2>
			<p>Hello,</p>
			<p>You were invited to help manage the schedule. Open the link below to choose your name and password:</p>
			<p style="text-align: center;"><a href="`+html.EscapeString(link)+`" style="display: inline-block; padding: 10px 20px; background-color: #28a745; color: #fff; text-decoration: none; border-radius: 5px;">Accept invitation</a></p>
			<p>If you were not expecting this email you can ignore it.</p>
		</div>
	`)
	if err := m.dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("send invite to %s: %w", to, err)
	}
	return nil
}
