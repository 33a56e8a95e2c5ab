package notification

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"log/slog"
	texttemplate "text/template"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig configures the outbound mail client
type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
}

// EmailNotifier delivers notices over SMTP
type EmailNotifier struct {
	SMTPConfig SMTPConfig
	client     *mail.Client
}

// NewEmailNotifier creates a mail client for the given SMTP configuration.
// Authentication is only configured when a username and password are set.
func NewEmailNotifier(config SMTPConfig) (*EmailNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(30 * time.Second),
	}

	if config.Username != "" && config.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	if !config.TLS {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
			mail.WithTLSPolicy(mail.NoTLS),
		)
	} else {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	}

	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		slog.Error("Failed to create mail client", "err", err)
		return nil, err
	}

	return &EmailNotifier{SMTPConfig: config, client: client}, nil
}

// Send renders the template bodies and delivers the message
func (e *EmailNotifier) Send(noticeType NoticeType, notification NotificationData, noticeTemplate NoticeTemplate) error {
	if notification.To == "" {
		return fmt.Errorf("email notification requires 'To' address")
	}

	var textBody string
	if noticeTemplate.Text != "" {
		tmpl, err := texttemplate.New("text").Parse(noticeTemplate.Text)
		if err != nil {
			slog.Error("Failed to parse text template", "err", err)
			return err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, notification.Data); err != nil {
			slog.Error("Failed to execute text template", "err", err)
			return err
		}
		textBody = buf.String()
	}

	var htmlBody string
	if noticeTemplate.Html != "" {
		tmpl, err := template.New("html").Parse(noticeTemplate.Html)
		if err != nil {
			slog.Error("Failed to parse HTML template", "err", err)
			return err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, notification.Data); err != nil {
			slog.Error("Failed to execute HTML template", "err", err)
			return err
		}
		htmlBody = buf.String()
	}

	msg := mail.NewMsg()
	if err := msg.From(e.SMTPConfig.From); err != nil {
		return err
	}
	if err := msg.To(notification.To); err != nil {
		return err
	}
	msg.Subject(noticeTemplate.Subject)

	if textBody != "" {
		msg.SetBodyString(mail.TypeTextPlain, textBody)
	}
	if htmlBody != "" {
		if textBody != "" {
			msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)
		} else {
			msg.SetBodyString(mail.TypeTextHTML, htmlBody)
		}
	}

	if err := e.client.DialAndSend(msg); err != nil {
		slog.Error("Failed to send email", "err", err)
		return err
	}

	slog.Info("Email sent", "to", notification.To, "notice", noticeType)
	return nil
}
