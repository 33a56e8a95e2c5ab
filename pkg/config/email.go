package config

import (
	"github.com/gla1v3/console-auth/pkg/notification"
)

// EmailConfig holds SMTP settings for operator security alerts. Alerts are
// disabled when OperatorEmail is empty.
type EmailConfig struct {
	Host          string `env:"SMTP_HOST" env-default:"localhost"`
	Port          int    `env:"SMTP_PORT" env-default:"587"`
	TLS           bool   `env:"SMTP_TLS" env-default:"false"`
	Username      string `env:"SMTP_USERNAME"`
	Password      string `env:"SMTP_PASSWORD"`
	From          string `env:"SMTP_FROM" env-default:"console-auth@localhost"`
	OperatorEmail string `env:"OPERATOR_EMAIL"`
}

// AlertsEnabled reports whether operator alerting is configured
func (e EmailConfig) AlertsEnabled() bool {
	return e.OperatorEmail != ""
}

// ToSMTPConfig converts the config to the notification package's SMTP config
func (e EmailConfig) ToSMTPConfig() notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:     e.Host,
		Port:     e.Port,
		TLS:      e.TLS,
		Username: e.Username,
		Password: e.Password,
		From:     e.From,
	}
}
