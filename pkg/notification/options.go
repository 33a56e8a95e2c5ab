package notification

import (
	"embed"
	"log/slog"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		slog.Error("Error reading template file", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// NotificationManagerOption is a function that configures a NotificationManager
type NotificationManagerOption func(*NotificationManager) error

// WithSMTP adds an email notifier with the provided SMTP configuration
func WithSMTP(config SMTPConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		emailNotifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(EmailSystem, emailNotifier)
		return nil
	}
}

// WithAttemptsExhaustedTemplate registers the failed second-factor alert
func WithAttemptsExhaustedTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(AttemptsExhaustedNotice, EmailSystem, NoticeTemplate{
			Subject: "Security alert: second-factor attempts exhausted",
			Html:    loadTemplate("templates/email/attempts_exhausted.html"),
		})
	}
}

// WithBackupCodeUsedTemplate registers the backup code usage alert
func WithBackupCodeUsedTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(BackupCodeUsedNotice, EmailSystem, NoticeTemplate{
			Subject: "Security alert: backup code used to sign in",
			Html:    loadTemplate("templates/email/backup_code_used.html"),
		})
	}
}

// WithBackupCodesLowTemplate registers the low remaining backup codes alert
func WithBackupCodesLowTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(BackupCodesLowNotice, EmailSystem, NoticeTemplate{
			Subject: "Few backup codes remaining",
			Html:    loadTemplate("templates/email/backup_codes_low.html"),
		})
	}
}

// WithDefaultTemplates registers all security alert templates
func WithDefaultTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		options := []NotificationManagerOption{
			WithAttemptsExhaustedTemplate(),
			WithBackupCodeUsedTemplate(),
			WithBackupCodesLowTemplate(),
		}

		for _, opt := range options {
			if err := opt(nm); err != nil {
				return err
			}
		}
		return nil
	}
}
