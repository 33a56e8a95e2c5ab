package notice

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gla1v3/console-auth/pkg/notification"
)

// Service sends security alerts to the console operator mailbox. It
// satisfies the authentication flow's notifier contract.
type Service struct {
	manager       *notification.NotificationManager
	operatorEmail string
}

// NewService creates a new alert service. Alerts go to operatorEmail.
func NewService(manager *notification.NotificationManager, operatorEmail string) *Service {
	return &Service{
		manager:       manager,
		operatorEmail: operatorEmail,
	}
}

// AttemptsExhausted alerts the operator that an account passed the password
// check but burned every second-factor attempt. A correct password with a
// failing second factor usually means the password is compromised.
func (s *Service) AttemptsExhausted(ctx context.Context, username, ipAddress string) error {
	return s.send(notification.AttemptsExhaustedNotice, map[string]string{
		"Username":  username,
		"IPAddress": ipAddress,
		"Timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// BackupCodeUsed alerts the operator that a backup code was spent to sign in
func (s *Service) BackupCodeUsed(ctx context.Context, username, ipAddress string) error {
	return s.send(notification.BackupCodeUsedNotice, map[string]string{
		"Username":  username,
		"IPAddress": ipAddress,
		"Timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// BackupCodesLow warns that an account is running out of unused backup codes
func (s *Service) BackupCodesLow(ctx context.Context, username string, remaining int) error {
	return s.send(notification.BackupCodesLowNotice, map[string]string{
		"Username":  username,
		"Remaining": strconv.Itoa(remaining),
	})
}

func (s *Service) send(noticeType notification.NoticeType, data map[string]string) error {
	err := s.manager.Send(noticeType, notification.EmailSystem, notification.NotificationData{
		To:   s.operatorEmail,
		Data: data,
	})
	if err != nil {
		slog.Error("Failed to send security alert", "notice", noticeType, "err", err)
	}
	return err
}
