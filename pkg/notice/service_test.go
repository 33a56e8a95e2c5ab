package notice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gla1v3/console-auth/pkg/notification"
)

func newTestService(t *testing.T) (*Service, *notification.MockNotifier) {
	t.Helper()
	mock := &notification.MockNotifier{}
	manager, err := notification.NewNotificationManager(notification.WithDefaultTemplates())
	require.NoError(t, err)
	manager.RegisterNotifier(notification.EmailSystem, mock)
	return NewService(manager, "ops@example.com"), mock
}

func TestAttemptsExhausted(t *testing.T) {
	service, mock := newTestService(t)

	err := service.AttemptsExhausted(context.Background(), "alice", "203.0.113.7")
	require.NoError(t, err)

	require.Len(t, mock.SentNotifications, 1)
	assert.Equal(t, "ops@example.com", mock.SentNotifications[0].To)
	assert.Equal(t, "alice", mock.SentNotifications[0].Data["Username"])
	assert.Equal(t, "203.0.113.7", mock.SentNotifications[0].Data["IPAddress"])
	assert.Equal(t, notification.AttemptsExhaustedNotice, mock.SentTypes[0])
}

func TestBackupCodeUsed(t *testing.T) {
	service, mock := newTestService(t)

	require.NoError(t, service.BackupCodeUsed(context.Background(), "alice", "203.0.113.7"))
	require.Len(t, mock.SentTypes, 1)
	assert.Equal(t, notification.BackupCodeUsedNotice, mock.SentTypes[0])
}

func TestBackupCodesLow(t *testing.T) {
	service, mock := newTestService(t)

	require.NoError(t, service.BackupCodesLow(context.Background(), "alice", 2))
	require.Len(t, mock.SentNotifications, 1)
	assert.Equal(t, "2", mock.SentNotifications[0].Data["Remaining"])
}

func TestSendFailsWithoutNotifier(t *testing.T) {
	manager, err := notification.NewNotificationManager(notification.WithDefaultTemplates())
	require.NoError(t, err)
	service := NewService(manager, "ops@example.com")

	assert.Error(t, service.AttemptsExhausted(context.Background(), "alice", "203.0.113.7"))
}
