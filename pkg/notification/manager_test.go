package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationManager_Send(t *testing.T) {
	mock := &MockNotifier{}
	nm, err := NewNotificationManager(WithDefaultTemplates())
	require.NoError(t, err)
	nm.RegisterNotifier(EmailSystem, mock)

	err = nm.Send(AttemptsExhaustedNotice, EmailSystem, NotificationData{
		To: "ops@example.com",
		Data: map[string]string{
			"Username":  "alice",
			"IPAddress": "203.0.113.7",
		},
	})
	require.NoError(t, err)

	require.Len(t, mock.SentNotifications, 1)
	assert.Equal(t, "ops@example.com", mock.SentNotifications[0].To)
	assert.Equal(t, AttemptsExhaustedNotice, mock.SentTypes[0])
}

func TestNotificationManager_Send_UnregisteredNotice(t *testing.T) {
	nm, err := NewNotificationManager()
	require.NoError(t, err)
	nm.RegisterNotifier(EmailSystem, &MockNotifier{})

	err = nm.Send(AttemptsExhaustedNotice, EmailSystem, NotificationData{To: "ops@example.com"})
	assert.Error(t, err)
}

func TestNotificationManager_Send_NoNotifier(t *testing.T) {
	nm, err := NewNotificationManager(WithDefaultTemplates())
	require.NoError(t, err)

	err = nm.Send(AttemptsExhaustedNotice, EmailSystem, NotificationData{To: "ops@example.com"})
	assert.Error(t, err)
}

func TestRegisterNotification_Validation(t *testing.T) {
	nm, err := NewNotificationManager()
	require.NoError(t, err)

	assert.Error(t, nm.RegisterNotification("", EmailSystem, NoticeTemplate{}))
	assert.Error(t, nm.RegisterNotification(AttemptsExhaustedNotice, "", NoticeTemplate{}))
	assert.NoError(t, nm.RegisterNotification(AttemptsExhaustedNotice, EmailSystem, NoticeTemplate{Subject: "x"}))
}

func TestEmbeddedTemplatesLoad(t *testing.T) {
	for _, name := range []string{
		"templates/email/attempts_exhausted.html",
		"templates/email/backup_code_used.html",
		"templates/email/backup_codes_low.html",
	} {
		assert.NotEmpty(t, loadTemplate(name), name)
	}
}
