package notification

// NotificationSystem represents a delivery channel (e.g., email)
type NotificationSystem string

// NoticeType identifies a kind of notice (e.g., "attempts_exhausted")
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"
)

// Security notices raised by the authentication flow
const (
	AttemptsExhaustedNotice NoticeType = "attempts_exhausted"
	BackupCodeUsedNotice    NoticeType = "backup_code_used"
	BackupCodesLowNotice    NoticeType = "backup_codes_low"
)

// NoticeTemplate holds the subject and bodies for a notice. Text and Html
// are Go template sources rendered against NotificationData.Data.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// NotificationData carries the recipient and template values for one notice
type NotificationData struct {
	To   string
	Data map[string]string
}

type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
