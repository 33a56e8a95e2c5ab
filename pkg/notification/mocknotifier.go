package notification

// MockNotifier records sent notices for tests
type MockNotifier struct {
	SentNotifications []NotificationData
	SentTypes         []NoticeType
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.SentNotifications = append(m.SentNotifications, notification)
	m.SentTypes = append(m.SentTypes, noticeType)
	return nil
}
