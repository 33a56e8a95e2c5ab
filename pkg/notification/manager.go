package notification

import (
	"fmt"
)

// NotificationManager routes notices to registered delivery channels.
// Templates are registered per notice type and system, so the same notice
// can render differently per channel.
type NotificationManager struct {
	notifiers map[NotificationSystem]Notifier
	registry  map[NoticeType]map[NotificationSystem]NoticeTemplate
}

// NewNotificationManager creates a manager and applies the given options
func NewNotificationManager(opts ...NotificationManagerOption) (*NotificationManager, error) {
	nm := &NotificationManager{
		notifiers: make(map[NotificationSystem]Notifier),
		registry:  make(map[NoticeType]map[NotificationSystem]NoticeTemplate),
	}

	for _, opt := range opts {
		if err := opt(nm); err != nil {
			return nil, err
		}
	}

	return nm, nil
}

// RegisterNotifier registers a notifier for a delivery channel
func (nm *NotificationManager) RegisterNotifier(system NotificationSystem, notifier Notifier) {
	nm.notifiers[system] = notifier
}

// RegisterNotification adds a template for a notice type on a channel
func (nm *NotificationManager) RegisterNotification(noticeType NoticeType, system NotificationSystem, template NoticeTemplate) error {
	if noticeType == "" || system == "" {
		return fmt.Errorf("notice type and system cannot be empty")
	}

	if _, exists := nm.registry[noticeType]; !exists {
		nm.registry[noticeType] = make(map[NotificationSystem]NoticeTemplate)
	}
	nm.registry[noticeType][system] = template
	return nil
}

// Send delivers a notice through the given channel using its registered
// template
func (nm *NotificationManager) Send(noticeType NoticeType, system NotificationSystem, notification NotificationData) error {
	systemTemplates, exists := nm.registry[noticeType]
	if !exists {
		return fmt.Errorf("no templates registered for notice type: %s", noticeType)
	}

	template, exists := systemTemplates[system]
	if !exists {
		return fmt.Errorf("no template registered for system %s under notice type %s", system, noticeType)
	}

	notifier, exists := nm.notifiers[system]
	if !exists {
		return fmt.Errorf("no notifier registered for system: %s", system)
	}

	return notifier.Send(noticeType, notification, template)
}
