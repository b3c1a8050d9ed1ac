package types

import "github.com/m-mizutani/goerr/v2"

// NotificationType identifies the feature that owns a notification.
// The read ledger is keyed by (user, type, id) and knows nothing else about it.
type NotificationType string

const (
	NotificationTypeInvitation    NotificationType = "invitation"
	NotificationTypeTaskAssigned  NotificationType = "task_assigned"
	NotificationTypeTaskStarted   NotificationType = "task_started"
	NotificationTypeTaskCompleted NotificationType = "task_completed"
	NotificationTypeTaskDeclined  NotificationType = "task_declined"
	NotificationTypeTaskDeadline  NotificationType = "task_deadline"
	NotificationTypeChatMention   NotificationType = "chat_mention"
)

// AllNotificationTypes returns all valid notification types
func AllNotificationTypes() []NotificationType {
	return []NotificationType{
		NotificationTypeInvitation,
		NotificationTypeTaskAssigned,
		NotificationTypeTaskStarted,
		NotificationTypeTaskCompleted,
		NotificationTypeTaskDeclined,
		NotificationTypeTaskDeadline,
		NotificationTypeChatMention,
	}
}

func (t NotificationType) IsValid() bool {
	for _, v := range AllNotificationTypes() {
		if t == v {
			return true
		}
	}
	return false
}

func (t NotificationType) String() string {
	return string(t)
}

// ParseNotificationType parses a string into a NotificationType
func ParseNotificationType(s string) (NotificationType, error) {
	t := NotificationType(s)
	if !t.IsValid() {
		return "", goerr.New("invalid notification type", goerr.V("type", s))
	}
	return t, nil
}
