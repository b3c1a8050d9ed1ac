package types

// EventType is the kind of a real-time event carried on an organization channel
type EventType string

const (
	EventTypeMessage        EventType = "message"
	EventTypeMessageEdited  EventType = "message_edited"
	EventTypeMessageDeleted EventType = "message_deleted"
	EventTypeReaction       EventType = "reaction"
	EventTypeTyping         EventType = "typing"
	EventTypeNotification   EventType = "notification"
)

func (t EventType) String() string {
	return string(t)
}
