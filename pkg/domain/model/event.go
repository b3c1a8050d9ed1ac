package model

import (
	"time"

	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// Event is a real-time event fanned out to an organization channel.
// When Recipients is set, only connections of those users receive it.
type Event struct {
	Type           types.EventType      `json:"type"`
	OrganizationID types.OrganizationID `json:"organization_id"`
	ActorID        types.UserID         `json:"actor_id"`
	Recipients     []types.UserID       `json:"-"`
	Notification   *EventNotification   `json:"notification,omitempty"`
	Message        *ChatMessage         `json:"message,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// EventNotification describes a notification-worthy change
type EventNotification struct {
	Type    types.NotificationType `json:"type"`
	ID      string                 `json:"id"`
	Title   string                 `json:"title"`
	Urgency types.Urgency          `json:"urgency,omitempty"`
}

// Channel returns the pub/sub channel name of the event
func (e *Event) Channel() string {
	return OrganizationChannel(e.OrganizationID)
}

// OrganizationChannel returns the channel name of an organization
func OrganizationChannel(orgID types.OrganizationID) string {
	return "org:" + orgID.String()
}
