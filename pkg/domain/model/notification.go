package model

import (
	"time"

	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// NotificationRead is one row of the read ledger: the user acknowledged (type, id).
// Rows are never updated or deleted.
type NotificationRead struct {
	UserID         types.UserID           `json:"user_id"`
	Type           types.NotificationType `json:"type"`
	NotificationID string                 `json:"notification_id"`
	ReadAt         time.Time              `json:"read_at"`
}

// Key returns the ledger key of the row
func (r *NotificationRead) Key() NotificationKey {
	return NotificationKey{Type: r.Type, ID: r.NotificationID}
}

// NotificationKey identifies a notification within one user's ledger
type NotificationKey struct {
	Type types.NotificationType
	ID   string
}

// Notification is a candidate enumerated by a feature, annotated with its read state
type Notification struct {
	Type           types.NotificationType `json:"type"`
	ID             string                 `json:"id"`
	OrganizationID types.OrganizationID   `json:"organization_id"`
	Title          string                 `json:"title"`
	CreatedAt      time.Time              `json:"created_at"`
	Read           bool                   `json:"read"`
}

// Key returns the ledger key of the notification
func (n *Notification) Key() NotificationKey {
	return NotificationKey{Type: n.Type, ID: n.ID}
}
