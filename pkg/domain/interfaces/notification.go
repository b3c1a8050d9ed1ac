package interfaces

import (
	"context"

	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// NotificationReadRepository is the append-only read ledger
type NotificationReadRepository interface {
	// Put inserts the row unless the (user, type, id) triple already exists.
	// Calling it again is a no-op and returns nil.
	Put(ctx context.Context, read *model.NotificationRead) error

	Exists(ctx context.Context, userID types.UserID, notificationType types.NotificationType, notificationID string) (bool, error)
	ListByUser(ctx context.Context, userID types.UserID) ([]*model.NotificationRead, error)
}
