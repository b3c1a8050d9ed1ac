package sqlite

import (
	"context"
	"database/sql"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type notificationReadRepository struct {
	db *sql.DB
}

func (r *notificationReadRepository) Put(ctx context.Context, read *model.NotificationRead) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notification_reads (user_id, type, notification_id, read_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, type, notification_id) DO NOTHING`,
		read.UserID, read.Type, read.NotificationID, toUnix(read.ReadAt))
	if err != nil {
		return goerr.Wrap(err, "failed to insert notification read",
			goerr.V("user_id", read.UserID), goerr.V("type", read.Type), goerr.V("id", read.NotificationID))
	}
	return nil
}

func (r *notificationReadRepository) Exists(ctx context.Context, userID types.UserID, notificationType types.NotificationType, notificationID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notification_reads WHERE user_id = ? AND type = ? AND notification_id = ?`,
		userID, notificationType, notificationID).Scan(&count)
	if err != nil {
		return false, goerr.Wrap(err, "failed to check notification read",
			goerr.V("user_id", userID), goerr.V("type", notificationType), goerr.V("id", notificationID))
	}
	return count > 0, nil
}

func (r *notificationReadRepository) ListByUser(ctx context.Context, userID types.UserID) ([]*model.NotificationRead, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, type, notification_id, read_at FROM notification_reads WHERE user_id = ? ORDER BY read_at ASC`,
		userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notification reads", goerr.V("user_id", userID))
	}
	defer func() { _ = rows.Close() }()

	reads := make([]*model.NotificationRead, 0)
	for rows.Next() {
		var read model.NotificationRead
		var readAt int64
		if err := rows.Scan(&read.UserID, &read.Type, &read.NotificationID, &readAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan notification read")
		}
		read.ReadAt = fromUnix(readAt)
		reads = append(reads, &read)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate notification reads")
	}
	return reads, nil
}
