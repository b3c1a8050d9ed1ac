package firestore

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type notificationReadRepository struct {
	f *Firestore
}

func (r *notificationReadRepository) ref(userID types.UserID, t types.NotificationType, id string) *firestore.DocumentRef {
	return r.f.collection(collectionReads).Doc(compositeID(userID.String(), t.String(), id))
}

func (r *notificationReadRepository) Put(ctx context.Context, read *model.NotificationRead) error {
	_, err := r.ref(read.UserID, read.Type, read.NotificationID).Create(ctx, read)
	if err != nil && !isAlreadyExists(err) {
		return goerr.Wrap(err, "failed to put notification read",
			goerr.V("user_id", read.UserID), goerr.V("type", read.Type), goerr.V("id", read.NotificationID))
	}
	return nil
}

func (r *notificationReadRepository) Exists(ctx context.Context, userID types.UserID, notificationType types.NotificationType, notificationID string) (bool, error) {
	_, err := r.ref(userID, notificationType, notificationID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to get notification read",
			goerr.V("user_id", userID), goerr.V("type", notificationType), goerr.V("id", notificationID))
	}
	return true, nil
}

func (r *notificationReadRepository) ListByUser(ctx context.Context, userID types.UserID) ([]*model.NotificationRead, error) {
	reads, err := decodeAll[model.NotificationRead](
		r.f.collection(collectionReads).Where("UserID", "==", userID.String()).Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notification reads", goerr.V("user_id", userID))
	}
	sort.Slice(reads, func(i, j int) bool {
		return reads[i].ReadAt.Before(reads[j].ReadAt)
	})
	return reads, nil
}
