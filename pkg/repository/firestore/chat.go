package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type chatRepository struct {
	f *Firestore
}

func (r *chatRepository) ref(id types.MessageID) *firestore.DocumentRef {
	return r.f.collection(collectionMessages).Doc(id.String())
}

func (r *chatRepository) Create(ctx context.Context, msg *model.ChatMessage) error {
	if _, err := r.ref(msg.ID).Create(ctx, msg); err != nil {
		if isAlreadyExists(err) {
			return goerr.Wrap(interfaces.ErrAlreadyExists, "message already exists", goerr.V("id", msg.ID))
		}
		return goerr.Wrap(err, "failed to create message", goerr.V("id", msg.ID))
	}
	return nil
}

func (r *chatRepository) Get(ctx context.Context, id types.MessageID) (*model.ChatMessage, error) {
	doc, err := r.ref(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "message not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get message", goerr.V("id", id))
	}

	var msg model.ChatMessage
	if err := doc.DataTo(&msg); err != nil {
		return nil, goerr.Wrap(err, "failed to decode message", goerr.V("id", id))
	}
	return &msg, nil
}

func (r *chatRepository) Update(ctx context.Context, msg *model.ChatMessage) error {
	ref := r.ref(msg.ID)
	if _, err := ref.Get(ctx); err != nil {
		if isNotFound(err) {
			return goerr.Wrap(interfaces.ErrNotFound, "message not found", goerr.V("id", msg.ID))
		}
		return goerr.Wrap(err, "failed to check message existence", goerr.V("id", msg.ID))
	}
	if _, err := ref.Set(ctx, msg); err != nil {
		return goerr.Wrap(err, "failed to update message", goerr.V("id", msg.ID))
	}
	return nil
}

func (r *chatRepository) List(ctx context.Context, orgID types.OrganizationID, limit int, before time.Time) ([]*model.ChatMessage, error) {
	q := r.f.collection(collectionMessages).Where("OrganizationID", "==", orgID.String())
	if !before.IsZero() {
		q = q.Where("CreatedAt", "<", before)
	}
	q = q.OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	msgs, err := decodeAll[model.ChatMessage](q.Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list messages", goerr.V("organization_id", orgID))
	}
	return msgs, nil
}

func (r *chatRepository) ListMentioning(ctx context.Context, userID types.UserID) ([]*model.ChatMessage, error) {
	msgs, err := decodeAll[model.ChatMessage](
		r.f.collection(collectionMessages).Where("MentionIDs", "array-contains", userID.String()).Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list mentions", goerr.V("user_id", userID))
	}

	result := make([]*model.ChatMessage, 0, len(msgs))
	for _, msg := range msgs {
		if !msg.Deleted {
			result = append(result, msg)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
