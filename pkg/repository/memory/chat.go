package memory

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type chatRepository struct {
	m *Memory
}

func (r *chatRepository) Create(ctx context.Context, msg *model.ChatMessage) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.messages[msg.ID]; exists {
		return goerr.Wrap(interfaces.ErrAlreadyExists, "message already exists", goerr.V("id", msg.ID))
	}
	r.m.nextSeq++
	r.m.messages[msg.ID] = msg.Copy()
	r.m.messageSeq[msg.ID] = r.m.nextSeq
	return nil
}

func (r *chatRepository) Get(ctx context.Context, id types.MessageID) (*model.ChatMessage, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	msg, exists := r.m.messages[id]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "message not found", goerr.V("id", id))
	}
	return msg.Copy(), nil
}

func (r *chatRepository) Update(ctx context.Context, msg *model.ChatMessage) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.messages[msg.ID]; !exists {
		return goerr.Wrap(interfaces.ErrNotFound, "message not found", goerr.V("id", msg.ID))
	}
	r.m.messages[msg.ID] = msg.Copy()
	return nil
}

// sortNewestFirst orders by creation time, falling back to insertion order
func (r *chatRepository) sortNewestFirst(msgs []*model.ChatMessage) {
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
		}
		return r.m.messageSeq[msgs[i].ID] > r.m.messageSeq[msgs[j].ID]
	})
}

func (r *chatRepository) List(ctx context.Context, orgID types.OrganizationID, limit int, before time.Time) ([]*model.ChatMessage, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	result := make([]*model.ChatMessage, 0)
	for _, msg := range r.m.messages {
		if msg.OrganizationID != orgID {
			continue
		}
		if !before.IsZero() && !msg.CreatedAt.Before(before) {
			continue
		}
		result = append(result, msg.Copy())
	}

	r.sortNewestFirst(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *chatRepository) ListMentioning(ctx context.Context, userID types.UserID) ([]*model.ChatMessage, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	result := make([]*model.ChatMessage, 0)
	for _, msg := range r.m.messages {
		if msg.Deleted || !msg.Mentions(userID) {
			continue
		}
		result = append(result, msg.Copy())
	}
	r.sortNewestFirst(result)
	return result, nil
}
