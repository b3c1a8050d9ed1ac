package memory

import (
	"context"
	"sort"

	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type notificationReadRepository struct {
	m *Memory
}

func (r *notificationReadRepository) Put(ctx context.Context, read *model.NotificationRead) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	ledger, ok := r.m.reads[read.UserID]
	if !ok {
		ledger = make(map[model.NotificationKey]*model.NotificationRead)
		r.m.reads[read.UserID] = ledger
	}
	if _, exists := ledger[read.Key()]; exists {
		return nil
	}
	c := *read
	ledger[read.Key()] = &c
	return nil
}

func (r *notificationReadRepository) Exists(ctx context.Context, userID types.UserID, notificationType types.NotificationType, notificationID string) (bool, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	_, exists := r.m.reads[userID][model.NotificationKey{Type: notificationType, ID: notificationID}]
	return exists, nil
}

func (r *notificationReadRepository) ListByUser(ctx context.Context, userID types.UserID) ([]*model.NotificationRead, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	result := make([]*model.NotificationRead, 0, len(r.m.reads[userID]))
	for _, read := range r.m.reads[userID] {
		c := *read
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ReadAt.Before(result[j].ReadAt)
	})
	return result, nil
}
