package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// ChatRepository persists organization chat messages
type ChatRepository interface {
	Create(ctx context.Context, msg *model.ChatMessage) error
	Get(ctx context.Context, id types.MessageID) (*model.ChatMessage, error)
	Update(ctx context.Context, msg *model.ChatMessage) error

	// List returns messages newest first. A zero before returns the latest.
	List(ctx context.Context, orgID types.OrganizationID, limit int, before time.Time) ([]*model.ChatMessage, error)

	// ListMentioning returns non-deleted messages that mention the user
	ListMentioning(ctx context.Context, userID types.UserID) ([]*model.ChatMessage, error)
}
