package interfaces

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
)

// EventPublisher is the hook usecases feed real-time events through.
// Publish is best effort and must not block the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event *model.Event)
}

// AttachmentResolver fills metadata of attachments stored in object storage
type AttachmentResolver interface {
	Resolve(ctx context.Context, attachments []model.Attachment) ([]model.Attachment, error)
}

// ErrAttachmentNotFound is returned by resolvers when a referenced object does not exist
var ErrAttachmentNotFound = goerr.New("attachment object not found")
