package fanout

import (
	"context"

	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
)

// Publisher forwards every event to each of its publishers in order
type Publisher []interfaces.EventPublisher

var _ interfaces.EventPublisher = Publisher{}

// New drops nil entries so optional publishers can be passed unconditionally
func New(publishers ...interfaces.EventPublisher) Publisher {
	var p Publisher
	for _, pub := range publishers {
		if pub != nil {
			p = append(p, pub)
		}
	}
	return p
}

func (p Publisher) Publish(ctx context.Context, event *model.Event) {
	for _, pub := range p {
		pub.Publish(ctx, event)
	}
}
