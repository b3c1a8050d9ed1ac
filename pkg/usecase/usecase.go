package usecase

import (
	"context"
	"time"

	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
)

type UseCases struct {
	repo      interfaces.Repository
	clock     func() time.Time
	publisher interfaces.EventPublisher
	resolver  interfaces.AttachmentResolver

	Organization *OrganizationUseCase
	Task         *TaskUseCase
	Stage        *StageUseCase
	Notification *NotificationUseCase
	Chat         *ChatUseCase
	Analytics    *AnalyticsUseCase
	Auth         AuthUseCaseInterface
}

type Option func(*UseCases)

// WithClock replaces time.Now, mostly for tests
func WithClock(clock func() time.Time) Option {
	return func(uc *UseCases) {
		uc.clock = clock
	}
}

// WithPublisher sets where real-time events are sent
func WithPublisher(publisher interfaces.EventPublisher) Option {
	return func(uc *UseCases) {
		uc.publisher = publisher
	}
}

// WithAttachmentResolver enables attachment verification against object storage
func WithAttachmentResolver(resolver interfaces.AttachmentResolver) Option {
	return func(uc *UseCases) {
		uc.resolver = resolver
	}
}

func WithAuth(auth AuthUseCaseInterface) Option {
	return func(uc *UseCases) {
		uc.Auth = auth
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:  repo,
		clock: time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	env := &env{
		repo:      repo,
		clock:     uc.clock,
		publisher: uc.publisher,
		resolver:  uc.resolver,
	}

	uc.Organization = &OrganizationUseCase{env: env}
	uc.Task = &TaskUseCase{env: env}
	uc.Stage = &StageUseCase{env: env}
	uc.Notification = &NotificationUseCase{env: env}
	uc.Chat = &ChatUseCase{env: env}
	uc.Analytics = &AnalyticsUseCase{env: env}

	return uc
}

// env carries the dependencies shared by every use case
type env struct {
	repo      interfaces.Repository
	clock     func() time.Time
	publisher interfaces.EventPublisher
	resolver  interfaces.AttachmentResolver
}

func (e *env) now() time.Time {
	return e.clock().UTC()
}

func (e *env) publish(ctx context.Context, event *model.Event) {
	if e.publisher == nil {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = e.now()
	}
	e.publisher.Publish(ctx, event)
}

func (e *env) resolveAttachments(ctx context.Context, attachments []model.Attachment) ([]model.Attachment, error) {
	if e.resolver == nil || len(attachments) == 0 {
		return attachments, nil
	}
	return e.resolver.Resolve(ctx, attachments)
}

// Ping checks the repository backend is reachable
func (uc *UseCases) Ping(ctx context.Context) error {
	return uc.repo.Ping(ctx)
}
