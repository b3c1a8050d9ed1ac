package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/utils/logging"
)

// DeadlineWorker periodically classifies open tasks and announces the ones
// whose urgency bucket changed since the previous sweep
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - Observed buckets live in memory, so a restart re-learns them without publishing
type DeadlineWorker struct {
	repo      interfaces.Repository
	publisher interfaces.EventPublisher
	interval  time.Duration
	clock     func() time.Time

	observed map[types.TaskID]types.Urgency
	stopCh   chan struct{}
	doneCh   chan struct{}
}

type DeadlineOption func(*DeadlineWorker)

// WithDeadlineClock replaces time.Now, mostly for tests
func WithDeadlineClock(clock func() time.Time) DeadlineOption {
	return func(w *DeadlineWorker) {
		w.clock = clock
	}
}

// NewDeadlineWorker creates a new worker sweeping task deadlines
func NewDeadlineWorker(repo interfaces.Repository, publisher interfaces.EventPublisher, interval time.Duration, opts ...DeadlineOption) *DeadlineWorker {
	w := &DeadlineWorker{
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		clock:     time.Now,
		observed:  make(map[types.TaskID]types.Urgency),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the background sweep loop. It does not block server startup.
func (w *DeadlineWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return goerr.New("deadline sweep interval must be positive", goerr.V("interval", w.interval))
	}
	logging.Default().Info("Deadline worker starting", "interval", w.interval.String())

	go w.run(ctx)
	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *DeadlineWorker) Stop() {
	logging.Default().Info("Deadline worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Deadline worker stopped")
}

func (w *DeadlineWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if _, err := w.Sweep(ctx); err != nil {
		logging.Default().Error("Initial deadline sweep failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				logging.Default().Error("Deadline sweep failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("Deadline worker context cancelled")
			return
		}
	}
}

// Sweep runs a single cycle and returns the number of events published.
// It must not be called concurrently with the background loop.
func (w *DeadlineWorker) Sweep(ctx context.Context) (int, error) {
	tasks, err := w.repo.Task().List(ctx, interfaces.TaskFilter{
		Statuses: []types.TaskStatus{types.TaskStatusPending, types.TaskStatusInProgress},
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list open tasks")
	}

	now := w.clock().UTC()
	seen := make(map[types.TaskID]struct{}, len(tasks))
	published := 0

	for _, t := range tasks {
		seen[t.ID] = struct{}{}
		urgency := model.ClassifyUrgency(t.Deadline, t.Status, now)

		prev, known := w.observed[t.ID]
		w.observed[t.ID] = urgency
		if !known || prev == urgency {
			continue
		}

		if w.publisher != nil {
			w.publisher.Publish(ctx, &model.Event{
				Type:           types.EventTypeNotification,
				OrganizationID: t.OrganizationID,
				Notification: &model.EventNotification{
					Type:    types.NotificationTypeTaskDeadline,
					ID:      t.ID.String(),
					Title:   t.Title,
					Urgency: urgency,
				},
				CreatedAt: now,
			})
		}
		published++
	}

	// Completed and deleted tasks leave the open set
	for id := range w.observed {
		if _, ok := seen[id]; !ok {
			delete(w.observed, id)
		}
	}

	logging.From(ctx).Debug("Deadline sweep completed", "tasks", len(tasks), "published", published)
	return published, nil
}
