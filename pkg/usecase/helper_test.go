package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/repository/memory"
	"github.com/secmon-lab/teamtask/pkg/usecase"
)

var (
	baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	owner    = auth.Principal{UserID: "employer-1", Name: "Employer"}
	employee = auth.Principal{UserID: "employee-1", Name: "Employee"}
	outsider = auth.Principal{UserID: "outsider-1", Name: "Outsider"}
)

// recorder captures published events
type recorder struct {
	mu     sync.Mutex
	events []*model.Event
}

func (r *recorder) Publish(ctx context.Context, event *model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) notifications(kind types.NotificationType) []*model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*model.Event
	for _, e := range r.events {
		if e.Notification != nil && e.Notification.Type == kind {
			found = append(found, e)
		}
	}
	return found
}

func (r *recorder) ofType(kind types.EventType) []*model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []*model.Event
	for _, e := range r.events {
		if e.Type == kind {
			found = append(found, e)
		}
	}
	return found
}

// clock is a settable fixed clock
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	uc     *usecase.UseCases
	repo   *memory.Memory
	events *recorder
	clock  *clock
	orgID  types.OrganizationID
}

// setup creates an organization owned by owner with employee as a member
func setup(t *testing.T, opts ...usecase.Option) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		repo:   memory.New(),
		events: &recorder{},
		clock:  &clock{now: baseTime},
	}
	opts = append([]usecase.Option{
		usecase.WithClock(f.clock.Now),
		usecase.WithPublisher(f.events),
	}, opts...)
	f.uc = usecase.New(f.repo, opts...)

	org, err := f.uc.Organization.CreateOrganization(ctx, owner, "Acme", "test org")
	gt.NoError(t, err).Required()
	f.orgID = org.ID

	inv, err := f.uc.Organization.Invite(ctx, org.ID, owner, employee.UserID)
	gt.NoError(t, err).Required()
	_, err = f.uc.Organization.AcceptInvitation(ctx, inv.ID, employee)
	gt.NoError(t, err).Required()

	return f
}

func (f *fixture) createTask(t *testing.T, deadline time.Time, estimate *float64) *model.TaskSummary {
	t.Helper()
	task, err := f.uc.Task.CreateTask(context.Background(), f.orgID, owner, usecase.CreateTaskInput{
		AssigneeID:               employee.UserID,
		Title:                    "Write report",
		Description:              "quarterly numbers",
		Priority:                 types.PriorityHigh,
		Deadline:                 deadline,
		EstimatedCompletionHours: estimate,
	})
	gt.NoError(t, err).Required()
	return task
}

func hours(v float64) *float64 { return &v }
