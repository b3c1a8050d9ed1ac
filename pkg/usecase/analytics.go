package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

const (
	DefaultUrgentLimit = 10
	// calendarMaxRange bounds a single calendar query
	calendarMaxRange = 366 * 24 * time.Hour
)

type AnalyticsUseCase struct {
	*env
}

func (uc *AnalyticsUseCase) Statistics(ctx context.Context, orgID types.OrganizationID, actor auth.Principal) (*model.Statistics, error) {
	if _, err := uc.requireMember(ctx, orgID, actor); err != nil {
		return nil, err
	}
	tasks, err := uc.repo.Task().List(ctx, interfaces.TaskFilter{OrganizationID: orgID})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tasks", goerr.V(OrganizationIDKey, orgID))
	}
	return model.ComputeStatistics(tasks, uc.now()), nil
}

// Calendar groups the organization's tasks due in [from, to) by UTC date.
// A zero range covers the current calendar month.
func (uc *AnalyticsUseCase) Calendar(ctx context.Context, orgID types.OrganizationID, actor auth.Principal, from, to time.Time) ([]*model.CalendarDay, error) {
	if _, err := uc.requireMember(ctx, orgID, actor); err != nil {
		return nil, err
	}

	if from.IsZero() && to.IsZero() {
		now := uc.now()
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, 0)
	}
	if from.IsZero() || to.IsZero() {
		return nil, goerr.Wrap(ErrValidation, "both from and to are required")
	}
	if !to.After(from) {
		return nil, goerr.Wrap(ErrValidation, "to must be after from", goerr.V("from", from), goerr.V("to", to))
	}
	if to.Sub(from) > calendarMaxRange {
		return nil, goerr.Wrap(ErrValidation, "calendar range is too long", goerr.V("from", from), goerr.V("to", to))
	}

	tasks, err := uc.repo.Task().List(ctx, interfaces.TaskFilter{OrganizationID: orgID})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tasks", goerr.V(OrganizationIDKey, orgID))
	}

	inRange := make([]*model.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Deadline.Before(from) && t.Deadline.Before(to) {
			inRange = append(inRange, t)
		}
	}

	summaries, err := uc.summarize(ctx, inRange)
	if err != nil {
		return nil, err
	}
	return model.BuildCalendar(summaries), nil
}

// UrgentTasks returns the actor's open tasks across every organization that are
// overdue, critical or urgent
func (uc *AnalyticsUseCase) UrgentTasks(ctx context.Context, actor auth.Principal, limit int) ([]*model.TaskSummary, error) {
	if err := actor.Validate(); err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, err.Error())
	}
	if limit <= 0 {
		limit = DefaultUrgentLimit
	}

	tasks, err := uc.repo.Task().List(ctx, interfaces.TaskFilter{
		AssigneeID: actor.UserID,
		Statuses:   []types.TaskStatus{types.TaskStatusPending, types.TaskStatusInProgress},
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tasks", goerr.V(UserIDKey, actor.UserID))
	}

	summaries, err := uc.summarize(ctx, tasks)
	if err != nil {
		return nil, err
	}

	urgent := make([]*model.TaskSummary, 0, len(summaries))
	for _, s := range summaries {
		if s.Urgency.IsPressing() {
			urgent = append(urgent, s)
		}
		if len(urgent) == limit {
			break
		}
	}
	return urgent, nil
}
