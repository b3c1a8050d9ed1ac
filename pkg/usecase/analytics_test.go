package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/usecase"
)

func TestAnalyticsUseCase_Statistics(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	f.createTask(t, baseTime.Add(-time.Hour), nil)
	onTime := f.createTask(t, baseTime.Add(10*time.Hour), hours(2))
	f.createTask(t, baseTime.Add(200*time.Hour), nil)

	_, err := f.uc.Task.Start(ctx, onTime.ID, employee)
	gt.NoError(t, err).Required()
	f.clock.Advance(4 * time.Hour)
	_, err = f.uc.Task.Complete(ctx, onTime.ID, employee, "done", nil)
	gt.NoError(t, err).Required()

	stats, err := f.uc.Analytics.Statistics(ctx, f.orgID, owner)
	gt.NoError(t, err).Required()
	gt.Value(t, stats.TotalTasks).Equal(3)
	gt.Value(t, stats.ByStatus[types.TaskStatusCompleted]).Equal(1)
	gt.Value(t, stats.OverdueCount).Equal(1)
	gt.Value(t, *stats.AverageActualHours).Equal(4.0)
	gt.Value(t, *stats.OnTimeCompletionRate).Equal(1.0)
	gt.Value(t, stats.CompletedByAssignee[employee.UserID]).Equal(1)

	_, err = f.uc.Analytics.Statistics(ctx, f.orgID, outsider)
	gt.Error(t, err).Is(usecase.ErrForbidden)
}

func TestAnalyticsUseCase_Calendar(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	f.createTask(t, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), nil)
	f.createTask(t, time.Date(2026, 3, 3, 17, 0, 0, 0, time.UTC), nil)
	f.createTask(t, time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC), nil)
	f.createTask(t, time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC), nil)

	t.Run("defaults to the current month", func(t *testing.T) {
		days, err := f.uc.Analytics.Calendar(ctx, f.orgID, employee, time.Time{}, time.Time{})
		gt.NoError(t, err).Required()
		gt.Array(t, days).Length(2).Required()
		gt.Value(t, days[0].Date).Equal("2026-03-03")
		gt.Array(t, days[0].Tasks).Length(2)
		gt.Value(t, days[0].WorstUrgency).Equal(types.UrgencyUrgent)
		gt.Value(t, days[1].Date).Equal("2026-03-20")
	})

	t.Run("explicit range", func(t *testing.T) {
		from := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
		days, err := f.uc.Analytics.Calendar(ctx, f.orgID, employee, from, to)
		gt.NoError(t, err).Required()
		gt.Array(t, days).Length(2)
	})

	t.Run("range must be ordered", func(t *testing.T) {
		_, err := f.uc.Analytics.Calendar(ctx, f.orgID, employee, baseTime, baseTime.Add(-time.Hour))
		gt.Error(t, err).Is(usecase.ErrValidation)
		_, err = f.uc.Analytics.Calendar(ctx, f.orgID, employee, baseTime, time.Time{})
		gt.Error(t, err).Is(usecase.ErrValidation)
	})
}

func TestAnalyticsUseCase_UrgentTasks(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	overdue := f.createTask(t, baseTime.Add(-time.Hour), nil)
	urgent := f.createTask(t, baseTime.Add(50*time.Hour), nil)
	critical := f.createTask(t, baseTime.Add(3*time.Hour), nil)
	f.createTask(t, baseTime.Add(300*time.Hour), nil)
	completed := f.createTask(t, baseTime.Add(2*time.Hour), nil)
	_, err := f.uc.Task.Complete(ctx, completed.ID, employee, "done", nil)
	gt.NoError(t, err).Required()

	tasks, err := f.uc.Analytics.UrgentTasks(ctx, employee, 0)
	gt.NoError(t, err).Required()
	gt.Array(t, tasks).Length(3).Required()
	gt.Value(t, tasks[0].ID).Equal(overdue.ID)
	gt.Value(t, tasks[1].ID).Equal(critical.ID)
	gt.Value(t, tasks[2].ID).Equal(urgent.ID)

	limited, err := f.uc.Analytics.UrgentTasks(ctx, employee, 1)
	gt.NoError(t, err).Required()
	gt.Array(t, limited).Length(1)

	none, err := f.uc.Analytics.UrgentTasks(ctx, owner, 0)
	gt.NoError(t, err).Required()
	gt.Array(t, none).Length(0)
}
