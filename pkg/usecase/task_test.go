package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/usecase"
)

func TestTaskUseCase_CreateTask(t *testing.T) {
	t.Run("scenario A: ten hours left is critical", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(10*time.Hour), nil)

		gt.Value(t, task.Status).Equal(types.TaskStatusPending)
		gt.Value(t, task.Urgency).Equal(types.UrgencyCritical)
		gt.Value(t, task.CompletionPercentage).Equal(0)
		gt.Value(t, task.AssignerID).Equal(owner.UserID)

		assigned := f.events.notifications(types.NotificationTypeTaskAssigned)
		gt.Array(t, assigned).Length(1).Required()
		gt.Array(t, assigned[0].Recipients).Has(employee.UserID)
	})

	t.Run("priority defaults to medium", func(t *testing.T) {
		f := setup(t)
		task, err := f.uc.Task.CreateTask(context.Background(), f.orgID, owner, usecase.CreateTaskInput{
			AssigneeID: employee.UserID,
			Title:      "No priority",
			Deadline:   baseTime.Add(100 * time.Hour),
		})
		gt.NoError(t, err).Required()
		gt.Value(t, task.Priority).Equal(types.PriorityMedium)
	})

	tests := []struct {
		name  string
		actor func(f *fixture) error
		want  error
	}{
		{
			name: "member cannot create tasks",
			actor: func(f *fixture) error {
				_, err := f.uc.Task.CreateTask(context.Background(), f.orgID, employee, usecase.CreateTaskInput{
					AssigneeID: employee.UserID, Title: "x", Deadline: baseTime,
				})
				return err
			},
			want: usecase.ErrForbidden,
		},
		{
			name: "outsider cannot create tasks",
			actor: func(f *fixture) error {
				_, err := f.uc.Task.CreateTask(context.Background(), f.orgID, outsider, usecase.CreateTaskInput{
					AssigneeID: employee.UserID, Title: "x", Deadline: baseTime,
				})
				return err
			},
			want: usecase.ErrForbidden,
		},
		{
			name: "assignee must be a member",
			actor: func(f *fixture) error {
				_, err := f.uc.Task.CreateTask(context.Background(), f.orgID, owner, usecase.CreateTaskInput{
					AssigneeID: outsider.UserID, Title: "x", Deadline: baseTime,
				})
				return err
			},
			want: usecase.ErrValidation,
		},
		{
			name: "title is required",
			actor: func(f *fixture) error {
				_, err := f.uc.Task.CreateTask(context.Background(), f.orgID, owner, usecase.CreateTaskInput{
					AssigneeID: employee.UserID, Title: "  ", Deadline: baseTime,
				})
				return err
			},
			want: usecase.ErrValidation,
		},
		{
			name: "deadline is required",
			actor: func(f *fixture) error {
				_, err := f.uc.Task.CreateTask(context.Background(), f.orgID, owner, usecase.CreateTaskInput{
					AssigneeID: employee.UserID, Title: "x",
				})
				return err
			},
			want: usecase.ErrValidation,
		},
		{
			name: "unknown organization",
			actor: func(f *fixture) error {
				_, err := f.uc.Task.CreateTask(context.Background(), types.NewOrganizationID(), owner, usecase.CreateTaskInput{
					AssigneeID: employee.UserID, Title: "x", Deadline: baseTime,
				})
				return err
			},
			want: usecase.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			gt.Error(t, tt.actor(f)).Is(tt.want)
		})
	}
}

func TestTaskUseCase_ListTasks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	normal := f.createTask(t, baseTime.Add(200*time.Hour), nil)
	critical := f.createTask(t, baseTime.Add(5*time.Hour), nil)
	overdue := f.createTask(t, baseTime.Add(-time.Hour), nil)
	urgent := f.createTask(t, baseTime.Add(30*time.Hour), nil)

	tasks, err := f.uc.Task.ListTasks(ctx, f.orgID, employee, usecase.TaskListFilter{})
	gt.NoError(t, err).Required()
	gt.Array(t, tasks).Length(4).Required()
	gt.Value(t, tasks[0].ID).Equal(overdue.ID)
	gt.Value(t, tasks[1].ID).Equal(critical.ID)
	gt.Value(t, tasks[2].ID).Equal(urgent.ID)
	gt.Value(t, tasks[3].ID).Equal(normal.ID)

	t.Run("status filter", func(t *testing.T) {
		_, err := f.uc.Task.SetEstimate(ctx, urgent.ID, employee, 3)
		gt.NoError(t, err).Required()
		_, err = f.uc.Task.Start(ctx, urgent.ID, employee)
		gt.NoError(t, err).Required()

		started, err := f.uc.Task.ListTasks(ctx, f.orgID, owner, usecase.TaskListFilter{Status: types.TaskStatusInProgress})
		gt.NoError(t, err).Required()
		gt.Array(t, started).Length(1).Required()
		gt.Value(t, started[0].ID).Equal(urgent.ID)
	})

	t.Run("invalid status filter", func(t *testing.T) {
		_, err := f.uc.Task.ListTasks(ctx, f.orgID, owner, usecase.TaskListFilter{Status: "declined"})
		gt.Error(t, err).Is(usecase.ErrValidation)
	})

	t.Run("outsider is forbidden", func(t *testing.T) {
		_, err := f.uc.Task.ListTasks(ctx, f.orgID, outsider, usecase.TaskListFilter{})
		gt.Error(t, err).Is(usecase.ErrForbidden)
	})
}

func TestTaskUseCase_UpdateTask(t *testing.T) {
	ctx := context.Background()

	t.Run("assigner edits and reassigns", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), nil)

		_, err := f.uc.Task.Decline(ctx, task.ID, employee, "on vacation")
		gt.NoError(t, err).Required()

		other := employee
		other.UserID = "employee-2"
		inv, err := f.uc.Organization.Invite(ctx, f.orgID, owner, other.UserID)
		gt.NoError(t, err).Required()
		_, err = f.uc.Organization.AcceptInvitation(ctx, inv.ID, other)
		gt.NoError(t, err).Required()

		title := "Rewritten"
		updated, err := f.uc.Task.UpdateTask(ctx, task.ID, owner, usecase.UpdateTaskInput{
			Title:      &title,
			AssigneeID: &other.UserID,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Title).Equal(title)
		gt.Value(t, updated.AssigneeID).Equal(other.UserID)
		gt.Value(t, updated.DeclineReason).Equal("")
		gt.Array(t, f.events.notifications(types.NotificationTypeTaskAssigned)).Length(2)
	})

	t.Run("assignee cannot edit", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), nil)
		title := "mine now"
		_, err := f.uc.Task.UpdateTask(ctx, task.ID, employee, usecase.UpdateTaskInput{Title: &title})
		gt.Error(t, err).Is(usecase.ErrForbidden)
	})

	t.Run("completed task cannot be edited", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), hours(1))
		_, err := f.uc.Task.Complete(ctx, task.ID, employee, "done", nil)
		gt.NoError(t, err).Required()

		title := "late edit"
		_, err = f.uc.Task.UpdateTask(ctx, task.ID, owner, usecase.UpdateTaskInput{Title: &title})
		gt.Error(t, err).Is(usecase.ErrConflict)
	})
}

func TestTaskUseCase_DeleteTask(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	task := f.createTask(t, baseTime.Add(100*time.Hour), nil)
	_, err := f.uc.Stage.AddStage(ctx, task.ID, owner, "draft")
	gt.NoError(t, err).Required()

	gt.Error(t, f.uc.Task.DeleteTask(ctx, task.ID, employee)).Is(usecase.ErrForbidden)
	gt.NoError(t, f.uc.Task.DeleteTask(ctx, task.ID, owner)).Required()

	_, err = f.uc.Task.GetTask(ctx, task.ID, owner)
	gt.Error(t, err).Is(usecase.ErrNotFound)

	stages, err := f.repo.Stage().ListByTask(ctx, task.ID)
	gt.NoError(t, err).Required()
	gt.Array(t, stages).Length(0)
}

func TestTaskUseCase_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("scenario B: start without estimate is rejected", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), nil)

		_, err := f.uc.Task.Start(ctx, task.ID, employee)
		gt.Error(t, err).Is(usecase.ErrValidation)

		stored, err := f.uc.Task.GetTask(ctx, task.ID, employee)
		gt.NoError(t, err).Required()
		gt.Value(t, stored.Status).Equal(types.TaskStatusPending)
		gt.Value(t, stored.StartedAt).Nil()
	})

	t.Run("start after estimate", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), nil)

		_, err := f.uc.Task.SetEstimate(ctx, task.ID, employee, 4)
		gt.NoError(t, err).Required()
		f.clock.Advance(time.Hour)

		started, err := f.uc.Task.Start(ctx, task.ID, employee)
		gt.NoError(t, err).Required()
		gt.Value(t, started.Status).Equal(types.TaskStatusInProgress)
		gt.Value(t, *started.StartedAt).Equal(baseTime.Add(time.Hour))

		events := f.events.notifications(types.NotificationTypeTaskStarted)
		gt.Array(t, events).Length(1).Required()
		gt.Array(t, events[0].Recipients).Has(owner.UserID)
	})

	t.Run("only the assignee can start", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), hours(1))
		_, err := f.uc.Task.Start(ctx, task.ID, owner)
		gt.Error(t, err).Is(usecase.ErrForbidden)
	})

	t.Run("second start is a conflict", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), hours(1))
		_, err := f.uc.Task.Start(ctx, task.ID, employee)
		gt.NoError(t, err).Required()
		_, err = f.uc.Task.Start(ctx, task.ID, employee)
		gt.Error(t, err).Is(usecase.ErrConflict)
	})

	t.Run("scenario D: concurrent starts have exactly one winner", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), hours(1))

		const callers = 8
		var wg sync.WaitGroup
		errs := make([]error, callers)
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = f.uc.Task.Start(ctx, task.ID, employee)
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			gt.Error(t, err).Is(usecase.ErrConflict)
		}
		gt.Value(t, succeeded).Equal(1)
		gt.Array(t, f.events.notifications(types.NotificationTypeTaskStarted)).Length(1)
	})
}

func TestTaskUseCase_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("scenario C: completion keeps stage percentage", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), hours(5))
		_, err := f.uc.Task.Start(ctx, task.ID, employee)
		gt.NoError(t, err).Required()

		completedStatus := types.StageStatusCompleted
		for i, name := range []string{"research", "draft", "review"} {
			stage, err := f.uc.Stage.AddStage(ctx, task.ID, employee, name)
			gt.NoError(t, err).Required()
			if i < 2 {
				_, err = f.uc.Stage.UpdateStage(ctx, stage.ID, employee, usecase.UpdateStageInput{Status: &completedStatus})
				gt.NoError(t, err).Required()
			}
		}

		f.clock.Advance(3 * time.Hour)
		report, err := f.uc.Task.Complete(ctx, task.ID, employee, "all done", []model.Attachment{
			{Name: "report.pdf", URL: "https://example.com/report.pdf"},
		})
		gt.NoError(t, err).Required()
		gt.Value(t, report.TaskID).Equal(task.ID)
		gt.Value(t, report.AuthorID).Equal(employee.UserID)

		stored, err := f.uc.Task.GetTask(ctx, task.ID, owner)
		gt.NoError(t, err).Required()
		gt.Value(t, stored.Status).Equal(types.TaskStatusCompleted)
		gt.Value(t, *stored.ActualCompletedAt).Equal(baseTime.Add(3 * time.Hour))
		gt.Value(t, stored.CompletionPercentage).Equal(67)
		gt.Value(t, stored.Urgency).Equal(types.UrgencyNone)

		reports, err := f.uc.Task.ListReports(ctx, task.ID, owner)
		gt.NoError(t, err).Required()
		gt.Array(t, reports).Length(1).Required()
		gt.Array(t, reports[0].Attachments).Length(1)

		gt.Array(t, f.events.notifications(types.NotificationTypeTaskCompleted)).Length(1)
	})

	t.Run("pending task can be completed directly", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), nil)
		_, err := f.uc.Task.Complete(ctx, task.ID, employee, "quick fix", nil)
		gt.NoError(t, err)
	})

	t.Run("completing twice is a conflict", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), nil)
		_, err := f.uc.Task.Complete(ctx, task.ID, employee, "done", nil)
		gt.NoError(t, err).Required()
		_, err = f.uc.Task.Complete(ctx, task.ID, employee, "again", nil)
		gt.Error(t, err).Is(usecase.ErrConflict)
	})

	t.Run("report text is required", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), nil)
		_, err := f.uc.Task.Complete(ctx, task.ID, employee, " ", nil)
		gt.Error(t, err).Is(usecase.ErrValidation)
	})

	t.Run("rejected completion write leaves no partial update", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), nil)

		failing := usecase.New(&failingCompleteRepo{Repository: f.repo},
			usecase.WithClock(f.clock.Now))
		_, err := failing.Task.Complete(ctx, task.ID, employee, "done", nil)
		gt.Value(t, err).NotNil()

		stored, err := f.uc.Task.GetTask(ctx, task.ID, owner)
		gt.NoError(t, err).Required()
		gt.Value(t, stored.Status).Equal(types.TaskStatusPending)
		gt.Value(t, stored.ActualCompletedAt).Nil()

		reports, err := f.uc.Task.ListReports(ctx, task.ID, owner)
		gt.NoError(t, err).Required()
		gt.Array(t, reports).Length(0)
	})

	t.Run("missing attachment object is a validation error", func(t *testing.T) {
		f := setup(t, usecase.WithAttachmentResolver(&missingResolver{}))
		task := f.createTask(t, baseTime.Add(100*time.Hour), nil)
		_, err := f.uc.Task.Complete(ctx, task.ID, employee, "done", []model.Attachment{
			{Name: "gone.txt", URL: "gs://bucket/gone.txt"},
		})
		gt.Error(t, err).Is(usecase.ErrValidation)
	})
}

func TestTaskUseCase_Start_InterleavedWrite(t *testing.T) {
	ctx := context.Background()
	second := auth.Principal{UserID: "employee-2", Name: "Second Employee"}

	testCases := []struct {
		name   string
		write  func(t *testing.T, f *fixture, taskID types.TaskID)
		verify func(t *testing.T, stored *model.TaskSummary)
	}{
		{
			name: "reassignment wins over a start based on the old assignee",
			write: func(t *testing.T, f *fixture, taskID types.TaskID) {
				_, err := f.uc.Task.UpdateTask(ctx, taskID, owner, usecase.UpdateTaskInput{AssigneeID: &second.UserID})
				gt.NoError(t, err).Required()
			},
			verify: func(t *testing.T, stored *model.TaskSummary) {
				gt.Value(t, stored.AssigneeID).Equal(second.UserID)
			},
		},
		{
			name: "decline wins over a start read before it",
			write: func(t *testing.T, f *fixture, taskID types.TaskID) {
				_, err := f.uc.Task.Decline(ctx, taskID, employee, "no capacity")
				gt.NoError(t, err).Required()
			},
			verify: func(t *testing.T, stored *model.TaskSummary) {
				gt.Value(t, stored.DeclineReason).Equal("no capacity")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t)
			inv, err := f.uc.Organization.Invite(ctx, f.orgID, owner, second.UserID)
			gt.NoError(t, err).Required()
			_, err = f.uc.Organization.AcceptInvitation(ctx, inv.ID, second)
			gt.NoError(t, err).Required()

			task := f.createTask(t, baseTime.Add(100*time.Hour), hours(4))
			repo := &interleavingRepo{Repository: f.repo, before: func() { tc.write(t, f, task.ID) }}
			racing := usecase.New(repo, usecase.WithClock(f.clock.Now))

			_, err = racing.Task.Start(ctx, task.ID, employee)
			gt.Error(t, err).Is(usecase.ErrConflict)

			stored, err := f.uc.Task.GetTask(ctx, task.ID, owner)
			gt.NoError(t, err).Required()
			gt.Value(t, stored.Status).Equal(types.TaskStatusPending)
			gt.Value(t, stored.StartedAt).Nil()
			tc.verify(t, stored)
		})
	}
}

func TestTaskUseCase_Decline(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	task := f.createTask(t, baseTime.Add(100*time.Hour), nil)

	_, err := f.uc.Task.Decline(ctx, task.ID, employee, "")
	gt.Error(t, err).Is(usecase.ErrValidation)
	_, err = f.uc.Task.Decline(ctx, task.ID, owner, "not mine")
	gt.Error(t, err).Is(usecase.ErrForbidden)

	declined, err := f.uc.Task.Decline(ctx, task.ID, employee, "no capacity")
	gt.NoError(t, err).Required()
	gt.Value(t, declined.DeclineReason).Equal("no capacity")
	gt.Value(t, declined.Status).Equal(types.TaskStatusPending)

	events := f.events.notifications(types.NotificationTypeTaskDeclined)
	gt.Array(t, events).Length(1).Required()
	gt.Array(t, events[0].Recipients).Has(owner.UserID)
}

func TestTaskUseCase_SetEstimate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	task := f.createTask(t, baseTime.Add(100*time.Hour), nil)

	_, err := f.uc.Task.SetEstimate(ctx, task.ID, employee, 0)
	gt.Error(t, err).Is(usecase.ErrValidation)
	_, err = f.uc.Task.SetEstimate(ctx, task.ID, outsider, 2)
	gt.Error(t, err).Is(usecase.ErrForbidden)

	_, err = f.uc.Task.SetEstimate(ctx, task.ID, employee, 2)
	gt.NoError(t, err).Required()
	updated, err := f.uc.Task.SetEstimate(ctx, task.ID, owner, 3.5)
	gt.NoError(t, err).Required()
	gt.Value(t, *updated.EstimatedCompletionHours).Equal(3.5)

	_, err = f.uc.Task.Complete(ctx, task.ID, employee, "done", nil)
	gt.NoError(t, err).Required()
	_, err = f.uc.Task.SetEstimate(ctx, task.ID, employee, 1)
	gt.Error(t, err).Is(usecase.ErrConflict)
}

// failingCompleteRepo rejects every completion write, so the usecase has
// nothing to persist on its own
type failingCompleteRepo struct {
	interfaces.Repository
}

func (r *failingCompleteRepo) Task() interfaces.TaskRepository {
	return &failingCompleteTasks{TaskRepository: r.Repository.Task()}
}

type failingCompleteTasks struct {
	interfaces.TaskRepository
}

func (r *failingCompleteTasks) Complete(ctx context.Context, task *model.Task, expected types.TaskStatus, report *model.TaskReport) error {
	return errors.New("report insert failed")
}

// interleavingRepo runs before once, between the usecase's read and its write
type interleavingRepo struct {
	interfaces.Repository
	before func()
	once   sync.Once
}

func (r *interleavingRepo) Task() interfaces.TaskRepository {
	return &interleavingTasks{TaskRepository: r.Repository.Task(), repo: r}
}

type interleavingTasks struct {
	interfaces.TaskRepository
	repo *interleavingRepo
}

func (r *interleavingTasks) Update(ctx context.Context, task *model.Task, expected types.TaskStatus) error {
	r.repo.once.Do(r.repo.before)
	return r.TaskRepository.Update(ctx, task, expected)
}

type missingResolver struct{}

func (r *missingResolver) Resolve(ctx context.Context, attachments []model.Attachment) ([]model.Attachment, error) {
	return nil, interfaces.ErrAttachmentNotFound
}
