package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

func runTaskRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	users := func() (types.UserID, types.UserID) {
		suffix := types.NewOrganizationID().String()
		return types.UserID("assigner-" + suffix), types.UserID("assignee-" + suffix)
	}

	t.Run("Create and Get round trip", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		assigner, assignee := users()
		org := setupOrganization(t, repo, assigner, assignee)

		task := newTestTask(org.ID, assigner, assignee)
		estimate := 6.5
		task.EstimatedCompletionHours = &estimate
		gt.NoError(t, repo.Task().Create(ctx, task)).Required()

		got, err := repo.Task().Get(ctx, task.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Title).Equal(task.Title)
		gt.Value(t, got.Status).Equal(types.TaskStatusPending)
		gt.Value(t, got.Priority).Equal(types.PriorityHigh)
		gt.Bool(t, got.Deadline.Equal(task.Deadline)).True()
		gt.Value(t, got.StartedAt).Nil()
		gt.Value(t, got.EstimatedCompletionHours).NotNil()
		gt.Value(t, *got.EstimatedCompletionHours).Equal(6.5)

		err = repo.Task().Create(ctx, task)
		gt.Error(t, err).Is(interfaces.ErrAlreadyExists)
	})

	t.Run("Get returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Task().Get(context.Background(), types.NewTaskID())
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("List applies filters", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		assigner, assignee := users()
		org := setupOrganization(t, repo, assigner, assignee)

		pending := newTestTask(org.ID, assigner, assignee)
		started := newTestTask(org.ID, assigner, assignee)
		started.Status = types.TaskStatusInProgress
		reverse := newTestTask(org.ID, assignee, assigner)
		for _, task := range []*model.Task{pending, started, reverse} {
			gt.NoError(t, repo.Task().Create(ctx, task)).Required()
		}

		all, err := repo.Task().List(ctx, interfaces.TaskFilter{OrganizationID: org.ID})
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(3)

		mine, err := repo.Task().List(ctx, interfaces.TaskFilter{AssigneeID: assignee})
		gt.NoError(t, err).Required()
		gt.Array(t, mine).Length(2)

		inProgress, err := repo.Task().List(ctx, interfaces.TaskFilter{
			AssigneeID: assignee,
			Statuses:   []types.TaskStatus{types.TaskStatusInProgress},
		})
		gt.NoError(t, err).Required()
		gt.Array(t, inProgress).Length(1)
		gt.Value(t, inProgress[0].ID).Equal(started.ID)

		assigned, err := repo.Task().List(ctx, interfaces.TaskFilter{AssignerID: assignee})
		gt.NoError(t, err).Required()
		gt.Array(t, assigned).Length(1)
		gt.Value(t, assigned[0].ID).Equal(reverse.ID)
	})

	t.Run("Update rejects stale expected status", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		assigner, assignee := users()
		org := setupOrganization(t, repo, assigner, assignee)

		task := newTestTask(org.ID, assigner, assignee)
		gt.NoError(t, repo.Task().Create(ctx, task)).Required()

		startedAt := now()
		task.Status = types.TaskStatusInProgress
		task.StartedAt = &startedAt
		gt.NoError(t, repo.Task().Update(ctx, task, types.TaskStatusPending)).Required()

		// A second writer that still believes the task is pending loses
		task.Title = "stale write"
		err := repo.Task().Update(ctx, task, types.TaskStatusPending)
		gt.Error(t, err).Is(interfaces.ErrStatusMismatch)

		got, err := repo.Task().Get(ctx, task.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.TaskStatusInProgress)
		gt.Value(t, got.Title).Equal("Rotate credentials")
		gt.Value(t, got.StartedAt).NotNil()
	})

	t.Run("Update rejects write based on an outdated version", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		assigner, assignee := users()
		org := setupOrganization(t, repo, assigner, assignee)

		task := newTestTask(org.ID, assigner, assignee)
		gt.NoError(t, repo.Task().Create(ctx, task)).Required()

		starter, err := repo.Task().Get(ctx, task.ID)
		gt.NoError(t, err).Required()
		decliner, err := repo.Task().Get(ctx, task.ID)
		gt.NoError(t, err).Required()

		// Decline keeps the status, so only the version tells the writes apart
		decliner.DeclineReason = "no capacity"
		gt.NoError(t, repo.Task().Update(ctx, decliner, types.TaskStatusPending)).Required()
		gt.Value(t, decliner.Version).Equal(task.Version + 1)

		startedAt := now()
		starter.Status = types.TaskStatusInProgress
		starter.StartedAt = &startedAt
		err = repo.Task().Update(ctx, starter, types.TaskStatusPending)
		gt.Error(t, err).Is(interfaces.ErrStatusMismatch)
		gt.Value(t, starter.Version).Equal(task.Version)

		got, err := repo.Task().Get(ctx, task.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.TaskStatusPending)
		gt.Value(t, got.DeclineReason).Equal("no capacity")
		gt.Value(t, got.StartedAt).Nil()
		gt.Value(t, got.Version).Equal(decliner.Version)

		// Re-reading picks up the new version and the write goes through
		got.Status = types.TaskStatusInProgress
		got.StartedAt = &startedAt
		gt.NoError(t, repo.Task().Update(ctx, got, types.TaskStatusPending)).Required()
	})

	t.Run("Complete rejects write based on an outdated version", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		assigner, assignee := users()
		org := setupOrganization(t, repo, assigner, assignee)

		task := newTestTask(org.ID, assigner, assignee)
		task.Status = types.TaskStatusInProgress
		gt.NoError(t, repo.Task().Create(ctx, task)).Required()

		completer, err := repo.Task().Get(ctx, task.ID)
		gt.NoError(t, err).Required()

		task.AssigneeID = assigner
		gt.NoError(t, repo.Task().Update(ctx, task, types.TaskStatusInProgress)).Required()

		completedAt := now()
		completer.Status = types.TaskStatusCompleted
		completer.ActualCompletedAt = &completedAt
		err = repo.Task().Complete(ctx, completer, types.TaskStatusInProgress, &model.TaskReport{
			ID: types.NewReportID(), TaskID: task.ID, AuthorID: assignee, Text: "done", CreatedAt: completedAt,
		})
		gt.Error(t, err).Is(interfaces.ErrStatusMismatch)

		got, err := repo.Task().Get(ctx, task.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.TaskStatusInProgress)
		gt.Value(t, got.AssigneeID).Equal(assigner)

		reports, err := repo.Task().ListReports(ctx, task.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, reports).Length(0)
	})

	t.Run("Update of unknown task returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)
		task := newTestTask(types.NewOrganizationID(), "a", "b")
		err := repo.Task().Update(context.Background(), task, types.TaskStatusPending)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("Complete stores task and report together", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		assigner, assignee := users()
		org := setupOrganization(t, repo, assigner, assignee)

		task := newTestTask(org.ID, assigner, assignee)
		task.Status = types.TaskStatusInProgress
		gt.NoError(t, repo.Task().Create(ctx, task)).Required()

		completedAt := now()
		task.Status = types.TaskStatusCompleted
		task.ActualCompletedAt = &completedAt
		report := &model.TaskReport{
			ID:       types.NewReportID(),
			TaskID:   task.ID,
			AuthorID: assignee,
			Text:     "Rotated and verified",
			Attachments: []model.Attachment{
				{Name: "log.txt", URL: "gs://bucket/log.txt"},
			},
			CreatedAt: completedAt,
		}
		gt.NoError(t, repo.Task().Complete(ctx, task, types.TaskStatusInProgress, report)).Required()

		got, err := repo.Task().Get(ctx, task.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.TaskStatusCompleted)
		gt.Value(t, got.ActualCompletedAt).NotNil()

		reports, err := repo.Task().ListReports(ctx, task.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, reports).Length(1)
		gt.Value(t, reports[0].Text).Equal("Rotated and verified")
		gt.Array(t, reports[0].Attachments).Length(1)
		gt.Value(t, reports[0].Attachments[0].URL).Equal("gs://bucket/log.txt")
	})

	t.Run("Complete leaves task untouched when report insert fails", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		assigner, assignee := users()
		org := setupOrganization(t, repo, assigner, assignee)

		first := newTestTask(org.ID, assigner, assignee)
		first.Status = types.TaskStatusInProgress
		second := newTestTask(org.ID, assigner, assignee)
		second.Status = types.TaskStatusInProgress
		gt.NoError(t, repo.Task().Create(ctx, first)).Required()
		gt.NoError(t, repo.Task().Create(ctx, second)).Required()

		reportID := types.NewReportID()
		first.Status = types.TaskStatusCompleted
		gt.NoError(t, repo.Task().Complete(ctx, first, types.TaskStatusInProgress, &model.TaskReport{
			ID: reportID, TaskID: first.ID, AuthorID: assignee, Text: "done", CreatedAt: now(),
		})).Required()

		// Reusing the report ID makes the insert fail, so the status change must roll back
		second.Status = types.TaskStatusCompleted
		err := repo.Task().Complete(ctx, second, types.TaskStatusInProgress, &model.TaskReport{
			ID: reportID, TaskID: second.ID, AuthorID: assignee, Text: "done", CreatedAt: now(),
		})
		gt.Error(t, err).Is(interfaces.ErrAlreadyExists)

		got, err := repo.Task().Get(ctx, second.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.TaskStatusInProgress)

		reports, err := repo.Task().ListReports(ctx, second.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, reports).Length(0)
	})

	t.Run("Delete cascades to stages and reports", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		assigner, assignee := users()
		org := setupOrganization(t, repo, assigner, assignee)

		task := newTestTask(org.ID, assigner, assignee)
		gt.NoError(t, repo.Task().Create(ctx, task)).Required()
		stage := &model.TaskStage{
			ID: types.NewStageID(), TaskID: task.ID, Name: "Plan",
			Status: types.StageStatusPending, CreatedAt: now(), UpdatedAt: now(),
		}
		gt.NoError(t, repo.Stage().Create(ctx, stage)).Required()

		gt.NoError(t, repo.Task().Delete(ctx, task.ID)).Required()

		_, err := repo.Task().Get(ctx, task.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
		_, err = repo.Stage().Get(ctx, stage.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)

		err = repo.Task().Delete(ctx, task.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})
}

func runStageRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	setup := func(t *testing.T, repo interfaces.Repository) *model.Task {
		suffix := types.NewOrganizationID().String()
		assigner := types.UserID("assigner-" + suffix)
		assignee := types.UserID("assignee-" + suffix)
		org := setupOrganization(t, repo, assigner, assignee)
		task := newTestTask(org.ID, assigner, assignee)
		gt.NoError(t, repo.Task().Create(context.Background(), task)).Required()
		return task
	}

	addStage := func(t *testing.T, repo interfaces.Repository, taskID types.TaskID, name string, idx int) *model.TaskStage {
		ts := now().Add(time.Duration(idx) * time.Millisecond)
		stage := &model.TaskStage{
			ID:         types.NewStageID(),
			TaskID:     taskID,
			Name:       name,
			OrderIndex: idx,
			Status:     types.StageStatusPending,
			CreatedAt:  ts,
			UpdatedAt:  ts,
		}
		gt.NoError(t, repo.Stage().Create(context.Background(), stage)).Required()
		return stage
	}

	t.Run("Create requires an existing task", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Stage().Create(context.Background(), &model.TaskStage{
			ID: types.NewStageID(), TaskID: types.NewTaskID(), Name: "orphan",
			Status: types.StageStatusPending, CreatedAt: now(), UpdatedAt: now(),
		})
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("ListByTask orders by index", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		task := setup(t, repo)

		addStage(t, repo, task.ID, "Verify", 2)
		addStage(t, repo, task.ID, "Plan", 0)
		addStage(t, repo, task.ID, "Execute", 1)

		stages, err := repo.Stage().ListByTask(ctx, task.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, stages).Length(3)
		gt.Value(t, stages[0].Name).Equal("Plan")
		gt.Value(t, stages[1].Name).Equal("Execute")
		gt.Value(t, stages[2].Name).Equal("Verify")
	})

	t.Run("ListByTasks groups stages", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		task1 := setup(t, repo)
		task2 := setup(t, repo)

		addStage(t, repo, task1.ID, "A", 0)
		addStage(t, repo, task1.ID, "B", 1)
		addStage(t, repo, task2.ID, "C", 0)

		grouped, err := repo.Stage().ListByTasks(ctx, []types.TaskID{task1.ID, task2.ID, types.NewTaskID()})
		gt.NoError(t, err).Required()
		gt.Array(t, grouped[task1.ID]).Length(2)
		gt.Array(t, grouped[task2.ID]).Length(1)

		empty, err := repo.Stage().ListByTasks(ctx, nil)
		gt.NoError(t, err).Required()
		gt.Number(t, len(empty)).Equal(0)
	})

	t.Run("Update changes status", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		task := setup(t, repo)
		stage := addStage(t, repo, task.ID, "Plan", 0)

		stage.Status = types.StageStatusCompleted
		stage.Name = "Plan rollout"
		gt.NoError(t, repo.Stage().Update(ctx, stage)).Required()

		got, err := repo.Stage().Get(ctx, stage.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.StageStatusCompleted)
		gt.Value(t, got.Name).Equal("Plan rollout")
	})

	t.Run("Swap exchanges order indices", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		task := setup(t, repo)
		a := addStage(t, repo, task.ID, "A", 0)
		b := addStage(t, repo, task.ID, "B", 1)

		movedAt := now().Add(time.Hour)
		gt.NoError(t, repo.Stage().Swap(ctx, a.ID, b.ID, movedAt)).Required()

		stages, err := repo.Stage().ListByTask(ctx, task.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, stages[0].ID).Equal(b.ID)
		gt.Value(t, stages[0].OrderIndex).Equal(0)
		gt.Value(t, stages[1].ID).Equal(a.ID)
		gt.Value(t, stages[1].OrderIndex).Equal(1)
		for _, s := range stages {
			gt.Bool(t, s.UpdatedAt.Equal(movedAt)).True()
		}

		err = repo.Stage().Swap(ctx, a.ID, types.NewStageID(), movedAt)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
	})

	t.Run("Delete removes stage", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		task := setup(t, repo)
		stage := addStage(t, repo, task.ID, "Plan", 0)

		gt.NoError(t, repo.Stage().Delete(ctx, stage.ID)).Required()
		_, err := repo.Stage().Get(ctx, stage.ID)
		gt.Error(t, err).Is(interfaces.ErrNotFound)
		gt.Error(t, repo.Stage().Delete(ctx, stage.ID)).Is(interfaces.ErrNotFound)
	})
}

func TestTaskRepository(t *testing.T) {
	forEachBackend(t, runTaskRepositoryTest)
}

func TestStageRepository(t *testing.T) {
	forEachBackend(t, runStageRepositoryTest)
}
