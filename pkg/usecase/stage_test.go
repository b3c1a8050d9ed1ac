package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/usecase"
)

func stageNames(stages []*model.TaskStage) []string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	return names
}

func TestStageUseCase(t *testing.T) {
	ctx := context.Background()

	addStages := func(t *testing.T, f *fixture, taskID types.TaskID, names ...string) []*model.TaskStage {
		t.Helper()
		var stages []*model.TaskStage
		for _, n := range names {
			s, err := f.uc.Stage.AddStage(ctx, taskID, employee, n)
			gt.NoError(t, err).Required()
			stages = append(stages, s)
		}
		return stages
	}

	t.Run("stages are appended in order", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), nil)
		stages := addStages(t, f, task.ID, "a", "b", "c")

		gt.Value(t, stages[0].OrderIndex).Equal(0)
		gt.Value(t, stages[2].OrderIndex).Equal(2)
		gt.Value(t, stages[1].Status).Equal(types.StageStatusPending)

		listed, err := f.uc.Stage.ListStages(ctx, task.ID, owner)
		gt.NoError(t, err).Required()
		gt.Value(t, stageNames(listed)).Equal([]string{"a", "b", "c"})
	})

	t.Run("index follows the maximum after deletion", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), nil)
		stages := addStages(t, f, task.ID, "a", "b")

		gt.NoError(t, f.uc.Stage.DeleteStage(ctx, stages[0].ID, owner)).Required()
		added, err := f.uc.Stage.AddStage(ctx, task.ID, owner, "c")
		gt.NoError(t, err).Required()
		gt.Value(t, added.OrderIndex).Equal(2)
	})

	t.Run("move swaps with the neighbour", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), nil)
		stages := addStages(t, f, task.ID, "a", "b", "c")

		f.clock.Advance(time.Hour)
		moved, err := f.uc.Stage.MoveStage(ctx, stages[2].ID, employee, usecase.MoveUp)
		gt.NoError(t, err).Required()
		gt.Value(t, stageNames(moved)).Equal([]string{"a", "c", "b"})
		gt.Value(t, moved[0].UpdatedAt).Equal(stages[0].UpdatedAt)
		gt.Value(t, moved[1].UpdatedAt).Equal(baseTime.Add(time.Hour))
		gt.Value(t, moved[2].UpdatedAt).Equal(baseTime.Add(time.Hour))

		moved, err = f.uc.Stage.MoveStage(ctx, stages[0].ID, employee, usecase.MoveDown)
		gt.NoError(t, err).Required()
		gt.Value(t, stageNames(moved)).Equal([]string{"c", "a", "b"})
	})

	t.Run("moving past either end is a conflict", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), nil)
		stages := addStages(t, f, task.ID, "a", "b")

		_, err := f.uc.Stage.MoveStage(ctx, stages[0].ID, employee, usecase.MoveUp)
		gt.Error(t, err).Is(usecase.ErrConflict)
		_, err = f.uc.Stage.MoveStage(ctx, stages[1].ID, employee, usecase.MoveDown)
		gt.Error(t, err).Is(usecase.ErrConflict)
		_, err = f.uc.Stage.MoveStage(ctx, stages[1].ID, employee, "sideways")
		gt.Error(t, err).Is(usecase.ErrValidation)
	})

	t.Run("percentage follows stage status", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), nil)
		stages := addStages(t, f, task.ID, "a", "b", "c", "d")

		done := types.StageStatusCompleted
		_, err := f.uc.Stage.UpdateStage(ctx, stages[0].ID, employee, usecase.UpdateStageInput{Status: &done})
		gt.NoError(t, err).Required()

		summary, err := f.uc.Task.GetTask(ctx, task.ID, owner)
		gt.NoError(t, err).Required()
		gt.Value(t, summary.CompletionPercentage).Equal(25)
		gt.Value(t, summary.TotalStages).Equal(4)
		gt.Value(t, summary.CompletedStages).Equal(1)
	})

	t.Run("update validates input", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), nil)
		stages := addStages(t, f, task.ID, "a")

		empty := ""
		_, err := f.uc.Stage.UpdateStage(ctx, stages[0].ID, employee, usecase.UpdateStageInput{Name: &empty})
		gt.Error(t, err).Is(usecase.ErrValidation)

		bogus := types.StageStatus("blocked")
		_, err = f.uc.Stage.UpdateStage(ctx, stages[0].ID, employee, usecase.UpdateStageInput{Status: &bogus})
		gt.Error(t, err).Is(usecase.ErrValidation)

		renamed := "renamed"
		updated, err := f.uc.Stage.UpdateStage(ctx, stages[0].ID, employee, usecase.UpdateStageInput{Name: &renamed})
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Name).Equal("renamed")
	})

	t.Run("non participants cannot manage stages", func(t *testing.T) {
		f := setup(t)
		task := f.createTask(t, baseTime.Add(100*time.Hour), nil)

		_, err := f.uc.Stage.AddStage(ctx, task.ID, outsider, "x")
		gt.Error(t, err).Is(usecase.ErrForbidden)
		_, err = f.uc.Stage.AddStage(ctx, task.ID, employee, "")
		gt.Error(t, err).Is(usecase.ErrValidation)
		_, err = f.uc.Stage.UpdateStage(ctx, types.NewStageID(), employee, usecase.UpdateStageInput{})
		gt.Error(t, err).Is(usecase.ErrNotFound)
	})
}
