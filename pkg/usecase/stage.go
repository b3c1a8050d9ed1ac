package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// MoveDirection is where a stage moves relative to its neighbours
type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)

type StageUseCase struct {
	*env
}

// UpdateStageInput patches a stage. Nil fields are left unchanged.
type UpdateStageInput struct {
	Name   *string
	Status *types.StageStatus
}

// loadParticipantTask returns the task when the actor is its assigner or assignee
func (uc *StageUseCase) loadParticipantTask(ctx context.Context, taskID types.TaskID, actor auth.Principal) (*model.Task, error) {
	task, err := uc.loadTask(ctx, taskID, actor)
	if err != nil {
		return nil, err
	}
	if !isParticipant(task, actor.UserID) {
		return nil, goerr.Wrap(ErrForbidden, "only the assigner or assignee can manage stages", goerr.V(TaskIDKey, taskID))
	}
	return task, nil
}

func (uc *StageUseCase) loadStage(ctx context.Context, stageID types.StageID, actor auth.Principal) (*model.TaskStage, error) {
	if err := stageID.Validate(); err != nil {
		return nil, goerr.Wrap(ErrValidation, err.Error(), goerr.V(StageIDKey, stageID))
	}
	stage, err := uc.repo.Stage().Get(ctx, stageID)
	if err != nil {
		return nil, translate(err, "failed to get stage", goerr.V(StageIDKey, stageID))
	}
	if _, err := uc.loadParticipantTask(ctx, stage.TaskID, actor); err != nil {
		return nil, err
	}
	return stage, nil
}

func (uc *StageUseCase) ListStages(ctx context.Context, taskID types.TaskID, actor auth.Principal) ([]*model.TaskStage, error) {
	if _, err := uc.loadTask(ctx, taskID, actor); err != nil {
		return nil, err
	}
	stages, err := uc.repo.Stage().ListByTask(ctx, taskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list stages", goerr.V(TaskIDKey, taskID))
	}
	return stages, nil
}

// AddStage appends a pending stage after the existing ones
func (uc *StageUseCase) AddStage(ctx context.Context, taskID types.TaskID, actor auth.Principal, name string) (*model.TaskStage, error) {
	if _, err := uc.loadParticipantTask(ctx, taskID, actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, goerr.Wrap(ErrValidation, "stage name is required")
	}

	existing, err := uc.repo.Stage().ListByTask(ctx, taskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list stages", goerr.V(TaskIDKey, taskID))
	}
	next := 0
	for _, s := range existing {
		if s.OrderIndex >= next {
			next = s.OrderIndex + 1
		}
	}

	now := uc.now()
	stage := &model.TaskStage{
		ID:         types.NewStageID(),
		TaskID:     taskID,
		Name:       name,
		OrderIndex: next,
		Status:     types.StageStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.repo.Stage().Create(ctx, stage); err != nil {
		return nil, translate(err, "failed to create stage", goerr.V(StageIDKey, stage.ID))
	}
	return stage, nil
}

func (uc *StageUseCase) UpdateStage(ctx context.Context, stageID types.StageID, actor auth.Principal, input UpdateStageInput) (*model.TaskStage, error) {
	stage, err := uc.loadStage(ctx, stageID, actor)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, goerr.Wrap(ErrValidation, "stage name is required")
		}
		stage.Name = name
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, goerr.Wrap(ErrValidation, "invalid stage status", goerr.V(StatusKey, *input.Status))
		}
		stage.Status = *input.Status
	}

	stage.UpdatedAt = uc.now()
	if err := uc.repo.Stage().Update(ctx, stage); err != nil {
		return nil, translate(err, "failed to update stage", goerr.V(StageIDKey, stageID))
	}
	return stage, nil
}

func (uc *StageUseCase) DeleteStage(ctx context.Context, stageID types.StageID, actor auth.Principal) error {
	if _, err := uc.loadStage(ctx, stageID, actor); err != nil {
		return err
	}
	if err := uc.repo.Stage().Delete(ctx, stageID); err != nil {
		return translate(err, "failed to delete stage", goerr.V(StageIDKey, stageID))
	}
	return nil
}

// MoveStage swaps the stage with its neighbour in the given direction and
// returns the reordered stages of the task
func (uc *StageUseCase) MoveStage(ctx context.Context, stageID types.StageID, actor auth.Principal, direction MoveDirection) ([]*model.TaskStage, error) {
	stage, err := uc.loadStage(ctx, stageID, actor)
	if err != nil {
		return nil, err
	}

	var step int
	switch direction {
	case MoveUp:
		step = -1
	case MoveDown:
		step = 1
	default:
		return nil, goerr.Wrap(ErrValidation, "direction must be up or down", goerr.V("direction", direction))
	}

	stages, err := uc.repo.Stage().ListByTask(ctx, stage.TaskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list stages", goerr.V(TaskIDKey, stage.TaskID))
	}

	pos := -1
	for i, s := range stages {
		if s.ID == stage.ID {
			pos = i
			break
		}
	}
	target := pos + step
	if pos < 0 || target < 0 || target >= len(stages) {
		return nil, goerr.Wrap(ErrConflict, "stage cannot move further",
			goerr.V(StageIDKey, stageID), goerr.V("direction", direction))
	}

	if err := uc.repo.Stage().Swap(ctx, stage.ID, stages[target].ID, uc.now()); err != nil {
		return nil, translate(err, "failed to move stage", goerr.V(StageIDKey, stageID))
	}

	reordered, err := uc.repo.Stage().ListByTask(ctx, stage.TaskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list stages", goerr.V(TaskIDKey, stage.TaskID))
	}
	return reordered, nil
}
