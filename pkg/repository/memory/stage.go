package memory

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type stageRepository struct {
	m *Memory
}

func copyStage(s *model.TaskStage) *model.TaskStage {
	c := *s
	return &c
}

func (r *stageRepository) Create(ctx context.Context, stage *model.TaskStage) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.tasks[stage.TaskID]; !exists {
		return goerr.Wrap(interfaces.ErrNotFound, "task not found", goerr.V("id", stage.TaskID))
	}
	if _, exists := r.m.stages[stage.ID]; exists {
		return goerr.Wrap(interfaces.ErrAlreadyExists, "stage already exists", goerr.V("id", stage.ID))
	}
	r.m.stages[stage.ID] = copyStage(stage)
	return nil
}

func (r *stageRepository) Get(ctx context.Context, id types.StageID) (*model.TaskStage, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	stage, exists := r.m.stages[id]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "stage not found", goerr.V("id", id))
	}
	return copyStage(stage), nil
}

func (r *stageRepository) ListByTask(ctx context.Context, taskID types.TaskID) ([]*model.TaskStage, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	result := make([]*model.TaskStage, 0)
	for _, stage := range r.m.stages {
		if stage.TaskID == taskID {
			result = append(result, copyStage(stage))
		}
	}
	model.SortStages(result)
	return result, nil
}

func (r *stageRepository) ListByTasks(ctx context.Context, taskIDs []types.TaskID) (map[types.TaskID][]*model.TaskStage, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	wanted := make(map[types.TaskID]struct{}, len(taskIDs))
	for _, id := range taskIDs {
		wanted[id] = struct{}{}
	}

	result := make(map[types.TaskID][]*model.TaskStage)
	for _, stage := range r.m.stages {
		if _, ok := wanted[stage.TaskID]; ok {
			result[stage.TaskID] = append(result[stage.TaskID], copyStage(stage))
		}
	}
	for _, stages := range result {
		model.SortStages(stages)
	}
	return result, nil
}

func (r *stageRepository) Update(ctx context.Context, stage *model.TaskStage) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.stages[stage.ID]; !exists {
		return goerr.Wrap(interfaces.ErrNotFound, "stage not found", goerr.V("id", stage.ID))
	}
	r.m.stages[stage.ID] = copyStage(stage)
	return nil
}

func (r *stageRepository) Delete(ctx context.Context, id types.StageID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.stages[id]; !exists {
		return goerr.Wrap(interfaces.ErrNotFound, "stage not found", goerr.V("id", id))
	}
	delete(r.m.stages, id)
	return nil
}

func (r *stageRepository) Swap(ctx context.Context, a, b types.StageID, updatedAt time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	sa, ok := r.m.stages[a]
	if !ok {
		return goerr.Wrap(interfaces.ErrNotFound, "stage not found", goerr.V("id", a))
	}
	sb, ok := r.m.stages[b]
	if !ok {
		return goerr.Wrap(interfaces.ErrNotFound, "stage not found", goerr.V("id", b))
	}

	sa.OrderIndex, sb.OrderIndex = sb.OrderIndex, sa.OrderIndex
	sa.UpdatedAt = updatedAt
	sb.UpdatedAt = updatedAt
	return nil
}
