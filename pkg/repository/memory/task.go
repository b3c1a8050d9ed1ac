package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type taskRepository struct {
	m *Memory
}

func copyReport(r *model.TaskReport) *model.TaskReport {
	c := *r
	c.Attachments = slices.Clone(r.Attachments)
	return &c
}

func matchTask(t *model.Task, filter interfaces.TaskFilter) bool {
	if filter.OrganizationID != "" && t.OrganizationID != filter.OrganizationID {
		return false
	}
	if filter.AssigneeID != "" && t.AssigneeID != filter.AssigneeID {
		return false
	}
	if filter.AssignerID != "" && t.AssignerID != filter.AssignerID {
		return false
	}
	if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, t.Status) {
		return false
	}
	return true
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.tasks[task.ID]; exists {
		return goerr.Wrap(interfaces.ErrAlreadyExists, "task already exists", goerr.V("id", task.ID))
	}
	r.m.tasks[task.ID] = task.Copy()
	return nil
}

func (r *taskRepository) Get(ctx context.Context, id types.TaskID) (*model.Task, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	task, exists := r.m.tasks[id]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "task not found", goerr.V("id", id))
	}
	return task.Copy(), nil
}

func (r *taskRepository) List(ctx context.Context, filter interfaces.TaskFilter) ([]*model.Task, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	result := make([]*model.Task, 0)
	for _, task := range r.m.tasks {
		if matchTask(task, filter) {
			result = append(result, task.Copy())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// checkStatus must be called with the write lock held
func (r *taskRepository) checkStatus(task *model.Task, expected types.TaskStatus) error {
	stored, exists := r.m.tasks[task.ID]
	if !exists {
		return goerr.Wrap(interfaces.ErrNotFound, "task not found", goerr.V("id", task.ID))
	}
	if stored.Status != expected {
		return goerr.Wrap(interfaces.ErrStatusMismatch, "task status changed",
			goerr.V("id", task.ID), goerr.V("expected", expected), goerr.V("actual", stored.Status))
	}
	if stored.Version != task.Version {
		return goerr.Wrap(interfaces.ErrStatusMismatch, "task was modified concurrently",
			goerr.V("id", task.ID), goerr.V("expected_version", task.Version), goerr.V("actual_version", stored.Version))
	}
	return nil
}

// store must be called with the write lock held
func (r *taskRepository) store(task *model.Task) {
	task.Version++
	r.m.tasks[task.ID] = task.Copy()
}

func (r *taskRepository) Update(ctx context.Context, task *model.Task, expected types.TaskStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if err := r.checkStatus(task, expected); err != nil {
		return err
	}
	r.store(task)
	return nil
}

func (r *taskRepository) Complete(ctx context.Context, task *model.Task, expected types.TaskStatus, report *model.TaskReport) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	// Validate both writes before applying either
	if err := r.checkStatus(task, expected); err != nil {
		return err
	}
	if _, exists := r.m.reports[report.ID]; exists {
		return goerr.Wrap(interfaces.ErrAlreadyExists, "report already exists", goerr.V("id", report.ID))
	}

	r.store(task)
	r.m.reports[report.ID] = copyReport(report)
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id types.TaskID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.tasks[id]; !exists {
		return goerr.Wrap(interfaces.ErrNotFound, "task not found", goerr.V("id", id))
	}

	delete(r.m.tasks, id)
	for stageID, stage := range r.m.stages {
		if stage.TaskID == id {
			delete(r.m.stages, stageID)
		}
	}
	for reportID, report := range r.m.reports {
		if report.TaskID == id {
			delete(r.m.reports, reportID)
		}
	}
	return nil
}

func (r *taskRepository) ListReports(ctx context.Context, taskID types.TaskID) ([]*model.TaskReport, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	result := make([]*model.TaskReport, 0)
	for _, report := range r.m.reports {
		if report.TaskID == taskID {
			result = append(result, copyReport(report))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
