package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/utils/logging"
)

type TaskUseCase struct {
	*env
}

// CreateTaskInput is the payload of a new task
type CreateTaskInput struct {
	AssigneeID               types.UserID
	Title                    string
	Description              string
	Priority                 types.Priority
	Deadline                 time.Time
	EstimatedCompletionHours *float64
}

// UpdateTaskInput patches a task. Nil fields are left unchanged.
type UpdateTaskInput struct {
	AssigneeID  *types.UserID
	Title       *string
	Description *string
	Priority    *types.Priority
	Deadline    *time.Time
}

// TaskListFilter narrows ListTasks. Zero values do not filter.
type TaskListFilter struct {
	AssigneeID types.UserID
	AssignerID types.UserID
	Status     types.TaskStatus
}

func (uc *TaskUseCase) requireAssignable(ctx context.Context, orgID types.OrganizationID, assigneeID types.UserID) error {
	if err := assigneeID.Validate(); err != nil {
		return goerr.Wrap(ErrValidation, "assignee is required")
	}
	_, err := uc.repo.Organization().GetMember(ctx, orgID, assigneeID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return goerr.Wrap(ErrValidation, "assignee is not a member of the organization",
			goerr.V(OrganizationIDKey, orgID), goerr.V(UserIDKey, assigneeID))
	}
	if err != nil {
		return goerr.Wrap(err, "failed to check assignee", goerr.V(OrganizationIDKey, orgID))
	}
	return nil
}

func (uc *TaskUseCase) CreateTask(ctx context.Context, orgID types.OrganizationID, actor auth.Principal, input CreateTaskInput) (*model.TaskSummary, error) {
	if _, err := uc.requireOwner(ctx, orgID, actor); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, goerr.Wrap(ErrValidation, "task title is required")
	}
	if input.Deadline.IsZero() {
		return nil, goerr.Wrap(ErrValidation, "task deadline is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = types.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, goerr.Wrap(ErrValidation, "invalid priority", goerr.V("priority", priority))
	}
	if input.EstimatedCompletionHours != nil && *input.EstimatedCompletionHours <= 0 {
		return nil, goerr.Wrap(ErrValidation, "estimated hours must be positive")
	}
	if err := uc.requireAssignable(ctx, orgID, input.AssigneeID); err != nil {
		return nil, err
	}

	now := uc.now()
	task := &model.Task{
		ID:                       types.NewTaskID(),
		OrganizationID:           orgID,
		AssignerID:               actor.UserID,
		AssigneeID:               input.AssigneeID,
		Title:                    title,
		Description:              input.Description,
		Priority:                 priority,
		Status:                   types.TaskStatusPending,
		Deadline:                 input.Deadline.UTC(),
		EstimatedCompletionHours: input.EstimatedCompletionHours,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := uc.repo.Task().Create(ctx, task); err != nil {
		return nil, translate(err, "failed to create task", goerr.V(TaskIDKey, task.ID))
	}

	logging.From(ctx).Info("task created",
		"task_id", task.ID, "organization_id", orgID, "assignee", task.AssigneeID)
	uc.notifyTask(ctx, task, actor, types.NotificationTypeTaskAssigned, task.AssigneeID)

	return model.Summarize(task, nil, now), nil
}

func (uc *TaskUseCase) GetTask(ctx context.Context, taskID types.TaskID, actor auth.Principal) (*model.TaskSummary, error) {
	task, err := uc.loadTask(ctx, taskID, actor)
	if err != nil {
		return nil, err
	}
	stages, err := uc.repo.Stage().ListByTask(ctx, task.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list stages", goerr.V(TaskIDKey, task.ID))
	}
	return model.Summarize(task, stages, uc.now()), nil
}

// ListTasks returns the organization's tasks decorated with urgency and progress,
// most urgent first
func (uc *TaskUseCase) ListTasks(ctx context.Context, orgID types.OrganizationID, actor auth.Principal, filter TaskListFilter) ([]*model.TaskSummary, error) {
	if _, err := uc.requireMember(ctx, orgID, actor); err != nil {
		return nil, err
	}

	repoFilter := interfaces.TaskFilter{
		OrganizationID: orgID,
		AssigneeID:     filter.AssigneeID,
		AssignerID:     filter.AssignerID,
	}
	if filter.Status != "" {
		if !filter.Status.IsValid() {
			return nil, goerr.Wrap(ErrValidation, "invalid status filter", goerr.V(StatusKey, filter.Status))
		}
		repoFilter.Statuses = []types.TaskStatus{filter.Status}
	}

	tasks, err := uc.repo.Task().List(ctx, repoFilter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tasks", goerr.V(OrganizationIDKey, orgID))
	}
	return uc.summarize(ctx, tasks)
}

// summarize decorates tasks with one batched stage lookup
func (e *env) summarize(ctx context.Context, tasks []*model.Task) ([]*model.TaskSummary, error) {
	ids := make([]types.TaskID, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	stages, err := e.repo.Stage().ListByTasks(ctx, ids)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list stages")
	}

	now := e.now()
	result := make([]*model.TaskSummary, len(tasks))
	for i, t := range tasks {
		result[i] = model.Summarize(t, stages[t.ID], now)
	}
	model.SortByUrgency(result)
	return result, nil
}

func (uc *TaskUseCase) UpdateTask(ctx context.Context, taskID types.TaskID, actor auth.Principal, input UpdateTaskInput) (*model.TaskSummary, error) {
	task, err := uc.loadTask(ctx, taskID, actor)
	if err != nil {
		return nil, err
	}
	if task.AssignerID != actor.UserID {
		return nil, goerr.Wrap(ErrForbidden, "only the assigner can edit the task", goerr.V(TaskIDKey, taskID))
	}
	if task.Status == types.TaskStatusCompleted {
		return nil, goerr.Wrap(ErrConflict, "completed tasks cannot be edited", goerr.V(TaskIDKey, taskID))
	}

	expected := task.Status
	reassigned := false

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, goerr.Wrap(ErrValidation, "task title is required")
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Priority != nil {
		if !input.Priority.IsValid() {
			return nil, goerr.Wrap(ErrValidation, "invalid priority", goerr.V("priority", *input.Priority))
		}
		task.Priority = *input.Priority
	}
	if input.Deadline != nil {
		if input.Deadline.IsZero() {
			return nil, goerr.Wrap(ErrValidation, "task deadline is required")
		}
		task.Deadline = input.Deadline.UTC()
	}
	if input.AssigneeID != nil && *input.AssigneeID != task.AssigneeID {
		if err := uc.requireAssignable(ctx, task.OrganizationID, *input.AssigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = *input.AssigneeID
		// A decline belongs to the previous assignee
		task.DeclineReason = ""
		reassigned = true
	}

	task.UpdatedAt = uc.now()
	if err := uc.repo.Task().Update(ctx, task, expected); err != nil {
		return nil, translate(err, "failed to update task", goerr.V(TaskIDKey, taskID))
	}

	if reassigned {
		uc.notifyTask(ctx, task, actor, types.NotificationTypeTaskAssigned, task.AssigneeID)
	}
	return uc.GetTask(ctx, taskID, actor)
}

func (uc *TaskUseCase) DeleteTask(ctx context.Context, taskID types.TaskID, actor auth.Principal) error {
	task, err := uc.loadTask(ctx, taskID, actor)
	if err != nil {
		return err
	}
	if task.AssignerID != actor.UserID {
		return goerr.Wrap(ErrForbidden, "only the assigner can delete the task", goerr.V(TaskIDKey, taskID))
	}
	if err := uc.repo.Task().Delete(ctx, taskID); err != nil {
		return translate(err, "failed to delete task", goerr.V(TaskIDKey, taskID))
	}

	logging.From(ctx).Info("task deleted", "task_id", taskID, "actor", actor.UserID)
	return nil
}

func (uc *TaskUseCase) ListReports(ctx context.Context, taskID types.TaskID, actor auth.Principal) ([]*model.TaskReport, error) {
	if _, err := uc.loadTask(ctx, taskID, actor); err != nil {
		return nil, err
	}
	reports, err := uc.repo.Task().ListReports(ctx, taskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list reports", goerr.V(TaskIDKey, taskID))
	}
	return reports, nil
}

// notifyTask publishes a task notification addressed to one user
func (e *env) notifyTask(ctx context.Context, task *model.Task, actor auth.Principal, kind types.NotificationType, recipient types.UserID) {
	e.publish(ctx, &model.Event{
		Type:           types.EventTypeNotification,
		OrganizationID: task.OrganizationID,
		ActorID:        actor.UserID,
		Recipients:     []types.UserID{recipient},
		Notification: &model.EventNotification{
			Type:    kind,
			ID:      task.ID.String(),
			Title:   task.Title,
			Urgency: model.ClassifyUrgency(task.Deadline, task.Status, e.now()),
		},
	})
}
