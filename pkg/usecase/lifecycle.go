package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/utils/logging"
)

// Start moves a pending task to in_progress. The repository compares the stored
// status and version, so a concurrent start or edit makes this one fail with
// ErrConflict instead of being overwritten.
func (uc *TaskUseCase) Start(ctx context.Context, taskID types.TaskID, actor auth.Principal) (*model.TaskSummary, error) {
	task, err := uc.loadTask(ctx, taskID, actor)
	if err != nil {
		return nil, err
	}
	if task.AssigneeID != actor.UserID {
		return nil, goerr.Wrap(ErrForbidden, "only the assignee can start the task", goerr.V(TaskIDKey, taskID))
	}
	if task.Status != types.TaskStatusPending {
		return nil, goerr.Wrap(ErrConflict, "only pending tasks can be started",
			goerr.V(TaskIDKey, taskID), goerr.V(StatusKey, task.Status))
	}
	if !task.HasEstimate() {
		return nil, goerr.Wrap(ErrValidation, "set an estimate before starting the task", goerr.V(TaskIDKey, taskID))
	}

	now := uc.now()
	task.Status = types.TaskStatusInProgress
	task.StartedAt = &now
	task.UpdatedAt = now

	if err := uc.repo.Task().Update(ctx, task, types.TaskStatusPending); err != nil {
		return nil, translate(err, "failed to start task", goerr.V(TaskIDKey, taskID))
	}

	logging.From(ctx).Info("task started", "task_id", taskID, "assignee", actor.UserID)
	uc.notifyTask(ctx, task, actor, types.NotificationTypeTaskStarted, task.AssignerID)
	return uc.GetTask(ctx, taskID, actor)
}

// Complete marks the task completed and stores the report in one transaction
func (uc *TaskUseCase) Complete(ctx context.Context, taskID types.TaskID, actor auth.Principal, text string, attachments []model.Attachment) (*model.TaskReport, error) {
	task, err := uc.loadTask(ctx, taskID, actor)
	if err != nil {
		return nil, err
	}
	if task.AssigneeID != actor.UserID {
		return nil, goerr.Wrap(ErrForbidden, "only the assignee can complete the task", goerr.V(TaskIDKey, taskID))
	}
	if task.Status == types.TaskStatusCompleted {
		return nil, goerr.Wrap(ErrConflict, "task is already completed", goerr.V(TaskIDKey, taskID))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, goerr.Wrap(ErrValidation, "report text is required")
	}
	for _, a := range attachments {
		if a.URL == "" {
			return nil, goerr.Wrap(ErrValidation, "attachment URL is required", goerr.V("name", a.Name))
		}
	}

	resolved, err := uc.resolveAttachments(ctx, attachments)
	if err != nil {
		return nil, translate(err, "failed to verify attachments", goerr.V(TaskIDKey, taskID))
	}

	now := uc.now()
	expected := task.Status
	task.Status = types.TaskStatusCompleted
	task.ActualCompletedAt = &now
	task.UpdatedAt = now

	report := &model.TaskReport{
		ID:          types.NewReportID(),
		TaskID:      task.ID,
		AuthorID:    actor.UserID,
		Text:        text,
		Attachments: resolved,
		CreatedAt:   now,
	}
	if report.Attachments == nil {
		report.Attachments = []model.Attachment{}
	}

	if err := uc.repo.Task().Complete(ctx, task, expected, report); err != nil {
		return nil, translate(err, "failed to complete task", goerr.V(TaskIDKey, taskID))
	}

	logging.From(ctx).Info("task completed", "task_id", taskID, "assignee", actor.UserID)
	uc.notifyTask(ctx, task, actor, types.NotificationTypeTaskCompleted, task.AssignerID)
	return report, nil
}

// Decline records the assignee's reason on the task. The status is kept so the
// assigner can reassign or adjust the task.
func (uc *TaskUseCase) Decline(ctx context.Context, taskID types.TaskID, actor auth.Principal, reason string) (*model.TaskSummary, error) {
	task, err := uc.loadTask(ctx, taskID, actor)
	if err != nil {
		return nil, err
	}
	if task.AssigneeID != actor.UserID {
		return nil, goerr.Wrap(ErrForbidden, "only the assignee can decline the task", goerr.V(TaskIDKey, taskID))
	}
	if task.Status == types.TaskStatusCompleted {
		return nil, goerr.Wrap(ErrConflict, "completed tasks cannot be declined", goerr.V(TaskIDKey, taskID))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, goerr.Wrap(ErrValidation, "decline reason is required")
	}

	expected := task.Status
	task.DeclineReason = reason
	task.UpdatedAt = uc.now()
	if err := uc.repo.Task().Update(ctx, task, expected); err != nil {
		return nil, translate(err, "failed to decline task", goerr.V(TaskIDKey, taskID))
	}

	logging.From(ctx).Info("task declined", "task_id", taskID, "assignee", actor.UserID)
	uc.notifyTask(ctx, task, actor, types.NotificationTypeTaskDeclined, task.AssignerID)
	return uc.GetTask(ctx, taskID, actor)
}

// SetEstimate records or overwrites the estimated hours
func (uc *TaskUseCase) SetEstimate(ctx context.Context, taskID types.TaskID, actor auth.Principal, hours float64) (*model.TaskSummary, error) {
	task, err := uc.loadTask(ctx, taskID, actor)
	if err != nil {
		return nil, err
	}
	if !isParticipant(task, actor.UserID) {
		return nil, goerr.Wrap(ErrForbidden, "only the assigner or assignee can set the estimate", goerr.V(TaskIDKey, taskID))
	}
	if hours <= 0 {
		return nil, goerr.Wrap(ErrValidation, "estimated hours must be positive", goerr.V("hours", hours))
	}
	if task.Status == types.TaskStatusCompleted {
		return nil, goerr.Wrap(ErrConflict, "completed tasks cannot be re-estimated", goerr.V(TaskIDKey, taskID))
	}

	expected := task.Status
	task.EstimatedCompletionHours = &hours
	task.UpdatedAt = uc.now()
	if err := uc.repo.Task().Update(ctx, task, expected); err != nil {
		return nil, translate(err, "failed to set estimate", goerr.V(TaskIDKey, taskID))
	}
	return uc.GetTask(ctx, taskID, actor)
}
