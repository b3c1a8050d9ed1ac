package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// TaskFilter narrows task listings. Zero values do not filter.
type TaskFilter struct {
	OrganizationID types.OrganizationID
	AssigneeID     types.UserID
	AssignerID     types.UserID
	Statuses       []types.TaskStatus
}

// TaskRepository persists tasks and their reports
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	Get(ctx context.Context, id types.TaskID) (*model.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*model.Task, error)

	// Update replaces the task if its stored status equals expected and its
	// stored Version equals task.Version, otherwise returns ErrStatusMismatch.
	// On success task.Version is incremented to the stored value.
	Update(ctx context.Context, task *model.Task, expected types.TaskStatus) error

	// Complete stores the completed task and inserts the report in one
	// transaction with the same checks as Update. When either write fails
	// nothing is persisted.
	Complete(ctx context.Context, task *model.Task, expected types.TaskStatus, report *model.TaskReport) error

	// Delete removes the task together with its stages and reports
	Delete(ctx context.Context, id types.TaskID) error

	ListReports(ctx context.Context, taskID types.TaskID) ([]*model.TaskReport, error)
}

// StageRepository persists task stages
type StageRepository interface {
	Create(ctx context.Context, stage *model.TaskStage) error
	Get(ctx context.Context, id types.StageID) (*model.TaskStage, error)

	// ListByTask returns stages ordered by OrderIndex
	ListByTask(ctx context.Context, taskID types.TaskID) ([]*model.TaskStage, error)

	// ListByTasks returns stages grouped by task for batch aggregation
	ListByTasks(ctx context.Context, taskIDs []types.TaskID) (map[types.TaskID][]*model.TaskStage, error)

	Update(ctx context.Context, stage *model.TaskStage) error
	Delete(ctx context.Context, id types.StageID) error

	// Swap exchanges the OrderIndex of two stages atomically and stamps both
	// with updatedAt
	Swap(ctx context.Context, a, b types.StageID, updatedAt time.Time) error
}
