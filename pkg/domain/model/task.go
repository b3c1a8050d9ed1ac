package model

import (
	"math"
	"sort"
	"time"

	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// Task is a unit of work assigned inside an organization
type Task struct {
	ID             types.TaskID         `json:"id"`
	OrganizationID types.OrganizationID `json:"organization_id"`
	AssignerID     types.UserID         `json:"assigner_id"`
	AssigneeID     types.UserID         `json:"assignee_id"`
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	Priority       types.Priority       `json:"priority"`
	Status         types.TaskStatus     `json:"status"`
	Deadline       time.Time            `json:"deadline"`

	StartedAt                *time.Time `json:"started_at,omitempty"`
	ActualCompletedAt        *time.Time `json:"actual_completed_at,omitempty"`
	EstimatedCompletionHours *float64   `json:"estimated_completion_hours,omitempty"`

	// DeclineReason annotates the task; it does not change Status
	DeclineReason string `json:"decline_reason,omitempty"`

	// Version is bumped by the repository on every stored update
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsDeclined reports whether the assignee has declined the task
func (t *Task) IsDeclined() bool {
	return t.DeclineReason != ""
}

// HasEstimate reports whether an estimate has been recorded
func (t *Task) HasEstimate() bool {
	return t.EstimatedCompletionHours != nil
}

// Copy returns a deep copy of the task
func (t *Task) Copy() *Task {
	c := *t
	if t.StartedAt != nil {
		v := *t.StartedAt
		c.StartedAt = &v
	}
	if t.ActualCompletedAt != nil {
		v := *t.ActualCompletedAt
		c.ActualCompletedAt = &v
	}
	if t.EstimatedCompletionHours != nil {
		v := *t.EstimatedCompletionHours
		c.EstimatedCompletionHours = &v
	}
	return &c
}

// TaskStage is a named sub-step of a task
type TaskStage struct {
	ID         types.StageID     `json:"id"`
	TaskID     types.TaskID      `json:"task_id"`
	Name       string            `json:"name"`
	OrderIndex int               `json:"order_index"`
	Status     types.StageStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// SortStages orders stages by OrderIndex, then creation time for equal indices
func SortStages(stages []*TaskStage) {
	sort.SliceStable(stages, func(i, j int) bool {
		if stages[i].OrderIndex != stages[j].OrderIndex {
			return stages[i].OrderIndex < stages[j].OrderIndex
		}
		return stages[i].CreatedAt.Before(stages[j].CreatedAt)
	})
}

// CompletionPercentage returns round(100 * completed / total), or 0 without stages
func CompletionPercentage(stages []*TaskStage) int {
	if len(stages) == 0 {
		return 0
	}
	completed := 0
	for _, s := range stages {
		if s.Status == types.StageStatusCompleted {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(len(stages))))
}

// Attachment is metadata of a file stored elsewhere
type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// TaskReport is the completion report submitted with a task
type TaskReport struct {
	ID          types.ReportID `json:"id"`
	TaskID      types.TaskID   `json:"task_id"`
	AuthorID    types.UserID   `json:"author_id"`
	Text        string         `json:"text"`
	Attachments []Attachment   `json:"attachments"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TaskSummary is a task decorated with values derived on read
type TaskSummary struct {
	*Task
	Urgency              types.Urgency `json:"urgency"`
	CompletionPercentage int           `json:"completion_percentage"`
	TotalStages          int           `json:"total_stages"`
	CompletedStages      int           `json:"completed_stages"`
}

// Summarize derives urgency and stage progress for a task at the given instant
func Summarize(task *Task, stages []*TaskStage, now time.Time) *TaskSummary {
	completed := 0
	for _, s := range stages {
		if s.Status == types.StageStatusCompleted {
			completed++
		}
	}
	return &TaskSummary{
		Task:                 task,
		Urgency:              ClassifyUrgency(task.Deadline, task.Status, now),
		CompletionPercentage: CompletionPercentage(stages),
		TotalStages:          len(stages),
		CompletedStages:      completed,
	}
}

// SortByUrgency orders summaries most urgent first, then by earliest deadline
func SortByUrgency(tasks []*TaskSummary) {
	sort.SliceStable(tasks, func(i, j int) bool {
		ri, rj := tasks[i].Urgency.Rank(), tasks[j].Urgency.Rank()
		if ri != rj {
			return ri < rj
		}
		return tasks[i].Deadline.Before(tasks[j].Deadline)
	})
}
