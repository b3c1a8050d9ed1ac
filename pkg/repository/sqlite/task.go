package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type taskRepository struct {
	db *sql.DB
}

const taskColumns = `id, organization_id, assigner_id, assignee_id, title, description, priority, status,
	deadline, started_at, actual_completed_at, estimated_completion_hours, decline_reason, version, created_at, updated_at`

func scanTask(s scanner) (*model.Task, error) {
	var t model.Task
	var deadline, createdAt, updatedAt int64
	var startedAt, completedAt sql.NullInt64
	var estimate sql.NullFloat64

	err := s.Scan(
		&t.ID, &t.OrganizationID, &t.AssignerID, &t.AssigneeID,
		&t.Title, &t.Description, &t.Priority, &t.Status,
		&deadline, &startedAt, &completedAt, &estimate, &t.DeclineReason,
		&t.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Deadline = fromUnix(deadline)
	t.StartedAt = fromNullUnix(startedAt)
	t.ActualCompletedAt = fromNullUnix(completedAt)
	if estimate.Valid {
		v := estimate.Float64
		t.EstimatedCompletionHours = &v
	}
	t.CreatedAt = fromUnix(createdAt)
	t.UpdatedAt = fromUnix(updatedAt)
	return &t, nil
}

func nullEstimate(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.OrganizationID, task.AssignerID, task.AssigneeID,
		task.Title, task.Description, task.Priority, task.Status,
		toUnix(task.Deadline), toNullUnix(task.StartedAt), toNullUnix(task.ActualCompletedAt),
		nullEstimate(task.EstimatedCompletionHours), task.DeclineReason,
		task.Version, toUnix(task.CreatedAt), toUnix(task.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return goerr.Wrap(interfaces.ErrAlreadyExists, "task already exists", goerr.V("id", task.ID))
		}
		return goerr.Wrap(err, "failed to insert task", goerr.V("id", task.ID))
	}
	return nil
}

func (r *taskRepository) Get(ctx context.Context, id types.TaskID) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "task not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get task", goerr.V("id", id))
	}
	return task, nil
}

func (r *taskRepository) List(ctx context.Context, filter interfaces.TaskFilter) ([]*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1 = 1`
	var args []any
	if filter.OrganizationID != "" {
		query += ` AND organization_id = ?`
		args = append(args, filter.OrganizationID)
	}
	if filter.AssigneeID != "" {
		query += ` AND assignee_id = ?`
		args = append(args, filter.AssigneeID)
	}
	if filter.AssignerID != "" {
		query += ` AND assigner_id = ?`
		args = append(args, filter.AssignerID)
	}
	if len(filter.Statuses) > 0 {
		query += ` AND status IN (` + placeholders(len(filter.Statuses)) + `)`
		for _, s := range filter.Statuses {
			args = append(args, s)
		}
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tasks")
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*model.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan task")
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate tasks")
	}
	return tasks, nil
}

// updateIf writes the task only when the stored status equals expected and the
// stored version equals task.Version. The stored version is bumped; task is not
// modified so callers can apply the bump after their transaction commits.
func updateIf(ctx context.Context, ex execer, task *model.Task, expected types.TaskStatus) error {
	result, err := ex.ExecContext(ctx, `
		UPDATE tasks SET
			assignee_id = ?, title = ?, description = ?, priority = ?, status = ?,
			deadline = ?, started_at = ?, actual_completed_at = ?,
			estimated_completion_hours = ?, decline_reason = ?, updated_at = ?,
			version = version + 1
		WHERE id = ? AND status = ? AND version = ?`,
		task.AssigneeID, task.Title, task.Description, task.Priority, task.Status,
		toUnix(task.Deadline), toNullUnix(task.StartedAt), toNullUnix(task.ActualCompletedAt),
		nullEstimate(task.EstimatedCompletionHours), task.DeclineReason, toUnix(task.UpdatedAt),
		task.ID, expected, task.Version,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to update task", goerr.V("id", task.ID))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to get rows affected")
	}
	if affected > 0 {
		return nil
	}

	var current types.TaskStatus
	var version int64
	err = ex.QueryRowContext(ctx, `SELECT status, version FROM tasks WHERE id = ?`, task.ID).Scan(&current, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return goerr.Wrap(interfaces.ErrNotFound, "task not found", goerr.V("id", task.ID))
	}
	if err != nil {
		return goerr.Wrap(err, "failed to get task status", goerr.V("id", task.ID))
	}
	if current != expected {
		return goerr.Wrap(interfaces.ErrStatusMismatch, "task status changed",
			goerr.V("id", task.ID), goerr.V("expected", expected), goerr.V("actual", current))
	}
	return goerr.Wrap(interfaces.ErrStatusMismatch, "task was modified concurrently",
		goerr.V("id", task.ID), goerr.V("expected_version", task.Version), goerr.V("actual_version", version))
}

func (r *taskRepository) Update(ctx context.Context, task *model.Task, expected types.TaskStatus) error {
	if err := updateIf(ctx, r.db, task, expected); err != nil {
		return err
	}
	task.Version++
	return nil
}

func (r *taskRepository) Complete(ctx context.Context, task *model.Task, expected types.TaskStatus, report *model.TaskReport) error {
	attachments, err := encodeJSON(report.Attachments)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := updateIf(ctx, tx, task, expected); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO task_reports (id, task_id, author_id, text, attachments, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		report.ID, report.TaskID, report.AuthorID, report.Text, attachments, toUnix(report.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return goerr.Wrap(interfaces.ErrAlreadyExists, "report already exists", goerr.V("id", report.ID))
		}
		return goerr.Wrap(err, "failed to insert report", goerr.V("id", report.ID))
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit task completion", goerr.V("id", task.ID))
	}
	task.Version++
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id types.TaskID) error {
	// Stages and reports go with the task through ON DELETE CASCADE
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return goerr.Wrap(err, "failed to delete task", goerr.V("id", id))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return goerr.Wrap(interfaces.ErrNotFound, "task not found", goerr.V("id", id))
	}
	return nil
}

func (r *taskRepository) ListReports(ctx context.Context, taskID types.TaskID) ([]*model.TaskReport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, task_id, author_id, text, attachments, created_at FROM task_reports WHERE task_id = ? ORDER BY created_at ASC`,
		taskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list reports", goerr.V("task_id", taskID))
	}
	defer func() { _ = rows.Close() }()

	reports := make([]*model.TaskReport, 0)
	for rows.Next() {
		var report model.TaskReport
		var attachments string
		var createdAt int64
		if err := rows.Scan(&report.ID, &report.TaskID, &report.AuthorID, &report.Text, &attachments, &createdAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan report")
		}
		if err := decodeJSON(attachments, &report.Attachments); err != nil {
			return nil, goerr.Wrap(err, "failed to decode attachments", goerr.V("id", report.ID))
		}
		report.CreatedAt = fromUnix(createdAt)
		reports = append(reports, &report)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate reports")
	}
	return reports, nil
}
