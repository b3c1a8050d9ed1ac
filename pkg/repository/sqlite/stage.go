package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type stageRepository struct {
	db *sql.DB
}

const stageColumns = `id, task_id, name, order_index, status, created_at, updated_at`

func scanStage(s scanner) (*model.TaskStage, error) {
	var stage model.TaskStage
	var createdAt, updatedAt int64
	if err := s.Scan(&stage.ID, &stage.TaskID, &stage.Name, &stage.OrderIndex, &stage.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	stage.CreatedAt = fromUnix(createdAt)
	stage.UpdatedAt = fromUnix(updatedAt)
	return &stage, nil
}

func (r *stageRepository) Create(ctx context.Context, stage *model.TaskStage) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_stages (`+stageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		stage.ID, stage.TaskID, stage.Name, stage.OrderIndex, stage.Status,
		toUnix(stage.CreatedAt), toUnix(stage.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return goerr.Wrap(interfaces.ErrAlreadyExists, "stage already exists", goerr.V("id", stage.ID))
		}
		if isForeignKeyViolation(err) {
			return goerr.Wrap(interfaces.ErrNotFound, "task not found", goerr.V("id", stage.TaskID))
		}
		return goerr.Wrap(err, "failed to insert stage", goerr.V("id", stage.ID))
	}
	return nil
}

func (r *stageRepository) Get(ctx context.Context, id types.StageID) (*model.TaskStage, error) {
	return getStage(ctx, r.db, id)
}

func getStage(ctx context.Context, ex execer, id types.StageID) (*model.TaskStage, error) {
	row := ex.QueryRowContext(ctx, `SELECT `+stageColumns+` FROM task_stages WHERE id = ?`, id)
	stage, err := scanStage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "stage not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get stage", goerr.V("id", id))
	}
	return stage, nil
}

func (r *stageRepository) ListByTask(ctx context.Context, taskID types.TaskID) ([]*model.TaskStage, error) {
	grouped, err := r.ListByTasks(ctx, []types.TaskID{taskID})
	if err != nil {
		return nil, err
	}
	if stages, ok := grouped[taskID]; ok {
		return stages, nil
	}
	return []*model.TaskStage{}, nil
}

func (r *stageRepository) ListByTasks(ctx context.Context, taskIDs []types.TaskID) (map[types.TaskID][]*model.TaskStage, error) {
	result := make(map[types.TaskID][]*model.TaskStage)
	if len(taskIDs) == 0 {
		return result, nil
	}

	args := make([]any, len(taskIDs))
	for i, id := range taskIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+stageColumns+` FROM task_stages WHERE task_id IN (`+placeholders(len(taskIDs))+`)
		 ORDER BY task_id, order_index ASC, created_at ASC`, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list stages")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan stage")
		}
		result[stage.TaskID] = append(result[stage.TaskID], stage)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate stages")
	}
	return result, nil
}

func (r *stageRepository) Update(ctx context.Context, stage *model.TaskStage) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE task_stages SET name = ?, order_index = ?, status = ?, updated_at = ? WHERE id = ?`,
		stage.Name, stage.OrderIndex, stage.Status, toUnix(stage.UpdatedAt), stage.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to update stage", goerr.V("id", stage.ID))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return goerr.Wrap(interfaces.ErrNotFound, "stage not found", goerr.V("id", stage.ID))
	}
	return nil
}

func (r *stageRepository) Delete(ctx context.Context, id types.StageID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM task_stages WHERE id = ?`, id)
	if err != nil {
		return goerr.Wrap(err, "failed to delete stage", goerr.V("id", id))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return goerr.Wrap(interfaces.ErrNotFound, "stage not found", goerr.V("id", id))
	}
	return nil
}

func (r *stageRepository) Swap(ctx context.Context, a, b types.StageID, updatedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	sa, err := getStage(ctx, tx, a)
	if err != nil {
		return err
	}
	sb, err := getStage(ctx, tx, b)
	if err != nil {
		return err
	}

	now := toUnix(updatedAt)
	update := `UPDATE task_stages SET order_index = ?, updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, update, sb.OrderIndex, now, sa.ID); err != nil {
		return goerr.Wrap(err, "failed to move stage", goerr.V("id", sa.ID))
	}
	if _, err := tx.ExecContext(ctx, update, sa.OrderIndex, now, sb.ID); err != nil {
		return goerr.Wrap(err, "failed to move stage", goerr.V("id", sb.ID))
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit stage swap")
	}
	return nil
}
