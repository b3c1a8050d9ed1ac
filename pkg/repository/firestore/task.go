package firestore

import (
	"context"
	"slices"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type taskRepository struct {
	f *Firestore
}

func (r *taskRepository) ref(id types.TaskID) *firestore.DocumentRef {
	return r.f.collection(collectionTasks).Doc(id.String())
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	if _, err := r.ref(task.ID).Create(ctx, task); err != nil {
		if isAlreadyExists(err) {
			return goerr.Wrap(interfaces.ErrAlreadyExists, "task already exists", goerr.V("id", task.ID))
		}
		return goerr.Wrap(err, "failed to create task", goerr.V("id", task.ID))
	}
	return nil
}

func (r *taskRepository) Get(ctx context.Context, id types.TaskID) (*model.Task, error) {
	doc, err := r.ref(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "task not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get task", goerr.V("id", id))
	}

	var task model.Task
	if err := doc.DataTo(&task); err != nil {
		return nil, goerr.Wrap(err, "failed to decode task", goerr.V("id", id))
	}
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, filter interfaces.TaskFilter) ([]*model.Task, error) {
	q := r.f.collection(collectionTasks).Query
	if filter.OrganizationID != "" {
		q = q.Where("OrganizationID", "==", filter.OrganizationID.String())
	}
	if filter.AssigneeID != "" {
		q = q.Where("AssigneeID", "==", filter.AssigneeID.String())
	}
	if filter.AssignerID != "" {
		q = q.Where("AssignerID", "==", filter.AssignerID.String())
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = s.String()
		}
		q = q.Where("Status", "in", statuses)
	}

	tasks, err := decodeAll[model.Task](q.Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tasks")
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// checkStatus reads the task inside tx and compares its status and version
func (r *taskRepository) checkStatus(tx *firestore.Transaction, task *model.Task, expected types.TaskStatus) error {
	doc, err := tx.Get(r.ref(task.ID))
	if err != nil {
		if isNotFound(err) {
			return goerr.Wrap(interfaces.ErrNotFound, "task not found", goerr.V("id", task.ID))
		}
		return goerr.Wrap(err, "failed to get task", goerr.V("id", task.ID))
	}

	var stored model.Task
	if err := doc.DataTo(&stored); err != nil {
		return goerr.Wrap(err, "failed to decode task", goerr.V("id", task.ID))
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

func (r *taskRepository) Update(ctx context.Context, task *model.Task, expected types.TaskStatus) error {
	next := task.Copy()
	next.Version++

	err := r.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := r.checkStatus(tx, task, expected); err != nil {
			return err
		}
		return tx.Set(r.ref(task.ID), next)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to update task", goerr.V("id", task.ID))
	}
	task.Version = next.Version
	return nil
}

func (r *taskRepository) Complete(ctx context.Context, task *model.Task, expected types.TaskStatus, report *model.TaskReport) error {
	reportRef := r.f.collection(collectionReports).Doc(report.ID.String())
	next := task.Copy()
	next.Version++

	err := r.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := r.checkStatus(tx, task, expected); err != nil {
			return err
		}
		if _, err := tx.Get(reportRef); err == nil {
			return goerr.Wrap(interfaces.ErrAlreadyExists, "report already exists", goerr.V("id", report.ID))
		} else if !isNotFound(err) {
			return goerr.Wrap(err, "failed to check report", goerr.V("id", report.ID))
		}

		if err := tx.Set(r.ref(task.ID), next); err != nil {
			return err
		}
		return tx.Create(reportRef, report)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to complete task", goerr.V("id", task.ID))
	}
	task.Version = next.Version
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id types.TaskID) error {
	taskRef := r.ref(id)

	err := r.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(taskRef); err != nil {
			if isNotFound(err) {
				return goerr.Wrap(interfaces.ErrNotFound, "task not found", goerr.V("id", id))
			}
			return goerr.Wrap(err, "failed to get task", goerr.V("id", id))
		}

		var refs []*firestore.DocumentRef
		for _, name := range []string{collectionStages, collectionReports} {
			docs, err := tx.Documents(r.f.collection(name).Where("TaskID", "==", id.String())).GetAll()
			if err != nil {
				return goerr.Wrap(err, "failed to list dependents", goerr.V("collection", name))
			}
			for _, doc := range docs {
				refs = append(refs, doc.Ref)
			}
		}

		for _, ref := range append(refs, taskRef) {
			if err := tx.Delete(ref); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to delete task", goerr.V("id", id))
	}
	return nil
}

func (r *taskRepository) ListReports(ctx context.Context, taskID types.TaskID) ([]*model.TaskReport, error) {
	reports, err := decodeAll[model.TaskReport](
		r.f.collection(collectionReports).Where("TaskID", "==", taskID.String()).Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list reports", goerr.V("task_id", taskID))
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.Before(reports[j].CreatedAt)
	})
	return reports, nil
}

// chunkIDs splits values for "in" filters
func chunkIDs(ids []string) [][]string {
	var chunks [][]string
	for chunk := range slices.Chunk(ids, maxInValues) {
		chunks = append(chunks, chunk)
	}
	return chunks
}
