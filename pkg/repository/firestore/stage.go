package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type stageRepository struct {
	f *Firestore
}

func (r *stageRepository) ref(id types.StageID) *firestore.DocumentRef {
	return r.f.collection(collectionStages).Doc(id.String())
}

func (r *stageRepository) Create(ctx context.Context, stage *model.TaskStage) error {
	if _, err := r.f.task.Get(ctx, stage.TaskID); err != nil {
		return err
	}
	if _, err := r.ref(stage.ID).Create(ctx, stage); err != nil {
		if isAlreadyExists(err) {
			return goerr.Wrap(interfaces.ErrAlreadyExists, "stage already exists", goerr.V("id", stage.ID))
		}
		return goerr.Wrap(err, "failed to create stage", goerr.V("id", stage.ID))
	}
	return nil
}

func (r *stageRepository) Get(ctx context.Context, id types.StageID) (*model.TaskStage, error) {
	doc, err := r.ref(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "stage not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get stage", goerr.V("id", id))
	}

	var stage model.TaskStage
	if err := doc.DataTo(&stage); err != nil {
		return nil, goerr.Wrap(err, "failed to decode stage", goerr.V("id", id))
	}
	return &stage, nil
}

func (r *stageRepository) ListByTask(ctx context.Context, taskID types.TaskID) ([]*model.TaskStage, error) {
	stages, err := decodeAll[model.TaskStage](
		r.f.collection(collectionStages).Where("TaskID", "==", taskID.String()).Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list stages", goerr.V("task_id", taskID))
	}
	model.SortStages(stages)
	return stages, nil
}

func (r *stageRepository) ListByTasks(ctx context.Context, taskIDs []types.TaskID) (map[types.TaskID][]*model.TaskStage, error) {
	ids := make([]string, len(taskIDs))
	for i, id := range taskIDs {
		ids[i] = id.String()
	}

	result := make(map[types.TaskID][]*model.TaskStage)
	for _, chunk := range chunkIDs(ids) {
		stages, err := decodeAll[model.TaskStage](
			r.f.collection(collectionStages).Where("TaskID", "in", chunk).Documents(ctx))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list stages")
		}
		for _, stage := range stages {
			result[stage.TaskID] = append(result[stage.TaskID], stage)
		}
	}
	for _, stages := range result {
		model.SortStages(stages)
	}
	return result, nil
}

func (r *stageRepository) Update(ctx context.Context, stage *model.TaskStage) error {
	ref := r.ref(stage.ID)
	if _, err := ref.Get(ctx); err != nil {
		if isNotFound(err) {
			return goerr.Wrap(interfaces.ErrNotFound, "stage not found", goerr.V("id", stage.ID))
		}
		return goerr.Wrap(err, "failed to check stage existence", goerr.V("id", stage.ID))
	}
	if _, err := ref.Set(ctx, stage); err != nil {
		return goerr.Wrap(err, "failed to update stage", goerr.V("id", stage.ID))
	}
	return nil
}

func (r *stageRepository) Delete(ctx context.Context, id types.StageID) error {
	ref := r.ref(id)
	if _, err := ref.Get(ctx); err != nil {
		if isNotFound(err) {
			return goerr.Wrap(interfaces.ErrNotFound, "stage not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to check stage existence", goerr.V("id", id))
	}
	if _, err := ref.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete stage", goerr.V("id", id))
	}
	return nil
}

func (r *stageRepository) Swap(ctx context.Context, a, b types.StageID, updatedAt time.Time) error {
	refA, refB := r.ref(a), r.ref(b)

	err := r.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docs, err := tx.GetAll([]*firestore.DocumentRef{refA, refB})
		if err != nil {
			return goerr.Wrap(err, "failed to get stages")
		}

		stages := make([]model.TaskStage, 2)
		for i, doc := range docs {
			if !doc.Exists() {
				return goerr.Wrap(interfaces.ErrNotFound, "stage not found", goerr.V("id", doc.Ref.ID))
			}
			if err := doc.DataTo(&stages[i]); err != nil {
				return goerr.Wrap(err, "failed to decode stage", goerr.V("id", doc.Ref.ID))
			}
		}

		if err := tx.Update(refA, []firestore.Update{
			{Path: "OrderIndex", Value: stages[1].OrderIndex},
			{Path: "UpdatedAt", Value: updatedAt},
		}); err != nil {
			return err
		}
		return tx.Update(refB, []firestore.Update{
			{Path: "OrderIndex", Value: stages[0].OrderIndex},
			{Path: "UpdatedAt", Value: updatedAt},
		})
	})
	if err != nil {
		return goerr.Wrap(err, "failed to swap stages", goerr.V("a", a), goerr.V("b", b))
	}
	return nil
}
