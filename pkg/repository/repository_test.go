package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/repository/firestore"
	"github.com/secmon-lab/teamtask/pkg/repository/memory"
	"github.com/secmon-lab/teamtask/pkg/repository/sqlite"
)

type repoFactory func(t *testing.T) interfaces.Repository

func newMemoryRepository(t *testing.T) interfaces.Repository {
	return memory.New()
}

func newSQLiteRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	repo, err := sqlite.New(context.Background(), sqlite.Config{
		DBPath: filepath.Join(t.TempDir(), "teamtask.db"),
	})
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if databaseID == "" {
		t.Skip("TEST_FIRESTORE_DATABASE_ID not set")
	}

	ctx := context.Background()
	prefix := "test_" + types.NewOrganizationID().String()[:8]
	repo, err := firestore.New(ctx, projectID, databaseID, firestore.WithCollectionPrefix(prefix))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

// forEachBackend runs the suite against every backend
func forEachBackend(t *testing.T, run func(t *testing.T, newRepo repoFactory)) {
	t.Run("Memory", func(t *testing.T) { run(t, newMemoryRepository) })
	t.Run("SQLite", func(t *testing.T) { run(t, newSQLiteRepository) })
	t.Run("Firestore", func(t *testing.T) { run(t, newFirestoreRepository) })
}

// Firestore keeps microseconds, SQLite nanoseconds; truncate so both round trip
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func setupOrganization(t *testing.T, repo interfaces.Repository, owner types.UserID, members ...types.UserID) *model.Organization {
	t.Helper()
	ctx := context.Background()

	ts := now()
	org := &model.Organization{
		ID:        types.NewOrganizationID(),
		Name:      "Platform Team",
		CreatorID: owner,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	gt.NoError(t, repo.Organization().Create(ctx, org, &model.Membership{
		OrganizationID: org.ID,
		UserID:         owner,
		Role:           types.MemberRoleOwner,
		JoinedAt:       ts,
	})).Required()

	for _, m := range members {
		gt.NoError(t, repo.Organization().PutMember(ctx, &model.Membership{
			OrganizationID: org.ID,
			UserID:         m,
			Role:           types.MemberRoleMember,
			JoinedAt:       now(),
		})).Required()
	}
	return org
}

func newTestTask(orgID types.OrganizationID, assigner, assignee types.UserID) *model.Task {
	ts := now()
	return &model.Task{
		ID:             types.NewTaskID(),
		OrganizationID: orgID,
		AssignerID:     assigner,
		AssigneeID:     assignee,
		Title:          "Rotate credentials",
		Description:    "Rotate the staging database credentials",
		Priority:       types.PriorityHigh,
		Status:         types.TaskStatusPending,
		Deadline:       ts.Add(48 * time.Hour),
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
}
