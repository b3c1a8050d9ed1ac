package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// requireMember returns the actor's membership or ErrForbidden
func (e *env) requireMember(ctx context.Context, orgID types.OrganizationID, actor auth.Principal) (*model.Membership, error) {
	if err := actor.Validate(); err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, err.Error())
	}

	if _, err := e.repo.Organization().Get(ctx, orgID); err != nil {
		return nil, translate(err, "failed to get organization", goerr.V(OrganizationIDKey, orgID))
	}

	member, err := e.repo.Organization().GetMember(ctx, orgID, actor.UserID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrForbidden, "not a member of the organization",
				goerr.V(OrganizationIDKey, orgID), goerr.V(UserIDKey, actor.UserID))
		}
		return nil, goerr.Wrap(err, "failed to get membership", goerr.V(OrganizationIDKey, orgID))
	}
	return member, nil
}

// requireOwner returns the actor's membership when it carries the owner role
func (e *env) requireOwner(ctx context.Context, orgID types.OrganizationID, actor auth.Principal) (*model.Membership, error) {
	member, err := e.requireMember(ctx, orgID, actor)
	if err != nil {
		return nil, err
	}
	if !member.IsOwner() {
		return nil, goerr.Wrap(ErrForbidden, "only the organization owner can do this",
			goerr.V(OrganizationIDKey, orgID), goerr.V(UserIDKey, actor.UserID))
	}
	return member, nil
}

// loadTask fetches a task and checks the actor belongs to its organization
func (e *env) loadTask(ctx context.Context, taskID types.TaskID, actor auth.Principal) (*model.Task, error) {
	if err := taskID.Validate(); err != nil {
		return nil, goerr.Wrap(ErrValidation, err.Error(), goerr.V(TaskIDKey, taskID))
	}

	task, err := e.repo.Task().Get(ctx, taskID)
	if err != nil {
		return nil, translate(err, "failed to get task", goerr.V(TaskIDKey, taskID))
	}
	if _, err := e.requireMember(ctx, task.OrganizationID, actor); err != nil {
		return nil, err
	}
	return task, nil
}

func isParticipant(task *model.Task, userID types.UserID) bool {
	return task.AssignerID == userID || task.AssigneeID == userID
}
