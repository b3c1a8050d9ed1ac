package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/utils/logging"
)

type OrganizationUseCase struct {
	*env
}

func (uc *OrganizationUseCase) CreateOrganization(ctx context.Context, actor auth.Principal, name, description string) (*model.Organization, error) {
	if err := actor.Validate(); err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, err.Error())
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, goerr.Wrap(ErrValidation, "organization name is required")
	}

	now := uc.now()
	org := &model.Organization{
		ID:          types.NewOrganizationID(),
		Name:        name,
		Description: description,
		CreatorID:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	owner := &model.Membership{
		OrganizationID: org.ID,
		UserID:         actor.UserID,
		Role:           types.MemberRoleOwner,
		JoinedAt:       now,
	}

	if err := uc.repo.Organization().Create(ctx, org, owner); err != nil {
		return nil, translate(err, "failed to create organization", goerr.V(OrganizationIDKey, org.ID))
	}

	logging.From(ctx).Info("organization created", "organization_id", org.ID, "owner", actor.UserID)
	return org, nil
}

func (uc *OrganizationUseCase) GetOrganization(ctx context.Context, orgID types.OrganizationID, actor auth.Principal) (*model.Organization, error) {
	if _, err := uc.requireMember(ctx, orgID, actor); err != nil {
		return nil, err
	}
	org, err := uc.repo.Organization().Get(ctx, orgID)
	if err != nil {
		return nil, translate(err, "failed to get organization", goerr.V(OrganizationIDKey, orgID))
	}
	return org, nil
}

func (uc *OrganizationUseCase) ListMyOrganizations(ctx context.Context, actor auth.Principal) ([]*model.Organization, error) {
	if err := actor.Validate(); err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, err.Error())
	}
	orgs, err := uc.repo.Organization().ListByMember(ctx, actor.UserID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list organizations", goerr.V(UserIDKey, actor.UserID))
	}
	return orgs, nil
}

func (uc *OrganizationUseCase) ListMembers(ctx context.Context, orgID types.OrganizationID, actor auth.Principal) ([]*model.Membership, error) {
	if _, err := uc.requireMember(ctx, orgID, actor); err != nil {
		return nil, err
	}
	members, err := uc.repo.Organization().ListMembers(ctx, orgID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list members", goerr.V(OrganizationIDKey, orgID))
	}
	return members, nil
}

func (uc *OrganizationUseCase) RemoveMember(ctx context.Context, orgID types.OrganizationID, actor auth.Principal, userID types.UserID) error {
	if _, err := uc.requireOwner(ctx, orgID, actor); err != nil {
		return err
	}

	target, err := uc.repo.Organization().GetMember(ctx, orgID, userID)
	if err != nil {
		return translate(err, "member not found", goerr.V(OrganizationIDKey, orgID), goerr.V(UserIDKey, userID))
	}
	if target.IsOwner() {
		return goerr.Wrap(ErrConflict, "the owner cannot be removed", goerr.V(OrganizationIDKey, orgID))
	}

	if err := uc.repo.Organization().DeleteMember(ctx, orgID, userID); err != nil {
		return translate(err, "failed to remove member", goerr.V(OrganizationIDKey, orgID), goerr.V(UserIDKey, userID))
	}
	return nil
}

func (uc *OrganizationUseCase) Invite(ctx context.Context, orgID types.OrganizationID, actor auth.Principal, inviteeID types.UserID) (*model.OrganizationInvitation, error) {
	if _, err := uc.requireOwner(ctx, orgID, actor); err != nil {
		return nil, err
	}
	if err := inviteeID.Validate(); err != nil {
		return nil, goerr.Wrap(ErrValidation, "invitee is required")
	}

	_, err := uc.repo.Organization().GetMember(ctx, orgID, inviteeID)
	switch {
	case err == nil:
		return nil, goerr.Wrap(ErrConflict, "user is already a member",
			goerr.V(OrganizationIDKey, orgID), goerr.V(UserIDKey, inviteeID))
	case !errors.Is(err, interfaces.ErrNotFound):
		return nil, goerr.Wrap(err, "failed to check membership", goerr.V(OrganizationIDKey, orgID))
	}

	inv := &model.OrganizationInvitation{
		ID:             types.NewInvitationID(),
		OrganizationID: orgID,
		InviterID:      actor.UserID,
		InviteeID:      inviteeID,
		Status:         types.InvitationStatusPending,
		CreatedAt:      uc.now(),
	}
	if err := uc.repo.Invitation().Create(ctx, inv); err != nil {
		return nil, translate(err, "failed to create invitation", goerr.V(InvitationIDKey, inv.ID))
	}

	org, err := uc.repo.Organization().Get(ctx, orgID)
	if err != nil {
		return nil, translate(err, "failed to get organization", goerr.V(OrganizationIDKey, orgID))
	}
	uc.publish(ctx, &model.Event{
		Type:           types.EventTypeNotification,
		OrganizationID: orgID,
		ActorID:        actor.UserID,
		Recipients:     []types.UserID{inviteeID},
		Notification: &model.EventNotification{
			Type:  types.NotificationTypeInvitation,
			ID:    inv.ID.String(),
			Title: "Invitation to " + org.Name,
		},
	})
	return inv, nil
}

func (uc *OrganizationUseCase) ListMyInvitations(ctx context.Context, actor auth.Principal) ([]*model.OrganizationInvitation, error) {
	if err := actor.Validate(); err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, err.Error())
	}
	invitations, err := uc.repo.Invitation().ListByInvitee(ctx, actor.UserID, types.InvitationStatusPending)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list invitations", goerr.V(UserIDKey, actor.UserID))
	}
	return invitations, nil
}

func (uc *OrganizationUseCase) AcceptInvitation(ctx context.Context, id types.InvitationID, actor auth.Principal) (*model.OrganizationInvitation, error) {
	return uc.respond(ctx, id, actor, types.InvitationStatusAccepted)
}

func (uc *OrganizationUseCase) DeclineInvitation(ctx context.Context, id types.InvitationID, actor auth.Principal) (*model.OrganizationInvitation, error) {
	return uc.respond(ctx, id, actor, types.InvitationStatusDeclined)
}

func (uc *OrganizationUseCase) respond(ctx context.Context, id types.InvitationID, actor auth.Principal, status types.InvitationStatus) (*model.OrganizationInvitation, error) {
	if err := actor.Validate(); err != nil {
		return nil, goerr.Wrap(ErrUnauthenticated, err.Error())
	}
	if err := id.Validate(); err != nil {
		return nil, goerr.Wrap(ErrValidation, err.Error(), goerr.V(InvitationIDKey, id))
	}

	inv, err := uc.repo.Invitation().Get(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to get invitation", goerr.V(InvitationIDKey, id))
	}
	if inv.InviteeID != actor.UserID {
		return nil, goerr.Wrap(ErrForbidden, "invitation is addressed to another user", goerr.V(InvitationIDKey, id))
	}
	if inv.Status != types.InvitationStatusPending {
		return nil, goerr.Wrap(ErrConflict, "invitation already answered",
			goerr.V(InvitationIDKey, id), goerr.V(StatusKey, inv.Status))
	}

	now := uc.now()
	inv.Status = status
	inv.RespondedAt = &now

	var member *model.Membership
	if status == types.InvitationStatusAccepted {
		member = &model.Membership{
			OrganizationID: inv.OrganizationID,
			UserID:         actor.UserID,
			Role:           types.MemberRoleMember,
			JoinedAt:       now,
		}
	}

	if err := uc.repo.Invitation().Respond(ctx, inv, member); err != nil {
		return nil, translate(err, "failed to respond to invitation", goerr.V(InvitationIDKey, id))
	}
	return inv, nil
}
