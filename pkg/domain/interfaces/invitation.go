package interfaces

import (
	"context"

	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// InvitationRepository persists organization invitations
type InvitationRepository interface {
	Create(ctx context.Context, inv *model.OrganizationInvitation) error
	Get(ctx context.Context, id types.InvitationID) (*model.OrganizationInvitation, error)

	// ListByInvitee returns invitations addressed to the user with the given status.
	// An empty status returns all of them.
	ListByInvitee(ctx context.Context, userID types.UserID, status types.InvitationStatus) ([]*model.OrganizationInvitation, error)

	// Respond moves a pending invitation to a terminal status. ErrStatusMismatch is
	// returned when the invitation is no longer pending. Accepting stores the
	// membership in the same unit of work.
	Respond(ctx context.Context, inv *model.OrganizationInvitation, member *model.Membership) error
}
