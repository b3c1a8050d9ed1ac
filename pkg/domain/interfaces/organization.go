package interfaces

import (
	"context"

	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// OrganizationRepository persists organizations and memberships
type OrganizationRepository interface {
	// Create stores the organization and the owner membership together
	Create(ctx context.Context, org *model.Organization, owner *model.Membership) error
	Get(ctx context.Context, id types.OrganizationID) (*model.Organization, error)

	// ListByMember returns the organizations the user belongs to
	ListByMember(ctx context.Context, userID types.UserID) ([]*model.Organization, error)

	// PutMember creates or replaces a membership
	PutMember(ctx context.Context, m *model.Membership) error
	GetMember(ctx context.Context, orgID types.OrganizationID, userID types.UserID) (*model.Membership, error)
	ListMembers(ctx context.Context, orgID types.OrganizationID) ([]*model.Membership, error)
	DeleteMember(ctx context.Context, orgID types.OrganizationID, userID types.UserID) error
}
