package model

import (
	"time"

	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// Organization is a tenant. Its creator is the single owner.
type Organization struct {
	ID          types.OrganizationID `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	CreatorID   types.UserID         `json:"creator_id"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// Membership links a user to an organization
type Membership struct {
	OrganizationID types.OrganizationID `json:"organization_id"`
	UserID         types.UserID         `json:"user_id"`
	Role           types.MemberRole     `json:"role"`
	JoinedAt       time.Time            `json:"joined_at"`
}

// IsOwner reports whether the membership carries the owner role
func (m *Membership) IsOwner() bool {
	return m != nil && m.Role == types.MemberRoleOwner
}

// OrganizationInvitation invites a user to join an organization
type OrganizationInvitation struct {
	ID             types.InvitationID     `json:"id"`
	OrganizationID types.OrganizationID   `json:"organization_id"`
	InviterID      types.UserID           `json:"inviter_id"`
	InviteeID      types.UserID           `json:"invitee_id"`
	Status         types.InvitationStatus `json:"status"`
	CreatedAt      time.Time              `json:"created_at"`
	RespondedAt    *time.Time             `json:"responded_at,omitempty"`
}
