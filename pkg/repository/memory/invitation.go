package memory

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type invitationRepository struct {
	m *Memory
}

func copyInvitation(inv *model.OrganizationInvitation) *model.OrganizationInvitation {
	c := *inv
	if inv.RespondedAt != nil {
		v := *inv.RespondedAt
		c.RespondedAt = &v
	}
	return &c
}

func (r *invitationRepository) Create(ctx context.Context, inv *model.OrganizationInvitation) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.invitations[inv.ID]; exists {
		return goerr.Wrap(interfaces.ErrAlreadyExists, "invitation already exists", goerr.V("id", inv.ID))
	}
	r.m.invitations[inv.ID] = copyInvitation(inv)
	return nil
}

func (r *invitationRepository) Get(ctx context.Context, id types.InvitationID) (*model.OrganizationInvitation, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	inv, exists := r.m.invitations[id]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "invitation not found", goerr.V("id", id))
	}
	return copyInvitation(inv), nil
}

func (r *invitationRepository) ListByInvitee(ctx context.Context, userID types.UserID, status types.InvitationStatus) ([]*model.OrganizationInvitation, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	result := make([]*model.OrganizationInvitation, 0)
	for _, inv := range r.m.invitations {
		if inv.InviteeID != userID {
			continue
		}
		if status != "" && inv.Status != status {
			continue
		}
		result = append(result, copyInvitation(inv))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *invitationRepository) Respond(ctx context.Context, inv *model.OrganizationInvitation, member *model.Membership) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored, exists := r.m.invitations[inv.ID]
	if !exists {
		return goerr.Wrap(interfaces.ErrNotFound, "invitation not found", goerr.V("id", inv.ID))
	}
	if stored.Status != types.InvitationStatusPending {
		return goerr.Wrap(interfaces.ErrStatusMismatch, "invitation already answered",
			goerr.V("id", inv.ID), goerr.V("status", stored.Status))
	}

	if member != nil {
		members, ok := r.m.members[member.OrganizationID]
		if !ok {
			return goerr.Wrap(interfaces.ErrNotFound, "organization not found", goerr.V("id", member.OrganizationID))
		}
		if _, already := members[member.UserID]; !already {
			members[member.UserID] = copyMembership(member)
		}
	}

	r.m.invitations[inv.ID] = copyInvitation(inv)
	return nil
}
