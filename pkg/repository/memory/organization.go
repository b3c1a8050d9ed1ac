package memory

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type organizationRepository struct {
	m *Memory
}

func copyOrganization(o *model.Organization) *model.Organization {
	c := *o
	return &c
}

func copyMembership(m *model.Membership) *model.Membership {
	c := *m
	return &c
}

func (r *organizationRepository) Create(ctx context.Context, org *model.Organization, owner *model.Membership) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.orgs[org.ID]; exists {
		return goerr.Wrap(interfaces.ErrAlreadyExists, "organization already exists", goerr.V("id", org.ID))
	}

	r.m.orgs[org.ID] = copyOrganization(org)
	r.m.members[org.ID] = map[types.UserID]*model.Membership{
		owner.UserID: copyMembership(owner),
	}
	return nil
}

func (r *organizationRepository) Get(ctx context.Context, id types.OrganizationID) (*model.Organization, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	org, exists := r.m.orgs[id]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "organization not found", goerr.V("id", id))
	}
	return copyOrganization(org), nil
}

func (r *organizationRepository) ListByMember(ctx context.Context, userID types.UserID) ([]*model.Organization, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	orgs := make([]*model.Organization, 0)
	for orgID, members := range r.m.members {
		if _, ok := members[userID]; !ok {
			continue
		}
		if org, ok := r.m.orgs[orgID]; ok {
			orgs = append(orgs, copyOrganization(org))
		}
	}

	sort.Slice(orgs, func(i, j int) bool {
		return orgs[i].CreatedAt.Before(orgs[j].CreatedAt)
	})
	return orgs, nil
}

func (r *organizationRepository) PutMember(ctx context.Context, m *model.Membership) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	members, exists := r.m.members[m.OrganizationID]
	if !exists {
		return goerr.Wrap(interfaces.ErrNotFound, "organization not found", goerr.V("id", m.OrganizationID))
	}
	members[m.UserID] = copyMembership(m)
	return nil
}

func (r *organizationRepository) GetMember(ctx context.Context, orgID types.OrganizationID, userID types.UserID) (*model.Membership, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	member, exists := r.m.members[orgID][userID]
	if !exists {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "membership not found",
			goerr.V("organization_id", orgID), goerr.V("user_id", userID))
	}
	return copyMembership(member), nil
}

func (r *organizationRepository) ListMembers(ctx context.Context, orgID types.OrganizationID) ([]*model.Membership, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	result := make([]*model.Membership, 0, len(r.m.members[orgID]))
	for _, member := range r.m.members[orgID] {
		result = append(result, copyMembership(member))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].JoinedAt.Before(result[j].JoinedAt)
	})
	return result, nil
}

func (r *organizationRepository) DeleteMember(ctx context.Context, orgID types.OrganizationID, userID types.UserID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, exists := r.m.members[orgID][userID]; !exists {
		return goerr.Wrap(interfaces.ErrNotFound, "membership not found",
			goerr.V("organization_id", orgID), goerr.V("user_id", userID))
	}
	delete(r.m.members[orgID], userID)
	return nil
}
