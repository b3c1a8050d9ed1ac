package firestore

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type organizationRepository struct {
	f *Firestore
}

func (r *organizationRepository) memberRef(orgID types.OrganizationID, userID types.UserID) *firestore.DocumentRef {
	return r.f.collection(collectionMemberships).Doc(compositeID(orgID.String(), userID.String()))
}

func (r *organizationRepository) Create(ctx context.Context, org *model.Organization, owner *model.Membership) error {
	orgRef := r.f.collection(collectionOrganizations).Doc(org.ID.String())
	memberRef := r.memberRef(owner.OrganizationID, owner.UserID)

	err := r.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(orgRef, org); err != nil {
			return err
		}
		return tx.Set(memberRef, owner)
	})
	if err != nil {
		if isAlreadyExists(err) {
			return goerr.Wrap(interfaces.ErrAlreadyExists, "organization already exists", goerr.V("id", org.ID))
		}
		return goerr.Wrap(err, "failed to create organization", goerr.V("id", org.ID))
	}
	return nil
}

func (r *organizationRepository) Get(ctx context.Context, id types.OrganizationID) (*model.Organization, error) {
	doc, err := r.f.collection(collectionOrganizations).Doc(id.String()).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "organization not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get organization", goerr.V("id", id))
	}

	var org model.Organization
	if err := doc.DataTo(&org); err != nil {
		return nil, goerr.Wrap(err, "failed to decode organization", goerr.V("id", id))
	}
	return &org, nil
}

func (r *organizationRepository) ListByMember(ctx context.Context, userID types.UserID) ([]*model.Organization, error) {
	members, err := decodeAll[model.Membership](
		r.f.collection(collectionMemberships).Where("UserID", "==", userID.String()).Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memberships", goerr.V("user_id", userID))
	}
	if len(members) == 0 {
		return []*model.Organization{}, nil
	}

	refs := make([]*firestore.DocumentRef, len(members))
	for i, m := range members {
		refs[i] = r.f.collection(collectionOrganizations).Doc(m.OrganizationID.String())
	}
	docs, err := r.f.client.GetAll(ctx, refs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get organizations", goerr.V("user_id", userID))
	}

	orgs := make([]*model.Organization, 0, len(docs))
	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		var org model.Organization
		if err := doc.DataTo(&org); err != nil {
			return nil, goerr.Wrap(err, "failed to decode organization", goerr.V("doc_id", doc.Ref.ID))
		}
		orgs = append(orgs, &org)
	}

	sort.Slice(orgs, func(i, j int) bool {
		return orgs[i].CreatedAt.Before(orgs[j].CreatedAt)
	})
	return orgs, nil
}

func (r *organizationRepository) PutMember(ctx context.Context, m *model.Membership) error {
	if _, err := r.Get(ctx, m.OrganizationID); err != nil {
		return err
	}
	if _, err := r.memberRef(m.OrganizationID, m.UserID).Set(ctx, m); err != nil {
		return goerr.Wrap(err, "failed to put membership",
			goerr.V("organization_id", m.OrganizationID), goerr.V("user_id", m.UserID))
	}
	return nil
}

func (r *organizationRepository) GetMember(ctx context.Context, orgID types.OrganizationID, userID types.UserID) (*model.Membership, error) {
	doc, err := r.memberRef(orgID, userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "membership not found",
				goerr.V("organization_id", orgID), goerr.V("user_id", userID))
		}
		return nil, goerr.Wrap(err, "failed to get membership",
			goerr.V("organization_id", orgID), goerr.V("user_id", userID))
	}

	var m model.Membership
	if err := doc.DataTo(&m); err != nil {
		return nil, goerr.Wrap(err, "failed to decode membership")
	}
	return &m, nil
}

func (r *organizationRepository) ListMembers(ctx context.Context, orgID types.OrganizationID) ([]*model.Membership, error) {
	members, err := decodeAll[model.Membership](
		r.f.collection(collectionMemberships).Where("OrganizationID", "==", orgID.String()).Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list members", goerr.V("organization_id", orgID))
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

func (r *organizationRepository) DeleteMember(ctx context.Context, orgID types.OrganizationID, userID types.UserID) error {
	ref := r.memberRef(orgID, userID)
	if _, err := ref.Get(ctx); err != nil {
		if isNotFound(err) {
			return goerr.Wrap(interfaces.ErrNotFound, "membership not found",
				goerr.V("organization_id", orgID), goerr.V("user_id", userID))
		}
		return goerr.Wrap(err, "failed to check membership existence")
	}
	if _, err := ref.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete membership",
			goerr.V("organization_id", orgID), goerr.V("user_id", userID))
	}
	return nil
}
