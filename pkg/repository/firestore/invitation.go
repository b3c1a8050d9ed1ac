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

type invitationRepository struct {
	f *Firestore
}

func (r *invitationRepository) ref(id types.InvitationID) *firestore.DocumentRef {
	return r.f.collection(collectionInvitations).Doc(id.String())
}

func (r *invitationRepository) Create(ctx context.Context, inv *model.OrganizationInvitation) error {
	if _, err := r.ref(inv.ID).Create(ctx, inv); err != nil {
		if isAlreadyExists(err) {
			return goerr.Wrap(interfaces.ErrAlreadyExists, "invitation already exists", goerr.V("id", inv.ID))
		}
		return goerr.Wrap(err, "failed to create invitation", goerr.V("id", inv.ID))
	}
	return nil
}

func (r *invitationRepository) Get(ctx context.Context, id types.InvitationID) (*model.OrganizationInvitation, error) {
	doc, err := r.ref(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "invitation not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get invitation", goerr.V("id", id))
	}

	var inv model.OrganizationInvitation
	if err := doc.DataTo(&inv); err != nil {
		return nil, goerr.Wrap(err, "failed to decode invitation", goerr.V("id", id))
	}
	return &inv, nil
}

func (r *invitationRepository) ListByInvitee(ctx context.Context, userID types.UserID, status types.InvitationStatus) ([]*model.OrganizationInvitation, error) {
	q := r.f.collection(collectionInvitations).Where("InviteeID", "==", userID.String())
	if status != "" {
		q = q.Where("Status", "==", status.String())
	}

	invitations, err := decodeAll[model.OrganizationInvitation](q.Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list invitations", goerr.V("user_id", userID))
	}
	sort.Slice(invitations, func(i, j int) bool {
		return invitations[i].CreatedAt.Before(invitations[j].CreatedAt)
	})
	return invitations, nil
}

func (r *invitationRepository) Respond(ctx context.Context, inv *model.OrganizationInvitation, member *model.Membership) error {
	invRef := r.ref(inv.ID)

	err := r.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(invRef)
		if err != nil {
			if isNotFound(err) {
				return goerr.Wrap(interfaces.ErrNotFound, "invitation not found", goerr.V("id", inv.ID))
			}
			return goerr.Wrap(err, "failed to get invitation", goerr.V("id", inv.ID))
		}

		var stored model.OrganizationInvitation
		if err := doc.DataTo(&stored); err != nil {
			return goerr.Wrap(err, "failed to decode invitation", goerr.V("id", inv.ID))
		}
		if stored.Status != types.InvitationStatusPending {
			return goerr.Wrap(interfaces.ErrStatusMismatch, "invitation already answered",
				goerr.V("id", inv.ID), goerr.V("status", stored.Status))
		}

		var memberRef *firestore.DocumentRef
		if member != nil {
			memberRef = r.f.organization.memberRef(member.OrganizationID, member.UserID)
			if _, err := tx.Get(memberRef); err == nil {
				memberRef = nil
			} else if !isNotFound(err) {
				return goerr.Wrap(err, "failed to check membership")
			}
		}

		if err := tx.Set(invRef, inv); err != nil {
			return err
		}
		if memberRef != nil {
			return tx.Set(memberRef, member)
		}
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to respond to invitation", goerr.V("id", inv.ID))
	}
	return nil
}
