package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type invitationRepository struct {
	db *sql.DB
}

const invitationColumns = `id, organization_id, inviter_id, invitee_id, status, created_at, responded_at`

func scanInvitation(s scanner) (*model.OrganizationInvitation, error) {
	var inv model.OrganizationInvitation
	var createdAt int64
	var respondedAt sql.NullInt64
	if err := s.Scan(&inv.ID, &inv.OrganizationID, &inv.InviterID, &inv.InviteeID, &inv.Status, &createdAt, &respondedAt); err != nil {
		return nil, err
	}
	inv.CreatedAt = fromUnix(createdAt)
	inv.RespondedAt = fromNullUnix(respondedAt)
	return &inv, nil
}

func (r *invitationRepository) Create(ctx context.Context, inv *model.OrganizationInvitation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invitations (`+invitationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.OrganizationID, inv.InviterID, inv.InviteeID, inv.Status,
		toUnix(inv.CreatedAt), toNullUnix(inv.RespondedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return goerr.Wrap(interfaces.ErrAlreadyExists, "invitation already exists", goerr.V("id", inv.ID))
		}
		return goerr.Wrap(err, "failed to insert invitation", goerr.V("id", inv.ID))
	}
	return nil
}

func (r *invitationRepository) Get(ctx context.Context, id types.InvitationID) (*model.OrganizationInvitation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id)
	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "invitation not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get invitation", goerr.V("id", id))
	}
	return inv, nil
}

func (r *invitationRepository) ListByInvitee(ctx context.Context, userID types.UserID, status types.InvitationStatus) ([]*model.OrganizationInvitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE invitee_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list invitations", goerr.V("user_id", userID))
	}
	defer func() { _ = rows.Close() }()

	result := make([]*model.OrganizationInvitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan invitation")
		}
		result = append(result, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate invitations")
	}
	return result, nil
}

func (r *invitationRepository) Respond(ctx context.Context, inv *model.OrganizationInvitation, member *model.Membership) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE invitations SET status = ?, responded_at = ? WHERE id = ? AND status = ?`,
		inv.Status, toNullUnix(inv.RespondedAt), inv.ID, types.InvitationStatusPending)
	if err != nil {
		return goerr.Wrap(err, "failed to update invitation", goerr.V("id", inv.ID))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		var current types.InvitationStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM invitations WHERE id = ?`, inv.ID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return goerr.Wrap(interfaces.ErrNotFound, "invitation not found", goerr.V("id", inv.ID))
		}
		if err != nil {
			return goerr.Wrap(err, "failed to get invitation", goerr.V("id", inv.ID))
		}
		return goerr.Wrap(interfaces.ErrStatusMismatch, "invitation already answered",
			goerr.V("id", inv.ID), goerr.V("status", current))
	}

	if member != nil {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO memberships (organization_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (organization_id, user_id) DO NOTHING`,
			member.OrganizationID, member.UserID, member.Role, toUnix(member.JoinedAt))
		if err != nil {
			return goerr.Wrap(err, "failed to insert membership",
				goerr.V("organization_id", member.OrganizationID), goerr.V("user_id", member.UserID))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit invitation response", goerr.V("id", inv.ID))
	}
	return nil
}
