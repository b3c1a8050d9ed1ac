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

type organizationRepository struct {
	db *sql.DB
}

const organizationColumns = `id, name, description, creator_id, created_at, updated_at`

func scanOrganization(s scanner) (*model.Organization, error) {
	var org model.Organization
	var createdAt, updatedAt int64
	if err := s.Scan(&org.ID, &org.Name, &org.Description, &org.CreatorID, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	org.CreatedAt = fromUnix(createdAt)
	org.UpdatedAt = fromUnix(updatedAt)
	return &org, nil
}

func scanMembership(s scanner) (*model.Membership, error) {
	var m model.Membership
	var joinedAt int64
	if err := s.Scan(&m.OrganizationID, &m.UserID, &m.Role, &joinedAt); err != nil {
		return nil, err
	}
	m.JoinedAt = fromUnix(joinedAt)
	return &m, nil
}

func insertMembership(ctx context.Context, ex execer, m *model.Membership) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO memberships (organization_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (organization_id, user_id) DO UPDATE SET role = excluded.role`,
		m.OrganizationID, m.UserID, m.Role, toUnix(m.JoinedAt))
	if err != nil {
		return goerr.Wrap(err, "failed to insert membership",
			goerr.V("organization_id", m.OrganizationID), goerr.V("user_id", m.UserID))
	}
	return nil
}

func (r *organizationRepository) Create(ctx context.Context, org *model.Organization, owner *model.Membership) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO organizations (`+organizationColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		org.ID, org.Name, org.Description, org.CreatorID, toUnix(org.CreatedAt), toUnix(org.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return goerr.Wrap(interfaces.ErrAlreadyExists, "organization already exists", goerr.V("id", org.ID))
		}
		return goerr.Wrap(err, "failed to insert organization", goerr.V("id", org.ID))
	}

	if err := insertMembership(ctx, tx, owner); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit organization", goerr.V("id", org.ID))
	}
	return nil
}

func (r *organizationRepository) Get(ctx context.Context, id types.OrganizationID) (*model.Organization, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = ?`, id)
	org, err := scanOrganization(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "organization not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get organization", goerr.V("id", id))
	}
	return org, nil
}

func (r *organizationRepository) ListByMember(ctx context.Context, userID types.UserID) ([]*model.Organization, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.name, o.description, o.creator_id, o.created_at, o.updated_at
		FROM organizations o
		JOIN memberships m ON m.organization_id = o.id
		WHERE m.user_id = ?
		ORDER BY o.created_at ASC`, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list organizations", goerr.V("user_id", userID))
	}
	defer func() { _ = rows.Close() }()

	orgs := make([]*model.Organization, 0)
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan organization")
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate organizations")
	}
	return orgs, nil
}

func (r *organizationRepository) PutMember(ctx context.Context, m *model.Membership) error {
	if _, err := r.Get(ctx, m.OrganizationID); err != nil {
		return err
	}
	return insertMembership(ctx, r.db, m)
}

func (r *organizationRepository) GetMember(ctx context.Context, orgID types.OrganizationID, userID types.UserID) (*model.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT organization_id, user_id, role, joined_at FROM memberships WHERE organization_id = ? AND user_id = ?`,
		orgID, userID)
	m, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "membership not found",
				goerr.V("organization_id", orgID), goerr.V("user_id", userID))
		}
		return nil, goerr.Wrap(err, "failed to get membership",
			goerr.V("organization_id", orgID), goerr.V("user_id", userID))
	}
	return m, nil
}

func (r *organizationRepository) ListMembers(ctx context.Context, orgID types.OrganizationID) ([]*model.Membership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT organization_id, user_id, role, joined_at FROM memberships WHERE organization_id = ? ORDER BY joined_at ASC`,
		orgID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list members", goerr.V("organization_id", orgID))
	}
	defer func() { _ = rows.Close() }()

	members := make([]*model.Membership, 0)
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan membership")
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate members")
	}
	return members, nil
}

func (r *organizationRepository) DeleteMember(ctx context.Context, orgID types.OrganizationID, userID types.UserID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM memberships WHERE organization_id = ? AND user_id = ?`, orgID, userID)
	if err != nil {
		return goerr.Wrap(err, "failed to delete membership",
			goerr.V("organization_id", orgID), goerr.V("user_id", userID))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return goerr.Wrap(interfaces.ErrNotFound, "membership not found",
			goerr.V("organization_id", orgID), goerr.V("user_id", userID))
	}
	return nil
}
