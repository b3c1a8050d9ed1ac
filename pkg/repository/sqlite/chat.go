package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type chatRepository struct {
	db *sql.DB
}

const chatColumns = `id, organization_id, author_id, text, reply_to_id, attachments, mention_ids, reactions, edited_at, deleted, created_at`

type chatRow struct {
	attachments string
	mentions    string
	reactions   string
}

func encodeChatRow(msg *model.ChatMessage) (*chatRow, error) {
	var row chatRow
	var err error
	attachments := msg.Attachments
	if attachments == nil {
		attachments = []model.Attachment{}
	}
	if row.attachments, err = encodeJSON(attachments); err != nil {
		return nil, err
	}
	mentions := msg.MentionIDs
	if mentions == nil {
		mentions = []types.UserID{}
	}
	if row.mentions, err = encodeJSON(mentions); err != nil {
		return nil, err
	}
	reactions := msg.Reactions
	if reactions == nil {
		reactions = map[string][]types.UserID{}
	}
	if row.reactions, err = encodeJSON(reactions); err != nil {
		return nil, err
	}
	return &row, nil
}

func scanChatMessage(s scanner) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	var row chatRow
	var editedAt sql.NullInt64
	var createdAt int64

	err := s.Scan(&msg.ID, &msg.OrganizationID, &msg.AuthorID, &msg.Text, &msg.ReplyToID,
		&row.attachments, &row.mentions, &row.reactions, &editedAt, &msg.Deleted, &createdAt)
	if err != nil {
		return nil, err
	}

	if err := decodeJSON(row.attachments, &msg.Attachments); err != nil {
		return nil, err
	}
	if err := decodeJSON(row.mentions, &msg.MentionIDs); err != nil {
		return nil, err
	}
	if err := decodeJSON(row.reactions, &msg.Reactions); err != nil {
		return nil, err
	}
	msg.EditedAt = fromNullUnix(editedAt)
	msg.CreatedAt = fromUnix(createdAt)
	return &msg, nil
}

func (r *chatRepository) Create(ctx context.Context, msg *model.ChatMessage) error {
	row, err := encodeChatRow(msg)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO chat_messages (`+chatColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.OrganizationID, msg.AuthorID, msg.Text, msg.ReplyToID,
		row.attachments, row.mentions, row.reactions, toNullUnix(msg.EditedAt), msg.Deleted, toUnix(msg.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return goerr.Wrap(interfaces.ErrAlreadyExists, "message already exists", goerr.V("id", msg.ID))
		}
		return goerr.Wrap(err, "failed to insert message", goerr.V("id", msg.ID))
	}
	return nil
}

func (r *chatRepository) Get(ctx context.Context, id types.MessageID) (*model.ChatMessage, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chat_messages WHERE id = ?`, id)
	msg, err := scanChatMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "message not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get message", goerr.V("id", id))
	}
	return msg, nil
}

func (r *chatRepository) Update(ctx context.Context, msg *model.ChatMessage) error {
	row, err := encodeChatRow(msg)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE chat_messages SET text = ?, attachments = ?, mention_ids = ?, reactions = ?, edited_at = ?, deleted = ?
		WHERE id = ?`,
		msg.Text, row.attachments, row.mentions, row.reactions, toNullUnix(msg.EditedAt), msg.Deleted, msg.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to update message", goerr.V("id", msg.ID))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return goerr.Wrap(interfaces.ErrNotFound, "message not found", goerr.V("id", msg.ID))
	}
	return nil
}

func (r *chatRepository) query(ctx context.Context, query string, args ...any) ([]*model.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query messages")
	}
	defer func() { _ = rows.Close() }()

	msgs := make([]*model.ChatMessage, 0)
	for rows.Next() {
		msg, err := scanChatMessage(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan message")
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate messages")
	}
	return msgs, nil
}

func (r *chatRepository) List(ctx context.Context, orgID types.OrganizationID, limit int, before time.Time) ([]*model.ChatMessage, error) {
	query := `SELECT ` + chatColumns + ` FROM chat_messages WHERE organization_id = ?`
	args := []any{orgID}
	if !before.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, toUnix(before))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.query(ctx, query, args...)
}

func (r *chatRepository) ListMentioning(ctx context.Context, userID types.UserID) ([]*model.ChatMessage, error) {
	return r.query(ctx, `
		SELECT `+chatColumns+` FROM chat_messages
		WHERE deleted = 0
		  AND EXISTS (SELECT 1 FROM json_each(chat_messages.mention_ids) WHERE json_each.value = ?)
		ORDER BY created_at DESC, rowid DESC`, userID)
}
