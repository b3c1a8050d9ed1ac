package model

import (
	"slices"
	"time"

	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

// ChatMessage is a message posted to an organization chat
type ChatMessage struct {
	ID             types.MessageID           `json:"id"`
	OrganizationID types.OrganizationID      `json:"organization_id"`
	AuthorID       types.UserID              `json:"author_id"`
	Text           string                    `json:"text"`
	ReplyToID      types.MessageID           `json:"reply_to_id,omitempty"`
	Attachments    []Attachment              `json:"attachments"`
	MentionIDs     []types.UserID            `json:"mention_ids"`
	Reactions      map[string][]types.UserID `json:"reactions"`
	EditedAt       *time.Time                `json:"edited_at,omitempty"`
	Deleted        bool                      `json:"deleted"`
	CreatedAt      time.Time                 `json:"created_at"`
}

// Mentions reports whether the message mentions the user
func (m *ChatMessage) Mentions(userID types.UserID) bool {
	return slices.Contains(m.MentionIDs, userID)
}

// ToggleReaction adds the user's reaction, or removes it when already present.
// It returns true when the reaction was added.
func (m *ChatMessage) ToggleReaction(emoji string, userID types.UserID) bool {
	if m.Reactions == nil {
		m.Reactions = make(map[string][]types.UserID)
	}

	users := m.Reactions[emoji]
	if idx := slices.Index(users, userID); idx >= 0 {
		users = slices.Delete(users, idx, idx+1)
		if len(users) == 0 {
			delete(m.Reactions, emoji)
		} else {
			m.Reactions[emoji] = users
		}
		return false
	}

	m.Reactions[emoji] = append(users, userID)
	return true
}

// Copy returns a deep copy of the message
func (m *ChatMessage) Copy() *ChatMessage {
	c := *m
	c.Attachments = slices.Clone(m.Attachments)
	c.MentionIDs = slices.Clone(m.MentionIDs)
	if m.Reactions != nil {
		c.Reactions = make(map[string][]types.UserID, len(m.Reactions))
		for k, v := range m.Reactions {
			c.Reactions[k] = slices.Clone(v)
		}
	}
	if m.EditedAt != nil {
		v := *m.EditedAt
		c.EditedAt = &v
	}
	return &c
}
