package usecase

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
)

type ChatUseCase struct {
	*env
}

// SendMessageInput is the payload of a new chat message
type SendMessageInput struct {
	Text        string
	ReplyToID   types.MessageID
	Attachments []model.Attachment
	MentionIDs  []types.UserID
}

// Send stores the message and then fans it out to the organization room.
// Mentioned members additionally get a chat_mention notification.
func (uc *ChatUseCase) Send(ctx context.Context, orgID types.OrganizationID, actor auth.Principal, input SendMessageInput) (*model.ChatMessage, error) {
	if _, err := uc.requireMember(ctx, orgID, actor); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(input.Text)
	if text == "" && len(input.Attachments) == 0 {
		return nil, goerr.Wrap(ErrValidation, "message text or attachment is required")
	}
	for _, a := range input.Attachments {
		if a.URL == "" {
			return nil, goerr.Wrap(ErrValidation, "attachment URL is required", goerr.V("name", a.Name))
		}
	}

	if input.ReplyToID != "" {
		parent, err := uc.repo.Chat().Get(ctx, input.ReplyToID)
		if err != nil {
			return nil, translate(err, "failed to get reply target", goerr.V(MessageIDKey, input.ReplyToID))
		}
		if parent.OrganizationID != orgID {
			return nil, goerr.Wrap(ErrValidation, "reply target belongs to another organization",
				goerr.V(MessageIDKey, input.ReplyToID))
		}
	}

	mentions, err := uc.memberMentions(ctx, orgID, input.MentionIDs)
	if err != nil {
		return nil, err
	}

	attachments, err := uc.resolveAttachments(ctx, input.Attachments)
	if err != nil {
		return nil, translate(err, "failed to verify attachments")
	}
	if attachments == nil {
		attachments = []model.Attachment{}
	}

	msg := &model.ChatMessage{
		ID:             types.NewMessageID(),
		OrganizationID: orgID,
		AuthorID:       actor.UserID,
		Text:           text,
		ReplyToID:      input.ReplyToID,
		Attachments:    attachments,
		MentionIDs:     mentions,
		Reactions:      map[string][]types.UserID{},
		CreatedAt:      uc.now(),
	}
	if err := uc.repo.Chat().Create(ctx, msg); err != nil {
		return nil, translate(err, "failed to store message", goerr.V(MessageIDKey, msg.ID))
	}

	uc.publishMessage(ctx, types.EventTypeMessage, msg, actor)
	if recipients := slices.DeleteFunc(slices.Clone(mentions), func(id types.UserID) bool {
		return id == actor.UserID
	}); len(recipients) > 0 {
		uc.publish(ctx, &model.Event{
			Type:           types.EventTypeNotification,
			OrganizationID: orgID,
			ActorID:        actor.UserID,
			Recipients:     recipients,
			Notification: &model.EventNotification{
				Type:  types.NotificationTypeChatMention,
				ID:    msg.ID.String(),
				Title: msg.Text,
			},
		})
	}
	return msg, nil
}

// memberMentions deduplicates mentions and rejects users outside the organization
func (uc *ChatUseCase) memberMentions(ctx context.Context, orgID types.OrganizationID, ids []types.UserID) ([]types.UserID, error) {
	result := []types.UserID{}
	if len(ids) == 0 {
		return result, nil
	}

	members, err := uc.repo.Organization().ListMembers(ctx, orgID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list members", goerr.V(OrganizationIDKey, orgID))
	}
	known := make(map[types.UserID]struct{}, len(members))
	for _, m := range members {
		known[m.UserID] = struct{}{}
	}

	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return nil, goerr.Wrap(ErrValidation, "mentioned user is not a member",
				goerr.V(OrganizationIDKey, orgID), goerr.V(UserIDKey, id))
		}
		if !slices.Contains(result, id) {
			result = append(result, id)
		}
	}
	return result, nil
}

// loadMessage fetches a message the actor can see
func (uc *ChatUseCase) loadMessage(ctx context.Context, messageID types.MessageID, actor auth.Principal) (*model.ChatMessage, *model.Membership, error) {
	if err := messageID.Validate(); err != nil {
		return nil, nil, goerr.Wrap(ErrValidation, err.Error(), goerr.V(MessageIDKey, messageID))
	}
	msg, err := uc.repo.Chat().Get(ctx, messageID)
	if err != nil {
		return nil, nil, translate(err, "failed to get message", goerr.V(MessageIDKey, messageID))
	}
	member, err := uc.requireMember(ctx, msg.OrganizationID, actor)
	if err != nil {
		return nil, nil, err
	}
	if msg.Deleted {
		return nil, nil, goerr.Wrap(ErrConflict, "message is deleted", goerr.V(MessageIDKey, messageID))
	}
	return msg, member, nil
}

func (uc *ChatUseCase) Edit(ctx context.Context, messageID types.MessageID, actor auth.Principal, text string) (*model.ChatMessage, error) {
	msg, _, err := uc.loadMessage(ctx, messageID, actor)
	if err != nil {
		return nil, err
	}
	if msg.AuthorID != actor.UserID {
		return nil, goerr.Wrap(ErrForbidden, "only the author can edit the message", goerr.V(MessageIDKey, messageID))
	}
	text = strings.TrimSpace(text)
	if text == "" && len(msg.Attachments) == 0 {
		return nil, goerr.Wrap(ErrValidation, "message text is required")
	}

	now := uc.now()
	msg.Text = text
	msg.EditedAt = &now
	if err := uc.repo.Chat().Update(ctx, msg); err != nil {
		return nil, translate(err, "failed to edit message", goerr.V(MessageIDKey, messageID))
	}

	uc.publishMessage(ctx, types.EventTypeMessageEdited, msg, actor)
	return msg, nil
}

// Delete clears the message but keeps it as an anchor for replies
func (uc *ChatUseCase) Delete(ctx context.Context, messageID types.MessageID, actor auth.Principal) error {
	msg, member, err := uc.loadMessage(ctx, messageID, actor)
	if err != nil {
		return err
	}
	if msg.AuthorID != actor.UserID && !member.IsOwner() {
		return goerr.Wrap(ErrForbidden, "only the author or the owner can delete the message", goerr.V(MessageIDKey, messageID))
	}

	msg.Deleted = true
	msg.Text = ""
	msg.Attachments = []model.Attachment{}
	msg.MentionIDs = []types.UserID{}
	msg.Reactions = map[string][]types.UserID{}
	if err := uc.repo.Chat().Update(ctx, msg); err != nil {
		return translate(err, "failed to delete message", goerr.V(MessageIDKey, messageID))
	}

	uc.publishMessage(ctx, types.EventTypeMessageDeleted, msg, actor)
	return nil
}

// React toggles the actor's reaction on a message
func (uc *ChatUseCase) React(ctx context.Context, messageID types.MessageID, actor auth.Principal, emoji string) (*model.ChatMessage, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, goerr.Wrap(ErrValidation, "emoji is required")
	}
	msg, _, err := uc.loadMessage(ctx, messageID, actor)
	if err != nil {
		return nil, err
	}

	msg.ToggleReaction(emoji, actor.UserID)
	if err := uc.repo.Chat().Update(ctx, msg); err != nil {
		return nil, translate(err, "failed to update reactions", goerr.V(MessageIDKey, messageID))
	}

	uc.publishMessage(ctx, types.EventTypeReaction, msg, actor)
	return msg, nil
}

// List returns messages newest first. A zero before starts from the latest.
func (uc *ChatUseCase) List(ctx context.Context, orgID types.OrganizationID, actor auth.Principal, limit int, before time.Time) ([]*model.ChatMessage, error) {
	if _, err := uc.requireMember(ctx, orgID, actor); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultMessageLimit
	case limit > MaxMessageLimit:
		limit = MaxMessageLimit
	}

	msgs, err := uc.repo.Chat().List(ctx, orgID, limit, before)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list messages", goerr.V(OrganizationIDKey, orgID))
	}
	return msgs, nil
}

// Typing relays a typing indicator. Nothing is stored.
func (uc *ChatUseCase) Typing(ctx context.Context, orgID types.OrganizationID, actor auth.Principal) error {
	if _, err := uc.requireMember(ctx, orgID, actor); err != nil {
		return err
	}
	uc.publish(ctx, &model.Event{
		Type:           types.EventTypeTyping,
		OrganizationID: orgID,
		ActorID:        actor.UserID,
	})
	return nil
}

func (uc *ChatUseCase) publishMessage(ctx context.Context, kind types.EventType, msg *model.ChatMessage, actor auth.Principal) {
	uc.publish(ctx, &model.Event{
		Type:           kind,
		OrganizationID: msg.OrganizationID,
		ActorID:        actor.UserID,
		Message:        msg.Copy(),
	})
}
