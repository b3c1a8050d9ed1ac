package http

import (
	"net/http"

	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/usecase"
)

type sendMessageRequest struct {
	Text        string             `json:"text"`
	ReplyToID   types.MessageID    `json:"reply_to_id,omitempty"`
	Attachments []model.Attachment `json:"attachments,omitempty"`
	MentionIDs  []types.UserID     `json:"mention_ids,omitempty"`
}

type editMessageRequest struct {
	Text string `json:"text"`
}

type reactRequest struct {
	Emoji string `json:"emoji"`
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		handleError(w, r, err)
		return
	}
	before, err := queryTime(r, "before")
	if err != nil {
		handleError(w, r, err)
		return
	}

	messages, err := s.uc.Chat.List(r.Context(), orgIDParam(r), actor, limit, before)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, messages)
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	msg, err := s.uc.Chat.Send(r.Context(), orgIDParam(r), actor, usecase.SendMessageInput{
		Text:        req.Text,
		ReplyToID:   req.ReplyToID,
		Attachments: req.Attachments,
		MentionIDs:  req.MentionIDs,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, msg)
}

func (s *Server) typing(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if err := s.uc.Chat.Typing(r.Context(), orgIDParam(r), actor); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) editMessage(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req editMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	msg, err := s.uc.Chat.Edit(r.Context(), messageIDParam(r), actor, req.Text)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, msg)
}

func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if err := s.uc.Chat.Delete(r.Context(), messageIDParam(r), actor); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) react(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req reactRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	msg, err := s.uc.Chat.React(r.Context(), messageIDParam(r), actor, req.Emoji)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, msg)
}
