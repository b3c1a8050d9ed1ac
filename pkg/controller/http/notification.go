package http

import (
	"net/http"

	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type markReadRequest struct {
	Type types.NotificationType `json:"type"`
	ID   string                 `json:"id"`
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	feed, err := s.uc.Notification.ListNotifications(r.Context(), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, feed)
}

func (s *Server) listReads(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	reads, err := s.uc.Notification.ListReads(r.Context(), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, reads)
}

// markRead is idempotent: marking twice returns the original row
func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req markReadRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	read, err := s.uc.Notification.MarkRead(r.Context(), actor, req.Type, req.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, read)
}
