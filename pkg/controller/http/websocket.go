package http

import (
	"net/http"

	"github.com/secmon-lab/teamtask/pkg/utils/logging"
)

// serveWebSocket joins the caller to the organization room. Membership is
// checked before the upgrade so a refused join is a plain HTTP error.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	orgID := orgIDParam(r)
	if _, err := s.uc.Organization.GetOrganization(r.Context(), orgID, actor); err != nil {
		handleError(w, r, err)
		return
	}

	// The upgrader has already answered the request when Serve fails
	if err := s.hub.Serve(w, r, orgID, actor); err != nil {
		logging.From(r.Context()).Warn("websocket upgrade failed", "error", err.Error())
	}
}
