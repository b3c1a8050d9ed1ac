package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

type createOrganizationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type inviteRequest struct {
	InviteeID types.UserID `json:"invitee_id"`
}

func (s *Server) createOrganization(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req createOrganizationRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	org, err := s.uc.Organization.CreateOrganization(r.Context(), actor, req.Name, req.Description)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, org)
}

func (s *Server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	orgs, err := s.uc.Organization.ListMyOrganizations(r.Context(), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, orgs)
}

func (s *Server) getOrganization(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	org, err := s.uc.Organization.GetOrganization(r.Context(), orgIDParam(r), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, org)
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	members, err := s.uc.Organization.ListMembers(r.Context(), orgIDParam(r), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, members)
}

func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	userID := types.UserID(chi.URLParam(r, "userID"))
	if err := s.uc.Organization.RemoveMember(r.Context(), orgIDParam(r), actor, userID); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) invite(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req inviteRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	invitation, err := s.uc.Organization.Invite(r.Context(), orgIDParam(r), actor, req.InviteeID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, invitation)
}

func (s *Server) listInvitations(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	invitations, err := s.uc.Organization.ListMyInvitations(r.Context(), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, invitations)
}

func (s *Server) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	invitation, err := s.uc.Organization.AcceptInvitation(r.Context(), invitationIDParam(r), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, invitation)
}

func (s *Server) declineInvitation(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	invitation, err := s.uc.Organization.DeclineInvitation(r.Context(), invitationIDParam(r), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, invitation)
}
