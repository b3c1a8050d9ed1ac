package http

import (
	"net/http"

	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/usecase"
)

type addStageRequest struct {
	Name string `json:"name"`
}

type updateStageRequest struct {
	Name   *string            `json:"name,omitempty"`
	Status *types.StageStatus `json:"status,omitempty"`
}

type moveStageRequest struct {
	Direction usecase.MoveDirection `json:"direction"`
}

func (s *Server) listStages(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	stages, err := s.uc.Stage.ListStages(r.Context(), taskIDParam(r), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, stages)
}

func (s *Server) addStage(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req addStageRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	stage, err := s.uc.Stage.AddStage(r.Context(), taskIDParam(r), actor, req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, stage)
}

func (s *Server) updateStage(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req updateStageRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	stage, err := s.uc.Stage.UpdateStage(r.Context(), stageIDParam(r), actor, usecase.UpdateStageInput{
		Name:   req.Name,
		Status: req.Status,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, stage)
}

func (s *Server) deleteStage(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if err := s.uc.Stage.DeleteStage(r.Context(), stageIDParam(r), actor); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) moveStage(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req moveStageRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	stages, err := s.uc.Stage.MoveStage(r.Context(), stageIDParam(r), actor, req.Direction)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, stages)
}
