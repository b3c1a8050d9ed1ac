package http

import (
	"net/http"
)

func (s *Server) calendar(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	from, err := queryTime(r, "from")
	if err != nil {
		handleError(w, r, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		handleError(w, r, err)
		return
	}

	days, err := s.uc.Analytics.Calendar(r.Context(), orgIDParam(r), actor, from, to)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, days)
}

func (s *Server) statistics(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	stats, err := s.uc.Analytics.Statistics(r.Context(), orgIDParam(r), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, stats)
}

func (s *Server) urgentTasks(w http.ResponseWriter, r *http.Request) {
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

	tasks, err := s.uc.Analytics.UrgentTasks(r.Context(), actor, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, tasks)
}
