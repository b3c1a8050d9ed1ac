package http

import (
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/usecase"
)

// statusDeclined is accepted by the status endpoint; declining annotates the
// task and is not a TaskStatus
const statusDeclined = "declined"

type createTaskRequest struct {
	AssigneeID               types.UserID   `json:"assignee_id"`
	Title                    string         `json:"title"`
	Description              string         `json:"description"`
	Priority                 types.Priority `json:"priority"`
	Deadline                 time.Time      `json:"deadline"`
	EstimatedCompletionHours *float64       `json:"estimated_completion_hours,omitempty"`
}

type updateTaskRequest struct {
	AssigneeID  *types.UserID   `json:"assignee_id,omitempty"`
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Priority    *types.Priority `json:"priority,omitempty"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
}

type changeStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type estimateRequest struct {
	Hours *float64 `json:"hours"`
}

type reportRequest struct {
	Text        string             `json:"text"`
	Attachments []model.Attachment `json:"attachments"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	task, err := s.uc.Task.CreateTask(r.Context(), orgIDParam(r), actor, usecase.CreateTaskInput{
		AssigneeID:               req.AssigneeID,
		Title:                    req.Title,
		Description:              req.Description,
		Priority:                 req.Priority,
		Deadline:                 req.Deadline,
		EstimatedCompletionHours: req.EstimatedCompletionHours,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, task)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	q := r.URL.Query()
	tasks, err := s.uc.Task.ListTasks(r.Context(), orgIDParam(r), actor, usecase.TaskListFilter{
		AssigneeID: types.UserID(q.Get("assignee")),
		AssignerID: types.UserID(q.Get("assigner")),
		Status:     types.TaskStatus(q.Get("status")),
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, tasks)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	task, err := s.uc.Task.GetTask(r.Context(), taskIDParam(r), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, task)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	task, err := s.uc.Task.UpdateTask(r.Context(), taskIDParam(r), actor, usecase.UpdateTaskInput{
		AssigneeID:  req.AssigneeID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Deadline:    req.Deadline,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, task)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if err := s.uc.Task.DeleteTask(r.Context(), taskIDParam(r), actor); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// changeStatus starts or declines a task. Completion goes through the reports
// endpoint because it always carries a report.
func (s *Server) changeStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req changeStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	var task *model.TaskSummary
	switch req.Status {
	case types.TaskStatusInProgress.String():
		task, err = s.uc.Task.Start(r.Context(), taskIDParam(r), actor)
	case statusDeclined:
		task, err = s.uc.Task.Decline(r.Context(), taskIDParam(r), actor, req.Reason)
	case types.TaskStatusCompleted.String():
		err = goerr.Wrap(usecase.ErrValidation, "complete a task by posting a report")
	default:
		err = goerr.Wrap(usecase.ErrValidation, "unsupported status", goerr.V("status", req.Status))
	}
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, task)
}

func (s *Server) setEstimate(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req estimateRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.Hours == nil {
		handleError(w, r, goerr.Wrap(usecase.ErrValidation, "hours is required"))
		return
	}

	task, err := s.uc.Task.SetEstimate(r.Context(), taskIDParam(r), actor, *req.Hours)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, task)
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	reports, err := s.uc.Task.ListReports(r.Context(), taskIDParam(r), actor)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, reports)
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	actor, err := principal(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req reportRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	report, err := s.uc.Task.Complete(r.Context(), taskIDParam(r), actor, req.Text, req.Attachments)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, report)
}
