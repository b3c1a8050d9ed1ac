package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/model/auth"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/usecase"
	"github.com/secmon-lab/teamtask/pkg/utils/errutil"
)

// maxBodySize bounds request bodies; attachments are metadata only
const maxBodySize = 1 << 20

// statusCode maps use case sentinel errors to HTTP status codes
func statusCode(err error) int {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, usecase.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	errutil.HandleHTTP(r.Context(), w, err, statusCode(err))
}

// writeJSON writes a JSON response with proper error handling
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		_ = errutil.Handle(ctx, err, "failed to encode JSON response")
	}
}

func decodeJSON(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return goerr.Wrap(usecase.ErrValidation, "invalid request body", goerr.V("reason", err.Error()))
	}
	return nil
}

func principal(r *http.Request) (auth.Principal, error) {
	p, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		return auth.Principal{}, goerr.Wrap(usecase.ErrUnauthenticated, "no principal in request")
	}
	return p, nil
}

func orgIDParam(r *http.Request) types.OrganizationID {
	return types.OrganizationID(chi.URLParam(r, "orgID"))
}

func taskIDParam(r *http.Request) types.TaskID {
	return types.TaskID(chi.URLParam(r, "taskID"))
}

func stageIDParam(r *http.Request) types.StageID {
	return types.StageID(chi.URLParam(r, "stageID"))
}

func messageIDParam(r *http.Request) types.MessageID {
	return types.MessageID(chi.URLParam(r, "messageID"))
}

func invitationIDParam(r *http.Request) types.InvitationID {
	return types.InvitationID(chi.URLParam(r, "invitationID"))
}

// queryTime parses an RFC3339 or YYYY-MM-DD query parameter. Empty returns the zero time.
func queryTime(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, goerr.Wrap(usecase.ErrValidation, "invalid time parameter", goerr.V("key", key), goerr.V("value", raw))
	}
	return t, nil
}

// queryInt parses an integer query parameter. Empty returns zero.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, goerr.Wrap(usecase.ErrValidation, "invalid integer parameter", goerr.V("key", key), goerr.V("value", raw))
	}
	return n, nil
}
