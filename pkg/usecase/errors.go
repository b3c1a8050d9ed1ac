package usecase

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
)

// Sentinel errors for use case layer. The HTTP controller maps them to status codes.
var (
	// ErrNotFound is returned when the target entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the actor lacks the role the operation requires
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when the entity is in a state the operation does not accept
	ErrConflict = errors.New("conflict")

	// ErrValidation is returned for malformed or missing input
	ErrValidation = errors.New("validation failed")

	// ErrUnauthenticated is returned when a request carries no valid credential
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Context keys for error values
const (
	OrganizationIDKey = "organization_id"
	InvitationIDKey   = "invitation_id"
	TaskIDKey         = "task_id"
	StageIDKey        = "stage_id"
	MessageIDKey      = "message_id"
	UserIDKey         = "user_id"
	StatusKey         = "status"
)

// translate maps repository sentinels onto use case sentinels and keeps other
// errors as they are
func translate(err error, msg string, values ...goerr.Option) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, interfaces.ErrNotFound):
		return goerr.Wrap(ErrNotFound, msg, append(values, goerr.V("cause", err.Error()))...)
	case errors.Is(err, interfaces.ErrStatusMismatch), errors.Is(err, interfaces.ErrAlreadyExists):
		return goerr.Wrap(ErrConflict, msg, append(values, goerr.V("cause", err.Error()))...)
	case errors.Is(err, interfaces.ErrAttachmentNotFound):
		return goerr.Wrap(ErrValidation, msg, append(values, goerr.V("cause", err.Error()))...)
	default:
		return goerr.Wrap(err, msg, values...)
	}
}
