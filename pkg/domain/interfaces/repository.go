package interfaces

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// Sentinel errors every repository backend returns
var (
	// ErrNotFound is returned when the requested entity does not exist
	ErrNotFound = goerr.New("entity not found")

	// ErrAlreadyExists is returned when an entity with the same key exists
	ErrAlreadyExists = goerr.New("entity already exists")

	// ErrStatusMismatch is returned by compare-and-set updates when the stored
	// status or version differs from the expected one
	ErrStatusMismatch = goerr.New("stored entity does not match expected state")
)

// Repository defines the interface for data persistence
type Repository interface {
	Organization() OrganizationRepository
	Invitation() InvitationRepository
	Task() TaskRepository
	Stage() StageRepository
	NotificationRead() NotificationReadRepository
	Chat() ChatRepository

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error
	Close() error
}
