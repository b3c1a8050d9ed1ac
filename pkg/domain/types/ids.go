package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// ErrInvalidID is returned when an identifier is empty or not a UUID
var ErrInvalidID = goerr.New("invalid identifier")

// UserID is the subject of a verified bearer token. It is opaque to this system.
type UserID string

func (x UserID) String() string { return string(x) }

// Validate checks that the user ID is not empty
func (x UserID) Validate() error {
	if x == "" {
		return goerr.Wrap(ErrInvalidID, "user ID is empty")
	}
	return nil
}

type OrganizationID string

func NewOrganizationID() OrganizationID  { return OrganizationID(uuid.NewString()) }
func (x OrganizationID) String() string  { return string(x) }
func (x OrganizationID) Validate() error { return validateUUID(string(x), "organization") }

type InvitationID string

func NewInvitationID() InvitationID    { return InvitationID(uuid.NewString()) }
func (x InvitationID) String() string  { return string(x) }
func (x InvitationID) Validate() error { return validateUUID(string(x), "invitation") }

type TaskID string

func NewTaskID() TaskID          { return TaskID(uuid.NewString()) }
func (x TaskID) String() string  { return string(x) }
func (x TaskID) Validate() error { return validateUUID(string(x), "task") }

type StageID string

func NewStageID() StageID         { return StageID(uuid.NewString()) }
func (x StageID) String() string  { return string(x) }
func (x StageID) Validate() error { return validateUUID(string(x), "stage") }

type ReportID string

func NewReportID() ReportID        { return ReportID(uuid.NewString()) }
func (x ReportID) String() string  { return string(x) }
func (x ReportID) Validate() error { return validateUUID(string(x), "report") }

type MessageID string

func NewMessageID() MessageID       { return MessageID(uuid.NewString()) }
func (x MessageID) String() string  { return string(x) }
func (x MessageID) Validate() error { return validateUUID(string(x), "message") }

func validateUUID(s, kind string) error {
	if s == "" {
		return goerr.Wrap(ErrInvalidID, "ID is empty", goerr.V("kind", kind))
	}
	if _, err := uuid.Parse(s); err != nil {
		return goerr.Wrap(ErrInvalidID, "ID is not a UUID", goerr.V("kind", kind), goerr.V("id", s))
	}
	return nil
}
