package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Collection names. Queries refer to the Go field names of the stored models.
const (
	collectionOrganizations = "organizations"
	collectionMemberships   = "memberships"
	collectionInvitations   = "invitations"
	collectionTasks         = "tasks"
	collectionStages        = "task_stages"
	collectionReports       = "task_reports"
	collectionReads         = "notification_reads"
	collectionMessages      = "chat_messages"
)

// CollectionNames lists every collection the backend writes, for index migration
func CollectionNames() []string {
	return []string{
		collectionOrganizations,
		collectionMemberships,
		collectionInvitations,
		collectionTasks,
		collectionStages,
		collectionReports,
		collectionReads,
		collectionMessages,
	}
}

// Firestore "in" filters accept at most 30 values
const maxInValues = 30

type Firestore struct {
	client *firestore.Client
	prefix string

	organization *organizationRepository
	invitation   *invitationRepository
	task         *taskRepository
	stage        *stageRepository
	read         *notificationReadRepository
	chat         *chatRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix isolates collections, mainly for tests sharing a database
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.prefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	f := &Firestore{client: client}
	for _, opt := range opts {
		opt(f)
	}

	f.organization = &organizationRepository{f: f}
	f.invitation = &invitationRepository{f: f}
	f.task = &taskRepository{f: f}
	f.stage = &stageRepository{f: f}
	f.read = &notificationReadRepository{f: f}
	f.chat = &chatRepository{f: f}
	return f, nil
}

func (f *Firestore) collection(name string) *firestore.CollectionRef {
	if f.prefix != "" {
		return f.client.Collection(f.prefix + "_" + name)
	}
	return f.client.Collection(name)
}

func (f *Firestore) Organization() interfaces.OrganizationRepository {
	return f.organization
}

func (f *Firestore) Invitation() interfaces.InvitationRepository {
	return f.invitation
}

func (f *Firestore) Task() interfaces.TaskRepository {
	return f.task
}

func (f *Firestore) Stage() interfaces.StageRepository {
	return f.stage
}

func (f *Firestore) NotificationRead() interfaces.NotificationReadRepository {
	return f.read
}

func (f *Firestore) Chat() interfaces.ChatRepository {
	return f.chat
}

// Ping reads a single organization document to confirm access
func (f *Firestore) Ping(ctx context.Context) error {
	iter := f.collection(collectionOrganizations).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return goerr.Wrap(err, "failed to ping firestore")
	}
	return nil
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

// compositeID builds a document ID from parts that may contain '/'
func compositeID(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// decodeAll drains the iterator into values of T
func decodeAll[T any](iter *firestore.DocumentIterator) ([]*T, error) {
	defer iter.Stop()

	result := make([]*T, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate documents")
		}

		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, goerr.Wrap(err, "failed to decode document", goerr.V("doc_id", doc.Ref.ID))
		}
		result = append(result, &v)
	}
	return result, nil
}
