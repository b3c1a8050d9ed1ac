package attachment

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"google.golang.org/api/option"
)

const publicHost = "storage.googleapis.com"

// ObjectStore reads object metadata from a bucket
type ObjectStore interface {
	Attrs(ctx context.Context, bucket, object string) (*storage.ObjectAttrs, error)
	Close() error
}

type gcsStore struct {
	client *storage.Client
}

func (s *gcsStore) Attrs(ctx context.Context, bucket, object string) (*storage.ObjectAttrs, error) {
	return s.client.Bucket(bucket).Object(object).Attrs(ctx)
}

func (s *gcsStore) Close() error {
	return s.client.Close()
}

// Resolver fills content type and size of attachments stored in one GCS
// bucket. Attachments outside object storage are returned unchanged.
type Resolver struct {
	bucket string
	store  ObjectStore
}

var _ interfaces.AttachmentResolver = &Resolver{}

// New creates a resolver backed by a GCS client
func New(ctx context.Context, bucket string, opts ...option.ClientOption) (*Resolver, error) {
	if bucket == "" {
		return nil, goerr.New("attachment bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}
	return NewWithStore(bucket, &gcsStore{client: client}), nil
}

// NewWithStore creates a resolver over an arbitrary object store
func NewWithStore(bucket string, store ObjectStore) *Resolver {
	return &Resolver{bucket: bucket, store: store}
}

func (r *Resolver) Close() error {
	return r.store.Close()
}

// parseObjectURL returns the bucket and object of gs:// and
// https://storage.googleapis.com/ URLs. ok is false for other URLs.
func parseObjectURL(raw string) (bucket, object string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", false
	}

	switch {
	case u.Scheme == "gs":
		return u.Host, strings.TrimPrefix(u.Path, "/"), u.Host != ""
	case u.Scheme == "https" && u.Host == publicHost:
		bucket, object, found := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		return bucket, object, found && bucket != ""
	default:
		return "", "", false
	}
}

func (r *Resolver) Resolve(ctx context.Context, attachments []model.Attachment) ([]model.Attachment, error) {
	resolved := make([]model.Attachment, len(attachments))
	for i, a := range attachments {
		resolved[i] = a

		bucket, object, ok := parseObjectURL(a.URL)
		if !ok {
			continue
		}
		if bucket != r.bucket || object == "" {
			return nil, goerr.Wrap(interfaces.ErrAttachmentNotFound, "attachment is outside the attachment bucket",
				goerr.V("url", a.URL), goerr.V("bucket", r.bucket))
		}

		attrs, err := r.store.Attrs(ctx, bucket, object)
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(interfaces.ErrAttachmentNotFound, "attachment object does not exist",
				goerr.V("url", a.URL))
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read attachment metadata", goerr.V("url", a.URL))
		}

		resolved[i].ContentType = attrs.ContentType
		resolved[i].Size = attrs.Size
		if resolved[i].Name == "" {
			resolved[i].Name = path.Base(object)
		}
	}
	return resolved, nil
}
