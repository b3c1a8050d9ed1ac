package attachment_test

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/model"
	"github.com/secmon-lab/teamtask/pkg/service/attachment"
)

type fakeStore struct {
	objects map[string]*storage.ObjectAttrs
}

func (s *fakeStore) Attrs(ctx context.Context, bucket, object string) (*storage.ObjectAttrs, error) {
	attrs, ok := s.objects[bucket+"/"+object]
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return attrs, nil
}

func (s *fakeStore) Close() error { return nil }

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{objects: map[string]*storage.ObjectAttrs{
		"reports/q1/summary.pdf": {ContentType: "application/pdf", Size: 2048},
		"reports/logo.png":       {ContentType: "image/png", Size: 512},
	}}
	r := attachment.NewWithStore("reports", store)

	t.Run("fills metadata of bucket objects", func(t *testing.T) {
		got, err := r.Resolve(ctx, []model.Attachment{
			{URL: "gs://reports/q1/summary.pdf"},
			{Name: "Logo", URL: "https://storage.googleapis.com/reports/logo.png"},
			{Name: "external", URL: "https://example.com/file.txt"},
		})
		gt.NoError(t, err).Required()
		gt.Array(t, got).Length(3).Required()

		gt.Value(t, got[0].Name).Equal("summary.pdf")
		gt.Value(t, got[0].ContentType).Equal("application/pdf")
		gt.Value(t, got[0].Size).Equal(int64(2048))
		gt.Value(t, got[1].Name).Equal("Logo")
		gt.Value(t, got[1].Size).Equal(int64(512))
		gt.Value(t, got[2].ContentType).Equal("")
	})

	t.Run("missing object", func(t *testing.T) {
		_, err := r.Resolve(ctx, []model.Attachment{{URL: "gs://reports/missing.txt"}})
		gt.Error(t, err).Is(interfaces.ErrAttachmentNotFound)
	})

	t.Run("other bucket", func(t *testing.T) {
		_, err := r.Resolve(ctx, []model.Attachment{{URL: "gs://elsewhere/q1/summary.pdf"}})
		gt.Error(t, err).Is(interfaces.ErrAttachmentNotFound)
	})
}

func TestResolver_GCS(t *testing.T) {
	bucket := os.Getenv("TEST_ATTACHMENT_BUCKET")
	object := os.Getenv("TEST_ATTACHMENT_OBJECT")
	if bucket == "" || object == "" {
		t.Skip("TEST_ATTACHMENT_BUCKET and TEST_ATTACHMENT_OBJECT are not set")
	}

	ctx := context.Background()
	r, err := attachment.New(ctx, bucket)
	gt.NoError(t, err).Required()
	t.Cleanup(func() { _ = r.Close() })

	got, err := r.Resolve(ctx, []model.Attachment{{URL: "gs://" + bucket + "/" + object}})
	gt.NoError(t, err).Required()
	gt.Number(t, got[0].Size).GreaterOrEqual(1)
}
