package safe_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/teamtask/pkg/utils/logging"
	"github.com/secmon-lab/teamtask/pkg/utils/safe"
)

type closer struct {
	err    error
	closed int
}

func (c *closer) Close() error {
	c.closed++
	return c.err
}

func TestClose(t *testing.T) {
	t.Run("closes the resource", func(t *testing.T) {
		c := &closer{}
		safe.Close(context.Background(), c, "repository")
		gt.Value(t, c.closed).Equal(1)
	})

	t.Run("failure is logged with the resource name", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := logging.With(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

		safe.Close(ctx, &closer{err: errors.New("disk gone")}, "repository")
		gt.String(t, buf.String()).Contains("failed to close repository")
		gt.String(t, buf.String()).Contains("disk gone")
	})

	t.Run("nil closers are skipped", func(t *testing.T) {
		var typed *closer
		safe.Close(context.Background(), nil, "none")
		safe.Close(context.Background(), typed, "typed nil")
	})
}
