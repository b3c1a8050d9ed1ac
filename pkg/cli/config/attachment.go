package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/service/attachment"
	"github.com/secmon-lab/teamtask/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Attachment holds CLI flags for attachment verification
type Attachment struct {
	bucket string
}

func (x *Attachment) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "attachment-bucket",
			Usage:       "GCS bucket holding report and chat attachments. gs:// URLs into it are verified",
			Category:    "Attachment",
			Destination: &x.bucket,
			Sources:     cli.EnvVars("TEAMTASK_ATTACHMENT_BUCKET"),
		},
	}
}

func (x Attachment) LogValue() slog.Value {
	return slog.GroupValue(slog.String("bucket", x.bucket))
}

// Configure returns the resolver, or nil when no bucket is configured.
// The caller closes the resolver.
func (x *Attachment) Configure(ctx context.Context) (*attachment.Resolver, error) {
	if x.bucket == "" {
		return nil, nil
	}
	resolver, err := attachment.New(ctx, x.bucket)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize attachment resolver", goerr.V("bucket", x.bucket))
	}
	logging.Default().Info("Attachment verification enabled", "bucket", x.bucket)
	return resolver, nil
}
