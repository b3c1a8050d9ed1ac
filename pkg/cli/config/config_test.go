package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/teamtask/pkg/cli/config"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
)

const (
	orgA = "0b5c3a9e-8f57-4d2b-9a6e-1f4a7c2d9e01"
	orgB = "5d1e7f3a-2c48-4b9d-8e6f-3a7b1c9d4e02"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
	return path
}

func TestLoadAppConfiguration(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		path := writeConfig(t, `
base_url = "https://tasks.example.com"

[slack]
notification_types = ["task_assigned", "task_deadline"]

[[slack.route]]
organization_id = "`+orgA+`"
channel = "#team-alpha"

[[slack.route]]
organization_id = "`+orgB+`"
channel = "C0123456789"

[worker]
deadline_sweep_interval = "90s"
`)
		cfg, err := config.LoadAppConfiguration(path)
		gt.NoError(t, err).Required()
		gt.Array(t, cfg.Slack.Routes).Length(2)

		interval, err := cfg.DeadlineSweepInterval()
		gt.NoError(t, err).Required()
		gt.Value(t, interval).Equal(90 * time.Second)

		notifier := cfg.ToNotifierConfig()
		gt.Value(t, notifier.BaseURL).Equal("https://tasks.example.com")
		gt.Value(t, notifier.Channels[types.OrganizationID(orgA)]).Equal("#team-alpha")
		gt.Array(t, notifier.Types).Length(2)
	})

	t.Run("defaults without worker section", func(t *testing.T) {
		cfg, err := config.LoadAppConfiguration(writeConfig(t, `base_url = "http://localhost:8080"`))
		gt.NoError(t, err).Required()
		interval, err := cfg.DeadlineSweepInterval()
		gt.NoError(t, err).Required()
		gt.Value(t, interval).Equal(config.DefaultDeadlineSweepInterval)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadAppConfiguration(filepath.Join(t.TempDir(), "nope.toml"))
		gt.Error(t, err).Is(config.ErrConfigNotFound)
	})

	testCases := []struct {
		name    string
		content string
		want    error
	}{
		{
			name:    "broken TOML",
			content: `[slack`,
			want:    config.ErrInvalidConfig,
		},
		{
			name: "organization ID is not a UUID",
			content: `
[[slack.route]]
organization_id = "acme"
channel = "#general"
`,
			want: config.ErrInvalidOrganizationID,
		},
		{
			name: "empty channel",
			content: `
[[slack.route]]
organization_id = "` + orgA + `"
channel = "#"
`,
			want: config.ErrMissingChannel,
		},
		{
			name: "duplicate organization",
			content: `
[[slack.route]]
organization_id = "` + orgA + `"
channel = "#a"

[[slack.route]]
organization_id = "` + orgA + `"
channel = "#b"
`,
			want: config.ErrDuplicateOrganization,
		},
		{
			name: "unknown notification type",
			content: `
[slack]
notification_types = ["task_exploded"]
`,
			want: config.ErrInvalidNotificationType,
		},
		{
			name: "bad interval",
			content: `
[worker]
deadline_sweep_interval = "soon"
`,
			want: config.ErrInvalidInterval,
		},
		{
			name: "too short interval",
			content: `
[worker]
deadline_sweep_interval = "10ms"
`,
			want: config.ErrInvalidInterval,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.LoadAppConfiguration(writeConfig(t, tc.content))
			gt.Error(t, err).Is(tc.want)
		})
	}
}

func TestApp_ConfigureWithoutPath(t *testing.T) {
	var app config.App
	cfg, err := app.Configure()
	gt.NoError(t, err).Required()
	gt.Array(t, cfg.Slack.Routes).Length(0)
}
