package config_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/teamtask/pkg/cli/config"
)

func TestSlack_Configure(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled without token", func(t *testing.T) {
		notifier, err := config.NewSlackForTest("", "").Configure(ctx, &config.AppConfig{})
		gt.NoError(t, err).Required()
		gt.Value(t, notifier).Nil()
	})

	t.Run("disabled without routes", func(t *testing.T) {
		notifier, err := config.NewSlackForTest("xoxb-test", "").Configure(ctx, &config.AppConfig{})
		gt.NoError(t, err).Required()
		gt.Value(t, notifier).Nil()
	})

	t.Run("channel IDs resolve without API calls", func(t *testing.T) {
		app := &config.AppConfig{
			Slack: config.SlackRouting{
				Routes: []config.SlackRoute{{OrganizationID: orgA, Channel: "C0123456789"}},
			},
		}
		notifier, err := config.NewSlackForTest("xoxb-test", "http://127.0.0.1:1/").Configure(ctx, app)
		gt.NoError(t, err).Required()
		gt.Value(t, notifier).NotNil()
	})
}
