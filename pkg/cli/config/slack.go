package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/service/slack"
	"github.com/secmon-lab/teamtask/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Slack struct {
	botToken string
	apiURL   string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (for posting task notifications)",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("TEAMTASK_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-api-url",
			Usage:       "Override the Slack API endpoint (testing only)",
			Category:    "Slack",
			Hidden:      true,
			Destination: &x.apiURL,
			Sources:     cli.EnvVars("TEAMTASK_SLACK_API_URL"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
	)
}

// IsConfigured checks if a bot token is set
func (x *Slack) IsConfigured() bool {
	return x.botToken != ""
}

// Service creates the Slack API client
func (x *Slack) Service() (slack.Service, error) {
	if x.botToken == "" {
		return nil, goerr.New("slack bot token is not configured")
	}
	var opts []slack.Option
	if x.apiURL != "" {
		opts = append(opts, slack.WithAPIURL(x.apiURL))
	}
	svc, err := slack.New(x.botToken, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}
	return svc, nil
}

// Configure creates the notifier. It returns nil when no bot token or no route
// is configured, so Slack stays optional.
func (x *Slack) Configure(ctx context.Context, app *AppConfig) (*slack.Notifier, error) {
	if !x.IsConfigured() {
		logging.Default().Info("Slack bot token not configured, Slack notifications disabled")
		return nil, nil
	}
	if len(app.Slack.Routes) == 0 {
		logging.Default().Warn("Slack bot token is set but no [[slack.route]] is configured")
		return nil, nil
	}

	svc, err := x.Service()
	if err != nil {
		return nil, err
	}

	notifier, err := slack.NewNotifier(ctx, svc, app.ToNotifierConfig())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure Slack notifier")
	}
	logging.Default().Info("Slack notifications enabled", "routes", len(app.Slack.Routes))
	return notifier, nil
}
