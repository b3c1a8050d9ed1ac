package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

// DefaultDeadlineSweepInterval is used when the config file does not set one
const DefaultDeadlineSweepInterval = 5 * time.Minute

// AppConfig represents the application configuration file
type AppConfig struct {
	BaseURL string       `toml:"base_url"`
	Slack   SlackRouting `toml:"slack"`
	Worker  WorkerConfig `toml:"worker"`
}

// SlackRouting selects which notifications reach which Slack channel
type SlackRouting struct {
	NotificationTypes []string     `toml:"notification_types"`
	Routes            []SlackRoute `toml:"route"`
}

// SlackRoute maps an organization to a channel ID or "#name"
type SlackRoute struct {
	OrganizationID string `toml:"organization_id"`
	Channel        string `toml:"channel"`
}

// Validate checks if the SlackRoute is valid
func (r *SlackRoute) Validate() error {
	orgID := types.OrganizationID(r.OrganizationID)
	if err := orgID.Validate(); err != nil {
		return goerr.Wrap(ErrInvalidOrganizationID, err.Error(), goerr.V(OrganizationIDKey, r.OrganizationID))
	}
	if slack.NormalizeChannelName(r.Channel) == "" {
		return goerr.Wrap(ErrMissingChannel, "route has no channel", goerr.V(OrganizationIDKey, r.OrganizationID))
	}
	return nil
}

// WorkerConfig configures background workers
type WorkerConfig struct {
	// DeadlineSweepInterval is a Go duration string such as "5m"
	DeadlineSweepInterval string `toml:"deadline_sweep_interval"`
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	seen := make(map[string]bool)
	for i, route := range a.Slack.Routes {
		if err := route.Validate(); err != nil {
			return goerr.Wrap(err, "invalid slack route", goerr.V(RouteIndexKey, i))
		}
		if seen[route.OrganizationID] {
			return goerr.Wrap(ErrDuplicateOrganization, "organization is routed twice", goerr.V(OrganizationIDKey, route.OrganizationID))
		}
		seen[route.OrganizationID] = true
	}

	for _, t := range a.Slack.NotificationTypes {
		if _, err := types.ParseNotificationType(t); err != nil {
			return goerr.Wrap(ErrInvalidNotificationType, "unknown notification type", goerr.V(NotificationTypeKey, t))
		}
	}

	if _, err := a.DeadlineSweepInterval(); err != nil {
		return err
	}

	return nil
}

// DeadlineSweepInterval returns the configured sweep interval or the default
func (a *AppConfig) DeadlineSweepInterval() (time.Duration, error) {
	if a.Worker.DeadlineSweepInterval == "" {
		return DefaultDeadlineSweepInterval, nil
	}
	d, err := time.ParseDuration(a.Worker.DeadlineSweepInterval)
	if err != nil {
		return 0, goerr.Wrap(ErrInvalidInterval, err.Error(), goerr.V(IntervalKey, a.Worker.DeadlineSweepInterval))
	}
	if d < time.Second {
		return 0, goerr.Wrap(ErrInvalidInterval, "interval must be at least one second", goerr.V(IntervalKey, a.Worker.DeadlineSweepInterval))
	}
	return d, nil
}

// ToNotifierConfig converts the Slack section to the notifier configuration
func (a *AppConfig) ToNotifierConfig() slack.NotifierConfig {
	cfg := slack.NotifierConfig{
		Channels: make(map[types.OrganizationID]string, len(a.Slack.Routes)),
		BaseURL:  a.BaseURL,
	}
	for _, route := range a.Slack.Routes {
		cfg.Channels[types.OrganizationID(route.OrganizationID)] = route.Channel
	}
	for _, t := range a.Slack.NotificationTypes {
		cfg.Types = append(cfg.Types, types.NotificationType(t))
	}
	return cfg
}

// LoadAppConfiguration loads the application configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, err.Error(), goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config", goerr.V(ConfigPathKey, path), goerr.V("reason", err.Error()))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}

// App holds the --config flag
type App struct {
	path string
}

func (x *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML application config",
			Sources:     cli.EnvVars("TEAMTASK_CONFIG"),
			Destination: &x.path,
		},
	}
}

func (x App) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", x.path))
}

// Path returns the configured file path
func (x *App) Path() string {
	return x.path
}

// Configure loads the config file. Without --config the defaults are returned.
func (x *App) Configure() (*AppConfig, error) {
	if x.path == "" {
		return &AppConfig{}, nil
	}
	return LoadAppConfiguration(x.path)
}
