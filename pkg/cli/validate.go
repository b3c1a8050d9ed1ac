package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/cli/config"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/domain/types"
	"github.com/secmon-lab/teamtask/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var appCfg config.App
	var repoCfg config.Repository
	var slackCfg config.Slack

	var flags []cli.Flag
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the configuration file and optionally check Slack channels and routed organizations",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			// Step 1: Load and validate the configuration file
			if appCfg.Path() == "" {
				return goerr.New("--config is required")
			}
			app, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}
			interval, _ := app.DeadlineSweepInterval()
			logger.Info("Configuration validation passed",
				"routes", len(app.Slack.Routes),
				"notification_types", app.Slack.NotificationTypes,
				"deadline_sweep_interval", interval.String(),
			)

			// Step 2: Resolve channel references when a bot token is given
			if slackCfg.IsConfigured() {
				if _, err := slackCfg.Configure(ctx, app); err != nil {
					return goerr.Wrap(err, "Slack channel validation failed")
				}
				logger.Info("Slack channels resolved")
			} else {
				logger.Info("No Slack bot token specified, skipping channel check")
			}

			// Step 3: Check routed organizations exist when a backend is chosen explicitly
			if !c.IsSet("repository-backend") {
				logger.Info("No repository backend specified, skipping organization check")
				return nil
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			missing, err := missingOrganizations(ctx, repo, app)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				for _, id := range missing {
					logger.Warn("Routed organization does not exist", "organization_id", id)
				}
				return fmt.Errorf("organization check found %d missing organization(s)", len(missing))
			}

			logger.Info("Organization check passed")
			return nil
		},
	}
}

func missingOrganizations(ctx context.Context, repo interfaces.Repository, app *config.AppConfig) ([]types.OrganizationID, error) {
	var missing []types.OrganizationID
	for _, route := range app.Slack.Routes {
		id := types.OrganizationID(route.OrganizationID)
		_, err := repo.Organization().Get(ctx, id)
		if errors.Is(err, interfaces.ErrNotFound) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get organization", goerr.V("organization_id", id))
		}
	}
	return missing, nil
}
