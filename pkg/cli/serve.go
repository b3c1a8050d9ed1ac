package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/cli/config"
	httpctrl "github.com/secmon-lab/teamtask/pkg/controller/http"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/service/fanout"
	"github.com/secmon-lab/teamtask/pkg/service/hub"
	"github.com/secmon-lab/teamtask/pkg/service/worker"
	"github.com/secmon-lab/teamtask/pkg/usecase"
	"github.com/secmon-lab/teamtask/pkg/utils/logging"
	"github.com/secmon-lab/teamtask/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

// shutdownTimeout bounds graceful shutdown after a signal
const shutdownTimeout = 10 * time.Second

func cmdServe(version string) *cli.Command {
	var addr string
	var baseURL string
	var appCfg config.App
	var repoCfg config.Repository
	var authCfg config.Auth
	var slackCfg config.Slack
	var sentryCfg config.Sentry
	var attachmentCfg config.Attachment

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("TEAMTASK_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Base URL of the web UI, used for links in Slack (overrides base_url of the config file)",
			Sources:     cli.EnvVars("TEAMTASK_BASE_URL"),
			Destination: &baseURL,
		},
	}

	// Add shared config flags
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)
	flags = append(flags, attachmentCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("Serve configuration",
				"addr", addr,
				"config", appCfg,
				"repository", repoCfg,
				"auth", authCfg,
				"slack", slackCfg,
				"sentry", sentryCfg,
				"attachment", attachmentCfg,
			)

			sentryCfg.SetRelease(version)
			flush, err := sentryCfg.Configure()
			if err != nil {
				return err
			}
			defer flush()

			app, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load application config")
			}
			if baseURL != "" {
				app.BaseURL = baseURL
			}
			sweepInterval, err := app.DeadlineSweepInterval()
			if err != nil {
				return err
			}

			// Initialize repository based on backend type
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer safe.Close(ctx, repo, "repository")

			authUC, err := authCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
			}
			if authCfg.IsNoAuthMode() {
				logging.Default().Warn("Running in no-auth mode (development only)")
			}

			// Real-time events go to WebSocket clients and, when routed, to Slack
			h := hub.New()
			defer h.Close()
			publishers := []interfaces.EventPublisher{h}

			notifier, err := slackCfg.Configure(ctx, app)
			if err != nil {
				return err
			}
			if notifier != nil {
				publishers = append(publishers, notifier)
			}
			publisher := fanout.New(publishers...)

			ucOpts := []usecase.Option{
				usecase.WithAuth(authUC),
				usecase.WithPublisher(publisher),
			}

			resolver, err := attachmentCfg.Configure(ctx)
			if err != nil {
				return err
			}
			if resolver != nil {
				defer safe.Close(ctx, resolver, "attachment resolver")
				ucOpts = append(ucOpts, usecase.WithAttachmentResolver(resolver))
			}

			uc := usecase.New(repo, ucOpts...)
			h.SetTypingHandler(uc.Chat.Typing)

			deadlineWorker := worker.NewDeadlineWorker(repo, publisher, sweepInterval)
			if err := deadlineWorker.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start deadline worker")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpctrl.WithHub(h)),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				deadlineWorker.Stop()
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				// Stop the deadline worker first so no event is published to a closing hub
				deadlineWorker.Stop()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
