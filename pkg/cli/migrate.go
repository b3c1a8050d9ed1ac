package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/cli/config"
	"github.com/secmon-lab/teamtask/pkg/repository/sqlite"
	"github.com/secmon-lab/teamtask/pkg/repository/sqlite/migrations"
	"github.com/secmon-lab/teamtask/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository
	var dryRun bool
	var down bool

	flags := repoCfg.Flags()
	flags = append(flags,
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Preview changes without applying",
			Destination: &dryRun,
		},
		&cli.BoolFlag{
			Name:        "down",
			Usage:       "Roll back every SQLite migration (sqlite backend only)",
			Destination: &down,
		},
	)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate the SQLite schema or the Firestore indexes",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("Migrate configuration",
				"repository", repoCfg,
				"dryRun", dryRun,
				"down", down)

			switch repoCfg.Backend() {
			case config.BackendSQLite:
				return migrateSQLite(ctx, repoCfg.SQLitePath(), dryRun, down)
			case config.BackendFirestore:
				if down {
					return goerr.New("--down is not supported for firestore")
				}
				return migrateFirestore(ctx, repoCfg.ProjectID(), repoCfg.DatabaseID(), dryRun)
			case config.BackendMemory:
				logging.Default().Info("Memory backend has no schema, nothing to migrate")
				return nil
			default:
				return goerr.Wrap(config.ErrInvalidConfig, "invalid repository backend", goerr.V("backend", repoCfg.Backend()))
			}
		},
	}
}

func migrateSQLite(ctx context.Context, path string, dryRun, down bool) error {
	logger := logging.Default()

	repo, err := sqlite.New(ctx, sqlite.Config{DBPath: path, SkipMigration: true})
	if err != nil {
		return goerr.Wrap(err, "failed to open sqlite database")
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close sqlite database", "error", err.Error())
		}
	}()

	migrator, err := migrations.NewMigrator(repo.DB(), logger)
	if err != nil {
		return goerr.Wrap(err, "failed to create migrator")
	}

	version, dirty, err := migrator.Version(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to read schema version")
	}
	logger.Info("Current schema version", "version", version, "dirty", dirty)

	if dryRun {
		logger.Info("Dry run mode - no change applied")
		return nil
	}

	if down {
		if err := migrator.Down(ctx); err != nil {
			return goerr.Wrap(err, "failed to roll back migrations")
		}
		logger.Info("Migrations rolled back successfully")
		return nil
	}

	if err := migrator.Up(ctx); err != nil {
		return goerr.Wrap(err, "failed to apply migrations")
	}
	version, _, err = migrator.Version(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to read schema version")
	}
	logger.Info("Migrations applied successfully", "version", version)
	return nil
}

func migrateFirestore(ctx context.Context, projectID, databaseID string, dryRun bool) error {
	logger := logging.Default()
	if projectID == "" {
		return goerr.New("firestore-project-id is required when using firestore backend")
	}

	indexConfig := getIndexConfig()

	client, err := fireconf.NewClient(ctx, projectID, databaseID)
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close fireconf client", "error", err.Error())
		}
	}()

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
		plan, err := client.GetMigrationPlan(ctx, indexConfig)
		if err != nil {
			return goerr.Wrap(err, "failed to create migration plan")
		}

		if len(plan.Steps) == 0 {
			logger.Info("No changes required")
			return nil
		}

		for _, step := range plan.Steps {
			logger.Info("Migration step",
				"collection", step.Collection,
				"operation", step.Operation,
				"description", step.Description,
				"destructive", step.Destructive)
		}
		return nil
	}

	logger.Info("Applying migrations")
	if err := client.Migrate(ctx, indexConfig); err != nil {
		return goerr.Wrap(err, "failed to apply migrations")
	}
	logger.Info("Migrations applied successfully")
	return nil
}

// getIndexConfig returns the composite indexes the Firestore queries need
func getIndexConfig() *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: "chat_messages",
				Indexes: []fireconf.Index{
					// List: organization, newest first
					{
						Fields: []fireconf.IndexField{
							{Path: "OrganizationID", Order: fireconf.OrderAscending},
							{Path: "CreatedAt", Order: fireconf.OrderDescending},
						},
					},
				},
			},
			{
				Name: "tasks",
				Indexes: []fireconf.Index{
					// List with status filter per organization, assignee and assigner
					{
						Fields: []fireconf.IndexField{
							{Path: "OrganizationID", Order: fireconf.OrderAscending},
							{Path: "Status", Order: fireconf.OrderAscending},
						},
					},
					{
						Fields: []fireconf.IndexField{
							{Path: "AssigneeID", Order: fireconf.OrderAscending},
							{Path: "Status", Order: fireconf.OrderAscending},
						},
					},
					{
						Fields: []fireconf.IndexField{
							{Path: "AssignerID", Order: fireconf.OrderAscending},
							{Path: "Status", Order: fireconf.OrderAscending},
						},
					},
				},
			},
			{
				Name: "invitations",
				Indexes: []fireconf.Index{
					// ListByInvitee with status
					{
						Fields: []fireconf.IndexField{
							{Path: "InviteeID", Order: fireconf.OrderAscending},
							{Path: "Status", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
