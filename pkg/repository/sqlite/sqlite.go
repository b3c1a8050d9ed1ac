package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/teamtask/pkg/domain/interfaces"
	"github.com/secmon-lab/teamtask/pkg/repository/sqlite/migrations"
	"github.com/secmon-lab/teamtask/pkg/utils/logging"
	_ "modernc.org/sqlite"
)

// Config is the configuration of the SQLite repository
type Config struct {
	DBPath string
	Logger *slog.Logger
	// SkipMigration leaves the schema untouched, for the migrate command
	SkipMigration bool
}

func (c *Config) defaults() error {
	if c.DBPath == "" {
		return goerr.New("db path is required")
	}
	if c.Logger == nil {
		c.Logger = logging.Default()
	}
	c.Logger = c.Logger.With("svc", "repository.sqlite")
	return nil
}

// SQLite is the relational repository backend
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger

	organization *organizationRepository
	invitation   *invitationRepository
	task         *taskRepository
	stage        *stageRepository
	read         *notificationReadRepository
	chat         *chatRepository
}

var _ interfaces.Repository = &SQLite{}

// New opens the database file and applies pending migrations
func New(ctx context.Context, cfg Config) (*SQLite, error) {
	if err := cfg.defaults(); err != nil {
		return nil, goerr.Wrap(err, "invalid sqlite config")
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, goerr.Wrap(err, "failed to create db directory", goerr.V("path", cfg.DBPath))
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("path", cfg.DBPath))
	}
	// SQLite serializes writers; one connection keeps transactions from failing with SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if !cfg.SkipMigration {
		migrator, err := migrations.NewMigrator(db, cfg.Logger)
		if err != nil {
			_ = db.Close()
			return nil, goerr.Wrap(err, "failed to create migrator")
		}
		if err := migrator.Up(ctx); err != nil {
			_ = db.Close()
			return nil, goerr.Wrap(err, "failed to run migrations")
		}
	}

	cfg.Logger.Debug("sqlite repository initialized", "path", cfg.DBPath)

	s := &SQLite{db: db, logger: cfg.Logger}
	s.organization = &organizationRepository{db: db}
	s.invitation = &invitationRepository{db: db}
	s.task = &taskRepository{db: db}
	s.stage = &stageRepository{db: db}
	s.read = &notificationReadRepository{db: db}
	s.chat = &chatRepository{db: db}
	return s, nil
}

// DB exposes the handle for migrations
func (s *SQLite) DB() *sql.DB {
	return s.db
}

func (s *SQLite) Organization() interfaces.OrganizationRepository {
	return s.organization
}

func (s *SQLite) Invitation() interfaces.InvitationRepository {
	return s.invitation
}

func (s *SQLite) Task() interfaces.TaskRepository {
	return s.task
}

func (s *SQLite) Stage() interfaces.StageRepository {
	return s.stage
}

func (s *SQLite) NotificationRead() interfaces.NotificationReadRepository {
	return s.read
}

func (s *SQLite) Chat() interfaces.ChatRepository {
	return s.chat
}

func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return goerr.Wrap(err, "failed to ping sqlite")
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnix(v int64) time.Time {
	return time.Unix(0, v).UTC()
}

func toNullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNullUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromUnix(v.Int64)
	return &t
}

func encodeJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode column")
	}
	return string(raw), nil
}

func decodeJSON(raw string, v any) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return goerr.Wrap(err, "failed to decode column")
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
