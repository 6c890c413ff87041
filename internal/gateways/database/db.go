package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"

	"github.com/Konfistador/ExplorationAppBackend/internal/config"
	"github.com/Konfistador/ExplorationAppBackend/internal/gateways/database/models"
	"github.com/Konfistador/ExplorationAppBackend/internal/logger"
)

const (
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

// DB owns the bun handle and, on PostgreSQL, the pgx pool used for raw
// maintenance statements.
type DB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

// Open connects to the driver named in cfg.
func Open(ctx context.Context, cfg config.DBConfig) (*DB, error) {
	switch cfg.Driver {
	case "postgres":
		return New(ctx, cfg)
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// New connects to PostgreSQL, retrying the first ping a few times so the
// service can start alongside the database container.
func New(ctx context.Context, cfg config.DBConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxLifetime) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	for i := 0; i < defaultMaxRetries; i++ {
		if err = pool.Ping(ctx); err == nil {
			break
		}
		slog.Warn("Database not reachable yet",
			slog.String("type", "db"),
			slog.Int("attempt", i+1),
			slog.Any("error", err))
		time.Sleep(defaultRetryInterval)
	}
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("database server unreachable after %d attempts: %w", defaultMaxRetries, err)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(buildConnString(cfg))))
	if cfg.PoolSize > 0 {
		sqldb.SetMaxOpenConns(cfg.PoolSize)
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	bunDB.AddQueryHook(QueryHook{})

	return &DB{pool: pool, bunDB: bunDB}, nil
}

func buildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s&connect_timeout=5",
		cfg.User, cfg.Password,
		net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		cfg.Database, sslMode,
	)
}

// OpenSQLite opens a SQLite database through the pure Go modernc driver.
// Pass ":memory:" for a throwaway database. The pool is capped at one
// connection: SQLite has a single writer, and an in-memory database only
// lives as long as its connection.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	bunDB.AddQueryHook(QueryHook{})
	return &DB{bunDB: bunDB}, nil
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) IsPostgres() bool {
	return db.bunDB.Dialect().Name() == dialect.PG
}

// appTables lists every table in drop-safe order.
var appTables = []string{
	"trophy_grants",
	"points_accounts",
	"storyline_participations",
	"location_visits",
	"storyline_locations",
	"trophies",
	"storylines",
	"locations",
	"accounts",
}

// ResetAppTables empties every application table.
func (db *DB) ResetAppTables(ctx context.Context) error {
	if db.IsPostgres() {
		stmt := "TRUNCATE TABLE " + joinIdentifiers(appTables) + " RESTART IDENTITY CASCADE;"
		if _, err := db.ExecWithLog(ctx, stmt); err != nil {
			return fmt.Errorf("failed to truncate tables: %w", err)
		}
	} else {
		for _, table := range appTables {
			if _, err := db.ExecWithLog(ctx, "DELETE FROM "+joinIdentifiers([]string{table})); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
	}

	logger.LogSystem("App tables reset", slog.Any("tables", appTables))
	return nil
}

func joinIdentifiers(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}

// ExecWithLog runs a raw statement and logs it. PostgreSQL goes through the
// pgx pool; SQLite through the bun handle.
func (db *DB) ExecWithLog(ctx context.Context, query string, args ...any) (int64, error) {
	start := time.Now()

	var affected int64
	var err error
	if db.pool != nil {
		tag, execErr := db.pool.Exec(ctx, query, args...)
		affected, err = tag.RowsAffected(), execErr
	} else {
		res, execErr := db.bunDB.ExecContext(ctx, query, args...)
		err = execErr
		if err == nil {
			affected, _ = res.RowsAffected()
		}
	}

	logger.LogQuery("exec", query, time.Since(start), err)
	return affected, err
}

func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
	if db.bunDB != nil {
		db.bunDB.Close()
	}
}

// InitializeSchema creates all tables and indexes. It is idempotent.
func (db *DB) InitializeSchema(ctx context.Context) error {
	tables := []interface{}{
		(*models.Account)(nil),
		(*models.Location)(nil),
		(*models.Storyline)(nil),
		(*models.StorylineLocation)(nil),
		(*models.Trophy)(nil),
		(*models.LocationVisit)(nil),
		(*models.StorylineParticipation)(nil),
		(*models.PointsAccount)(nil),
		(*models.TrophyGrant)(nil),
	}

	for _, model := range tables {
		_, err := db.bunDB.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// The unique indexes back the insert-or-conflict writes; they must exist
	// before the first request.
	indexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_accounts_username ON accounts(username);",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_locations_name ON locations(name);",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_location_visits_account_location ON location_visits(account_id, location_id);",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_storyline_participations_account_storyline ON storyline_participations(account_id, storyline_id);",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_points_accounts_account ON points_accounts(account_id);",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_trophy_grants_account_trophy ON trophy_grants(account_id, trophy_id);",
		"CREATE INDEX IF NOT EXISTS idx_storyline_locations_location ON storyline_locations(location_id);",
		"CREATE INDEX IF NOT EXISTS idx_points_accounts_balance ON points_accounts(balance DESC, account_id ASC);",
		"CREATE INDEX IF NOT EXISTS idx_storyline_participations_completed ON storyline_participations(account_id) WHERE completed_at IS NOT NULL;",
	}

	for _, idx := range indexes {
		if _, err := db.ExecWithLog(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	logger.LogSystem("Database schema initialized",
		slog.String("dialect", db.bunDB.Dialect().Name().String()))
	return nil
}
