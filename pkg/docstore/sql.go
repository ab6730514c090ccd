package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
)

const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type SQLConfig struct {
	Driver                string
	DSN                   string
	Collection            string
	MaxConnections        int
	MaxIdleConnections    int
	MaxConnectionLifetime time.Duration
}

var _ Store = &SQLStore{}

// SQLStore keeps documents in a two column table named after the collection.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	table  string
}

// NewSQLStore opens a pooled connection and creates the collection table if needed.
func NewSQLStore(ctx context.Context, conf SQLConfig) (*SQLStore, error) {
	if !collectionPattern.MatchString(conf.Collection) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollection, conf.Collection)
	}
	system, err := dbSystem(conf.Driver)
	if err != nil {
		return nil, err
	}

	ctxLogger.Debug(ctx, "opening docstore", zap.String("driver", conf.Driver), zap.String("collection", conf.Collection))
	otelSql, err := otelsql.Open(conf.Driver, conf.DSN, otelsql.WithAttributes(system))
	if err != nil {
		return nil, fmt.Errorf("failed opening %s: %w", conf.Driver, err)
	}
	if err := otelsql.RegisterDBStatsMetrics(otelSql, otelsql.WithAttributes(system)); err != nil {
		ctxLogger.Warn(ctx, "failed registering db stats metrics", zap.Error(err))
	}

	db := sqlx.NewDb(otelSql, conf.Driver)
	if conf.MaxConnections > 0 {
		db.SetMaxOpenConns(conf.MaxConnections)
	}
	if conf.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(conf.MaxIdleConnections)
	}
	if conf.MaxConnectionLifetime > 0 {
		db.SetConnMaxLifetime(conf.MaxConnectionLifetime)
	}
	db.SetConnMaxIdleTime(10 * time.Minute)

	s := &SQLStore{db: db, driver: conf.Driver, table: conf.Collection}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed creating table %s: %w", s.table, err)
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id         VARCHAR(128) PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at VARCHAR(64) NOT NULL
)`, s.table))
	return err
}

func (s *SQLStore) Get(ctx context.Context, id string) (json.RawMessage, error) {
	var body string
	query := s.db.Rebind(fmt.Sprintf("SELECT body FROM %s WHERE id = ?", s.table))
	err := s.db.GetContext(ctx, &body, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed reading document %s: %w", id, err)
	}
	return json.RawMessage(body), nil
}

func (s *SQLStore) Put(ctx context.Context, id string, doc json.RawMessage) error {
	if err := validDocument(doc); err != nil {
		return err
	}
	var query string
	switch s.driver {
	case DriverMySQL:
		query = fmt.Sprintf("INSERT INTO %s (id, body, updated_at) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE body = VALUES(body), updated_at = VALUES(updated_at)", s.table)
	default:
		query = fmt.Sprintf("INSERT INTO %s (id, body, updated_at) VALUES (?, ?, ?) ON CONFLICT (id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at", s.table)
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(query), id, string(doc), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed writing document %s: %w", id, err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func dbSystem(driver string) (attribute.KeyValue, error) {
	switch driver {
	case DriverMySQL:
		return semconv.DBSystemMySQL, nil
	case DriverPostgres:
		return semconv.DBSystemPostgreSQL, nil
	case DriverSQLite:
		return semconv.DBSystemKey.String(DriverSQLite), nil
	default:
		return attribute.KeyValue{}, fmt.Errorf("unsupported sql driver: %q", driver)
	}
}

// sqlDSN returns the configured DSN, building one from host settings for server databases.
func sqlDSN(driver string) string {
	dsn := viper.GetString(DSNFlag)
	if dsn != "" {
		return dsn
	}
	if driver == DriverSQLite {
		return "bench.db"
	}
	host := viper.GetString(HostFlag)
	port := viper.GetInt(PortFlag)
	user := viper.GetString(UserFlag)
	password := viper.GetString(PasswordFlag)
	database := viper.GetString(DatabaseFlag)

	switch driver {
	case DriverMySQL:
		if port == 0 {
			port = 3306
		}
		conf := mysql.Config{
			AllowNativePasswords: true,
			User:                 user,
			Passwd:               password,
			Net:                  "tcp",
			Addr:                 fmt.Sprintf("%s:%d", host, port),
			DBName:               database,
			CheckConnLiveness:    true,
			MaxAllowedPacket:     4 << 20,
		}
		return conf.FormatDSN()
	default:
		if port == 0 {
			port = 5432
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, database)
	}
}
