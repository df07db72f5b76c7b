package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Dialect selects the SQL flavour spoken by SQLKV.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

const defaultTable = "librocart_kv"

// SQLKV keeps values in a two-column table of a relational database.
type SQLKV struct {
	db      *sql.DB
	dialect Dialect
	table   string
	tracer  trace.Tracer
}

// OpenSQL opens a connection pool for dialect and verifies it with a ping.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	switch dialect {
	case Postgres:
	case MySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		dsn = cfg.FormatDSN()
	default:
		return nil, fmt.Errorf("%w: sql dialect %q", ErrUnknownBackend, dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return db, nil
}

// NewSQLKV wraps db and creates the backing table if it does not exist.
func NewSQLKV(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLKV, error) {
	s := &SQLKV{
		db:      db,
		dialect: dialect,
		table:   defaultTable,
		tracer:  otel.Tracer("librocart/storage"),
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLKV) ensureSchema(ctx context.Context) error {
	var ddl string
	switch s.dialect {
	case Postgres:
		ddl = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				kv_key TEXT PRIMARY KEY,
				kv_value TEXT NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, pq.QuoteIdentifier(s.table))
	case MySQL:
		ddl = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				kv_key VARCHAR(191) PRIMARY KEY,
				kv_value MEDIUMTEXT NOT NULL,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
			)`, s.table)
	default:
		return fmt.Errorf("%w: sql dialect %q", ErrUnknownBackend, s.dialect)
	}

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create kv table: %w", err)
	}
	return nil
}

// Get reads a single value.
func (s *SQLKV) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := s.tracer.Start(ctx, "kv.get",
		trace.WithAttributes(
			attribute.String("db.system", string(s.dialect)),
			attribute.String("kv.key", key),
		),
	)
	defer span.End()

	query := fmt.Sprintf(`SELECT kv_value FROM %s WHERE kv_key = %s`, s.quotedTable(), s.placeholder(1))

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetAttributes(attribute.Bool("kv.found", false))
		return "", false, nil
	}
	if err != nil {
		span.RecordError(err)
		return "", false, fmt.Errorf("query value: %w", err)
	}

	span.SetAttributes(attribute.Bool("kv.found", true))
	return value, true, nil
}

// Set upserts a value, replacing any previous one.
func (s *SQLKV) Set(ctx context.Context, key, value string) error {
	ctx, span := s.tracer.Start(ctx, "kv.set",
		trace.WithAttributes(
			attribute.String("db.system", string(s.dialect)),
			attribute.String("kv.key", key),
			attribute.Int("kv.size", len(value)),
		),
	)
	defer span.End()

	var query string
	switch s.dialect {
	case Postgres:
		query = fmt.Sprintf(`
			INSERT INTO %s (kv_key, kv_value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (kv_key) DO UPDATE
			SET kv_value = EXCLUDED.kv_value,
			    updated_at = EXCLUDED.updated_at
		`, s.quotedTable())
	case MySQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (kv_key, kv_value)
			VALUES (?, ?)
			ON DUPLICATE KEY UPDATE kv_value = VALUES(kv_value)
		`, s.quotedTable())
	}

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			span.SetAttributes(attribute.String("db.error_code", string(pqErr.Code)))
		}
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) {
			span.SetAttributes(attribute.Int("db.error_code", int(myErr.Number)))
		}
		span.RecordError(err)
		return fmt.Errorf("upsert value: %w", err)
	}

	span.SetAttributes(attribute.Bool("kv.written", true))
	return nil
}

func (s *SQLKV) Close() error {
	return s.db.Close()
}

func (s *SQLKV) quotedTable() string {
	if s.dialect == Postgres {
		return pq.QuoteIdentifier(s.table)
	}
	return "`" + s.table + "`"
}

func (s *SQLKV) placeholder(n int) string {
	if s.dialect == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
