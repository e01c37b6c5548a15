// Package sqlstore implements sim.Repository over database/sql for Postgres
// (pgx stdlib driver) and SQLite (modernc pure-Go driver). Queries are written
// once with ? placeholders and rebound per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/wardsim/wardsim/sim"
)

// Dialect selects the SQL flavour of a store.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// sqliteTime is the storage layout of SQLite timestamps. Fixed width and UTC,
// so string comparison orders like time.
const sqliteTime = "2006-01-02 15:04:05"

// ErrNotFound is returned when a write names a row that does not exist.
var ErrNotFound = errors.New("row not found")

//go:embed schema_postgres.sql
var schemaPostgres string

//go:embed schema_sqlite.sql
var schemaSQLite string

// Store is a SQL-backed sim.Repository. Every write method commits its own
// transaction.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ sim.Repository = (*Store)(nil)

// ParseDialect validates a dialect name.
func ParseDialect(name string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(name)); d {
	case Postgres, SQLite:
		return d, nil
	default:
		return "", fmt.Errorf("unknown SQL dialect %q; valid: postgres, sqlite", name)
	}
}

// Open connects to a database and pings it. A SQLite DSN without query
// parameters gets foreign keys and a busy timeout enabled.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	driver := "pgx"
	if dialect == SQLite {
		driver = "sqlite"
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == SQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return New(db, dialect), nil
}

// New wraps an open database handle.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB exposes the underlying sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect reports the store's SQL flavour.
func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) Close() error { return s.db.Close() }

// Migrate applies the embedded schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	ddl := schemaPostgres
	if s.dialect == SQLite {
		ddl = schemaSQLite
	}
	for _, stmt := range splitStatements(ddl) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

// Tables lists every table in foreign-key order.
func Tables() []string {
	return []string{
		"hospitals", "roles", "employees", "employee_hospital", "patients",
		"insurance_providers", "medications", "procedures", "symptoms", "conditions",
		"condition_symptoms", "condition_procedures", "condition_medications",
		"suppliers", "supplier_medications", "inventory", "patient_daily_logs",
		"prescriptions", "prescription_anomalies", "billing", "billing_procedures",
		"supply_orders", "supply_order_items", "supply_anomalies", "payments",
		"payroll_schedule", "payroll_logs",
	}
}

// splitStatements breaks a DDL bundle on statement-terminating semicolons,
// dropping comment lines.
func splitStatements(ddl string) []string {
	var stmts []string
	var current strings.Builder
	for _, line := range strings.Split(ddl, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			stmts = append(stmts, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		stmts = append(stmts, tail)
	}
	return stmts
}

// rebind rewrites ? placeholders as $1, $2, ... for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ts converts a timestamp into the dialect's storage form.
func (s *Store) ts(t time.Time) any {
	if s.dialect == SQLite {
		return t.UTC().Format(sqliteTime)
	}
	return t.UTC()
}

func (s *Store) nullTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return s.ts(*t)
}

// timeScanner reads a timestamp stored by either dialect.
type timeScanner struct {
	dst   *time.Time
	valid bool
}

func (ts *timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		ts.valid = false
		return nil
	case time.Time:
		*ts.dst = v.UTC()
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
	ts.valid = true
	return nil
}

func (ts *timeScanner) parse(v string) error {
	for _, layout := range []string{sqliteTime, time.RFC3339Nano} {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			*ts.dst = t.UTC()
			ts.valid = true
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", v)
}

func nullInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

// inTx runs fn inside a transaction, committing on success.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// each runs a query and calls fn for every row.
func (s *Store) each(ctx context.Context, query string, fn func(*sql.Rows) error, args ...any) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
