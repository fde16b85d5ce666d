// Package store persists the snapshots, the tax records and the bonus and
// subscription registry of the irpf reports in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"

	"github.com/etnz/irpf"
	"github.com/phuslu/log"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// DB is a SQLite backed irpf.Snapshots, irpf.Registry and irpf.SnapshotWriter.
type DB struct {
	sql    *sql.DB
	logger *log.Logger
	// mu serializes the read-compare-write of registry rows.
	mu sync.Mutex
}

// Open opens, and creates if needed, the database at path. Use ":memory:"
// for a transient database.
func Open(path string, logger *log.Logger) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	// a single connection, so that ":memory:" is one database.
	sqlDB.SetMaxOpenConns(1)
	if logger == nil {
		logger = &log.Logger{Level: log.ErrorLevel, Writer: &log.IOWriter{Writer: io.Discard}}
	}
	d := &DB{sql: sqlDB, logger: logger}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating database %s: %w", path, err)
	}
	logger.Debug().Str("path", path).Msg("database ready")
	return d, nil
}

// Close closes the database.
func (d *DB) Close() error { return d.sql.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS positions (
	ticker        TEXT NOT NULL,
	institution   TEXT NOT NULL DEFAULT '',
	date          TEXT NOT NULL,
	consolidation INTEGER NOT NULL,
	quantity      TEXT NOT NULL,
	total         TEXT NOT NULL,
	tax           TEXT NOT NULL,
	valid         BOOLEAN NOT NULL DEFAULT TRUE,
	PRIMARY KEY (ticker, institution, date, consolidation)
);

CREATE TABLE IF NOT EXISTS statistics (
	category          TEXT NOT NULL,
	institution       TEXT NOT NULL DEFAULT '',
	date              TEXT NOT NULL,
	consolidation     INTEGER NOT NULL,
	cumulative_losses TEXT NOT NULL,
	residual_taxes    TEXT NOT NULL,
	patrimony         TEXT NOT NULL,
	valid             BOOLEAN NOT NULL DEFAULT TRUE,
	PRIMARY KEY (category, institution, date, consolidation)
);

CREATE TABLE IF NOT EXISTS taxes (
	id          TEXT PRIMARY KEY,
	date        TEXT NOT NULL,
	category    TEXT NOT NULL,
	ticker      TEXT NOT NULL DEFAULT '',
	total       TEXT NOT NULL,
	rate        TEXT NOT NULL DEFAULT '0',
	description TEXT NOT NULL DEFAULT '',
	paid        BOOLEAN NOT NULL DEFAULT FALSE,
	paid_on     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS taxes_category_date ON taxes (category, date);

CREATE TABLE IF NOT EXISTS bonus_info (
	bonus_id      TEXT NOT NULL,
	institution   TEXT NOT NULL DEFAULT '',
	ticker        TEXT NOT NULL,
	from_quantity TEXT NOT NULL,
	from_total    TEXT NOT NULL,
	quantity      TEXT NOT NULL,
	total         TEXT NOT NULL,
	PRIMARY KEY (bonus_id, institution)
);

CREATE TABLE IF NOT EXISTS subscription_info (
	subscription_id TEXT NOT NULL,
	institution     TEXT NOT NULL DEFAULT '',
	ticker          TEXT NOT NULL,
	from_quantity   TEXT NOT NULL,
	from_total      TEXT NOT NULL,
	quantity        TEXT NOT NULL,
	total           TEXT NOT NULL,
	PRIMARY KEY (subscription_id, institution)
);
`

func (d *DB) migrate() error {
	_, err := d.sql.Exec(schema)
	return err
}

// Amounts and quantities are stored as decimal strings, dates as YYYY-MM-DD.

func money(m irpf.Money) string       { return m.Decimal().String() }
func quantity(q irpf.Quantity) string { return q.Decimal().String() }

func date(d irpf.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func parseMoney(s string) (irpf.Money, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return irpf.Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return irpf.BR(v), nil
}

func parseQuantity(s string) (irpf.Quantity, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return irpf.Quantity{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return irpf.Q(v), nil
}

func parseDate(s string) (irpf.Date, error) {
	if s == "" {
		return irpf.Date{}, nil
	}
	return irpf.ParseDate(s)
}

// row is a decoder of text columns that remembers the first error.
type row struct{ err error }

func (r *row) money(s string) irpf.Money {
	m, err := parseMoney(s)
	if r.err == nil {
		r.err = err
	}
	return m
}

func (r *row) quantity(s string) irpf.Quantity {
	q, err := parseQuantity(s)
	if r.err == nil {
		r.err = err
	}
	return q
}

func (r *row) date(s string) irpf.Date {
	d, err := parseDate(s)
	if r.err == nil {
		r.err = err
	}
	return d
}

func (r *row) category(s string) irpf.Category {
	c, err := irpf.ParseCategory(s)
	if r.err == nil {
		r.err = err
	}
	return c
}

// inTx runs f in a transaction, committed when f succeeds.
func (d *DB) inTx(ctx context.Context, f func(tx *sql.Tx) error) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := f(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// check that a DB implements every store interface.
var (
	_ irpf.Snapshots      = (*DB)(nil)
	_ irpf.Registry       = (*DB)(nil)
	_ irpf.SnapshotWriter = (*DB)(nil)
)
