package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/akyairhashvil/timekeep/internal/util"
)

// Database wraps the sqlite handle that backs running timers, time entries,
// project budgets and owner settings.
type Database struct {
	DB     *sql.DB
	dbFile string
}

// Open connects to the sqlite file at path and brings the schema up to date.
func Open(ctx context.Context, path string) (*Database, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection serializes writers; sqlite would otherwise report
	// SQLITE_BUSY under concurrent transactions.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	d := &Database{DB: db, dbFile: path}
	if err := d.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := d.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

func (d *Database) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

func (d *Database) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			budget_hours REAL,
			budget_amount REAL,
			hourly_rate REAL
		);`,
		`CREATE TABLE IF NOT EXISTS time_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_id TEXT NOT NULL,
			project_id INTEGER NOT NULL,
			category_id INTEGER,
			started_at INTEGER NOT NULL,
			stopped_at INTEGER,
			seconds INTEGER,
			source TEXT NOT NULL,
			is_overrun INTEGER NOT NULL DEFAULT 0,
			CHECK ((stopped_at IS NULL) = (seconds IS NULL))
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_time_entries_open
			ON time_entries(owner_id) WHERE stopped_at IS NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_time_entries_owner_project
			ON time_entries(owner_id, project_id);`,
		`CREATE TABLE IF NOT EXISTS running_timers (
			owner_id TEXT PRIMARY KEY,
			organization_id TEXT,
			project_id INTEGER NOT NULL,
			category_id INTEGER,
			entry_id INTEGER NOT NULL,
			started_at INTEGER NOT NULL,
			last_heartbeat_at INTEGER NOT NULL,
			awaiting_ack INTEGER NOT NULL DEFAULT 0,
			interrupt_shown_at INTEGER,
			next_interrupt_at INTEGER,
			pomodoro_enabled INTEGER NOT NULL DEFAULT 0,
			pomodoro_phase TEXT,
			pomodoro_transition_at INTEGER,
			pomodoro_work_minutes INTEGER,
			pomodoro_break_minutes INTEGER,
			pomodoro_current_cycle INTEGER,
			pomodoro_completed_cycles INTEGER,
			budget_warning_sent_at INTEGER,
			started_from TEXT,
			revision INTEGER NOT NULL DEFAULT 1,
			FOREIGN KEY(entry_id) REFERENCES time_entries(id)
		);`,
		`CREATE TABLE IF NOT EXISTS user_settings (
			owner_id TEXT PRIMARY KEY,
			interrupt_enabled INTEGER NOT NULL DEFAULT 1,
			interrupt_interval_ms INTEGER NOT NULL,
			grace_period_ms INTEGER NOT NULL,
			pomodoro_work_minutes INTEGER NOT NULL,
			pomodoro_break_minutes INTEGER NOT NULL,
			budget_warning_threshold_hours REAL,
			budget_warning_threshold_amount REAL
		);`,
	}
	for _, query := range queries {
		if _, err := d.DB.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

type columnMigration struct {
	table  string
	column string
	ddl    string
}

var columnMigrations = []columnMigration{
	{table: "running_timers", column: "interrupt_deadline", ddl: "ALTER TABLE running_timers ADD COLUMN interrupt_deadline INTEGER"},
}

// migrate adds columns introduced after the initial schema. It is safe to run
// repeatedly.
func (d *Database) migrate(ctx context.Context) error {
	for _, m := range columnMigrations {
		ok, err := d.hasColumn(ctx, m.table, m.column)
		if err != nil {
			return fmt.Errorf("migrate %s.%s: %w", m.table, m.column, err)
		}
		if ok {
			continue
		}
		if _, err := d.DB.ExecContext(ctx, m.ddl); err != nil {
			return fmt.Errorf("migrate %s.%s: %w", m.table, m.column, err)
		}
	}
	return nil
}

func (d *Database) hasColumn(ctx context.Context, table, column string) (bool, error) {
	rows, err := d.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if strings.EqualFold(name, column) {
			return true, nil
		}
	}
	return false, rows.Err()
}

// WithTx runs fn inside a transaction, committing on nil and rolling back
// otherwise.
func (d *Database) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return rollbackWithLog(tx, err)
	}
	return tx.Commit()
}

func rollbackWithLog(tx *sql.Tx, err error) error {
	if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
		util.LogError("rollback failed", rbErr)
	}
	return err
}
