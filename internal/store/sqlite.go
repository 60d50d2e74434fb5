package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/dealsync/internal/model"
	"github.com/sells-group/dealsync/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db     *sql.DB
	tables Tables
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, tables Tables) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	// Extraction upserts from many goroutines; one writer avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db, tables: tables.withDefaults()}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id           TEXT PRIMARY KEY,
	benefit_id   TEXT NOT NULL DEFAULT '',
	phone_number TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	address      TEXT NOT NULL DEFAULT '',
	updated_at   TEXT NOT NULL DEFAULT '',
	stage_value  INTEGER,
	won_lost     TEXT NOT NULL DEFAULT '',
	assigned_to  TEXT NOT NULL DEFAULT '',
	name         TEXT NOT NULL DEFAULT '',
	synced_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS %[2]s (
	id          TEXT PRIMARY KEY,
	person_id   TEXT NOT NULL,
	stage_value INTEGER,
	status      TEXT NOT NULL DEFAULT '',
	assigned_to TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL DEFAULT '',
	updated_at  TEXT NOT NULL DEFAULT '',
	synced_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS %[3]s (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL DEFAULT '',
	kind       TEXT NOT NULL,
	ref        TEXT NOT NULL,
	error      TEXT NOT NULL,
	error_type TEXT NOT NULL DEFAULT 'permanent',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_%[2]s_person_id ON %[2]s(person_id);
CREATE INDEX IF NOT EXISTS idx_%[3]s_run_id ON %[3]s(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(sqliteMigration, s.tables.Persons, s.tables.Deals, s.tables.Failures))
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertContact(ctx context.Context, c model.Contact) (UpsertResult, error) {
	res, err := s.upsert(ctx, s.tables.Persons, contactColumns, []any{
		c.ID, c.BenefitID, c.Phone, c.Email, c.Address, c.UpdatedAt,
		stageValue(c.Stage), string(c.Outcome), c.AssignedTo, c.Name, time.Now().UTC(),
	})
	return res, eris.Wrapf(err, "sqlite: upsert %s %s", s.tables.Persons, c.ID)
}

func (s *SQLiteStore) UpsertDeal(ctx context.Context, d model.Deal) (UpsertResult, error) {
	res, err := s.upsert(ctx, s.tables.Deals, dealColumns, []any{
		d.ID, d.PersonID, stageValue(d.Stage), string(d.Outcome), d.AssignedTo, d.Name, d.UpdatedAt, time.Now().UTC(),
	})
	return res, eris.Wrapf(err, "sqlite: upsert %s %s", s.tables.Deals, d.ID)
}

// upsert writes one row keyed by its first column (id). SQLite has no
// insert/update marker on ON CONFLICT, so existence is checked in the same
// transaction.
func (s *SQLiteStore) upsert(ctx context.Context, table string, columns []string, args []any) (UpsertResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Updated, eris.Wrap(err, "begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var exists bool
	if err := tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = ?)`, table), args[0],
	).Scan(&exists); err != nil {
		return Updated, eris.Wrap(err, "check existing")
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	sets := make([]string, 0, len(columns)-1)
	for _, col := range columns[1:] {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s`,
		table, strings.Join(columns, ", "), placeholders, strings.Join(sets, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return Updated, eris.Wrap(err, "exec upsert")
	}

	if err := tx.Commit(); err != nil {
		return Updated, eris.Wrap(err, "commit")
	}
	if exists {
		return Updated, nil
	}
	return Inserted, nil
}

func (s *SQLiteStore) ListContacts(ctx context.Context) ([]model.Contact, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, benefit_id, phone_number, email, address, updated_at, stage_value, won_lost, assigned_to, name FROM %s ORDER BY id`,
		s.tables.Persons,
	))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		contacts = append(contacts, *c)
	}
	return contacts, eris.Wrap(rows.Err(), "sqlite: iterate contacts")
}

func (s *SQLiteStore) RecordFailure(ctx context.Context, e resilience.FailureEntry) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, run_id, kind, ref, error, error_type, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.tables.Failures,
	), e.ID, e.RunID, string(e.Kind), e.Ref, e.Error, e.ErrorType, e.CreatedAt)
	return eris.Wrap(err, "sqlite: record failure")
}

func (s *SQLiteStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT (SELECT count(*) FROM %s), (SELECT count(*) FROM %s), (SELECT count(*) FROM %s)`,
		s.tables.Persons, s.tables.Deals, s.tables.Failures,
	)).Scan(&c.Persons, &c.Deals, &c.Failures)
	return c, eris.Wrap(err, "sqlite: counts")
}
