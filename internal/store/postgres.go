package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dealsync/internal/db"
	"github.com/sells-group/dealsync/internal/model"
	"github.com/sells-group/dealsync/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	tables  Tables

	upsertContactSQL string
	upsertDealSQL    string
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var (
	contactColumns = []string{"id", "benefit_id", "phone_number", "email", "address", "updated_at", "stage_value", "won_lost", "assigned_to", "name", "synced_at"}
	dealColumns    = []string{"id", "person_id", "stage_value", "status", "assigned_to", "name", "updated_at", "synced_at"}
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, tables Tables, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	s, err := newPostgresStore(pool, tables)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.closeFn = pool.Close
	return s, nil
}

func newPostgresStore(pool db.Pool, tables Tables) (*PostgresStore, error) {
	tables = tables.withDefaults()
	contactSQL, err := db.UpsertSQL(db.UpsertConfig{
		Table:        tables.Persons,
		Columns:      contactColumns,
		ConflictKeys: []string{"id"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build contact upsert")
	}
	dealSQL, err := db.UpsertSQL(db.UpsertConfig{
		Table:        tables.Deals,
		Columns:      dealColumns,
		ConflictKeys: []string{"id"},
	})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build deal upsert")
	}
	return &PostgresStore{
		pool:             pool,
		tables:           tables,
		upsertContactSQL: contactSQL,
		upsertDealSQL:    dealSQL,
	}, nil
}

const postgresMigration = `
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
	synced_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS %[2]s (
	id          TEXT PRIMARY KEY,
	person_id   TEXT NOT NULL,
	stage_value INTEGER,
	status      TEXT NOT NULL DEFAULT '',
	assigned_to TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL DEFAULT '',
	updated_at  TEXT NOT NULL DEFAULT '',
	synced_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS %[3]s (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL DEFAULT '',
	kind       TEXT NOT NULL,
	ref        TEXT NOT NULL,
	error      TEXT NOT NULL,
	error_type TEXT NOT NULL DEFAULT 'permanent',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_%[4]s_person_id ON %[2]s(person_id);
CREATE INDEX IF NOT EXISTS idx_%[5]s_run_id ON %[3]s(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(postgresMigration,
		db.SanitizeTable(s.tables.Persons),
		db.SanitizeTable(s.tables.Deals),
		db.SanitizeTable(s.tables.Failures),
		indexSuffix(s.tables.Deals),
		indexSuffix(s.tables.Failures),
	)
	_, err := s.pool.Exec(ctx, ddl)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertContact(ctx context.Context, c model.Contact) (UpsertResult, error) {
	var inserted bool
	err := s.pool.QueryRow(ctx, s.upsertContactSQL,
		c.ID, c.BenefitID, c.Phone, c.Email, c.Address, c.UpdatedAt,
		stageValue(c.Stage), string(c.Outcome), c.AssignedTo, c.Name, time.Now().UTC(),
	).Scan(&inserted)
	if err != nil {
		return Updated, eris.Wrapf(err, "postgres: upsert %s %s", s.tables.Persons, c.ID)
	}
	return resultOf(inserted), nil
}

func (s *PostgresStore) UpsertDeal(ctx context.Context, d model.Deal) (UpsertResult, error) {
	var inserted bool
	err := s.pool.QueryRow(ctx, s.upsertDealSQL,
		d.ID, d.PersonID, stageValue(d.Stage), string(d.Outcome), d.AssignedTo, d.Name, d.UpdatedAt, time.Now().UTC(),
	).Scan(&inserted)
	if err != nil {
		return Updated, eris.Wrapf(err, "postgres: upsert %s %s", s.tables.Deals, d.ID)
	}
	return resultOf(inserted), nil
}

func (s *PostgresStore) ListContacts(ctx context.Context) ([]model.Contact, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, benefit_id, phone_number, email, address, updated_at, stage_value, won_lost, assigned_to, name FROM %s ORDER BY id`,
		db.SanitizeTable(s.tables.Persons),
	))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		contacts = append(contacts, *c)
	}
	return contacts, eris.Wrap(rows.Err(), "postgres: iterate contacts")
}

func (s *PostgresStore) RecordFailure(ctx context.Context, e resilience.FailureEntry) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, run_id, kind, ref, error, error_type, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		db.SanitizeTable(s.tables.Failures),
	), e.ID, e.RunID, string(e.Kind), e.Ref, e.Error, e.ErrorType, e.CreatedAt)
	return eris.Wrap(err, "postgres: record failure")
}

func (s *PostgresStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT (SELECT count(*) FROM %s), (SELECT count(*) FROM %s), (SELECT count(*) FROM %s)`,
		db.SanitizeTable(s.tables.Persons),
		db.SanitizeTable(s.tables.Deals),
		db.SanitizeTable(s.tables.Failures),
	)).Scan(&c.Persons, &c.Deals, &c.Failures)
	return c, eris.Wrap(err, "postgres: counts")
}

// helpers

func resultOf(inserted bool) UpsertResult {
	if inserted {
		return Inserted
	}
	return Updated
}

func indexSuffix(table string) string {
	out := make([]rune, 0, len(table))
	for _, r := range table {
		if r == '.' || r == '"' {
			r = '_'
		}
		out = append(out, r)
	}
	return string(out)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanContact(row scannable) (*model.Contact, error) {
	var (
		c       model.Contact
		stage   sql.NullInt64
		outcome string
	)
	err := row.Scan(&c.ID, &c.BenefitID, &c.Phone, &c.Email, &c.Address, &c.UpdatedAt,
		&stage, &outcome, &c.AssignedTo, &c.Name)
	if err != nil {
		return nil, err
	}
	c.Stage, err = stageFromValue(stage)
	if err != nil {
		return nil, eris.Wrapf(err, "contact %s", c.ID)
	}
	c.Outcome = model.Outcome(outcome)
	return &c, nil
}
