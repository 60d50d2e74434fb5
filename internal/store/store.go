// Package store persists CRM persons and deals as keyed, idempotently
// upserted records and serves full snapshots to the report reconcilers.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sells-group/dealsync/internal/model"
	"github.com/sells-group/dealsync/internal/resilience"
)

// UpsertResult tells whether an upsert created or replaced a record.
type UpsertResult int

const (
	Updated UpsertResult = iota
	Inserted
)

func (r UpsertResult) String() string {
	if r == Inserted {
		return "inserted"
	}
	return "updated"
}

// Tables names the collections backing a store.
type Tables struct {
	Persons  string `yaml:"persons" mapstructure:"persons"`
	Deals    string `yaml:"deals" mapstructure:"deals"`
	Failures string `yaml:"failures" mapstructure:"failures"`
}

// DefaultTables returns the standard collection names.
func DefaultTables() Tables {
	return Tables{Persons: "persons", Deals: "deals", Failures: "failures"}
}

func (t Tables) withDefaults() Tables {
	d := DefaultTables()
	if t.Persons == "" {
		t.Persons = d.Persons
	}
	if t.Deals == "" {
		t.Deals = d.Deals
	}
	if t.Failures == "" {
		t.Failures = d.Failures
	}
	return t
}

// Counts is the number of records in each collection.
type Counts struct {
	Persons  int `json:"persons" yaml:"persons"`
	Deals    int `json:"deals" yaml:"deals"`
	Failures int `json:"failures" yaml:"failures"`
}

// Store defines the record store used by extraction and reconciliation.
// Upserts are keyed by CRM id: writing the same id twice overwrites.
type Store interface {
	UpsertContact(ctx context.Context, c model.Contact) (UpsertResult, error)
	UpsertDeal(ctx context.Context, d model.Deal) (UpsertResult, error)
	ListContacts(ctx context.Context) ([]model.Contact, error)
	RecordFailure(ctx context.Context, e resilience.FailureEntry) error
	Counts(ctx context.Context) (Counts, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// IsDuplicateKey reports whether err is a unique-constraint violation that
// slipped past the upsert, typically two writers racing on the same id.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func stageValue(s *model.StageStatus) *int {
	if s == nil {
		return nil
	}
	v := int(*s)
	return &v
}

func stageFromValue(v sql.NullInt64) (*model.StageStatus, error) {
	if !v.Valid {
		return nil, nil
	}
	st, err := model.StageFromNumber(int(v.Int64))
	if err != nil {
		return nil, err
	}
	return &st, nil
}
