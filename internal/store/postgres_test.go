package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealsync/internal/model"
	"github.com/sells-group/dealsync/internal/resilience"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s, err := newPostgresStore(mock, Tables{})
	require.NoError(t, err)
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "persons"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertContact_Inserted(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	c := sampleContact("1")

	mock.ExpectQuery(`INSERT INTO "persons" .* ON CONFLICT \("id"\) DO UPDATE SET .* RETURNING \(xmax = 0\)`).
		WithArgs(c.ID, c.BenefitID, c.Phone, c.Email, c.Address, c.UpdatedAt,
			pgxmock.AnyArg(), "WON", c.AssignedTo, c.Name, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(true))

	res, err := s.UpsertContact(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, Inserted, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertDeal_Updated(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	d := model.Deal{ID: "42", PersonID: "1", Outcome: model.OutcomeLost, UpdatedAt: "2024-05-01 10:00:00"}

	mock.ExpectQuery(`INSERT INTO "deals"`).
		WithArgs("42", "1", pgxmock.AnyArg(), "LOST", "", "", d.UpdatedAt, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(false))

	res, err := s.UpsertDeal(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, Updated, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertContact_DuplicateKey(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO "persons"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := s.UpsertContact(context.Background(), sampleContact("1"))
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))
	assert.Contains(t, err.Error(), "postgres: upsert persons 1")
}

func TestPostgresStore_ListContacts(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	cols := []string{"id", "benefit_id", "phone_number", "email", "address", "updated_at", "stage_value", "won_lost", "assigned_to", "name"}
	mock.ExpectQuery(`SELECT id, benefit_id, phone_number, email, address, updated_at, stage_value, won_lost, assigned_to, name FROM "persons" ORDER BY id`).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("1", "PURL 777", "5551234567", "a@b.com", "", "2024-05-01 10:00:00", sql.NullInt64{Int64: 6, Valid: true}, "WON", "Ann", "Bob").
			AddRow("2", "", "", "", "", "", sql.NullInt64{}, "", "", ""))

	contacts, err := s.ListContacts(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	require.NotNil(t, contacts[0].Stage)
	assert.Equal(t, model.StagePaid, *contacts[0].Stage)
	assert.Equal(t, model.OutcomeWon, contacts[0].Outcome)
	assert.Nil(t, contacts[1].Stage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordFailure(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	e := resilience.NewFailure("run-1", resilience.FailureDeal, "deal 5", assert.AnError)

	mock.ExpectExec(`INSERT INTO "failures"`).
		WithArgs(e.ID, "run-1", "deal", "deal 5", e.Error, "permanent", e.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.RecordFailure(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Counts(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT \(SELECT count\(\*\) FROM "persons"\)`).
		WillReturnRows(pgxmock.NewRows([]string{"persons", "deals", "failures"}).AddRow(3, 4, 0))

	c, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Counts{Persons: 3, Deals: 4}, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, IsDuplicateKey(nil))
	assert.True(t, IsDuplicateKey(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsDuplicateKey(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsDuplicateKey(assertErr("constraint failed: UNIQUE constraint failed: failures.id (1555)")))
	assert.False(t, IsDuplicateKey(assert.AnError))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestUpsertResult_String(t *testing.T) {
	assert.Equal(t, "inserted", Inserted.String())
	assert.Equal(t, "updated", Updated.String())
}
