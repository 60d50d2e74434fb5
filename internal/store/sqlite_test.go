package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealsync/internal/model"
	"github.com/sells-group/dealsync/internal/resilience"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath, Tables{})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// listDeals reads the deals table back ordered by id.
func listDeals(t *testing.T, s *SQLiteStore) []model.Deal {
	t.Helper()
	rows, err := s.db.QueryContext(context.Background(), fmt.Sprintf(
		`SELECT id, person_id, stage_value, status, assigned_to, name, updated_at FROM %s ORDER BY id`,
		s.tables.Deals,
	))
	require.NoError(t, err)
	defer rows.Close() //nolint:errcheck

	var deals []model.Deal
	for rows.Next() {
		var (
			d       model.Deal
			stage   sql.NullInt64
			outcome string
		)
		require.NoError(t, rows.Scan(&d.ID, &d.PersonID, &stage, &outcome, &d.AssignedTo, &d.Name, &d.UpdatedAt))
		d.Stage, err = stageFromValue(stage)
		require.NoError(t, err)
		d.Outcome = model.Outcome(outcome)
		deals = append(deals, d)
	}
	require.NoError(t, rows.Err())
	return deals
}

func stagePtr(s model.StageStatus) *model.StageStatus { return &s }

func sampleContact(id string) model.Contact {
	return model.Contact{
		Person: model.Person{
			ID:        id,
			BenefitID: "PURL 777",
			Phone:     "5551234567",
			Email:     "a@b.com",
			Address:   "1 Main St Springfield IL 62701",
			UpdatedAt: "2024-05-01 10:00:00",
		},
		Stage:      stagePtr(model.StagePendingPayment),
		Outcome:    model.OutcomeWon,
		AssignedTo: "Ann Agent",
		Name:       "Bob Buyer",
	}
}

func TestSQLite_UpsertContact_InsertThenUpdate(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	res, err := st.UpsertContact(ctx, sampleContact("1"))
	require.NoError(t, err)
	assert.Equal(t, Inserted, res)

	updated := sampleContact("1")
	updated.Email = "new@b.com"
	updated.Stage = nil
	updated.Outcome = model.OutcomeOpen
	res, err = st.UpsertContact(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, Updated, res)

	contacts, err := st.ListContacts(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "new@b.com", contacts[0].Email)
	assert.Nil(t, contacts[0].Stage)
	assert.Equal(t, model.OutcomeOpen, contacts[0].Outcome)
}

func TestSQLite_ListContacts_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, id := range []string{"2", "1"} {
		_, err := st.UpsertContact(ctx, sampleContact(id))
		require.NoError(t, err)
	}

	contacts, err := st.ListContacts(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "1", contacts[0].ID)
	assert.Equal(t, sampleContact("1"), contacts[0])
}

func TestSQLite_UpsertDeal_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	deal := model.Deal{
		ID:         "42",
		PersonID:   "1",
		Stage:      stagePtr(model.StagePaid),
		Outcome:    model.OutcomeLost,
		AssignedTo: "Ann",
		Name:       "Bob",
		UpdatedAt:  "2024-05-01 10:00:00",
	}

	for i := 0; i < 3; i++ {
		_, err := st.UpsertDeal(ctx, deal)
		require.NoError(t, err)
	}

	deals := listDeals(t, st)
	require.Len(t, deals, 1)
	assert.Equal(t, deal, deals[0])

	counts, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Persons: 0, Deals: 1, Failures: 0}, counts)
}

func TestSQLite_ConcurrentUpserts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.UpsertContact(ctx, sampleContact("same"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	counts, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Persons)
}

func TestSQLite_RecordFailure(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	e := resilience.NewFailure("run-1", resilience.FailurePerson, "deal 9", assert.AnError)
	require.NoError(t, st.RecordFailure(ctx, e))

	counts, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Failures)

	// Same id twice is a primary key violation.
	err = st.RecordFailure(ctx, e)
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))
}

func TestSQLite_CustomTables(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "custom.db")
	st, err := NewSQLite(dbPath, Tables{Persons: "crm_persons", Deals: "crm_deals"})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	_, err = st.UpsertContact(ctx, sampleContact("1"))
	require.NoError(t, err)
	counts, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Persons)
}

func TestSQLite_UnknownStageInStorageIsError(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.db.ExecContext(ctx, `INSERT INTO persons (id, stage_value) VALUES ('bad', 12)`)
	require.NoError(t, err)

	_, err = st.ListContacts(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stage status")
}
