package model

import (
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageFromNumber_AllDefined(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int
		want string
	}{
		{0, "Trying to Contact"},
		{1, "Took App"},
		{2, "Rec Docs - Lender Call"},
		{3, "Financial Sched"},
		{4, "Compliance Shed"},
		{5, "Pending Payment"},
		{6, "PAID"},
		{7, "Sub'd to Processing"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			st, err := StageFromNumber(tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.n, int(st))
			assert.Equal(t, tt.want, st.Label())
		})
	}
}

func TestStageFromNumber_RejectsOutOfRange(t *testing.T) {
	t.Parallel()

	for _, n := range []int{-1, 8, 9, 100} {
		_, err := StageFromNumber(n)
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrUnknownStage), "stage %d", n)
	}
}

func TestStageStatus_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(StagePaid)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":6,"description":"PAID"}`, string(data))

	var st StageStatus
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, StagePaid, st)

	require.NoError(t, json.Unmarshal([]byte(`3`), &st))
	assert.Equal(t, StageFinancialSched, st)

	assert.Error(t, json.Unmarshal([]byte(`{"value":12}`), &st))
}

func TestOutcomeFromSource(t *testing.T) {
	t.Parallel()

	assert.Equal(t, OutcomeWon, OutcomeFromSource("won"))
	assert.Equal(t, OutcomeLost, OutcomeFromSource("lost"))
	assert.Equal(t, OutcomeOpen, OutcomeFromSource("open"))
	assert.Equal(t, OutcomeOpen, OutcomeFromSource(""))
	assert.Equal(t, OutcomeOpen, OutcomeFromSource("WON"))
}
