package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewContact(t *testing.T) {
	t.Parallel()

	stage := StageTookApp
	p := Person{ID: "7", Phone: "5551234567", UpdatedAt: "2024-01-01 00:00:00"}
	d := Deal{ID: "42", PersonID: "7", Stage: &stage, Outcome: OutcomeWon, AssignedTo: "Ann", Name: "Bob"}

	c := NewContact(p, d, "2024-03-04 05:06:07")
	assert.Equal(t, "7", c.ID)
	assert.Equal(t, "2024-03-04 05:06:07", c.UpdatedAt)
	assert.Equal(t, StageTookApp, *c.Stage)
	assert.Equal(t, OutcomeWon, c.Outcome)
	assert.Equal(t, "Ann", c.AssignedTo)
	assert.Equal(t, "Bob", c.Name)
}

func TestContact_UpdatedTime(t *testing.T) {
	t.Parallel()

	c := Contact{Person: Person{UpdatedAt: "2024-03-04 05:06:07"}}
	assert.Equal(t, time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC), c.UpdatedTime())

	c.UpdatedAt = "garbage"
	assert.True(t, c.UpdatedTime().IsZero())
}
