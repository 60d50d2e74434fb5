package resilience

import (
	"time"

	"github.com/google/uuid"
)

// FailureKind names the unit of work that failed.
type FailureKind string

const (
	FailurePage   FailureKind = "page"
	FailurePerson FailureKind = "person"
	FailureDeal   FailureKind = "deal"
	FailureStore  FailureKind = "store"
)

// FailureEntry records a unit of extraction work that was skipped or whose
// result could not be persisted.
type FailureEntry struct {
	ID        string      `json:"id"`
	RunID     string      `json:"run_id,omitempty"`
	Kind      FailureKind `json:"kind"`
	Ref       string      `json:"ref"`
	Error     string      `json:"error"`
	ErrorType string      `json:"error_type"` // "transient" or "permanent"
	CreatedAt time.Time   `json:"created_at"`
}

// NewFailure builds a FailureEntry for err.
func NewFailure(runID string, kind FailureKind, ref string, err error) FailureEntry {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return FailureEntry{
		ID:        uuid.New().String(),
		RunID:     runID,
		Kind:      kind,
		Ref:       ref,
		Error:     msg,
		ErrorType: ClassifyError(err),
		CreatedAt: time.Now().UTC(),
	}
}

// ClassifyError categorizes an error as "transient" or "permanent".
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
