package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// StageStatus is the pipeline stage of a deal. Only the eight values below
// are valid; use StageFromNumber to construct one from CRM data.
type StageStatus int

const (
	StageTryingToContact StageStatus = iota
	StageTookApp
	StageRecDocsLenderCall
	StageFinancialSched
	StageComplianceSched
	StagePendingPayment
	StagePaid
	StageSubmittedToProcessing
)

var stageLabels = [...]string{
	StageTryingToContact:       "Trying to Contact",
	StageTookApp:               "Took App",
	StageRecDocsLenderCall:     "Rec Docs - Lender Call",
	StageFinancialSched:        "Financial Sched",
	StageComplianceSched:       "Compliance Shed",
	StagePendingPayment:        "Pending Payment",
	StagePaid:                  "PAID",
	StageSubmittedToProcessing: "Sub'd to Processing",
}

// ErrUnknownStage is returned for stage numbers outside the defined range.
var ErrUnknownStage = eris.New("unknown stage status")

// StageFromNumber maps a raw stage number to its StageStatus.
func StageFromNumber(n int) (StageStatus, error) {
	if n < 0 || n >= len(stageLabels) {
		return 0, eris.Wrapf(ErrUnknownStage, "stage %d", n)
	}
	return StageStatus(n), nil
}

// Label returns the display label shown in reports.
func (s StageStatus) Label() string {
	if s < 0 || int(s) >= len(stageLabels) {
		return ""
	}
	return stageLabels[s]
}

func (s StageStatus) String() string {
	return s.Label()
}

type stageJSON struct {
	Value       int    `json:"value"`
	Description string `json:"description"`
}

// MarshalJSON encodes the stage as {"value": n, "description": label}.
func (s StageStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(stageJSON{Value: int(s), Description: s.Label()})
}

// UnmarshalJSON accepts either the object form or a bare number.
func (s *StageStatus) UnmarshalJSON(data []byte) error {
	var obj stageJSON
	if err := json.Unmarshal(data, &obj); err != nil {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return eris.Wrap(err, "model: decode stage status")
		}
		obj.Value = n
	}
	st, err := StageFromNumber(obj.Value)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Outcome is the won/lost status of a deal. The zero value means open.
type Outcome string

const (
	OutcomeOpen Outcome = ""
	OutcomeWon  Outcome = "WON"
	OutcomeLost Outcome = "LOST"
)

// OutcomeFromSource maps the CRM status string ("won", "lost", "open", ...)
// to an Outcome. Anything other than won or lost is open.
func OutcomeFromSource(status string) Outcome {
	switch status {
	case "won":
		return OutcomeWon
	case "lost":
		return OutcomeLost
	default:
		return OutcomeOpen
	}
}
