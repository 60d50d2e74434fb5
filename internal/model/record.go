// Package model defines the CRM records persisted by the extractor and read
// by the report reconcilers.
package model

import "time"

// TimestampLayout is the CRM's update_time format.
const TimestampLayout = "2006-01-02 15:04:05"

// Person is a CRM contact, keyed by its CRM person id.
type Person struct {
	ID        string `json:"id"`
	BenefitID string `json:"benefit_id,omitempty"`
	Phone     string `json:"phone_number,omitempty"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Deal is a CRM sales-pipeline opportunity, keyed by its CRM deal id.
type Deal struct {
	ID         string       `json:"id"`
	PersonID   string       `json:"person_id"`
	Stage      *StageStatus `json:"stage_status,omitempty"`
	Outcome    Outcome      `json:"status"`
	AssignedTo string       `json:"assigned_to,omitempty"`
	Name       string       `json:"name,omitempty"`
	UpdatedAt  string       `json:"updated_at,omitempty"`
}

// Contact is the document stored in the persons collection: a person merged
// with the pipeline fields of the last deal written for it. Reports join
// spreadsheet rows against contacts.
type Contact struct {
	Person
	Stage      *StageStatus `json:"stage_status,omitempty"`
	Outcome    Outcome      `json:"won_lost"`
	AssignedTo string       `json:"assigned_to,omitempty"`
	Name       string       `json:"name,omitempty"`
}

// NewContact merges a person with one of its deals. The contact's updated_at
// comes from the deal listing record, so callers pass it explicitly.
func NewContact(p Person, d Deal, updatedAt string) Contact {
	p.UpdatedAt = updatedAt
	return Contact{
		Person:     p,
		Stage:      d.Stage,
		Outcome:    d.Outcome,
		AssignedTo: d.AssignedTo,
		Name:       d.Name,
	}
}

// UpdatedTime parses UpdatedAt. Unparsable or empty values return the zero
// time so they sort before any real timestamp.
func (c Contact) UpdatedTime() time.Time {
	t, err := time.Parse(TimestampLayout, c.UpdatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
