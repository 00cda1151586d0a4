package entities

import "time"

// Stage is a funnel column.
type Stage string

const (
	StageLead        Stage = "lead"
	StageQualified   Stage = "qualified"
	StageProposal    Stage = "proposal"
	StageNegotiation Stage = "negotiation"
	StageWon         Stage = "won"
	StageLost        Stage = "lost"
)

// Stages lists funnel columns in board order.
var Stages = []Stage{StageLead, StageQualified, StageProposal, StageNegotiation, StageWon, StageLost}

func (s Stage) Valid() bool {
	for _, st := range Stages {
		if st == s {
			return true
		}
	}
	return false
}

type Customer struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Company    string    `json:"company"`
	Stage      Stage     `json:"stage"`
	Position   int       `json:"position"`
	ValueCents int64     `json:"value_cents"`
	Tags       []string  `json:"tags"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CustomerFilter struct {
	Stage  Stage
	Search string
	Limit  int
	Offset int
}

// CustomerPatch holds the fields to change; nil means unchanged.
type CustomerPatch struct {
	Name       *string   `json:"name"`
	Email      *string   `json:"email"`
	Phone      *string   `json:"phone"`
	Company    *string   `json:"company"`
	Stage      *Stage    `json:"stage"`
	ValueCents *int64    `json:"value_cents"`
	Tags       *[]string `json:"tags"`
	Notes      *string   `json:"notes"`
}

func (p CustomerPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Company == nil &&
		p.Stage == nil && p.ValueCents == nil && p.Tags == nil && p.Notes == nil
}

// BoardColumn is one funnel stage with its cards.
type BoardColumn struct {
	Stage      Stage      `json:"stage"`
	Count      int        `json:"count"`
	ValueCents int64      `json:"value_cents"`
	Customers  []Customer `json:"customers"`
}
