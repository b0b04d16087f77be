// Package dataset defines the normalized vote dataset shared by the
// canonicalizer and the aggregation engine, along with its JSON artifact.
package dataset

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Outcome is a member's coded position in a decided case.
type Outcome int

const (
	// OutcomeDissent means the member dissented.
	OutcomeDissent Outcome = 1

	// OutcomeMajority means the member sided with the majority.
	OutcomeMajority Outcome = 2
)

// ParseOutcome parses a raw outcome code. Only the two participation codes
// are accepted; recusals, absences, and any other coding report false.
func ParseOutcome(raw string) (Outcome, bool) {
	switch strings.TrimSpace(raw) {
	case "1":
		return OutcomeDissent, true
	case "2":
		return OutcomeMajority, true
	default:
		return 0, false
	}
}

// Valid reports whether the outcome is one of the participation codes.
func (o Outcome) Valid() bool {
	return o == OutcomeDissent || o == OutcomeMajority
}

// String returns a readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeDissent:
		return "dissent"
	case OutcomeMajority:
		return "majority"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// VoteRecord is one accepted roll-call row, consumed immediately by the
// canonicalizer.
type VoteRecord struct {
	CaseID   string
	Period   int
	MemberID string
	Outcome  Outcome
}

// Case is one decided matter and the participating members' outcomes.
type Case struct {
	ID     string             `json:"id"`
	Period int                `json:"period"`
	Votes  map[string]Outcome `json:"votes"`
}

// Member holds derived metadata for one voting member.
type Member struct {
	ID          string      `json:"-"`
	Name        string      `json:"name"`
	FirstPeriod int         `json:"first_period"`
	LastPeriod  int         `json:"last_period"`
	Affiliation Affiliation `json:"affiliation"`
}

// Meta is dataset-level metadata.
type Meta struct {
	MinPeriod   int       `json:"min_period"`
	MaxPeriod   int       `json:"max_period"`
	CaseCount   int       `json:"case_count"`
	MemberCount int       `json:"member_count"`
	GeneratedAt time.Time `json:"generated_at"`
	Source      string    `json:"source"`
}

// Dataset is the normalized artifact. It is built once per load and is
// read-only afterwards, so it can be shared by concurrent readers.
type Dataset struct {
	Cases   []Case            `json:"cases"`
	Members map[string]Member `json:"members"`
	Meta    Meta              `json:"meta"`
}

// Member returns the member with the given identifier.
func (ds *Dataset) Member(id string) (Member, bool) {
	member, ok := ds.Members[id]
	return member, ok
}

// MemberName returns the display name for id, falling back to the identifier.
func (ds *Dataset) MemberName(id string) string {
	if member, ok := ds.Members[id]; ok && member.Name != "" {
		return member.Name
	}
	return id
}

// UnresolvedAffiliations returns the identifiers of members whose affiliation
// is unknown, in identifier order.
func (ds *Dataset) UnresolvedAffiliations() []string {
	var ids []string
	for id, member := range ds.Members {
		if member.Affiliation == AffiliationUnknown {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
