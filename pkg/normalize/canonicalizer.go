// Package normalize folds raw roll-call records into a canonical Dataset.
package normalize

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/coolbeans/concurrence/pkg/dataset"
	"github.com/coolbeans/concurrence/pkg/records"
)

// Columns names the source fields that carry each vote attribute.
type Columns struct {
	CaseID   string
	Period   string
	MemberID string
	Outcome  string
}

// DefaultColumns returns the Supreme Court Database justice-centered field names.
func DefaultColumns() Columns {
	return Columns{
		CaseID:   "caseId",
		Period:   "term",
		MemberID: "justiceName",
		Outcome:  "majority",
	}
}

// withDefaults fills empty column names from DefaultColumns.
func (c Columns) withDefaults() Columns {
	defaults := DefaultColumns()
	if c.CaseID == "" {
		c.CaseID = defaults.CaseID
	}
	if c.Period == "" {
		c.Period = defaults.Period
	}
	if c.MemberID == "" {
		c.MemberID = defaults.MemberID
	}
	if c.Outcome == "" {
		c.Outcome = defaults.Outcome
	}
	return c
}

// Options configures a Canonicalizer.
type Options struct {
	// Columns maps source fields; empty names fall back to DefaultColumns.
	Columns Columns

	// Source labels the produced dataset.
	Source string

	// Affiliations extends or overrides the static affiliation table.
	Affiliations map[string]dataset.Affiliation

	// Now stamps the dataset; defaults to time.Now.
	Now func() time.Time
}

// RejectReason explains why a record was not folded in.
type RejectReason string

const (
	RejectEmptyCaseID      RejectReason = "empty case id"
	RejectBadPeriod        RejectReason = "bad period"
	RejectEmptyMemberID    RejectReason = "empty member id"
	RejectNonParticipation RejectReason = "non-participation"
)

// Stats counts what happened to the records seen by a Canonicalizer.
type Stats struct {
	// Accepted is the number of records folded into the dataset.
	Accepted int

	// Rejected counts well-formed rows that were skipped, by reason.
	Rejected map[RejectReason]int

	// Dropped is the number of malformed rows skipped by the record reader.
	Dropped int

	// Sources lists the source names in merge order.
	Sources []string
}

// TotalRejected sums the rejection counts.
func (s Stats) TotalRejected() int {
	total := 0
	for _, count := range s.Rejected {
		total += count
	}
	return total
}

type caseEntry struct {
	id     string
	period int
	votes  map[string]dataset.Outcome
	order  int
}

// Canonicalizer folds vote records in input order. Later records for the
// same case and member overwrite earlier ones; a case keeps the period of
// the first record that created it.
//
// A Canonicalizer is not safe for concurrent use. The Dataset returned by
// Build is independent of it.
type Canonicalizer struct {
	columns      Columns
	source       string
	affiliations map[string]dataset.Affiliation
	now          func() time.Time

	cases   map[string]*caseEntry
	order   int
	members map[string]dataset.Member
	stats   Stats
}

// New creates a Canonicalizer.
func New(opts Options) *Canonicalizer {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Canonicalizer{
		columns:      opts.Columns.withDefaults(),
		source:       opts.Source,
		affiliations: opts.Affiliations,
		now:          now,
		cases:        make(map[string]*caseEntry),
		members:      make(map[string]dataset.Member),
		stats:        Stats{Rejected: make(map[RejectReason]int)},
	}
}

// Parse extracts a VoteRecord from a raw record, reporting why it was
// rejected when it cannot be used.
func (c *Canonicalizer) Parse(rec records.Record) (dataset.VoteRecord, RejectReason, bool) {
	caseID := strings.TrimSpace(rec[c.columns.CaseID])
	if caseID == "" {
		return dataset.VoteRecord{}, RejectEmptyCaseID, false
	}

	period, err := strconv.Atoi(strings.TrimSpace(rec[c.columns.Period]))
	if err != nil {
		return dataset.VoteRecord{}, RejectBadPeriod, false
	}

	memberID := strings.TrimSpace(rec[c.columns.MemberID])
	if memberID == "" {
		return dataset.VoteRecord{}, RejectEmptyMemberID, false
	}

	outcome, ok := dataset.ParseOutcome(rec[c.columns.Outcome])
	if !ok {
		return dataset.VoteRecord{}, RejectNonParticipation, false
	}

	return dataset.VoteRecord{
		CaseID:   caseID,
		Period:   period,
		MemberID: memberID,
		Outcome:  outcome,
	}, "", true
}

// Add folds one raw record. It returns false when the record was rejected.
func (c *Canonicalizer) Add(rec records.Record) bool {
	vote, reason, ok := c.Parse(rec)
	if !ok {
		c.stats.Rejected[reason]++
		return false
	}
	return c.AddRecord(vote)
}

// AddRecord folds one already-extracted vote. Records that violate the
// participation rules are rejected the same way Add rejects them.
func (c *Canonicalizer) AddRecord(vote dataset.VoteRecord) bool {
	switch {
	case vote.CaseID == "":
		c.stats.Rejected[RejectEmptyCaseID]++
		return false
	case vote.MemberID == "":
		c.stats.Rejected[RejectEmptyMemberID]++
		return false
	case !vote.Outcome.Valid():
		c.stats.Rejected[RejectNonParticipation]++
		return false
	}

	entry, ok := c.cases[vote.CaseID]
	if !ok {
		entry = &caseEntry{
			id:     vote.CaseID,
			period: vote.Period,
			votes:  make(map[string]dataset.Outcome),
			order:  c.order,
		}
		c.order++
		c.cases[vote.CaseID] = entry
	}
	entry.votes[vote.MemberID] = vote.Outcome

	member, ok := c.members[vote.MemberID]
	if !ok {
		member = dataset.Member{
			ID:          vote.MemberID,
			Name:        dataset.DisplayName(vote.MemberID),
			FirstPeriod: vote.Period,
			LastPeriod:  vote.Period,
			Affiliation: c.lookupAffiliation(vote.MemberID),
		}
	} else {
		member.FirstPeriod = min(member.FirstPeriod, vote.Period)
		member.LastPeriod = max(member.LastPeriod, vote.Period)
	}
	c.members[vote.MemberID] = member

	c.stats.Accepted++
	return true
}

func (c *Canonicalizer) lookupAffiliation(id string) dataset.Affiliation {
	if affiliation, ok := c.affiliations[id]; ok {
		return affiliation
	}
	return dataset.LookupAffiliation(id)
}

// Stats returns a copy of the current record counts.
func (c *Canonicalizer) Stats() Stats {
	out := c.stats
	out.Rejected = make(map[RejectReason]int, len(c.stats.Rejected))
	for reason, count := range c.stats.Rejected {
		out.Rejected[reason] = count
	}
	out.Sources = append([]string(nil), c.stats.Sources...)
	return out
}

// Build publishes the folded records as a Dataset. Cases are ordered by
// period, ties keeping the order in which case identifiers first appeared.
func (c *Canonicalizer) Build() *dataset.Dataset {
	entries := make([]*caseEntry, 0, len(c.cases))
	for _, entry := range c.cases {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].period != entries[j].period {
			return entries[i].period < entries[j].period
		}
		return entries[i].order < entries[j].order
	})

	cases := make([]dataset.Case, len(entries))
	for i, entry := range entries {
		votes := make(map[string]dataset.Outcome, len(entry.votes))
		for memberID, outcome := range entry.votes {
			votes[memberID] = outcome
		}
		cases[i] = dataset.Case{ID: entry.id, Period: entry.period, Votes: votes}
	}

	members := make(map[string]dataset.Member, len(c.members))
	for id, member := range c.members {
		members[id] = member
	}

	minPeriod, maxPeriod := dataset.PeriodBounds(cases)

	return &dataset.Dataset{
		Cases:   cases,
		Members: members,
		Meta: dataset.Meta{
			MinPeriod:   minPeriod,
			MaxPeriod:   maxPeriod,
			CaseCount:   len(cases),
			MemberCount: len(members),
			GeneratedAt: c.now().UTC(),
			Source:      c.source,
		},
	}
}
