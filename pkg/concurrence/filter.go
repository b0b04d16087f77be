// Package concurrence computes pairwise agreement between members of a
// decision body over a filtered window of cases.
package concurrence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coolbeans/concurrence/pkg/dataset"
)

// DefaultMinSample is the minimum number of shared cases a pair needs to
// count toward the scale range when no threshold is given.
const DefaultMinSample = 1

// MemberSubset selects which members may appear in a view. The zero value
// selects every member.
type MemberSubset struct {
	ids map[string]struct{}
}

// AllMembers selects every member.
func AllMembers() MemberSubset {
	return MemberSubset{}
}

// OnlyMembers selects the given members. An empty list selects nobody.
func OnlyMembers(ids ...string) MemberSubset {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return MemberSubset{ids: set}
}

// ParseMemberSubset parses a comma-separated list of member identifiers.
// An empty string or "all" selects every member.
func ParseMemberSubset(raw string) MemberSubset {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return AllMembers()
	}
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return OnlyMembers(ids...)
}

// All reports whether the subset selects every member.
func (s MemberSubset) All() bool {
	return s.ids == nil
}

// Contains reports whether id is selected.
func (s MemberSubset) Contains(id string) bool {
	if s.ids == nil {
		return true
	}
	_, ok := s.ids[id]
	return ok
}

// IDs returns the selected identifiers in sorted order, or nil for all.
func (s MemberSubset) IDs() []string {
	if s.ids == nil {
		return nil
	}
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// String renders the subset the way ParseMemberSubset reads it.
func (s MemberSubset) String() string {
	if s.All() {
		return "all"
	}
	return strings.Join(s.IDs(), ",")
}

// Filter parameterizes ComputeView. Callers own their filter and pass a
// fresh value on every change.
type Filter struct {
	// PeriodStart and PeriodEnd bound case periods, inclusive.
	PeriodStart int
	PeriodEnd   int

	// Members restricts the active member set.
	Members MemberSubset

	// MinSample is the number of shared cases a pair needs to contribute to
	// the scale range.
	MinSample int
}

// DefaultFilter covers the dataset's full period range and every member.
func DefaultFilter(ds *dataset.Dataset) Filter {
	f := Filter{Members: AllMembers(), MinSample: DefaultMinSample}
	if ds != nil {
		f.PeriodStart = ds.Meta.MinPeriod
		f.PeriodEnd = ds.Meta.MaxPeriod
	}
	return f
}

// Validate checks the caller-side preconditions. ComputeView does not call
// it; an inverted range there simply selects no cases.
func (f Filter) Validate() error {
	if f.PeriodStart > f.PeriodEnd {
		return fmt.Errorf("period start %d is after period end %d", f.PeriodStart, f.PeriodEnd)
	}
	if f.MinSample < 0 {
		return fmt.Errorf("minimum sample must be non-negative, got %d", f.MinSample)
	}
	return nil
}

// includes reports whether a case period falls inside the filter window.
func (f Filter) includes(period int) bool {
	return f.PeriodStart <= period && period <= f.PeriodEnd
}
