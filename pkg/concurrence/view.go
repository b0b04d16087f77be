package concurrence

import (
	"encoding/json"
	"sort"

	"github.com/coolbeans/concurrence/pkg/dataset"
	"golang.org/x/text/cases"
)

// Cell holds agreement counts for an ordered pair of members.
type Cell struct {
	// Agreed is the number of shared cases with matching outcomes.
	Agreed int

	// Total is the number of cases in which both members participated.
	Total int

	// Self marks a diagonal cell. Self cells carry no counts.
	Self bool
}

// Rate returns Agreed/Total. It is undefined for self cells and for pairs
// with no shared cases, which is distinct from a zero rate.
func (c Cell) Rate() (float64, bool) {
	if c.Self || c.Total == 0 {
		return 0, false
	}
	return float64(c.Agreed) / float64(c.Total), true
}

type cellJSON struct {
	Agreed int      `json:"agreed"`
	Total  int      `json:"total"`
	Rate   *float64 `json:"rate"`
}

// MarshalJSON encodes self cells as null and undefined rates as null.
func (c Cell) MarshalJSON() ([]byte, error) {
	if c.Self {
		return []byte("null"), nil
	}
	out := cellJSON{Agreed: c.Agreed, Total: c.Total}
	if rate, ok := c.Rate(); ok {
		out.Rate = &rate
	}
	return json.Marshal(out)
}

// Range is the span of qualifying agreement rates, used to scale colors.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Profile summarizes one member's participation inside the filter window.
type Profile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Cases    int    `json:"cases"`
	Majority int    `json:"majority"`
	Dissents int    `json:"dissents"`
}

// DissentRate returns the share of participated cases in which the member
// dissented, or false when the member sat in none.
func (p Profile) DissentRate() (float64, bool) {
	if p.Cases == 0 {
		return 0, false
	}
	return float64(p.Dissents) / float64(p.Cases), true
}

// View is the result of one aggregation call.
type View struct {
	// Members is the canonical member order for both matrix axes.
	Members []string `json:"members"`

	// Names holds display names aligned with Members.
	Names []string `json:"names"`

	// Cells[i][j] is the cell for Members[i] and Members[j].
	Cells [][]Cell `json:"matrix"`

	// ScaleRange is nil when no cell qualifies, meaning there is no spread
	// to visualize.
	ScaleRange *Range `json:"scale_range"`

	// Profiles holds per-member participation aligned with Members.
	Profiles []Profile `json:"profiles"`

	// CaseCount is the number of cases inside the period window.
	CaseCount int `json:"case_count"`

	PeriodStart int `json:"period_start"`
	PeriodEnd   int `json:"period_end"`
	MinSample   int `json:"min_sample"`

	index map[string]int
}

// Index returns the position of id in Members.
func (v *View) Index(id string) (int, bool) {
	i, ok := v.index[id]
	return i, ok
}

// Cell returns the cell for two active members.
func (v *View) Cell(a, b string) (Cell, bool) {
	i, ok := v.index[a]
	if !ok {
		return Cell{}, false
	}
	j, ok := v.index[b]
	if !ok {
		return Cell{}, false
	}
	return v.Cells[i][j], true
}

// Empty reports whether the view has no active members.
func (v *View) Empty() bool {
	return len(v.Members) == 0
}

// ToJSON returns the indented JSON form of the view.
func (v *View) ToJSON() ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// ComputeView aggregates agreement counts for the cases and members
// selected by f. It does not modify ds and allocates a fresh View on every
// call, so concurrent calls over one dataset are safe. Empty selections
// produce an empty view, never an error.
func ComputeView(ds *dataset.Dataset, f Filter) *View {
	view := &View{
		Members:     []string{},
		Names:       []string{},
		Cells:       [][]Cell{},
		Profiles:    []Profile{},
		PeriodStart: f.PeriodStart,
		PeriodEnd:   f.PeriodEnd,
		MinSample:   f.MinSample,
		index:       map[string]int{},
	}
	if ds == nil {
		return view
	}

	var selected []*dataset.Case
	candidates := make(map[string]bool)
	for i := range ds.Cases {
		c := &ds.Cases[i]
		if !f.includes(c.Period) {
			continue
		}
		selected = append(selected, c)
		for memberID := range c.Votes {
			if f.Members.Contains(memberID) {
				candidates[memberID] = true
			}
		}
	}
	view.CaseCount = len(selected)

	view.Members = orderMembers(ds, candidates)
	n := len(view.Members)
	view.Names = make([]string, n)
	view.Profiles = make([]Profile, n)
	for i, id := range view.Members {
		view.index[id] = i
		view.Names[i] = ds.MemberName(id)
		view.Profiles[i] = Profile{ID: id, Name: view.Names[i]}
	}

	view.Cells = make([][]Cell, n)
	for i := range view.Cells {
		view.Cells[i] = make([]Cell, n)
		view.Cells[i][i].Self = true
	}

	participants := make([]int, 0, 16)
	outcomes := make([]dataset.Outcome, 0, 16)
	for _, c := range selected {
		participants = participants[:0]
		outcomes = outcomes[:0]
		for memberID, outcome := range c.Votes {
			i, ok := view.index[memberID]
			if !ok {
				continue
			}
			participants = append(participants, i)
			outcomes = append(outcomes, outcome)

			profile := &view.Profiles[i]
			profile.Cases++
			if outcome == dataset.OutcomeDissent {
				profile.Dissents++
			} else {
				profile.Majority++
			}
		}

		for a := 0; a < len(participants); a++ {
			for b := a + 1; b < len(participants); b++ {
				i, j := participants[a], participants[b]
				view.Cells[i][j].Total++
				view.Cells[j][i].Total++
				if outcomes[a] == outcomes[b] {
					view.Cells[i][j].Agreed++
					view.Cells[j][i].Agreed++
				}
			}
		}
	}

	view.ScaleRange = scaleRange(view.Cells, f.MinSample)
	return view
}

// orderMembers sorts member identifiers by first active period, then by
// case-folded display name, then by identifier.
func orderMembers(ds *dataset.Dataset, ids map[string]bool) []string {
	type entry struct {
		id     string
		first  int
		folded string
	}

	fold := cases.Fold()
	entries := make([]entry, 0, len(ids))
	for id := range ids {
		member := ds.Members[id]
		entries = append(entries, entry{
			id:     id,
			first:  member.FirstPeriod,
			folded: fold.String(ds.MemberName(id)),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].first != entries[j].first {
			return entries[i].first < entries[j].first
		}
		if entries[i].folded != entries[j].folded {
			return entries[i].folded < entries[j].folded
		}
		return entries[i].id < entries[j].id
	})

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.id
	}
	return out
}

// scaleRange returns the min and max defined rate over off-diagonal cells
// with at least minSample shared cases, or nil when none qualify.
func scaleRange(cells [][]Cell, minSample int) *Range {
	var r *Range
	for i := range cells {
		for j := range cells[i] {
			if i == j || cells[i][j].Total < minSample {
				continue
			}
			rate, ok := cells[i][j].Rate()
			if !ok {
				continue
			}
			if r == nil {
				r = &Range{Min: rate, Max: rate}
				continue
			}
			r.Min = min(r.Min, rate)
			r.Max = max(r.Max, rate)
		}
	}
	return r
}
