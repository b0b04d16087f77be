package dataset

import (
	"errors"
	"fmt"
)

// PeriodBounds returns the smallest and largest case period. Both are zero
// when there are no cases.
func PeriodBounds(cases []Case) (minPeriod, maxPeriod int) {
	for i, c := range cases {
		if i == 0 || c.Period < minPeriod {
			minPeriod = c.Period
		}
		if i == 0 || c.Period > maxPeriod {
			maxPeriod = c.Period
		}
	}
	return minPeriod, maxPeriod
}

// Validate checks the dataset invariants and returns every violation found,
// joined into one error.
func (ds *Dataset) Validate() error {
	if ds == nil {
		return fmt.Errorf("dataset is nil")
	}

	var errs []error
	seen := make(map[string]bool, len(ds.Cases))

	for i, c := range ds.Cases {
		if c.ID == "" {
			errs = append(errs, fmt.Errorf("case %d has an empty identifier", i))
		}
		if seen[c.ID] {
			errs = append(errs, fmt.Errorf("case %s appears more than once", c.ID))
		}
		seen[c.ID] = true

		if len(c.Votes) == 0 {
			errs = append(errs, fmt.Errorf("case %s has no votes", c.ID))
		}
		if i > 0 && c.Period < ds.Cases[i-1].Period {
			errs = append(errs, fmt.Errorf("case %s (period %d) is out of period order", c.ID, c.Period))
		}
		for memberID, outcome := range c.Votes {
			if !outcome.Valid() {
				errs = append(errs, fmt.Errorf("case %s has invalid outcome %d for %s", c.ID, int(outcome), memberID))
			}
			if _, ok := ds.Members[memberID]; !ok {
				errs = append(errs, fmt.Errorf("case %s references unknown member %s", c.ID, memberID))
			}
		}
	}

	for id, member := range ds.Members {
		if member.FirstPeriod > member.LastPeriod {
			errs = append(errs, fmt.Errorf("member %s has first period %d after last period %d",
				id, member.FirstPeriod, member.LastPeriod))
		}
	}

	minPeriod, maxPeriod := PeriodBounds(ds.Cases)
	if ds.Meta.MinPeriod != minPeriod || ds.Meta.MaxPeriod != maxPeriod {
		errs = append(errs, fmt.Errorf("meta period range %d-%d does not match cases %d-%d",
			ds.Meta.MinPeriod, ds.Meta.MaxPeriod, minPeriod, maxPeriod))
	}
	if ds.Meta.CaseCount != len(ds.Cases) {
		errs = append(errs, fmt.Errorf("meta case count %d does not match %d cases", ds.Meta.CaseCount, len(ds.Cases)))
	}
	if ds.Meta.MemberCount != len(ds.Members) {
		errs = append(errs, fmt.Errorf("meta member count %d does not match %d members", ds.Meta.MemberCount, len(ds.Members)))
	}

	return errors.Join(errs...)
}
