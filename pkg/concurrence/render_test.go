package concurrence

import (
	"strings"
	"testing"
)

func threeMemberView(t *testing.T) *View {
	t.Helper()
	ds := buildDataset(t,
		vote{"C1", 1960, "HLBlack", maj}, vote{"C1", 1960, "WODouglas", maj}, vote{"C1", 1960, "FFrankfurter", dis},
		vote{"C2", 1960, "HLBlack", maj}, vote{"C2", 1960, "WODouglas", maj}, vote{"C2", 1960, "FFrankfurter", maj},
		vote{"C3", 1961, "HLBlack", dis}, vote{"C3", 1961, "WODouglas", dis}, vote{"C3", 1961, "FFrankfurter", maj},
		vote{"C4", 1962, "EWarren", maj},
	)
	f := DefaultFilter(ds)
	f.MinSample = 2
	return ComputeView(ds, f)
}

func TestPairs(t *testing.T) {
	view := threeMemberView(t)
	pairs := view.Pairs(1)
	if len(pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %d: %+v", len(pairs), pairs)
	}
	top := pairs[0]
	if top.Rate != 1 || top.Total != 3 {
		t.Errorf("expected Black/Douglas at 100%% over 3 cases first, got %+v", top)
	}
	names := top.NameA + "/" + top.NameB
	if !strings.Contains(names, "H.L. Black") || !strings.Contains(names, "W.O. Douglas") {
		t.Errorf("unexpected top pair %s", names)
	}
	for i := 1; i < len(pairs); i++ {
		if pairs[i].Rate > pairs[i-1].Rate {
			t.Errorf("pairs not sorted by rate: %+v", pairs)
		}
	}

	if got := view.Pairs(4); len(got) != 0 {
		t.Errorf("expected no pairs at min sample 4, got %+v", got)
	}
}

func TestBlocs(t *testing.T) {
	view := threeMemberView(t)

	blocs := view.Blocs(0.9, 2)
	if len(blocs) != 1 {
		t.Fatalf("expected 1 bloc, got %+v", blocs)
	}
	if blocs[0].Size != 2 {
		t.Errorf("expected a bloc of 2, got %+v", blocs[0])
	}
	for _, id := range blocs[0].Members {
		if id != "HLBlack" && id != "WODouglas" {
			t.Errorf("unexpected bloc member %s", id)
		}
	}

	if blocs := view.Blocs(0, 1); len(blocs) != 1 || blocs[0].Size != 3 {
		t.Errorf("expected one bloc of 3 at zero threshold, got %+v", blocs)
	}
	if blocs := (&View{}).Blocs(0.5, 1); blocs != nil {
		t.Errorf("expected nil for empty view, got %+v", blocs)
	}
}

func TestToASCII(t *testing.T) {
	view := threeMemberView(t)
	output := view.ToASCII()

	for _, want := range []string{"H.L. Black", "W.O. Douglas", "F. Frankfurter", "E. Warren", "100", "-", "·", "Scale:"} {
		if !strings.Contains(output, want) {
			t.Errorf("ASCII output missing %q:\n%s", want, output)
		}
	}

	empty := (&View{}).ToASCII()
	if !strings.Contains(empty, "No members") {
		t.Errorf("unexpected empty output %q", empty)
	}
}

func TestToASCII_MarksThinSamples(t *testing.T) {
	ds := buildDataset(t,
		vote{"C1", 1960, "A", maj}, vote{"C1", 1960, "B", maj},
	)
	f := DefaultFilter(ds)
	f.MinSample = 5
	output := ComputeView(ds, f).ToASCII()
	if !strings.Contains(output, "100*") {
		t.Errorf("expected thin-sample marker:\n%s", output)
	}
	if !strings.Contains(output, "no pairs meet the minimum sample") {
		t.Errorf("expected empty scale notice:\n%s", output)
	}
}

func TestToCSV(t *testing.T) {
	view := threeMemberView(t)
	output := view.ToCSV()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != len(view.Members)+1 {
		t.Fatalf("expected %d lines, got %d:\n%s", len(view.Members)+1, len(lines), output)
	}
	if !strings.HasPrefix(lines[0], "Member,") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(output, "1.0000") || !strings.Contains(output, "-") {
		t.Errorf("expected rates and diagonal markers:\n%s", output)
	}
	if (&View{}).ToCSV() != "" {
		t.Error("expected empty CSV for empty view")
	}
}

func TestProfilesTableAndFormatPairs(t *testing.T) {
	view := threeMemberView(t)
	table := view.ProfilesTable()
	if !strings.Contains(table, "FFrankfurter") || !strings.Contains(table, "33.3%") {
		t.Errorf("unexpected profiles table:\n%s", table)
	}

	if out := FormatPairs(nil); !strings.Contains(out, "No pairs") {
		t.Errorf("unexpected empty pairs output %q", out)
	}
	if out := FormatPairs(view.Pairs(1)); !strings.Contains(out, "100.0%") {
		t.Errorf("unexpected pairs output:\n%s", out)
	}
}
