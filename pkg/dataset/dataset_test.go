package dataset

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleDataset() *Dataset {
	return &Dataset{
		Cases: []Case{
			{ID: "C1", Period: 1960, Votes: map[string]Outcome{"HLBlack": OutcomeMajority, "Ravenal": OutcomeDissent}},
			{ID: "C2", Period: 1961, Votes: map[string]Outcome{"HLBlack": OutcomeMajority}},
		},
		Members: map[string]Member{
			"HLBlack": {ID: "HLBlack", Name: "H.L. Black", FirstPeriod: 1960, LastPeriod: 1961, Affiliation: AffiliationDemocratic},
			"Ravenal": {ID: "Ravenal", Name: "Ravenal", FirstPeriod: 1960, LastPeriod: 1960},
		},
		Meta: Meta{
			MinPeriod:   1960,
			MaxPeriod:   1961,
			CaseCount:   2,
			MemberCount: 2,
			GeneratedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			Source:      "test",
		},
	}
}

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		raw      string
		expected Outcome
		ok       bool
	}{
		{"1", OutcomeDissent, true},
		{"2", OutcomeMajority, true},
		{" 2 ", OutcomeMajority, true},
		{"9", 0, false},
		{"", 0, false},
		{"NA", 0, false},
		{"12", 0, false},
	}

	for _, tc := range tests {
		outcome, ok := ParseOutcome(tc.raw)
		if ok != tc.ok || outcome != tc.expected {
			t.Errorf("ParseOutcome(%q): expected (%v, %v), got (%v, %v)", tc.raw, tc.expected, tc.ok, outcome, ok)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		id       string
		expected string
	}{
		{"HLBlack", "H.L. Black"},
		{"WODouglas", "W.O. Douglas"},
		{"EKagan", "E. Kagan"},
		{"JHarlan1", "J. Harlan (I)"},
		{"JHarlan2", "J. Harlan (II)"},
		{"JHarlan3", "J. Harlan (II)"},
		{"JCMcReynolds", "JCMcReynolds"},
		{"Black", "Black"},
		{"hlblack", "hlblack"},
		{"", ""},
		{"HLBlack12", "HLBlack12"},
	}

	for _, tc := range tests {
		if got := DisplayName(tc.id); got != tc.expected {
			t.Errorf("DisplayName(%q): expected %q, got %q", tc.id, tc.expected, got)
		}
	}
}

func TestLookupAffiliation(t *testing.T) {
	if got := LookupAffiliation("JGRoberts"); got != AffiliationRepublican {
		t.Errorf("expected R for JGRoberts, got %q", got)
	}
	if got := LookupAffiliation("RBGinsburg"); got != AffiliationDemocratic {
		t.Errorf("expected D for RBGinsburg, got %q", got)
	}
	if got := LookupAffiliation("JMarshall"); got != AffiliationUnknown {
		t.Errorf("expected unknown for JMarshall, got %q", got)
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := sampleDataset().Validate(); err != nil {
		t.Fatalf("expected valid dataset, got %v", err)
	}
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ds *Dataset)
		want   string
	}{
		{"unknown member", func(ds *Dataset) { ds.Cases[0].Votes["Nobody"] = OutcomeMajority }, "unknown member Nobody"},
		{"empty votes", func(ds *Dataset) { ds.Cases[1].Votes = map[string]Outcome{} }, "has no votes"},
		{"order", func(ds *Dataset) { ds.Cases[0].Period, ds.Cases[1].Period = 1961, 1960 }, "out of period order"},
		{"member range", func(ds *Dataset) {
			m := ds.Members["Ravenal"]
			m.FirstPeriod = 1970
			ds.Members["Ravenal"] = m
		}, "first period 1970 after last period"},
		{"counts", func(ds *Dataset) { ds.Meta.CaseCount = 5 }, "meta case count"},
		{"bounds", func(ds *Dataset) { ds.Meta.MaxPeriod = 2000 }, "meta period range"},
		{"outcome", func(ds *Dataset) { ds.Cases[0].Votes["HLBlack"] = 9 }, "invalid outcome"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ds := sampleDataset()
			tc.mutate(ds)
			err := ds.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleDataset()); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, `"affiliation": null`) {
		t.Errorf("expected unknown affiliation to encode as null:\n%s", output)
	}
	if !strings.Contains(output, `"affiliation": "D"`) {
		t.Errorf("expected known affiliation code in output:\n%s", output)
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Members["HLBlack"].ID != "HLBlack" {
		t.Errorf("expected member ID restored from key, got %q", decoded.Members["HLBlack"].ID)
	}
	if decoded.Members["Ravenal"].Affiliation != AffiliationUnknown {
		t.Errorf("expected unknown affiliation, got %q", decoded.Members["Ravenal"].Affiliation)
	}
	if decoded.Cases[0].Votes["Ravenal"] != OutcomeDissent {
		t.Errorf("expected dissent vote, got %v", decoded.Cases[0].Votes["Ravenal"])
	}
	if !decoded.Meta.GeneratedAt.Equal(sampleDataset().Meta.GeneratedAt) {
		t.Errorf("generated_at mismatch: %v", decoded.Meta.GeneratedAt)
	}
}

func TestDecode_RejectsInvalidArtifact(t *testing.T) {
	artifact := `{"cases":[{"id":"C1","period":1960,"votes":{"X":2}}],"members":{},"meta":{"min_period":1960,"max_period":1960,"case_count":1,"member_count":0}}`
	if _, err := Decode(strings.NewReader(artifact)); err == nil {
		t.Error("expected error for vote referencing unknown member")
	}

	badAffiliation := `{"cases":[],"members":{"X":{"name":"X","first_period":1,"last_period":1,"affiliation":"Q"}},"meta":{"member_count":1}}`
	if _, err := Decode(strings.NewReader(badAffiliation)); err == nil {
		t.Error("expected error for unknown affiliation code")
	}
}

func TestEncode_EmptyDataset(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, &Dataset{}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"cases": []`) {
		t.Errorf("expected empty case list, got:\n%s", buf.String())
	}
	if _, err := Decode(&buf); err != nil {
		t.Errorf("empty dataset should decode: %v", err)
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dataset.json")
	if err := WriteFile(path, sampleDataset()); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	ds, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if ds.Meta.CaseCount != 2 || len(ds.Cases) != 2 {
		t.Errorf("expected 2 cases, got %d", len(ds.Cases))
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestUnresolvedAffiliations(t *testing.T) {
	ids := sampleDataset().UnresolvedAffiliations()
	if len(ids) != 1 || ids[0] != "Ravenal" {
		t.Errorf("expected [Ravenal], got %v", ids)
	}
}

func TestPeriodBounds(t *testing.T) {
	minPeriod, maxPeriod := PeriodBounds(nil)
	if minPeriod != 0 || maxPeriod != 0 {
		t.Errorf("expected 0-0 for no cases, got %d-%d", minPeriod, maxPeriod)
	}
	minPeriod, maxPeriod = PeriodBounds([]Case{{Period: 1970}, {Period: 1950}, {Period: 1990}})
	if minPeriod != 1950 || maxPeriod != 1990 {
		t.Errorf("expected 1950-1990, got %d-%d", minPeriod, maxPeriod)
	}
}
