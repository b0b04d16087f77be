package dataset

import (
	"encoding/json"
	"fmt"
)

// Affiliation is the party of the president who appointed a member.
type Affiliation string

const (
	AffiliationUnknown    Affiliation = ""
	AffiliationDemocratic Affiliation = "D"
	AffiliationRepublican Affiliation = "R"
)

// ParseAffiliation parses an affiliation code. The empty string is unknown.
func ParseAffiliation(code string) (Affiliation, error) {
	switch Affiliation(code) {
	case AffiliationUnknown, AffiliationDemocratic, AffiliationRepublican:
		return Affiliation(code), nil
	default:
		return AffiliationUnknown, fmt.Errorf("unknown affiliation code %q", code)
	}
}

// MarshalJSON encodes unknown affiliations as null.
func (a Affiliation) MarshalJSON() ([]byte, error) {
	if a == AffiliationUnknown {
		return []byte("null"), nil
	}
	return json.Marshal(string(a))
}

// UnmarshalJSON accepts null or one of the known codes.
func (a *Affiliation) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = AffiliationUnknown
		return nil
	}
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("failed to decode affiliation: %w", err)
	}
	parsed, err := ParseAffiliation(code)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// affiliations maps Supreme Court Database justice identifiers to the party
// of the appointing president. Justices seated before the New Deal court are
// deliberately absent.
var affiliations = map[string]Affiliation{
	"HLBlack":      AffiliationDemocratic,
	"SFReed":       AffiliationDemocratic,
	"FFrankfurter": AffiliationDemocratic,
	"WODouglas":    AffiliationDemocratic,
	"FMurphy":      AffiliationDemocratic,
	"RHJackson":    AffiliationDemocratic,
	"WBRutledge":   AffiliationDemocratic,
	"HHBurton":     AffiliationDemocratic,
	"FMVinson":     AffiliationDemocratic,
	"TCClark":      AffiliationDemocratic,
	"SMinton":      AffiliationDemocratic,
	"EWarren":      AffiliationRepublican,
	"JHarlan2":     AffiliationRepublican,
	"WJBrennan":    AffiliationRepublican,
	"CEWhittaker":  AffiliationRepublican,
	"PStewart":     AffiliationRepublican,
	"BRWhite":      AffiliationDemocratic,
	"AJGoldberg":   AffiliationDemocratic,
	"AFortas":      AffiliationDemocratic,
	"TMarshall":    AffiliationDemocratic,
	"WEBurger":     AffiliationRepublican,
	"HABlackmun":   AffiliationRepublican,
	"LFPowell":     AffiliationRepublican,
	"WHRehnquist":  AffiliationRepublican,
	"JPStevens":    AffiliationRepublican,
	"SDOConnor":    AffiliationRepublican,
	"AScalia":      AffiliationRepublican,
	"AMKennedy":    AffiliationRepublican,
	"DHSouter":     AffiliationRepublican,
	"CThomas":      AffiliationRepublican,
	"RBGinsburg":   AffiliationDemocratic,
	"SGBreyer":     AffiliationDemocratic,
	"JGRoberts":    AffiliationRepublican,
	"SAAlito":      AffiliationRepublican,
	"SSotomayor":   AffiliationDemocratic,
	"EKagan":       AffiliationDemocratic,
	"NMGorsuch":    AffiliationRepublican,
	"BMKavanaugh":  AffiliationRepublican,
	"ACBarrett":    AffiliationRepublican,
	"KBJackson":    AffiliationDemocratic,
}

// LookupAffiliation returns the static affiliation for a member identifier.
func LookupAffiliation(id string) Affiliation {
	return affiliations[id]
}
