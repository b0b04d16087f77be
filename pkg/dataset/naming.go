package dataset

import (
	"regexp"
	"strings"
)

// memberIDPattern matches identifiers such as "HLBlack" or "JHarlan2":
// initials, a capitalized surname, and an optional disambiguating digit.
var memberIDPattern = regexp.MustCompile(`^([A-Z]+)([A-Z][a-z]+)([0-9])?$`)

// DisplayName derives a readable name from a member identifier.
//
//	"HLBlack"  -> "H.L. Black"
//	"JHarlan1" -> "J. Harlan (I)"
//	"JHarlan2" -> "J. Harlan (II)"
//
// Identifiers that do not fit the pattern are returned unchanged.
func DisplayName(id string) string {
	match := memberIDPattern.FindStringSubmatch(id)
	if match == nil {
		return id
	}

	var sb strings.Builder
	for _, initial := range match[1] {
		sb.WriteRune(initial)
		sb.WriteByte('.')
	}
	sb.WriteByte(' ')
	sb.WriteString(match[2])

	switch digit := match[3]; {
	case digit == "":
	case digit == "0":
		// Zero is not a disambiguator in use; keep the bare name.
	case digit == "1":
		sb.WriteString(" (I)")
	default:
		sb.WriteString(" (II)")
	}

	return sb.String()
}
