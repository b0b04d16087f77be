package concurrence

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// ToASCII renders the agreement matrix as a text table of percentages.
// Columns are numbered after the row labels. Cells below the view's
// minimum sample are marked with '*', pairs with no shared cases with '·'.
func (v *View) ToASCII() string {
	if v.Empty() {
		return "No members in the selected window.\n"
	}

	var sb strings.Builder

	labelWidth := 4
	for _, name := range v.Names {
		if len(name) > labelWidth {
			labelWidth = len(name)
		}
	}
	indexWidth := len(fmt.Sprintf("%d", len(v.Members)))
	colWidth := 5

	// Header row
	sb.WriteString(strings.Repeat(" ", indexWidth+labelWidth+3))
	for j := range v.Members {
		sb.WriteString(fmt.Sprintf("%*d", colWidth, j+1))
	}
	sb.WriteString("\n")

	// Separator
	sb.WriteString(strings.Repeat(" ", indexWidth+labelWidth+3))
	sb.WriteString(strings.Repeat("─", colWidth*len(v.Members)))
	sb.WriteString("\n")

	// Data rows
	for i := range v.Members {
		sb.WriteString(fmt.Sprintf("%*d %-*s │", indexWidth, i+1, labelWidth, v.Names[i]))
		for j := range v.Members {
			cell := v.Cells[i][j]
			rate, ok := cell.Rate()
			switch {
			case cell.Self:
				sb.WriteString(fmt.Sprintf("%*s", colWidth, "-"))
			case !ok:
				sb.WriteString(fmt.Sprintf("%*s", colWidth, "·"))
			case cell.Total < v.MinSample:
				sb.WriteString(fmt.Sprintf("%*s", colWidth, fmt.Sprintf("%.0f*", rate*100)))
			default:
				sb.WriteString(fmt.Sprintf("%*.0f", colWidth, rate*100))
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if v.ScaleRange == nil {
		sb.WriteString("Scale: no pairs meet the minimum sample\n")
	} else {
		sb.WriteString(fmt.Sprintf("Scale: %.1f%% to %.1f%% (min sample %d)\n",
			v.ScaleRange.Min*100, v.ScaleRange.Max*100, v.MinSample))
	}

	return sb.String()
}

// ToCSV renders the matrix with one row per member. Rate cells are
// fractions; undefined rates are empty and the diagonal is "-".
func (v *View) ToCSV() string {
	if v.Empty() {
		return ""
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)

	header := append([]string{"Member"}, v.Members...)
	w.Write(header)

	for i, memberID := range v.Members {
		row := []string{memberID}
		for j := range v.Members {
			cell := v.Cells[i][j]
			rate, ok := cell.Rate()
			switch {
			case cell.Self:
				row = append(row, "-")
			case !ok:
				row = append(row, "")
			default:
				row = append(row, fmt.Sprintf("%.4f", rate))
			}
		}
		w.Write(row)
	}

	w.Flush()
	return sb.String()
}

// ProfilesTable renders per-member participation in the window.
func (v *View) ProfilesTable() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-14s %-24s %7s %9s %8s %8s\n",
		"ID", "NAME", "CASES", "MAJORITY", "DISSENT", "RATE"))
	sb.WriteString(strings.Repeat("─", 76) + "\n")

	for _, profile := range v.Profiles {
		rate := "-"
		if r, ok := profile.DissentRate(); ok {
			rate = fmt.Sprintf("%.1f%%", r*100)
		}
		sb.WriteString(fmt.Sprintf("%-14s %-24s %7d %9d %8d %8s\n",
			profile.ID, profile.Name, profile.Cases, profile.Majority, profile.Dissents, rate))
	}

	return sb.String()
}

// FormatPairs renders ranked pairs as a table.
func FormatPairs(pairs []PairRate) string {
	if len(pairs) == 0 {
		return "No pairs meet the minimum sample.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-24s %-24s %7s %7s %8s\n", "MEMBER", "MEMBER", "AGREED", "TOTAL", "RATE"))
	sb.WriteString(strings.Repeat("─", 74) + "\n")
	for _, pair := range pairs {
		sb.WriteString(fmt.Sprintf("%-24s %-24s %7d %7d %7.1f%%\n",
			pair.NameA, pair.NameB, pair.Agreed, pair.Total, pair.Rate*100))
	}
	return sb.String()
}
