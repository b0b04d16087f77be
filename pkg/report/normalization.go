// Package report formats the normalization summary printed by the CLI.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/coolbeans/concurrence/pkg/dataset"
	"github.com/coolbeans/concurrence/pkg/normalize"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
)

// Normalization summarizes one normalize run.
type Normalization struct {
	Dataset  *dataset.Dataset
	Stats    normalize.Stats
	Output   string
	Duration time.Duration
}

// String returns the report without terminal styling.
func (n *Normalization) String() string {
	return n.Render(false)
}

// Render formats the report. When styled is true, headings and warnings
// are decorated with lipgloss styles.
func (n *Normalization) Render(styled bool) string {
	style := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	var sb strings.Builder
	ds := n.Dataset

	sb.WriteString("\n" + style(titleStyle, "Normalization Report") + "\n")
	sb.WriteString(strings.Repeat("═", 60) + "\n")

	if len(n.Stats.Sources) > 0 {
		sb.WriteString(fmt.Sprintf("Sources (merge order): %s\n", strings.Join(n.Stats.Sources, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Records: %d accepted | %d rejected | %d malformed\n",
		n.Stats.Accepted, n.Stats.TotalRejected(), n.Stats.Dropped))
	if reasons := formatRejections(n.Stats.Rejected); reasons != "" {
		sb.WriteString(style(dimStyle, "  Rejected: "+reasons) + "\n")
	}

	sb.WriteString(fmt.Sprintf("Cases: %d | Members: %d\n", ds.Meta.CaseCount, ds.Meta.MemberCount))
	if ds.Meta.CaseCount > 0 {
		sb.WriteString(fmt.Sprintf("Periods: %d - %d\n", ds.Meta.MinPeriod, ds.Meta.MaxPeriod))
	}
	sb.WriteString(strings.Repeat("─", 60) + "\n")

	sb.WriteString(FormatMembers(ds))

	if unresolved := ds.UnresolvedAffiliations(); len(unresolved) > 0 {
		sb.WriteString("\n")
		sb.WriteString(style(warnStyle, fmt.Sprintf("Warning: %d members have no known affiliation:", len(unresolved))) + "\n")
		for _, id := range unresolved {
			sb.WriteString(fmt.Sprintf("  - %s (%s)\n", id, ds.MemberName(id)))
		}
	}

	if n.Output != "" {
		sb.WriteString(fmt.Sprintf("\nWrote %s", n.Output))
		if n.Duration > 0 {
			sb.WriteString(fmt.Sprintf(" in %v", n.Duration.Round(time.Millisecond)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatMembers lists members by first period, then identifier.
func FormatMembers(ds *dataset.Dataset) string {
	members := make([]dataset.Member, 0, len(ds.Members))
	for _, member := range ds.Members {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].FirstPeriod != members[j].FirstPeriod {
			return members[i].FirstPeriod < members[j].FirstPeriod
		}
		return members[i].ID < members[j].ID
	})

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-14s %-24s %-11s %s\n", "ID", "NAME", "SERVICE", "AFFILIATION"))
	for _, member := range members {
		affiliation := string(member.Affiliation)
		if member.Affiliation == dataset.AffiliationUnknown {
			affiliation = "?"
		}
		sb.WriteString(fmt.Sprintf("%-14s %-24s %4d-%-6d %s\n",
			member.ID, member.Name, member.FirstPeriod, member.LastPeriod, affiliation))
	}
	return sb.String()
}

func formatRejections(rejected map[normalize.RejectReason]int) string {
	reasons := make([]string, 0, len(rejected))
	for reason, count := range rejected {
		if count > 0 {
			reasons = append(reasons, fmt.Sprintf("%s %d", reason, count))
		}
	}
	sort.Strings(reasons)
	return strings.Join(reasons, ", ")
}
