package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Output formats accepted by RenderReport.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

const ruleWidth = 70

// RenderReport formats a Report as text, markdown or json. topN limits the
// number of hotspots listed; topN <= 0 lists all of them. The summary always
// covers every hotspot.
func RenderReport(r *Report, format string, topN int) (string, error) {
	if r == nil {
		return "", fmt.Errorf("nil report")
	}
	hotspots := r.Hotspots
	if topN > 0 && topN < len(hotspots) {
		hotspots = hotspots[:topN]
	}

	switch format {
	case FormatText, "":
		return renderText(r, hotspots), nil
	case FormatMarkdown:
		return renderMarkdown(r, hotspots), nil
	case FormatJSON:
		view := *r
		view.Hotspots = hotspots
		jsonBytes, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			errJSON, _ := json.Marshal(ErrorResult{Error: fmt.Sprintf("Failed to marshal result to JSON: %v", err)})
			return string(errJSON), nil
		}
		return string(jsonBytes), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func renderText(r *Report, hotspots []Hotspot) string {
	var b strings.Builder
	rule := strings.Repeat("=", ruleWidth) + "\n"

	b.WriteString("Hotspot Analysis\n")
	fmt.Fprintf(&b, "Analyzing: %s (%s)\n", r.Source, r.Input)
	b.WriteString(rule)
	fmt.Fprintf(&b, "\nHOTSPOTS IDENTIFIED (>=%s execution time): %d of %d functions\n",
		FormatPercent(r.Threshold), len(r.Hotspots), r.TotalFunctions)
	b.WriteString(strings.Repeat("-", ruleWidth) + "\n")

	if len(hotspots) == 0 {
		b.WriteString("No function reached the threshold.\n")
	} else {
		writeHotspotTable(&b, hotspots, false)
		for _, h := range hotspots {
			writeHotspotDetail(&b, h)
		}
	}

	s := r.Summary
	b.WriteString("\n" + rule)
	b.WriteString("PARALLELIZATION POTENTIAL SUMMARY:\n")
	fmt.Fprintf(&b, "├─ Total Hotspot Coverage: %.1f%% of execution time\n", s.TotalHotspotTime)
	fmt.Fprintf(&b, "├─ Parallelizable Portion: %.1f%% of execution time\n", s.ParallelizableTime)
	fmt.Fprintf(&b, "├─ Parallelization Efficiency: %.1f%% of hotspots\n", s.ParallelEfficiency)
	fmt.Fprintf(&b, "└─ Expected Speedup Potential: %.1fx theoretical maximum\n", s.SpeedupPotential)

	b.WriteString("\n" + rule)
	b.WriteString("PLATFORM RECOMMENDATIONS:\n")
	if s.RecommendedPlatforms != "" {
		fmt.Fprintf(&b, "├─ %s\n", tierHeadline(s.Tier))
		fmt.Fprintf(&b, "└─ Recommended: %s\n", s.RecommendedPlatforms)
	} else {
		fmt.Fprintf(&b, "└─ %s\n", tierHeadline(s.Tier))
	}
	if r.SkippedLines > 0 {
		fmt.Fprintf(&b, "\n(%d unparseable lines in the flat profile were skipped)\n", r.SkippedLines)
	}
	return b.String()
}

func writeHotspotDetail(b *strings.Builder, h Hotspot) {
	v := h.Verdict
	fmt.Fprintf(b, "\n%d. Function: %s\n", h.Rank, h.Record.Name)
	fmt.Fprintf(b, "   ├─ Execution Time: %s\n", FormatPercent(h.Record.TimePercent))
	fmt.Fprintf(b, "   ├─ Self Time: %.4f seconds\n", h.Record.SelfSeconds)
	fmt.Fprintf(b, "   ├─ Function Calls: %s\n", h.Record.Calls)
	fmt.Fprintf(b, "   ├─ Parallelizable: %s\n", FormatParallelizable(v.Parallelizable))
	fmt.Fprintf(b, "   ├─ Complexity: %s\n", v.Complexity)
	fmt.Fprintf(b, "   ├─ Pattern: %s\n", v.AccessPattern)
	fmt.Fprintf(b, "   ├─ Recommended Platforms: %s\n", FormatPlatforms(v.Platforms))
	fmt.Fprintf(b, "   ├─ Parallelization Strategy: %s\n", v.Strategy)
	fmt.Fprintf(b, "   └─ Justification: %s\n", v.Justification)
}

// newTable returns a table writing into b. markdown switches the table to
// pipe syntax.
func newTable(b *strings.Builder, header []string, markdown bool) *tablewriter.Table {
	table := tablewriter.NewWriter(b)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	if markdown {
		table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		table.SetCenterSeparator("|")
	}
	return table
}

// writeHotspotTable renders the ranking overview.
func writeHotspotTable(b *strings.Builder, hotspots []Hotspot, markdown bool) {
	table := newTable(b, []string{"#", "Function", "Time %", "Self", "Calls", "Parallelizable", "Archetype"}, markdown)
	for _, h := range hotspots {
		archetype := h.Archetype
		if archetype == "" {
			archetype = "-"
		}
		table.Append([]string{
			fmt.Sprintf("%d", h.Rank),
			h.Record.Name,
			FormatPercent(h.Record.TimePercent),
			FormatSeconds(h.Record.SelfSeconds),
			h.Record.Calls,
			FormatParallelizable(h.Verdict.Parallelizable),
			archetype,
		})
	}
	table.Render()
}

func renderMarkdown(r *Report, hotspots []Hotspot) string {
	var b strings.Builder
	s := r.Summary

	b.WriteString("# Hotspot Analysis\n\n")
	fmt.Fprintf(&b, "- Source: `%s` (%s)\n", r.Source, r.Input)
	fmt.Fprintf(&b, "- Threshold: %s of execution time\n", FormatPercent(r.Threshold))
	fmt.Fprintf(&b, "- Hotspots: %d of %d functions\n\n", len(r.Hotspots), r.TotalFunctions)

	b.WriteString("## Hotspots\n\n")
	if len(hotspots) == 0 {
		b.WriteString("No function reached the threshold.\n")
	} else {
		writeHotspotTable(&b, hotspots, true)
		for _, h := range hotspots {
			v := h.Verdict
			fmt.Fprintf(&b, "\n### %d. `%s`\n\n", h.Rank, h.Record.Name)
			fmt.Fprintf(&b, "- **Execution Time:** %s\n", FormatPercent(h.Record.TimePercent))
			fmt.Fprintf(&b, "- **Self Time:** %.4f seconds\n", h.Record.SelfSeconds)
			fmt.Fprintf(&b, "- **Function Calls:** %s\n", h.Record.Calls)
			fmt.Fprintf(&b, "- **Parallelizable:** %s\n", FormatParallelizable(v.Parallelizable))
			fmt.Fprintf(&b, "- **Complexity:** %s\n", v.Complexity)
			fmt.Fprintf(&b, "- **Pattern:** %s\n", v.AccessPattern)
			fmt.Fprintf(&b, "- **Recommended Platforms:** %s\n", FormatPlatforms(v.Platforms))
			fmt.Fprintf(&b, "- **Parallelization Strategy:** %s\n", v.Strategy)
			fmt.Fprintf(&b, "- **Justification:** %s\n", v.Justification)
		}
	}

	b.WriteString("\n## Summary\n\n")
	fmt.Fprintf(&b, "- Total Hotspot Coverage: %.1f%% of execution time\n", s.TotalHotspotTime)
	fmt.Fprintf(&b, "- Parallelizable Portion: %.1f%% of execution time\n", s.ParallelizableTime)
	fmt.Fprintf(&b, "- Parallelization Efficiency: %.1f%% of hotspots\n", s.ParallelEfficiency)
	fmt.Fprintf(&b, "- Expected Speedup Potential: %.1fx theoretical maximum\n", s.SpeedupPotential)

	b.WriteString("\n## Recommendation\n\n")
	fmt.Fprintf(&b, "**%s**", tierHeadline(s.Tier))
	if s.RecommendedPlatforms != "" {
		fmt.Fprintf(&b, ": %s", s.RecommendedPlatforms)
	}
	b.WriteString("\n")
	return b.String()
}

// RenderComparison formats a Comparison as text, markdown or json. topN limits
// the number of functions listed; topN <= 0 lists all of them.
func RenderComparison(c *Comparison, format string, topN int) (string, error) {
	if c == nil {
		return "", fmt.Errorf("nil comparison")
	}
	functions := c.Functions
	if topN > 0 && topN < len(functions) {
		functions = functions[:topN]
	}

	switch format {
	case FormatText, "", FormatMarkdown:
		markdown := format == FormatMarkdown
		var b strings.Builder
		if markdown {
			b.WriteString("# Profile Comparison\n\n")
			fmt.Fprintf(&b, "- Before: `%s` (%s)\n", c.Before, FormatSeconds(c.BeforeTotalSeconds))
			fmt.Fprintf(&b, "- After: `%s` (%s)\n", c.After, FormatSeconds(c.AfterTotalSeconds))
			fmt.Fprintf(&b, "- Measured Speedup: **%s**\n\n", FormatSpeedup(c.Speedup))
		} else {
			b.WriteString("Profile Comparison\n")
			fmt.Fprintf(&b, "Before: %s (%s)\n", c.Before, FormatSeconds(c.BeforeTotalSeconds))
			fmt.Fprintf(&b, "After:  %s (%s)\n", c.After, FormatSeconds(c.AfterTotalSeconds))
			fmt.Fprintf(&b, "Measured Speedup: %s\n", FormatSpeedup(c.Speedup))
			b.WriteString(strings.Repeat("=", ruleWidth) + "\n")
		}
		if len(functions) == 0 {
			b.WriteString("No functions to compare.\n")
			return b.String(), nil
		}
		table := newTable(&b, []string{"Function", "Before %", "After %", "Before Self", "After Self", "Change", "Speedup", "Status"}, markdown)
		for _, d := range functions {
			table.Append([]string{
				d.Name,
				FormatPercent(d.BeforePercent),
				FormatPercent(d.AfterPercent),
				FormatSeconds(d.BeforeSelfSeconds),
				FormatSeconds(d.AfterSelfSeconds),
				FormatSecondsDelta(d.SelfSecondsChange),
				FormatSpeedup(d.Speedup),
				string(d.Status),
			})
		}
		table.Render()
		return b.String(), nil
	case FormatJSON:
		view := *c
		view.Functions = functions
		jsonBytes, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			errJSON, _ := json.Marshal(ErrorResult{Error: fmt.Sprintf("Failed to marshal result to JSON: %v", err)})
			return string(errJSON), nil
		}
		return string(jsonBytes), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}
