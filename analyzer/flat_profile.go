package analyzer

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const (
	flatProfileMarker = "Flat profile:"
	callGraphMarker   = "Call graph"

	// callsPlaceholder is what some gprof builds print for functions without call counts.
	callsPlaceholder = "null"
	defaultCalls     = "0"

	minRowFields = 5
)

var (
	// ErrSourceUnavailable is returned when the report cannot be opened or read.
	ErrSourceUnavailable = errors.New("report source unavailable")
	// ErrEmptyReport is returned for a readable report that holds no data at all.
	ErrEmptyReport = errors.New("report is empty")
	// ErrNoFlatProfile is returned when the report has no "Flat profile:" section.
	ErrNoFlatProfile = errors.New("no flat profile section found")
	// ErrNoValidRows is returned when the flat profile section yields zero records.
	ErrNoValidRows = errors.New("flat profile contains no valid rows")
)

// ParseStats describes what the extractor saw while scanning the flat profile section.
type ParseStats struct {
	Rows    int // accepted data rows
	Skipped int // candidate rows rejected as noise
}

// ParseFlatProfile extracts performance records from a gprof text report.
// The returned records are sorted by time percent, highest first; rows with
// equal percentages keep the order they had in the report.
func ParseFlatProfile(text string) ([]PerformanceRecord, error) {
	records, _, err := parseFlatProfile(text, log.NewNopLogger())
	return records, err
}

func parseFlatProfile(text string, logger log.Logger) ([]PerformanceRecord, ParseStats, error) {
	var stats ParseStats
	if strings.TrimSpace(text) == "" {
		return nil, stats, ErrEmptyReport
	}

	section, ok := flatProfileSection(text)
	if !ok {
		level.Warn(logger).Log("msg", "report has no flat profile section", "marker", flatProfileMarker)
		return nil, stats, ErrNoFlatProfile
	}

	var records []PerformanceRecord
	headerFound := false
	for _, line := range strings.Split(section, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}

		// Everything before the column header is explanatory preamble.
		if !headerFound {
			if strings.HasPrefix(stripped, "%") || strings.HasPrefix(strings.ToLower(stripped), "time") {
				headerFound = true
			}
			continue
		}

		if strings.HasPrefix(stripped, callGraphMarker) {
			break
		}
		if isHeaderFragment(stripped) {
			continue
		}

		rec, ok := parseFlatProfileRow(stripped)
		if !ok {
			stats.Skipped++
			level.Debug(logger).Log("msg", "skipping flat profile row", "line", stripped)
			continue
		}
		records = append(records, rec)
	}
	stats.Rows = len(records)

	if len(records) == 0 {
		return nil, stats, ErrNoValidRows
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].TimePercent > records[j].TimePercent
	})
	level.Debug(logger).Log("msg", "parsed flat profile", "rows", stats.Rows, "skipped", stats.Skipped)
	return records, stats, nil
}

// flatProfileSection returns the text between the flat profile marker and the
// call graph section (or the end of the report).
func flatProfileSection(text string) (string, bool) {
	start := strings.Index(text, flatProfileMarker)
	if start < 0 {
		return "", false
	}
	section := text[start+len(flatProfileMarker):]
	if end := strings.Index(section, "\n"+callGraphMarker); end >= 0 {
		section = section[:end]
	}
	return section, true
}

// isHeaderFragment reports whether a line is the continuation of a multi-line
// column header.
func isHeaderFragment(line string) bool {
	return strings.Contains(strings.ToLower(line), "name") ||
		strings.HasPrefix(line, "cumulative") ||
		strings.HasPrefix(line, "seconds")
}

// parseFlatProfileRow interprets a row positionally: time%, cumulative seconds,
// self seconds, calls, ..., name. Columns between calls and the name differ
// between gprof builds and are ignored. The name is always the last field, so
// demangled names containing spaces are truncated to their last word.
func parseFlatProfileRow(line string) (PerformanceRecord, bool) {
	fields := strings.Fields(line)
	if len(fields) < minRowFields {
		return PerformanceRecord{}, false
	}

	timePercent, ok := parseFinite(fields[0])
	if !ok {
		return PerformanceRecord{}, false
	}
	cumulative, ok := parseFinite(fields[1])
	if !ok {
		return PerformanceRecord{}, false
	}
	self, ok := parseFinite(fields[2])
	if !ok {
		return PerformanceRecord{}, false
	}
	if timePercent < 0 || self < 0 {
		return PerformanceRecord{}, false
	}

	return PerformanceRecord{
		Name:              fields[len(fields)-1],
		TimePercent:       timePercent,
		CumulativeSeconds: cumulative,
		SelfSeconds:       self,
		Calls:             normalizeCalls(fields[3]),
	}, true
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// normalizeCalls keeps numeric call counts verbatim and maps everything else,
// including the placeholder, to "0".
func normalizeCalls(s string) string {
	if s == callsPlaceholder {
		return defaultCalls
	}
	if _, err := strconv.ParseUint(s, 10, 64); err != nil {
		return defaultCalls
	}
	return s
}
