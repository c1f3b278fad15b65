package analyzer

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/pprof/profile"
)

// Analyzer turns a profiler report into a classified hotspot Report.
type Analyzer struct {
	logger    log.Logger
	catalogue *Catalogue
	threshold float64
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l log.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithCatalogue replaces the built-in rule catalogue.
func WithCatalogue(c *Catalogue) Option {
	return func(a *Analyzer) {
		if c != nil {
			a.catalogue = c
		}
	}
}

// WithThreshold sets the hotspot threshold in percent.
func WithThreshold(t float64) Option {
	return func(a *Analyzer) {
		a.threshold = t
	}
}

// New returns an Analyzer using the default catalogue and threshold unless
// overridden by options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		logger:    log.NewNopLogger(),
		threshold: DefaultThreshold,
	}
	for _, o := range opts {
		o(a)
	}
	if a.catalogue == nil {
		a.catalogue = DefaultCatalogue()
	}
	return a
}

// Threshold returns the configured hotspot threshold.
func (a *Analyzer) Threshold() float64 { return a.threshold }

// Catalogue returns the rule catalogue in use.
func (a *Analyzer) Catalogue() *Catalogue { return a.catalogue }

// AnalyzeFile reads a report from disk and analyzes it. The returned error
// wraps ErrSourceUnavailable, ErrEmptyReport, ErrNoFlatProfile or
// ErrNoValidRows for the corresponding failure.
func (a *Analyzer) AnalyzeFile(path string, kind InputKind) (*Report, error) {
	ex, err := a.extractFile(path, kind)
	if err != nil {
		return nil, err
	}
	return a.buildReport(path, ex), nil
}

// AnalyzeBytes analyzes report content that has already been read.
func (a *Analyzer) AnalyzeBytes(source string, data []byte, kind InputKind) (*Report, error) {
	ex, err := a.extract(source, data, kind)
	if err != nil {
		return nil, err
	}
	return a.buildReport(source, ex), nil
}

// AnalyzeText analyzes a gprof text report.
func (a *Analyzer) AnalyzeText(source, text string) (*Report, error) {
	ex, err := a.extractText(source, text)
	if err != nil {
		return nil, err
	}
	return a.buildReport(source, ex), nil
}

// AnalyzePprof analyzes an already parsed pprof CPU profile.
func (a *Analyzer) AnalyzePprof(source string, p *profile.Profile) (*Report, error) {
	ex, err := a.extractPprof(source, p)
	if err != nil {
		return nil, err
	}
	return a.buildReport(source, ex), nil
}

// AnalyzeRecords classifies already extracted records. Records are expected
// in ranked order, as returned by ParseFlatProfile.
func (a *Analyzer) AnalyzeRecords(source string, records []PerformanceRecord) *Report {
	hotspots := ClassifyHotspots(records, a.threshold, a.catalogue)
	summary := Summarize(hotspots)
	level.Info(a.logger).Log("msg", "analyzed report", "source", source, "functions", len(records),
		"hotspots", len(hotspots), "parallelizable_time", summary.ParallelizableTime, "tier", summary.Tier)
	return &Report{
		Source:         source,
		Threshold:      a.threshold,
		TotalFunctions: len(records),
		Hotspots:       hotspots,
		Summary:        summary,
	}
}

// CompareFiles extracts two reports of the same program and compares them
// function by function. The threshold and catalogue play no part here.
func (a *Analyzer) CompareFiles(beforePath, afterPath string, kind InputKind) (*Comparison, error) {
	before, err := a.extractFile(beforePath, kind)
	if err != nil {
		return nil, err
	}
	after, err := a.extractFile(afterPath, kind)
	if err != nil {
		return nil, err
	}
	c := CompareRecords(before.records, after.records)
	c.Before, c.After = beforePath, afterPath
	level.Info(a.logger).Log("msg", "compared reports", "before", beforePath, "after", afterPath,
		"functions", len(c.Functions), "speedup", c.Speedup)
	return c, nil
}

// extraction is the outcome of reading one report, before classification.
type extraction struct {
	records []PerformanceRecord
	input   InputKind
	stats   ParseStats
}

func (a *Analyzer) buildReport(source string, ex extraction) *Report {
	report := a.AnalyzeRecords(source, ex.records)
	report.Input = ex.input
	report.SkippedLines = ex.stats.Skipped
	return report
}

func (a *Analyzer) extractFile(path string, kind InputKind) (extraction, error) {
	data, err := readReport(path)
	if err != nil {
		level.Error(a.logger).Log("msg", "failed to read report", "path", path, "err", err)
		return extraction{}, err
	}
	return a.extract(path, data, kind)
}

func (a *Analyzer) extract(source string, data []byte, kind InputKind) (extraction, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return extraction{}, fmt.Errorf("'%s': %w", source, ErrEmptyReport)
	}

	switch kind {
	case InputGprof:
		return a.extractText(source, string(data))
	case InputPprof:
		p, err := profile.Parse(bytes.NewReader(data))
		if err != nil {
			return extraction{}, fmt.Errorf("failed to parse pprof profile '%s': %w", source, err)
		}
		return a.extractPprof(source, p)
	case "", InputAuto:
		// A gprof report is plain text with a flat profile marker; anything else
		// gets one chance as a pprof profile.
		if bytes.Contains(data, []byte(flatProfileMarker)) {
			return a.extractText(source, string(data))
		}
		if p, err := profile.Parse(bytes.NewReader(data)); err == nil {
			level.Debug(a.logger).Log("msg", "detected pprof profile", "source", source)
			return a.extractPprof(source, p)
		}
		return a.extractText(source, string(data))
	default:
		return extraction{}, fmt.Errorf("unsupported input type: '%s'", kind)
	}
}

func (a *Analyzer) extractText(source, text string) (extraction, error) {
	records, stats, err := parseFlatProfile(text, log.With(a.logger, "source", source))
	if err != nil {
		return extraction{}, fmt.Errorf("'%s': %w", source, err)
	}
	return extraction{records: records, input: InputGprof, stats: stats}, nil
}

func (a *Analyzer) extractPprof(source string, p *profile.Profile) (extraction, error) {
	records, err := flatProfileFromPprof(p, log.With(a.logger, "source", source))
	if err != nil {
		return extraction{}, fmt.Errorf("'%s': %w", source, err)
	}
	return extraction{records: records, input: InputPprof, stats: ParseStats{Rows: len(records)}}, nil
}

// readReport reads the whole report; the file is closed on every path.
func readReport(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read '%s': %w", ErrSourceUnavailable, path, err)
	}
	return data, nil
}
