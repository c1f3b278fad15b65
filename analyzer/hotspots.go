package analyzer

// DefaultThreshold is the minimum time percent for a function to count as a hotspot.
const DefaultThreshold = 1.0

const (
	highTierThreshold     = 50.0
	moderateTierThreshold = 20.0
)

// SelectHotspots returns the records whose time percent is at least threshold,
// in their incoming order.
func SelectHotspots(records []PerformanceRecord, threshold float64) []PerformanceRecord {
	hot := make([]PerformanceRecord, 0, len(records))
	for _, r := range records {
		if r.TimePercent >= threshold {
			hot = append(hot, r)
		}
	}
	return hot
}

// ClassifyHotspots filters records by threshold and attaches a verdict to each
// surviving record.
func ClassifyHotspots(records []PerformanceRecord, threshold float64, c *Catalogue) []Hotspot {
	if c == nil {
		c = DefaultCatalogue()
	}
	selected := SelectHotspots(records, threshold)
	hotspots := make([]Hotspot, 0, len(selected))
	for i, r := range selected {
		hotspots = append(hotspots, Hotspot{
			Rank:           i + 1,
			Record:         r,
			Classification: c.Classify(r.Name),
		})
	}
	return hotspots
}

// Summarize computes the rollup statistics over a hotspot list.
func Summarize(hotspots []Hotspot) Summary {
	var s Summary
	for _, h := range hotspots {
		s.TotalHotspotTime += h.Record.TimePercent
		if h.Verdict.Parallelizable == Parallelizable {
			s.ParallelizableTime += h.Record.TimePercent
		}
	}
	if s.TotalHotspotTime > 0 {
		s.ParallelEfficiency = s.ParallelizableTime / s.TotalHotspotTime * 100
	}
	s.SpeedupPotential = s.ParallelizableTime / 100
	s.Tier = TierFor(s.ParallelizableTime)
	s.RecommendedPlatforms = tierPlatforms(s.Tier)
	return s
}

// TierFor maps the parallelizable share of execution time to a tier. The
// boundary values fall into the lower tier.
func TierFor(parallelizableTime float64) Tier {
	switch {
	case parallelizableTime > highTierThreshold:
		return TierHigh
	case parallelizableTime > moderateTierThreshold:
		return TierModerate
	default:
		return TierLimited
	}
}

func tierPlatforms(t Tier) string {
	switch t {
	case TierHigh:
		return "OpenMP + CUDA (heterogeneous approach)"
	case TierModerate:
		return "OpenMP (CPU focus)"
	default:
		return ""
	}
}
