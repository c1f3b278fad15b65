package analyzer

import (
	"math"
	"sort"
)

// DeltaStatus tells whether a function appears in both compared reports.
type DeltaStatus string

const (
	DeltaChanged DeltaStatus = "changed" // present in both reports
	DeltaNew     DeltaStatus = "new"     // only in the after report
	DeltaRemoved DeltaStatus = "removed" // only in the before report
)

// FunctionDelta is the change of one function between two runs.
type FunctionDelta struct {
	Name              string      `json:"name"`
	Status            DeltaStatus `json:"status"`
	BeforePercent     float64     `json:"beforePercent"`
	AfterPercent      float64     `json:"afterPercent"`
	BeforeSelfSeconds float64     `json:"beforeSelfSeconds"`
	AfterSelfSeconds  float64     `json:"afterSelfSeconds"`
	SelfSecondsChange float64     `json:"selfSecondsChange"` // after - before
	Speedup           float64     `json:"speedup"`           // before / after self time, 0 if either side is 0
}

// Comparison is a per-function diff of two reports, e.g. a serial run and a
// parallel run of the same program.
type Comparison struct {
	Before             string          `json:"before"`
	After              string          `json:"after"`
	BeforeTotalSeconds float64         `json:"beforeTotalSeconds"`
	AfterTotalSeconds  float64         `json:"afterTotalSeconds"`
	Speedup            float64         `json:"speedup"` // measured, total before / total after
	Functions          []FunctionDelta `json:"functions"`
}

type functionTotals struct {
	percent float64
	self    float64
}

// CompareRecords diffs two record sets by function name. Rows that share a
// name are summed first. Functions are ordered by the size of their self
// time change, largest first.
func CompareRecords(before, after []PerformanceRecord) *Comparison {
	oldTotals, oldSum := totalsByName(before)
	newTotals, newSum := totalsByName(after)

	c := &Comparison{
		BeforeTotalSeconds: oldSum,
		AfterTotalSeconds:  newSum,
		Speedup:            ratio(oldSum, newSum),
	}

	for name, o := range oldTotals {
		n, ok := newTotals[name]
		status := DeltaChanged
		if !ok {
			status = DeltaRemoved
		}
		c.Functions = append(c.Functions, newFunctionDelta(name, status, o, n))
	}
	for name, n := range newTotals {
		if _, ok := oldTotals[name]; !ok {
			c.Functions = append(c.Functions, newFunctionDelta(name, DeltaNew, functionTotals{}, n))
		}
	}

	sort.Slice(c.Functions, func(i, j int) bool {
		ci, cj := math.Abs(c.Functions[i].SelfSecondsChange), math.Abs(c.Functions[j].SelfSecondsChange)
		if ci != cj {
			return ci > cj
		}
		return c.Functions[i].Name < c.Functions[j].Name
	})
	return c
}

func newFunctionDelta(name string, status DeltaStatus, o, n functionTotals) FunctionDelta {
	return FunctionDelta{
		Name:              name,
		Status:            status,
		BeforePercent:     o.percent,
		AfterPercent:      n.percent,
		BeforeSelfSeconds: o.self,
		AfterSelfSeconds:  n.self,
		SelfSecondsChange: n.self - o.self,
		Speedup:           ratio(o.self, n.self),
	}
}

func totalsByName(records []PerformanceRecord) (map[string]functionTotals, float64) {
	totals := make(map[string]functionTotals, len(records))
	sum := 0.0
	for _, r := range records {
		t := totals[r.Name]
		t.percent += r.TimePercent
		t.self += r.SelfSeconds
		totals[r.Name] = t
		sum += r.SelfSeconds
	}
	return totals, sum
}

func ratio(before, after float64) float64 {
	if before <= 0 || after <= 0 {
		return 0
	}
	return before / after
}
