package analyzer

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/pprof/profile"
)

// FlatProfileFromPprof 将 pprof CPU profile 转换为与 gprof flat profile 相同结构的记录。
// pprof 没有调用次数，Calls 固定为 "0"。
func FlatProfileFromPprof(p *profile.Profile) ([]PerformanceRecord, error) {
	return flatProfileFromPprof(p, log.NewNopLogger())
}

func flatProfileFromPprof(p *profile.Profile, logger log.Logger) ([]PerformanceRecord, error) {
	if p == nil {
		return nil, ErrNoValidRows
	}

	// --- 1. 确定用于分析的值的索引 (通常是 CPU 时间) ---
	valueIndex := -1
	for i, st := range p.SampleType {
		if (st.Type == "cpu" || st.Type == "samples") && (st.Unit == "nanoseconds" || st.Unit == "count") {
			// 优先选择 'cpu'/'nanoseconds'，否则选择 'samples'/'count'
			if valueIndex == -1 || st.Type == "cpu" {
				valueIndex = i
			}
		}
	}
	if valueIndex == -1 {
		switch {
		case len(p.SampleType) > 1:
			valueIndex = 1
		case len(p.SampleType) == 1:
			valueIndex = 0
		default:
			return nil, fmt.Errorf("无法从 profile 样本类型中确定值类型: %w", ErrNoValidRows)
		}
		level.Warn(logger).Log("msg", "could not identify CPU time sample type, using fallback index",
			"index", valueIndex, "type", p.SampleType[valueIndex].Type, "unit", p.SampleType[valueIndex].Unit)
	}
	unit := p.SampleType[valueIndex].Unit

	// --- 2. 按函数聚合 Flat 值 ---
	flat := make(map[string]int64)
	total := int64(0)
	for _, s := range p.Sample {
		if len(s.Location) == 0 || len(s.Value) <= valueIndex {
			continue
		}
		v := s.Value[valueIndex]
		total += v
		// Flat 时间归因于堆栈中最顶层的函数
		for _, line := range s.Location[0].Line {
			if line.Function != nil {
				flat[line.Function.Name] += v
				break
			}
		}
	}
	if total <= 0 || len(flat) == 0 {
		level.Warn(logger).Log("msg", "pprof profile has no samples for the selected value type", "unit", unit)
		return nil, ErrNoValidRows
	}

	// --- 3. 排序 (值相同时按函数名，保证输出确定) ---
	stats := make([]functionStat, 0, len(flat))
	for name, v := range flat {
		stats = append(stats, functionStat{Name: name, Flat: v})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Flat != stats[j].Flat {
			return stats[i].Flat > stats[j].Flat
		}
		return stats[i].Name < stats[j].Name
	})

	// --- 4. 转换为记录 ---
	toSeconds := secondsPerUnit(p, unit)
	records := make([]PerformanceRecord, 0, len(stats))
	cumulative := 0.0
	for _, st := range stats {
		self := float64(st.Flat) * toSeconds
		cumulative += self
		records = append(records, PerformanceRecord{
			Name:              st.Name,
			TimePercent:       float64(st.Flat) / float64(total) * 100,
			CumulativeSeconds: cumulative,
			SelfSeconds:       self,
			Calls:             defaultCalls,
		})
	}
	level.Debug(logger).Log("msg", "converted pprof profile", "functions", len(records), "unit", unit)
	return records, nil
}

// functionStat 保存函数的聚合统计信息。
type functionStat struct {
	Name string
	Flat int64
}

// secondsPerUnit 返回一个样本值对应的秒数。无法换算时按 1 处理 (即原始值)。
func secondsPerUnit(p *profile.Profile, unit string) float64 {
	if unit == "nanoseconds" {
		return float64(time.Nanosecond) / float64(time.Second)
	}
	if unit == "count" && p.PeriodType != nil && p.PeriodType.Unit == "nanoseconds" && p.Period > 0 {
		return float64(p.Period) / float64(time.Second)
	}
	return 1
}
