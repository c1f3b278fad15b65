package analyzer

import (
	"fmt"
	"strings"
)

// FormatPercent 将百分比格式化为两位小数，例如 "12.50%"。
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

// FormatSeconds 将秒数转换为人类可读的字符串。
// 小于 1 秒时使用毫秒，便于阅读 gprof 中常见的 0.01s 级数据。
func FormatSeconds(s float64) string {
	switch {
	case s >= 1:
		return fmt.Sprintf("%.2fs", s)
	case s >= 0.001:
		return fmt.Sprintf("%.2fms", s*1000)
	case s > 0:
		return fmt.Sprintf("%.2fus", s*1e6)
	default:
		return "0s"
	}
}

// FormatParallelizable 返回报告中使用的大写结论 (YES / NO / UNKNOWN)。
func FormatParallelizable(p Parallelizability) string {
	return strings.ToUpper(p.String())
}

// FormatPlatforms 以逗号连接平台列表。
func FormatPlatforms(platforms []string) string {
	if len(platforms) == 0 {
		return "-"
	}
	return strings.Join(platforms, ", ")
}

// tierHeadline 返回等级对应的标题行。
func tierHeadline(t Tier) string {
	switch t {
	case TierHigh:
		return "HIGH PARALLELIZATION POTENTIAL"
	case TierModerate:
		return "MODERATE PARALLELIZATION POTENTIAL"
	default:
		return "LIMITED PARALLELIZATION POTENTIAL"
	}
}

// FormatSecondsDelta 格式化带符号的时间变化，例如 "-2.10s"、"+60.00ms"。
func FormatSecondsDelta(d float64) string {
	switch {
	case d > 0:
		return "+" + FormatSeconds(d)
	case d < 0:
		return "-" + FormatSeconds(-d)
	default:
		return "0s"
	}
}

// FormatSpeedup 格式化加速比，无法计算时返回 "-"。
func FormatSpeedup(s float64) string {
	if s <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2fx", s)
}
