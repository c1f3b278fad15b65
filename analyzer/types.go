package analyzer

import (
	"fmt"
	"strings"
)

// --- 输入记录 ---

// PerformanceRecord 代表 flat profile 中单个函数的性能数据。
// 创建后不再修改。
type PerformanceRecord struct {
	Name              string  `json:"name"`              // 函数名 (可能是 mangled 或被截断的名字)
	TimePercent       float64 `json:"timePercent"`       // 占总执行时间的百分比
	CumulativeSeconds float64 `json:"cumulativeSeconds"` // 按 profiler 原始顺序累计的秒数
	SelfSeconds       float64 `json:"selfSeconds"`       // 函数自身耗时 (不含被调用者)
	Calls             string  `json:"calls"`             // 调用次数，缺失或非数字时为 "0"
}

// InputKind 表示报告的来源格式。
type InputKind string

const (
	InputAuto  InputKind = "auto"  // 自动识别
	InputGprof InputKind = "gprof" // gprof 文本报告
	InputPprof InputKind = "pprof" // pprof protobuf CPU profile
)

// ParseInputKind 将字符串转换为 InputKind，空字符串视为 auto。
func ParseInputKind(s string) (InputKind, error) {
	switch k := InputKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return InputAuto, nil
	case InputAuto, InputGprof, InputPprof:
		return k, nil
	default:
		return "", fmt.Errorf("unsupported input type: '%s'", s)
	}
}

// --- 分类结果 ---

// Parallelizability 是三态的并行化结论。零值为 unknown。
type Parallelizability int

const (
	ParallelizableUnknown Parallelizability = iota
	Parallelizable
	NotParallelizable
)

func (p Parallelizability) String() string {
	switch p {
	case Parallelizable:
		return "yes"
	case NotParallelizable:
		return "no"
	default:
		return "unknown"
	}
}

// MarshalText 让 JSON 输出使用 "yes" / "no" / "unknown"。
func (p Parallelizability) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText 接受 yes/no/unknown 以及 true/false。
func (p *Parallelizability) UnmarshalText(text []byte) error {
	v, err := parseParallelizability(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func parseParallelizability(s string) (Parallelizability, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true":
		return Parallelizable, nil
	case "no", "false":
		return NotParallelizable, nil
	case "unknown", "", "null", "~":
		return ParallelizableUnknown, nil
	default:
		return ParallelizableUnknown, fmt.Errorf("invalid parallelizable value: '%s'", s)
	}
}

// Verdict 是附加在每个热点上的并行化建议。
type Verdict struct {
	Parallelizable Parallelizability `json:"parallelizable" yaml:"parallelizable"`
	Complexity     string            `json:"complexity" yaml:"complexity"`        // 粗略的复杂度标签，仅供参考
	AccessPattern  string            `json:"accessPattern" yaml:"access_pattern"` // 数据依赖 / 访存模式
	Platforms      []string          `json:"platforms" yaml:"platforms"`          // 推荐的执行平台 (有序)
	Strategy       string            `json:"strategy" yaml:"strategy"`            // 推荐的并行化手段
	Justification  string            `json:"justification" yaml:"justification"`  // 理由
}

// MatchSource 记录 verdict 由哪一层规则得出。
type MatchSource string

const (
	MatchCatalogue MatchSource = "catalogue"
	MatchHeuristic MatchSource = "heuristic"
	MatchFallback  MatchSource = "fallback"
)

// Classification 是对单个函数名的分类结果。
type Classification struct {
	Archetype string      `json:"archetype,omitempty"` // 命中的 archetype，unknown 时为空
	MatchedBy MatchSource `json:"matchedBy"`
	Verdict   Verdict     `json:"verdict"`
}

// Hotspot 是超过阈值的函数及其分类结果。
type Hotspot struct {
	Rank   int               `json:"rank"` // 从 1 开始
	Record PerformanceRecord `json:"record"`
	Classification
}

// Tier 是根据可并行时间得出的粗粒度等级。
type Tier string

const (
	TierHigh     Tier = "high"
	TierModerate Tier = "moderate"
	TierLimited  Tier = "limited"
)

// Summary 是对全部热点的汇总统计。
type Summary struct {
	TotalHotspotTime     float64 `json:"totalHotspotTime"`   // 所有热点 time% 之和
	ParallelizableTime   float64 `json:"parallelizableTime"` // 可并行热点 time% 之和
	ParallelEfficiency   float64 `json:"parallelEfficiency"` // 可并行部分占热点的百分比
	SpeedupPotential     float64 `json:"speedupPotential"`   // 理论倍数，并非实测加速比
	Tier                 Tier    `json:"tier"`
	RecommendedPlatforms string  `json:"recommendedPlatforms,omitempty"`
}

// Report 是一次分析的完整结果，渲染层只依赖这个结构。
type Report struct {
	Source         string    `json:"source"`
	Input          InputKind `json:"input"`
	Threshold      float64   `json:"threshold"`
	TotalFunctions int       `json:"totalFunctions"` // 提取到的记录总数
	SkippedLines   int       `json:"skippedLines"`   // 被当作噪声跳过的候选行
	Hotspots       []Hotspot `json:"hotspots"`
	Summary        Summary   `json:"summary"`
}

// ErrorResult 用于在 JSON 格式中返回错误信息
type ErrorResult struct {
	Error string `json:"error"`
}
