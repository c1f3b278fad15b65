package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ZephyrDeng/hotspot-analyzer-mcp/analyzer"
)

// toolHandlers 持有 MCP 工具处理器共享的只读状态。
type toolHandlers struct {
	logger    log.Logger
	catalogue *analyzer.Catalogue
	threshold float64 // 请求未指定 threshold 时使用
}

// handleAnalyzeHotspots 处理分析 flat profile 报告的请求。
// 这是 MCP 工具 "analyze_hotspots" 的处理器函数。
func (h *toolHandlers) handleAnalyzeHotspots(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	// --- 1. 获取并验证参数 ---
	reportURI, ok := args["report_uri"].(string)
	if !ok || reportURI == "" {
		return nil, fmt.Errorf("missing or invalid required argument: report_uri (string)")
	}
	threshold, ok := args["threshold"].(float64)
	if !ok {
		threshold = h.threshold
	}
	if threshold < 0 {
		return nil, fmt.Errorf("invalid threshold: %v", threshold)
	}
	inputType, _ := args["input_type"].(string)
	kind, err := analyzer.ParseInputKind(inputType)
	if err != nil {
		return nil, err
	}
	outputFormat, ok := args["output_format"].(string)
	if !ok || outputFormat == "" {
		outputFormat = analyzer.FormatText // 默认输出格式
	}
	topN := 0 // 0 表示输出全部热点
	if topNFloat, ok := args["top_n"].(float64); ok && topNFloat > 0 {
		topN = int(topNFloat)
	}

	level.Info(h.logger).Log("msg", "handling analyze_hotspots", "uri", reportURI, "threshold", threshold,
		"input", kind, "format", outputFormat, "top_n", topN)

	// --- 2. 获取报告文件（本地或下载）并分析 ---
	filePath, cleanup, err := getReportAsFile(ctx, h.logger, reportURI)
	if err != nil {
		return nil, fmt.Errorf("failed to get report file: %w", err)
	}
	defer cleanup() // 确保临时文件（如果创建了）被清理

	a := analyzer.New(
		analyzer.WithLogger(h.logger),
		analyzer.WithCatalogue(h.catalogue),
		analyzer.WithThreshold(threshold),
	)
	report, err := a.AnalyzeFile(filePath, kind)
	if err != nil {
		return nil, err
	}

	// --- 3. 渲染并返回结果 ---
	text, err := analyzer.RenderReport(report, outputFormat, topN)
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}

// handleClassifyFunction 仅根据函数名返回并行化建议，不需要报告文件。
func (h *toolHandlers) handleClassifyFunction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	name, ok := args["function_name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("missing or invalid required argument: function_name (string)")
	}
	outputFormat, ok := args["output_format"].(string)
	if !ok || outputFormat == "" {
		outputFormat = analyzer.FormatText
	}

	c := h.catalogue
	if c == nil {
		c = analyzer.DefaultCatalogue()
	}
	cls := c.Classify(name)
	level.Debug(h.logger).Log("msg", "classified function", "name", name, "archetype", cls.Archetype, "matched_by", cls.MatchedBy)

	switch outputFormat {
	case analyzer.FormatJSON:
		jsonBytes, err := json.MarshalIndent(cls, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal classification: %w", err)
		}
		return textResult(string(jsonBytes)), nil
	case analyzer.FormatText, analyzer.FormatMarkdown:
		return textResult(formatClassification(name, cls)), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

// handleCompareReports 对比两份报告。
func (h *toolHandlers) handleCompareReports(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	beforeURI, ok := args["before_uri"].(string)
	if !ok || beforeURI == "" {
		return nil, fmt.Errorf("missing or invalid required argument: before_uri (string)")
	}
	afterURI, ok := args["after_uri"].(string)
	if !ok || afterURI == "" {
		return nil, fmt.Errorf("missing or invalid required argument: after_uri (string)")
	}
	inputType, _ := args["input_type"].(string)
	kind, err := analyzer.ParseInputKind(inputType)
	if err != nil {
		return nil, err
	}
	outputFormat, ok := args["output_format"].(string)
	if !ok || outputFormat == "" {
		outputFormat = analyzer.FormatText
	}
	topN := 0
	if topNFloat, ok := args["top_n"].(float64); ok && topNFloat > 0 {
		topN = int(topNFloat)
	}

	level.Info(h.logger).Log("msg", "handling compare_reports", "before", beforeURI, "after", afterURI,
		"input", kind, "format", outputFormat)

	beforePath, cleanupBefore, err := getReportAsFile(ctx, h.logger, beforeURI)
	if err != nil {
		return nil, fmt.Errorf("failed to get before report: %w", err)
	}
	defer cleanupBefore()
	afterPath, cleanupAfter, err := getReportAsFile(ctx, h.logger, afterURI)
	if err != nil {
		return nil, fmt.Errorf("failed to get after report: %w", err)
	}
	defer cleanupAfter()

	a := analyzer.New(analyzer.WithLogger(h.logger))
	c, err := a.CompareFiles(beforePath, afterPath, kind)
	if err != nil {
		return nil, err
	}
	text, err := analyzer.RenderComparison(c, outputFormat, topN)
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}

func formatClassification(name string, cls analyzer.Classification) string {
	var b strings.Builder
	v := cls.Verdict
	archetype := cls.Archetype
	if archetype == "" {
		archetype = "-"
	}
	fmt.Fprintf(&b, "Function: %s\n", name)
	fmt.Fprintf(&b, "├─ Archetype: %s (%s)\n", archetype, cls.MatchedBy)
	fmt.Fprintf(&b, "├─ Parallelizable: %s\n", analyzer.FormatParallelizable(v.Parallelizable))
	fmt.Fprintf(&b, "├─ Complexity: %s\n", v.Complexity)
	fmt.Fprintf(&b, "├─ Pattern: %s\n", v.AccessPattern)
	fmt.Fprintf(&b, "├─ Recommended Platforms: %s\n", analyzer.FormatPlatforms(v.Platforms))
	fmt.Fprintf(&b, "├─ Parallelization Strategy: %s\n", v.Strategy)
	fmt.Fprintf(&b, "└─ Justification: %s\n", v.Justification)
	return b.String()
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
	}
}
