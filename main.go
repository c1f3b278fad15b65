package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/ZephyrDeng/hotspot-analyzer-mcp/analyzer"
)

const (
	appName    = "hotspot-analyzer"
	appVersion = "0.1.0"
)

type cliConfig struct {
	verbose   bool
	threshold float64
	output    string
	input     string
	topN      int
	catalogue string
	report    string
	before    string
	after     string
}

func main() {
	os.Exit(runCLI(os.Args[1:], os.Stdout, os.Stderr))
}

// runCLI 解析命令行并执行，返回进程退出码：0 成功，1 分析失败，2 参数错误。
func runCLI(args []string, stdout, stderr io.Writer) int {
	var cfg cliConfig

	exitCode := -1
	app := kingpin.New(appName, "Find CPU hotspots in a gprof flat profile (or pprof CPU profile) and recommend how to parallelize them.").
		UsageWriter(stdout).
		ErrorWriter(stderr).
		Terminate(func(code int) { exitCode = code })
	app.Version(appVersion)
	app.HelpFlag.Short('h')
	app.Flag("verbose", "Enable verbose logging.").Short('v').Default("false").BoolVar(&cfg.verbose)
	app.Flag("threshold", "Minimum share of execution time (percent) for a function to count as a hotspot.").
		Envar("HOTSPOT_THRESHOLD").Default("1.0").Float64Var(&cfg.threshold)
	app.Flag("output", "Output format.").Short('o').Default(analyzer.FormatText).
		EnumVar(&cfg.output, analyzer.FormatText, analyzer.FormatMarkdown, analyzer.FormatJSON)
	app.Flag("input", "Report type.").Default(string(analyzer.InputAuto)).
		EnumVar(&cfg.input, string(analyzer.InputAuto), string(analyzer.InputGprof), string(analyzer.InputPprof))
	app.Flag("top", "List at most this many hotspots (0 lists all).").Default("0").IntVar(&cfg.topN)
	app.Flag("catalogue", "YAML file with archetype rules replacing or extending the built-in catalogue.").
		Envar("HOTSPOT_CATALOGUE").StringVar(&cfg.catalogue)

	analyzeCmd := app.Command("analyze", "Analyze a profiler report.").Default()
	analyzeCmd.Arg("report", "Path or URI (file://, http://, https://) of the report.").Required().StringVar(&cfg.report)

	compareCmd := app.Command("compare", "Compare two reports of the same program, e.g. a serial and a parallel run.")
	compareCmd.Arg("before", "Path or URI of the baseline report.").Required().StringVar(&cfg.before)
	compareCmd.Arg("after", "Path or URI of the report to compare against the baseline.").Required().StringVar(&cfg.after)

	serveCmd := app.Command("serve", "Serve the analyzer as MCP tools over stdio.")

	parsedCmd, err := app.Parse(args)
	if exitCode >= 0 {
		// --help / --version 已经输出
		return exitCode
	}
	if err != nil {
		fmt.Fprintf(stdout, "error: %v\n\n", err)
		app.Usage(nil)
		return 2
	}
	if cfg.threshold < 0 {
		fmt.Fprintf(stdout, "error: threshold must not be negative\n")
		return 2
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(stderr))
	if !cfg.verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	catalogue := analyzer.DefaultCatalogue()
	if cfg.catalogue != "" {
		catalogue, err = analyzer.LoadCatalogueFile(cfg.catalogue)
		if err != nil {
			return checkError(stderr, err)
		}
		level.Info(logger).Log("msg", "loaded catalogue", "path", cfg.catalogue, "archetypes", len(catalogue.Archetypes()))
	}

	ctx := context.Background()
	switch parsedCmd {
	case analyzeCmd.FullCommand():
		return checkError(stderr, runAnalyze(ctx, logger, catalogue, cfg, stdout))
	case compareCmd.FullCommand():
		return checkError(stderr, runCompare(ctx, logger, cfg, stdout))
	case serveCmd.FullCommand():
		h := &toolHandlers{logger: logger, catalogue: catalogue, threshold: cfg.threshold}
		level.Info(logger).Log("msg", "starting MCP server via stdio", "name", appName, "version", appVersion)
		return checkError(stderr, server.ServeStdio(newMCPServer(h)))
	default:
		level.Error(logger).Log("msg", "unknown command", "cmd", parsedCmd)
		return 2
	}
}

func runAnalyze(ctx context.Context, logger log.Logger, catalogue *analyzer.Catalogue, cfg cliConfig, out io.Writer) error {
	filePath, cleanup, err := getReportAsFile(ctx, logger, cfg.report)
	if err != nil {
		return err
	}
	defer cleanup()

	a := analyzer.New(
		analyzer.WithLogger(logger),
		analyzer.WithCatalogue(catalogue),
		analyzer.WithThreshold(cfg.threshold),
	)
	report, err := a.AnalyzeFile(filePath, analyzer.InputKind(cfg.input))
	if err != nil {
		return err
	}
	text, err := analyzer.RenderReport(report, cfg.output, cfg.topN)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, text)
	return err
}

func runCompare(ctx context.Context, logger log.Logger, cfg cliConfig, out io.Writer) error {
	beforePath, cleanupBefore, err := getReportAsFile(ctx, logger, cfg.before)
	if err != nil {
		return err
	}
	defer cleanupBefore()
	afterPath, cleanupAfter, err := getReportAsFile(ctx, logger, cfg.after)
	if err != nil {
		return err
	}
	defer cleanupAfter()

	a := analyzer.New(analyzer.WithLogger(logger))
	c, err := a.CompareFiles(beforePath, afterPath, analyzer.InputKind(cfg.input))
	if err != nil {
		return err
	}
	text, err := analyzer.RenderComparison(c, cfg.output, cfg.topN)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, text)
	return err
}

func checkError(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}

// newMCPServer 注册全部工具并返回 MCP 服务器。
func newMCPServer(h *toolHandlers) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"HotspotAnalyzer",
		appVersion,
		server.WithLogging(),  // 启用日志记录
		server.WithRecovery(), // 启用 panic 恢复
	)

	analyzeTool := mcp.NewTool("analyze_hotspots",
		mcp.WithDescription("分析 gprof flat profile 文本报告 (或 pprof CPU profile)，找出热点函数并给出并行化建议。"),
		mcp.WithString("report_uri",
			mcp.Description("要分析的报告的 URI (支持本地路径、'file://'、'http://'、'https://')。"),
			mcp.Required(),
		),
		mcp.WithNumber("threshold",
			mcp.Description("热点阈值：占总执行时间的百分比，大于等于该值的函数视为热点。"),
			mcp.DefaultNumber(h.threshold),
		),
		mcp.WithString("input_type",
			mcp.Description("报告类型。auto 会自动识别。"),
			mcp.DefaultString(string(analyzer.InputAuto)),
			mcp.Enum(string(analyzer.InputAuto), string(analyzer.InputGprof), string(analyzer.InputPprof)),
		),
		mcp.WithString("output_format",
			mcp.Description("分析结果的输出格式。"),
			mcp.DefaultString(analyzer.FormatText),
			mcp.Enum(analyzer.FormatText, analyzer.FormatMarkdown, analyzer.FormatJSON),
		),
		mcp.WithNumber("top_n",
			mcp.Description("最多列出的热点数量，0 表示全部。"),
			mcp.DefaultNumber(0),
		),
	)

	classifyTool := mcp.NewTool("classify_function",
		mcp.WithDescription("根据函数名给出并行化结论、复杂度、推荐平台和策略。"),
		mcp.WithString("function_name",
			mcp.Description("要分类的函数名。"),
			mcp.Required(),
		),
		mcp.WithString("output_format",
			mcp.Description("输出格式。"),
			mcp.DefaultString(analyzer.FormatText),
			mcp.Enum(analyzer.FormatText, analyzer.FormatJSON),
		),
	)

	compareTool := mcp.NewTool("compare_reports",
		mcp.WithDescription("对比同一程序的两份报告 (例如串行版本与并行版本)，给出每个函数的耗时变化和实测加速比。"),
		mcp.WithString("before_uri",
			mcp.Description("基准报告的 URI。"),
			mcp.Required(),
		),
		mcp.WithString("after_uri",
			mcp.Description("用于对比的新报告的 URI。"),
			mcp.Required(),
		),
		mcp.WithString("input_type",
			mcp.Description("报告类型。auto 会自动识别。"),
			mcp.DefaultString(string(analyzer.InputAuto)),
			mcp.Enum(string(analyzer.InputAuto), string(analyzer.InputGprof), string(analyzer.InputPprof)),
		),
		mcp.WithString("output_format",
			mcp.Description("输出格式。"),
			mcp.DefaultString(analyzer.FormatText),
			mcp.Enum(analyzer.FormatText, analyzer.FormatMarkdown, analyzer.FormatJSON),
		),
		mcp.WithNumber("top_n",
			mcp.Description("最多列出的函数数量，0 表示全部。"),
			mcp.DefaultNumber(0),
		),
	)

	mcpServer.AddTool(analyzeTool, h.handleAnalyzeHotspots)
	mcpServer.AddTool(classifyTool, h.handleClassifyFunction)
	mcpServer.AddTool(compareTool, h.handleCompareReports)
	return mcpServer
}
