package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-kit/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZephyrDeng/hotspot-analyzer-mcp/analyzer"
)

func newTestHandlers() *toolHandlers {
	return &toolHandlers{
		logger:    log.NewNopLogger(),
		catalogue: analyzer.DefaultCatalogue(),
		threshold: analyzer.DefaultThreshold,
	}
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "text", text.Type)
	return text.Text
}

func TestHandleAnalyzeHotspots(t *testing.T) {
	h := newTestHandlers()
	ctx := context.Background()

	t.Run("DefaultText", func(t *testing.T) {
		res, err := h.handleAnalyzeHotspots(ctx, callRequest("analyze_hotspots", map[string]interface{}{
			"report_uri": fixturePath,
		}))
		require.NoError(t, err)
		assert.Contains(t, resultText(t, res), "6 of 7 functions")
	})

	t.Run("JSONWithOptions", func(t *testing.T) {
		res, err := h.handleAnalyzeHotspots(ctx, callRequest("analyze_hotspots", map[string]interface{}{
			"report_uri":    fixturePath,
			"threshold":     float64(5),
			"input_type":    "gprof",
			"output_format": "json",
			"top_n":         float64(1),
		}))
		require.NoError(t, err)

		var report analyzer.Report
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &report))
		assert.Equal(t, 5.0, report.Threshold)
		require.Len(t, report.Hotspots, 1)
		assert.Equal(t, "matrix_multiply", report.Hotspots[0].Record.Name)
		assert.InDelta(t, 95.0, report.Summary.TotalHotspotTime, 1e-9)
	})

	errorCases := []struct {
		name string
		args map[string]interface{}
	}{
		{name: "MissingURI", args: map[string]interface{}{}},
		{name: "URINotString", args: map[string]interface{}{"report_uri": 42}},
		{name: "NegativeThreshold", args: map[string]interface{}{"report_uri": fixturePath, "threshold": float64(-1)}},
		{name: "BadInputType", args: map[string]interface{}{"report_uri": fixturePath, "input_type": "perf"}},
		{name: "BadOutputFormat", args: map[string]interface{}{"report_uri": fixturePath, "output_format": "xml"}},
		{name: "MissingFile", args: map[string]interface{}{"report_uri": "/no/such/gprof.txt"}},
		{name: "UnsupportedScheme", args: map[string]interface{}{"report_uri": "ftp://example.com/gprof.txt"}},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.handleAnalyzeHotspots(ctx, callRequest("analyze_hotspots", tt.args))
			assert.Error(t, err)
			assert.Nil(t, res)
		})
	}
}

func TestHandleClassifyFunction(t *testing.T) {
	h := newTestHandlers()
	ctx := context.Background()

	t.Run("Text", func(t *testing.T) {
		res, err := h.handleClassifyFunction(ctx, callRequest("classify_function", map[string]interface{}{
			"function_name": "blocked_matrix_multiply",
		}))
		require.NoError(t, err)
		text := resultText(t, res)
		assert.Contains(t, text, "Function: blocked_matrix_multiply")
		assert.Contains(t, text, "├─ Archetype: matrix_multiply (catalogue)")
		assert.Contains(t, text, "├─ Parallelizable: YES")
		assert.Contains(t, text, "├─ Recommended Platforms: OpenMP, CUDA\n")
	})

	t.Run("UnknownText", func(t *testing.T) {
		res, err := h.handleClassifyFunction(ctx, callRequest("classify_function", map[string]interface{}{
			"function_name": "foo_bar_baz",
		}))
		require.NoError(t, err)
		text := resultText(t, res)
		assert.Contains(t, text, "├─ Archetype: - (fallback)")
		assert.Contains(t, text, "├─ Parallelizable: UNKNOWN")
	})

	t.Run("JSON", func(t *testing.T) {
		res, err := h.handleClassifyFunction(ctx, callRequest("classify_function", map[string]interface{}{
			"function_name": "image_preprocess",
			"output_format": "json",
		}))
		require.NoError(t, err)

		var cls analyzer.Classification
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &cls))
		assert.Equal(t, analyzer.ArchetypeDataPreprocessing, cls.Archetype)
		assert.Equal(t, analyzer.MatchHeuristic, cls.MatchedBy)
		assert.Equal(t, analyzer.Parallelizable, cls.Verdict.Parallelizable)
	})

	t.Run("NilCatalogue", func(t *testing.T) {
		bare := &toolHandlers{logger: log.NewNopLogger()}
		res, err := bare.handleClassifyFunction(ctx, callRequest("classify_function", map[string]interface{}{
			"function_name": "data_postprocessing",
		}))
		require.NoError(t, err)
		assert.Contains(t, resultText(t, res), "├─ Parallelizable: NO")
	})

	for name, args := range map[string]map[string]interface{}{
		"MissingName":     {},
		"BlankName":       {"function_name": "   "},
		"BadOutputFormat": {"function_name": "matrix_multiply", "output_format": "xml"},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := h.handleClassifyFunction(ctx, callRequest("classify_function", args))
			assert.Error(t, err)
			assert.Nil(t, res)
		})
	}
}

func TestHandleCompareReports(t *testing.T) {
	h := newTestHandlers()
	ctx := context.Background()
	after := "analyzer/testdata/matrix_gprof_omp.txt"

	res, err := h.handleCompareReports(ctx, callRequest("compare_reports", map[string]interface{}{
		"before_uri":    fixturePath,
		"after_uri":     after,
		"output_format": "markdown",
		"top_n":         float64(3),
	}))
	require.NoError(t, err)
	text := resultText(t, res)
	assert.Contains(t, text, "# Profile Comparison")
	assert.Contains(t, text, "matrix_vector_multiply")
	assert.NotContains(t, text, "initialize_data")

	for name, args := range map[string]map[string]interface{}{
		"MissingBefore": {"after_uri": after},
		"MissingAfter":  {"before_uri": fixturePath},
		"BadInputType":  {"before_uri": fixturePath, "after_uri": after, "input_type": "perf"},
		"BadFormat":     {"before_uri": fixturePath, "after_uri": after, "output_format": "xml"},
		"MissingFile":   {"before_uri": fixturePath, "after_uri": "/no/such/report.txt"},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := h.handleCompareReports(ctx, callRequest("compare_reports", args))
			assert.Error(t, err)
			assert.Nil(t, res)
		})
	}
}

func TestNewMCPServer(t *testing.T) {
	assert.NotNil(t, newMCPServer(newTestHandlers()))
}
