package analyzer_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZephyrDeng/hotspot-analyzer-mcp/analyzer"
)

const flatHeader = `Flat profile:

Each sample counts as 0.01 seconds.
  %   cumulative   self              self     total
 time   seconds   seconds    calls  ms/call  ms/call  name
`

func flatReport(rows ...string) string {
	return flatHeader + strings.Join(rows, "\n") + "\n"
}

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestParseFlatProfile(t *testing.T) {
	t.Run("Fixture", func(t *testing.T) {
		records, err := analyzer.ParseFlatProfile(loadFixture(t, "matrix_gprof.txt"))
		require.NoError(t, err)

		names := make([]string, 0, len(records))
		for _, r := range records {
			names = append(names, r.Name)
		}
		assert.Equal(t, []string{
			"matrix_multiply",
			"blocked_matrix_multiply",
			"data_postprocessing",
			"matrix_vector_multiply",
			"initialize_data",
			"data_preprocessing",
			"calculate_checksum",
		}, names)

		assert.Equal(t, analyzer.PerformanceRecord{
			Name:              "data_postprocessing",
			TimePercent:       7.5,
			CumulativeSeconds: 3.6,
			SelfSeconds:       0.3,
			Calls:             "100",
		}, records[2])
	})

	t.Run("NoiseIsSkipped", func(t *testing.T) {
		text := flatReport(
			" 40.00      0.40     0.40      10    40.00    40.00  alpha",
			"",
			"this line is a wrapped continuation",
			" 30.00      0.70     0.30",
			" abc      0.70     0.30      10    40.00    40.00  broken",
			" 30.00      1.00     0.30      20    15.00    15.00  beta",
			"seconds    for by this function",
			"cumulative a running sum",
			" 20.00      1.20     0.20       5    40.00    40.00  gamma",
			" 10.00      1.30     0.10       5     x.yz    40.00  delta",
		)
		records, err := analyzer.ParseFlatProfile(text)
		require.NoError(t, err)
		require.Len(t, records, 4)

		assert.Equal(t, analyzer.PerformanceRecord{Name: "alpha", TimePercent: 40, CumulativeSeconds: 0.4, SelfSeconds: 0.4, Calls: "10"}, records[0])
		assert.Equal(t, analyzer.PerformanceRecord{Name: "beta", TimePercent: 30, CumulativeSeconds: 1.0, SelfSeconds: 0.3, Calls: "20"}, records[1])
		assert.Equal(t, analyzer.PerformanceRecord{Name: "gamma", TimePercent: 20, CumulativeSeconds: 1.2, SelfSeconds: 0.2, Calls: "5"}, records[2])
		// Only the first three numeric columns are load-bearing.
		assert.Equal(t, "delta", records[3].Name)
	})

	t.Run("SortedDescendingWithStableTies", func(t *testing.T) {
		text := flatReport(
			"  5.00      0.05     0.05       1     5.00     5.00  first_five",
			" 10.00      0.15     0.10       1    10.00    10.00  ten",
			"  5.00      0.20     0.05       1     5.00     5.00  second_five",
			" 50.00      0.70     0.50       1    50.00    50.00  fifty",
		)
		records, err := analyzer.ParseFlatProfile(text)
		require.NoError(t, err)

		var names []string
		for _, r := range records {
			names = append(names, r.Name)
		}
		assert.Equal(t, []string{"fifty", "ten", "first_five", "second_five"}, names)
	})

	t.Run("Idempotent", func(t *testing.T) {
		text := loadFixture(t, "matrix_gprof.txt")
		first, err := analyzer.ParseFlatProfile(text)
		require.NoError(t, err)
		second, err := analyzer.ParseFlatProfile(text)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("PreambleBeforeHeaderIsIgnored", func(t *testing.T) {
		text := "Flat profile:\n" +
			" 99.00      9.00     9.00       1     1.00     1.00  before_header\n" +
			"  %   cumulative   self              self     total\n" +
			" 12.00      1.00     1.00       1     1.00     1.00  after_header\n"
		records, err := analyzer.ParseFlatProfile(text)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "after_header", records[0].Name)
	})

	t.Run("StopsAtCallGraph", func(t *testing.T) {
		text := flatReport(
			" 60.00      0.60     0.60       1    60.00    60.00  kept",
			"   Call graph (indented marker)",
			" 30.00      0.90     0.30       1    30.00    30.00  after_indented_marker",
		) + "Call graph (explanation follows)\n" +
			" 10.00      1.00     0.10       1    10.00    10.00  in_call_graph\n"
		records, err := analyzer.ParseFlatProfile(text)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "kept", records[0].Name)
	})

	t.Run("NegativeValuesAreDiscarded", func(t *testing.T) {
		text := flatReport(
			" -1.00      0.60     0.60       1    60.00    60.00  negative_time",
			" 10.00      0.60    -0.60       1    60.00    60.00  negative_self",
			" 10.00     -0.60     0.60       1    60.00    60.00  negative_cumulative",
		)
		records, err := analyzer.ParseFlatProfile(text)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "negative_cumulative", records[0].Name)
	})

	t.Run("NonFiniteValuesAreDiscarded", func(t *testing.T) {
		text := flatReport(
			"   NaN      0.60     0.60       1    60.00    60.00  not_a_number",
			" 10.00      +Inf     0.60       1    60.00    60.00  infinite",
			" 10.00      0.60     0.60       1    60.00    60.00  finite",
		)
		records, err := analyzer.ParseFlatProfile(text)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "finite", records[0].Name)
	})

	t.Run("CallsNormalization", func(t *testing.T) {
		text := flatReport(
			" 30.00      0.30     0.30     null     0.00     0.00  placeholder",
			" 20.00      0.50     0.20      abc     0.00     0.00  textual",
			" 10.00      0.60     0.10      500     0.00     0.00  numeric",
		)
		records, err := analyzer.ParseFlatProfile(text)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "0", records[0].Calls)
		assert.Equal(t, "0", records[1].Calls)
		assert.Equal(t, "500", records[2].Calls)
	})

	t.Run("NameIsLastField", func(t *testing.T) {
		text := flatReport(
			" 10.00      0.10     0.10       3     0.00     0.00  0x4005d0  std::vector<int>::push_back",
		)
		records, err := analyzer.ParseFlatProfile(text)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "std::vector<int>::push_back", records[0].Name)
	})

	t.Run("Scenario", func(t *testing.T) {
		text := flatReport(
			"12.50  1.20  1.00  500  matrix_multiply",
			"0.40  1.21  0.01  10  helper",
		)
		records, err := analyzer.ParseFlatProfile(text)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, analyzer.PerformanceRecord{
			Name: "matrix_multiply", TimePercent: 12.5, CumulativeSeconds: 1.2, SelfSeconds: 1.0, Calls: "500",
		}, records[0])
	})
}

func TestParseFlatProfileFailures(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{name: "Empty", text: "", want: analyzer.ErrEmptyReport},
		{name: "Whitespace", text: "  \n\t\n", want: analyzer.ErrEmptyReport},
		{name: "NoMarker", text: "Call graph\n 10.00 0.10 0.10 1 0.00 0.00 f\n", want: analyzer.ErrNoFlatProfile},
		{name: "MarkerOnly", text: "Flat profile:\n", want: analyzer.ErrNoValidRows},
		{name: "HeaderWithoutRows", text: flatHeader, want: analyzer.ErrNoValidRows},
		{name: "OnlyNoise", text: flatReport("garbage line with five tokens", " 1.0 2.0"), want: analyzer.ErrNoValidRows},
		{name: "NoHeader", text: "Flat profile:\n 10.00 0.10 0.10 1 0.00 0.00 f\n", want: analyzer.ErrNoValidRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := analyzer.ParseFlatProfile(tt.text)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, records)
		})
	}
}
