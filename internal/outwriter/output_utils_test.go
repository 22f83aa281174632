package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFormatters(t *testing.T) {
	tests := []struct {
		name      string
		precision int
		value     float64
		expected  string
		count     string
	}{
		{
			name:      "precision 2",
			precision: 2,
			value:     3.14159,
			expected:  "3.14",
			count:     "3",
		},
		{
			name:      "precision 0",
			precision: 0,
			value:     66.6666,
			expected:  "67",
			count:     "67",
		},
		{
			name:      "negative value",
			precision: 1,
			value:     -42.567,
			expected:  "-42.6",
			count:     "-43",
		},
		{
			name:      "missing value",
			precision: 1,
			value:     math.NaN(),
			expected:  "",
			count:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fmtValue, fmtCount := createFormatters(tt.precision)
			assert.Equal(t, tt.expected, fmtValue(tt.value))
			assert.Equal(t, tt.count, fmtCount(tt.value))
		})
	}
}

func TestWriteJSON(t *testing.T) {
	jan := schema.PeriodAt(mustDate(t, "2025-01-10"), schema.Month)
	tests := []struct {
		name     string
		data     any
		expected string
	}{
		{
			name: "series with a missing value",
			data: schema.Series{Name: "training", Start: jan, Values: []float64{75, math.NaN()}},
			expected: `{
  "name": "training",
  "granularity": "month",
  "points": [
    {
      "period": "2025-01",
      "label": "Jan 2025",
      "value": 75
    },
    {
      "period": "2025-02",
      "label": "Feb 2025",
      "value": null
    }
  ]
}
`,
		},
		{
			name:     "period",
			data:     jan,
			expected: `"2025-01"` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeJSON(&buf, tt.data))
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestWriteJSONError(t *testing.T) {
	var buf bytes.Buffer
	err := writeJSON(&buf, map[string]any{"weights": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON")
}

func TestWriteCSVWithHeader(t *testing.T) {
	header := []string{"kind", "period", "commitment"}
	tests := []struct {
		name     string
		rows     [][]string
		expected string
	}{
		{
			name:     "commitment rows",
			rows:     [][]string{{"audit", "2025-01", "50"}, {"audit", "2025-02", ""}},
			expected: "kind,period,commitment\naudit,2025-01,50\naudit,2025-02,\n",
		},
		{
			name:     "header only",
			expected: "kind,period,commitment\n",
		},
		{
			name:     "quoted breakdown label",
			rows:     [][]string{{"capas", "2025-Q1", "Closed, verified"}},
			expected: "kind,period,commitment\ncapas,2025-Q1,\"Closed, verified\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeCSVWithHeader(&buf, header, func(w *csv.Writer) error {
				return w.WriteAll(tt.rows)
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, buf.String())
		})
	}

	t.Run("row error", func(t *testing.T) {
		var buf bytes.Buffer
		err := writeCSVWithHeader(&buf, header, func(*csv.Writer) error { return assert.AnError })
		assert.Equal(t, assert.AnError, err)
	})
}

func TestWriteWithFile(t *testing.T) {
	dir := t.TempDir()
	write := func(content string) func(io.Writer) error {
		return func(w io.Writer) error {
			_, err := io.WriteString(w, content)
			return err
		}
	}

	t.Run("stdout", func(t *testing.T) {
		assert.NoError(t, writeWithFile("", write(""), "Wrote composite"))
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(dir, "composite.csv")
		require.NoError(t, writeWithFile(path, write("period,score\n"), "Wrote composite"))
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "period,score\n", string(content))
	})

	t.Run("writer error", func(t *testing.T) {
		err := writeWithFile(filepath.Join(dir, "broken.csv"), func(io.Writer) error { return assert.AnError }, "Wrote composite")
		assert.Equal(t, assert.AnError, err)
	})

	t.Run("invalid path", func(t *testing.T) {
		assert.Error(t, writeWithFile("/nonexistent/path/composite.csv", write("x"), "Wrote composite"))
	})
}

func TestWriteJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.json")
	weights := map[string]float64{"audits": 0.2, "capas": 0.25, "complaints": 0.35, "training": 0.2}

	err := writeWithFile(path, func(w io.Writer) error { return writeJSON(w, weights) }, "Wrote JSON")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]float64
	require.NoError(t, json.Unmarshal(content, &got))
	assert.Equal(t, weights, got)
	assert.True(t, strings.HasSuffix(string(content), "}\n"))
}

func TestWriteParquetRequiresFile(t *testing.T) {
	err := writeParquet("", schema.Series{Name: "audit"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output-file")
}

func TestWriteParquetFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "series.parquet")
	jan := schema.PeriodAt(mustDate(t, "2025-01-15"), schema.Month)
	err := writeParquet(tmpFile, schema.Series{Name: "audit", Start: jan, Values: []float64{50, math.NaN()}})
	require.NoError(t, err)

	info, err := os.Stat(tmpFile)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestFrame(t *testing.T) {
	jan := schema.PeriodAt(mustDate(t, "2025-01-01"), schema.Month)
	a := schema.Series{Name: "a", Start: jan, Values: []float64{1, 2, 3}}
	b := schema.Series{Name: "b", Start: jan.Next(), Values: []float64{20, 30, 40}}

	f := newFrame(a, b, schema.Series{})
	require.Len(t, f.periods, 4)
	assert.Equal(t, jan, f.periods[0])
	assert.Equal(t, 1.0, f.value(0, 0))
	assert.True(t, math.IsNaN(f.value(0, 1)), "b does not cover January")
	assert.True(t, math.IsNaN(f.value(3, 0)), "a does not cover April")
	assert.True(t, math.IsNaN(f.value(1, 2)), "empty column is all missing")

	fmtValue, _ := createFormatters(0)
	assert.Equal(t, []string{"Jan 2025", "1", "", ""}, f.tableRows(fmtValue)[0])
	assert.Equal(t, []string{"x", "2025-04", "Apr 2025", "", "40", ""}, f.csvRows(fmtValue, "x")[3])

	assert.Empty(t, newFrame().periods)
	assert.Empty(t, newFrame(schema.Series{Name: "empty"}).periods)
}

func TestTruncateLabel(t *testing.T) {
	assert.Equal(t, "Closed", truncateLabel("Closed", 10))
	assert.Equal(t, "Pending...", truncateLabel("Pending Verification", 10))
	assert.Equal(t, "Pen", truncateLabel("Pending", 3))
}

func TestGetMaxTableColumnWidth(t *testing.T) {
	tests := []struct {
		name     string
		width    int
		columns  int
		expected int
	}{
		{name: "wide terminal single column", width: 200, columns: 1, expected: 30},
		{name: "narrow terminal many columns", width: 80, columns: 10, expected: 6},
		{name: "medium terminal", width: 120, columns: 5, expected: 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &contract.Config{Width: tt.width}
			assert.Equal(t, tt.expected, GetMaxTableColumnWidth(cfg, tt.columns))
		})
	}
}
