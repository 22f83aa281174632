package contract

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/kpiscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetColorLabel(t *testing.T) {
	goal := 80.0
	tests := []struct {
		name  string
		value float64
		goal  *float64
		label string
	}{
		{"met", 85, &goal, schema.GoalMetValue},
		{"exactly met", 80, &goal, schema.GoalMetValue},
		{"below", 79.9, &goal, schema.BelowGoalValue},
		{"no data", math.NaN(), &goal, schema.NoDataValue},
		{"no goal", 50, nil, schema.NoGoalValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetColorLabel(tt.value, tt.goal)
			// Should contain the plain label
			assert.Contains(t, result, tt.label)
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "75.0", FormatValue(75, 1))
	assert.Equal(t, "66.67", FormatValue(200.0/3, 2))
	assert.Equal(t, "", FormatValue(math.NaN(), 1))
	assert.Equal(t, "", FormatValue(math.Inf(1), 1))
}

func TestSelectOutputFile(t *testing.T) {
	t.Run("empty path returns stdout", func(t *testing.T) {
		file, err := SelectOutputFile("")
		require.NoError(t, err)
		assert.Equal(t, os.Stdout, file)
	})

	t.Run("valid path creates file", func(t *testing.T) {
		tempFile := filepath.Join(t.TempDir(), "test_output.txt")

		file, err := SelectOutputFile(tempFile)
		require.NoError(t, err)
		assert.NotNil(t, file)
		_ = file.Close()

		// Verify file was created
		_, err = os.Stat(tempFile)
		assert.NoError(t, err)
	})
}

func TestGetDBFilePaths(t *testing.T) {
	cachePath := GetCacheDBFilePath()
	historyPath := GetHistoryDBFilePath()

	assert.Equal(t, ".kpiscore_cache.db", filepath.Base(cachePath))
	assert.Equal(t, ".kpiscore_history.db", filepath.Base(historyPath))
	assert.NotEqual(t, cachePath, historyPath)
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"yes", "TRUE", "1", " true "} {
		v, err := ParseBoolString(s)
		require.NoError(t, err, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"no", "False", "0"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err, s)
		assert.False(t, v, s)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

func TestParseWindowBound(t *testing.T) {
	tests := []struct {
		in   string
		g    schema.Granularity
		want string
	}{
		{"", schema.Month, ""},
		{"2025-02", schema.Month, "2025-02"},
		{"2025-02", schema.Year, "2025"},
		{"2025Q3", schema.Month, "2025-07"},
		{"2025-05-20", schema.Quarter, "2025Q2"},
		{"2025-05-20T10:00:00Z", schema.Month, "2025-05"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWindowBound(tt.in, tt.g)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}

	_, err := ParseWindowBound("last month", schema.Month)
	assert.Error(t, err)
}

func TestParseFilterString(t *testing.T) {
	got, err := ParseFilterString("")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ParseFilterString("Status=Open,,Device Type=Scanner=X")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Status": "Open", "Device Type": "Scanner=X"}, got)

	_, err = ParseFilterString("=Open")
	assert.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "kpiscore.log")
	require.NoError(t, InitLogger("debug", logFile))
	LogWarn("test warning", os.ErrNotExist)

	_, err := os.Stat(logFile)
	assert.NoError(t, err, "rotating file is created on first write")

	assert.Error(t, InitLogger("verbose", ""))
	require.NoError(t, InitLogger("info", ""))
}
