//go:build basic

// Package integration contains integration tests for kpiscore.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
package integration

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCommitmentVerification runs kpiscore commitment training and verifies every
// monthly percentage against the generated exports.
func TestCommitmentVerification(t *testing.T) {
	dir := writeSources(t)

	out, err := runCommand(t, dir, "commitment", "training", "--output", "csv", "--cache-backend", "none")
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"kind", "period", "label", "commitment", "rolling_average", "trend", "goal_status"}, rows[0])

	got := make(map[string]string)
	for _, row := range rows[1:] {
		require.Equal(t, "training", row[0])
		got[row[1]] = row[3]
	}

	for i, due := range trainingDue {
		period := fmt.Sprintf("2025-%02d", i+1)
		t.Run(period, func(t *testing.T) {
			value, err := strconv.ParseFloat(got[period], 64)
			require.NoError(t, err, "commitment for %s", period)
			want := float64(trainingOnTime[i]) / float64(due) * 100
			assert.InDelta(t, want, value, 0.05, "commitment mismatch for %s", period)
		})
	}
	assert.Empty(t, got["2025-07"], "no training is due in July")
}

// TestCountsVerification verifies breakdown counts against the generated exports.
func TestCountsVerification(t *testing.T) {
	dir := writeSources(t)

	out, err := runCommand(t, dir, "counts", "audits", "--column", "Planned Start Date", "--breakdown", "Internal/External", "--output", "json", "--cache-backend", "none")
	require.NoError(t, err)

	var report struct {
		Available bool `json:"available"`
		Totals    struct {
			Points []struct {
				Period string   `json:"period"`
				Value  *float64 `json:"value"`
			} `json:"points"`
		} `json:"totals"`
		Table struct {
			Categories []string    `json:"categories"`
			Counts     [][]float64 `json:"counts"`
		} `json:"table"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.True(t, report.Available)
	assert.ElementsMatch(t, []string{"Internal", "External"}, report.Table.Categories)
	require.NotEmpty(t, report.Totals.Points)
	assert.Equal(t, "2025-01", report.Totals.Points[0].Period)
	require.NotNil(t, report.Totals.Points[0].Value)
	assert.Equal(t, 2.0, *report.Totals.Points[0].Value)
}

// TestGoalCheckExitCode verifies that a commitment below its goal fails the check.
func TestGoalCheckExitCode(t *testing.T) {
	dir := writeSources(t)

	out, err := runCommand(t, dir, "check", "training", "--cache-backend", "none")
	require.NoError(t, err, "June training is 87.5% against an 80% goal")
	assert.Contains(t, out, "training")

	out, err = runCommand(t, dir, "check", "audit", "--cache-backend", "none")
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "audit commitment is below its goal")
	assert.NotZero(t, exitErr.ExitCode())
	assert.Contains(t, out, "❌ audit")
}

// TestSourceCacheRoundTrip runs the same report twice against a SQLite cache.
func TestSourceCacheRoundTrip(t *testing.T) {
	dir := writeSources(t)
	cacheDB := dir + "/cache.db"

	first, err := runCommand(t, dir, "commitment", "training", "--output", "csv", "--cache-db-connect", cacheDB)
	require.NoError(t, err)
	second, err := runCommand(t, dir, "commitment", "training", "--output", "csv", "--cache-db-connect", cacheDB)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	status, err := runCommand(t, dir, "cache", "status", "--cache-db-connect", cacheDB)
	require.NoError(t, err)
	assert.Contains(t, status, "sqlite")
}
