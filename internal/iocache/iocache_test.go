package iocache

import (
	"bytes"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/kpiscore/internal/parquet"
	"github.com/huangsam/kpiscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func resetGlobals() {
	initOnce = sync.Once{}  // Reset for test
	closeOnce = sync.Once{} // Reset for test
	Manager = &CacheStoreManager{}
}

func TestCaching(t *testing.T) {
	t.Run("single setup", func(t *testing.T) {
		resetGlobals()
		dir := t.TempDir()
		cachePath := filepath.Join(dir, "cache.db")
		historyPath := filepath.Join(dir, "history.db")

		err := InitCaching(schema.SQLiteBackend, cachePath, schema.SQLiteBackend, historyPath)
		require.NoError(t, err)
		assert.NotNil(t, Manager.GetSourceStore())
		assert.NotNil(t, Manager.GetHistoryStore())
		CloseCaching()

		assert.FileExists(t, cachePath)
		assert.FileExists(t, historyPath)
	})

	t.Run("idempotent setup", func(t *testing.T) {
		resetGlobals()
		cachePath := filepath.Join(t.TempDir(), "cache.db")

		// Multiple initializations should be safe (sync.Once)
		for range 3 {
			require.NoError(t, InitCaching(schema.SQLiteBackend, cachePath, schema.NoneBackend, ""))
		}

		// Multiple closes should be safe (sync.Once)
		CloseCaching()
		CloseCaching()
	})

	t.Run("none backend", func(t *testing.T) {
		resetGlobals()
		require.NoError(t, InitCaching(schema.NoneBackend, "", schema.NoneBackend, ""))

		_, _, _, err := Manager.GetSourceStore().Get("missing")
		assert.ErrorIs(t, err, sql.ErrNoRows)
		CloseCaching()
	})

	t.Run("empty backend leaves store unset", func(t *testing.T) {
		resetGlobals()
		require.NoError(t, InitCaching("", "", "", ""))
		assert.Nil(t, Manager.GetSourceStore())
		assert.Nil(t, Manager.GetHistoryStore())
		CloseCaching()
	})

	t.Run("unsupported backend", func(t *testing.T) {
		resetGlobals()
		err := InitCaching("oracle", "", schema.NoneBackend, "")
		assert.ErrorContains(t, err, "unsupported backend")
	})
}

func TestCacheStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewCacheStore("test_cache", schema.SQLiteBackend, path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 0, status.TotalEntries)

	_, _, _, err = store.Get("k1")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	now := time.Now().Unix()
	require.NoError(t, store.Set("k1", []byte("v1"), 1, now-100))
	require.NoError(t, store.Set("k1", []byte("v2"), 2, now))
	require.NoError(t, store.Set("k2", []byte("other"), 2, now-50))

	value, version, ts, err := store.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), value)
	assert.Equal(t, 2, version)
	assert.Equal(t, now, ts)

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalEntries)
	assert.Equal(t, now, status.LastEntryTime.Unix())
	assert.Equal(t, now-50, status.OldestEntryTime.Unix())
	assert.Positive(t, status.TableSizeBytes)
}

func TestCacheStoreInvalidTable(t *testing.T) {
	_, err := NewCacheStore("bad-name; DROP", schema.SQLiteBackend, ":memory:")
	assert.ErrorContains(t, err, "invalid table name")

	_, err = NewCacheStore("", schema.NoneBackend, "")
	assert.ErrorContains(t, err, "cannot be empty")
}

func TestHistoryStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewHistoryStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	q := schema.QueryContext{Granularity: schema.Quarter, AsOf: time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)}
	start := time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)
	runID, err := store.BeginRun(start, "composite", q, map[string]any{"granularity": "quarter"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), runID)

	q1 := schema.PeriodAt(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), schema.Quarter)
	values := schema.HistoryValues(runID, start, schema.Series{Name: "composite", Start: q1, Values: []float64{82.5, math.NaN()}})
	require.NoError(t, store.RecordValues(runID, values))
	require.NoError(t, store.EndRun(runID, start.Add(2*time.Second)))

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "composite", runs[0].Command)
	assert.Equal(t, "quarter", runs[0].Granularity)
	assert.True(t, q.AsOf.Equal(runs[0].AsOf))
	assert.True(t, start.Equal(runs[0].StartTime))
	require.NotNil(t, runs[0].RunDurationMs)
	assert.Equal(t, int32(2000), *runs[0].RunDurationMs)
	require.NotNil(t, runs[0].ConfigParams)
	assert.JSONEq(t, `{"granularity":"quarter"}`, *runs[0].ConfigParams)

	got, err := store.GetAllValues()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2025Q1", got[0].Period)
	require.NotNil(t, got[0].Value)
	assert.Equal(t, 82.5, *got[0].Value)
	assert.Equal(t, "2025Q2", got[1].Period)
	assert.Nil(t, got[1].Value)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, status.TotalRuns)
	assert.Equal(t, int64(1), status.LastRunID)
	assert.Equal(t, 2, status.TotalValues)
	assert.Equal(t, int64(1), status.TableSizes[historyRunsTable])
}

func TestHistoryStoreNone(t *testing.T) {
	store, err := NewHistoryStore(schema.NoneBackend, "")
	require.NoError(t, err)

	runID, err := store.BeginRun(time.Now(), "counts", schema.QueryContext{}, nil)
	require.NoError(t, err)
	assert.Zero(t, runID)
	assert.NoError(t, store.RecordValues(runID, []schema.HistoryValueRecord{{Series: "x"}}))
	assert.NoError(t, store.EndRun(runID, time.Now()))

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestMigrateHistory(t *testing.T) {
	t.Run("none backend", func(t *testing.T) {
		_, err := MigrateHistory(schema.NoneBackend, "", -1)
		assert.Error(t, err)
	})

	t.Run("up down up", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.db")

		version, err := MigrateHistory(schema.SQLiteBackend, path, -1)
		require.NoError(t, err)
		assert.Equal(t, uint(1), version)

		// Already at latest
		version, err = MigrateHistory(schema.SQLiteBackend, path, -1)
		require.NoError(t, err)
		assert.Equal(t, uint(1), version)

		version, err = MigrateHistory(schema.SQLiteBackend, path, 0)
		require.NoError(t, err)
		assert.Equal(t, uint(0), version)

		version, err = MigrateHistory(schema.SQLiteBackend, path, 1)
		require.NoError(t, err)
		assert.Equal(t, uint(1), version)
	})

	t.Run("in memory store keeps schema", func(t *testing.T) {
		store, err := NewHistoryStore(schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		_, err = store.BeginRun(time.Now(), "trend", schema.QueryContext{Granularity: schema.Month}, nil)
		assert.NoError(t, err)
	})
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewCacheStore(sourceTable, schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.FileExists(t, path)

	require.NoError(t, ClearCache(schema.SQLiteBackend, path, ""))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Clearing twice is fine
	assert.NoError(t, ClearHistory(schema.SQLiteBackend, path, ""))
	assert.NoError(t, ClearCache(schema.NoneBackend, "", ""))
	assert.Error(t, ClearCache(schema.SQLiteBackend, "", ""))
	assert.Error(t, ClearHistory("oracle", "", ""))
}

func TestTableNames(t *testing.T) {
	assert.NoError(t, validateTableName("kpiscore_runs"))
	assert.NoError(t, validateTableName("_t1"))
	assert.Error(t, validateTableName("1table"))
	assert.Error(t, validateTableName("a b"))

	assert.Equal(t, "`t`", quoteTableName("t", schema.MySQLBackend))
	assert.Equal(t, `"t"`, quoteTableName("t", schema.PostgreSQLBackend))
	assert.Equal(t, `"t"`, quoteTableName("t", schema.SQLiteBackend))

	assert.Equal(t, "?, ?", placeholders(schema.MySQLBackend, 2))
	assert.Equal(t, "$1, $2, $3", placeholders(schema.PostgreSQLBackend, 3))
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintCacheStatus(&buf, schema.CacheStatus{Backend: "none"})
	assert.Equal(t, "Cache Backend: none\nConnected: false\n", buf.String())

	buf.Reset()
	last := time.Date(2025, time.March, 4, 5, 6, 7, 0, time.UTC)
	PrintHistoryStatus(&buf, schema.HistoryStatus{
		Backend:       "sqlite",
		Connected:     true,
		TotalRuns:     2,
		LastRunID:     2,
		LastRunTime:   last,
		OldestRunTime: last,
		TotalValues:   10,
		TableSizes:    map[string]int64{historyValuesTable: 10, historyRunsTable: 2},
	})
	out := buf.String()
	assert.Contains(t, out, "Total Runs: 2\n")
	assert.Contains(t, out, "Last Run: 2025-03-04 05:06:07\n")
	assert.Contains(t, out, "  kpiscore_runs: 2 rows\n  kpiscore_values: 10 rows\n")
}

func TestExportHistory(t *testing.T) {
	now := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	value := 50.0

	t.Run("success", func(t *testing.T) {
		store := &MockHistoryStore{}
		store.On("GetStatus").Return(schema.HistoryStatus{Backend: "sqlite", TotalRuns: 1, TotalValues: 1}, nil)
		store.On("GetAllRuns").Return([]schema.HistoryRunRecord{{RunID: 1, Command: "trend", Granularity: "month", AsOf: now, StartTime: now}}, nil)
		store.On("GetAllValues").Return([]schema.HistoryValueRecord{{RunID: 1, Series: "capa", Period: "2025-04", Value: &value, RunTime: now}}, nil)

		out := filepath.Join(t.TempDir(), "export")
		var buf bytes.Buffer
		require.NoError(t, ExportHistory(&buf, store, out))
		assert.Contains(t, buf.String(), "Exported 1 runs")

		values, err := parquet.Read[parquet.HistoryValue](out + ".values.parquet")
		require.NoError(t, err)
		require.Len(t, values, 1)
		assert.Equal(t, "capa", values[0].Series)
		store.AssertExpectations(t)
	})

	t.Run("no data", func(t *testing.T) {
		store := &MockHistoryStore{}
		store.On("GetStatus").Return(schema.HistoryStatus{}, nil)
		err := ExportHistory(&bytes.Buffer{}, store, filepath.Join(t.TempDir(), "x"))
		assert.ErrorContains(t, err, "no history data")
		store.AssertNotCalled(t, "GetAllRuns")
	})

	t.Run("missing output file", func(t *testing.T) {
		err := ExportHistory(&bytes.Buffer{}, &MockHistoryStore{}, "")
		assert.ErrorContains(t, err, "--output-file")
	})
}

func TestMockCacheManager(t *testing.T) {
	source := &MockCacheStore{}
	mgr := &MockCacheManager{}
	mgr.On("GetSourceStore").Return(source)
	mgr.On("GetHistoryStore").Return(nil)

	assert.Same(t, source, mgr.GetSourceStore())
	assert.Nil(t, mgr.GetHistoryStore())

	source.On("Get", mock.Anything).Return(nil, 0, int64(0), sql.ErrNoRows)
	_, _, _, err := source.Get("k")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
