package iocache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/schema"
)

// Table names for run history.
const (
	historyRunsTable   = "kpiscore_runs"
	historyValuesTable = "kpiscore_values"
)

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend and
// migrates its schema to the latest version.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &HistoryStoreImpl{backend: backend}, nil
	}

	if backend != schema.SQLiteBackend {
		// Server backends migrate over a short-lived connection
		if _, err := MigrateHistory(backend, connStr, -1); err != nil {
			return nil, fmt.Errorf("failed to migrate history schema: %w", err)
		}
	}

	db, err := openDB(backend, connStr, GetHistoryDBFilePath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history: %w", err)
	}

	if backend == schema.SQLiteBackend {
		// SQLite migrates over the store connection so in-memory databases keep their schema
		m, err := newMigrate(db, backend)
		if err == nil {
			err = m.Up()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate history schema: %w", err)
		}
	}

	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

// BeginRun creates a new run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginRun(startTime time.Time, command string, q schema.QueryContext, configParams map[string]any) (int64, error) {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return 0, nil
	}

	// Serialize config params to JSON
	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quotedTableName := quoteTableName(historyRunsTable, hs.backend)
	args := []any{command, string(q.Granularity), formatTime(q.AsOf, hs.backend), formatTime(startTime, hs.backend), string(configJSON)}

	var runID int64
	switch hs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (command, granularity, as_of, start_time, config_params) VALUES (%s) RETURNING run_id`,
			quotedTableName, placeholders(hs.backend, 5))
		err = hs.db.QueryRow(query, args...).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (command, granularity, as_of, start_time, config_params) VALUES (%s)`,
			quotedTableName, placeholders(hs.backend, 5))
		var result sql.Result
		result, err = hs.db.Exec(query, args...)
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}

	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// EndRun updates the run with completion data.
func (hs *HistoryStoreImpl) EndRun(runID int64, endTime time.Time) error {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil
	}

	// First, get the start_time to calculate duration
	quotedTableName := quoteTableName(historyRunsTable, hs.backend)
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, quotedTableName, placeholders(hs.backend, 1))

	start := &timeScanner{backend: hs.backend}
	if err := hs.db.QueryRow(query, runID).Scan(start.dest()); err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	startTime, err := start.value()
	if err != nil {
		return err
	}
	if startTime == nil {
		return fmt.Errorf("run %d has no start_time", runID)
	}

	// Calculate duration in milliseconds
	durationMs := endTime.Sub(*startTime).Milliseconds()

	var updateQuery string
	switch hs.backend {
	case schema.PostgreSQLBackend:
		updateQuery = fmt.Sprintf(`UPDATE %s SET end_time = $1, run_duration_ms = $2 WHERE run_id = $3`, quotedTableName)
	default: // SQLite and MySQL
		updateQuery = fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ? WHERE run_id = ?`, quotedTableName)
	}

	if _, err := hs.db.Exec(updateQuery, formatTime(endTime, hs.backend), durationMs, runID); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// RecordValues stores the per-period values of a run in one transaction.
func (hs *HistoryStoreImpl) RecordValues(runID int64, values []schema.HistoryValueRecord) error {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil || len(values) == 0 {
		return nil
	}

	tx, err := hs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`INSERT INTO %s (run_id, series, period, value, run_time) VALUES (%s)`,
		quoteTableName(historyValuesTable, hs.backend), placeholders(hs.backend, 5))
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare value insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, v := range values {
		var value any
		if v.Value != nil {
			value = *v.Value
		}
		if _, err := stmt.Exec(runID, v.Series, v.Period, value, formatTime(v.RunTime, hs.backend)); err != nil {
			return fmt.Errorf("failed to insert value %s/%s: %w", v.Series, v.Period, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit values: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}

	if hs.backend == schema.NoneBackend || hs.db == nil {
		return status, nil
	}

	runsTable := quoteTableName(historyRunsTable, hs.backend)
	if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", runsTable)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		// Get last run info
		last := &timeScanner{backend: hs.backend}
		row := hs.db.QueryRow(fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", runsTable))
		if err := row.Scan(&status.LastRunID, last.dest()); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		if t, err := last.value(); err != nil {
			return status, err
		} else if t != nil {
			status.LastRunTime = *t
		}

		// Get oldest run time
		oldest := &timeScanner{backend: hs.backend}
		row = hs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", runsTable))
		if err := row.Scan(oldest.dest()); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		if t, err := oldest.value(); err != nil {
			return status, err
		} else if t != nil {
			status.OldestRunTime = *t
		}
	}

	// Get table sizes
	for _, table := range []string{historyRunsTable, historyValuesTable} {
		var count int64
		row := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend)))
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalValues = int(status.TableSizes[historyValuesTable])

	return status, nil
}

// GetAllRuns retrieves all runs from the store.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.HistoryRunRecord, error) {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT run_id, command, granularity, as_of, start_time, end_time, run_duration_ms, config_params FROM %s ORDER BY run_id",
		quoteTableName(historyRunsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.HistoryRunRecord
	for rows.Next() {
		var record schema.HistoryRunRecord
		asOf := &timeScanner{backend: hs.backend}
		start := &timeScanner{backend: hs.backend}
		end := &timeScanner{backend: hs.backend}
		if err := rows.Scan(&record.RunID, &record.Command, &record.Granularity, asOf.dest(), start.dest(), end.dest(),
			&record.RunDurationMs, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		for _, tc := range []struct {
			scanner *timeScanner
			target  *time.Time
		}{{asOf, &record.AsOf}, {start, &record.StartTime}} {
			t, err := tc.scanner.value()
			if err != nil {
				return nil, err
			}
			if t != nil {
				*tc.target = *t
			}
		}
		if record.EndTime, err = end.value(); err != nil {
			return nil, err
		}

		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetAllValues retrieves all recorded values from the store.
func (hs *HistoryStoreImpl) GetAllValues() ([]schema.HistoryValueRecord, error) {
	// Skip for NoneBackend
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT run_id, series, period, value, run_time FROM %s ORDER BY run_id, series, period",
		quoteTableName(historyValuesTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.HistoryValueRecord
	for rows.Next() {
		var record schema.HistoryValueRecord
		var value sql.NullFloat64
		runTime := &timeScanner{backend: hs.backend}
		if err := rows.Scan(&record.RunID, &record.Series, &record.Period, &value, runTime.dest()); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		if value.Valid {
			record.Value = &value.Float64
		}
		t, err := runTime.value()
		if err != nil {
			return nil, err
		}
		if t != nil {
			record.RunTime = *t
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating values: %w", err)
	}
	return results, nil
}
