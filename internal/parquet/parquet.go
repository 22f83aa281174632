// Package parquet provides data structures and functions for exporting kpiscore
// series and run history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/kpiscore/schema"
	"github.com/parquet-go/parquet-go"
)

// HistoryRun represents a single recorded command run with metadata.
// This struct maps to the kpiscore_runs database table.
type HistoryRun struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// Command is the command that produced the run, such as composite
	Command string `parquet:"command,snappy,dict"`

	// Granularity is the period width of the run
	Granularity string `parquet:"granularity,snappy,dict"`

	// AsOf is the reference date of the run
	AsOf time.Time `parquet:"as_of,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// HistoryValue represents one period value recorded by a run.
// This struct maps to the kpiscore_values database table.
type HistoryValue struct {
	RunID   int64     `parquet:"run_id,snappy"`
	Series  string    `parquet:"series,snappy,dict"`
	Period  string    `parquet:"period,snappy,dict"`
	Value   *float64  `parquet:"value,optional,snappy"`
	RunTime time.Time `parquet:"run_time,snappy"`
}

// SeriesRow is one cell of a report series, used by --output parquet.
// Missing values are null.
type SeriesRow struct {
	Series string   `parquet:"series,snappy,dict"`
	Period string   `parquet:"period,snappy,dict"`
	Label  string   `parquet:"label,snappy,dict"`
	Value  *float64 `parquet:"value,optional,snappy"`
}

// Write writes rows to w using the schema inferred from T's struct tags.
func Write[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteFile writes rows to a new Parquet file at outputPath.
func WriteFile[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Write(file, rows); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Read reads every row of a Parquet file into T.
func Read[T any](inputPath string) ([]T, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read parquet file: %w", err)
	}
	return rows[:n], nil
}

// ConvertHistoryRunRecords converts schema.HistoryRunRecord to HistoryRun.
func ConvertHistoryRunRecords(records []schema.HistoryRunRecord) []HistoryRun {
	result := make([]HistoryRun, len(records))
	for i, r := range records {
		result[i] = HistoryRun{
			RunID:         r.RunID,
			Command:       r.Command,
			Granularity:   r.Granularity,
			AsOf:          r.AsOf,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			RunDurationMs: r.RunDurationMs,
			ConfigParams:  r.ConfigParams,
		}
	}
	return result
}

// ConvertHistoryValueRecords converts schema.HistoryValueRecord to HistoryValue.
func ConvertHistoryValueRecords(records []schema.HistoryValueRecord) []HistoryValue {
	result := make([]HistoryValue, len(records))
	for i, r := range records {
		result[i] = HistoryValue(r)
	}
	return result
}

// SeriesRows flattens named series into rows in series then period order.
func SeriesRows(series ...schema.Series) []SeriesRow {
	var rows []SeriesRow
	for _, s := range series {
		for i, v := range s.Values {
			p := s.Start.Add(i)
			rows = append(rows, SeriesRow{
				Series: s.Name,
				Period: p.String(),
				Label:  p.Label(),
				Value:  schema.FloatPtr(v),
			})
		}
	}
	return rows
}
