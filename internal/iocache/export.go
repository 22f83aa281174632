package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/internal/parquet"
)

// ExportHistory writes the run history of store to two Parquet files,
// <outputFile>.runs.parquet and <outputFile>.values.parquet. Progress goes to w.
func ExportHistory(w io.Writer, store contract.HistoryStore, outputFile string) error {
	// Validate that output file is specified
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("history store is not initialized")
	}

	// Check if there's any data to export
	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no history data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total values: %d\n", status.TotalValues)

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	values, err := store.GetAllValues()
	if err != nil {
		return fmt.Errorf("failed to retrieve values: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteFile(parquet.ConvertHistoryRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(runs), runsFile)

	valuesFile := outputFile + ".values.parquet"
	if err := parquet.WriteFile(parquet.ConvertHistoryValueRecords(values), valuesFile); err != nil {
		return fmt.Errorf("failed to write values: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d values to: %s\n", len(values), valuesFile)

	return nil
}
