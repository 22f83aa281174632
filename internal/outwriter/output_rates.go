package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/schema"
)

var rateCSVHeader = []string{"period", "label", "complaints_per_100_runs", "complaints_per_account"}

// PrintRateResults outputs complaint rates per usage, dispatching based on the output format configured.
func PrintRateResults(report schema.RateReport, cfg *contract.Config, duration time.Duration) error {
	fmtValue, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRateCSV(w, report, fmtValue)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		var series []schema.Series
		if report.Available {
			series = []schema.Series{report.PerHundredRun, report.PerAccount}
		}
		if err := writeParquet(cfg.OutputFile, series...); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeRateTable(w, report, fmtValue); err != nil {
				return err
			}
			summaryLine(w, "Rates", cfg, duration)
			return nil
		}, "Wrote table")
	}
	return nil
}

// writeRateTable writes the human-readable table of complaint rates.
func writeRateTable(w io.Writer, r schema.RateReport, fmtValue func(float64) string) error {
	if !r.Available {
		writeUnavailable(w, "Complaint rates", r.Reason)
		return nil
	}
	_, _ = fmt.Fprintf(w, "📉 Complaint rates by %s\n", r.Granularity)

	headers := []string{r.Granularity.Title(), "Per 100 Runs", "Per Account"}
	f := newFrame(r.PerHundredRun, r.PerAccount)
	if err := renderTable(w, headers, f.tableRows(fmtValue)); err != nil {
		return err
	}
	writeNotes(w, r.Notes...)
	return nil
}

// writeRateCSV writes one row per period with both rates.
func writeRateCSV(w io.Writer, r schema.RateReport, fmtValue func(float64) string) error {
	return writeCSVWithHeader(w, rateCSVHeader, func(cw *csv.Writer) error {
		if !r.Available {
			return nil
		}
		for _, row := range newFrame(r.PerHundredRun, r.PerAccount).csvRows(fmtValue) {
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}
