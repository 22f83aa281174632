package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/schema"
)

// PrintCountResults outputs per-period record counts, dispatching based on the output format configured.
func PrintCountResults(report schema.CountReport, cfg *contract.Config, duration time.Duration) error {
	fmtValue, fmtCount := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCountCSV(w, report, fmtValue)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeParquet(cfg.OutputFile, countSeries(report)...); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			headerWidth := GetMaxTableColumnWidth(cfg, len(countCategories(report)))
			if err := writeCountTable(w, report, fmtValue, fmtCount, headerWidth); err != nil {
				return err
			}
			summaryLine(w, "Counts", cfg, duration)
			return nil
		}, "Wrote table")
	}
	return nil
}

// countCategories returns the breakdown categories of r, if any.
func countCategories(r schema.CountReport) []string {
	if r.Table == nil {
		return nil
	}
	return r.Table.Categories
}

// countSeries returns the per-category columns of r followed by the total,
// the rolling average and the trend.
func countSeries(r schema.CountReport) []schema.Series {
	if !r.Available {
		return nil
	}
	var out []schema.Series
	for _, c := range countCategories(r) {
		out = append(out, r.Table.Column(c))
	}
	out = append(out, r.Totals, r.Rolling)
	if r.Trend != nil {
		out = append(out, r.Trend.Series)
	}
	return out
}

// writeCountTable writes the human-readable table of a count report.
func writeCountTable(w io.Writer, r schema.CountReport, fmtValue, fmtCount func(float64) string, headerWidth int) error {
	title := fmt.Sprintf("%s by %s", r.Category.DisplayName(), r.Column)
	if r.Breakdown != "" {
		title += " and " + r.Breakdown
	}
	if !r.Available {
		writeUnavailable(w, title, r.Reason)
		return nil
	}
	_, _ = fmt.Fprintf(w, "📊 %s\n", title)

	categories := countCategories(r)
	f := newFrame(countSeries(r)...)

	headers := []string{r.Granularity.Title()}
	for _, c := range categories {
		headers = append(headers, truncateLabel(c, headerWidth))
	}
	headers = append(headers, "Total", "Rolling Avg")
	if r.Trend != nil {
		headers = append(headers, "Trend")
	}

	rows := make([][]string, len(f.periods))
	for i, p := range f.periods {
		row := []string{p.Label()}
		for j := range f.columns {
			// Counts are whole numbers; the rolling average and trend are not.
			if j <= len(categories) {
				row = append(row, fmtCount(f.value(i, j)))
			} else {
				row = append(row, fmtValue(f.value(i, j)))
			}
		}
		rows[i] = row
	}
	if err := renderTable(w, headers, rows); err != nil {
		return err
	}
	writeNotes(w, trendNotes(r.Trend)...)
	return nil
}

// writeCountCSV writes one row per period with a column per breakdown category.
func writeCountCSV(w io.Writer, r schema.CountReport, fmtValue func(float64) string) error {
	header := []string{"period", "label"}
	header = append(header, countCategories(r)...)
	header = append(header, "total", "rolling_average")
	if r.Trend != nil {
		header = append(header, "trend")
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		if !r.Available {
			return nil
		}
		for _, row := range newFrame(countSeries(r)...).csvRows(fmtValue) {
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}
