package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/schema"
)

// PrintCompositeResults outputs the composite score, dispatching based on the output format configured.
func PrintCompositeResults(report schema.CompositeReport, cfg *contract.Config, duration time.Duration) error {
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
			return writeCompositeCSV(w, report, fmtValue)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeParquet(cfg.OutputFile, compositeSeries(report)...); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeCompositeTable(w, report, fmtValue); err != nil {
				return err
			}
			summaryLine(w, "Composite", cfg, duration)
			return nil
		}, "Wrote table")
	}
	return nil
}

// compositeCategories returns the component categories of r in display order.
func compositeCategories(r schema.CompositeReport) []schema.Category {
	out := make([]schema.Category, 0, len(r.Components))
	for _, c := range schema.CompositeCategories {
		if _, ok := r.Components[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// compositeSeries returns the score, each component named by its category,
// the rolling average and the trend.
func compositeSeries(r schema.CompositeReport) []schema.Series {
	out := []schema.Series{r.Score}
	for _, c := range compositeCategories(r) {
		s := r.Components[c]
		s.Name = string(c)
		out = append(out, s)
	}
	out = append(out, r.Rolling)
	if r.Trend != nil {
		out = append(out, r.Trend.Series)
	}
	return out
}

// formatCompositeFormula describes how the score is blended, such as
// "1 + 0.2×Audits + 0.8×Training".
func formatCompositeFormula(r schema.CompositeReport, fmtValue func(float64) string) string {
	var terms []string
	for _, c := range compositeCategories(r) {
		terms = append(terms, fmt.Sprintf("%s×%s", trimZeros(fmt.Sprint(r.Weights[c])), c.DisplayName()))
	}
	if r.Offset != 0 {
		terms = slices.Insert(terms, 0, trimZeros(fmtValue(r.Offset)))
	}
	return strings.Join(terms, " + ")
}

// trimZeros drops trailing zeros after a decimal point.
func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	return strings.TrimSuffix(strings.TrimRight(s, "0"), ".")
}

// writeCompositeTable writes the human-readable table of the composite score.
func writeCompositeTable(w io.Writer, r schema.CompositeReport, fmtValue func(float64) string) error {
	_, _ = fmt.Fprintf(w, "🧮 Composite score (%%) by %s\n", r.Granularity)
	_, _ = fmt.Fprintf(w, "⚖️  Score = %s\n", formatCompositeFormula(r, fmtValue))
	if !r.MinPeriod.IsZero() {
		_, _ = fmt.Fprintf(w, "📅 Complete from %s (limited by %s)\n", r.MinPeriod.Label(), r.MinPeriodCategory.DisplayName())
	}

	categories := compositeCategories(r)
	headers := []string{r.Granularity.Title(), "Score"}
	for _, c := range categories {
		headers = append(headers, c.DisplayName())
	}
	headers = append(headers, "Rolling Avg")
	if r.Trend != nil {
		headers = append(headers, "Trend")
	}

	f := newFrame(compositeSeries(r)...)
	if err := renderTable(w, headers, f.tableRows(fmtValue)); err != nil {
		return err
	}
	writeNotes(w, trendNotes(r.Trend)...)
	writeNotes(w, r.Notes...)
	return nil
}

// writeCompositeCSV writes one row per period with the score and each component.
func writeCompositeCSV(w io.Writer, r schema.CompositeReport, fmtValue func(float64) string) error {
	header := []string{"period", "label", "score"}
	for _, c := range compositeCategories(r) {
		header = append(header, string(c))
	}
	header = append(header, "rolling_average")
	if r.Trend != nil {
		header = append(header, "trend")
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, row := range newFrame(compositeSeries(r)...).csvRows(fmtValue) {
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}
