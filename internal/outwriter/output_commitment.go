package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/schema"
)

var commitmentCSVHeader = []string{"kind", "period", "label", "commitment", "rolling_average", "trend", "goal_status"}

// PrintCommitmentResults outputs commitment reports, dispatching based on the output format configured.
func PrintCommitmentResults(reports []schema.CommitmentReport, cfg *contract.Config, duration time.Duration) error {
	fmtValue, _ := createFormatters(cfg.Precision)

	// Dispatcher: Handle different output formats
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, reports)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCommitmentCSV(w, reports, fmtValue)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeParquet(cfg.OutputFile, commitmentSeries(reports...)...); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			for _, r := range reports {
				if err := writeCommitmentTable(w, r, fmtValue); err != nil {
					return err
				}
			}
			summaryLine(w, "Commitments", cfg, duration)
			return nil
		}, "Wrote table")
	}
	return nil
}

// PrintTrendResults outputs one commitment with its rolling average and trendline.
func PrintTrendResults(report schema.CommitmentReport, cfg *contract.Config, duration time.Duration) error {
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
			return writeCommitmentCSV(w, []schema.CommitmentReport{report}, fmtValue)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeParquet(cfg.OutputFile, commitmentSeries(report)...); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeCommitmentTable(w, report, fmtValue); err != nil {
				return err
			}
			summaryLine(w, "Trend", cfg, duration)
			return nil
		}, "Wrote table")
	}
	return nil
}

// commitmentFrame lines up the commitment, rolling average and trend of r.
func commitmentFrame(r schema.CommitmentReport) frame {
	return newFrame(r.Commitment, r.Rolling, trendSeries(r.Trend))
}

// commitmentTitle names a commitment kind for display, such as "CAPA effectiveness".
func commitmentTitle(kind schema.CommitmentKind) string {
	switch kind {
	case schema.AuditCommitment:
		return "Audit commitment"
	case schema.CAPACommitment:
		return "CAPA commitment"
	case schema.CAPAEffectiveness:
		return "CAPA effectiveness"
	case schema.ComplaintCommitment:
		return "Complaint commitment"
	case schema.TrainingCommitment:
		return "Training commitment"
	default:
		return string(kind)
	}
}

// writeCommitmentTable writes the human-readable table of one report.
// Rolling and trend columns appear only when the report carries them.
func writeCommitmentTable(w io.Writer, r schema.CommitmentReport, fmtValue func(float64) string) error {
	title := commitmentTitle(r.Kind)
	if !r.Available {
		writeUnavailable(w, title, r.Reason)
		return nil
	}

	_, _ = fmt.Fprintf(w, "📈 %s (%%) by %s\n", title, r.Granularity)
	if r.Goal != nil {
		_, _ = fmt.Fprintf(w, "🎯 Goal: %s%%\n", fmtValue(*r.Goal))
	}

	f := commitmentFrame(r)
	withRolling := r.Rolling.Len() > 0
	withTrend := r.Trend != nil

	headers := []string{r.Granularity.Title(), "Commitment"}
	if withRolling {
		headers = append(headers, "Rolling Avg")
	}
	if withTrend {
		headers = append(headers, "Trend")
	}
	headers = append(headers, "Goal")

	rows := make([][]string, len(f.periods))
	for i, p := range f.periods {
		v := f.value(i, 0)
		row := []string{p.Label(), fmtValue(v)}
		if withRolling {
			row = append(row, fmtValue(f.value(i, 1)))
		}
		if withTrend {
			row = append(row, fmtValue(f.value(i, 2)))
		}
		row = append(row, contract.GetColorLabel(v, r.Goal))
		rows[i] = row
	}
	if err := renderTable(w, headers, rows); err != nil {
		return err
	}
	writeNotes(w, trendNotes(r.Trend)...)
	return nil
}

// writeCommitmentCSV writes every available report as rows keyed by kind and period.
func writeCommitmentCSV(w io.Writer, reports []schema.CommitmentReport, fmtValue func(float64) string) error {
	return writeCSVWithHeader(w, commitmentCSVHeader, func(cw *csv.Writer) error {
		for _, r := range reports {
			if !r.Available {
				continue
			}
			f := commitmentFrame(r)
			for i, row := range f.csvRows(fmtValue, string(r.Kind)) {
				row = append(row, schema.GetGoalLabel(f.value(i, 0), r.Goal))
				if err := cw.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// commitmentSeries returns the named series of every available report.
func commitmentSeries(reports ...schema.CommitmentReport) []schema.Series {
	var out []schema.Series
	for _, r := range reports {
		if !r.Available {
			continue
		}
		out = append(out, r.Commitment)
		if r.Rolling.Len() > 0 {
			out = append(out, r.Rolling)
		}
		if r.Trend != nil {
			out = append(out, r.Trend.Series)
		}
	}
	return out
}
