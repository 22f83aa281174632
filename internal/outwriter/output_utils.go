package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/internal/parquet"
	"github.com/huangsam/kpiscore/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if err := writeRows(csvWriter); err != nil {
		return err
	}

	return nil
}

// writeParquet writes series as rows of a single Parquet file.
func writeParquet(outputFile string, series ...schema.Series) error {
	if outputFile == "" {
		return errors.New("--output-file is required for parquet output")
	}
	return writeWithFile(outputFile, func(w io.Writer) error {
		return parquet.Write(w, parquet.SeriesRows(series...))
	}, "Wrote Parquet")
}

// createFormatters creates the value formatter closures used across multiple output types.
// Missing values render as empty strings.
func createFormatters(precision int) (fmtValue func(float64) string, fmtCount func(float64) string) {
	fmtValue = func(v float64) string {
		return contract.FormatValue(v, precision)
	}
	fmtCount = func(v float64) string {
		return contract.FormatValue(v, 0)
	}
	return fmtValue, fmtCount
}

// renderTable writes a right-aligned table with the given headers and rows.
func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// frame lines up several series on a shared period index.
// The index spans from the earliest start to the latest end of the non-empty columns.
type frame struct {
	periods []schema.Period
	columns []schema.Series
}

func newFrame(columns ...schema.Series) frame {
	f := frame{columns: columns}
	var first, last schema.Period
	for _, s := range columns {
		if s.Len() == 0 {
			continue
		}
		if first.IsZero() || s.Start.Before(first) {
			first = s.Start
		}
		if last.IsZero() || s.End().After(last) {
			last = s.End()
		}
	}
	if first.IsZero() {
		return f
	}
	for p := first; !p.After(last); p = p.Next() {
		f.periods = append(f.periods, p)
	}
	return f
}

// value returns the cell of column col at row i, NaN when the column does not cover it.
func (f frame) value(i, col int) float64 {
	v, _ := f.columns[col].At(f.periods[i])
	return v
}

// tableRows renders each period as its label followed by the formatted columns.
func (f frame) tableRows(format func(float64) string) [][]string {
	rows := make([][]string, len(f.periods))
	for i, p := range f.periods {
		row := make([]string, 0, len(f.columns)+1)
		row = append(row, p.Label())
		for j := range f.columns {
			row = append(row, format(f.value(i, j)))
		}
		rows[i] = row
	}
	return rows
}

// csvRows renders each period as its key and label followed by the formatted columns.
func (f frame) csvRows(format func(float64) string, prefix ...string) [][]string {
	rows := make([][]string, len(f.periods))
	for i, p := range f.periods {
		row := make([]string, 0, len(prefix)+len(f.columns)+2)
		row = append(row, prefix...)
		row = append(row, p.String(), p.Label())
		for j := range f.columns {
			row = append(row, format(f.value(i, j)))
		}
		rows[i] = row
	}
	return rows
}

// trendSeries returns the fitted series of t, or an empty series when there is no fit.
func trendSeries(t *schema.Trendline) schema.Series {
	if t == nil {
		return schema.Series{}
	}
	return t.Series
}

// trendNotes returns the notes attached to t.
func trendNotes(t *schema.Trendline) []string {
	if t == nil {
		return nil
	}
	return t.Notes
}
