package outwriter

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func auditReport(t *testing.T) schema.CommitmentReport {
	q1 := schema.PeriodAt(mustDate(t, "2025-01-01"), schema.Quarter)
	return schema.CommitmentReport{
		Kind:        schema.AuditCommitment,
		Category:    schema.Audits,
		Granularity: schema.Quarter,
		Available:   true,
		Commitment:  schema.Series{Name: "audit", Start: q1, Values: []float64{100, 50, math.NaN()}},
		Rolling:     schema.Series{Name: "audit rolling", Start: q1, Values: []float64{100, 75, 75}},
		Trend: &schema.Trendline{
			Fit:    schema.TrendFit{Slope: -50, Intercept: 150, Points: 2},
			Series: schema.Series{Name: "audit trend", Start: q1, Values: []float64{100, 50, 0}},
			Notes:  []string{"Excluding Q3 2025 as there may be more audits this quarter."},
		},
		Goal: schema.FloatPtr(100),
	}
}

func TestLogQueryHeader(t *testing.T) {
	cfg := &contract.Config{
		Granularity: schema.Month,
		AsOf:        mustDate(t, "2025-03-15"),
		From:        schema.PeriodAt(mustDate(t, "2025-01-01"), schema.Month),
	}

	var buf bytes.Buffer
	writeQueryHeader(&buf, cfg, "Commitment")
	output := buf.String()
	assert.Contains(t, output, "Commitment by month (as of 2025-03-15)")
	assert.Contains(t, output, "Window: Jan 2025 → current")
}

func TestWriteCommitmentTable(t *testing.T) {
	fmtValue, _ := createFormatters(1)

	var buf bytes.Buffer
	require.NoError(t, writeCommitmentTable(&buf, auditReport(t), fmtValue))

	output := buf.String()
	assert.Contains(t, output, "Audit commitment (%) by quarter")
	assert.Contains(t, output, "Goal: 100.0%")
	assert.Contains(t, output, "Q1 2025")
	assert.Contains(t, output, "100.0")
	assert.Contains(t, output, "75.0")
	assert.Contains(t, output, schema.GoalMetValue)
	assert.Contains(t, output, schema.BelowGoalValue)
	assert.Contains(t, output, schema.NoDataValue)
	assert.Contains(t, output, "Excluding Q3 2025")
}

func TestWriteCommitmentTableUnavailable(t *testing.T) {
	fmtValue, _ := createFormatters(1)
	report := schema.CommitmentReport{Kind: schema.CAPAEffectiveness, Reason: "CAPAs data could not be retrieved"}

	var buf bytes.Buffer
	require.NoError(t, writeCommitmentTable(&buf, report, fmtValue))
	assert.Contains(t, buf.String(), "CAPA effectiveness unavailable: CAPAs data could not be retrieved")
}

func TestWriteCommitmentCSV(t *testing.T) {
	fmtValue, _ := createFormatters(1)
	reports := []schema.CommitmentReport{
		auditReport(t),
		{Kind: schema.TrainingCommitment, Reason: "missing"},
	}

	var buf bytes.Buffer
	require.NoError(t, writeCommitmentCSV(&buf, reports, fmtValue))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4) // header + 3 quarters, the unavailable report is skipped
	assert.Equal(t, "kind,period,label,commitment,rolling_average,trend,goal_status", lines[0])
	assert.Equal(t, "audit,2025Q1,Q1 2025,100.0,100.0,100.0,Met", lines[1])
	assert.Equal(t, "audit,2025Q2,Q2 2025,50.0,75.0,50.0,Below goal", lines[2])
	assert.Equal(t, "audit,2025Q3,Q3 2025,,75.0,0.0,No data", lines[3])
}

func TestCommitmentSeries(t *testing.T) {
	report := auditReport(t)
	series := commitmentSeries(report, schema.CommitmentReport{Kind: schema.CAPACommitment})
	require.Len(t, series, 3)
	assert.Equal(t, []string{"audit", "audit rolling", "audit trend"}, []string{series[0].Name, series[1].Name, series[2].Name})

	report.Rolling = schema.Series{}
	report.Trend = nil
	assert.Len(t, commitmentSeries(report), 1)
}

func TestPrintCommitmentResultsJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "commitment.json")
	cfg := &contract.Config{Output: schema.JSONOut, OutputFile: tmpFile, Precision: 1}

	require.NoError(t, PrintCommitmentResults([]schema.CommitmentReport{auditReport(t)}, cfg, time.Second))

	content, err := os.ReadFile(tmpFile)
	require.NoError(t, err)
	var result []map[string]any
	require.NoError(t, json.Unmarshal(content, &result))
	require.Len(t, result, 1)
	assert.Equal(t, "audit", result[0]["kind"])
	assert.Equal(t, true, result[0]["available"])
	assert.Equal(t, 100.0, result[0]["goal"])

	commitment := result[0]["commitment"].(map[string]any)
	points := commitment["points"].([]any)
	require.Len(t, points, 3)
	assert.Nil(t, points[2].(map[string]any)["value"], "NaN is encoded as null")
}

func TestPrintTrendResultsTable(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "trend.txt")
	cfg := &contract.Config{Output: schema.TextOut, OutputFile: tmpFile, Precision: 1, Workers: 2, CacheBackend: schema.SQLiteBackend}

	require.NoError(t, PrintTrendResults(auditReport(t), cfg, 100*time.Millisecond))

	content, err := os.ReadFile(tmpFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "ROLLING AVG")
	assert.Contains(t, string(content), "Trend computed in 100ms with 2 workers. Cache backend: sqlite")
}

func TestPrintTrendResultsParquet(t *testing.T) {
	cfg := &contract.Config{Output: schema.ParquetOut, Precision: 1}
	err := PrintTrendResults(auditReport(t), cfg, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output-file is required")

	cfg.OutputFile = filepath.Join(t.TempDir(), "trend.parquet")
	require.NoError(t, PrintTrendResults(auditReport(t), cfg, time.Second))
	_, err = os.Stat(cfg.OutputFile)
	require.NoError(t, err)
}

func countReport(t *testing.T) schema.CountReport {
	jan := schema.PeriodAt(mustDate(t, "2025-01-01"), schema.Month)
	table := schema.Table{
		Start:      jan,
		Categories: []string{"Closed", "Open"},
		Counts:     [][]float64{{2, 1}, {0, 3}},
	}
	return schema.CountReport{
		Category:    schema.CAPAs,
		Column:      schema.ColSubmitted,
		Breakdown:   schema.ColCAPAStatus,
		Granularity: schema.Month,
		Available:   true,
		Totals:      table.Totals(),
		Table:       &table,
		Rolling:     schema.Series{Name: "total rolling", Start: jan, Values: []float64{3, 3}},
	}
}

func TestWriteCountTable(t *testing.T) {
	fmtValue, fmtCount := createFormatters(1)

	var buf bytes.Buffer
	require.NoError(t, writeCountTable(&buf, countReport(t), fmtValue, fmtCount, 20))

	output := buf.String()
	assert.Contains(t, output, "CAPAs by "+schema.ColSubmitted+" and "+schema.ColCAPAStatus)
	assert.Contains(t, output, "CLOSED")
	assert.Contains(t, output, "Feb 2025")
	assert.Contains(t, output, "3.0")
	assert.NotContains(t, output, "Trend")
}

func TestWriteCountCSV(t *testing.T) {
	fmtValue, _ := createFormatters(1)

	var buf bytes.Buffer
	require.NoError(t, writeCountCSV(&buf, countReport(t), fmtValue))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "period,label,Closed,Open,total,rolling_average", lines[0])
	assert.Equal(t, "2025-01,Jan 2025,2.0,1.0,3.0,3.0", lines[1])
	assert.Equal(t, "2025-02,Feb 2025,0.0,3.0,3.0,3.0", lines[2])

	buf.Reset()
	unavailable := schema.CountReport{Category: schema.Usage, Column: schema.ColUsageDate, Reason: "missing"}
	require.NoError(t, writeCountCSV(&buf, unavailable, fmtValue))
	assert.Equal(t, "period,label,total,rolling_average\n", buf.String())
}

func compositeReport(t *testing.T) schema.CompositeReport {
	jan := schema.PeriodAt(mustDate(t, "2025-01-01"), schema.Month)
	return schema.CompositeReport{
		Granularity:       schema.Month,
		Score:             schema.Series{Name: "composite", Start: jan, Values: []float64{63, 73}},
		MinPeriod:         jan,
		MinPeriodCategory: schema.Training,
		Weights:           map[schema.Category]float64{schema.Audits: 0.2, schema.Training: 0.8},
		Offset:            1,
		Components: map[schema.Category]schema.Series{
			schema.Training: {Name: "training", Start: jan, Values: []float64{70, 80}},
			schema.Audits:   {Name: "audit", Start: jan, Values: []float64{30, 40}},
		},
		Rolling: schema.Series{Name: "composite rolling", Start: jan, Values: []float64{63, 68}},
		Notes:   []string{"Missing periods have no audits planned and/or no training due."},
	}
}

func TestFormatCompositeFormula(t *testing.T) {
	fmtValue, _ := createFormatters(1)
	assert.Equal(t, "1 + 0.2×Audits + 0.8×Training", formatCompositeFormula(compositeReport(t), fmtValue))

	report := compositeReport(t)
	report.Offset = 0
	assert.Equal(t, "0.2×Audits + 0.8×Training", formatCompositeFormula(report, fmtValue))
}

func TestWriteCompositeTable(t *testing.T) {
	fmtValue, _ := createFormatters(1)

	var buf bytes.Buffer
	require.NoError(t, writeCompositeTable(&buf, compositeReport(t), fmtValue))

	output := buf.String()
	assert.Contains(t, output, "Composite score (%) by month")
	assert.Contains(t, output, "Complete from Jan 2025 (limited by Training)")
	assert.Contains(t, output, "63.0")
	assert.Contains(t, output, "73.0")
	assert.Contains(t, output, "Missing periods have no audits planned")
}

func TestWriteCompositeCSV(t *testing.T) {
	fmtValue, _ := createFormatters(0)

	var buf bytes.Buffer
	require.NoError(t, writeCompositeCSV(&buf, compositeReport(t), fmtValue))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "period,label,score,audits,training,rolling_average", lines[0])
	assert.Equal(t, "2025-01,Jan 2025,63,30,70,63", lines[1])
	assert.Equal(t, "2025-02,Feb 2025,73,40,80,68", lines[2])
}

func TestCompositeSeriesNames(t *testing.T) {
	series := compositeSeries(compositeReport(t))
	names := make([]string, len(series))
	for i, s := range series {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"composite", "audits", "training", "composite rolling"}, names)
}

func TestWriteRateOutputs(t *testing.T) {
	fmtValue, _ := createFormatters(2)
	jan := schema.PeriodAt(mustDate(t, "2025-01-01"), schema.Month)
	report := schema.RateReport{
		Granularity:   schema.Month,
		Available:     true,
		PerHundredRun: schema.Series{Name: "complaints_per_100_runs", Start: jan, Values: []float64{math.NaN(), 0.5}},
		PerAccount:    schema.Series{Name: "complaints_per_account", Start: jan, Values: []float64{math.NaN(), 0.25}},
		ValidFrom:     jan.Next(),
		Notes:         []string{"Rates are undefined before Feb 2025 as usage was not tracked earlier."},
	}

	var buf bytes.Buffer
	require.NoError(t, writeRateTable(&buf, report, fmtValue))
	assert.Contains(t, buf.String(), "PER 100 RUNS")
	assert.Contains(t, buf.String(), "0.50")
	assert.Contains(t, buf.String(), "Rates are undefined before Feb 2025")

	buf.Reset()
	require.NoError(t, writeRateCSV(&buf, report, fmtValue))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2025-01,Jan 2025,,", lines[1])
	assert.Equal(t, "2025-02,Feb 2025,0.50,0.25", lines[2])

	buf.Reset()
	report = schema.RateReport{Reason: "Cannot compute complaint rates because Usage data could not be retrieved."}
	require.NoError(t, writeRateTable(&buf, report, fmtValue))
	assert.Contains(t, buf.String(), "Complaint rates unavailable")
}
