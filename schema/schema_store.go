package schema

import "time"

// HistoryRunRecord represents a row from the kpiscore_runs table.
type HistoryRunRecord struct {
	RunID         int64
	Command       string
	Granularity   string
	AsOf          time.Time
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	ConfigParams  *string
}

// HistoryValueRecord represents a row from the kpiscore_values table.
// Value is nil for a missing cell.
type HistoryValueRecord struct {
	RunID   int64
	Series  string
	Period  string
	Value   *float64
	RunTime time.Time
}

// HistoryValues flattens named series into history rows for one run.
func HistoryValues(runID int64, runTime time.Time, series ...Series) []HistoryValueRecord {
	var out []HistoryValueRecord
	for _, s := range series {
		for i, v := range s.Values {
			out = append(out, HistoryValueRecord{
				RunID:   runID,
				Series:  s.Name,
				Period:  s.Start.Add(i).String(),
				Value:   FloatPtr(v),
				RunTime: runTime,
			})
		}
	}
	return out
}
