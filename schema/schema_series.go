package schema

import (
	"encoding/json"
	"math"
)

// Series maps each period of a contiguous range to a value.
// Missing cells hold NaN, which is distinct from zero.
type Series struct {
	Name   string
	Start  Period
	Values []float64
}

// SeriesPoint is one cell of a Series in a JSON-friendly shape.
// Value is nil when the cell is missing.
type SeriesPoint struct {
	Period Period   `json:"period"`
	Label  string   `json:"label"`
	Value  *float64 `json:"value"`
}

// NewSeries returns a series over periods filled with fill.
func NewSeries(name string, periods []Period, fill float64) Series {
	s := Series{Name: name, Values: make([]float64, len(periods))}
	if len(periods) > 0 {
		s.Start = periods[0]
	}
	for i := range s.Values {
		s.Values[i] = fill
	}
	return s
}

// Len returns the number of periods in s.
func (s Series) Len() int {
	return len(s.Values)
}

// Granularity returns the granularity of the series index.
func (s Series) Granularity() Granularity {
	return s.Start.Granularity
}

// End returns the last period of s, or the null period when s is empty.
func (s Series) End() Period {
	if len(s.Values) == 0 {
		return Period{}
	}
	return s.Start.Add(len(s.Values) - 1)
}

// Periods returns the index of s.
func (s Series) Periods() []Period {
	out := make([]Period, len(s.Values))
	for i := range s.Values {
		out[i] = s.Start.Add(i)
	}
	return out
}

// At returns the value for p and whether p lies in the index.
func (s Series) At(p Period) (float64, bool) {
	i := p.Sub(s.Start)
	if len(s.Values) == 0 || i < 0 || i >= len(s.Values) {
		return math.NaN(), false
	}
	return s.Values[i], true
}

// Slice returns the cells in [from, to], clamped to the index.
// A null bound means the corresponding end of the series.
func (s Series) Slice(from, to Period) Series {
	if len(s.Values) == 0 {
		return Series{Name: s.Name, Start: s.Start}
	}
	lo, hi := 0, len(s.Values)-1
	if !from.IsZero() {
		lo = max(lo, from.Sub(s.Start))
	}
	if !to.IsZero() {
		hi = min(hi, to.Sub(s.Start))
	}
	if lo > hi {
		return Series{Name: s.Name, Start: s.Start.Add(lo)}
	}
	values := make([]float64, hi-lo+1)
	copy(values, s.Values[lo:hi+1])
	return Series{Name: s.Name, Start: s.Start.Add(lo), Values: values}
}

// FirstValid returns the first period holding a non-NaN value.
func (s Series) FirstValid() (Period, bool) {
	for i, v := range s.Values {
		if !math.IsNaN(v) {
			return s.Start.Add(i), true
		}
	}
	return Period{}, false
}

// Valid returns the number of non-NaN cells.
func (s Series) Valid() int {
	n := 0
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Points returns the series cells with NaN mapped to nil.
func (s Series) Points() []SeriesPoint {
	points := make([]SeriesPoint, len(s.Values))
	for i, v := range s.Values {
		p := s.Start.Add(i)
		points[i] = SeriesPoint{Period: p, Label: p.Label(), Value: FloatPtr(v)}
	}
	return points
}

// MarshalJSON encodes NaN cells as null.
func (s Series) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name        string        `json:"name"`
		Granularity Granularity   `json:"granularity"`
		Points      []SeriesPoint `json:"points"`
	}{
		Name:        s.Name,
		Granularity: s.Granularity(),
		Points:      s.Points(),
	})
}

// Table maps each period of a contiguous range to per-category counts.
// Counts is indexed by period offset then by category position.
type Table struct {
	Start      Period      `json:"start"`
	Categories []string    `json:"categories"`
	Counts     [][]float64 `json:"counts"`
}

// Len returns the number of periods in t.
func (t Table) Len() int {
	return len(t.Counts)
}

// Periods returns the index of t.
func (t Table) Periods() []Period {
	out := make([]Period, len(t.Counts))
	for i := range t.Counts {
		out[i] = t.Start.Add(i)
	}
	return out
}

// Column returns the series of one category. Unknown categories yield all zeros.
func (t Table) Column(category string) Series {
	s := Series{Name: category, Start: t.Start, Values: make([]float64, len(t.Counts))}
	for j, c := range t.Categories {
		if c != category {
			continue
		}
		for i, row := range t.Counts {
			s.Values[i] = row[j]
		}
	}
	return s
}

// Totals returns the per-period row sums.
func (t Table) Totals() Series {
	s := Series{Name: "total", Start: t.Start, Values: make([]float64, len(t.Counts))}
	for i, row := range t.Counts {
		for _, v := range row {
			s.Values[i] += v
		}
	}
	return s
}

// FloatPtr returns nil for NaN and a pointer to v otherwise.
func FloatPtr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
