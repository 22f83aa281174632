package schema

import (
	"maps"
	"time"
)

// QueryContext carries every selection a computation depends on.
// It replaces ambient dashboard state and is passed by value.
type QueryContext struct {
	Granularity Granularity
	Epoch       time.Time
	AsOf        time.Time

	// From and To bound the display window. Null periods mean the full range.
	From Period
	To   Period

	// Filters keeps only records whose categorical column equals the value.
	Filters map[string]string
}

// WithGranularity returns a copy of q at granularity g, with the window converted to g.
// To keeps covering its whole span, so a year end becomes that year's last month.
func (q QueryContext) WithGranularity(g Granularity) QueryContext {
	out := q.Clone()
	out.Granularity = g
	out.From = q.From.As(g)
	out.To = q.To.LastAs(g)
	return out
}

// Clone returns a deep copy of q.
func (q QueryContext) Clone() QueryContext {
	out := q
	if q.Filters != nil {
		out.Filters = make(map[string]string, len(q.Filters))
		maps.Copy(out.Filters, q.Filters)
	}
	return out
}

// Current returns the period of AsOf at the query granularity.
func (q QueryContext) Current() Period {
	return PeriodAt(q.AsOf, q.Granularity)
}
