// Package agg buckets record sets onto the canonical period index.
package agg

import (
	"fmt"
	"time"

	"github.com/huangsam/kpiscore/schema"
)

// ValidateGranularity returns an error wrapping schema.ErrInvalidGranularity for unknown values.
func ValidateGranularity(g schema.Granularity) error {
	if _, ok := schema.ValidGranularities[g]; !ok {
		return fmt.Errorf("%w: %q", schema.ErrInvalidGranularity, g)
	}
	return nil
}

// Truncate returns the period of g that contains t.
func Truncate(t time.Time, g schema.Granularity) (schema.Period, error) {
	if err := ValidateGranularity(g); err != nil {
		return schema.Period{}, err
	}
	return schema.PeriodAt(t.UTC(), g), nil
}

// PeriodsFor returns the canonical period range: every period of g from the
// period of epoch up to and including the period of asOf, with no gaps.
// An asOf earlier than epoch yields an empty range.
func PeriodsFor(g schema.Granularity, epoch, asOf time.Time) ([]schema.Period, error) {
	first, err := Truncate(epoch, g)
	if err != nil {
		return nil, err
	}
	last, _ := Truncate(asOf, g)
	if last.Before(first) {
		return []schema.Period{}, nil
	}

	periods := make([]schema.Period, 0, last.Sub(first)+1)
	for p := first; !p.After(last); p = p.Next() {
		periods = append(periods, p)
	}
	return periods, nil
}

// SliceRange returns the part of rng within [from, to]. Null bounds are open.
func SliceRange(rng []schema.Period, from, to schema.Period) []schema.Period {
	out := make([]schema.Period, 0, len(rng))
	for _, p := range rng {
		if !from.IsZero() && p.Before(from) {
			continue
		}
		if !to.IsZero() && p.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// rangeIndex locates periods within a contiguous range in constant time.
type rangeIndex struct {
	start schema.Period
	n     int
}

func newRangeIndex(rng []schema.Period) rangeIndex {
	if len(rng) == 0 {
		return rangeIndex{}
	}
	return rangeIndex{start: rng[0], n: len(rng)}
}

// offset returns the position of p in the range. A granularity mismatch is an error;
// a period outside the range reports false.
func (ri rangeIndex) offset(p schema.Period) (int, bool, error) {
	if ri.n == 0 {
		return 0, false, nil
	}
	if p.Granularity != ri.start.Granularity {
		return 0, false, fmt.Errorf("%w: period %s is %s but the range is %s",
			schema.ErrInvalidGranularity, p, p.Granularity, ri.start.Granularity)
	}
	i := p.Sub(ri.start)
	if i < 0 || i >= ri.n {
		return 0, false, nil
	}
	return i, true, nil
}
