package agg

import (
	"math"
	"slices"

	"github.com/huangsam/kpiscore/schema"
)

// CountByPeriod counts records per derived period and reindexes onto rng.
// Absent periods are 0. Records with a null period or one outside rng are not counted.
func CountByPeriod(rs schema.RecordSet, periodCol string, rng []schema.Period) (schema.Series, error) {
	return CountWhere(rs, periodCol, rng, nil)
}

// CountWhere is CountByPeriod restricted to records for which keep reports true.
// A nil keep counts every record.
func CountWhere(rs schema.RecordSet, periodCol string, rng []schema.Period, keep func(schema.Record) bool) (schema.Series, error) {
	if err := rs.Require(schema.DerivedColumn, periodCol); err != nil {
		return schema.Series{}, err
	}

	out := schema.NewSeries(periodCol, rng, 0)
	ri := newRangeIndex(rng)
	for _, r := range rs.Records {
		p, ok := r.Period(periodCol)
		if !ok || (keep != nil && !keep(r)) {
			continue
		}
		i, in, err := ri.offset(p)
		if err != nil {
			return schema.Series{}, err
		}
		if in {
			out.Values[i]++
		}
	}
	return out, nil
}

// SumByPeriod sums a numeric column per derived period over rng.
// Null numbers contribute nothing; absent periods are 0.
func SumByPeriod(rs schema.RecordSet, periodCol, numberCol string, rng []schema.Period) (schema.Series, error) {
	if err := rs.Require(schema.DerivedColumn, periodCol); err != nil {
		return schema.Series{}, err
	}
	if err := rs.Require(schema.NumberColumn, numberCol); err != nil {
		return schema.Series{}, err
	}

	out := schema.NewSeries(numberCol, rng, 0)
	ri := newRangeIndex(rng)
	for _, r := range rs.Records {
		p, ok := r.Period(periodCol)
		if !ok {
			continue
		}
		v, ok := r.Number(numberCol)
		if !ok || math.IsNaN(v) {
			continue
		}
		i, in, err := ri.offset(p)
		if err != nil {
			return schema.Series{}, err
		}
		if in {
			out.Values[i] += v
		}
	}
	return out, nil
}

// DistinctByPeriod counts distinct non-null values of a categorical column per derived period.
func DistinctByPeriod(rs schema.RecordSet, periodCol, catCol string, rng []schema.Period) (schema.Series, error) {
	if err := rs.Require(schema.DerivedColumn, periodCol); err != nil {
		return schema.Series{}, err
	}
	if err := rs.Require(schema.CategoryColumn, catCol); err != nil {
		return schema.Series{}, err
	}

	seen := make([]map[string]struct{}, len(rng))
	ri := newRangeIndex(rng)
	for _, r := range rs.Records {
		p, ok := r.Period(periodCol)
		if !ok {
			continue
		}
		label, ok := r.Label(catCol)
		if !ok {
			continue
		}
		i, in, err := ri.offset(p)
		if err != nil {
			return schema.Series{}, err
		}
		if !in {
			continue
		}
		if seen[i] == nil {
			seen[i] = make(map[string]struct{})
		}
		seen[i][label] = struct{}{}
	}

	out := schema.NewSeries(catCol, rng, 0)
	for i, set := range seen {
		out.Values[i] = float64(len(set))
	}
	return out, nil
}

// CountByPeriodAndCategory counts records per (derived period, category value) over rng.
// Categories are every value observed in rs, sorted, with null values bucketed as
// schema.UnknownCategory and listed last. Missing cells are 0, so the row sums equal
// CountByPeriod over the same inputs.
func CountByPeriodAndCategory(rs schema.RecordSet, periodCol, catCol string, rng []schema.Period) (schema.Table, error) {
	if err := rs.Require(schema.DerivedColumn, periodCol); err != nil {
		return schema.Table{}, err
	}
	if err := rs.Require(schema.CategoryColumn, catCol); err != nil {
		return schema.Table{}, err
	}

	categories := observedCategories(rs, catCol)
	position := make(map[string]int, len(categories))
	for j, c := range categories {
		position[c] = j
	}

	out := schema.Table{Categories: categories, Counts: make([][]float64, len(rng))}
	if len(rng) > 0 {
		out.Start = rng[0]
	}
	for i := range out.Counts {
		out.Counts[i] = make([]float64, len(categories))
	}

	ri := newRangeIndex(rng)
	for _, r := range rs.Records {
		p, ok := r.Period(periodCol)
		if !ok {
			continue
		}
		i, in, err := ri.offset(p)
		if err != nil {
			return schema.Table{}, err
		}
		if !in {
			continue
		}
		out.Counts[i][position[categoryOf(r, catCol)]]++
	}
	return out, nil
}

func categoryOf(r schema.Record, catCol string) string {
	if label, ok := r.Label(catCol); ok {
		return label
	}
	return schema.UnknownCategory
}

// observedCategories returns the distinct category values of rs in sorted order, Unknown last.
func observedCategories(rs schema.RecordSet, catCol string) []string {
	set := make(map[string]struct{})
	for _, r := range rs.Records {
		set[categoryOf(r, catCol)] = struct{}{}
	}
	_, hasUnknown := set[schema.UnknownCategory]
	delete(set, schema.UnknownCategory)

	out := make([]string, 0, len(set)+1)
	for c := range set {
		out = append(out, c)
	}
	slices.Sort(out)
	if hasUnknown {
		out = append(out, schema.UnknownCategory)
	}
	return out
}
