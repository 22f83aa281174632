package agg

import (
	"fmt"
	"maps"
	"strings"

	"github.com/huangsam/kpiscore/schema"
)

// AttachPeriodLabels returns a copy of rs with a derived period column for each
// timestamp column and granularity, named by schema.PeriodColumn. The input is not
// modified and the original timestamp columns are retained. A null timestamp gives
// a null period in that derived column only.
func AttachPeriodLabels(rs schema.RecordSet, cols []string, gs []schema.Granularity) (schema.RecordSet, error) {
	if err := rs.Require(schema.TimeColumn, cols...); err != nil {
		return schema.RecordSet{}, err
	}
	for _, g := range gs {
		if err := ValidateGranularity(g); err != nil {
			return schema.RecordSet{}, err
		}
	}

	out := schema.RecordSet{
		Category: rs.Category,
		Columns:  make(map[string]schema.ColumnKind, len(rs.Columns)+len(cols)*len(gs)),
		Records:  make([]schema.Record, len(rs.Records)),
	}
	maps.Copy(out.Columns, rs.Columns)
	for _, col := range cols {
		for _, g := range gs {
			out.Columns[schema.PeriodColumn(col, g)] = schema.DerivedColumn
		}
	}

	for i, r := range rs.Records {
		periods := make(map[string]schema.Period, len(r.Periods)+len(cols)*len(gs))
		maps.Copy(periods, r.Periods)
		for _, col := range cols {
			t, ok := r.Time(col)
			for _, g := range gs {
				name := schema.PeriodColumn(col, g)
				if !ok {
					delete(periods, name)
					continue
				}
				periods[name] = schema.PeriodAt(t.UTC(), g)
			}
		}
		r.Periods = periods
		out.Records[i] = r
	}
	return out, nil
}

// Filter returns the records of rs for which keep reports true.
func Filter(rs schema.RecordSet, keep func(schema.Record) bool) schema.RecordSet {
	out := schema.RecordSet{Category: rs.Category, Columns: rs.Columns}
	for _, r := range rs.Records {
		if keep(r) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// ApplyFilters keeps the records whose categorical columns equal every filter value.
// Filters on columns the record set does not have are ignored, so one filter map
// can be applied across categories.
func ApplyFilters(rs schema.RecordSet, filters map[string]string) (schema.RecordSet, error) {
	active := make(map[string]string, len(filters))
	for col, want := range filters {
		kind, ok := rs.Columns[col]
		if !ok {
			continue
		}
		if kind != schema.CategoryColumn {
			return schema.RecordSet{}, fmt.Errorf("%w: filter column %q in %s records is %s, not %s",
				schema.ErrMissingColumn, col, rs.Category, kind, schema.CategoryColumn)
		}
		active[col] = want
	}
	if len(active) == 0 {
		return rs, nil
	}

	return Filter(rs, func(r schema.Record) bool {
		for col, want := range active {
			got, ok := r.Label(col)
			if !ok {
				got = schema.UnknownCategory
			}
			if got != want {
				return false
			}
		}
		return true
	}), nil
}

// DeriveCAPAStatus returns a copy of rs whose status column reads Closed when the
// raw status text mentions Closed and Open otherwise, null included.
func DeriveCAPAStatus(rs schema.RecordSet) (schema.RecordSet, error) {
	if err := rs.Require(schema.CategoryColumn, schema.ColCAPAStatus); err != nil {
		return schema.RecordSet{}, err
	}

	out := schema.RecordSet{Category: rs.Category, Columns: rs.Columns, Records: make([]schema.Record, len(rs.Records))}
	for i, r := range rs.Records {
		labels := make(map[string]string, len(r.Labels)+1)
		maps.Copy(labels, r.Labels)
		status := "Open"
		if raw, ok := r.Label(schema.ColCAPAStatus); ok && strings.Contains(raw, "Closed") {
			status = "Closed"
		}
		labels[schema.ColCAPAStatus] = status
		r.Labels = labels
		out.Records[i] = r
	}
	return out, nil
}
