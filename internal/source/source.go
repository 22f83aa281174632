// Package source reads KPI record sets from files and HTTP endpoints.
package source

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/kpiscore/schema"
	"github.com/rs/zerolog/log"
)

// timeLayouts are tried in order after any time-of-day suffix starting with 'T' is dropped.
var timeLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// ParseTimestamp parses a timestamp cell into a UTC date. Only the date part of an
// ISO-8601 date time is kept, so time zones never move a record across a period boundary.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if date, _, ok := strings.Cut(s, "T"); ok {
		s = date
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// recordBuilder converts raw cells into typed records using the declared column kinds.
// Columns that are not declared for the category are kept as categorical columns.
type recordBuilder struct {
	category schema.Category
	columns  map[string]schema.ColumnKind
	coerced  int
}

func newRecordBuilder(category schema.Category, header []string) (*recordBuilder, error) {
	declared, ok := schema.SourceColumns[category]
	if !ok {
		return nil, fmt.Errorf("%w: %s", schema.ErrUnknownCategory, category)
	}
	columns := make(map[string]schema.ColumnKind, len(header))
	for _, col := range header {
		if col == "" {
			continue
		}
		kind, ok := declared[col]
		if !ok {
			kind = schema.CategoryColumn
		}
		columns[col] = kind
	}
	return &recordBuilder{category: category, columns: columns}, nil
}

// add converts one row. Empty and unparseable cells are null.
func (b *recordBuilder) add(cells map[string]any) schema.Record {
	rec := schema.Record{
		Times:   map[string]time.Time{},
		Labels:  map[string]string{},
		Numbers: map[string]float64{},
	}
	for col, kind := range b.columns {
		raw, ok := cells[col]
		if !ok || raw == nil {
			continue
		}
		switch kind {
		case schema.TimeColumn:
			if t, ok := ParseTimestamp(cellString(raw)); ok {
				rec.Times[col] = t
			} else if cellString(raw) != "" {
				b.coerced++
			}
		case schema.NumberColumn:
			if v, ok := cellNumber(raw); ok {
				rec.Numbers[col] = v
			} else if cellString(raw) != "" {
				b.coerced++
			}
		default:
			if s := strings.TrimSpace(cellString(raw)); s != "" {
				rec.Labels[col] = s
			}
		}
	}
	return rec
}

func (b *recordBuilder) build(records []schema.Record) schema.RecordSet {
	if b.coerced > 0 {
		log.Debug().
			Str("category", string(b.category)).
			Int("cells", b.coerced).
			Msg("coerced unparseable cells to null")
	}
	return schema.RecordSet{Category: b.category, Columns: b.columns, Records: records}
}

func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func cellNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// decodeJSON reads a JSON array of flat objects. The header is the union of all keys.
func decodeJSON(category schema.Category, r io.Reader) (schema.RecordSet, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return schema.RecordSet{}, fmt.Errorf("failed to decode %s records: %w", category, err)
	}

	// An empty export still declares the expected columns.
	seen := map[string]struct{}{}
	if len(rows) == 0 {
		for k := range schema.SourceColumns[category] {
			seen[k] = struct{}{}
		}
	}
	for _, row := range rows {
		for k := range row {
			seen[k] = struct{}{}
		}
	}
	b, err := newRecordBuilder(category, slices.Sorted(maps.Keys(seen)))
	if err != nil {
		return schema.RecordSet{}, err
	}

	records := make([]schema.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, b.add(row))
	}
	return b.build(records), nil
}
