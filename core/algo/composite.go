package algo

import (
	"fmt"
	"math"
	"slices"

	"github.com/huangsam/kpiscore/schema"
)

// Composite is a weighted blend of category commitment series.
type Composite struct {
	Score schema.Series

	// MinPeriod is the latest first-valid period among the categories, and
	// MinPeriodCategory the category it came from. The score is meaningful from there on.
	MinPeriod         schema.Period
	MinPeriodCategory schema.Category
}

// WeightedCommitment returns offset + Σ weight*series over the union of the component
// indexes. A NaN term, or a period outside a component's index, makes that cell NaN.
//
// Every weighted category must be available; otherwise the call fails with a
// *schema.CategoriesUnavailableError naming them all. Weights must name known
// categories with a component entry.
func WeightedCommitment(components map[schema.Category]schema.Result[schema.Series], weights map[schema.Category]float64, offset float64) (Composite, error) {
	categories := make([]schema.Category, 0, len(weights))
	for c := range weights {
		if _, ok := schema.ValidCategories[c]; !ok {
			return Composite{}, fmt.Errorf("%w: %q", schema.ErrUnknownCategory, c)
		}
		if _, ok := components[c]; !ok {
			return Composite{}, fmt.Errorf("%w: no %s series supplied", schema.ErrUnknownCategory, c)
		}
		categories = append(categories, c)
	}
	slices.Sort(categories)

	series := make(map[schema.Category]schema.Series, len(categories))
	var missing []schema.Category
	for _, c := range categories {
		s, ok := components[c].Get()
		if !ok {
			missing = append(missing, c)
			continue
		}
		series[c] = s
	}
	if len(missing) > 0 {
		return Composite{}, &schema.CategoriesUnavailableError{Categories: missing}
	}

	out := Composite{}
	var start, end schema.Period
	for _, c := range categories {
		s := series[c]
		if s.Len() == 0 {
			continue
		}
		if !start.IsZero() && s.Granularity() != start.Granularity {
			return Composite{}, fmt.Errorf("%w: %s is %s but others are %s",
				ErrIndexMismatch, c, s.Granularity(), start.Granularity)
		}
		if start.IsZero() || s.Start.Before(start) {
			start = s.Start
		}
		if end.IsZero() || s.End().After(end) {
			end = s.End()
		}

		if first, ok := s.FirstValid(); ok && (out.MinPeriod.IsZero() || first.After(out.MinPeriod)) {
			out.MinPeriod = first
			out.MinPeriodCategory = c
		}
	}

	n := 0
	if !start.IsZero() {
		n = end.Sub(start) + 1
	}
	out.Score = schema.Series{Name: "composite", Start: start, Values: make([]float64, n)}
	for i := range out.Score.Values {
		p := start.Add(i)
		total := offset
		for _, c := range categories {
			v, ok := series[c].At(p)
			if !ok {
				v = math.NaN()
			}
			total += weights[c] * v
		}
		out.Score.Values[i] = total
	}
	return out, nil
}
