package core

import (
	"fmt"
	"math"

	"github.com/huangsam/kpiscore/core/agg"
	"github.com/huangsam/kpiscore/core/algo"
	"github.com/huangsam/kpiscore/schema"
)

// window is the canonical range of a query together with its display window.
type window struct {
	g        schema.Granularity
	rng      []schema.Period // canonical range
	from, to schema.Period   // display window, clamped to rng
}

// resolveWindow builds the canonical range of q and clamps the display window to it.
func resolveWindow(q schema.QueryContext) (window, error) {
	rng, err := agg.PeriodsFor(q.Granularity, q.Epoch, q.AsOf)
	if err != nil {
		return window{}, err
	}
	if len(rng) == 0 {
		return window{}, fmt.Errorf("%w: as-of date %s is before the epoch %s", schema.ErrInvalidWindow, q.AsOf.Format("2006-01-02"), q.Epoch.Format("2006-01-02"))
	}

	w := window{g: q.Granularity, rng: rng, from: rng[0], to: rng[len(rng)-1]}
	if from := q.From.As(q.Granularity); !from.IsZero() && from.After(w.from) {
		w.from = from
	}
	if to := q.To.LastAs(q.Granularity); !to.IsZero() && to.Before(w.to) {
		w.to = to
	}
	if w.from.After(w.to) {
		return window{}, fmt.Errorf("%w: %s to %s lies outside %s to %s",
			schema.ErrInvalidWindow, w.from, w.to, rng[0], rng[len(rng)-1])
	}
	return w, nil
}

// current returns the still-accumulating period, the last of the canonical range.
func (w window) current() schema.Period {
	return w.rng[len(w.rng)-1]
}

// withStart returns w with the display window starting at p, unless p lies outside it.
func (w window) withStart(p schema.Period) window {
	if !p.IsZero() && p.After(w.from) && !p.After(w.to) {
		w.from = p
	}
	return w
}

// trendEdges describes the boundary periods a trendline may leave out of its fit.
type trendEdges struct {
	// first is the first tracked period; it is excluded when it opens the window.
	first       schema.Period
	firstReason string

	lastReason string

	// percent clips predictions to [0, 100]; otherwise they are clipped at 0.
	percent bool
}

// trend fits a trendline over the display window of full. The current period is
// excluded from the fit when the window ends on it. Degenerate windows yield nil.
func (w window) trend(full schema.Series, edges trendEdges) *schema.Trendline {
	shown := full.Slice(w.from, w.to)
	opts := algo.TrendOptions{
		ExcludeFirst: !edges.first.IsZero() && edges.first == w.from,
		FirstReason:  edges.firstReason,
		ExcludeLast:  w.to == w.current(),
		LastReason:   edges.lastReason,
		ClipMin:      schema.FloatPtr(0),
	}
	if edges.percent {
		opts.ClipMax = schema.FloatPtr(100)
	}

	line, ok := algo.TrendOver(shown, opts)
	if !ok {
		return nil
	}
	return &line
}

// rolling returns the rolling average of full over the display window.
// The average is computed before slicing so early window periods see prior data;
// the current period is left out since it is still accumulating.
func (w window) rolling(full schema.Series) schema.Series {
	avg := algo.RollingAverage(full, schema.RollingWindow)
	to := w.to
	if to == w.current() {
		to = to.Prev()
	}
	if to.Before(w.from) {
		return schema.Series{Name: avg.Name, Start: w.from}
	}
	return avg.Slice(w.from, to)
}

// firstActive returns the first period of s holding a value other than NaN or zero.
func firstActive(s schema.Series) schema.Period {
	for i, v := range s.Values {
		if v != 0 && !math.IsNaN(v) {
			return s.Start.Add(i)
		}
	}
	return schema.Period{}
}
