package algo

import (
	"math"

	"github.com/huangsam/kpiscore/schema"
)

// FitTrend fits y = Slope*x + Intercept to the non-NaN values of y by least squares,
// subject to Intercept >= 0. x is the offset of each value in y, so missing values
// leave gaps rather than shifting later points. Fewer than schema.MinTrendPoints
// valid values is degenerate and reports false.
//
// The objective is a convex quadratic with one linear constraint, so the optimum is
// either the unconstrained fit or the best line through the origin.
func FitTrend(y []float64) (schema.TrendFit, bool) {
	var n, sx, sy, sxx, sxy float64
	for i, v := range y {
		if math.IsNaN(v) {
			continue
		}
		x := float64(i)
		n++
		sx += x
		sy += v
		sxx += x * x
		sxy += x * v
	}
	if n < schema.MinTrendPoints {
		return schema.TrendFit{}, false
	}

	fit := schema.TrendFit{Points: int(n)}
	den := n*sxx - sx*sx
	fit.Slope = (n*sxy - sx*sy) / den
	fit.Intercept = (sy - fit.Slope*sx) / n
	if fit.Intercept < 0 {
		fit.Intercept = 0
		fit.Slope = sxy / sxx
	}
	return fit, true
}

// PredictTrend evaluates fit at offsets -before through n-1+after and clamps the
// predictions to the bounds that are not nil.
func PredictTrend(fit schema.TrendFit, n, before, after int, clipMin, clipMax *float64) []float64 {
	out := make([]float64, 0, before+n+after)
	for x := -before; x < n+after; x++ {
		v := fit.Slope*float64(x) + fit.Intercept
		if clipMin != nil {
			v = math.Max(v, *clipMin)
		}
		if clipMax != nil {
			v = math.Min(v, *clipMax)
		}
		out = append(out, v)
	}
	return out
}

// TrendOptions controls which boundary periods are left out of a fit.
// Excluded periods still receive a prediction.
type TrendOptions struct {
	// ExcludeFirst drops the first period, e.g. when the process started partway through it.
	ExcludeFirst bool
	FirstReason  string

	// ExcludeLast drops the last period, e.g. when it is still accumulating data.
	ExcludeLast bool
	LastReason  string

	ClipMin *float64
	ClipMax *float64
}

// TrendOver fits a trendline to the window s and aligns the predictions with s.
// It reports false when the fit is degenerate.
func TrendOver(s schema.Series, opts TrendOptions) (schema.Trendline, bool) {
	values := s.Values
	before, after := 0, 0
	var excluded []string

	if opts.ExcludeFirst && len(values) > 0 {
		excluded = append(excluded, s.Start.Label()+" as "+opts.FirstReason)
		values = values[1:]
		before = 1
	}
	if opts.ExcludeLast && len(values) > 0 {
		excluded = append(excluded, s.End().Label()+" as "+opts.LastReason)
		values = values[:len(values)-1]
		after = 1
	}

	fit, ok := FitTrend(values)
	if !ok {
		return schema.Trendline{}, false
	}

	line := schema.Trendline{
		Fit: fit,
		Series: schema.Series{
			Name:   s.Name + " trend",
			Start:  s.Start,
			Values: PredictTrend(fit, len(values), before, after, opts.ClipMin, opts.ClipMax),
		},
	}
	if len(excluded) > 0 {
		line.Notes = []string{"*Trendline calculation excludes " + schema.ItemsInSeries(excluded, "and", true) + "."}
	}
	return line, true
}

// RollingAverage returns the trailing mean over window periods. The first window-1
// periods are NaN, and so is any period whose window holds a NaN.
func RollingAverage(s schema.Series, window int) schema.Series {
	out := schema.Series{Name: s.Name + " rolling", Start: s.Start, Values: make([]float64, s.Len())}
	for i := range out.Values {
		if window <= 0 || i < window-1 {
			out.Values[i] = math.NaN()
			continue
		}
		sum := 0.0
		for _, v := range s.Values[i-window+1 : i+1] {
			sum += v
		}
		out.Values[i] = sum / float64(window)
	}
	return out
}
