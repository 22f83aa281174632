// Package algo derives commitment, trend and composite series from period counts.
package algo

import (
	"errors"
	"fmt"
	"math"

	"github.com/huangsam/kpiscore/schema"
)

// ErrIndexMismatch is returned when two series that must share an index do not.
var ErrIndexMismatch = errors.New("series index mismatch")

// Ratio returns num/den*100 per period. A zero or NaN denominator gives NaN.
func Ratio(num, den schema.Series) (schema.Series, error) {
	return RatePer(num, den, 100)
}

// RatePer returns num/den*scale per period. A zero or NaN denominator gives NaN.
func RatePer(num, den schema.Series, scale float64) (schema.Series, error) {
	if err := sameIndex(num, den); err != nil {
		return schema.Series{}, err
	}
	out := schema.Series{Name: num.Name, Start: num.Start, Values: make([]float64, num.Len())}
	for i := range out.Values {
		d := den.Values[i]
		if d == 0 || math.IsNaN(d) {
			out.Values[i] = math.NaN()
			continue
		}
		out.Values[i] = num.Values[i] / d * scale
	}
	return out, nil
}

// MaskBefore returns a copy of s with every cell before p set to NaN.
func MaskBefore(s schema.Series, p schema.Period) schema.Series {
	out := schema.Series{Name: s.Name, Start: s.Start, Values: make([]float64, s.Len())}
	for i, v := range s.Values {
		if s.Start.Add(i).Before(p) {
			v = math.NaN()
		}
		out.Values[i] = v
	}
	return out
}

func sameIndex(a, b schema.Series) error {
	if a.Len() != b.Len() || (a.Len() > 0 && a.Start != b.Start) {
		return fmt.Errorf("%w: %s[%s..%s] vs %s[%s..%s]",
			ErrIndexMismatch, a.Name, a.Start, a.End(), b.Name, b.Start, b.End())
	}
	return nil
}
