package schema

import (
	"testing"
	"time"
)

// FuzzParsePeriod checks that any accepted period round-trips through String.
func FuzzParsePeriod(f *testing.F) {
	for _, seed := range []string{"2025-01", "2025Q1", "2025-Q4", "2025", "", "0001-01", "9999Q4", "Q1"} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, s string) {
		p, err := ParsePeriod(s)
		if err != nil || p.IsZero() {
			return
		}
		again, err := ParsePeriod(p.String())
		if err != nil {
			t.Fatalf("ParsePeriod(%q) -> %q does not parse: %v", s, p.String(), err)
		}
		if again != p {
			t.Fatalf("round trip mismatch for %q: %v != %v", s, again, p)
		}
	})
}

// FuzzPeriodAt checks that a period always contains the instant it was built from.
func FuzzPeriodAt(f *testing.F) {
	f.Add(int64(1477440000))
	f.Add(int64(0))
	f.Add(int64(-86400 * 400))

	f.Fuzz(func(t *testing.T, sec int64) {
		ts := time.Unix(sec%(1<<36), 0).UTC()
		for _, g := range AllGranularities {
			p := PeriodAt(ts, g)
			if p.Start().After(ts) || !p.End().After(ts) {
				t.Fatalf("%s period %s does not contain %s", g, p, ts)
			}
		}
	})
}
