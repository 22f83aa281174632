package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is a discrete, totally ordered time bucket at one granularity.
// Ordinal counts months, quarters or years since year zero, so consecutive
// periods differ by exactly one. The zero value is the null period.
type Period struct {
	Granularity Granularity
	Ordinal     int
}

// PeriodAt returns the period of g that contains t. The granularity is not validated.
func PeriodAt(t time.Time, g Granularity) Period {
	switch g {
	case Quarter:
		return Period{Granularity: g, Ordinal: t.Year()*4 + (int(t.Month())-1)/3}
	case Year:
		return Period{Granularity: g, Ordinal: t.Year()}
	default:
		return Period{Granularity: g, Ordinal: t.Year()*12 + int(t.Month()) - 1}
	}
}

// IsZero reports whether p is the null period.
func (p Period) IsZero() bool {
	return p.Granularity == ""
}

// Add returns the period n steps after p (before p when n is negative).
func (p Period) Add(n int) Period {
	return Period{Granularity: p.Granularity, Ordinal: p.Ordinal + n}
}

// Next returns the successor of p.
func (p Period) Next() Period {
	return p.Add(1)
}

// Prev returns the predecessor of p.
func (p Period) Prev() Period {
	return p.Add(-1)
}

// Sub returns the number of steps from o to p. Both must share a granularity.
func (p Period) Sub(o Period) int {
	return p.Ordinal - o.Ordinal
}

// Compare returns -1, 0 or +1 depending on whether p is before, equal to or after o.
func (p Period) Compare(o Period) int {
	switch {
	case p.Ordinal < o.Ordinal:
		return -1
	case p.Ordinal > o.Ordinal:
		return 1
	default:
		return 0
	}
}

// Before reports whether p comes before o.
func (p Period) Before(o Period) bool {
	return p.Ordinal < o.Ordinal
}

// After reports whether p comes after o.
func (p Period) After(o Period) bool {
	return p.Ordinal > o.Ordinal
}

// Start returns the first instant of p in UTC.
func (p Period) Start() time.Time {
	switch p.Granularity {
	case Quarter:
		year, q := floorDiv(p.Ordinal, 4)
		return time.Date(year, time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
	case Year:
		return time.Date(p.Ordinal, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		year, m := floorDiv(p.Ordinal, 12)
		return time.Date(year, time.Month(m+1), 1, 0, 0, 0, 0, time.UTC)
	}
}

// End returns the first instant after p.
func (p Period) End() time.Time {
	return p.Next().Start()
}

// As converts p to the period of g containing its start.
func (p Period) As(g Granularity) Period {
	if p.IsZero() {
		return p
	}
	return PeriodAt(p.Start(), g)
}

// LastAs converts p to the period of g containing its last instant. Use it for
// inclusive end bounds, so 2024 at month granularity becomes 2024-12.
func (p Period) LastAs(g Granularity) Period {
	if p.IsZero() {
		return p
	}
	return PeriodAt(p.End().Add(-time.Nanosecond), g)
}

// String returns the compact form: 2025-01, 2025Q1 or 2025.
func (p Period) String() string {
	if p.IsZero() {
		return ""
	}
	start := p.Start()
	switch p.Granularity {
	case Quarter:
		return fmt.Sprintf("%dQ%d", start.Year(), int(start.Month()-1)/3+1)
	case Year:
		return fmt.Sprintf("%04d", start.Year())
	default:
		return start.Format("2006-01")
	}
}

// Label returns the human form: Jan 2025, Q1 2025 or 2025.
func (p Period) Label() string {
	if p.IsZero() {
		return ""
	}
	start := p.Start()
	switch p.Granularity {
	case Quarter:
		return fmt.Sprintf("Q%d %d", int(start.Month()-1)/3+1, start.Year())
	case Year:
		return strconv.Itoa(start.Year())
	default:
		return start.Format("Jan 2006")
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePeriod parses the compact form and infers its granularity.
// Accepted: "2025-01" (month), "2025Q1" or "2025-Q1" (quarter), "2025" (year).
// An empty string yields the null period.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Period{}, nil
	}

	if idx := strings.Index(s, "Q"); idx > 0 {
		year, err := strconv.Atoi(strings.TrimSuffix(s[:idx], "-"))
		if err != nil || year < 0 || year > 9999 {
			return Period{}, fmt.Errorf("invalid quarter period %q: year must be 0-9999", s)
		}
		q, err := strconv.Atoi(s[idx+1:])
		if err != nil || q < 1 || q > 4 {
			return Period{}, fmt.Errorf("invalid quarter period %q: quarter must be 1-4", s)
		}
		return Period{Granularity: Quarter, Ordinal: year*4 + q - 1}, nil
	}

	if len(s) == 4 {
		year, err := strconv.Atoi(s)
		if err != nil || year < 0 {
			return Period{}, fmt.Errorf("invalid year period %q", s)
		}
		return Period{Granularity: Year, Ordinal: year}, nil
	}

	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q. Expected YYYY-MM, YYYY-Qn or YYYY", s)
	}
	return PeriodAt(t, Month), nil
}

// floorDiv returns the floored quotient and non-negative remainder of a/b.
func floorDiv(a, b int) (int, int) {
	q, r := a/b, a%b
	if r < 0 {
		q--
		r += b
	}
	return q, r
}
