package schema

import (
	"fmt"
	"strings"
)

// ItemsInSeries joins items as a human-readable series: "a", "a and b", "a, b, and c".
// With commaForClarity, two items are joined as "a, and b".
func ItemsInSeries(items []string, conjunction string, commaForClarity bool) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		sep := " "
		if commaForClarity {
			sep = ", "
		}
		return fmt.Sprintf("%s%s%s %s", items[0], sep, conjunction, items[1])
	default:
		return fmt.Sprintf("%s, %s %s", strings.Join(items[:len(items)-1], ", "), conjunction, items[len(items)-1])
	}
}

// WindowPhrase describes a display window: "in Jan 2025" or "between Jan 2025 and Mar 2025".
func WindowPhrase(from, to Period) string {
	if from == to {
		return "in " + from.Label()
	}
	return fmt.Sprintf("between %s and %s", from.Label(), to.Label())
}

// PeriodColumn returns the name of the derived period column for a timestamp column.
// "Completed Date" becomes "Completed Month"; a name without "Date" gets the granularity appended.
func PeriodColumn(col string, g Granularity) string {
	if strings.Contains(col, "Date") {
		return strings.Replace(col, "Date", g.Title(), 1)
	}
	return col + " " + g.Title()
}
