package outwriter

import (
	"os"

	"github.com/huangsam/kpiscore/internal/contract"
	"golang.org/x/term"
)

// GetMaxTableColumnWidth calculates the maximum width of a breakdown column header
// based on terminal width and the number of columns sharing it.
func GetMaxTableColumnWidth(cfg *contract.Config, columns int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Period, Total, Rolling and Trend columns with borders and padding
	available := termWidth - 50
	if columns > 0 {
		available /= columns
	}
	available -= 3 // separator and padding per column
	if available < 6 {
		return 6
	}
	if available > 30 {
		return 30
	}
	return available
}

// truncateLabel shortens s to at most width runes, marking the cut with "...".
func truncateLabel(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}
