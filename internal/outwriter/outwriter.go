// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/schema"
)

// headerWriter is where query headers go. Headers never share a stream with
// machine-readable output.
var headerWriter io.Writer = os.Stderr

// LogQueryHeader prints a concise, 2-line header for each computation.
func LogQueryHeader(cfg *contract.Config, title string) {
	writeQueryHeader(headerWriter, cfg, title)
}

func writeQueryHeader(w io.Writer, cfg *contract.Config, title string) {
	q := cfg.Query()

	// Line 1: what is being computed and at which granularity
	_, _ = fmt.Fprintf(w, "🔎 %s by %s (as of %s)\n", title, q.Granularity, q.AsOf.Format("2006-01-02"))

	// Line 2: the display window
	from, to := "start", "current"
	if !q.From.IsZero() {
		from = q.From.Label()
	}
	if !q.To.IsZero() {
		to = q.To.Label()
	}
	_, _ = fmt.Fprintf(w, "📅 Window: %s → %s\n", from, to)
}

// summaryLine is printed under every text table.
func summaryLine(w io.Writer, what string, cfg *contract.Config, duration time.Duration) {
	backend := cfg.CacheBackend
	if backend == "" {
		backend = schema.NoneBackend
	}
	_, _ = fmt.Fprintf(w, "%s computed in %v with %d workers. Cache backend: %s\n", what, duration, cfg.Workers, backend)
}

// writeNotes prints each note on its own line.
func writeNotes(w io.Writer, notes ...string) {
	for _, n := range notes {
		_, _ = fmt.Fprintf(w, "ℹ️  %s\n", n)
	}
}

// writeUnavailable prints the reason a report has no data.
func writeUnavailable(w io.Writer, title, reason string) {
	_, _ = fmt.Fprintf(w, "⚠️  %s unavailable: %s\n", title, reason)
}
