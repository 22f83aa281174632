// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/kpiscore/schema"
)

// SourceLoader fetches the records of one category from an external system.
// This allows the pipelines to be tested without files or network access.
type SourceLoader interface {
	// Load returns the record set of a category. Any error marks the source unavailable.
	Load(ctx context.Context, category schema.Category) (schema.RecordSet, error)

	// Fingerprint returns a value that changes whenever the category's data changes,
	// such as a file modification time. An empty fingerprint disables caching.
	Fingerprint(ctx context.Context, category schema.Category) (string, error)

	// Location describes where records are loaded from, for cache keys and messages.
	Location() string
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetSourceStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for tracking runs and the series they produced.
type HistoryStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, command string, q schema.QueryContext, configParams map[string]any) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time) error

	// RecordValues stores the per-period values of a run
	RecordValues(runID int64, values []schema.HistoryValueRecord) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns returns every recorded run, oldest first
	GetAllRuns() ([]schema.HistoryRunRecord, error)

	// GetAllValues returns every recorded value, ordered by run, series and period
	GetAllValues() ([]schema.HistoryValueRecord, error)

	// Close closes the underlying connection
	Close() error
}
