package core

import (
	"context"
	"slices"

	"github.com/huangsam/kpiscore/core/agg"
	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/internal/source"
	"github.com/huangsam/kpiscore/schema"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Sources maps each requested category to its record set or the reason it is unavailable.
type Sources map[schema.Category]schema.Result[schema.RecordSet]

// NewSourceLoader returns the loader selected by the configuration:
// an HTTP loader when a source URL is set, else a file loader over the source directory.
func NewSourceLoader(cfg *contract.Config) contract.SourceLoader {
	if cfg.SourceURL != "" {
		return source.NewHTTPLoader(cfg.SourceURL, cfg.SourceTimeout)
	}
	return source.NewFileLoader(cfg.SourceDir, cfg.SourceFormat)
}

// LoadSources loads categories concurrently, at most cfg.Workers at a time.
// A failing source becomes Unavailable and never aborts the others; only a
// cancelled context or a contract violation in the filters is returned as an error.
// Available record sets have the configured filters applied.
func LoadSources(ctx context.Context, cfg *contract.Config, loader contract.SourceLoader, mgr contract.CacheManager, categories ...schema.Category) (Sources, error) {
	categories = slices.Compact(slices.Sorted(slices.Values(categories)))
	results := make([]schema.Result[schema.RecordSet], len(categories))
	store := sourceStore(mgr)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i, c := range categories {
		g.Go(func() error {
			rs, err := cachedLoad(gctx, loader, store, c)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn().Err(err).Str("category", string(c)).Str("location", loader.Location()).Msg("source unavailable")
				results[i] = schema.Unavailable[schema.RecordSet](err.Error())
				return nil
			}

			filtered, err := agg.ApplyFilters(rs, cfg.Filters)
			if err != nil {
				return err
			}
			log.Debug().Str("category", string(c)).Int("records", filtered.Len()).Msg("source loaded")
			results[i] = schema.Ok(filtered)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(Sources, len(categories))
	for i, c := range categories {
		out[c] = results[i]
	}
	return out, nil
}

// sourceStore returns the source cache of mgr, or nil when caching is not set up.
func sourceStore(mgr contract.CacheManager) contract.CacheStore {
	if mgr == nil {
		return nil
	}
	return mgr.GetSourceStore()
}

// historyStore returns the history store of mgr, or nil when history is not set up.
func historyStore(mgr contract.CacheManager) contract.HistoryStore {
	if mgr == nil {
		return nil
	}
	return mgr.GetHistoryStore()
}
