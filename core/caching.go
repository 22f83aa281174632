package core

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/schema"
	"github.com/rs/zerolog/log"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// cacheMaxAge is how long a cached record set stays valid.
const cacheMaxAge = 7 * 24 * time.Hour

// cachedLoad loads the records of a category through the source cache.
// Without a store or a fingerprint, the loader is called directly.
func cachedLoad(ctx context.Context, loader contract.SourceLoader, store contract.CacheStore, category schema.Category) (schema.RecordSet, error) {
	if store == nil {
		return loader.Load(ctx, category)
	}

	key, ok := generateCacheKey(ctx, loader, category)
	if !ok {
		return loader.Load(ctx, category)
	}

	// Check for cache hit
	if rs, ok := checkCacheHit(store, key); ok {
		log.Debug().Str("category", string(category)).Msg("source cache hit")
		return rs, nil
	}

	// Cache miss: load and store
	log.Debug().Str("category", string(category)).Msg("source cache miss")
	return loadAndStore(ctx, loader, store, category, key)
}

// checkCacheHit attempts to retrieve and validate a cached record set
func checkCacheHit(store contract.CacheStore, key string) (schema.RecordSet, bool) {
	data, version, ts, err := store.Get(key)
	if err != nil {
		return schema.RecordSet{}, false // Cache miss
	}

	// Validate version and staleness
	if version != currentCacheVersion || time.Since(time.Unix(ts, 0)) > cacheMaxAge {
		return schema.RecordSet{}, false
	}

	var rs schema.RecordSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return schema.RecordSet{}, false
	}
	return rs, true
}

// loadAndStore loads the record set and stores it in cache
func loadAndStore(ctx context.Context, loader contract.SourceLoader, store contract.CacheStore, category schema.Category, key string) (schema.RecordSet, error) {
	rs, err := loader.Load(ctx, category)
	if err != nil {
		return schema.RecordSet{}, err
	}

	if data, err := json.Marshal(rs); err == nil {
		if err := store.Set(key, data, currentCacheVersion, time.Now().Unix()); err != nil {
			contract.LogWarn("Failed to cache "+string(category)+" records", err)
		}
	}
	return rs, nil
}

// generateCacheKey creates a unique key from the category, the loader location and
// the source fingerprint. It reports false when the source has no fingerprint.
func generateCacheKey(ctx context.Context, loader contract.SourceLoader, category schema.Category) (string, bool) {
	fingerprint, err := loader.Fingerprint(ctx, category)
	if err != nil || fingerprint == "" {
		return "", false
	}

	key := fmt.Sprintf("%s:%s:%s", category, loader.Location(), fingerprint)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key))), true
}
