// Package iocache is for caching loaded record sets and recording run history.
package iocache

import (
	"sync"

	"github.com/huangsam/kpiscore/internal/contract"
)

// CacheStoreManager manages the source cache and history stores.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	source       contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetSourceStore returns the CacheStore holding loaded record sets.
func (mgr *CacheStoreManager) GetSourceStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.source
}

// GetHistoryStore returns the HistoryStore.
func (mgr *CacheStoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
