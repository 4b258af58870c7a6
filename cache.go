package main

import "sync"

// viewCache holds rendered view payloads (dashboard, account pages) keyed by
// an opaque string. Each entry declares which accounts it depends on; the
// ledger engine's notifier drops every entry touching a mutated account.
type viewCache struct {
	mu      sync.Mutex
	entries map[string]any
	// accountID -> keys of entries built from that account's data
	byAccount map[uint]map[string]bool
}

func newViewCache() *viewCache {
	return &viewCache{
		entries:   make(map[string]any),
		byAccount: make(map[uint]map[string]bool),
	}
}

func (vc *viewCache) Get(key string) (any, bool) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	v, ok := vc.entries[key]
	return v, ok
}

func (vc *viewCache) Put(key string, value any, accountIDs ...uint) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.entries[key] = value
	for _, id := range accountIDs {
		if vc.byAccount[id] == nil {
			vc.byAccount[id] = make(map[string]bool)
		}
		vc.byAccount[id][key] = true
	}
}

// InvalidateAccounts drops every cached view depending on any of the given
// accounts. Wired as the ledger engine's notifier.
func (vc *viewCache) InvalidateAccounts(accountIDs ...uint) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	for _, id := range accountIDs {
		for key := range vc.byAccount[id] {
			delete(vc.entries, key)
		}
		delete(vc.byAccount, id)
	}
}

// InvalidateAll empties the cache. Used when account sets change shape
// (create/delete/default switch) rather than tracking those dependencies.
func (vc *viewCache) InvalidateAll() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.entries = make(map[string]any)
	vc.byAccount = make(map[uint]map[string]bool)
}
