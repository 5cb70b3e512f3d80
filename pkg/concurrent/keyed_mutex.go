// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import "sync"

// KeyedMutex is an arena of mutexes addressed by string key. It serializes
// work on the same key while leaving different keys fully independent, e.g.
// per-participant ledger mutations or per-meeting attendance recomputes.
//
// Mutex entries are never evicted; the key space (meeting and participant
// UIDs of live meetings) is small and bounded in practice.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty mutex arena.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutex for the given key, creating it on first use, and
// returns the matching unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
