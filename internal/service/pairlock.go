package service

import "sync"

// pairLocks serializes redemption attempts per unordered identity pair so
// two simultaneous redemptions cannot both read the same history and compute
// the same check type.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the pair and returns the matching release function.
func (p *pairLocks) acquire(key string) func() {
	p.mu.Lock()
	lock, ok := p.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[key] = lock
	}
	p.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// pairKey canonicalizes an unordered identity pair.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
