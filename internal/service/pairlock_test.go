package service

import (
	"sync"
	"testing"
)

func TestPairKeyIsOrderInsensitive(t *testing.T) {
	if pairKey("a", "b") != pairKey("b", "a") {
		t.Fatal("pair key differs by argument order")
	}
	if pairKey("a", "b") == pairKey("a", "c") {
		t.Fatal("distinct pairs share a key")
	}
}

func TestPairLocksSerializeCriticalSections(t *testing.T) {
	locks := newPairLocks()

	const workers = 16
	inSection := 0
	var observed sync.Map

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.acquire(pairKey("gate-1", "user-1"))
			defer release()
			inSection++
			if inSection != 1 {
				observed.Store("overlap", true)
			}
			inSection--
		}()
	}
	wg.Wait()

	if _, overlapped := observed.Load("overlap"); overlapped {
		t.Fatal("two goroutines held the same pair lock at once")
	}
}
