package keylock

import (
	"sync"
	"testing"
)

func TestLockSerializesSameKey(t *testing.T) {
	r := New()
	const workers = 32

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := r.Lock("quiz:1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Fatalf("expected %d increments, got %d", workers, counter)
	}
}

func TestDifferentKeysDoNotContend(t *testing.T) {
	r := New()

	unlockA := r.Lock("table:quiz")
	done := make(chan struct{})
	go func() {
		unlockB := r.Lock("table:topic")
		unlockB()
		close(done)
	}()
	<-done // must complete while "table:quiz" is still held
	unlockA()
}

func TestRegistryShrinksWhenIdle(t *testing.T) {
	r := New()
	unlock := r.Lock("k")
	unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.locks) != 0 {
		t.Fatalf("expected empty registry, got %d entries", len(r.locks))
	}
}
