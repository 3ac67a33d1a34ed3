package services

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestRunGuardMutualExclusion(t *testing.T) {
	g := newRunGuard()

	if !g.TryAcquire("doc1") {
		t.Fatal("first acquire should succeed")
	}
	if g.TryAcquire("doc1") {
		t.Fatal("second acquire should fail while held")
	}
	if !g.TryAcquire("doc2") {
		t.Fatal("acquire of a different document should succeed")
	}

	g.Release("doc1")
	if !g.TryAcquire("doc1") {
		t.Fatal("acquire after release should succeed")
	}
}

func TestRunGuardReleaseUnheld(t *testing.T) {
	g := newRunGuard()
	g.Release("never-held")
	if !g.TryAcquire("never-held") {
		t.Fatal("acquire should succeed after no-op release")
	}
}

func TestRunGuardConcurrent(t *testing.T) {
	g := newRunGuard()
	var wins int64
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryAcquire("doc") {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}
