package services

import "sync"

// runGuard is a process-local lock table keyed by document id. It makes
// concurrent processing of the same document mutually exclusive within one
// process; it does not coordinate across replicas.
type runGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newRunGuard() *runGuard {
	return &runGuard{active: make(map[string]struct{})}
}

// TryAcquire claims the document for the caller. Returns false without
// blocking when another run already holds it.
func (g *runGuard) TryAcquire(docID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.active[docID]; held {
		return false
	}
	g.active[docID] = struct{}{}
	return true
}

// Release frees the document. Releasing an unheld id is a no-op.
func (g *runGuard) Release(docID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, docID)
}
