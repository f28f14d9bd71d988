package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// LeaseTable grants time-bound exclusive leases keyed by document id.
// It is injected into the Engine rather than living as a process-wide
// flag so concurrency tests can drive it directly.
type LeaseTable struct {
	mu     sync.Mutex
	leases map[string]lease
	ttl    time.Duration
	now    func() time.Time
}

type lease struct {
	token   string
	expires time.Time
}

func NewLeaseTable(ttl time.Duration) *LeaseTable {
	return &LeaseTable{
		leases: make(map[string]lease),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Acquire grants a lease for the key if none is currently held. An
// expired lease counts as not held; stale holders simply lose it.
func (t *LeaseTable) Acquire(key string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if l, ok := t.leases[key]; ok && t.now().Before(l.expires) {
		return "", false
	}

	token := uuid.NewString()
	t.leases[key] = lease{token: token, expires: t.now().Add(t.ttl)}
	return token, true
}

// Release frees the lease, but only for the holder of the token; a
// stale holder whose lease already expired and was re-acquired cannot
// release the new owner's lease.
func (t *LeaseTable) Release(key, token string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if l, ok := t.leases[key]; ok && l.token == token {
		delete(t.leases, key)
	}
}

// Held reports whether an unexpired lease exists for the key.
func (t *LeaseTable) Held(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.leases[key]
	return ok && t.now().Before(l.expires)
}
