package agent

import (
	"sync"
)

// LeadLocks serializes work per lead phone. Both the orchestrator turn and
// every outbound send acquire the same lock, so a follow-up can never
// interleave with a reply in progress.
type LeadLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLeadLocks creates the keyed mutex map.
func NewLeadLocks() *LeadLocks {
	return &LeadLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the lead's lock, creating it on first use. Entries are
// never removed; the population is bounded by the number of active leads.
func (l *LeadLocks) Lock(phone string) {
	l.forPhone(phone).Lock()
}

// Unlock releases the lead's lock.
func (l *LeadLocks) Unlock(phone string) {
	l.forPhone(phone).Unlock()
}

func (l *LeadLocks) forPhone(phone string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[phone]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[phone] = lock
	}
	return lock
}
