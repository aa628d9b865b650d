package ledger

import (
	"sync"
	"time"
)

// Ledger remembers which content units have been admitted for classification.
// Admit is an atomic check-and-insert, so two notifications for the same unit
// can never both pass.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// New builds an empty ledger.
func New() *Ledger {
	return &Ledger{
		entries: map[string]time.Time{},
		now:     time.Now,
	}
}

// Admit records id and returns true the first time it is seen since the last Clear.
// Empty ids are never admitted.
func (l *Ledger) Admit(id string) bool {
	if id == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[id]; ok {
		return false
	}
	l.entries[id] = l.now()
	return true
}

// ScannedAt returns when id was admitted.
func (l *Ledger) ScannedAt(id string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	at, ok := l.entries[id]
	return at, ok
}

// Clear forgets every admitted id.
func (l *Ledger) Clear() {
	l.mu.Lock()
	l.entries = map[string]time.Time{}
	l.mu.Unlock()
}

// Len returns the number of admitted ids.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
