package ledger

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAdmitOnce(t *testing.T) {
	t.Parallel()

	l := New()
	fixed := time.Date(2025, time.November, 8, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	if !l.Admit("msg-1") {
		t.Fatalf("first admit must succeed")
	}
	if l.Admit("msg-1") {
		t.Fatalf("second admit must fail")
	}
	if l.Admit("") {
		t.Fatalf("empty id must not be admitted")
	}

	at, ok := l.ScannedAt("msg-1")
	if !ok || !at.Equal(fixed) {
		t.Fatalf("unexpected scanned timestamp %v (%v)", at, ok)
	}

	l.Clear()
	if l.Len() != 0 {
		t.Fatalf("clear left %d entries", l.Len())
	}
	if !l.Admit("msg-1") {
		t.Fatalf("admit after clear must succeed")
	}
}

func TestAdmitConcurrent(t *testing.T) {
	t.Parallel()

	l := New()
	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Admit("same-unit") {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if admitted.Load() != 1 {
		t.Fatalf("expected exactly one admission, got %d", admitted.Load())
	}
}
