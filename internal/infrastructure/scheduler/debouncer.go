package scheduler

import (
	"sync"
	"time"
)

// BatchDebouncer collects items and emits them as one batch once no new item
// arrived for the configured delay.
type BatchDebouncer[T any] struct {
	delay time.Duration
	emit  func([]T)

	// emitMu serializes batches, so a Flush returns only after any batch
	// taken by a concurrent timer has been emitted too.
	emitMu sync.Mutex

	mu    sync.Mutex
	timer *time.Timer
	items []T
}

// NewBatchDebouncer creates a debouncer. A zero delay emits on every Add.
func NewBatchDebouncer[T any](delay time.Duration, emit func([]T)) *BatchDebouncer[T] {
	return &BatchDebouncer[T]{delay: delay, emit: emit}
}

// Add queues items and restarts the quiet period.
func (b *BatchDebouncer[T]) Add(items ...T) {
	if len(items) == 0 {
		return
	}

	b.mu.Lock()
	b.items = append(b.items, items...)
	if b.delay <= 0 {
		b.mu.Unlock()
		b.Flush()
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.Flush)
	b.mu.Unlock()
}

// Flush emits pending items immediately and waits for a batch already being
// emitted by the timer.
func (b *BatchDebouncer[T]) Flush() {
	b.emitMu.Lock()
	defer b.emitMu.Unlock()

	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	items := b.items
	b.items = nil
	b.mu.Unlock()

	if len(items) > 0 && b.emit != nil {
		b.emit(items)
	}
}

// Cancel drops pending items without emitting them.
func (b *BatchDebouncer[T]) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.items = nil
}

// Pending reports how many items wait for the next batch.
func (b *BatchDebouncer[T]) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
