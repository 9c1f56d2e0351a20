// Package history holds bounded, oldest-first logs.
//
// A Buffer grows freely up to Limit entries; the append that pushes it past
// Limit drops everything but the newest Retain entries. This keeps memory
// bounded while amortising the copy over many appends.
package history

type Buffer[T any] struct {
	Limit  int
	Retain int
	items  []T
}

func New[T any](limit, retain int) *Buffer[T] {
	if retain > limit {
		retain = limit
	}
	return &Buffer[T]{
		Limit:  limit,
		Retain: retain,
		items:  make([]T, 0, limit+1),
	}
}

func (b *Buffer[T]) Append(v T) {
	b.items = append(b.items, v)
	if b.Limit > 0 && len(b.items) > b.Limit {
		keep := b.items[len(b.items)-b.Retain:]
		n := copy(b.items, keep)
		clear(b.items[n:])
		b.items = b.items[:n]
	}
}

func (b *Buffer[T]) Len() int { return len(b.items) }

// Items returns a copy of the entries, oldest first.
func (b *Buffer[T]) Items() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Tail returns a copy of at most the n newest entries, oldest first.
func (b *Buffer[T]) Tail(n int) []T {
	if n > len(b.items) {
		n = len(b.items)
	}
	out := make([]T, n)
	copy(out, b.items[len(b.items)-n:])
	return out
}

// Reset empties the buffer and keeps its capacity.
func (b *Buffer[T]) Reset() {
	clear(b.items)
	b.items = b.items[:0]
}
