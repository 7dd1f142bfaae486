package resource

import (
	"fmt"

	"github.com/wippyai/dynlib/errors"
)

// Table is a growable, non-compacting slot arena addressed by integer index.
// It has no internal locking; callers serialize access.
type Table[T any] struct {
	slots []slot[T]
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		slots: make([]slot[T], 0, 16),
	}
}

// Allocate reserves the smallest empty index, growing the table only when
// every slot is live. The slot stays empty until Create is called.
func (t *Table[T]) Allocate() int {
	for i := range t.slots {
		if !t.slots[i].live {
			return i
		}
	}
	t.slots = append(t.slots, slot[T]{})
	return len(t.slots) - 1
}

// Create constructs the resource at index using factory.
// An out-of-range index, an occupied slot or a factory error panics with
// an *errors.Error: a reserved index must never be left half-initialized.
func (t *Table[T]) Create(index int, factory Factory[T]) {
	if index < 0 || index >= len(t.slots) {
		panic(errors.InvalidHandle(errors.PhaseCreate, index,
			fmt.Sprintf("index out of range (len %d)", len(t.slots))))
	}
	if t.slots[index].live {
		panic(errors.InvalidHandle(errors.PhaseCreate, index, "slot already holds a live resource"))
	}

	value, err := factory()
	if err != nil {
		panic(errors.CreationFailed(index, err))
	}

	t.slots[index] = slot[T]{value: value, live: true}
}

// Insert allocates a slot and creates the resource in it.
func (t *Table[T]) Insert(factory Factory[T]) int {
	index := t.Allocate()
	t.Create(index, factory)
	return index
}

// Use returns the live resource at index. Using an empty slot panics.
func (t *Table[T]) Use(index int) T {
	return t.mustLive(errors.PhaseUse, index).value
}

// Get returns the resource at index without panicking.
func (t *Table[T]) Get(index int) (T, bool) {
	if !t.Live(index) {
		var zero T
		return zero, false
	}
	return t.slots[index].value, true
}

// Live reports whether index holds a live resource.
func (t *Table[T]) Live(index int) bool {
	return index >= 0 && index < len(t.slots) && t.slots[index].live
}

// Free releases the resource at index and resets the slot to empty.
// Other slots are never moved. Freeing an empty slot panics.
func (t *Table[T]) Free(index int) {
	s := t.mustLive(errors.PhaseUse, index)

	if r, ok := any(s.value).(Releaser); ok {
		r.Release()
	}
	t.slots[index] = slot[T]{}
}

// Len returns the number of live resources.
func (t *Table[T]) Len() int {
	count := 0
	for _, s := range t.slots {
		if s.live {
			count++
		}
	}
	return count
}

// Cap returns the number of slots, live or empty.
func (t *Table[T]) Cap() int {
	return len(t.slots)
}

// Each iterates over live resources in index order.
func (t *Table[T]) Each(fn func(int, T) bool) {
	for i, s := range t.slots {
		if s.live {
			if !fn(i, s.value) {
				break
			}
		}
	}
}

func (t *Table[T]) mustLive(phase errors.Phase, index int) *slot[T] {
	if index < 0 || index >= len(t.slots) {
		panic(errors.InvalidHandle(phase, index,
			fmt.Sprintf("index out of range (len %d)", len(t.slots))))
	}
	s := &t.slots[index]
	if !s.live {
		panic(errors.InvalidHandle(phase, index, "slot is empty (stale or double-freed index)"))
	}
	return s
}
