package resource

import (
	"runtime"

	"github.com/wippyai/dynlib/errors"
)

// StartRoutine is the entry point of a Thread.
type StartRoutine func(arg any)

// Thread is a unit of work running on its own OS thread.
type Thread struct {
	done   chan struct{}
	joined bool
}

func startThread(start StartRoutine, arg any) *Thread {
	th := &Thread{done: make(chan struct{})}
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(th.done)
		start(arg)
	}()
	return th
}

// Done reports whether the start routine has returned.
func (th *Thread) Done() bool {
	select {
	case <-th.done:
		return true
	default:
		return false
	}
}

// Threads is a handle table of native threads.
type Threads struct {
	table *Table[*Thread]
}

// NewThreads creates an empty thread table.
func NewThreads() *Threads {
	return &Threads{table: NewTable[*Thread]()}
}

// Allocate reserves a thread index.
func (t *Threads) Allocate() int {
	return t.table.Allocate()
}

// Create starts start(arg) in the thread slot at index.
func (t *Threads) Create(index int, start StartRoutine, arg any) {
	t.table.Create(index, func() (*Thread, error) {
		if start == nil {
			return nil, errors.InvalidInput(errors.PhaseCreate, "nil start routine")
		}
		return startThread(start, arg), nil
	})
}

// Spawn allocates an index and starts the thread in it.
func (t *Threads) Spawn(start StartRoutine, arg any) int {
	index := t.Allocate()
	t.Create(index, start, arg)
	return index
}

// Join blocks until the thread at index finishes. There is no timeout.
// Joining an empty slot or joining twice panics.
func (t *Threads) Join(index int) {
	th := t.table.Use(index)
	if th.joined {
		panic(errors.InvalidHandle(errors.PhaseUse, index, "thread already joined"))
	}
	<-th.done
	th.joined = true
}

// Free detaches the thread at index and empties its slot.
func (t *Threads) Free(index int) {
	t.table.Free(index)
}

// Live reports whether index holds a thread.
func (t *Threads) Live(index int) bool {
	return t.table.Live(index)
}

// Len returns the number of live threads.
func (t *Threads) Len() int {
	return t.table.Len()
}
