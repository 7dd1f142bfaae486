// Package resource provides index-addressed handle tables for OS resources.
//
// Callers reference resources only by integer index. A Table is a growable
// slice of slots that is never compacted, so an index keeps denoting the same
// resource for its whole life and freeing one slot never disturbs another.
//
// # Lifecycle
//
// Allocation and construction are separate steps:
//
//	table := resource.NewTable[*Conn]()
//
//	// Reserve the smallest free index (reuse before grow)
//	i := table.Allocate()
//
//	// Construct the resource in the reserved slot
//	table.Create(i, func() (*Conn, error) { return dial() })
//
//	conn := table.Use(i)
//	table.Free(i)
//
// # Fatal Misuse
//
// A reserved index is already visible to other callers, so a failed Create
// cannot be rolled back quietly: it panics with an *errors.Error of kind
// creation_failed. Use, Free, Join, Lock and Unlock on an empty slot panic
// with kind invalid_handle, since the index is stale or double-freed.
// Get and Live are the non-panicking probes.
//
// # Threads and Mutexes
//
// Threads and Mutexes are tables specialized for native threads and mutexes:
//
//	threads := resource.NewThreads()
//	i := threads.Allocate()
//	threads.Create(i, worker, arg)
//	threads.Join(i) // blocks, no timeout
//	threads.Free(i)
//
//	mutexes := resource.NewMutexes()
//	m := mutexes.New()
//	mutexes.Lock(m)
//	mutexes.Unlock(m)
//	mutexes.Free(m)
//
// # Concurrency
//
// Tables have no internal locking. Allocate, Create and Free are not safe
// against each other; callers serialize them. The threads and mutexes stored
// inside the tables are the concurrency primitives themselves.
package resource
