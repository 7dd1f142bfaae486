package resource

import "sync"

// Mutexes is a handle table of mutexes.
type Mutexes struct {
	table *Table[*sync.Mutex]
}

// NewMutexes creates an empty mutex table.
func NewMutexes() *Mutexes {
	return &Mutexes{table: NewTable[*sync.Mutex]()}
}

// Allocate reserves a mutex index.
func (m *Mutexes) Allocate() int {
	return m.table.Allocate()
}

// Create constructs an unlocked mutex at index.
func (m *Mutexes) Create(index int) {
	m.table.Create(index, func() (*sync.Mutex, error) {
		return &sync.Mutex{}, nil
	})
}

// New allocates an index and constructs a mutex in it.
func (m *Mutexes) New() int {
	index := m.Allocate()
	m.Create(index)
	return index
}

// Lock blocks until the mutex at index is acquired. There is no timeout.
func (m *Mutexes) Lock(index int) {
	m.table.Use(index).Lock()
}

// TryLock attempts to acquire the mutex at index without blocking.
func (m *Mutexes) TryLock(index int) bool {
	return m.table.Use(index).TryLock()
}

// Unlock releases the mutex at index.
func (m *Mutexes) Unlock(index int) {
	m.table.Use(index).Unlock()
}

// Free destroys the mutex at index and empties its slot.
func (m *Mutexes) Free(index int) {
	m.table.Free(index)
}

// Live reports whether index holds a mutex.
func (m *Mutexes) Live(index int) bool {
	return m.table.Live(index)
}

// Len returns the number of live mutexes.
func (m *Mutexes) Len() int {
	return m.table.Len()
}
