package resource

// Releaser is optionally implemented by slot values that need cleanup when freed.
type Releaser interface {
	Release()
}

// Factory constructs the resource stored in a reserved slot.
type Factory[T any] func() (T, error)

type slot[T any] struct {
	value T
	live  bool
}
