package ast

import (
	"fmt"

	"fortio.org/safecast"
)

// Arena stores nodes of one kind. IDs start at 1 so the zero ID of every
// typed index means "absent".
type Arena[T any] struct {
	data []T
}

func NewArena[T any](capHint uint) *Arena[T] {
	return &Arena[T]{data: make([]T, 0, capHint)}
}

// Allocate appends value and returns its ID.
func (a *Arena[T]) Allocate(value T) uint32 {
	a.data = append(a.data, value)
	id, err := safecast.Conv[uint32](len(a.data))
	if err != nil {
		panic(fmt.Errorf("ast: arena overflow: %w", err))
	}
	return id
}

// Get returns the node with the given ID, or nil for 0 and unknown IDs.
// The pointer stays valid until the next Allocate.
func (a *Arena[T]) Get(id uint32) *T {
	if id == 0 || uint64(id) > uint64(len(a.data)) {
		return nil
	}
	return &a.data[id-1]
}

// Len is the number of allocated nodes, which is also the largest ID.
func (a *Arena[T]) Len() int { return len(a.data) }
