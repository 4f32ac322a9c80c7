package seqdiff

import (
	"github.com/pkg/errors"
)

// Mirror is a sequence kept in sync by applying diffs to it. It owns its
// storage: values handed in or out are copies, so two mirrors never alias.
type Mirror[T any] struct {
	items []T
}

// NewMirror returns a mirror holding a copy of initial.
func NewMirror[T any](initial ...T) *Mirror[T] {
	return &Mirror[T]{items: append([]T(nil), initial...)}
}

// Apply patches the mirror with d. On error the mirror is unchanged.
func (m *Mirror[T]) Apply(d Diff[T]) error {
	if err := d.Validate(); err != nil {
		return errors.WithStack(err)
	}
	if len(m.items) != d.Origin() {
		return errors.WithStack(&DegreeMismatchError{Want: d.Origin(), Got: len(m.items)})
	}
	m.items = patch(m.items, d)
	return nil
}

// Len returns the current length.
func (m *Mirror[T]) Len() int {
	return len(m.items)
}

// At returns the item at i.
func (m *Mirror[T]) At(i int) T {
	return m.items[i]
}

// Snapshot returns a copy of the current sequence.
func (m *Mirror[T]) Snapshot() []T {
	return append([]T(nil), m.items...)
}
