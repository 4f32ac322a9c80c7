package seqdiff

import (
	"github.com/pkg/errors"
)

// Combine returns the single diff equivalent to applying a and then b.
//
// The slots a shrinks away are not dropped in the middle: they are parked
// behind the slots b grows and dropped together with b's shrink, so the
// result still reads grow, permute, change, shrink.
func Combine[T any](a, b Diff[T]) (Diff[T], error) {
	n1 := a.Len()
	if b.Origin() != n1 {
		return Diff[T]{}, errors.WithStack(&DegreeMismatchError{Want: n1, Got: b.Origin()})
	}
	c := Diff[T]{
		Grow:   a.Grow + b.Grow,
		Degree: a.Degree + b.Grow,
		Shrink: a.Shrink + b.Shrink,
	}

	// park maps a slot after a to its slot before b: a's dead tail
	// [n1, a.Degree) moves behind b's grown slots [a.Degree, c.Degree).
	park := func(x int) int {
		switch {
		case x < n1:
			return x
		case x < a.Degree:
			return x + b.Grow
		default:
			return x - a.Shrink
		}
	}
	parking := rotateBlock(n1, a.Degree, c.Degree)

	switch {
	case len(parking) == 0 && len(a.Permutation) == 0:
		c.Permutation = Compose(nil, b.Permutation)
	case len(parking) == 0:
		c.Permutation = Compose(a.Permutation, b.Permutation)
	default:
		c.Permutation = Compose(Compose(a.Permutation, parking), b.Permutation)
	}

	var bm map[int]int
	if len(a.Change) > 0 || len(a.Freeze) > 0 {
		bm = b.Permutation.mapping()
	}
	through := func(x int) int {
		x = park(x)
		if y, ok := bm[x]; ok {
			return y
		}
		return x
	}

	if len(a.Change)+len(b.Change) > 0 {
		change := make(map[int]T, len(a.Change)+len(b.Change))
		for i, v := range b.Change {
			change[i] = v
		}
		for x, v := range a.Change {
			y := through(x)
			if _, later := b.Change[y]; !later {
				change[y] = v
			}
		}
		c.Change = change
	}

	if len(a.Freeze)+len(b.Freeze) > 0 {
		freeze := make(IndexSet, len(a.Freeze)+len(b.Freeze))
		for i := range b.Freeze {
			freeze[i] = struct{}{}
		}
		for x := range a.Freeze {
			y := through(x)
			if _, rewritten := b.Change[y]; !rewritten {
				freeze[y] = struct{}{}
			}
		}
		if len(freeze) > 0 {
			c.Freeze = freeze
		}
	}
	return c, nil
}

// Fold combines diffs left to right.
func Fold[T any](first Diff[T], rest ...Diff[T]) (Diff[T], error) {
	acc := first
	for i, d := range rest {
		next, err := Combine(acc, d)
		if err != nil {
			return Diff[T]{}, errors.Wrapf(err, "folding diff %d", i+1)
		}
		acc = next
	}
	return acc, nil
}
