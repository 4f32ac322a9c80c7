package seqdiff

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Apply returns the result of applying d to seq. seq is not modified.
func Apply[T any](seq []T, d Diff[T]) ([]T, error) {
	if err := d.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}
	if len(seq) != d.Origin() {
		return nil, errors.WithStack(&DegreeMismatchError{Want: d.Origin(), Got: len(seq)})
	}
	out := make([]T, len(seq), d.Degree)
	copy(out, seq)
	return patch(out, d), nil
}

// patch applies a validated diff in place. seq must have capacity for the
// growth or it is reallocated.
func patch[T any](seq []T, d Diff[T]) []T {
	var zero T
	for i := 0; i < d.Grow; i++ {
		seq = append(seq, zero)
	}
	permute(seq, d.Permutation)
	for i, v := range d.Change {
		seq[i] = v
	}
	n := d.Len()
	for i := n; i < len(seq); i++ {
		seq[i] = zero
	}
	return seq[:n]
}

// Store is an ordered collection patched in place through its own structural
// operations, for example the children of a rendered element.
type Store[T any] interface {
	Len() int
	// Insert places v at i, shifting later items up.
	Insert(i int, v T)
	// Remove drops the item at i, shifting later items down.
	Remove(i int)
	// Move takes the item at from and reinserts it at to.
	Move(from, to int)
	// Replace overwrites the item at i.
	Replace(i int, v T)
}

// ApplyTo runs the four steps of d against s: insert placeholders at the
// tail, move items into permuted order, replace changed values and remove
// trailing items. Only items outside a longest increasing run of the
// permutation are moved.
func ApplyTo[T any](s Store[T], d Diff[T]) error {
	if err := d.Validate(); err != nil {
		return errors.WithStack(err)
	}
	if s.Len() != d.Origin() {
		return errors.WithStack(&DegreeMismatchError{Want: d.Origin(), Got: s.Len()})
	}
	var zero T
	for i := 0; i < d.Grow; i++ {
		s.Insert(s.Len(), zero)
	}
	for _, mv := range planMoves(d.Permutation) {
		s.Move(mv.from, mv.to)
	}
	keys := maps.Keys(d.Change)
	slices.Sort(keys)
	for _, i := range keys {
		s.Replace(i, d.Change[i])
	}
	for i := 0; i < d.Shrink; i++ {
		s.Remove(s.Len() - 1)
	}
	return nil
}

type move struct {
	from, to int
}

// planMoves turns p into Store moves. Items on a longest common subsequence
// of the current and target orders stay put; every other item is moved once,
// right in front of the item that must follow it, walking targets from the
// back.
func planMoves(p Permutation) []move {
	if len(p) == 0 {
		return nil
	}
	lo, hi := -1, p.max()
	for _, c := range p {
		if lo < 0 || c[0] < lo {
			lo = c[0]
		}
	}
	n := hi - lo + 1
	pm := p.mapping()

	// order[i] is the source slot now at lo+i; want[t] is the source slot
	// that must end at lo+t.
	order := make([]int, n)
	want := make([]int, n)
	for i := range order {
		order[i] = lo + i
	}
	for i := range want {
		src := lo + i
		dst := src
		if to, ok := pm[src]; ok {
			dst = to
		}
		want[dst-lo] = src
	}

	stay := make(map[int]bool, n)
	for _, pair := range commonSubsequence(order, want, defaultOptions()) {
		stay[order[pair[0]]] = true
	}

	var moves []move
	for t := n - 1; t >= 0; t-- {
		item := want[t]
		if stay[item] {
			continue
		}
		from := slices.Index(order, item)
		to := n - 1
		if t < n-1 {
			next := slices.Index(order, want[t+1])
			to = next
			if from < next {
				to = next - 1
			}
		}
		if from == to {
			continue
		}
		moves = append(moves, move{from: lo + from, to: lo + to})
		order = slices.Delete(order, from, from+1)
		order = slices.Insert(order, to, item)
	}
	return moves
}

// SliceStore is a Store backed by a slice.
type SliceStore[T any] struct {
	Items []T
}

func (s *SliceStore[T]) Len() int {
	return len(s.Items)
}

func (s *SliceStore[T]) Insert(i int, v T) {
	s.Items = slices.Insert(s.Items, i, v)
}

func (s *SliceStore[T]) Remove(i int) {
	s.Items = slices.Delete(s.Items, i, i+1)
}

func (s *SliceStore[T]) Move(from, to int) {
	v := s.Items[from]
	s.Items = slices.Delete(s.Items, from, from+1)
	s.Items = slices.Insert(s.Items, to, v)
}

func (s *SliceStore[T]) Replace(i int, v T) {
	s.Items[i] = v
}
