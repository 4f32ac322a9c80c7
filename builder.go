package seqdiff

import (
	"reflect"
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

// Builder computes diffs between consecutive snapshots of a sequence whose
// items carry a unique key.
//
// Items whose key is in both snapshots are retained: they travel through the
// permutation and get a Change entry only if their payload differs. Items
// only in the new snapshot are written into free slots (slots of removed
// items first, then grown slots). Free slots left over are moved to the tail
// and shrunk.
//
// Retained items on a longest common subsequence of the two orders are
// anchors. New items are placed in free slots lying between the same two
// anchors, so the permutation moves as few slots as it can.
type Builder[T any, K comparable] struct {
	key   func(T) K
	equal func(a, b T) bool
	opts  *options
	prev  []T
}

// NewBuilder returns a Builder keyed by key. equal decides whether a retained
// item's payload changed; nil means reflect.DeepEqual.
func NewBuilder[T any, K comparable](key func(T) K, equal func(a, b T) bool, opts ...Option) *Builder[T, K] {
	if equal == nil {
		equal = func(a, b T) bool { return reflect.DeepEqual(a, b) }
	}
	return &Builder[T, K]{
		key:   key,
		equal: equal,
		opts:  applyOptions(opts),
	}
}

// BuildComparable diffs two snapshots of comparable items keyed by value.
func BuildComparable[T comparable](prev, next []T, opts ...Option) (Diff[T], error) {
	b := NewBuilder(func(v T) T { return v }, func(a, b T) bool { return a == b }, opts...)
	return b.Diff(prev, next)
}

// Next diffs snapshot against the previous snapshot passed to Next (or to
// Reset), then remembers a copy of it. The first call diffs against an
// empty sequence.
func (b *Builder[T, K]) Next(snapshot []T) (Diff[T], error) {
	d, err := b.Diff(b.prev, snapshot)
	if err != nil {
		return Diff[T]{}, err
	}
	b.prev = append(b.prev[:0:0], snapshot...)
	return d, nil
}

// Reset replaces the remembered snapshot, for example after a consumer
// resynchronized from a full copy.
func (b *Builder[T, K]) Reset(snapshot []T) {
	b.prev = append(b.prev[:0:0], snapshot...)
}

// Diff returns the diff turning prev into next.
func (b *Builder[T, K]) Diff(prev, next []T) (d Diff[T], err error) {
	defer func(begin time.Time) {
		b.opts.metrics.observe(opBuild, begin, err)
		if err == nil {
			b.opts.metrics.record(opBuild, d.Permutation.Moved(), len(d.Change))
		}
	}(time.Now())

	prevAt, err := b.index(prev)
	if err != nil {
		return Diff[T]{}, errors.Wrap(err, "indexing previous snapshot")
	}
	nextAt, err := b.index(next)
	if err != nil {
		return Diff[T]{}, errors.Wrap(err, "indexing next snapshot")
	}

	n, m := len(prev), len(next)
	degree := n
	if m > degree {
		degree = m
	}
	d = Diff[T]{Grow: degree - n, Degree: degree, Shrink: degree - m}
	if degree == 0 {
		return d, nil
	}

	// dst[s] is the final index of working slot s; src[t] is the previous
	// slot of the retained item at next[t], or -1 for a new item.
	dst := make([]int, degree)
	for s := range dst {
		dst[s] = -1
	}
	src := make([]int, m)
	xs := make([]int, 0, n)
	ys := make([]int, 0, m)
	for i, v := range prev {
		if _, ok := nextAt[b.key(v)]; ok {
			xs = append(xs, i)
		}
	}
	for t, v := range next {
		i, ok := prevAt[b.key(v)]
		if !ok {
			src[t] = -1
			continue
		}
		src[t] = i
		dst[i] = t
		ys = append(ys, i)
	}

	anchored := make(map[int]bool, len(xs))
	for _, p := range commonSubsequence(xs, ys, b.opts) {
		anchored[xs[p[0]]] = true
	}

	free := make([]int, 0, degree-len(xs))
	for s := 0; s < n; s++ {
		if dst[s] < 0 {
			free = append(free, s)
		}
	}
	for s := n; s < degree; s++ {
		free = append(free, s)
	}

	// New items between anchors lo and hi take free slots in (lo, hi).
	var spare, pending, segment []int
	cursor := 0
	fill := func(lo, hi int) {
		for cursor < len(free) && free[cursor] <= lo {
			spare = append(spare, free[cursor])
			cursor++
		}
		for _, t := range segment {
			if cursor < len(free) && free[cursor] < hi {
				dst[free[cursor]] = t
				cursor++
				continue
			}
			pending = append(pending, t)
		}
		segment = segment[:0]
	}
	lo := -1
	for t, i := range src {
		switch {
		case i < 0:
			segment = append(segment, t)
		case anchored[i]:
			fill(lo, i)
			lo = i
		}
	}
	fill(lo, degree)
	spare = append(spare, free[cursor:]...)

	for k, t := range pending {
		dst[spare[k]] = t
	}
	spare = spare[len(pending):]

	// Whatever is left parks at the tail, staying put when already there.
	parked := make([]bool, degree-m)
	var rest []int
	for _, s := range spare {
		if s >= m {
			dst[s] = s
			parked[s-m] = true
			continue
		}
		rest = append(rest, s)
	}
	t := m
	for _, s := range rest {
		for parked[t-m] {
			t++
		}
		dst[s] = t
		parked[t-m] = true
	}

	d.Permutation = fromDense(0, dst)

	var change map[int]T
	for t, i := range src {
		if i >= 0 && b.equal(prev[i], next[t]) {
			continue
		}
		if change == nil {
			change = make(map[int]T)
		}
		change[t] = next[t]
	}
	d.Change = change

	level.Debug(b.opts.logger).Log(
		"op", opBuild, "from", n, "to", m,
		"anchors", len(anchored), "moved", d.Permutation.Moved(), "changed", len(change),
	)
	return d, nil
}

// index maps each key of snapshot to its position.
func (b *Builder[T, K]) index(snapshot []T) (map[K]int, error) {
	at := make(map[K]int, len(snapshot))
	for i, v := range snapshot {
		k := b.key(v)
		if first, dup := at[k]; dup {
			return nil, errors.WithStack(&DuplicateKeyError{Key: k, First: first, Second: i})
		}
		at[k] = i
	}
	return at, nil
}
