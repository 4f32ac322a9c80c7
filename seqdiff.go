// Package seqdiff implements incremental diffs over ordered sequences.
//
// A Diff describes one transition of a sequence as four steps applied in
// order: grow (append placeholder slots), permute (reorder the working slots),
// change (overwrite values) and shrink (drop trailing slots). Diffs compose:
// Combine folds two consecutive diffs into one, and the combinators Product
// and Concat derive the diff of a computed sequence from the diffs of its
// inputs without materializing it.
//
// Unlike a plain edit script, a Diff keeps item identity through reordering:
// retained items travel through the permutation instead of being deleted and
// re-inserted, which is what a live view or a remote mirror needs.
package seqdiff

import (
	"github.com/go-kit/kit/log"
)

// IndexSet is a set of slot indices.
type IndexSet map[int]struct{}

// Has reports whether i is in the set.
func (s IndexSet) Has(i int) bool {
	_, ok := s[i]
	return ok
}

// Diff describes one transition of an ordered sequence.
type Diff[T any] struct {
	// Grow is the number of placeholder slots appended before reordering.
	Grow int
	// Degree is the working size after Grow and before Shrink. Every index
	// in Permutation, Change and Freeze is below Degree.
	Degree int
	// Shrink is the number of trailing slots dropped after Change.
	Shrink int
	// Permutation reorders the working slots.
	Permutation Permutation
	// Change holds new values by post-permutation index.
	Change map[int]T
	// Freeze marks indices whose value will not change again. It is a hint.
	Freeze IndexSet
}

// Empty returns the diff that leaves a sequence of length n untouched.
func Empty[T any](n int) Diff[T] {
	return Diff[T]{Degree: n}
}

// Origin is the length of the sequence the diff applies to.
func (d Diff[T]) Origin() int {
	return d.Degree - d.Grow
}

// Len is the length of the sequence after the diff is applied.
func (d Diff[T]) Len() int {
	return d.Degree - d.Shrink
}

// IsEmpty reports whether applying d is a no-op.
func (d Diff[T]) IsEmpty() bool {
	return d.Grow == 0 && d.Shrink == 0 && len(d.Permutation) == 0 &&
		len(d.Change) == 0 && len(d.Freeze) == 0
}

// Validate checks the structural invariants of d: sizes are non-negative,
// Grow and Shrink fit in Degree, and every index is in [0, Degree). The
// permutation must be made of disjoint cycles of length two or more.
func (d Diff[T]) Validate() error {
	if d.Degree < 0 {
		return &IndexOutOfRangeError{Field: "degree", Index: d.Degree, Degree: 0}
	}
	if d.Grow < 0 || d.Grow > d.Degree {
		return &IndexOutOfRangeError{Field: "grow", Index: d.Grow, Degree: d.Degree}
	}
	if d.Shrink < 0 || d.Shrink > d.Degree {
		return &IndexOutOfRangeError{Field: "shrink", Index: d.Shrink, Degree: d.Degree}
	}
	if err := d.Permutation.Validate(d.Degree); err != nil {
		return err
	}
	for i := range d.Change {
		if i < 0 || i >= d.Degree {
			return &IndexOutOfRangeError{Field: "change", Index: i, Degree: d.Degree}
		}
	}
	for i := range d.Freeze {
		if i < 0 || i >= d.Degree {
			return &IndexOutOfRangeError{Field: "freeze", Index: i, Degree: d.Degree}
		}
	}
	return nil
}

// options holds configuration shared by the builder and the combinators.
type options struct {
	useHeuristic bool
	forceMinimal bool
	costLimit    int
	logger       log.Logger
	metrics      *Metrics
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() *options {
	return &options{
		useHeuristic: false,
		forceMinimal: true,
		costLimit:    0, // auto-calculated
		logger:       log.NewNopLogger(),
		metrics:      NewMetrics(),
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a Builder, Product or Concat.
type Option func(*options)

// WithHeuristic enables or disables the early-termination heuristics of the
// longest common subsequence search. A heuristic search may move more items
// than necessary; the diff it yields is still exact.
// Default: false.
func WithHeuristic(enabled bool) Option {
	return func(o *options) {
		o.useHeuristic = enabled
		if enabled {
			o.forceMinimal = false
		}
	}
}

// WithMinimal forces the minimal number of moves even if slow.
// Default: true.
func WithMinimal(minimal bool) Option {
	return func(o *options) {
		o.forceMinimal = minimal
		if minimal {
			o.useHeuristic = false
		}
	}
}

// WithCostLimit sets a custom early termination threshold.
// 0 means auto-calculate based on input size.
// Default: 0.
func WithCostLimit(n int) Option {
	return func(o *options) {
		o.costLimit = n
	}
}

// WithLogger sets the logger used for debug events.
// Default: a no-op logger.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = log.NewNopLogger()
		}
		o.logger = logger
	}
}

// WithMetrics sets the metrics sink.
// Default: metrics are discarded.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		if m == nil {
			m = NewMetrics()
		}
		o.metrics = m
	}
}
