package seqdiff

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Wire is the transport shape of a Diff: integers, cycles of integers,
// index/value pairs and a list of integers. Entries are sorted by index so
// that equal diffs encode identically.
type Wire[T any] struct {
	Grow        int        `json:"grow" yaml:"grow"`
	Degree      int        `json:"degree" yaml:"degree"`
	Shrink      int        `json:"shrink" yaml:"shrink"`
	Permutation [][]int    `json:"permutation,omitempty" yaml:"permutation,omitempty,flow"`
	Change      []Entry[T] `json:"change,omitempty" yaml:"change,omitempty"`
	Freeze      []int      `json:"freeze,omitempty" yaml:"freeze,omitempty,flow"`
}

// Entry is one value of a Wire change set.
type Entry[T any] struct {
	Index int `json:"i" yaml:"i"`
	Value T   `json:"v" yaml:"v"`
}

// ToWire converts d to its transport shape.
func ToWire[T any](d Diff[T]) Wire[T] {
	w := Wire[T]{Grow: d.Grow, Degree: d.Degree, Shrink: d.Shrink}
	for _, c := range d.Permutation {
		w.Permutation = append(w.Permutation, append([]int(nil), c...))
	}
	keys := maps.Keys(d.Change)
	slices.Sort(keys)
	for _, i := range keys {
		w.Change = append(w.Change, Entry[T]{Index: i, Value: d.Change[i]})
	}
	if len(d.Freeze) > 0 {
		w.Freeze = maps.Keys(d.Freeze)
		slices.Sort(w.Freeze)
	}
	return w
}

// FromWire converts a transport shape back to a validated Diff.
func FromWire[T any](w Wire[T]) (Diff[T], error) {
	d := Diff[T]{Grow: w.Grow, Degree: w.Degree, Shrink: w.Shrink}
	if len(w.Permutation) > 0 {
		p := make(Permutation, len(w.Permutation))
		for i, c := range w.Permutation {
			p[i] = append(Cycle(nil), c...)
		}
		if err := p.Validate(w.Degree); err != nil {
			return Diff[T]{}, errors.Wrap(err, "decoding permutation")
		}
		d.Permutation = p.canonical()
	}
	if len(w.Change) > 0 {
		d.Change = make(map[int]T, len(w.Change))
		for _, e := range w.Change {
			if _, dup := d.Change[e.Index]; dup {
				return Diff[T]{}, errors.Errorf("decoding change: index %d repeated", e.Index)
			}
			d.Change[e.Index] = e.Value
		}
	}
	if len(w.Freeze) > 0 {
		d.Freeze = make(IndexSet, len(w.Freeze))
		for _, i := range w.Freeze {
			d.Freeze[i] = struct{}{}
		}
	}
	if err := d.Validate(); err != nil {
		return Diff[T]{}, errors.Wrap(err, "decoding diff")
	}
	return d, nil
}
