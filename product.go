package seqdiff

import (
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Product maintains the cartesian product of several independently changing
// sequences. Tuples are laid out row-major: input 0 is the outermost
// dimension, the last input varies fastest.
//
// Product is not safe for concurrent use; the caller delivers input diffs
// one at a time, in the order they were produced.
type Product[T any] struct {
	inputs []*Mirror[T]
	closed []bool
	opts   *options
}

// NewProduct returns a product of n empty inputs. n must be at least one.
func NewProduct[T any](n int, opts ...Option) *Product[T] {
	if n < 1 {
		panic("seqdiff: a product needs at least one input")
	}
	p := &Product[T]{
		inputs: make([]*Mirror[T], n),
		closed: make([]bool, n),
		opts:   applyOptions(opts),
	}
	for k := range p.inputs {
		p.inputs[k] = NewMirror[T]()
	}
	return p
}

// Dims returns the current length of every input.
func (p *Product[T]) Dims() []int {
	dims := make([]int, len(p.inputs))
	for k, in := range p.inputs {
		dims[k] = in.Len()
	}
	return dims
}

// Degree returns the number of tuples.
func (p *Product[T]) Degree() int {
	n := 1
	for _, in := range p.inputs {
		n *= in.Len()
	}
	return n
}

// Unsubscribe tears down input k. Its current items stay part of the
// product; later diffs for it are dropped.
func (p *Product[T]) Unsubscribe(k int) {
	if k >= 0 && k < len(p.closed) {
		p.closed[k] = true
	}
}

// Push folds a diff of input k into the product and returns the diff of the
// product. Changed input slots yield one Change per tuple containing them;
// growth and shrinkage of input k add or remove whole planes of tuples.
func (p *Product[T]) Push(k int, d Diff[T]) (out Diff[[]T], err error) {
	defer func(begin time.Time) {
		p.opts.metrics.observe(opProduct, begin, err)
		if err == nil {
			p.opts.metrics.record(opProduct, out.Permutation.Moved(), len(out.Change))
		}
	}(time.Now())

	if k < 0 || k >= len(p.inputs) {
		return Diff[[]T]{}, errors.WithStack(&IndexOutOfRangeError{Field: "input", Index: k, Degree: len(p.inputs)})
	}
	if p.closed[k] {
		p.opts.metrics.drop(opProduct)
		level.Debug(p.opts.logger).Log("op", opProduct, "input", k, "msg", "dropping diff for unsubscribed input")
		return Empty[[]T](p.Degree()), errors.WithStack(&UnsubscribedInputError{Input: k})
	}

	in := p.inputs[k]
	nk := in.Len()
	if err := in.Apply(d); err != nil {
		return Diff[[]T]{}, errors.Wrapf(err, "product input %d", k)
	}

	// Tuples are indexed (ib, i, ia): ib ranks the coordinates of the inputs
	// before k, i is the slot of input k, ia ranks the inputs after k.
	before, after := 1, 1
	for j, m := range p.inputs {
		switch {
		case j < k:
			before *= m.Len()
		case j > k:
			after *= m.Len()
		}
	}
	r := before * after
	size, live := d.Degree, d.Len()
	out = Diff[[]T]{Grow: r * (size - nk), Degree: r * size, Shrink: r * d.Shrink}
	if r == 0 {
		return out, nil
	}
	origin := r * nk

	flat := func(dim, ib, i, ia int) int {
		return (ib*dim+i)*after + ia
	}
	final := func(i, ib, ia int) int {
		if i < live {
			return flat(live, ib, i, ia)
		}
		return r*live + ((i-live)*before+ib)*after + ia
	}
	pm := d.Permutation.mapping()
	image := func(i int) int {
		if j, ok := pm[i]; ok {
			return j
		}
		return i
	}

	// When input k is outermost, or its length is unchanged, only the rows
	// it permutes move. Otherwise every stride changes.
	var rows []int
	if before == 1 || (nk == size && size == live) {
		rows = maps.Keys(pm)
	} else {
		rows = make([]int, size)
		for i := range rows {
			rows[i] = i
		}
	}

	moves := make(map[int]int)
	var grown, holes []int
	for _, i := range rows {
		to := image(i)
		for ib := 0; ib < before; ib++ {
			for ia := 0; ia < after; ia++ {
				dst := final(to, ib, ia)
				if i < nk {
					if src := flat(nk, ib, i, ia); src != dst {
						moves[src] = dst
					}
					continue
				}
				grown = append(grown, origin+((i-nk)*before+ib)*after+ia)
				holes = append(holes, dst)
			}
		}
	}
	fillHoles(moves, grown, holes)
	out.Permutation = fromSparse(moves)

	dirty := make(map[int]bool, len(d.Change)+d.Grow)
	for i := range d.Change {
		if i < live {
			dirty[i] = true
		}
	}
	for i := nk; i < size; i++ {
		if to := image(i); to < live {
			dirty[to] = true
		}
	}
	if len(dirty) > 0 {
		out.Change = make(map[int][]T, len(dirty)*r)
		for i := range dirty {
			for ib := 0; ib < before; ib++ {
				for ia := 0; ia < after; ia++ {
					out.Change[flat(live, ib, i, ia)] = p.tuple(k, i, ib, ia)
				}
			}
		}
	}
	return out, nil
}

// Snapshot materializes every tuple in row-major order.
func (p *Product[T]) Snapshot() [][]T {
	total := p.Degree()
	if total == 0 {
		return nil
	}
	after := total / p.inputs[0].Len()
	out := make([][]T, total)
	for f := range out {
		out[f] = p.tuple(0, f/after, 0, f%after)
	}
	return out
}

// tuple assembles the values at (ib, i, ia) for input k.
func (p *Product[T]) tuple(k, i, ib, ia int) []T {
	vals := make([]T, len(p.inputs))
	vals[k] = p.inputs[k].At(i)
	for j := len(p.inputs) - 1; j > k; j-- {
		n := p.inputs[j].Len()
		vals[j] = p.inputs[j].At(ia % n)
		ia /= n
	}
	for j := k - 1; j >= 0; j-- {
		n := p.inputs[j].Len()
		vals[j] = p.inputs[j].At(ib % n)
		ib /= n
	}
	return vals
}

// fillHoles routes placeholder slots to the destinations of new tuples.
// Placeholders are interchangeable, so one already sitting on a destination
// stays there and the rest are paired in ascending order.
func fillHoles(moves map[int]int, grown, holes []int) {
	if len(holes) == 0 {
		return
	}
	open := make(map[int]bool, len(holes))
	for _, h := range holes {
		open[h] = true
	}
	var srcs []int
	for _, s := range grown {
		if open[s] {
			delete(open, s)
			continue
		}
		srcs = append(srcs, s)
	}
	dsts := maps.Keys(open)
	slices.Sort(srcs)
	slices.Sort(dsts)
	for i, s := range srcs {
		moves[s] = dsts[i]
	}
}
