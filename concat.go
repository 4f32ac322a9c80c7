package seqdiff

import (
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

// SlotState is the lifecycle of one inner sequence of a Concat.
type SlotState int

const (
	// Uninitialized slots are known to the outer sequence but have not
	// received their first inner diff. They contribute no items.
	Uninitialized SlotState = iota
	// Active slots contribute their items to the flat sequence.
	Active
	// Removed slots were dropped by the outer sequence. Diffs for them are
	// ignored.
	Removed
)

func (s SlotState) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Active:
		return "Active"
	case Removed:
		return "Removed"
	default:
		return "Unknown"
	}
}

type slot[K comparable] struct {
	key   K
	keyed bool // false for grown outer slots not yet given a key
	state SlotState
	n     int // current inner length
	pos   int // index in the outer sequence
}

// Concat flattens an outer sequence of inner sequences. The outer sequence
// is a sequence of keys; each key names one inner sequence whose diffs are
// pushed separately.
//
// Concat is not safe for concurrent use.
type Concat[K comparable, T any] struct {
	slots []*slot[K]
	byKey map[K]*slot[K]

	// offsets[i] is the flat index of the first item of slots[i], valid for
	// i < valid. A length change invalidates the offsets after it only.
	offsets []int
	valid   int

	size int
	opts *options
}

// NewConcat returns an empty Concat.
func NewConcat[K comparable, T any](opts ...Option) *Concat[K, T] {
	return &Concat[K, T]{
		byKey:   make(map[K]*slot[K]),
		offsets: []int{0},
		valid:   1,
		opts:    applyOptions(opts),
	}
}

// Degree returns the length of the flat sequence.
func (c *Concat[K, T]) Degree() int {
	return c.size
}

// State returns the lifecycle state of the inner sequence named key. Keys
// that were never seen report Removed.
func (c *Concat[K, T]) State(key K) SlotState {
	if s, ok := c.byKey[key]; ok {
		return s.state
	}
	return Removed
}

// Lens returns the length of every inner sequence in outer order.
func (c *Concat[K, T]) Lens() []int {
	lens := make([]int, len(c.slots))
	for i, s := range c.slots {
		lens[i] = s.n
	}
	return lens
}

// PushInner folds a diff of the inner sequence named key and returns the
// diff of the flat sequence. A diff for an unknown or removed key is
// ignored and reported as an UnsubscribedInputError.
func (c *Concat[K, T]) PushInner(key K, d Diff[T]) (out Diff[T], err error) {
	defer func(begin time.Time) {
		c.opts.metrics.observe(opConcatIn, begin, err)
		if err == nil {
			c.opts.metrics.record(opConcatIn, out.Permutation.Moved(), len(out.Change))
		}
	}(time.Now())

	s, ok := c.byKey[key]
	if !ok {
		c.opts.metrics.drop(opConcatIn)
		level.Debug(c.opts.logger).Log("op", opConcatIn, "key", key, "msg", "dropping diff for unsubscribed inner sequence")
		return Empty[T](c.size), errors.WithStack(&UnsubscribedInputError{Input: key})
	}
	if err := d.Validate(); err != nil {
		return Diff[T]{}, errors.Wrapf(err, "inner sequence %v", key)
	}
	if d.Origin() != s.n {
		return Diff[T]{}, errors.Wrapf(&DegreeMismatchError{Want: s.n, Got: d.Origin()}, "inner sequence %v", key)
	}

	o := c.offset(s.pos)
	size := c.size + d.Grow
	end := o + d.Degree

	// Grown slots arrive at the flat tail and slide in after the inner
	// sequence; its shrunk slots slide out to the flat tail.
	grow := Diff[T]{
		Grow:        d.Grow,
		Degree:      size,
		Permutation: rotateBlock(o+s.n, c.size, size),
	}
	body := Diff[T]{
		Degree:      size,
		Permutation: Shift(d.Permutation, o),
		Change:      shiftKeys(d.Change, o),
		Freeze:      shiftSet(d.Freeze, o),
	}
	shrink := Diff[T]{
		Degree:      size,
		Shrink:      d.Shrink,
		Permutation: rotateBlock(end-d.Shrink, end, size),
	}
	out, err = Fold(grow, body, shrink)
	if err != nil {
		return Diff[T]{}, errors.Wrapf(err, "inner sequence %v", key)
	}

	if s.state == Uninitialized {
		s.state = Active
		level.Debug(c.opts.logger).Log("op", opConcatIn, "key", key, "msg", "inner sequence active", "len", d.Len())
	}
	s.n = d.Len()
	c.size = size - d.Shrink
	if c.valid > s.pos+1 {
		c.valid = s.pos + 1
	}
	return out, nil
}

// PushOuter folds a diff of the outer sequence of keys and returns the diff
// of the flat sequence. A key written by Change names a new inner sequence,
// which starts Uninitialized; the inner sequence it replaces, like any
// inner sequence shrunk away, is Removed and its items leave the flat
// sequence.
func (c *Concat[K, T]) PushOuter(d Diff[K]) (out Diff[T], err error) {
	defer func(begin time.Time) {
		c.opts.metrics.observe(opConcatOut, begin, err)
		if err == nil {
			c.opts.metrics.record(opConcatOut, out.Permutation.Moved(), 0)
		}
	}(time.Now())

	if err := d.Validate(); err != nil {
		return Diff[T]{}, errors.Wrap(err, "outer sequence")
	}
	if d.Origin() != len(c.slots) {
		return Diff[T]{}, errors.Wrap(&DegreeMismatchError{Want: len(c.slots), Got: d.Origin()}, "outer sequence")
	}

	old := c.slots
	oldOff := make([]int, len(old))
	for i := range old {
		oldOff[i] = c.offset(i)
	}

	work := make([]*slot[K], d.Degree)
	copy(work, old)
	for i := len(old); i < d.Degree; i++ {
		work[i] = &slot[K]{pos: -1}
	}
	permute(work, d.Permutation)

	live := d.Len()
	dead := make(map[*slot[K]]bool)
	fresh := make(map[int]*slot[K])
	for i, key := range d.Change {
		cur := work[i]
		if cur.keyed && cur.key == key {
			continue
		}
		dead[cur] = true
		if i < live {
			fresh[i] = &slot[K]{key: key, keyed: true, pos: -1}
		}
	}
	for i := live; i < d.Degree; i++ {
		dead[work[i]] = true
	}

	seen := make(map[K]int, len(fresh))
	for i, s := range fresh {
		if other, ok := c.byKey[s.key]; ok && !dead[other] {
			return Diff[T]{}, errors.Wrap(&DuplicateKeyError{Key: s.key, First: other.pos, Second: i}, "outer sequence")
		}
		if j, ok := seen[s.key]; ok {
			return Diff[T]{}, errors.Wrap(&DuplicateKeyError{Key: s.key, First: j, Second: i}, "outer sequence")
		}
		seen[s.key] = i
	}

	slots := make([]*slot[K], live)
	copy(slots, work[:live])
	for i, s := range fresh {
		slots[i] = s
	}

	moves := make(map[int]int)
	at := 0
	for _, s := range slots {
		if s.n > 0 && oldOff[s.pos] != at {
			for x := 0; x < s.n; x++ {
				moves[oldOff[s.pos]+x] = at + x
			}
		}
		at += s.n
	}
	removed := 0
	for i, s := range old {
		if !dead[s] || s.n == 0 {
			continue
		}
		if oldOff[i] != at {
			for x := 0; x < s.n; x++ {
				moves[oldOff[i]+x] = at + x
			}
		}
		at += s.n
		removed += s.n
	}
	out = Diff[T]{Degree: c.size, Shrink: removed, Permutation: fromSparse(moves)}

	for s := range dead {
		if !s.keyed {
			continue
		}
		if c.byKey[s.key] == s {
			delete(c.byKey, s.key)
		}
		s.state = Removed
		level.Debug(c.opts.logger).Log("op", opConcatOut, "key", s.key, "msg", "inner sequence removed", "len", s.n)
	}
	for _, s := range fresh {
		c.byKey[s.key] = s
	}

	// Offsets up to the first slot that changed are still good.
	first := 0
	for first < len(slots) && first < len(old) && slots[first] == old[first] {
		first++
	}
	for i, s := range slots {
		s.pos = i
	}
	offsets := make([]int, len(slots)+1)
	if c.valid > first+1 {
		c.valid = first + 1
	}
	copy(offsets, c.offsets[:c.valid])
	c.offsets = offsets
	c.slots = slots
	c.size -= removed
	return out, nil
}

// offset returns the flat index of the first item of slots[i], extending the
// valid prefix of offsets as needed.
func (c *Concat[K, T]) offset(i int) int {
	for c.valid <= i {
		c.offsets[c.valid] = c.offsets[c.valid-1] + c.slots[c.valid-1].n
		c.valid++
	}
	return c.offsets[i]
}

func shiftKeys[T any](m map[int]T, off int) map[int]T {
	if len(m) == 0 {
		return nil
	}
	out := make(map[int]T, len(m))
	for i, v := range m {
		out[i+off] = v
	}
	return out
}

func shiftSet(s IndexSet, off int) IndexSet {
	if len(s) == 0 {
		return nil
	}
	out := make(IndexSet, len(s))
	for i := range s {
		out[i+off] = struct{}{}
	}
	return out
}
