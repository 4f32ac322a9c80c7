package seqdiff

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// productHarness feeds a Product and keeps a mirror of its output.
type productHarness struct {
	t      *testing.T
	p      *Product[string]
	inputs []*Mirror[string]
	out    *Mirror[[]string]
}

func newProductHarness(t *testing.T, n int) *productHarness {
	h := &productHarness{t: t, p: NewProduct[string](n), out: NewMirror[[]string]()}
	for i := 0; i < n; i++ {
		h.inputs = append(h.inputs, NewMirror[string]())
	}
	return h
}

// set replaces input k with items and returns the product diff.
func (h *productHarness) set(k int, items ...string) Diff[[]string] {
	h.t.Helper()
	d, err := BuildComparable(h.inputs[k].Snapshot(), items)
	require.NoError(h.t, err)
	return h.push(k, d)
}

func (h *productHarness) push(k int, d Diff[string]) Diff[[]string] {
	h.t.Helper()
	require.NoError(h.t, h.inputs[k].Apply(d))
	out, err := h.p.Push(k, d)
	require.NoError(h.t, err)
	require.NoError(h.t, out.Validate())
	require.NoError(h.t, h.out.Apply(out))
	h.check()
	return out
}

// check compares the mirrored output with the cartesian product of the
// mirrored inputs.
func (h *productHarness) check() {
	h.t.Helper()
	want := [][]string{nil}
	for _, in := range h.inputs {
		var next [][]string
		for _, prefix := range want {
			for _, v := range in.Snapshot() {
				next = append(next, append(append([]string(nil), prefix...), v))
			}
		}
		want = next
	}
	assert.Equal(h.t, len(want), h.p.Degree())
	if len(want) == 0 {
		assert.Zero(h.t, h.out.Len())
		assert.Nil(h.t, h.p.Snapshot())
		return
	}
	assert.Equal(h.t, want, h.out.Snapshot())
	assert.Equal(h.t, want, h.p.Snapshot())
}

func TestProduct_GrowingAnInputAddsOnePlane(t *testing.T) {
	h := newProductHarness(t, 2)

	out := h.set(0, "x", "y")
	assert.Equal(t, 0, out.Degree, "nothing to pair with yet")

	out = h.set(1, "1", "2", "3")
	assert.Equal(t, 6, out.Grow)
	assert.Equal(t, 6, out.Degree)
	assert.Len(t, out.Change, 6)

	out = h.set(0, "x", "y", "z")
	assert.Equal(t, 3, out.Grow)
	assert.Equal(t, 9, out.Degree)
	assert.Zero(t, out.Shrink)
	assert.Nil(t, out.Permutation)
	assert.Equal(t, map[int][]string{
		6: {"z", "1"},
		7: {"z", "2"},
		8: {"z", "3"},
	}, out.Change)
}

func TestProduct_GrowingAnInnerInput(t *testing.T) {
	h := newProductHarness(t, 2)
	h.set(0, "x", "y")
	h.set(1, "1", "2")

	out := h.set(1, "1", "2", "3")
	assert.Equal(t, 2, out.Grow)
	assert.Equal(t, 6, out.Degree)
	assert.Equal(t, map[int][]string{
		2: {"x", "3"},
		5: {"y", "3"},
	}, out.Change)
}

func TestProduct_ValueChangeRewritesItsTuples(t *testing.T) {
	h := newProductHarness(t, 3)
	h.set(0, "a", "b")
	h.set(1, "p", "q")
	h.set(2, "1", "2")

	out := h.push(1, Diff[string]{Degree: 2, Change: map[int]string{0: "P"}})
	assert.Zero(t, out.Grow)
	assert.Nil(t, out.Permutation)
	assert.Len(t, out.Change, 4)
}

func TestProduct_PermutationMovesTuples(t *testing.T) {
	h := newProductHarness(t, 2)
	h.set(0, "a", "b", "c")
	h.set(1, "1", "2")

	out := h.set(0, "c", "a", "b")
	assert.Empty(t, out.Change, "moved tuples keep their values")
	assert.Equal(t, 6, out.Permutation.Moved())

	out = h.set(1, "2", "1")
	assert.Empty(t, out.Change)
	assert.Equal(t, 6, out.Permutation.Moved())
}

func TestProduct_Shrink(t *testing.T) {
	h := newProductHarness(t, 2)
	h.set(0, "a", "b", "c")
	h.set(1, "1", "2")

	out := h.set(0, "a", "c")
	assert.Equal(t, 2, out.Shrink)
	assert.Equal(t, 4, out.Len())

	out = h.set(1)
	assert.Equal(t, 0, out.Len())
	h.set(1, "3")
	h.set(0)
}

func TestProduct_Random(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	for round := 0; round < 20; round++ {
		h := newProductHarness(t, 1+rng.Intn(3))
		for step := 0; step < 30; step++ {
			k := rng.Intn(len(h.inputs))
			pool := []string{"a", "b", "c", "d"}
			h.set(k, randSnapshot(rng, pool)...)
		}
	}
}

func TestProduct_Unsubscribe(t *testing.T) {
	h := newProductHarness(t, 2)
	h.set(0, "a")
	h.set(1, "1", "2")

	h.p.Unsubscribe(1)
	out, err := h.p.Push(1, Diff[string]{Degree: 2, Shrink: 1})
	require.Error(t, err)
	assert.True(t, IsRecoverable(err))
	assert.Equal(t, Empty[[]string](2), out)
	assert.Equal(t, []int{1, 2}, h.p.Dims(), "dropped diff must not change state")

	// The remaining input keeps flowing and the stale input keeps its items.
	h.set(0, "a", "b")
	assert.Equal(t, 4, h.p.Degree())

	h.p.Unsubscribe(7)
}

func TestProduct_Errors(t *testing.T) {
	p := NewProduct[string](2)

	_, err := p.Push(2, Empty[string](0))
	require.Error(t, err)
	assert.IsType(t, &IndexOutOfRangeError{}, errors.Cause(err))

	_, err = p.Push(0, Empty[string](3))
	require.Error(t, err)
	assert.IsType(t, &DegreeMismatchError{}, errors.Cause(err))
	assert.False(t, IsRecoverable(err))

	assert.Panics(t, func() { NewProduct[string](0) })
}
