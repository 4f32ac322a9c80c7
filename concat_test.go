package seqdiff

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// concatHarness feeds a Concat and checks its output against a model of the
// outer and inner sequences.
type concatHarness struct {
	t     *testing.T
	c     *Concat[string, int]
	keys  []string
	inner map[string]*Mirror[int]
	flat  *Mirror[int]
}

func newConcatHarness(t *testing.T) *concatHarness {
	return &concatHarness{
		t:     t,
		c:     NewConcat[string, int](),
		inner: make(map[string]*Mirror[int]),
		flat:  NewMirror[int](),
	}
}

func (h *concatHarness) outer(keys ...string) Diff[int] {
	h.t.Helper()
	d, err := BuildComparable(h.keys, keys)
	require.NoError(h.t, err)
	out, err := h.c.PushOuter(d)
	require.NoError(h.t, err)
	require.NoError(h.t, h.flat.Apply(out))

	live := make(map[string]bool, len(keys))
	for _, k := range keys {
		live[k] = true
		if _, ok := h.inner[k]; !ok {
			h.inner[k] = NewMirror[int]()
		}
	}
	for k := range h.inner {
		if !live[k] {
			delete(h.inner, k)
		}
	}
	h.keys = append([]string(nil), keys...)
	h.check()
	return out
}

func (h *concatHarness) push(key string, d Diff[int]) Diff[int] {
	h.t.Helper()
	require.NoError(h.t, h.inner[key].Apply(d))
	out, err := h.c.PushInner(key, d)
	require.NoError(h.t, err)
	require.NoError(h.t, h.flat.Apply(out))
	h.check()
	return out
}

// set replaces the inner sequence key with items.
func (h *concatHarness) set(key string, items ...int) Diff[int] {
	h.t.Helper()
	d, err := BuildComparable(h.inner[key].Snapshot(), items)
	require.NoError(h.t, err)
	return h.push(key, d)
}

func (h *concatHarness) check() {
	h.t.Helper()
	var want []int
	lens := make([]int, len(h.keys))
	for i, k := range h.keys {
		want = append(want, h.inner[k].Snapshot()...)
		lens[i] = h.inner[k].Len()
	}
	assert.Equal(h.t, len(want), h.c.Degree())
	assert.Equal(h.t, lens, h.c.Lens())
	if len(want) == 0 {
		assert.Zero(h.t, h.flat.Len())
		return
	}
	assert.Equal(h.t, want, h.flat.Snapshot())
}

func TestConcat_InnerGrowthLeavesOtherSlotsAlone(t *testing.T) {
	h := newConcatHarness(t)
	h.outer("p", "q")
	h.set("p", 1, 2)
	h.set("q", 3, 4, 5)
	require.Equal(t, 5, h.c.Degree())

	out := h.push("q", Diff[int]{Grow: 1, Degree: 4, Change: map[int]int{3: 6}})
	assert.Equal(t, Diff[int]{Grow: 1, Degree: 6, Change: map[int]int{5: 6}}, out)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, h.flat.Snapshot())

	out = h.push("p", Diff[int]{Grow: 1, Degree: 3, Change: map[int]int{2: 7}})
	assert.Equal(t, 1, out.Grow)
	assert.Equal(t, 7, out.Degree)
	assert.Equal(t, map[int]int{2: 7}, out.Change)
	assert.Equal(t, []int{1, 2, 7, 3, 4, 5, 6}, h.flat.Snapshot())
}

func TestConcat_InnerShrinkAndReorder(t *testing.T) {
	h := newConcatHarness(t)
	h.outer("p", "q", "r")
	h.set("p", 1, 2, 3)
	h.set("q", 4, 5, 6)
	h.set("r", 7)

	out := h.set("q", 6, 4)
	assert.Equal(t, 1, out.Shrink)
	assert.Empty(t, out.Change)

	h.set("p")
	h.set("r", 8, 9)
	h.set("q", 10)
}

func TestConcat_OuterReorderReplaceAndRemove(t *testing.T) {
	h := newConcatHarness(t)
	h.outer("p", "q", "r")
	h.set("p", 1, 2)
	h.set("q", 3)
	h.set("r", 4, 5, 6)

	out := h.outer("r", "p", "q")
	assert.Zero(t, out.Shrink)
	assert.Empty(t, out.Change, "moving whole blocks never rewrites values")

	out = h.outer("r", "s", "q")
	assert.Equal(t, 2, out.Shrink, "the replaced sequence leaves with its items")
	assert.Equal(t, Removed, h.c.State("p"))
	assert.Equal(t, Uninitialized, h.c.State("s"))

	h.set("s", 7, 8)
	assert.Equal(t, Active, h.c.State("s"))

	h.outer("q")
	h.outer()
	assert.Zero(t, h.c.Degree())
}

func TestConcat_UninitializedBecomesActive(t *testing.T) {
	h := newConcatHarness(t)
	h.outer("p")
	assert.Equal(t, Uninitialized, h.c.State("p"))

	h.push("p", Empty[int](0))
	assert.Equal(t, Active, h.c.State("p"))
	assert.Equal(t, "Active", h.c.State("p").String())
}

func TestConcat_Unsubscribed(t *testing.T) {
	h := newConcatHarness(t)
	h.outer("p", "q")
	h.set("p", 1, 2)
	h.outer("q")

	out, err := h.c.PushInner("p", Diff[int]{Degree: 2, Change: map[int]int{0: 9}})
	require.Error(t, err)
	assert.True(t, IsRecoverable(err))
	assert.Equal(t, Empty[int](0), out)
	assert.Equal(t, Removed, h.c.State("p"))

	_, err = h.c.PushInner("never", Empty[int](0))
	assert.True(t, IsRecoverable(err))
	h.check()
}

func TestConcat_OuterErrors(t *testing.T) {
	h := newConcatHarness(t)
	h.outer("p", "q")
	h.set("p", 1)

	tests := []struct {
		name    string
		diff    Diff[string]
		wantErr interface{}
	}{
		{
			name:    "key already live",
			diff:    Diff[string]{Grow: 1, Degree: 3, Change: map[int]string{2: "p"}},
			wantErr: &DuplicateKeyError{},
		},
		{
			name:    "key repeated",
			diff:    Diff[string]{Grow: 2, Degree: 4, Change: map[int]string{2: "x", 3: "x"}},
			wantErr: &DuplicateKeyError{},
		},
		{
			name:    "wrong origin",
			diff:    Empty[string](3),
			wantErr: &DegreeMismatchError{},
		},
		{
			name:    "invalid",
			diff:    Diff[string]{Degree: 2, Shrink: 3},
			wantErr: &IndexOutOfRangeError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.c.PushOuter(tt.diff)
			require.Error(t, err)
			assert.IsType(t, tt.wantErr, errors.Cause(err))
			assert.False(t, IsRecoverable(err))
			assert.Equal(t, []int{1, 0}, h.c.Lens(), "failed diff must not change state")
			assert.Equal(t, Active, h.c.State("p"))
		})
	}

	// A key may move to a new slot when its old slot is rewritten.
	out, err := h.c.PushOuter(Diff[string]{Degree: 2, Change: map[int]string{0: "x", 1: "p"}})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Shrink)
	assert.Equal(t, Uninitialized, h.c.State("p"))
}

func TestConcat_InnerErrors(t *testing.T) {
	h := newConcatHarness(t)
	h.outer("p")
	h.set("p", 1, 2)

	_, err := h.c.PushInner("p", Empty[int](3))
	require.Error(t, err)
	assert.IsType(t, &DegreeMismatchError{}, errors.Cause(err))

	_, err = h.c.PushInner("p", Diff[int]{Degree: 2, Change: map[int]int{2: 0}})
	require.Error(t, err)
	assert.IsType(t, &IndexOutOfRangeError{}, errors.Cause(err))
	h.check()
}

func TestConcat_Random(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	for round := 0; round < 10; round++ {
		h := newConcatHarness(t)
		fresh := 0
		for step := 0; step < 60; step++ {
			if len(h.keys) == 0 || rng.Intn(4) == 0 {
				var keys []string
				for _, i := range rng.Perm(len(h.keys)) {
					if rng.Intn(4) != 0 {
						keys = append(keys, h.keys[i])
					}
				}
				for n := rng.Intn(3); n > 0; n-- {
					at := rng.Intn(len(keys) + 1)
					keys = append(keys[:at], append([]string{fmt.Sprintf("k%d", fresh)}, keys[at:]...)...)
					fresh++
				}
				h.outer(keys...)
				continue
			}
			key := h.keys[rng.Intn(len(h.keys))]
			h.push(key, randDiff(rng, h.inner[key].Len()))
		}
	}
}
