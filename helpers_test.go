package seqdiff

import (
	"math/rand"
)

// randPerm returns a random permutation of [lo, lo+n). A third of the time it
// is the identity, a third a single rotation.
func randPerm(rng *rand.Rand, lo, n int) Permutation {
	if n < 2 {
		return nil
	}
	switch rng.Intn(3) {
	case 0:
		return nil
	case 1:
		return Rotate(lo+rng.Intn(n), lo+rng.Intn(n))
	}
	dst := rng.Perm(n)
	for i := range dst {
		dst[i] += lo
	}
	return fromDense(lo, dst)
}

// randDiff returns a random valid diff applying to a sequence of length
// origin. Values are drawn from [0, 1000).
func randDiff(rng *rand.Rand, origin int) Diff[int] {
	grow := rng.Intn(3)
	degree := origin + grow
	d := Diff[int]{Grow: grow, Degree: degree}
	d.Permutation = randPerm(rng, 0, degree)
	for i := 0; i < degree; i++ {
		if rng.Intn(3) == 0 {
			if d.Change == nil {
				d.Change = make(map[int]int)
			}
			d.Change[i] = rng.Intn(1000)
		}
		if rng.Intn(8) == 0 {
			if d.Freeze == nil {
				d.Freeze = make(IndexSet)
			}
			d.Freeze[i] = struct{}{}
		}
	}
	limit := degree
	if limit > 3 {
		limit = 3
	}
	d.Shrink = rng.Intn(limit + 1)
	return d
}

// randInts returns n values drawn from [0, 1000).
func randInts(rng *rand.Rand, n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = rng.Intn(1000)
	}
	return s
}

// randSnapshot returns a random ordered subset of pool.
func randSnapshot(rng *rand.Rand, pool []string) []string {
	var out []string
	for _, i := range rng.Perm(len(pool)) {
		if rng.Intn(3) != 0 {
			out = append(out, pool[i])
		}
	}
	return out
}

// countingStore records the operations applied to a SliceStore.
type countingStore struct {
	SliceStore[string]
	moves int
}

func (s *countingStore) Move(from, to int) {
	s.moves++
	s.SliceStore.Move(from, to)
}
