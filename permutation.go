package seqdiff

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Cycle is one orbit of a Permutation: the item at c[i] moves to c[i+1] and
// the item at the last index moves to c[0].
type Cycle []int

// Permutation reorders slot indices. It holds only the indices it moves, as
// disjoint cycles; every other index is a fixed point, so a permutation over
// a small domain extends to any larger one unchanged.
//
// The canonical form, returned by every function in this file, starts each
// cycle at its smallest index and orders cycles by that index. The identity
// is nil.
type Permutation []Cycle

// Identity returns the permutation that moves nothing.
func Identity() Permutation {
	return nil
}

// Rotate moves the item at i to j and shifts the items in between by one slot
// toward i.
func Rotate(i, j int) Permutation {
	switch {
	case i == j:
		return nil
	case i < j:
		c := make(Cycle, 0, j-i+1)
		c = append(c, i)
		for k := j; k > i; k-- {
			c = append(c, k)
		}
		return Permutation{c}
	default:
		c := make(Cycle, 0, i-j+1)
		for k := j; k <= i; k++ {
			c = append(c, k)
		}
		return Permutation{c}
	}
}

// Compose returns the permutation that applies p and then q.
func Compose(p, q Permutation) Permutation {
	if len(p) == 0 && len(q) == 0 {
		return nil
	}
	pm, qm := p.mapping(), q.mapping()
	r := make(map[int]int, len(pm)+len(qm))
	for i, j := range pm {
		if k, ok := qm[j]; ok {
			j = k
		}
		r[i] = j
	}
	for i, j := range qm {
		if _, ok := pm[i]; !ok {
			r[i] = j
		}
	}
	return fromSparse(r)
}

// Inverse returns the permutation that undoes p.
func Inverse(p Permutation) Permutation {
	if len(p) == 0 {
		return nil
	}
	inv := make(Permutation, 0, len(p))
	for _, c := range p {
		rc := make(Cycle, len(c))
		rc[0] = c[0]
		for i := 1; i < len(c); i++ {
			rc[i] = c[len(c)-i]
		}
		inv = append(inv, rc)
	}
	return inv.canonical()
}

// Shift returns p with every index moved up by off.
func Shift(p Permutation, off int) Permutation {
	if len(p) == 0 {
		return nil
	}
	out := make(Permutation, len(p))
	for ci, c := range p {
		sc := make(Cycle, len(c))
		for i, x := range c {
			sc[i] = x + off
		}
		out[ci] = sc
	}
	return out
}

// Image returns the index the item at i moves to.
func (p Permutation) Image(i int) int {
	for _, c := range p {
		for k, x := range c {
			if x == i {
				return c[(k+1)%len(c)]
			}
		}
	}
	return i
}

// Moved returns the number of indices p moves.
func (p Permutation) Moved() int {
	n := 0
	for _, c := range p {
		n += len(c)
	}
	return n
}

// Validate checks that p is a union of disjoint cycles of length two or more
// over [0, degree).
func (p Permutation) Validate(degree int) error {
	seen := make(map[int]struct{}, p.Moved())
	for ci, c := range p {
		if len(c) < 2 {
			return &InvalidPermutationError{Cycle: ci, Reason: "cycle shorter than two"}
		}
		for _, x := range c {
			if x < 0 || x >= degree {
				return &IndexOutOfRangeError{Field: "permutation", Index: x, Degree: degree}
			}
			if _, dup := seen[x]; dup {
				return &InvalidPermutationError{Cycle: ci, Reason: "index repeated"}
			}
			seen[x] = struct{}{}
		}
	}
	return nil
}

// mapping returns i -> p(i) for every moved index.
func (p Permutation) mapping() map[int]int {
	if len(p) == 0 {
		return nil
	}
	m := make(map[int]int, p.Moved())
	for _, c := range p {
		for k, x := range c {
			m[x] = c[(k+1)%len(c)]
		}
	}
	return m
}

// max returns the largest moved index, or -1.
func (p Permutation) max() int {
	hi := -1
	for _, c := range p {
		for _, x := range c {
			if x > hi {
				hi = x
			}
		}
	}
	return hi
}

// canonical rotates each cycle to start at its minimum and sorts the cycles.
func (p Permutation) canonical() Permutation {
	for _, c := range p {
		lo := 0
		for k := range c {
			if c[k] < c[lo] {
				lo = k
			}
		}
		if lo != 0 {
			rotated := append(append(Cycle{}, c[lo:]...), c[:lo]...)
			copy(c, rotated)
		}
	}
	slices.SortFunc(p, func(a, b Cycle) int { return a[0] - b[0] })
	return p
}

// fromSparse builds canonical cycles from a bijective mapping. Fixed points
// are dropped.
func fromSparse(m map[int]int) Permutation {
	keys := maps.Keys(m)
	slices.Sort(keys)
	visited := make(map[int]bool, len(m))
	var p Permutation
	for _, start := range keys {
		if visited[start] || m[start] == start {
			continue
		}
		var c Cycle
		for x := start; !visited[x]; x = m[x] {
			visited[x] = true
			c = append(c, x)
		}
		p = append(p, c)
	}
	return p
}

// fromDense builds canonical cycles from dst, where dst[i] is the image of
// lo+i and every image lies in [lo, lo+len(dst)).
func fromDense(lo int, dst []int) Permutation {
	visited := make([]bool, len(dst))
	var p Permutation
	for i := range dst {
		if visited[i] || dst[i] == lo+i {
			continue
		}
		var c Cycle
		for x := i; !visited[x]; x = dst[x] - lo {
			visited[x] = true
			c = append(c, lo+x)
		}
		p = append(p, c)
	}
	return p
}

// rotateBlock moves the block [mid, end) in front of [start, mid).
func rotateBlock(start, mid, end int) Permutation {
	if start >= mid || mid >= end {
		return nil
	}
	dst := make([]int, end-start)
	for x := start; x < mid; x++ {
		dst[x-start] = x + (end - mid)
	}
	for x := mid; x < end; x++ {
		dst[x-start] = x - (mid - start)
	}
	return fromDense(start, dst)
}

// permute rearranges s in place: the item at i ends at p(i). Each cycle is
// walked with one temporary, so no slot is read after it was overwritten.
func permute[T any](s []T, p Permutation) {
	for _, c := range p {
		last := len(c) - 1
		tmp := s[c[last]]
		for k := last; k > 0; k-- {
			s[c[k]] = s[c[k-1]]
		}
		s[c[0]] = tmp
	}
}
