package seqdiff

// findMiddleSnake runs the bidirectional search of Myers 1986, Section 4b,
// over xvec[xoff:xlim] and yvec[yoff:ylim]. Both searches advance one edit
// at a time; the first time the forward and reverse frontiers meet on a
// diagonal, the forward endpoint lies on an optimal edit path and is
// returned as the split point.
//
// Algorithm source: Myers 1986, "An O(ND) Difference Algorithm and Its Variations"
// http://www.xmailserver.org/diff2.pdf
//
// The reverse frontier is stored in mirrored coordinates (distance from the
// bottom-right corner), and diagonals that run off the edit graph are
// trimmed from later rounds, as in Neil Fraser's bisect.
//
// When the heuristic is enabled and findMinimal is false, the search gives
// up after costLimit rounds and the caller treats the region as unmatched.
func (ctx *diffContext) findMiddleSnake(xoff, xlim, yoff, ylim int, findMinimal bool) partition {
	n := xlim - xoff
	m := ylim - yoff

	maxD := (n + m + 1) / 2
	offset := maxD
	size := 2*maxD + 2

	fdiag := ctx.fdiag[:size]
	bdiag := ctx.bdiag[:size]
	for i := range fdiag {
		fdiag[i] = -1
		bdiag[i] = -1
	}
	fdiag[offset+1] = 0
	bdiag[offset+1] = 0

	delta := n - m
	// With an odd delta the forward frontier detects the overlap.
	front := delta%2 != 0

	// Trims for diagonals that left the graph.
	fkStart, fkEnd, bkStart, bkEnd := 0, 0, 0, 0

	for d := 0; d < maxD; d++ {
		if ctx.useHeuristic && !findMinimal && d > ctx.costLimit {
			return partition{}
		}

		// Forward search
		for k := -d + fkStart; k <= d-fkEnd; k += 2 {
			kIdx := offset + k

			// Come from k+1 (moving down) or from k-1 (moving right).
			var x int
			if k == -d || (k != d && fdiag[kIdx-1] < fdiag[kIdx+1]) {
				x = fdiag[kIdx+1]
			} else {
				x = fdiag[kIdx-1] + 1
			}
			y := x - k

			// Follow diagonal (matching elements)
			for x < n && y < m && ctx.equal(xoff+x, yoff+y) {
				x++
				y++
			}
			fdiag[kIdx] = x

			switch {
			case x > n:
				fkEnd += 2
			case y > m:
				fkStart += 2
			case front:
				bIdx := offset + delta - k
				if bIdx >= 0 && bIdx < size && bdiag[bIdx] != -1 && x >= n-bdiag[bIdx] {
					return partition{xmid: xoff + x, ymid: yoff + y, ok: true}
				}
			}
		}

		// Backward search, in mirrored coordinates.
		for k := -d + bkStart; k <= d-bkEnd; k += 2 {
			kIdx := offset + k

			var x int
			if k == -d || (k != d && bdiag[kIdx-1] < bdiag[kIdx+1]) {
				x = bdiag[kIdx+1]
			} else {
				x = bdiag[kIdx-1] + 1
			}
			y := x - k

			// Follow diagonal backward
			for x < n && y < m && ctx.equal(xlim-x-1, ylim-y-1) {
				x++
				y++
			}
			bdiag[kIdx] = x

			switch {
			case x > n:
				bkEnd += 2
			case y > m:
				bkStart += 2
			case !front:
				fIdx := offset + delta - k
				if fIdx >= 0 && fIdx < size && fdiag[fIdx] != -1 {
					fx := fdiag[fIdx]
					fy := fx - (fIdx - offset)
					if fx >= n-x {
						return partition{xmid: xoff + fx, ymid: yoff + fy, ok: true}
					}
				}
			}
		}
	}

	// No common element in the region.
	return partition{}
}

// isqrt computes integer square root using Newton's method.
func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	if n == 1 {
		return 1
	}

	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}
