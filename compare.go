package seqdiff

// compareSeq is the divide-and-conquer core of the Myers diff algorithm.
// It compares xvec[xoff:xlim] with yvec[yoff:ylim] and marks the elements
// that are not part of the common subsequence in xchanges and ychanges.
//
// Parameters:
//   - xoff, xlim: bounds in xvec [xoff, xlim)
//   - yoff, ylim: bounds in yvec [yoff, ylim)
//   - findMinimal: if true, find the truly minimal edit script
func (ctx *diffContext) compareSeq(xoff, xlim, yoff, ylim int, findMinimal bool) {
	// 1. Trim matching elements from the start
	for xoff < xlim && yoff < ylim && ctx.equal(xoff, yoff) {
		xoff++
		yoff++
	}

	// 2. Trim matching elements from the end
	for xoff < xlim && yoff < ylim && ctx.equal(xlim-1, ylim-1) {
		xlim--
		ylim--
	}

	// 3. Base cases: one sequence is empty
	if xoff == xlim {
		ctx.markInserted(yoff, ylim)
		return
	}
	if yoff == ylim {
		ctx.markDeleted(xoff, xlim)
		return
	}

	// 4. Find the split point
	part := ctx.findMiddleSnake(xoff, xlim, yoff, ylim, findMinimal)
	if !part.ok ||
		(part.xmid == xoff && part.ymid == yoff) ||
		(part.xmid == xlim && part.ymid == ylim) {
		ctx.markDeleted(xoff, xlim)
		ctx.markInserted(yoff, ylim)
		return
	}

	// 5. Recurse on both halves
	ctx.compareSeq(xoff, part.xmid, yoff, part.ymid, findMinimal)
	ctx.compareSeq(part.xmid, xlim, part.ymid, ylim, findMinimal)
}

// pairs walks the unmarked elements of both sequences in step and returns
// the matched index pairs.
func (ctx *diffContext) pairs() [][2]int {
	var out [][2]int
	n := len(ctx.xvec)
	m := len(ctx.yvec)
	i, j := 0, 0

	for i < n && j < m {
		if ctx.xchanges[i] {
			i++
			continue
		}
		if ctx.ychanges[j] {
			j++
			continue
		}
		if ctx.equal(i, j) {
			out = append(out, [2]int{i, j})
		}
		i++
		j++
	}

	return out
}

// commonSubsequence returns the index pairs (i, j), increasing in both, of a
// longest common subsequence of x and y. With a heuristic search the result
// is a common subsequence that may not be the longest.
func commonSubsequence(x, y []int, o *options) [][2]int {
	if len(x) == 0 || len(y) == 0 {
		return nil
	}
	ctx := newDiffContext(x, y, o)
	ctx.compareSeq(0, len(x), 0, len(y), o.forceMinimal)
	return ctx.pairs()
}
