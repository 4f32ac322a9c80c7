package seqdiff

// partition holds the result from findMiddleSnake().
// It represents a point on an optimal edit path where the search can split.
type partition struct {
	xmid, ymid int  // split coordinates in the edit graph
	ok         bool // false when the search gave up or found no common element
}

// diffContext holds algorithm state during comparison.
//
// Sequences are dense integer ids: callers map their keys to ints first, so
// equality is a single comparison.
type diffContext struct {
	xvec, yvec   []int  // sequences being compared
	fdiag, bdiag []int  // forward/backward diagonal arrays
	xchanges     []bool // marks elements of xvec outside the common subsequence
	ychanges     []bool // marks elements of yvec outside the common subsequence
	useHeuristic bool   // enable the cost limit
	costLimit    int    // max cost before early termination
}

// newDiffContext creates a new context for comparing two sequences.
func newDiffContext(a, b []int, opts *options) *diffContext {
	n := len(a)
	m := len(b)

	// Diagonals range over [-maxD, maxD] plus one guard slot on each side.
	diagSize := n + m + 4

	ctx := &diffContext{
		xvec:         a,
		yvec:         b,
		fdiag:        make([]int, diagSize),
		bdiag:        make([]int, diagSize),
		xchanges:     make([]bool, n),
		ychanges:     make([]bool, m),
		useHeuristic: opts.useHeuristic && !opts.forceMinimal,
		costLimit:    opts.costLimit,
	}

	// Auto-calculate cost limit if not specified
	if ctx.costLimit == 0 && ctx.useHeuristic {
		// sqrt(n) * sqrt(m) / 4, but at least 256
		ctx.costLimit = isqrt(n) * isqrt(m) / 4
		if ctx.costLimit < 256 {
			ctx.costLimit = 256
		}
	}

	return ctx
}

// markDeleted marks elements in xvec[xoff:xlim] as unmatched.
func (ctx *diffContext) markDeleted(xoff, xlim int) {
	for i := xoff; i < xlim; i++ {
		ctx.xchanges[i] = true
	}
}

// markInserted marks elements in yvec[yoff:ylim] as unmatched.
func (ctx *diffContext) markInserted(yoff, ylim int) {
	for i := yoff; i < ylim; i++ {
		ctx.ychanges[i] = true
	}
}

// equal reports whether xvec[i] equals yvec[j].
func (ctx *diffContext) equal(i, j int) bool {
	return ctx.xvec[i] == ctx.yvec[j]
}
