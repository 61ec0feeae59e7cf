package contour

import "math"

// levelSet classifies grid nodes and arbitrary points as excluded or not.
// With one field a point is excluded when the field is beyond the level;
// with two fields (a band) it is inside when exactly one of them is, which
// is the region between the two curves.
type levelSet struct {
	grid    *Grid
	fields  []*Surface
	fixed   []*bool // non-nil when a field is constant on one side
	level   float64
	orient  float64
	allowed *Region
}

func newLevelSet(level float64, allowed *Region, fields ...*Surface) *levelSet {
	ls := &levelSet{
		grid:    fields[0].Grid,
		fields:  fields,
		fixed:   make([]*bool, len(fields)),
		level:   level,
		orient:  fields[0].Scale.orientation(),
		allowed: allowed,
	}
	for k, f := range fields {
		if sided, excluded := f.oneSided(level); sided {
			ls.fixed[k] = &excluded
		}
	}
	return ls
}

// signed is positive (or zero) on the excluded side of the level.
func (ls *levelSet) signed(v float64) float64 {
	return ls.orient * (v - ls.level)
}

func (ls *levelSet) fieldAtNode(k, i, j int) float64 {
	if ls.fixed[k] != nil {
		if *ls.fixed[k] {
			return 1
		}
		return -1
	}
	return ls.signed(ls.fields[k].At(i, j))
}

func (ls *levelSet) fieldAtUnit(k int, u, v float64) float64 {
	if ls.fixed[k] != nil {
		if *ls.fixed[k] {
			return 1
		}
		return -1
	}
	return ls.signed(ls.fields[k].evalUnit(u, v))
}

func (ls *levelSet) combine(excluded func(k int) bool) bool {
	in := false
	for k := range ls.fields {
		if excluded(k) {
			in = !in
		}
	}
	return in
}

// node reports whether node (i, j) is inside. Indices outside the grid are
// the padding ring and always outside, which closes contours along the
// frame.
func (ls *levelSet) node(i, j int) bool {
	g := ls.grid
	if !g.InBounds(i, j) {
		return false
	}
	if !ls.allowed.Contains(g.X(i), g.Y(j)) {
		return false
	}
	return ls.combine(func(k int) bool { return ls.fieldAtNode(k, i, j) >= 0 })
}

func (ls *levelSet) atUnit(u, v float64) bool {
	x, y := ls.grid.FromUnit(u, v)
	if !ls.allowed.Contains(x, y) {
		return false
	}
	return ls.combine(func(k int) bool { return ls.fieldAtUnit(k, u, v) >= 0 })
}

// edgeKey identifies the grid edge from node (i, j) to (i+1, j), or to
// (i, j+1) when vertical.
type edgeKey struct {
	i, j     int
	vertical bool
}

func (e edgeKey) ends() (ai, aj, bi, bj int) {
	if e.vertical {
		return e.i, e.j, e.i, e.j + 1
	}
	return e.i, e.j, e.i + 1, e.j
}

type segment struct {
	from, to edgeKey
}

// tiny keeps value crossings off the nodes so distinct edges never share
// a vertex.
const tiny = 1e-9

func clampT(t, hi float64) float64 {
	return math.Max(tiny*hi, math.Min(hi*(1-tiny), t))
}

// crossing locates where the indicator flips along an edge, always
// measured from the inside end.
func (ls *levelSet) crossing(e edgeKey) Point {
	g := ls.grid
	ai, aj, bi, bj := e.ends()
	if !ls.node(ai, aj) {
		ai, aj, bi, bj = bi, bj, ai, aj
	}
	au, av := g.nodeUnit(ai, aj)
	if !g.InBounds(bi, bj) {
		return ls.point(au, av)
	}
	bu, bv := g.nodeUnit(bi, bj)

	lerp := func(t float64) (float64, float64) { return au + t*(bu-au), av + t*(bv-av) }

	if ls.allowed != nil {
		bx, by := g.FromUnit(bu, bv)
		if !ls.allowed.Contains(bx, by) {
			tm := ls.maskBoundary(lerp)
			mu, mv := lerp(tm)
			if tm == 0 || ls.atUnit(mu, mv) {
				return ls.point(mu, mv)
			}
			k := ls.flipped(func(k int) bool { return ls.fieldAtUnit(k, mu, mv) >= 0 }, ai, aj)
			sa, sm := ls.fieldAtNode(k, ai, aj), ls.fieldAtUnit(k, mu, mv)
			return ls.point(lerp(clampT(tm*sa/(sa-sm), tm)))
		}
	}

	k := ls.flipped(func(k int) bool { return ls.fieldAtNode(k, bi, bj) >= 0 }, ai, aj)
	sa, sb := ls.fieldAtNode(k, ai, aj), ls.fieldAtNode(k, bi, bj)
	return ls.point(lerp(clampT(sa/(sa-sb), 1)))
}

// flipped returns the first field whose side differs between node (i, j)
// and the other end described by other.
func (ls *levelSet) flipped(other func(k int) bool, i, j int) int {
	for k := range ls.fields {
		if (ls.fieldAtNode(k, i, j) >= 0) != other(k) {
			return k
		}
	}
	return 0
}

// maskBoundary bisects the allowed-region predicate along an edge whose
// start is allowed and end is not, returning the largest parameter known
// to be allowed.
func (ls *levelSet) maskBoundary(lerp func(t float64) (float64, float64)) float64 {
	lo, hi := 0.0, 1.0
	for range 52 {
		mid := (lo + hi) / 2
		u, v := lerp(mid)
		x, y := ls.grid.FromUnit(u, v)
		if ls.allowed.Contains(x, y) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

func (ls *levelSet) point(u, v float64) Point {
	x, y := ls.grid.FromUnit(u, v)
	return Point{X: x, Y: y}
}

// trace runs marching squares over the padded grid and stitches the cell
// segments into closed rings with the inside on the left.
func (ls *levelSet) trace() []Ring {
	g := ls.grid

	inside := make(map[[2]int]bool)
	in := func(i, j int) bool {
		key := [2]int{i, j}
		v, ok := inside[key]
		if !ok {
			v = ls.node(i, j)
			inside[key] = v
		}
		return v
	}

	var segs []segment
	for j := -1; j < g.NY; j++ {
		for i := -1; i < g.NX; i++ {
			segs = ls.cell(i, j, in, segs)
		}
	}

	start := make(map[edgeKey]int, len(segs))
	for k, s := range segs {
		start[s.from] = k
	}

	points := make(map[edgeKey]Point)
	at := func(e edgeKey) Point {
		p, ok := points[e]
		if !ok {
			p = ls.crossing(e)
			points[e] = p
		}
		return p
	}

	visited := make([]bool, len(segs))
	var rings []Ring
	for k := range segs {
		if visited[k] {
			continue
		}
		var pts []Point
		cur := k
		for !visited[cur] {
			visited[cur] = true
			pts = append(pts, at(segs[cur].from))
			next, ok := start[segs[cur].to]
			if !ok {
				break
			}
			cur = next
		}
		if r := closeRing(pts); r != nil {
			rings = append(rings, r)
		}
	}
	return rings
}

// cell appends the oriented segments of cell (i, j), whose corners are
// visited counter-clockwise from the bottom-left node.
func (ls *levelSet) cell(i, j int, in func(i, j int) bool, segs []segment) []segment {
	corners := [4]bool{in(i, j), in(i+1, j), in(i+1, j+1), in(i, j+1)}
	if corners[0] == corners[1] && corners[1] == corners[2] && corners[2] == corners[3] {
		return segs
	}
	// Edge k runs from corner k to corner k+1.
	edges := [4]edgeKey{
		{i, j, false},
		{i + 1, j, true},
		{i, j + 1, false},
		{i, j, true},
	}

	saddle := corners[0] == corners[2] && corners[1] == corners[3]
	joined := false
	if saddle {
		u, v := ls.grid.nodeUnit(i, j)
		du, dv := 0.5/float64(ls.grid.NX-1), 0.5/float64(ls.grid.NY-1)
		joined = ls.atUnit(u+du, v+dv)
	}

	entry := func(k int) bool { return !corners[k] && corners[(k+1)%4] }
	for k := range 4 {
		if !(corners[k] && !corners[(k+1)%4]) {
			continue
		}
		// Pair the exit with the next entry when the inside corners are
		// joined through the cell centre, otherwise with the previous one.
		step := 3
		if saddle && joined {
			step = 1
		}
		m := (k + step) % 4
		for !entry(m) {
			m = (m + step) % 4
		}
		segs = append(segs, segment{from: edges[k], to: edges[m]})
	}
	return segs
}
