package contour

import (
	"fmt"
	"math"
)

// Grid is a regular lattice of NX × NY nodes. Nodes are equally spaced on
// each axis, in log10 space when the axis is logarithmic. Node (i, j) sits
// at (X(i), Y(j)); i runs along x.
type Grid struct {
	NX   int
	NY   int
	XMin float64
	XMax float64
	YMin float64
	YMax float64
	LogX bool
	LogY bool

	xs []float64
	ys []float64
}

// NewGrid derives the grid for a sample set. Bounds not overridden in cfg
// come from the sample bounding box.
func NewGrid(samples []Sample, cfg Config) (*Grid, error) {
	xlo, xhi := math.Inf(1), math.Inf(-1)
	ylo, yhi := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		xlo, xhi = math.Min(xlo, s.X), math.Max(xhi, s.X)
		ylo, yhi = math.Min(ylo, s.Y), math.Max(yhi, s.Y)
	}
	if cfg.XMin != nil {
		xlo = *cfg.XMin
	}
	if cfg.XMax != nil {
		xhi = *cfg.XMax
	}
	if cfg.YMin != nil {
		ylo = *cfg.YMin
	}
	if cfg.YMax != nil {
		yhi = *cfg.YMax
	}
	return NewGridBounds(xlo, xhi, ylo, yhi, cfg.XResolution, cfg.YResolution, cfg.LogX, cfg.LogY)
}

// NewGridBounds builds a grid from explicit bounds.
func NewGridBounds(xmin, xmax, ymin, ymax float64, nx, ny int, logX, logY bool) (*Grid, error) {
	if nx < 2 || ny < 2 {
		return nil, fmt.Errorf("%w: grid needs at least 2x2 nodes, got %dx%d", ErrConfig, nx, ny)
	}
	xs, err := newAxis("x", xmin, xmax, nx, logX)
	if err != nil {
		return nil, err
	}
	ys, err := newAxis("y", ymin, ymax, ny, logY)
	if err != nil {
		return nil, err
	}
	return &Grid{
		NX: nx, NY: ny,
		XMin: xmin, XMax: xmax,
		YMin: ymin, YMax: ymax,
		LogX: logX, LogY: logY,
		xs: xs, ys: ys,
	}, nil
}

func newAxis(name string, lo, hi float64, n int, logScale bool) ([]float64, error) {
	if !isFinite(lo) || !isFinite(hi) {
		return nil, fmt.Errorf("%w: %s bounds [%v, %v] are not finite", ErrConfig, name, lo, hi)
	}
	if lo >= hi {
		return nil, fmt.Errorf("%w: %s bounds [%v, %v] are empty", ErrConfig, name, lo, hi)
	}
	if logScale && lo <= 0 {
		return nil, fmt.Errorf("%w: %s bounds [%v, %v] are not positive on a log axis", ErrConfig, name, lo, hi)
	}

	nodes := make([]float64, n)
	for i := range n {
		nodes[i] = fromUnit(float64(i)/float64(n-1), lo, hi, logScale)
	}
	return nodes, nil
}

// X returns the x coordinate of column i.
func (g *Grid) X(i int) float64 { return g.xs[i] }

// Y returns the y coordinate of row j.
func (g *Grid) Y(j int) float64 { return g.ys[j] }

// Xs returns a copy of the column coordinates.
func (g *Grid) Xs() []float64 { return append([]float64(nil), g.xs...) }

// Ys returns a copy of the row coordinates.
func (g *Grid) Ys() []float64 { return append([]float64(nil), g.ys...) }

// Len is the number of nodes.
func (g *Grid) Len() int { return g.NX * g.NY }

// Index maps node (i, j) to its row-major position.
func (g *Grid) Index(i, j int) int { return j*g.NX + i }

// InBounds reports whether (i, j) is a node of the grid.
func (g *Grid) InBounds(i, j int) bool {
	return i >= 0 && i < g.NX && j >= 0 && j < g.NY
}

// Unit maps a data point to normalized axis coordinates, where the grid
// spans [0, 1] on both axes.
func (g *Grid) Unit(x, y float64) (u, v float64) {
	return toUnit(x, g.XMin, g.XMax, g.LogX), toUnit(y, g.YMin, g.YMax, g.LogY)
}

// FromUnit is the inverse of Unit.
func (g *Grid) FromUnit(u, v float64) (x, y float64) {
	return fromUnit(u, g.XMin, g.XMax, g.LogX), fromUnit(v, g.YMin, g.YMax, g.LogY)
}

// nodeUnit returns the normalized coordinates of node (i, j). Indices may
// lie one step outside the grid for boundary padding.
func (g *Grid) nodeUnit(i, j int) (u, v float64) {
	return float64(i) / float64(g.NX-1), float64(j) / float64(g.NY-1)
}

// Snap returns the node nearest to (x, y) in axis space.
func (g *Grid) Snap(x, y float64) (i, j int, ok bool) {
	u, v := g.Unit(x, y)
	if math.IsNaN(u) || math.IsNaN(v) {
		return 0, 0, false
	}
	i = int(math.Round(u * float64(g.NX-1)))
	j = int(math.Round(v * float64(g.NY-1)))
	if !g.InBounds(i, j) {
		return 0, 0, false
	}
	return i, j, true
}

func toUnit(x, lo, hi float64, logScale bool) float64 {
	if logScale {
		if x <= 0 {
			return math.NaN()
		}
		return (math.Log10(x) - math.Log10(lo)) / (math.Log10(hi) - math.Log10(lo))
	}
	return (x - lo) / (hi - lo)
}

func fromUnit(u, lo, hi float64, logScale bool) float64 {
	switch u {
	case 0:
		return lo
	case 1:
		return hi
	}
	if logScale {
		l := math.Log10(lo)
		return math.Pow(10, l+u*(math.Log10(hi)-l))
	}
	return lo + u*(hi-lo)
}

// spansPlane reports whether at least three of the points are not
// collinear. Coordinates are compared relative to their bounding box so
// the test does not depend on units.
func spansPlane(xs, ys []float64) bool {
	if len(xs) < 3 {
		return false
	}
	xlo, xhi := math.Inf(1), math.Inf(-1)
	ylo, yhi := math.Inf(1), math.Inf(-1)
	for i := range xs {
		xlo, xhi = math.Min(xlo, xs[i]), math.Max(xhi, xs[i])
		ylo, yhi = math.Min(ylo, ys[i]), math.Max(yhi, ys[i])
	}
	sx, sy := xhi-xlo, yhi-ylo
	if sx == 0 || sy == 0 {
		return false
	}
	nx := func(k int) float64 { return (xs[k] - xlo) / sx }
	ny := func(k int) float64 { return (ys[k] - ylo) / sy }

	// Direction from the first point to the point farthest from it.
	far, best := 0, 0.0
	for k := 1; k < len(xs); k++ {
		d := math.Hypot(nx(k)-nx(0), ny(k)-ny(0))
		if d > best {
			far, best = k, d
		}
	}
	if best == 0 {
		return false
	}
	dx, dy := nx(far)-nx(0), ny(far)-ny(0)
	const tol = 1e-9
	for k := 1; k < len(xs); k++ {
		cross := dx*(ny(k)-ny(0)) - dy*(nx(k)-nx(0))
		if math.Abs(cross)/best > tol {
			return true
		}
	}
	return false
}
