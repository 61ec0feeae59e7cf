package contour

import "math"

// Point is a vertex in data coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Ring is a closed loop: the first and last vertices are equal. Outer
// rings run counter-clockwise, holes clockwise.
type Ring []Point

// Closed reports whether the ring has at least three distinct vertices and
// ends where it starts.
func (r Ring) Closed() bool {
	return len(r) >= 4 && r[0] == r[len(r)-1]
}

// Area is the signed shoelace area: positive for counter-clockwise rings.
func (r Ring) Area() float64 {
	sum := 0.0
	for k := 0; k+1 < len(r); k++ {
		sum += r[k].X*r[k+1].Y - r[k+1].X*r[k].Y
	}
	return sum / 2
}

// Contains reports whether p lies strictly inside the ring (even-odd rule).
func (r Ring) Contains(p Point) bool {
	in := false
	for k := 0; k+1 < len(r); k++ {
		a, b := r[k], r[k+1]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if p.X < x {
				in = !in
			}
		}
	}
	return in
}

// Bounds returns the bounding box of the ring.
func (r Ring) Bounds() (min, max Point) {
	min = Point{math.Inf(1), math.Inf(1)}
	max = Point{math.Inf(-1), math.Inf(-1)}
	for _, p := range r {
		min.X, min.Y = math.Min(min.X, p.X), math.Min(min.Y, p.Y)
		max.X, max.Y = math.Max(max.X, p.X), math.Max(max.Y, p.Y)
	}
	return min, max
}

// Polygon is an outer ring with zero or more holes.
type Polygon struct {
	Outer Ring   `json:"outer"`
	Holes []Ring `json:"holes,omitempty"`
}

// Area is the enclosed area, holes subtracted.
func (p Polygon) Area() float64 {
	a := math.Abs(p.Outer.Area())
	for _, h := range p.Holes {
		a -= math.Abs(h.Area())
	}
	return a
}

// Contour is the excluded region for one named curve or band.
type Contour struct {
	Name     string    `json:"name"`
	Level    float64   `json:"level"`
	Polygons []Polygon `json:"polygons"`
}

// Empty reports whether the contour has no polygons.
func (c *Contour) Empty() bool {
	return c == nil || len(c.Polygons) == 0
}

// Rings returns every ring, outers and holes, in polygon order.
func (c *Contour) Rings() []Ring {
	if c == nil {
		return nil
	}
	var out []Ring
	for _, p := range c.Polygons {
		out = append(out, p.Outer)
		out = append(out, p.Holes...)
	}
	return out
}

// closeRing removes consecutive duplicate vertices, treating the input as
// cyclic, and appends the first vertex. Rings with fewer than three
// distinct vertices or no area return nil.
func closeRing(pts []Point) Ring {
	var r Ring
	for _, p := range pts {
		if len(r) > 0 && r[len(r)-1] == p {
			continue
		}
		r = append(r, p)
	}
	for len(r) > 1 && r[0] == r[len(r)-1] {
		r = r[:len(r)-1]
	}
	if len(r) < 3 {
		return nil
	}
	r = append(r, r[0])
	if r.Area() == 0 {
		return nil
	}
	return r
}

// assemblePolygons groups rings into polygons: counter-clockwise rings are
// outers and each clockwise ring becomes a hole of the smallest outer that
// contains it.
func assemblePolygons(rings []Ring) []Polygon {
	var polys []Polygon
	var holes []Ring
	for _, r := range rings {
		if r.Area() > 0 {
			polys = append(polys, Polygon{Outer: r})
		} else {
			holes = append(holes, r)
		}
	}
	for _, h := range holes {
		best, bestArea := -1, math.Inf(1)
		for k, p := range polys {
			if a := p.Outer.Area(); a < bestArea && p.Outer.Contains(h[0]) {
				best, bestArea = k, a
			}
		}
		if best < 0 {
			// Unreachable for rings produced by the extractor; keep the
			// geometry rather than lose it.
			polys = append(polys, Polygon{Outer: reversed(h)})
			continue
		}
		polys[best].Holes = append(polys[best].Holes, h)
	}
	return polys
}

func reversed(r Ring) Ring {
	out := make(Ring, len(r))
	for k := range r {
		out[k] = r[len(r)-1-k]
	}
	return out
}
