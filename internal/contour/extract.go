package contour

import (
	"errors"
	"fmt"

	"github.com/banshee-data/exclusion.report/internal/monitoring"
)

// Names of the contours produced by Extract.
const (
	NameExpected = "Exp"
	NameObserved = "Obs"
	NameBand1s   = "Band_1s"
	NameBand2s   = "Band_2s"
)

// Result is everything one extraction produced. A Result with no grid
// means the sample set could not support any surface; Empty reports it.
type Result struct {
	Level    float64
	Grid     *Grid
	Samples  []Sample
	Surfaces map[string]*Surface
	Contours map[string]*Contour
}

// Empty reports whether no contour has any polygon. Callers should skip
// rendering in that case.
func (r *Result) Empty() bool {
	if r == nil {
		return true
	}
	for _, c := range r.Contours {
		if !c.Empty() {
			return false
		}
	}
	return true
}

// Contour returns the named contour, or an empty one.
func (r *Result) Contour(name string) *Contour {
	if r != nil {
		if c, ok := r.Contours[name]; ok {
			return c
		}
	}
	return &Contour{Name: name}
}

// Curves flattens every contour into rings of vertices keyed by contour
// name, the shape renderers consume.
func (r *Result) Curves() map[string][][]Point {
	out := make(map[string][][]Point, len(r.Contours))
	for name, c := range r.Contours {
		var loops [][]Point
		for _, ring := range c.Rings() {
			loops = append(loops, []Point(ring))
		}
		out[name] = loops
	}
	return out
}

// ExtractLevel returns the region where the surface is excluded at level.
// All samples on one side of the level give an empty contour.
func ExtractLevel(name string, s *Surface, level float64, allowed *Region) *Contour {
	c := &Contour{Name: name, Level: level}
	if s == nil {
		return c
	}
	if sided, _ := s.oneSided(level); sided {
		return c
	}
	c.Polygons = assemblePolygons(newLevelSet(level, allowed, s).trace())
	return c
}

// ExtractBand returns the region between the lo and hi curves: points
// excluded by exactly one of the two surfaces. A surface whose samples all
// sit on one side of the level counts as uniformly excluded or not. When
// both do, and on the same side, the band is empty.
func ExtractBand(name string, lo, hi *Surface, level float64, allowed *Region) *Contour {
	c := &Contour{Name: name, Level: level}
	if lo == nil || hi == nil {
		return c
	}
	sidedLo, exLo := lo.oneSided(level)
	sidedHi, exHi := hi.oneSided(level)
	if sidedLo && sidedHi && exLo == exHi {
		return c
	}
	c.Polygons = assemblePolygons(newLevelSet(level, allowed, lo, hi).trace())
	return c
}

// Extract runs the whole pipeline for one region: samples, grid, one
// surface per configured metric and the named contours. Degenerate input
// gives a Result whose contours are empty; configuration and numerical
// failures return an error and no partial result.
func Extract(records []Record, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level := cfg.ThresholdLevel()
	res := &Result{
		Level:    level,
		Samples:  NewSamples(records, cfg.XVar, cfg.YVar),
		Surfaces: make(map[string]*Surface),
		Contours: make(map[string]*Contour),
	}
	res.fillEmpty(cfg)

	xs := make([]float64, len(res.Samples))
	ys := make([]float64, len(res.Samples))
	for k, s := range res.Samples {
		xs[k], ys[k] = s.X, s.Y
	}
	if !spansPlane(xs, ys) {
		monitoring.Warnf("contour: %d points do not span the %s/%s plane, no contours", len(res.Samples), cfg.XVar, cfg.YVar)
		return res, nil
	}

	grid, err := NewGrid(res.Samples, cfg)
	if err != nil {
		return nil, fmt.Errorf("build grid: %w", err)
	}
	res.Grid = grid

	for _, metric := range cfg.Metrics() {
		surf, err := Interpolate(res.Samples, metric, grid, cfg)
		if errors.Is(err, ErrDegenerate) {
			monitoring.Warnf("contour: %v", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		res.Surfaces[metric] = surf
	}

	res.Contours[NameExpected] = ExtractLevel(NameExpected, res.Surfaces[cfg.Expected], level, cfg.Allowed)
	if cfg.Observed != "" {
		res.Contours[NameObserved] = ExtractLevel(NameObserved, res.Surfaces[cfg.Observed], level, cfg.Allowed)
	}
	if cfg.Down1 != "" {
		res.Contours[NameBand1s] = ExtractBand(NameBand1s, res.Surfaces[cfg.Down1], res.Surfaces[cfg.Up1], level, cfg.Allowed)
	}
	if cfg.Down2 != "" {
		res.Contours[NameBand2s] = ExtractBand(NameBand2s, res.Surfaces[cfg.Down2], res.Surfaces[cfg.Up2], level, cfg.Allowed)
	}
	return res, nil
}

// fillEmpty registers an empty contour for every name the configuration
// asks for, so callers can rely on the keys being present.
func (r *Result) fillEmpty(cfg Config) {
	names := []string{NameExpected}
	if cfg.Observed != "" {
		names = append(names, NameObserved)
	}
	if cfg.Down1 != "" {
		names = append(names, NameBand1s)
	}
	if cfg.Down2 != "" {
		names = append(names, NameBand2s)
	}
	for _, n := range names {
		r.Contours[n] = &Contour{Name: n, Level: r.Level}
	}
}
