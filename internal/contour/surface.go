package contour

import (
	"fmt"
	"math"

	"github.com/banshee-data/exclusion.report/internal/monitoring"
)

// Surface is one metric interpolated onto a grid. Values are on the
// configured scale, row-major, and NaN at nodes outside the allowed region.
type Surface struct {
	Metric string
	Grid   *Grid
	Values []float64
	Scale  Scale

	// Points is the number of samples that carried the metric.
	Points int

	sampleValues []float64
	fit          *rbf
}

// Interpolate fits the named metric of the samples and evaluates it at
// every allowed grid node. Samples missing the metric are skipped with a
// warning. Fewer than three usable samples, or collinear ones, return
// ErrDegenerate.
func Interpolate(samples []Sample, metric string, grid *Grid, cfg Config) (*Surface, error) {
	var us, vs, values []float64
	for _, s := range samples {
		raw, ok := s.Value(metric)
		if !ok {
			monitoring.Warnf("contour: point (%g, %g) has no usable %q, skipping", s.X, s.Y, metric)
			continue
		}
		u, v := grid.Unit(s.X, s.Y)
		if !isFinite(u) || !isFinite(v) {
			monitoring.Warnf("contour: point (%g, %g) cannot be placed on the grid, skipping", s.X, s.Y)
			continue
		}
		us = append(us, u)
		vs = append(vs, v)
		values = append(values, cfg.Scale.Transform(raw, cfg.SigmaMax))
	}
	if len(values) < 3 || !spansPlane(us, vs) {
		return nil, fmt.Errorf("%w: %d usable points for %q", ErrDegenerate, len(values), metric)
	}

	fit, err := fitRBF(us, vs, values, cfg.Kernel, cfg.Epsilon, cfg.Smoothing)
	if err != nil {
		return nil, fmt.Errorf("interpolate %q: %w", metric, err)
	}

	surf := &Surface{
		Metric:       metric,
		Grid:         grid,
		Values:       make([]float64, grid.Len()),
		Scale:        cfg.Scale,
		Points:       len(values),
		sampleValues: values,
		fit:          fit,
	}
	for j := range grid.NY {
		for i := range grid.NX {
			idx := grid.Index(i, j)
			if !cfg.Allowed.Contains(grid.X(i), grid.Y(j)) {
				surf.Values[idx] = math.NaN()
				continue
			}
			u, v := grid.nodeUnit(i, j)
			surf.Values[idx] = fit.at(u, v)
		}
	}
	return surf, nil
}

// At returns the value at node (i, j).
func (s *Surface) At(i, j int) float64 {
	return s.Values[s.Grid.Index(i, j)]
}

// Eval evaluates the interpolant at an arbitrary data point, ignoring any
// region mask.
func (s *Surface) Eval(x, y float64) float64 {
	u, v := s.Grid.Unit(x, y)
	return s.fit.at(u, v)
}

func (s *Surface) evalUnit(u, v float64) float64 {
	return s.fit.at(u, v)
}

// Range returns the smallest and largest finite node values.
func (s *Surface) Range() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range s.Values {
		if math.IsNaN(v) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return lo, hi
}

// oneSided reports whether every sample falls on the same side of the
// level, and if so whether that side is excluded.
func (s *Surface) oneSided(level float64) (sided, excluded bool) {
	orient := s.Scale.orientation()
	in, out := 0, 0
	for _, v := range s.sampleValues {
		if orient*(v-level) >= 0 {
			in++
		} else {
			out++
		}
	}
	switch {
	case out == 0:
		return true, true
	case in == 0:
		return true, false
	}
	return false, false
}
