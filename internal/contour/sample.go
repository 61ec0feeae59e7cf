package contour

import (
	"github.com/banshee-data/exclusion.report/internal/monitoring"
)

// Record is one harvested mass point: named scalars such as CLsexp, clsu1s
// and the model parameters msb, mn2, mn1.
type Record map[string]float64

// Sample is a deduplicated point in the (x, y) plane with its metrics.
type Sample struct {
	X       float64
	Y       float64
	Metrics map[string]float64
}

// Value returns the named metric, reporting false when it is missing or
// not finite.
func (s Sample) Value(metric string) (float64, bool) {
	v, ok := s.Metrics[metric]
	if !ok || !isFinite(v) {
		return 0, false
	}
	return v, true
}

type pointKey struct{ x, y float64 }

// NewSamples converts records to samples keyed by (xVar, yVar). Records
// without finite coordinates are skipped with a warning. When several
// records share a coordinate pair the last one wins; the sample keeps the
// position of the first occurrence so the output order is deterministic.
func NewSamples(records []Record, xVar, yVar string) []Sample {
	samples := make([]Sample, 0, len(records))
	index := make(map[pointKey]int, len(records))

	for i, rec := range records {
		x, okX := rec[xVar]
		y, okY := rec[yVar]
		if !okX || !okY || !isFinite(x) || !isFinite(y) {
			monitoring.Warnf("contour: record %d has no finite %s/%s, skipping", i, xVar, yVar)
			continue
		}

		metrics := make(map[string]float64, len(rec))
		for k, v := range rec {
			metrics[k] = v
		}
		s := Sample{X: x, Y: y, Metrics: metrics}

		key := pointKey{x, y}
		if at, dup := index[key]; dup {
			monitoring.Warnf("contour: duplicate point %s=%g %s=%g, keeping record %d", xVar, x, yVar, y, i)
			samples[at] = s
			continue
		}
		index[key] = len(samples)
		samples = append(samples, s)
	}
	return samples
}
