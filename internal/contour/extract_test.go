package contour

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expectedOnly extracts just the expected curve, no observed curve or bands.
func expectedOnly(res int) Config {
	cfg := DefaultConfig()
	cfg.Observed = ""
	cfg.Down1, cfg.Up1 = "", ""
	cfg.XResolution, cfg.YResolution = res, res
	return cfg
}

// latticeRecords samples fields on a regular (msb, mn2) lattice.
func latticeRecords(x0, x1, y0, y1, step float64, fields map[string]func(x, y float64) float64) []Record {
	var out []Record
	for x := x0; x <= x1; x += step {
		for y := y0; y <= y1; y += step {
			rec := Record{"msb": x, "mn2": y}
			for name, f := range fields {
				rec[name] = f(x, y)
			}
			out = append(out, rec)
		}
	}
	return out
}

// requireSimpleRing fails unless r is closed and no two non-adjacent edges
// cross.
func requireSimpleRing(t *testing.T, r Ring) {
	t.Helper()
	require.True(t, r.Closed(), "ring is not closed")

	orient := func(a, b, c Point) float64 {
		return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	}
	n := len(r) - 1
	for i := range n {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			a, b, c, d := r[i], r[i+1], r[j], r[j+1]
			d1, d2 := orient(a, b, c), orient(a, b, d)
			d3, d4 := orient(c, d, a), orient(c, d, b)
			if d1*d2 < 0 && d3*d4 < 0 {
				t.Fatalf("edges %d and %d cross: %v-%v and %v-%v", i, j, a, b, c, d)
			}
		}
	}
	seen := make(map[Point]int, n)
	for k, p := range r[:n] {
		if prev, dup := seen[p]; dup {
			t.Fatalf("vertex %v repeated at %d and %d", p, prev, k)
		}
		seen[p] = k
	}
}

func TestExtract_ThreePoints(t *testing.T) {
	records := []Record{
		{"msb": 300, "mn2": 300, "CLsexp": 0.8},
		{"msb": 300, "mn2": 1700, "CLsexp": 0.01},
		{"msb": 1700, "mn2": 1700, "CLsexp": 0.9},
	}
	res, err := Extract(records, expectedOnly(50))
	require.NoError(t, err)
	require.False(t, res.Empty())

	exp := res.Contour(NameExpected)
	require.Len(t, exp.Polygons, 1)
	poly := exp.Polygons[0]
	assert.Empty(t, poly.Holes)
	requireSimpleRing(t, poly.Outer)
	assert.Greater(t, poly.Outer.Area(), 0.0, "outer ring runs counter-clockwise")

	assert.True(t, poly.Outer.Contains(Point{310, 1690}))
	assert.False(t, poly.Outer.Contains(Point{1690, 310}))
	assert.False(t, poly.Outer.Contains(Point{310, 310}))
	assert.False(t, poly.Outer.Contains(Point{1690, 1690}))

	lo, hi := poly.Outer.Bounds()
	assert.GreaterOrEqual(t, lo.X, 300.0)
	assert.LessOrEqual(t, hi.Y, 1700.0)
	assert.Less(t, hi.X, 1000.0)
	assert.Greater(t, lo.Y, 1000.0)

	_, hasObserved := res.Contours[NameObserved]
	assert.False(t, hasObserved)
}

func TestExtract_TopologyStableAcrossResolutions(t *testing.T) {
	centres := []Point{{200, 200}, {600, 600}}
	cls := func(x, y float64) float64 {
		d := math.Min(math.Hypot(x-200, y-200), math.Hypot(x-600, y-600))
		return 0.05 * (d / 150) * (d / 150)
	}
	records := latticeRecords(0, 800, 0, 800, 100, map[string]func(x, y float64) float64{"CLsexp": cls})

	for _, n := range []int{20, 35, 60, 100} {
		res, err := Extract(records, expectedOnly(n))
		require.NoError(t, err)

		exp := res.Contour(NameExpected)
		require.Len(t, exp.Polygons, 2, "resolution %d", n)
		for _, c := range centres {
			owners := 0
			for _, p := range exp.Polygons {
				requireSimpleRing(t, p.Outer)
				assert.Empty(t, p.Holes)
				if p.Outer.Contains(c) {
					owners++
					assert.InEpsilon(t, math.Pi*150*150, p.Area(), 0.25, "resolution %d", n)
				}
			}
			assert.Equal(t, 1, owners, "centre %v at resolution %d", c, n)
		}
	}
}

func TestExtract_Idempotent(t *testing.T) {
	records := latticeRecords(300, 1700, 200, 1600, 200, map[string]func(x, y float64) float64{
		"CLsexp": func(x, y float64) float64 { return 0.1 * (x + 0.5*y) / 1000 },
		"CLs":    func(x, y float64) float64 { return 0.1 * (x + 0.4*y) / 1000 },
		"clsd1s": func(x, y float64) float64 { return 0.08 * (x + 0.5*y) / 1000 },
		"clsu1s": func(x, y float64) float64 { return 0.12 * (x + 0.5*y) / 1000 },
	})
	cfg := DefaultConfig()
	cfg.XResolution, cfg.YResolution = 40, 40

	first, err := Extract(records, cfg)
	require.NoError(t, err)
	second, err := Extract(records, cfg)
	require.NoError(t, err)

	require.False(t, first.Empty())
	if diff := cmp.Diff(first.Curves(), second.Curves()); diff != "" {
		t.Errorf("second extraction differs (-first +second):\n%s", diff)
	}
}

func TestExtract_AllowedRegion(t *testing.T) {
	records := latticeRecords(0, 800, 0, 800, 100, map[string]func(x, y float64) float64{
		"CLsexp": func(x, _ float64) float64 { return 0.05 * x / 400 },
	})
	cfg := expectedOnly(50)
	allowed, err := ParseRegion("mn2 <= msb", "msb", "mn2")
	require.NoError(t, err)
	cfg.Allowed = allowed

	res, err := Extract(records, cfg)
	require.NoError(t, err)

	exp := res.Contour(NameExpected)
	require.Len(t, exp.Polygons, 1)
	outer := exp.Polygons[0].Outer
	requireSimpleRing(t, outer)
	for _, p := range outer {
		assert.LessOrEqual(t, p.Y, p.X, "vertex %v lies in the forbidden region", p)
	}
	assert.True(t, outer.Contains(Point{300, 100}))
	assert.False(t, outer.Contains(Point{100, 300}))
	assert.False(t, outer.Contains(Point{600, 100}))
	assert.InEpsilon(t, 400*400/2, exp.Polygons[0].Area(), 0.1)

	// Interpolated values stay behind the mask.
	surf := res.Surfaces["CLsexp"]
	require.NotNil(t, surf)
	i, j, ok := res.Grid.Snap(0, 800)
	require.True(t, ok)
	assert.True(t, math.IsNaN(surf.At(i, j)))
}

func TestExtract_BandIsRegionBetweenCurves(t *testing.T) {
	records := latticeRecords(0, 2000, 0, 1000, 200, map[string]func(x, y float64) float64{
		"CLsexp": func(x, _ float64) float64 { return 0.05 * x / 1000 },
		"clsd1s": func(x, _ float64) float64 { return 0.05 * x / 800 },
		"clsu1s": func(x, _ float64) float64 { return 0.05 * x / 1200 },
	})
	cfg := expectedOnly(60)
	cfg.Down1, cfg.Up1 = "clsd1s", "clsu1s"

	res, err := Extract(records, cfg)
	require.NoError(t, err)

	band := res.Contour(NameBand1s)
	require.Len(t, band.Polygons, 1)
	outer := band.Polygons[0].Outer
	requireSimpleRing(t, outer)
	assert.True(t, outer.Contains(Point{1000, 500}))
	assert.False(t, outer.Contains(Point{500, 500}), "band must not be the union of the curves")
	assert.False(t, outer.Contains(Point{1500, 500}))
	assert.InEpsilon(t, 400*1000, band.Polygons[0].Area(), 0.05)

	exp := res.Contour(NameExpected)
	require.Len(t, exp.Polygons, 1)
	assert.True(t, exp.Polygons[0].Outer.Contains(Point{500, 500}))
	assert.False(t, exp.Polygons[0].Outer.Contains(Point{1100, 500}))
}

func TestExtractBand_OneSidedEdge(t *testing.T) {
	records := latticeRecords(0, 2000, 0, 1000, 200, map[string]func(x, y float64) float64{
		"lo": func(x, _ float64) float64 { return 0.05 * x / 800 },
		"hi": func(_, _ float64) float64 { return 0.5 },
	})
	samples := NewSamples(records, "msb", "mn2")
	cfg := DefaultConfig()
	cfg.XResolution, cfg.YResolution = 30, 30
	g, err := NewGrid(samples, cfg)
	require.NoError(t, err)

	lo, err := Interpolate(samples, "lo", g, cfg)
	require.NoError(t, err)
	hi, err := Interpolate(samples, "hi", g, cfg)
	require.NoError(t, err)

	band := ExtractBand(NameBand1s, lo, hi, 0.05, nil)
	require.Len(t, band.Polygons, 1)
	assert.True(t, band.Polygons[0].Outer.Contains(Point{400, 500}))
	assert.False(t, band.Polygons[0].Outer.Contains(Point{1200, 500}))

	assert.True(t, ExtractBand(NameBand1s, hi, hi, 0.05, nil).Empty())
	assert.True(t, ExtractBand(NameBand1s, nil, hi, 0.05, nil).Empty())
}

func TestExtract_OneSidedSamplesGiveEmptyContours(t *testing.T) {
	for _, value := range []float64{0.5, 0.01} {
		records := latticeRecords(300, 1700, 300, 1700, 700, map[string]func(x, y float64) float64{
			"CLsexp": func(_, _ float64) float64 { return value },
		})
		res, err := Extract(records, expectedOnly(20))
		require.NoError(t, err)
		assert.True(t, res.Empty(), "CLsexp = %v", value)
		assert.NotNil(t, res.Contours[NameExpected])
	}
}

func TestExtract_Degenerate(t *testing.T) {
	muteLogs(t)

	for name, records := range map[string][]Record{
		"none": nil,
		"two":  {{"msb": 300, "mn2": 300, "CLsexp": 0.01}, {"msb": 900, "mn2": 300, "CLsexp": 0.5}},
		"collinear": {
			{"msb": 300, "mn2": 300, "CLsexp": 0.01},
			{"msb": 600, "mn2": 600, "CLsexp": 0.5},
			{"msb": 900, "mn2": 900, "CLsexp": 0.9},
		},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := Extract(records, DefaultConfig())
			require.NoError(t, err)
			assert.True(t, res.Empty())
			assert.Nil(t, res.Grid)
			for _, n := range []string{NameExpected, NameObserved, NameBand1s} {
				assert.Contains(t, res.Contours, n)
			}
			assert.Empty(t, res.Curves()[NameExpected])
		})
	}
}

func TestExtract_MissingMetricLeavesThatContourEmpty(t *testing.T) {
	muteLogs(t)
	records := []Record{
		{"msb": 300, "mn2": 300, "CLsexp": 0.8},
		{"msb": 300, "mn2": 1700, "CLsexp": 0.01},
		{"msb": 1700, "mn2": 1700, "CLsexp": 0.9},
	}
	cfg := DefaultConfig()
	cfg.XResolution, cfg.YResolution = 30, 30

	res, err := Extract(records, cfg)
	require.NoError(t, err)
	assert.False(t, res.Contour(NameExpected).Empty())
	assert.True(t, res.Contour(NameObserved).Empty())
	assert.True(t, res.Contour(NameBand1s).Empty())
	assert.NotContains(t, res.Surfaces, "CLs")
}

func TestExtract_DuplicatePointsLastWins(t *testing.T) {
	muteLogs(t)
	records := []Record{
		{"msb": 300, "mn2": 300, "CLsexp": 0.8},
		{"msb": 300, "mn2": 1700, "CLsexp": 0.9},
		{"msb": 1700, "mn2": 1700, "CLsexp": 0.9},
		{"msb": 300, "mn2": 1700, "CLsexp": 0.01},
	}
	res, err := Extract(records, expectedOnly(30))
	require.NoError(t, err)
	require.Len(t, res.Samples, 3)
	v, _ := res.Samples[1].Value("CLsexp")
	assert.Equal(t, 0.01, v)
	assert.False(t, res.Empty())
}

func TestExtract_ConfigErrors(t *testing.T) {
	records := []Record{
		{"msb": 300, "mn2": 300, "CLsexp": 0.8},
		{"msb": 300, "mn2": 1700, "CLsexp": 0.01},
		{"msb": 1700, "mn2": 1700, "CLsexp": 0.9},
	}

	cfg := expectedOnly(20)
	cfg.XMax = Float(math.Inf(1))
	_, err := Extract(records, cfg)
	assert.True(t, errors.Is(err, ErrConfig), "infinite bound: %v", err)

	cfg = expectedOnly(20)
	cfg.XMin = Float(5000)
	res, err := Extract(records, cfg)
	assert.True(t, errors.Is(err, ErrConfig), "minimum beyond the data: %v", err)
	assert.Nil(t, res)

	cfg = expectedOnly(20)
	cfg.Kernel = "bessel"
	_, err = Extract(records, cfg)
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestResult_NilSafe(t *testing.T) {
	var r *Result
	assert.True(t, r.Empty())
	assert.True(t, r.Contour(NameExpected).Empty())
	assert.Equal(t, NameExpected, r.Contour(NameExpected).Name)
}
