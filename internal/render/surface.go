package render

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/banshee-data/exclusion.report/internal/contour"
	"github.com/banshee-data/exclusion.report/internal/fsutil"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// AssetsHost serves the echarts JavaScript for generated pages.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// viridis runs from low to high values.
var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// maxSurfacePoints caps the nodes per chart; larger grids are strided.
const maxSurfacePoints = 12000

// SurfacePage builds one colored scatter chart per interpolated surface,
// with the vertices of every contour overlaid, for checking a fit by eye.
func SurfacePage(region string, res *contour.Result) (*components.Page, error) {
	if res == nil || res.Grid == nil {
		return nil, fmt.Errorf("%s: no surfaces to draw", region)
	}

	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)

	metrics := make([]string, 0, len(res.Surfaces))
	for m := range res.Surfaces {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	for _, m := range metrics {
		page.AddCharts(surfaceChart(region, res, res.Surfaces[m]))
	}
	return page, nil
}

func surfaceChart(region string, res *contour.Result, s *contour.Surface) *charts.Scatter {
	g := s.Grid
	stride := 1
	for (g.NX/stride)*(g.NY/stride) > maxSurfacePoints {
		stride++
	}

	data := make([]opts.ScatterData, 0, g.Len()/(stride*stride)+1)
	for j := 0; j < g.NY; j += stride {
		for i := 0; i < g.NX; i += stride {
			v := s.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			data = append(data, opts.ScatterData{Value: []interface{}{g.X(i), g.Y(j), v}})
		}
	}
	lo, hi := s.Range()
	if math.IsInf(lo, 0) {
		lo, hi = 0, 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: region, Width: "900px", Height: "800px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s %s", region, s.Metric),
			Subtitle: fmt.Sprintf("scale=%s level=%g points=%d grid=%dx%d", s.Scale, res.Level, s.Points, g.NX, g.NY),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: g.XMin, Max: g.XMax, Name: "x", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: g.YMin, Max: g.YMax, Name: "y", NameLocation: "middle", NameGap: 35}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	scatter.AddSeries(s.Metric, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	names := make([]string, 0, len(res.Contours))
	for name := range res.Contours {
		names = append(names, name)
	}
	sort.Strings(names)
	palette := contourColors(len(names))
	for k, name := range names {
		var verts []opts.ScatterData
		for _, r := range res.Contours[name].Rings() {
			for _, p := range r {
				verts = append(verts, opts.ScatterData{Value: []interface{}{p.X, p.Y}})
			}
		}
		if len(verts) == 0 {
			continue
		}
		scatter.AddSeries(name, verts,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: palette[k]}),
		)
	}
	return scatter
}

// WriteSurfacePage renders the surface page to w.
func WriteSurfacePage(w io.Writer, region string, res *contour.Result) error {
	page, err := SurfacePage(region, res)
	if err != nil {
		return err
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render %s surfaces: %w", region, err)
	}
	return nil
}

// SaveSurfacePage renders the surface page to path.
func SaveSurfacePage(fs fsutil.FileSystem, path, region string, res *contour.Result) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteSurfacePage(f, region, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
