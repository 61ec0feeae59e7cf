package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/banshee-data/exclusion.report/internal/contour"
	"github.com/banshee-data/exclusion.report/internal/fsutil"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	bandColor     = color.RGBA{R: 255, G: 204, B: 0, A: 255}
	expectedColor = color.RGBA{R: 0, G: 0, B: 128, A: 255}
	observedColor = color.RGBA{R: 128, G: 0, B: 0, A: 255}
	forbidColor   = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	pointColor    = color.RGBA{R: 90, G: 90, B: 90, A: 160}
)

// ExclusionPlot draws the ±1σ band as filled polygons, the expected curve
// dashed and the observed curve solid, with the forbidden-region line and
// the usual labels. Contour segments that only close a region along the
// edge of the interpolation grid are not drawn as limit lines.
func ExclusionPlot(res *contour.Result, o PlotOptions) (*plot.Plot, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = o.ProcessLabel
	p.X.Label.Text = o.XLabel
	p.Y.Label.Text = o.YLabel
	p.Add(plotter.NewGrid())

	var grid *contour.Grid
	if res != nil {
		grid = res.Grid
	}

	band, err := bandPolygon(res.Contour(contour.NameBand1s))
	if err != nil {
		return nil, err
	}
	if band != nil {
		p.Add(band)
	}

	expLines, err := limitLines(res.Contour(contour.NameExpected), grid)
	if err != nil {
		return nil, err
	}
	for _, l := range expLines {
		l.Color = expectedColor
		l.Width = vg.Points(2)
		l.Dashes = []vg.Length{vg.Points(8), vg.Points(5)}
		p.Add(l)
	}

	obsLines, err := limitLines(res.Contour(contour.NameObserved), grid)
	if err != nil {
		return nil, err
	}
	for _, l := range obsLines {
		l.Color = observedColor
		l.Width = vg.Points(3)
		p.Add(l)
	}

	if o.ShowPoints && res != nil && len(res.Samples) > 0 {
		pts := make(plotter.XYs, len(res.Samples))
		for i, s := range res.Samples {
			pts[i] = plotter.XY{X: s.X, Y: s.Y}
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("sample points: %w", err)
		}
		sc.GlyphStyle.Color = pointColor
		sc.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(sc)
	}

	if o.Forbidden != nil {
		if err := addForbidden(p, *o.Forbidden); err != nil {
			return nil, err
		}
	}

	if err := addLegend(p, o, band, expLines, obsLines); err != nil {
		return nil, err
	}

	// Add widens the axes to the data; pin them afterwards.
	p.X.Min, p.X.Max = o.XMin, o.XMax
	p.Y.Min, p.Y.Max = o.YMin, o.YMax
	return p, nil
}

// bandPolygon fills every polygon of the band, holes included.
func bandPolygon(c *contour.Contour) (*plotter.Polygon, error) {
	var rings []plotter.XYer
	for _, r := range c.Rings() {
		rings = append(rings, ringXYs(r))
	}
	if len(rings) == 0 {
		return nil, nil
	}
	poly, err := plotter.NewPolygon(rings...)
	if err != nil {
		return nil, fmt.Errorf("band %s: %w", c.Name, err)
	}
	poly.Color = bandColor
	poly.LineStyle.Width = 0
	return poly, nil
}

// limitLines turns the rings of a contour into open polylines, dropping
// segments that run along the grid frame.
func limitLines(c *contour.Contour, grid *contour.Grid) ([]*plotter.Line, error) {
	var lines []*plotter.Line
	for _, r := range c.Rings() {
		for _, run := range splitAtFrame(r, grid) {
			l, err := plotter.NewLine(run)
			if err != nil {
				return nil, fmt.Errorf("contour %s: %w", c.Name, err)
			}
			lines = append(lines, l)
		}
	}
	return lines, nil
}

// splitAtFrame returns the runs of a closed ring between frame segments.
// A ring that never touches the frame comes back whole.
func splitAtFrame(r contour.Ring, grid *contour.Grid) []plotter.XYs {
	n := len(r) - 1
	if n < 2 {
		return nil
	}
	onFrame := func(k int) bool {
		return grid != nil && frameSegment(r[k], r[k+1], grid)
	}

	start := -1
	for k := range n {
		if onFrame(k) {
			start = k + 1
			break
		}
	}
	if start < 0 {
		return []plotter.XYs{ringXYs(r)}
	}

	var runs []plotter.XYs
	var cur plotter.XYs
	for step := range n {
		k := (start + step) % n
		if onFrame(k) {
			if len(cur) > 1 {
				runs = append(runs, cur)
			}
			cur = nil
			continue
		}
		if len(cur) == 0 {
			cur = append(cur, plotter.XY{X: r[k].X, Y: r[k].Y})
		}
		cur = append(cur, plotter.XY{X: r[k+1].X, Y: r[k+1].Y})
	}
	if len(cur) > 1 {
		runs = append(runs, cur)
	}
	return runs
}

func frameSegment(a, b contour.Point, g *contour.Grid) bool {
	return (a.X == g.XMin && b.X == g.XMin) ||
		(a.X == g.XMax && b.X == g.XMax) ||
		(a.Y == g.YMin && b.Y == g.YMin) ||
		(a.Y == g.YMax && b.Y == g.YMax)
}

func ringXYs(r contour.Ring) plotter.XYs {
	xys := make(plotter.XYs, len(r))
	for i, p := range r {
		xys[i] = plotter.XY{X: p.X, Y: p.Y}
	}
	return xys
}

func addForbidden(p *plot.Plot, f Line) error {
	l, err := plotter.NewLine(plotter.XYs{{X: f.X1, Y: f.Y1}, {X: f.X2, Y: f.Y2}})
	if err != nil {
		return fmt.Errorf("forbidden line: %w", err)
	}
	l.Color = forbidColor
	l.Width = vg.Points(1.5)
	l.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
	p.Add(l)

	if f.Label == "" {
		return nil
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: f.LabelX, Y: f.LabelY}},
		Labels: []string{f.Label},
	})
	if err != nil {
		return fmt.Errorf("forbidden label: %w", err)
	}
	labels.TextStyle[0].Color = forbidColor
	labels.TextStyle[0].Rotation = f.Angle * math.Pi / 180
	p.Add(labels)
	return nil
}

// addLegend places the legend and the text block (experiment status,
// luminosity, confidence level) in the top left of the axes.
func addLegend(p *plot.Plot, o PlotOptions, band *plotter.Polygon, exp, obs []*plotter.Line) error {
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.XOffs = vg.Points(12)
	p.Legend.YOffs = -vg.Points(90)

	var expThumbs []plot.Thumbnailer
	if band != nil {
		expThumbs = append(expThumbs, band)
	}
	if len(exp) > 0 {
		expThumbs = append(expThumbs, exp[0])
	}
	if len(obs) > 0 {
		p.Legend.Add(o.ObservedTitle, obs[0])
	}
	if len(expThumbs) > 0 {
		p.Legend.Add(o.ExpectedTitle, expThumbs...)
	}

	x := o.XMin + o.LabelsLeft*(o.XMax-o.XMin)
	dy := 0.045 * (o.YMax - o.YMin)
	top := o.YMin + o.LabelsTop*(o.YMax-o.YMin)

	text := []string{o.StatusText(), o.LumiText(), "All limits at 95% CL"}
	xys := make([]plotter.XY, 0, len(text))
	lines := make([]string, 0, len(text))
	for i, t := range text {
		if t == "" {
			continue
		}
		xys = append(xys, plotter.XY{X: x, Y: top - float64(i)*dy})
		lines = append(lines, t)
	}
	if len(lines) == 0 {
		return nil
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: lines})
	if err != nil {
		return fmt.Errorf("labels: %w", err)
	}
	if o.StatusText() != "" {
		labels.TextStyle[0].Font.Size = vg.Points(16)
	}
	p.Add(labels)
	return nil
}

// WritePlot encodes p in the configured format and size.
func WritePlot(p *plot.Plot, w io.Writer, o PlotOptions) error {
	width := vg.Length(o.Width) * vg.Inch / 96
	height := vg.Length(o.Height) * vg.Inch / 96
	wt, err := p.WriterTo(width, height, o.Format)
	if err != nil {
		return fmt.Errorf("encode %s: %w", o.Format, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", o.Format, err)
	}
	return nil
}

// SaveExclusionPlot draws res and writes it to path.
func SaveExclusionPlot(fs fsutil.FileSystem, path string, res *contour.Result, o PlotOptions) error {
	p, err := ExclusionPlot(res, o)
	if err != nil {
		return err
	}
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WritePlot(p, f, o); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
