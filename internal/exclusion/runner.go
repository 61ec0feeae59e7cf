// Package exclusion runs the whole pipeline: harvest fit results per
// signal region, optionally combine the regions, extract the exclusion
// contours and write plots, inspection pages and the run record.
package exclusion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/exclusion.report/internal/contour"
	"github.com/banshee-data/exclusion.report/internal/fsutil"
	"github.com/banshee-data/exclusion.report/internal/harvest"
	"github.com/banshee-data/exclusion.report/internal/monitoring"
	"github.com/banshee-data/exclusion.report/internal/multiplex"
	"github.com/banshee-data/exclusion.report/internal/render"
	"github.com/banshee-data/exclusion.report/internal/security"
	"github.com/banshee-data/exclusion.report/internal/store"
	"github.com/banshee-data/exclusion.report/internal/timeutil"
	"github.com/banshee-data/exclusion.report/internal/version"
	"golang.org/x/sync/errgroup"
)

// CombinedRegion names the region built by multiplexing all others.
const CombinedRegion = "combined"

// Options is the resolved configuration of one run.
type Options struct {
	Harvest harvest.Config
	Contour contour.Config
	Plot    render.PlotOptions

	// Combine adds CombinedRegion, the best region per model point by
	// CombineFigure, when more than one region is harvested.
	Combine       bool
	CombineFigure string

	OutputDir    string
	SurfacePages bool
	// Workers bounds how many regions are extracted at once.
	Workers int

	// ConfigJSON is stored with the run when a store is attached.
	ConfigJSON json.RawMessage
}

// Validate checks the options before any file is touched.
func (o Options) Validate() error {
	if err := o.Harvest.Validate(); err != nil {
		return fmt.Errorf("harvest: %w", err)
	}
	if err := o.Contour.Validate(); err != nil {
		return err
	}
	if err := o.Plot.Validate(); err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	if o.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if o.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", o.Workers)
	}
	for _, id := range o.Harvest.Regions {
		name := harvest.RegionName(id)
		if security.SanitizeFilename(name) != name {
			return fmt.Errorf("region %q cannot be used in a file name", id)
		}
	}
	return nil
}

// RegionReport is what the run produced for one region.
type RegionReport struct {
	Region  string
	Records int
	Samples int
	// Skipped is set when the region had no records to interpolate.
	Skipped bool
	// Empty is set when no contour has any polygon; nothing is plotted.
	Empty bool
	// Areas is the excluded area of each contour, in axis units.
	Areas map[string]float64

	HarvestPath string
	PlotPath    string
	PagePath    string

	// Elapsed is the wall time spent on the region after harvesting.
	Elapsed time.Duration
}

// Report summarizes a run. Regions are in harvest order, with
// CombinedRegion last.
type Report struct {
	RunID   string
	Regions []RegionReport
}

// Runner executes runs against a file system and an optional store.
type Runner struct {
	fs        fsutil.FileSystem
	opts      Options
	store     *store.Store
	harvester *harvest.Harvester
	clock     timeutil.Clock
}

// NewRunner validates opts. st may be nil, in which case nothing is
// persisted beyond the output files.
func NewRunner(fs fsutil.FileSystem, opts Options, st *store.Store) (*Runner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	h, err := harvest.New(fs, opts.Harvest)
	if err != nil {
		return nil, err
	}
	return &Runner{fs: fs, opts: opts, store: st, harvester: h, clock: timeutil.RealClock{}}, nil
}

// SetClock replaces the time source used for region timings.
func (r *Runner) SetClock(c timeutil.Clock) {
	r.clock = c
}

// Run harvests, extracts and renders every region. Regions are extracted
// in parallel up to Workers; the first failing region cancels the rest.
// Regions without samples and regions whose contours are all empty are
// reported, not treated as errors.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.fs.MkdirAll(r.opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	regions, err := r.harvester.HarvestAll()
	if err != nil {
		return nil, err
	}
	if r.opts.Combine && len(regions) > 1 {
		combined, err := r.combine(regions)
		if err != nil {
			return nil, err
		}
		regions = append(regions, combined)
	}

	report := &Report{Regions: make([]RegionReport, len(regions))}
	if r.store != nil {
		run := &store.Run{Version: version.String(), ConfigJSON: r.opts.ConfigJSON}
		if err := r.store.InsertRun(ctx, run); err != nil {
			return nil, err
		}
		report.RunID = run.ID
		monitoring.Logf("run %s: %d regions", run.ID, len(regions))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, reg := range regions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rep, err := r.region(gctx, report.RunID, reg)
			if err != nil {
				return fmt.Errorf("%s: %w", reg.Name, err)
			}
			report.Regions[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

func (r *Runner) combine(regions []harvest.Region) (harvest.Region, error) {
	inputs := make([]multiplex.Input, len(regions))
	for i, reg := range regions {
		inputs[i] = multiplex.Input{Name: reg.Name, Records: reg.Records}
	}
	res, err := multiplex.Combine(inputs, r.opts.Harvest.Params, r.opts.CombineFigure)
	if err != nil {
		return harvest.Region{}, err
	}

	wins := res.Wins()
	names := make([]string, 0, len(wins))
	for name := range wins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		monitoring.Regionf(CombinedRegion, "%s best at %d points", name, wins[name])
	}
	return harvest.Region{Name: CombinedRegion, Records: res.Records}, nil
}

// region runs extraction and output for one region.
func (r *Runner) region(ctx context.Context, runID string, reg harvest.Region) (rep RegionReport, err error) {
	start := r.clock.Now()
	rep = RegionReport{Region: reg.Name, Records: len(reg.Records)}
	defer func() { rep.Elapsed = r.clock.Since(start) }()

	path, err := harvest.WriteJSON(r.fs, r.opts.OutputDir, reg)
	if err != nil {
		return rep, err
	}
	rep.HarvestPath = path

	if len(reg.Records) == 0 {
		monitoring.Regionf(reg.Name, "warning: no results, skipping")
		rep.Skipped = true
		rep.Empty = true
		return rep, nil
	}

	res, err := contour.Extract(reg.Records, r.opts.Contour)
	if err != nil {
		return rep, err
	}
	rep.Samples = len(res.Samples)
	rep.Empty = res.Empty()
	rep.Areas = make(map[string]float64, len(res.Contours))
	for name, c := range res.Contours {
		area := 0.0
		for _, p := range c.Polygons {
			area += p.Area()
		}
		rep.Areas[name] = area
	}

	if rep.Empty {
		monitoring.Regionf(reg.Name, "warning: no exclusion contours at level %g, not plotting", res.Level)
	} else {
		plotPath, err := security.OutputPath(r.opts.OutputDir, "exclusion."+reg.Name+"."+r.opts.Plot.Format)
		if err != nil {
			return rep, err
		}
		if err := render.SaveExclusionPlot(r.fs, plotPath, res, r.opts.Plot); err != nil {
			return rep, err
		}
		rep.PlotPath = plotPath
		monitoring.Regionf(reg.Name, "wrote %s", plotPath)
	}

	if r.opts.SurfacePages && res.Grid != nil {
		pagePath, err := security.OutputPath(r.opts.OutputDir, "surfaces."+reg.Name+".html")
		if err != nil {
			return rep, err
		}
		if err := render.SaveSurfacePage(r.fs, pagePath, reg.Name, res); err != nil {
			return rep, err
		}
		rep.PagePath = pagePath
	}

	if r.store != nil {
		if err := r.persist(ctx, runID, reg.Name, res); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (r *Runner) persist(ctx context.Context, runID, region string, res *contour.Result) error {
	if err := r.store.InsertSamples(ctx, runID, region, res.Samples); err != nil {
		return err
	}
	names := make([]string, 0, len(res.Contours))
	for name := range res.Contours {
		names = append(names, name)
	}
	sort.Strings(names)
	var errs []error
	for _, name := range names {
		if err := r.store.InsertContour(ctx, runID, region, res.Contours[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Summary logs one line per region of a report.
func (rep *Report) Summary() {
	for _, reg := range rep.Regions {
		switch {
		case reg.Skipped:
			monitoring.Regionf(reg.Region, "skipped (no results)")
		case reg.Empty:
			monitoring.Regionf(reg.Region, "%d samples, no exclusion", reg.Samples)
		default:
			monitoring.Regionf(reg.Region, "%d samples, expected area %.4g, observed area %.4g (%s)",
				reg.Samples, reg.Areas[contour.NameExpected], reg.Areas[contour.NameObserved], reg.Elapsed.Round(time.Millisecond))
		}
	}
}
