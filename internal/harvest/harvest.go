// Package harvest collects per-mass-point fit results from disk and turns
// them into the flat records the contour extractor consumes.
//
// A result file is named after its region and model parameters, for
// example results/regionA.result.sbottom_900_400_60.json, and holds the
// observed CLs and the five expected CLs quantiles (−2σ, −1σ, median,
// +1σ, +2σ).
package harvest

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/banshee-data/exclusion.report/internal/contour"
	"github.com/banshee-data/exclusion.report/internal/fsutil"
	"github.com/banshee-data/exclusion.report/internal/monitoring"
)

// Config describes where result files live and how their names encode the
// model parameters.
type Config struct {
	// ResultsDir is searched (not recursively) for result files.
	ResultsDir string
	// Regions are the region identifiers, e.g. "A" for regionA.
	Regions []string
	// Template names a result file. {region} is replaced by the region
	// identifier and {prefix} by Prefix; the parameter values follow as
	// _-separated integers.
	Template string
	// Prefix names the signal grid, e.g. "sbottom".
	Prefix string
	// Params name the integers in the file name, in order.
	Params []string
	// Fixed keeps only files whose named parameters have these values.
	Fixed map[string]float64
}

// DefaultConfig returns the sbottom grid layout: msb, mn2 and mn1 in the
// file name, with mn1 fixed at 60 GeV.
func DefaultConfig() Config {
	return Config{
		ResultsDir: "results",
		Regions:    []string{"A"},
		Template:   "region{region}.result.{prefix}",
		Prefix:     "sbottom",
		Params:     []string{"msb", "mn2", "mn1"},
		Fixed:      map[string]float64{"mn1": 60},
	}
}

// Validate checks that file names can be built and parsed.
func (c Config) Validate() error {
	if c.ResultsDir == "" {
		return fmt.Errorf("results directory is required")
	}
	if len(c.Regions) == 0 {
		return fmt.Errorf("at least one region is required")
	}
	if !strings.Contains(c.Template, "{region}") {
		return fmt.Errorf("file template %q has no {region} placeholder", c.Template)
	}
	if c.Prefix == "" || strings.ContainsAny(c.Prefix, `*?[\/`) {
		return fmt.Errorf("invalid prefix %q", c.Prefix)
	}
	if len(c.Params) == 0 {
		return fmt.Errorf("at least one parameter is required")
	}
	seen := make(map[string]bool, len(c.Params))
	for _, p := range c.Params {
		if p == "" || seen[p] {
			return fmt.Errorf("parameter names must be unique and non-empty, got %v", c.Params)
		}
		seen[p] = true
	}
	for name := range c.Fixed {
		if !seen[name] {
			return fmt.Errorf("fixed parameter %q is not one of %v", name, c.Params)
		}
	}
	return nil
}

// RegionName is the display name of a region identifier.
func RegionName(id string) string {
	return "region" + id
}

// FitResult is the part of a result file the harvester reads.
type FitResult struct {
	CLsObs *float64  `json:"CLs_obs"`
	CLsExp []float64 `json:"CLs_exp"`
}

// Region is one region's harvested records.
type Region struct {
	Name    string
	Records []contour.Record
}

// Harvester reads result files through a FileSystem.
type Harvester struct {
	fs      fsutil.FileSystem
	cfg     Config
	pattern *regexp.Regexp
}

// New validates cfg and returns a Harvester reading from fs.
func New(fs fsutil.FileSystem, cfg Config) (*Harvester, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("harvest config: %w", err)
	}
	groups := strings.Repeat(`_(\d+)`, len(cfg.Params))
	pattern, err := regexp.Compile(regexp.QuoteMeta(cfg.Prefix) + groups)
	if err != nil {
		return nil, fmt.Errorf("harvest config: %w", err)
	}
	return &Harvester{fs: fs, cfg: cfg, pattern: pattern}, nil
}

// Glob returns the file pattern for one region.
func (h *Harvester) Glob(region string) string {
	name := strings.NewReplacer("{region}", region, "{prefix}", h.cfg.Prefix).Replace(h.cfg.Template)
	name += strings.Repeat("_*", len(h.cfg.Params)) + ".json"
	return filepath.Join(h.cfg.ResultsDir, name)
}

// Harvest reads every result file of one region. Files that cannot be
// read or parsed, or whose fixed parameters do not match, are skipped; the
// former with a warning. Only an unusable glob pattern is an error.
func (h *Harvester) Harvest(region string) (Region, error) {
	out := Region{Name: RegionName(region)}
	files, err := h.fs.Glob(h.Glob(region))
	if err != nil {
		return out, fmt.Errorf("glob %s results: %w", out.Name, err)
	}

	for _, fname := range files {
		params, ok := h.parseParams(fname)
		if !ok {
			monitoring.Regionf(out.Name, "warning: cannot parse parameters from %s, skipping", fname)
			continue
		}
		if !h.keep(params) {
			continue
		}
		res, err := h.readResult(fname)
		if err != nil {
			monitoring.Regionf(out.Name, "warning: %v, skipping", err)
			continue
		}
		out.Records = append(out.Records, MakeRecord(res, params))
	}
	monitoring.Regionf(out.Name, "harvested %d of %d result files", len(out.Records), len(files))
	return out, nil
}

// HarvestAll harvests every configured region in order.
func (h *Harvester) HarvestAll() ([]Region, error) {
	regions := make([]Region, 0, len(h.cfg.Regions))
	for _, id := range h.cfg.Regions {
		r, err := h.Harvest(id)
		if err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, nil
}

func (h *Harvester) parseParams(fname string) (map[string]float64, bool) {
	m := h.pattern.FindStringSubmatch(filepath.Base(fname))
	if m == nil {
		return nil, false
	}
	params := make(map[string]float64, len(h.cfg.Params))
	for i, name := range h.cfg.Params {
		v, err := strconv.Atoi(m[i+1])
		if err != nil {
			return nil, false
		}
		params[name] = float64(v)
	}
	return params, true
}

func (h *Harvester) keep(params map[string]float64) bool {
	for name, want := range h.cfg.Fixed {
		if params[name] != want {
			return false
		}
	}
	return true
}

func (h *Harvester) readResult(fname string) (FitResult, error) {
	var res FitResult
	data, err := h.fs.ReadFile(fname)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", fname, err)
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return res, fmt.Errorf("parse %s: %w", fname, err)
	}
	if res.CLsObs == nil {
		return res, fmt.Errorf("%s: no CLs_obs", fname)
	}
	if len(res.CLsExp) != 5 {
		return res, fmt.Errorf("%s: CLs_exp has %d entries, want 5", fname, len(res.CLsExp))
	}
	return res, nil
}
