package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/exclusion.report/internal/contour"
	"github.com/banshee-data/exclusion.report/internal/harvest"
	"github.com/banshee-data/exclusion.report/internal/multiplex"
	"github.com/banshee-data/exclusion.report/internal/render"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/contours.defaults.json"

// ContoursConfig is the root configuration of a contours run. Every field
// is optional; the Get* methods supply the default for anything omitted,
// so partial files are safe.
type ContoursConfig struct {
	// Harvest
	ResultsDir   *string            `json:"results_dir,omitempty"`
	Regions      []string           `json:"regions,omitempty"`
	FileTemplate *string            `json:"file_template,omitempty"`
	Prefix       *string            `json:"prefix,omitempty"`
	Params       []string           `json:"params,omitempty"`
	Fixed        map[string]float64 `json:"fixed,omitempty"`

	// Multiplexing of regions into one combined region
	Combine       *bool   `json:"combine,omitempty"`
	CombineFigure *string `json:"combine_figure,omitempty"`

	// Interpolation and contouring
	XVar          *string  `json:"x_var,omitempty"`
	YVar          *string  `json:"y_var,omitempty"`
	Expected      *string  `json:"expected,omitempty"`
	Observed      *string  `json:"observed,omitempty"` // "" disables
	Down1         *string  `json:"down_1s,omitempty"`
	Up1           *string  `json:"up_1s,omitempty"`
	Down2         *string  `json:"down_2s,omitempty"`
	Up2           *string  `json:"up_2s,omitempty"`
	XMin          *float64 `json:"x_min,omitempty"`
	XMax          *float64 `json:"x_max,omitempty"`
	YMin          *float64 `json:"y_min,omitempty"`
	YMax          *float64 `json:"y_max,omitempty"`
	XResolution   *int     `json:"x_resolution,omitempty"`
	YResolution   *int     `json:"y_resolution,omitempty"`
	LogX          *bool    `json:"log_x,omitempty"`
	LogY          *bool    `json:"log_y,omitempty"`
	Kernel        *string  `json:"kernel,omitempty"`
	Epsilon       *float64 `json:"epsilon,omitempty"`
	Smoothing     *float64 `json:"smoothing,omitempty"`
	Scale         *string  `json:"scale,omitempty"`
	Level         *float64 `json:"level,omitempty"`
	SigmaMax      *float64 `json:"sigma_max,omitempty"`
	AllowedRegion *string  `json:"allowed_region,omitempty"` // e.g. "mn2 <= msb"

	// Plot
	PlotFormat *string  `json:"plot_format,omitempty"`
	PlotWidth  *int     `json:"plot_width,omitempty"`
	PlotHeight *int     `json:"plot_height,omitempty"`
	PlotXMin   *float64 `json:"plot_x_min,omitempty"`
	PlotXMax   *float64 `json:"plot_x_max,omitempty"`
	PlotYMin   *float64 `json:"plot_y_min,omitempty"`
	PlotYMax   *float64 `json:"plot_y_max,omitempty"`
	ComEnergy  *string  `json:"com_energy,omitempty"`
	Luminosity *float64 `json:"luminosity,omitempty"` // pb⁻¹
	Status     *string  `json:"status,omitempty"`     // "", "internal" or "preliminary"
	ShowPoints *bool    `json:"show_points,omitempty"`

	// Output
	OutputDir    *string `json:"output_dir,omitempty"`
	SurfacePages *bool   `json:"surface_pages,omitempty"`
	Database     *string `json:"database,omitempty"` // "" disables the run store
	Workers      *int    `json:"workers,omitempty"`
}

// EmptyContoursConfig returns a ContoursConfig with all fields unset.
func EmptyContoursConfig() *ContoursConfig {
	return &ContoursConfig{}
}

// LoadContoursConfig loads a ContoursConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadContoursConfig(path string) (*ContoursConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyContoursConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *ContoursConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadContoursConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks every section by building it.
func (c *ContoursConfig) Validate() error {
	if _, err := c.ContourConfig(); err != nil {
		return err
	}
	if err := c.HarvestConfig().Validate(); err != nil {
		return fmt.Errorf("harvest: %w", err)
	}
	if err := c.PlotOptions().Validate(); err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.OutputDir != nil && *c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	return nil
}

// ContourConfig builds the extraction configuration, compiling the allowed
// region expression against the configured axis variables.
func (c *ContoursConfig) ContourConfig() (contour.Config, error) {
	cfg := contour.DefaultConfig()
	cfg.XVar = stringOr(c.XVar, cfg.XVar)
	cfg.YVar = stringOr(c.YVar, cfg.YVar)
	cfg.Expected = stringOr(c.Expected, cfg.Expected)
	cfg.Observed = stringOr(c.Observed, cfg.Observed)
	cfg.Down1 = stringOr(c.Down1, cfg.Down1)
	cfg.Up1 = stringOr(c.Up1, cfg.Up1)
	cfg.Down2 = stringOr(c.Down2, cfg.Down2)
	cfg.Up2 = stringOr(c.Up2, cfg.Up2)
	cfg.XMin, cfg.XMax = c.XMin, c.XMax
	cfg.YMin, cfg.YMax = c.YMin, c.YMax
	cfg.XResolution = c.GetXResolution()
	cfg.YResolution = c.GetYResolution()
	cfg.LogX = c.LogX != nil && *c.LogX
	cfg.LogY = c.LogY != nil && *c.LogY
	cfg.Kernel = contour.Kernel(c.GetKernel())
	cfg.Epsilon = c.Epsilon
	cfg.Smoothing = c.GetSmoothing()
	cfg.Scale = contour.Scale(c.GetScale())
	cfg.Level = c.Level
	cfg.SigmaMax = c.GetSigmaMax()

	if expr := c.GetAllowedRegion(); expr != "" {
		region, err := contour.ParseRegion(expr, cfg.XVar, cfg.YVar)
		if err != nil {
			return contour.Config{}, err
		}
		cfg.Allowed = region
	}
	if err := cfg.Validate(); err != nil {
		return contour.Config{}, err
	}
	return cfg, nil
}

// HarvestConfig builds the harvester configuration.
func (c *ContoursConfig) HarvestConfig() harvest.Config {
	cfg := harvest.DefaultConfig()
	cfg.ResultsDir = c.GetResultsDir()
	if len(c.Regions) > 0 {
		cfg.Regions = append([]string(nil), c.Regions...)
	}
	cfg.Template = stringOr(c.FileTemplate, cfg.Template)
	cfg.Prefix = stringOr(c.Prefix, cfg.Prefix)
	if len(c.Params) > 0 {
		cfg.Params = append([]string(nil), c.Params...)
	}
	if c.Fixed != nil {
		cfg.Fixed = make(map[string]float64, len(c.Fixed))
		for k, v := range c.Fixed {
			cfg.Fixed[k] = v
		}
	}
	return cfg
}

// PlotOptions builds the exclusion plot options.
func (c *ContoursConfig) PlotOptions() render.PlotOptions {
	o := render.DefaultPlotOptions()
	o.Format = c.GetPlotFormat()
	o.Width = intOr(c.PlotWidth, o.Width)
	o.Height = intOr(c.PlotHeight, o.Height)
	o.XMin = floatOr(c.PlotXMin, o.XMin)
	o.XMax = floatOr(c.PlotXMax, o.XMax)
	o.YMin = floatOr(c.PlotYMin, o.YMin)
	o.YMax = floatOr(c.PlotYMax, o.YMax)
	o.ComEnergy = stringOr(c.ComEnergy, o.ComEnergy)
	o.Luminosity = floatOr(c.Luminosity, o.Luminosity)
	o.Status = render.Status(stringOr(c.Status, string(o.Status)))
	o.ShowPoints = c.ShowPoints != nil && *c.ShowPoints
	return o
}

// GetResultsDir returns the results_dir value or the default.
func (c *ContoursConfig) GetResultsDir() string {
	return stringOr(c.ResultsDir, "results")
}

// GetCombine returns the combine value or the default.
func (c *ContoursConfig) GetCombine() bool {
	if c.Combine == nil {
		return false
	}
	return *c.Combine
}

// GetCombineFigure returns the combine_figure value or the default.
func (c *ContoursConfig) GetCombineFigure() string {
	return stringOr(c.CombineFigure, multiplex.DefaultFigure)
}

// GetXResolution returns the x_resolution value or the default.
func (c *ContoursConfig) GetXResolution() int {
	return intOr(c.XResolution, 100)
}

// GetYResolution returns the y_resolution value or the default.
func (c *ContoursConfig) GetYResolution() int {
	return intOr(c.YResolution, 100)
}

// GetKernel returns the kernel value or the default.
func (c *ContoursConfig) GetKernel() string {
	return stringOr(c.Kernel, string(contour.KernelMultiquadric))
}

// GetSmoothing returns the smoothing value or the default.
func (c *ContoursConfig) GetSmoothing() float64 {
	return floatOr(c.Smoothing, 0)
}

// GetScale returns the scale value or the default.
func (c *ContoursConfig) GetScale() string {
	return stringOr(c.Scale, string(contour.ScaleCLs))
}

// GetSigmaMax returns the sigma_max value or the default.
func (c *ContoursConfig) GetSigmaMax() float64 {
	return floatOr(c.SigmaMax, 5)
}

// GetAllowedRegion returns the allowed_region expression, empty when the
// whole grid is allowed.
func (c *ContoursConfig) GetAllowedRegion() string {
	return stringOr(c.AllowedRegion, "")
}

// GetPlotFormat returns the plot_format value or the default.
func (c *ContoursConfig) GetPlotFormat() string {
	return stringOr(c.PlotFormat, "png")
}

// GetOutputDir returns the output_dir value or the default.
func (c *ContoursConfig) GetOutputDir() string {
	return stringOr(c.OutputDir, "plots")
}

// GetSurfacePages returns the surface_pages value or the default.
func (c *ContoursConfig) GetSurfacePages() bool {
	if c.SurfacePages == nil {
		return true
	}
	return *c.SurfacePages
}

// GetDatabase returns the database path, empty when no store is kept.
func (c *ContoursConfig) GetDatabase() string {
	return stringOr(c.Database, "")
}

// GetWorkers returns the workers value or the default.
func (c *ContoursConfig) GetWorkers() int {
	return intOr(c.Workers, 4)
}

func stringOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
