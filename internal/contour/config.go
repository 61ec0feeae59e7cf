package contour

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Kernel names a radial basis function.
type Kernel string

const (
	KernelMultiquadric        Kernel = "multiquadric"
	KernelInverseMultiquadric Kernel = "inverse_multiquadric"
	KernelGaussian            Kernel = "gaussian"
	KernelLinear              Kernel = "linear"
	KernelCubic               Kernel = "cubic"
	KernelQuintic             Kernel = "quintic"
	KernelThinPlate           Kernel = "thin_plate"
)

// Kernels lists every supported kernel in a stable order.
var Kernels = []Kernel{
	KernelMultiquadric,
	KernelInverseMultiquadric,
	KernelGaussian,
	KernelLinear,
	KernelCubic,
	KernelQuintic,
	KernelThinPlate,
}

func (k Kernel) valid() bool {
	for _, known := range Kernels {
		if k == known {
			return true
		}
	}
	return false
}

// Scale selects the space in which metric values are interpolated.
type Scale string

const (
	// ScaleCLs interpolates raw CLs values. A point is excluded when its
	// value is at or below the level (default 0.05).
	ScaleCLs Scale = "cls"

	// ScaleSignificance converts CLs to a one-sided Gaussian significance
	// before interpolation. A point is excluded when its value is at or
	// above the level (default 1.64485, the CLs = 0.05 equivalent).
	ScaleSignificance Scale = "significance"
)

// DefaultLevel returns the 95% CL exclusion threshold on this scale.
func (s Scale) DefaultLevel() float64 {
	if s == ScaleSignificance {
		return distuv.UnitNormal.Quantile(0.95)
	}
	return 0.05
}

// Transform maps a raw CLs value onto the scale. Significances are clipped
// to ±sigmaMax so that CLs values of exactly 0 or 1 stay finite.
func (s Scale) Transform(cls, sigmaMax float64) float64 {
	if s != ScaleSignificance {
		return cls
	}
	if cls <= 0 {
		return sigmaMax
	}
	if cls >= 1 {
		return -sigmaMax
	}
	z := distuv.UnitNormal.Quantile(1 - cls)
	return math.Max(-sigmaMax, math.Min(sigmaMax, z))
}

// orientation is +1 when larger values are more excluded, -1 otherwise.
func (s Scale) orientation() float64 {
	if s == ScaleSignificance {
		return 1
	}
	return -1
}

// Config is the complete, explicit configuration of one extraction. Build
// it once (DefaultConfig plus overrides) and treat it as read-only.
type Config struct {
	// XVar and YVar name the record fields used as the grid axes.
	XVar string
	YVar string

	// Expected is the nominal figure of merit. Observed, Down1/Up1 and
	// Down2/Up2 are optional; an empty name disables that contour.
	Expected string
	Observed string
	Down1    string
	Up1      string
	Down2    string
	Up2      string

	// Axis bounds. Nil means derived from the sample bounding box.
	XMin *float64
	XMax *float64
	YMin *float64
	YMax *float64

	// Number of grid nodes along each axis (at least 2).
	XResolution int
	YResolution int

	LogX bool
	LogY bool

	Kernel Kernel
	// Epsilon is the kernel shape parameter in normalized grid units.
	// Nil selects the average sample spacing.
	Epsilon *float64
	// Smoothing is subtracted from the diagonal of the kernel matrix.
	// Zero gives exact interpolation through the samples.
	Smoothing float64

	Scale Scale
	// Level is the contour threshold on Scale. Nil selects Scale.DefaultLevel.
	Level *float64
	// SigmaMax clips significances when Scale is ScaleSignificance.
	SigmaMax float64

	// Allowed restricts contours to a physically allowed region. Nil
	// allows the whole grid.
	Allowed *Region
}

// DefaultConfig returns the configuration used for the sbottom grid:
// msb on x, mn2 on y, expected CLs with its ±1σ band and the observed CLs,
// a 100×100 grid and a multiquadric kernel.
func DefaultConfig() Config {
	return Config{
		XVar:        "msb",
		YVar:        "mn2",
		Expected:    "CLsexp",
		Observed:    "CLs",
		Down1:       "clsd1s",
		Up1:         "clsu1s",
		XResolution: 100,
		YResolution: 100,
		Kernel:      KernelMultiquadric,
		Scale:       ScaleCLs,
		SigmaMax:    5,
	}
}

// ThresholdLevel returns the configured level or the scale default.
func (c Config) ThresholdLevel() float64 {
	if c.Level != nil {
		return *c.Level
	}
	return c.Scale.DefaultLevel()
}

// Metrics returns every metric the configuration interpolates, without
// duplicates, in a stable order.
func (c Config) Metrics() []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range []string{c.Expected, c.Observed, c.Down1, c.Up1, c.Down2, c.Up2} {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// Validate checks that the configuration is complete and consistent.
// Every failure wraps ErrConfig.
func (c Config) Validate() error {
	if c.XVar == "" || c.YVar == "" {
		return fmt.Errorf("%w: x and y variables are required", ErrConfig)
	}
	if c.XVar == c.YVar {
		return fmt.Errorf("%w: x and y variables must differ, both are %q", ErrConfig, c.XVar)
	}
	if c.Expected == "" {
		return fmt.Errorf("%w: expected metric is required", ErrConfig)
	}
	if (c.Down1 == "") != (c.Up1 == "") {
		return fmt.Errorf("%w: 1 sigma band needs both edges, got %q and %q", ErrConfig, c.Down1, c.Up1)
	}
	if (c.Down2 == "") != (c.Up2 == "") {
		return fmt.Errorf("%w: 2 sigma band needs both edges, got %q and %q", ErrConfig, c.Down2, c.Up2)
	}
	if c.XResolution < 2 || c.YResolution < 2 {
		return fmt.Errorf("%w: grid resolution must be at least 2x2, got %dx%d", ErrConfig, c.XResolution, c.YResolution)
	}
	if !c.Kernel.valid() {
		return fmt.Errorf("%w: unknown kernel %q", ErrConfig, c.Kernel)
	}
	if c.Scale != ScaleCLs && c.Scale != ScaleSignificance {
		return fmt.Errorf("%w: unknown scale %q", ErrConfig, c.Scale)
	}
	if !isFinite(c.Smoothing) {
		return fmt.Errorf("%w: smoothing must be finite", ErrConfig)
	}
	if c.Epsilon != nil && (!isFinite(*c.Epsilon) || *c.Epsilon <= 0) {
		return fmt.Errorf("%w: epsilon must be positive, got %v", ErrConfig, *c.Epsilon)
	}
	if c.Level != nil && !isFinite(*c.Level) {
		return fmt.Errorf("%w: level must be finite", ErrConfig)
	}
	if c.Scale == ScaleSignificance && (!isFinite(c.SigmaMax) || c.SigmaMax <= 0) {
		return fmt.Errorf("%w: sigma max must be positive, got %v", ErrConfig, c.SigmaMax)
	}
	if err := checkBounds("x", c.XMin, c.XMax, c.LogX); err != nil {
		return err
	}
	return checkBounds("y", c.YMin, c.YMax, c.LogY)
}

func checkBounds(axis string, lo, hi *float64, logScale bool) error {
	for _, b := range []*float64{lo, hi} {
		if b == nil {
			continue
		}
		if !isFinite(*b) {
			return fmt.Errorf("%w: %s bound is not finite", ErrConfig, axis)
		}
		if logScale && *b <= 0 {
			return fmt.Errorf("%w: %s bound %v is not positive on a log axis", ErrConfig, axis, *b)
		}
	}
	if lo != nil && hi != nil && *lo >= *hi {
		return fmt.Errorf("%w: %s min %v must be below max %v", ErrConfig, axis, *lo, *hi)
	}
	return nil
}

// Float returns a pointer to v, for optional Config fields.
func Float(v float64) *float64 { return &v }

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
