// Package render draws extracted contours: the publication-style exclusion
// plot (gonum/plot) and an HTML page of the interpolated surfaces
// (go-echarts) for inspecting a fit.
package render

import (
	"fmt"
	"strconv"
	"strings"
)

// Status selects the experiment label drawn under the plot legend.
type Status string

const (
	StatusNone        Status = ""
	StatusInternal    Status = "internal"
	StatusPreliminary Status = "preliminary"
)

// Line is a decorative straight line with a label, such as the boundary
// of the kinematically forbidden region.
type Line struct {
	X1, Y1, X2, Y2 float64
	Label          string
	// LabelX and LabelY place the label in data coordinates; Angle rotates
	// it, in degrees.
	LabelX, LabelY float64
	Angle          float64
}

// PlotOptions controls the exclusion plot. DefaultPlotOptions matches the
// sbottom analysis figure.
type PlotOptions struct {
	// Width and Height are in pixels at 96 dpi.
	Width  int
	Height int
	// Format is png, svg or pdf.
	Format string

	XLabel string
	YLabel string
	XMin   float64
	XMax   float64
	YMin   float64
	YMax   float64

	ComEnergy string
	// Luminosity is in pb⁻¹ and labelled in fb⁻¹.
	Luminosity float64
	// LumiLabel may use {comEnergy} and {luminosity}.
	LumiLabel    string
	ProcessLabel string
	Experiment   string
	Status       Status

	ExpectedTitle string
	ObservedTitle string

	// Forbidden is drawn when non-nil.
	Forbidden *Line

	// LabelsLeft and LabelsTop place the label block, as fractions of the
	// axis ranges.
	LabelsLeft float64
	LabelsTop  float64

	// ShowPoints overlays the sample positions.
	ShowPoints bool
}

// DefaultPlotOptions returns the options of the published sbottom plot.
func DefaultPlotOptions() PlotOptions {
	return PlotOptions{
		Width:         1600,
		Height:        1200,
		Format:        "png",
		XLabel:        "m(b̃₁) [GeV]",
		YLabel:        "m(χ̃⁰₂) [GeV]",
		XMin:          300,
		XMax:          1700,
		YMin:          198,
		YMax:          1700,
		ComEnergy:     "13 TeV",
		Luminosity:    139000,
		LumiLabel:     "√s = {comEnergy}, {luminosity} fb⁻¹",
		ProcessLabel:  "b̃₁b̃₁ production; b̃₁ → b χ̃⁰₂ → b h χ̃⁰₁; m(χ̃⁰₁) = 60 GeV",
		Experiment:    "ATLAS",
		ExpectedTitle: "Expected Limit (±1 σ_exp)",
		ObservedTitle: "Observed Limit",
		Forbidden: &Line{
			X1:     300,
			Y1:     300,
			X2:     1500,
			Y2:     1500,
			Label:  "Kinematically Forbidden m(χ̃⁰₂) > m(b̃₁)",
			LabelX: 350,
			LabelY: 450,
			Angle:  38,
		},
		LabelsLeft: 0.05,
		LabelsTop:  0.95,
	}
}

// Validate checks the options before any drawing happens.
func (o PlotOptions) Validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("plot size must be positive, got %dx%d", o.Width, o.Height)
	}
	switch o.Format {
	case "png", "svg", "pdf":
	default:
		return fmt.Errorf("unsupported plot format %q", o.Format)
	}
	if o.XMin >= o.XMax || o.YMin >= o.YMax {
		return fmt.Errorf("plot range [%g, %g]x[%g, %g] is empty", o.XMin, o.XMax, o.YMin, o.YMax)
	}
	switch o.Status {
	case StatusNone, StatusInternal, StatusPreliminary:
	default:
		return fmt.Errorf("unknown status %q", o.Status)
	}
	if o.Luminosity < 0 {
		return fmt.Errorf("luminosity must not be negative, got %g", o.Luminosity)
	}
	return nil
}

// LumiText is the luminosity label with placeholders filled in.
func (o PlotOptions) LumiText() string {
	fb := strconv.FormatFloat(o.Luminosity/1e3, 'g', -1, 64)
	return strings.NewReplacer("{comEnergy}", o.ComEnergy, "{luminosity}", fb).Replace(o.LumiLabel)
}

// StatusText is the experiment label, e.g. "ATLAS Internal".
func (o PlotOptions) StatusText() string {
	switch o.Status {
	case StatusInternal:
		return strings.TrimSpace(o.Experiment + " Internal")
	case StatusPreliminary:
		return strings.TrimSpace(o.Experiment + " Preliminary")
	}
	return o.Experiment
}
