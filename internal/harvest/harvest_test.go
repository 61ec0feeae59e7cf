package harvest

import (
	"testing"

	"github.com/banshee-data/exclusion.report/internal/contour"
	"github.com/banshee-data/exclusion.report/internal/fsutil"
	"github.com/banshee-data/exclusion.report/internal/monitoring"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultJSON = `{"CLs_obs": 0.031, "CLs_exp": [0.01, 0.02, 0.04, 0.08, 0.16], "p0": 0.5}`

func quiet(t *testing.T) *[]string {
	t.Helper()
	original := monitoring.Logf
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})
	t.Cleanup(func() { monitoring.Logf = original })
	return &lines
}

func newFixture(t *testing.T, files map[string]string) *fsutil.MemoryFileSystem {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	for name, body := range files {
		require.NoError(t, mfs.WriteFile(name, []byte(body), 0644))
	}
	return mfs
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	h, err := New(fsutil.NewMemoryFileSystem(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "results/regionA.result.sbottom_*_*_*.json", h.Glob("A"))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no results dir", func(c *Config) { c.ResultsDir = "" }},
		{"no regions", func(c *Config) { c.Regions = nil }},
		{"template without region", func(c *Config) { c.Template = "result.{prefix}" }},
		{"glob in prefix", func(c *Config) { c.Prefix = "sb*" }},
		{"no params", func(c *Config) { c.Params = nil }},
		{"duplicate params", func(c *Config) { c.Params = []string{"msb", "msb"} }},
		{"unknown fixed param", func(c *Config) { c.Fixed = map[string]float64{"mc1": 60} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
			_, err := New(fsutil.NewMemoryFileSystem(), cfg)
			assert.Error(t, err)
		})
	}
}

func TestHarvest(t *testing.T) {
	logs := quiet(t)
	mfs := newFixture(t, map[string]string{
		"results/regionA.result.sbottom_900_400_60.json":  resultJSON,
		"results/regionA.result.sbottom_700_250_60.json":  `{"CLs_obs": 0.5, "CLs_exp": [0.3, 0.4, 0.5, 0.6, 0.7]}`,
		"results/regionA.result.sbottom_700_250_100.json": resultJSON,
		"results/regionA.result.sbottom_800_300_60.json":  `{"CLs_obs": 0.5}`,
		"results/regionA.result.sbottom_800_400_60.json":  `not json`,
		"results/regionA.result.sbottom_800_500_60.json":  `{"CLs_exp": [0.3, 0.4, 0.5, 0.6, 0.7]}`,
		"results/regionB.result.sbottom_900_400_60.json":  resultJSON,
		"results/regionA.result.sbottom_x_400_60.json":    resultJSON,
	})
	h, err := New(mfs, DefaultConfig())
	require.NoError(t, err)

	region, err := h.Harvest("A")
	require.NoError(t, err)
	assert.Equal(t, "regionA", region.Name)
	require.Len(t, region.Records, 2)

	// Files are visited in sorted order.
	first, second := region.Records[0], region.Records[1]
	assert.Equal(t, 700.0, first["msb"])
	assert.Equal(t, 250.0, first["mn2"])
	assert.Equal(t, 60.0, first["mn1"])

	assert.Equal(t, 900.0, second["msb"])
	assert.Equal(t, 0.031, second["CLs"])
	assert.Equal(t, 0.04, second["CLsexp"])
	assert.Equal(t, 0.02, second["clsd1s"])
	assert.Equal(t, 0.01, second["clsd2s"])
	assert.Equal(t, 0.08, second["clsu1s"])
	assert.Equal(t, 0.16, second["clsu2s"])
	assert.Equal(t, 3.0, second["covqual"])
	assert.Equal(t, -999007.0, second["xsec"])
	assert.Equal(t, -1.0, second["fID"])
	assert.Equal(t, 0.0, second["p0"], "fit result fields are not copied through")

	// Three unreadable files and one unparseable name, plus the summary.
	// The mn1=100 file is filtered silently.
	assert.Len(t, *logs, 5)
}

func TestHarvest_EmptyRegion(t *testing.T) {
	quiet(t)
	h, err := New(fsutil.NewMemoryFileSystem(), DefaultConfig())
	require.NoError(t, err)

	region, err := h.Harvest("Z")
	require.NoError(t, err)
	assert.Equal(t, "regionZ", region.Name)
	assert.Empty(t, region.Records)
}

func TestHarvestAll(t *testing.T) {
	quiet(t)
	mfs := newFixture(t, map[string]string{
		"res/regionSRlow.result.stop_900_400.json":  resultJSON,
		"res/regionSRhigh.result.stop_900_400.json": resultJSON,
		"res/regionSRhigh.result.stop_800_400.json": resultJSON,
	})
	cfg := Config{
		ResultsDir: "res",
		Regions:    []string{"SRlow", "SRhigh"},
		Template:   "region{region}.result.{prefix}",
		Prefix:     "stop",
		Params:     []string{"mt", "mn1"},
	}
	h, err := New(mfs, cfg)
	require.NoError(t, err)

	regions, err := h.HarvestAll()
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, "regionSRlow", regions[0].Name)
	assert.Len(t, regions[0].Records, 1)
	assert.Equal(t, "regionSRhigh", regions[1].Name)
	assert.Len(t, regions[1].Records, 2)
	assert.Equal(t, 800.0, regions[1].Records[0]["mt"])
}

func TestWriteAndReadJSON(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	exp := 0.2
	region := Region{
		Name: "regionA",
		Records: []contour.Record{
			MakeRecord(FitResult{CLsObs: &exp, CLsExp: []float64{0.1, 0.15, 0.2, 0.25, 0.3}},
				map[string]float64{"msb": 900, "mn2": 400, "mn1": 60}),
		},
	}

	path, err := WriteJSON(mfs, "out", region)
	require.NoError(t, err)
	assert.Equal(t, "out/harvest.regionA.json", path)

	got, err := ReadJSON(mfs, path)
	require.NoError(t, err)
	if diff := cmp.Diff(region.Records, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	path, err = WriteJSON(mfs, "out", Region{Name: "regionEmpty"})
	require.NoError(t, err)
	data, err := mfs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	_, err = ReadJSON(mfs, "out/missing.json")
	assert.Error(t, err)
}

func TestFields(t *testing.T) {
	records := []contour.Record{{"msb": 1, "CLs": 2}, {"mn2": 3, "CLs": 4}}
	assert.Equal(t, []string{"CLs", "mn2", "msb"}, Fields(records))
}
