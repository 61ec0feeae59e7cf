package harvest

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/banshee-data/exclusion.report/internal/contour"
	"github.com/banshee-data/exclusion.report/internal/fsutil"
)

// Fields every harvested record carries besides the parameters and CLs
// values. Downstream limit-setting tools expect the full set; the values
// mark quantities this pipeline does not compute.
var placeholders = map[string]float64{
	"covqual":                     3,
	"dodgycov":                    0,
	"excludedXsec":                -999007,
	"expectedUpperLimit":          -1,
	"expectedUpperLimitMinus1Sig": -1,
	"expectedUpperLimitMinus2Sig": -1,
	"expectedUpperLimitPlus1Sig":  -1,
	"expectedUpperLimitPlus2Sig":  -1,
	"fID":                         -1,
	"failedcov":                   0,
	"failedfit":                   0,
	"failedp0":                    0,
	"failedstatus":                0,
	"fitstatus":                   0,
	"mode":                        -1,
	"nexp":                        -1,
	"nofit":                       0,
	"p0":                          0,
	"p0d1s":                       -1,
	"p0d2s":                       -1,
	"p0exp":                       -1,
	"p0u1s":                       -1,
	"p0u2s":                       -1,
	"p1":                          0,
	"seed":                        0,
	"sigma0":                      -1,
	"sigma1":                      -1,
	"upperLimit":                  -1,
	"upperLimitEstimatedError":    -1,
	"xsec":                        -999007,
}

// MakeRecord builds the harvest record for one fit result. CLs_exp is
// ordered −2σ, −1σ, median, +1σ, +2σ.
func MakeRecord(res FitResult, params map[string]float64) contour.Record {
	rec := make(contour.Record, len(placeholders)+len(params)+6)
	for k, v := range placeholders {
		rec[k] = v
	}
	for k, v := range params {
		rec[k] = v
	}
	if res.CLsObs != nil {
		rec["CLs"] = *res.CLsObs
	}
	if len(res.CLsExp) == 5 {
		rec["clsd2s"] = res.CLsExp[0]
		rec["clsd1s"] = res.CLsExp[1]
		rec["CLsexp"] = res.CLsExp[2]
		rec["clsu1s"] = res.CLsExp[3]
		rec["clsu2s"] = res.CLsExp[4]
	}
	return rec
}

// FileName is the harvest file name of a region.
func FileName(region string) string {
	return "harvest." + region + ".json"
}

// WriteJSON writes a region's records to dir as a JSON array and returns
// the path written.
func WriteJSON(fs fsutil.FileSystem, dir string, r Region) (string, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	records := r.Records
	if records == nil {
		records = []contour.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", r.Name, err)
	}
	path := filepath.Join(dir, FileName(r.Name))
	if err := fs.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// ReadJSON reads a harvest file written by WriteJSON or by other tools
// producing the same array-of-objects layout.
func ReadJSON(fs fsutil.FileSystem, path string) ([]contour.Record, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var records []contour.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

// Fields returns the sorted union of field names across records.
func Fields(records []contour.Record) []string {
	seen := make(map[string]bool)
	for _, r := range records {
		for k := range r {
			seen[k] = true
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
