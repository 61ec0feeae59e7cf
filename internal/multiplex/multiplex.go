// Package multiplex combines the harvests of several signal regions into
// one best-expected record per model point.
package multiplex

import (
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/exclusion.report/internal/contour"
	"github.com/banshee-data/exclusion.report/internal/monitoring"
)

// DefaultFigure is the figure of merit compared between regions.
const DefaultFigure = "CLsexp"

// InputField is set on every combined record to the index of the input it
// was taken from.
const InputField = "fID"

// Input is one region's harvested records.
type Input struct {
	Name    string
	Records []contour.Record
}

// Choice records which input won a model point.
type Choice struct {
	Key   string
	Input string
	Value float64
}

// Result is the combined record set and the per-point choices, both in
// order of first appearance.
type Result struct {
	Records []contour.Record
	Choices []Choice
}

// Combine picks, for every tuple of modelDef values, the record with the
// lowest figure of merit across inputs. Ties keep the earlier input.
// Records missing a model parameter or a finite figure are skipped with a
// warning. The chosen records are copies carrying InputField.
func Combine(inputs []Input, modelDef []string, figure string) (*Result, error) {
	if len(modelDef) == 0 {
		return nil, fmt.Errorf("multiplex: model definition is empty")
	}
	if figure == "" {
		figure = DefaultFigure
	}

	type best struct {
		rec   contour.Record
		input int
		value float64
	}
	var order []string
	chosen := make(map[string]*best)

	for in, input := range inputs {
		for k, rec := range input.Records {
			key, ok := modelKey(rec, modelDef)
			if !ok {
				monitoring.Warnf("multiplex: %s record %d lacks one of %v, skipping", input.Name, k, modelDef)
				continue
			}
			v, ok := rec[figure]
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				monitoring.Warnf("multiplex: %s record %d (%s) has no usable %s, skipping", input.Name, k, key, figure)
				continue
			}
			cur, seen := chosen[key]
			if !seen {
				order = append(order, key)
				chosen[key] = &best{rec: rec, input: in, value: v}
				continue
			}
			if v < cur.value {
				*cur = best{rec: rec, input: in, value: v}
			}
		}
	}

	res := &Result{
		Records: make([]contour.Record, 0, len(order)),
		Choices: make([]Choice, 0, len(order)),
	}
	for _, key := range order {
		b := chosen[key]
		rec := make(contour.Record, len(b.rec)+1)
		for k, v := range b.rec {
			rec[k] = v
		}
		rec[InputField] = float64(b.input)
		res.Records = append(res.Records, rec)
		res.Choices = append(res.Choices, Choice{Key: key, Input: inputs[b.input].Name, Value: b.value})
	}
	return res, nil
}

// modelKey formats the model parameters of rec as "msb=900,mn2=400".
func modelKey(rec contour.Record, modelDef []string) (string, bool) {
	parts := make([]string, len(modelDef))
	for i, name := range modelDef {
		v, ok := rec[name]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return "", false
		}
		parts[i] = fmt.Sprintf("%s=%g", name, v)
	}
	return strings.Join(parts, ","), true
}

// Wins counts how many model points each input won.
func (r *Result) Wins() map[string]int {
	out := make(map[string]int)
	for _, c := range r.Choices {
		out[c.Input]++
	}
	return out
}
