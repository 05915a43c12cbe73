package runner

import (
	"fmt"
	"os"
	"strings"

	"github.com/solverify/solverify/model"
)

// MatrixSpec declares a parametric template: a base job whose input
// files get copied and rewritten once per combination of parameter
// values.
type MatrixSpec struct {
	// Base is the template job name.
	Base string
	// Script indicates the input deck is produced by a model-generation
	// script; substitution then targets the script instead of the deck.
	Script bool
	// Domains are the parameter value domains, leftmost varying slowest
	// in the expansion.
	Domains []model.Domain
	// Expected are optional expected-value overrides whose domains are
	// zipped positionally to the expanded combinations.
	Expected []model.Domain
}

// GeneratedCase is one expanded combination: a synthetic job name, the
// parameter bindings to substitute into the template's input files, and
// the expected-value overrides for its descriptor.
type GeneratedCase struct {
	Name        string
	Base        string
	Params      []model.Param
	Overrides   []model.Param
	ModelScript bool
}

// ExpandMatrix produces the Cartesian product of the declared domains,
// leftmost domain varying slowest. Every expected-value override domain
// must carry exactly one value per combination.
func ExpandMatrix(spec MatrixSpec) ([]GeneratedCase, error) {
	if len(spec.Domains) == 0 {
		return nil, fmt.Errorf("parametric template %q declares no parameters", spec.Base)
	}
	total := 1
	for _, d := range spec.Domains {
		if len(d.Values) == 0 {
			return nil, fmt.Errorf("parameter %q of template %q has no values", d.Name, spec.Base)
		}
		total *= len(d.Values)
	}
	for _, d := range spec.Expected {
		if len(d.Values) != total {
			return nil, fmt.Errorf("expected override %q of template %q has %d values; the expansion has %d combinations",
				d.Name, spec.Base, len(d.Values), total)
		}
	}

	cases := make([]GeneratedCase, 0, total)
	for i := 0; i < total; i++ {
		params := combinationAt(spec.Domains, i, total)
		gc := GeneratedCase{
			Name:        caseName(spec.Base, params),
			Base:        spec.Base,
			Params:      params,
			ModelScript: spec.Script,
		}
		for _, d := range spec.Expected {
			gc.Overrides = append(gc.Overrides, model.Param{Name: d.Name, Value: d.Values[i]})
		}
		cases = append(cases, gc)
	}
	return cases, nil
}

// combinationAt decodes combination index i with the leftmost domain as
// the most significant digit.
func combinationAt(domains []model.Domain, i, total int) []model.Param {
	params := make([]model.Param, 0, len(domains))
	stride := total
	for _, d := range domains {
		stride /= len(d.Values)
		idx := (i / stride) % len(d.Values)
		params = append(params, model.Param{Name: d.Name, Value: d.Values[idx]})
	}
	return params
}

// caseName synthesizes the job name for one combination. Periods would
// collide with extension handling downstream, so they are stripped from
// the value tokens.
func caseName(base string, params []model.Param) string {
	parts := []string{base}
	for _, p := range params {
		parts = append(parts, p.Name+"="+strings.ReplaceAll(p.Value, ".", ""))
	}
	return strings.Join(parts, "_")
}

// Materialize copies the template's input files under the generated
// case's name into dir, substituting the parameter bindings. The
// returned cleanup removes everything it created; it is safe to call
// even when materialization failed partway.
func Materialize(dir string, gc GeneratedCase) (func(), error) {
	var created []string
	cleanup := func() {
		for _, path := range created {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "failed to remove generated file %s: %v\n", path, err)
			}
		}
	}

	base := model.Job{Name: gc.Base, Dir: dir}
	gen := model.Job{Name: gc.Name, Dir: dir}

	if gc.ModelScript {
		if err := materializeFile(base.ScriptPath(), gen.ScriptPath(), gc.Params, "="); err != nil {
			return cleanup, err
		}
		created = append(created, gen.ScriptPath())
		// The script writes the deck under the generated name; the run
		// leaves it behind otherwise.
		created = append(created, gen.DeckPath())
	} else {
		if err := materializeFile(base.DeckPath(), gen.DeckPath(), gc.Params, "="); err != nil {
			return cleanup, err
		}
		created = append(created, gen.DeckPath())
	}

	overrides := append(append([]model.Param{}, gc.Params...), gc.Overrides...)
	if err := materializeFile(base.ExpectedPath(), gen.ExpectedPath(), overrides, ":"); err != nil {
		return cleanup, err
	}
	created = append(created, gen.ExpectedPath())
	return cleanup, nil
}

func materializeFile(src, dst string, params []model.Param, sep string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return &model.StagingError{Path: src, Err: err}
	}
	out := substituteParams(string(data), params, sep)
	if err := os.WriteFile(dst, []byte(out), 0o644); err != nil {
		return &model.StagingError{Path: dst, Err: err}
	}
	return nil
}

// substituteParams rewrites, for each parameter, the first line where
// the parameter name is followed by the separator: everything after the
// separator becomes the bound value. A line that mentions the name only
// after a separator does not match, and later matching lines are left
// alone.
func substituteParams(text string, params []model.Param, sep string) string {
	lines := strings.Split(text, "\n")
	for _, p := range params {
		for i, line := range lines {
			nameIdx := strings.Index(line, p.Name)
			if nameIdx < 0 || !strings.Contains(line[nameIdx+len(p.Name):], sep) {
				continue
			}
			lines[i] = line[:strings.Index(line, sep)] + sep + " " + p.Value
			break
		}
	}
	return strings.Join(lines, "\n")
}
