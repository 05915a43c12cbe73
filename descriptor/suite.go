package descriptor

import (
	"fmt"
	"os"

	"github.com/solverify/solverify/model"
	"gopkg.in/yaml.v2"
)

// Suite declares the verification tests of a project: plain jobs run as
// they are, parametric templates are expanded into one job per parameter
// combination.
type Suite struct {
	Tests      []SuiteTest   `yaml:"tests"`
	Parametric []SuiteMatrix `yaml:"parametric"`
}

// SuiteTest names one input deck to run.
type SuiteTest struct {
	Job string `yaml:"job"`
}

// SuiteMatrix declares a parametric template job: the base deck, the
// parameter domains to take the Cartesian product of, and optional
// expected-value overrides zipped positionally to the product.
type SuiteMatrix struct {
	Base string `yaml:"base"`
	// Script indicates the input deck is produced by running the
	// template's model-generation script through the solver.
	Script     bool        `yaml:"script"`
	Parameters []rawDomain `yaml:"parameters"`
	Expected   []rawDomain `yaml:"expected"`
}

// rawDomain accepts scalar values of any YAML type and normalizes them
// into the substitutable text tokens the matrix generator works with.
type rawDomain struct {
	Name   string        `yaml:"name"`
	Values []interface{} `yaml:"values"`
}

func (d rawDomain) domain() (model.Domain, error) {
	out := model.Domain{Name: d.Name, Values: make([]string, 0, len(d.Values))}
	for _, v := range d.Values {
		switch v.(type) {
		case string, int, int64, float64, bool:
			out.Values = append(out.Values, fmt.Sprintf("%v", v))
		default:
			return model.Domain{}, fmt.Errorf("parameter %q: value %v is not a scalar", d.Name, v)
		}
	}
	return out, nil
}

// Domains converts the declared parameter domains, preserving order.
func (m SuiteMatrix) Domains() ([]model.Domain, error) {
	return convertDomains(m.Parameters)
}

// ExpectedDomains converts the declared expected-value overrides.
func (m SuiteMatrix) ExpectedDomains() ([]model.Domain, error) {
	return convertDomains(m.Expected)
}

func convertDomains(raw []rawDomain) ([]model.Domain, error) {
	out := make([]model.Domain, 0, len(raw))
	for _, d := range raw {
		conv, err := d.domain()
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, nil
}

// LoadSuite parses the suite file at path.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Suite
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return nil, parseError(path, err)
	}
	return &s, nil
}
