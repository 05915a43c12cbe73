package descriptor

// Package descriptor loads the declarative files the harness consumes:
// per-job expected descriptors, structured results files, suite files
// and remote options. All of them are YAML documents parsed into fixed
// schemas; malformed input fails with a ParseError naming the offending
// line.

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/solverify/solverify/model"
	"gopkg.in/yaml.v2"
)

// ParseError reports malformed descriptor input. Line is zero when the
// parser could not attribute the failure to a specific line.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var yamlLineRe = regexp.MustCompile(`line (\d+)`)

func parseError(path string, err error) error {
	line := 0
	if m := yamlLineRe.FindStringSubmatch(err.Error()); m != nil {
		line, _ = strconv.Atoi(m[1])
	}
	return &ParseError{Path: path, Line: line, Err: err}
}

// Expected is a per-job expected descriptor: the parameters declared for
// the job, including the optional expiration override in seconds.
//
// The harness itself consumes only Expiration. Results declares the
// reference values and tolerances the post-processing script composes
// with computed values into the job's structured results file; it is
// decoded here so malformed records fail the job at staging time, before
// the solver runs, and so parametric expected-value overrides rewrite a
// validated file.
type Expected struct {
	Expiration *int                 `yaml:"expiration"`
	Results    []model.ResultRecord `yaml:"results"`
}

// LoadExpected parses the expected descriptor at path.
func LoadExpected(path string) (*Expected, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var e Expected
	if err := yaml.UnmarshalStrict(data, &e); err != nil {
		return nil, parseError(path, err)
	}
	return &e, nil
}

// resultsFile is the schema of a structured results file produced by the
// post-processing step.
type resultsFile struct {
	Results []model.ResultRecord `yaml:"results"`
}

// LoadResults parses the structured results file at path into the ordered
// list of result records. A missing file surfaces as the os.ReadFile
// error so the caller can distinguish absence from malformed content.
func LoadResults(path string) ([]model.ResultRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f resultsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, parseError(path, err)
	}
	return f.Results, nil
}
