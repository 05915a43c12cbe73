package model

import (
	"fmt"
	"path/filepath"
)

// Config is the run-wide configuration. It is constructed once at startup
// and passed by value to every component; nothing mutates it afterwards.
// The per-job expiration override from the expected descriptor travels as
// a separate parameter, never back into Config.
type Config struct {
	// SolverCmd is the command used to invoke the solver (e.g. "abaqus").
	SolverCmd string
	// PostProcessScript is the path to the post-processing script that
	// turns a result container into a structured results file.
	PostProcessScript string
	// SubroutinePath is the relative path to the user subroutine source,
	// without the file extension.
	SubroutinePath string
	// Precompiled indicates the subroutine has been compiled into a shared
	// library registered via the environment file; no user= argument is
	// passed to the solver.
	Precompiled bool
	// EnvFileName is the name of the local environment file declaring the
	// solver library search path.
	EnvFileName string
	// OutputDir is the local directory receiving logs, containers and
	// structured results.
	OutputDir string
	// WorkDir is the directory holding the input decks and descriptors.
	WorkDir string

	// Cpus is forwarded to the solver when greater than one.
	Cpus int
	// Double submits jobs with double precision (double=both).
	Double bool
	// Interactive echoes solver output to stdout while it is captured.
	Interactive bool
	// TimePhases enables the run-time instrumentation of the solver log.
	TimePhases bool
	// DiscardXYData is forwarded to the post-processing step so it does
	// not save intermediate x-y data back into the container.
	DiscardXYData bool
	// UseExistingResults skips solver execution and verifies results
	// already present in OutputDir.
	UseExistingResults bool
	// KeepOutput leaves previously produced files in OutputDir.
	KeepOutput bool
	// Expiration is the run-wide time budget per job in seconds.
	// Non-positive means no limit.
	Expiration int

	// RemoteTarget selects remote execution when non-empty:
	// user@host[:port][/runDir].
	RemoteTarget string
}

// Job is one named unit of solver execution derived from an input deck.
type Job struct {
	// Name of the input deck without the .inp extension.
	Name string
	// Dir is the directory containing the deck and expected descriptor.
	Dir string
}

// DeckPath returns the path to the job's input deck.
func (j Job) DeckPath() string {
	return filepath.Join(j.Dir, j.Name+".inp")
}

// ExpectedPath returns the path to the job's expected descriptor.
func (j Job) ExpectedPath() string {
	return filepath.Join(j.Dir, j.Name+"_expected.yaml")
}

// ScriptPath returns the path to the job's model-generation script.
func (j Job) ScriptPath() string {
	return filepath.Join(j.Dir, j.Name+".py")
}

// TestCase is one scheduled test: the job to run and whether its input
// deck is produced by a model-generation script first.
type TestCase struct {
	JobName     string
	ModelScript bool
}

// Domain is an ordered sequence of candidate values for one parameter.
type Domain struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
}

// Param is one parameter name bound to a concrete value.
type Param struct {
	Name  string
	Value string
}

// ResultRecord is one comparison unit from a structured results file.
// Fields decoded from YAML keep their dynamic shape: scalars, sequences,
// or sequences of fixed-size tuples. A nil field means the key was absent.
type ResultRecord struct {
	Type           string      `yaml:"type,omitempty" json:"type,omitempty"`
	Identifier     interface{} `yaml:"identifier,omitempty" json:"identifier,omitempty"`
	ReferenceValue interface{} `yaml:"referenceValue,omitempty" json:"referenceValue,omitempty"`
	ComputedValue  interface{} `yaml:"computedValue,omitempty" json:"computedValue,omitempty"`
	Tolerance      interface{} `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
}

// Label describes the record for failure messages.
func (r ResultRecord) Label() string {
	if s, ok := r.Identifier.(string); ok && s != "" {
		return s
	}
	if r.Identifier != nil {
		return fmt.Sprintf("%v", r.Identifier)
	}
	if r.Type != "" {
		return r.Type
	}
	return "result"
}

// OutcomeKind classifies the terminal state of one job.
type OutcomeKind int

const (
	// OutcomePass means every result record was within tolerance.
	OutcomePass OutcomeKind = iota
	// OutcomeAssertionFailure means a result record fell outside its
	// tolerance or a required exact equality did not hold.
	OutcomeAssertionFailure
	// OutcomeMissingArtifact means the structured results file was not
	// produced by the post-processing step.
	OutcomeMissingArtifact
	// OutcomeExecutionFailure covers staging, solver and transfer errors.
	OutcomeExecutionFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePass:
		return "pass"
	case OutcomeAssertionFailure:
		return "assertion-failure"
	case OutcomeMissingArtifact:
		return "missing-artifact"
	case OutcomeExecutionFailure:
		return "execution-failure"
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// Outcome is the terminal result of one job.
type Outcome struct {
	Job    string
	Kind   OutcomeKind
	Err    error
	Phases *PhaseTimes
}

// Passed reports whether the job completed without any failure.
func (o Outcome) Passed() bool {
	return o.Kind == OutcomePass
}
