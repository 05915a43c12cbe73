package model

import "time"

// RunReport records one harness invocation and the outcome of every job
// it ran. It is written as report.json into the output directory.
type RunReport struct {
	// Unique ID for this run (16 random bytes, hex encoded)
	ID string `json:"id"`
	// Timestamp when the run started
	Timestamp time.Time `json:"timestamp"`
	// Command-line arguments (including command name)
	Args []string `json:"args"`
	// Working directory the harness was invoked from
	WorkDir string `json:"workdir"`
	// Duration of the whole run
	Duration time.Duration `json:"duration"`
	// Target execution environment
	Target *Target `json:"target,omitempty"`
	// Per-job outcomes in execution order
	Jobs []JobReport `json:"jobs"`
}

// Target describes where the solver jobs executed.
type Target struct {
	// Remote host specifier (empty for local execution)
	RemoteHost string `json:"remote_host,omitempty"`
	// Remote run directory (remote execution only)
	RunDir string `json:"run_dir,omitempty"`
}

// JobReport is the recorded outcome of a single job.
type JobReport struct {
	Name     string        `json:"name"`
	Outcome  string        `json:"outcome"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	// Phase durations from the run-time instrumentation, if enabled
	Phases *PhaseTimes `json:"phases,omitempty"`
	// Generated marks cases synthesized by the parametric matrix
	Generated bool `json:"generated,omitempty"`
}

// PhaseTimes holds the measured solver phase durations in seconds.
// A nil pointer means the phase never closed.
type PhaseTimes struct {
	Compile *float64 `json:"compile,omitempty"`
	Package *float64 `json:"package,omitempty"`
	Solve   *float64 `json:"solve,omitempty"`
}
