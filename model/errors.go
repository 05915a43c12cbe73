package model

import "fmt"

// StagingError reports a failure to prepare a job's working files before
// the solver was invoked. It is fatal and never retried.
type StagingError struct {
	Path string
	Err  error
}

func (e *StagingError) Error() string {
	return fmt.Sprintf("staging %s: %v", e.Path, e.Err)
}

func (e *StagingError) Unwrap() error { return e.Err }

// ExecutionError reports that the solver run did not produce a result
// container, either because the process could not be started or because
// it exited (or was terminated by the watchdog) before writing one.
type ExecutionError struct {
	Job    string
	Reason string
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job %s: %s: %v", e.Job, e.Reason, e.Err)
	}
	return fmt.Sprintf("job %s: %s", e.Job, e.Reason)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// MissingResultsError reports that the post-processing step did not
// produce a structured results file at the expected path.
type MissingResultsError struct {
	Path string
}

func (e *MissingResultsError) Error() string {
	return fmt.Sprintf("no results file produced by post-processing; looking for %q", e.Path)
}
