package runner

// Package runner drives the per-job verification lifecycle: prepare the
// working files, invoke the solver (locally or over a remote shell)
// through the line streamer with the phase timer and expiration watchdog
// attached, post-process the result container, and compare the
// structured results against their tolerances.

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/rs/zerolog"
	"github.com/solverify/solverify/compare"
	"github.com/solverify/solverify/descriptor"
	"github.com/solverify/solverify/model"
	"github.com/solverify/solverify/remote"
)

// Executor abstracts the execution target. Local and remote targets
// share the same contract; only the file plumbing differs.
type Executor interface {
	// Prepare sets up the run-wide working environment once before any
	// job executes.
	Prepare() error
	// GenerateModel produces the input deck from a model-generation
	// script, streaming the output into the log artifact.
	GenerateModel(job model.Job, logw io.Writer) error
	// Stage copies the job's input files into the execution working
	// location. Any failure here is fatal for the job.
	Stage(job model.Job) error
	// Execute runs the solver for the job, piping all output through the
	// line streamer into the timer (if any) and the log artifact. The
	// expiration duration arms the watchdog; zero means no limit.
	Execute(job model.Job, logw io.Writer, timer *PhaseTimer, expiration time.Duration) error
	// CheckContainer verifies the result container was produced.
	CheckContainer(job model.Job) error
	// PostProcess invokes the external post-processing step that turns
	// the result container into a structured results file.
	PostProcess(job model.Job, logw io.Writer, timer *PhaseTimer) error
	// Retrieve performs best-effort retrieval of result artifacts,
	// returning one explicit result per transfer attempt.
	Retrieve(job model.Job) []remote.TransferResult
	// ResultsPath is the local path of the job's structured results file.
	ResultsPath(job model.Job) string
	// Close releases the executor's resources.
	Close()
}

// Runner is the test lifecycle controller. It processes jobs one at a
// time; the only concurrency underneath is the expiration watchdog.
type Runner struct {
	cfg    model.Config
	logger zerolog.Logger
	clk    clock.Clock
	exec   Executor
	diag   io.Writer
}

// New returns a controller running jobs through exec.
func New(logger zerolog.Logger, cfg model.Config, exec Executor) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logger,
		clk:    clock.NewClock(),
		exec:   exec,
		diag:   os.Stderr,
	}
}

// RunJob executes one verification test end to end and classifies its
// outcome: prepare inputs, run the solver, post-process, retrieve and
// compare. With UseExistingResults the execution steps are skipped and
// previously produced results are verified.
func (r *Runner) RunJob(tc model.TestCase) model.Outcome {
	job := model.Job{Name: tc.JobName, Dir: r.cfg.WorkDir}
	out := model.Outcome{Job: tc.JobName}

	r.logger.Info().Str("job", tc.JobName).Msg("Running verification test")

	var timer *PhaseTimer
	if r.cfg.TimePhases {
		timer = NewPhaseTimer(r.clk, r.diag, r.logger)
	}

	out.Kind, out.Err = r.runJob(job, tc, timer)
	if timer != nil {
		out.Phases = timer.Durations()
	}

	if out.Passed() {
		r.logger.Info().Str("job", tc.JobName).Msg("Test passed")
	} else {
		r.logger.Error().Str("job", tc.JobName).Str("outcome", out.Kind.String()).Err(out.Err).Msg("Test failed")
	}
	return out
}

func (r *Runner) runJob(job model.Job, tc model.TestCase, timer *PhaseTimer) (model.OutcomeKind, error) {
	expected, err := descriptor.LoadExpected(job.ExpectedPath())
	if err != nil {
		return model.OutcomeExecutionFailure, &model.StagingError{Path: job.ExpectedPath(), Err: err}
	}

	// Job-scoped expiration override; it never leaks back into the
	// run-wide configuration.
	expiration := r.cfg.Expiration
	if expected.Expiration != nil {
		expiration = *expected.Expiration
	}
	var budget time.Duration
	if expiration > 0 {
		budget = time.Duration(expiration) * time.Second
	}
	r.logger.Debug().Str("job", job.Name).Str("expiration", formatExpiration(expiration)).Msg("Resolved time budget")

	logPath := filepath.Join(r.cfg.OutputDir, job.Name+".log")
	logFile, err := os.Create(logPath)
	if err != nil {
		return model.OutcomeExecutionFailure, &model.StagingError{Path: logPath, Err: err}
	}
	defer logFile.Close()

	if !r.cfg.UseExistingResults {
		if tc.ModelScript {
			if err := r.exec.GenerateModel(job, logFile); err != nil {
				return model.OutcomeExecutionFailure, err
			}
		}
		if err := r.exec.Stage(job); err != nil {
			return model.OutcomeExecutionFailure, err
		}
		if err := r.exec.Execute(job, logFile, timer, budget); err != nil {
			return model.OutcomeExecutionFailure, err
		}
	}

	if err := r.exec.CheckContainer(job); err != nil {
		return model.OutcomeExecutionFailure, err
	}

	if err := r.exec.PostProcess(job, logFile, timer); err != nil {
		return model.OutcomeExecutionFailure, err
	}

	for _, tr := range r.exec.Retrieve(job) {
		evt := r.logger.Debug()
		if tr.Status == remote.TransferError {
			evt = r.logger.Warn().Err(tr.Err)
		}
		evt.Str("remote", tr.Remote).Str("status", tr.Status.String()).Msg("Artifact retrieval")
	}

	resultsPath := r.exec.ResultsPath(job)
	records, err := descriptor.LoadResults(resultsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return model.OutcomeMissingArtifact, &model.MissingResultsError{Path: resultsPath}
		}
		return model.OutcomeExecutionFailure, err
	}

	if err := compare.Records(records); err != nil {
		return model.OutcomeAssertionFailure, err
	}
	return model.OutcomePass, nil
}

// RunGenerated materializes a parametric test case, runs it like any
// other job, and removes the synthesized files whether the test passed,
// failed or aborted.
func (r *Runner) RunGenerated(gc GeneratedCase) model.Outcome {
	cleanup, err := Materialize(r.cfg.WorkDir, gc)
	defer cleanup()
	if err != nil {
		return model.Outcome{
			Job:  gc.Name,
			Kind: model.OutcomeExecutionFailure,
			Err:  err,
		}
	}
	return r.RunJob(model.TestCase{JobName: gc.Name, ModelScript: gc.ModelScript})
}
