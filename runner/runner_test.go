package runner

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/solverify/solverify/model"
	"github.com/solverify/solverify/remote"
	"github.com/stretchr/testify/require"
)

// stubExecutor records lifecycle calls and simulates the artifacts a
// real solver run would leave behind.
type stubExecutor struct {
	cfg model.Config

	results      string
	containerErr error
	executeErr   error

	executed    bool
	postRun     bool
	expirations []time.Duration
}

func (s *stubExecutor) Prepare() error                              { return nil }
func (s *stubExecutor) GenerateModel(model.Job, io.Writer) error    { return nil }
func (s *stubExecutor) Stage(model.Job) error                       { return nil }
func (s *stubExecutor) CheckContainer(model.Job) error              { return s.containerErr }
func (s *stubExecutor) Retrieve(model.Job) []remote.TransferResult { return nil }
func (s *stubExecutor) Close()                                      {}

func (s *stubExecutor) Execute(job model.Job, logw io.Writer, timer *PhaseTimer, expiration time.Duration) error {
	s.executed = true
	s.expirations = append(s.expirations, expiration)
	return s.executeErr
}

func (s *stubExecutor) PostProcess(job model.Job, logw io.Writer, timer *PhaseTimer) error {
	s.postRun = true
	if s.results != "" {
		return os.WriteFile(s.ResultsPath(job), []byte(s.results), 0o644)
	}
	return nil
}

func (s *stubExecutor) ResultsPath(job model.Job) string {
	return filepath.Join(s.cfg.OutputDir, job.Name+"_results.yaml")
}

func newTestRunner(t *testing.T, expected string) (*Runner, *stubExecutor, model.Config) {
	t.Helper()
	work := t.TempDir()
	out := filepath.Join(work, "testOutput")
	require.NoError(t, os.Mkdir(out, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(work, "tension_expected.yaml"), []byte(expected), 0o644))

	cfg := model.Config{WorkDir: work, OutputDir: out}
	exec := &stubExecutor{cfg: cfg}
	return New(zerolog.Nop(), cfg, exec), exec, cfg
}

const passingResults = `results:
- identifier: S11
  referenceValue: 17100.0
  computedValue: 17100.4
  tolerance: 1.0
`

func TestRunJob_Pass(t *testing.T) {
	r, exec, cfg := newTestRunner(t, "results: []\n")
	exec.results = passingResults

	out := r.RunJob(model.TestCase{JobName: "tension"})
	require.True(t, out.Passed())
	require.Equal(t, model.OutcomePass, out.Kind)
	require.True(t, exec.executed)
	require.True(t, exec.postRun)

	// The job log artifact was created.
	_, err := os.Stat(filepath.Join(cfg.OutputDir, "tension.log"))
	require.NoError(t, err)
}

func TestRunJob_AssertionFailure(t *testing.T) {
	r, exec, _ := newTestRunner(t, "results: []\n")
	exec.results = `results:
- identifier: S11
  referenceValue: 17100.0
  computedValue: 17200.0
  tolerance: 1.0
`

	out := r.RunJob(model.TestCase{JobName: "tension"})
	require.Equal(t, model.OutcomeAssertionFailure, out.Kind)
	require.Error(t, out.Err)
	require.Contains(t, out.Err.Error(), "S11")
}

func TestRunJob_MissingResults(t *testing.T) {
	r, _, _ := newTestRunner(t, "results: []\n")

	out := r.RunJob(model.TestCase{JobName: "tension"})
	require.Equal(t, model.OutcomeMissingArtifact, out.Kind)

	var merr *model.MissingResultsError
	require.ErrorAs(t, out.Err, &merr)
	require.Contains(t, merr.Path, "tension_results.yaml")
}

func TestRunJob_MissingContainer(t *testing.T) {
	r, exec, _ := newTestRunner(t, "results: []\n")
	exec.containerErr = &model.ExecutionError{Job: "tension", Reason: "no result container produced"}

	out := r.RunJob(model.TestCase{JobName: "tension"})
	require.Equal(t, model.OutcomeExecutionFailure, out.Kind)
	require.False(t, exec.postRun)
}

func TestRunJob_UseExistingResultsSkipsExecution(t *testing.T) {
	r, exec, cfg := newTestRunner(t, "results: []\n")
	exec.results = passingResults
	cfg.UseExistingResults = true
	r = New(zerolog.Nop(), cfg, exec)

	out := r.RunJob(model.TestCase{JobName: "tension"})
	require.True(t, out.Passed())
	require.False(t, exec.executed)
	require.True(t, exec.postRun)
}

func TestRunJob_ExpirationOverride(t *testing.T) {
	r, exec, cfg := newTestRunner(t, "expiration: 90\nresults: []\n")
	exec.results = passingResults
	cfg.Expiration = 600
	r = New(zerolog.Nop(), cfg, exec)

	r.RunJob(model.TestCase{JobName: "tension"})
	require.Equal(t, []time.Duration{90 * time.Second}, exec.expirations)

	// A second job without an override falls back to the run-wide value.
	require.NoError(t, os.WriteFile(filepath.Join(cfg.WorkDir, "shear_expected.yaml"), []byte("results: []\n"), 0o644))
	r.RunJob(model.TestCase{JobName: "shear"})
	require.Equal(t, 600*time.Second, exec.expirations[1])
}

func TestRunJob_MissingExpectedDescriptor(t *testing.T) {
	r, _, _ := newTestRunner(t, "results: []\n")

	out := r.RunJob(model.TestCase{JobName: "unknown"})
	require.Equal(t, model.OutcomeExecutionFailure, out.Kind)
	var serr *model.StagingError
	require.ErrorAs(t, out.Err, &serr)
}

func TestRunGenerated_CleansUpOnFailure(t *testing.T) {
	r, exec, cfg := newTestRunner(t, "results: []\n")
	exec.results = passingResults

	// Template files for the generated case.
	require.NoError(t, os.WriteFile(filepath.Join(cfg.WorkDir, "panel.inp"), []byte("load = X\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.WorkDir, "panel_expected.yaml"), []byte("results: []\n"), 0o644))

	gc := GeneratedCase{
		Name:   "panel_load=15",
		Base:   "panel",
		Params: []model.Param{{Name: "load", Value: "1.5"}},
	}
	out := r.RunGenerated(gc)
	require.True(t, out.Passed())

	// The synthesized files are removed after the run.
	_, err := os.Stat(filepath.Join(cfg.WorkDir, "panel_load=15.inp"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(cfg.WorkDir, "panel_load=15_expected.yaml"))
	require.True(t, os.IsNotExist(err))
}
