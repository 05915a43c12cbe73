package runner

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/rs/zerolog"
	"github.com/solverify/solverify/model"
	"github.com/solverify/solverify/remote"
)

// interruptMarker is written into the job log when the expiration
// watchdog terminates the analysis.
const interruptMarker = "SOLVERIFY INTERRUPT: job expiration time reached; terminating the analysis.\n"

// LocalExecutor runs solver jobs as child processes on this machine,
// with the output directory as the working directory.
type LocalExecutor struct {
	cfg    model.Config
	logger zerolog.Logger
	clk    clock.Clock

	subroutine string
}

// NewLocalExecutor returns an executor for local solver runs.
func NewLocalExecutor(logger zerolog.Logger, cfg model.Config) *LocalExecutor {
	return &LocalExecutor{
		cfg:    cfg,
		logger: logger,
		clk:    clock.NewClock(),
	}
}

// Prepare creates the output directory, clearing stale artifacts unless
// they were asked to be kept, resolves the user subroutine and verifies
// the environment file when running precompiled.
func (e *LocalExecutor) Prepare() error {
	if err := prepareOutputDir(e.cfg); err != nil {
		return err
	}
	if e.cfg.Precompiled {
		if err := EnsureEnvironmentFile(e.cfg); err != nil {
			return err
		}
		return nil
	}
	sub, err := resolveSubroutine(e.cfg)
	if err != nil {
		return &model.StagingError{Path: e.cfg.SubroutinePath, Err: err}
	}
	e.subroutine = sub
	return nil
}

// prepareOutputDir makes sure the output directory exists. Artifacts
// from previous runs are removed unless KeepOutput is set or existing
// results are being verified.
func prepareOutputDir(cfg model.Config) error {
	info, err := os.Stat(cfg.OutputDir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return &model.StagingError{Path: cfg.OutputDir, Err: err}
		}
		return nil
	case err != nil:
		return &model.StagingError{Path: cfg.OutputDir, Err: err}
	case !info.IsDir():
		return &model.StagingError{Path: cfg.OutputDir, Err: fmt.Errorf("not a directory")}
	}

	if cfg.KeepOutput || cfg.UseExistingResults {
		return nil
	}
	entries, err := os.ReadDir(cfg.OutputDir)
	if err != nil {
		return &model.StagingError{Path: cfg.OutputDir, Err: err}
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(cfg.OutputDir, entry.Name())); err != nil {
			return &model.StagingError{Path: filepath.Join(cfg.OutputDir, entry.Name()), Err: err}
		}
	}
	return nil
}

// GenerateModel runs the job's model-generation script through the
// solver to produce the input deck next to it.
func (e *LocalExecutor) GenerateModel(job model.Job, logw io.Writer) error {
	script, err := filepath.Abs(job.ScriptPath())
	if err != nil {
		return &model.StagingError{Path: job.ScriptPath(), Err: err}
	}
	cmd := exec.Command(e.cfg.SolverCmd, modelScriptArgs(script)...)
	cmd.Dir = e.cfg.WorkDir
	e.logger.Debug().Str("job", job.Name).Str("script", script).Msg("Generating input deck")
	if err := e.stream(cmd, logw, nil); err != nil {
		return &model.ExecutionError{Job: job.Name, Reason: "model generation failed", Err: err}
	}
	if _, err := os.Stat(job.DeckPath()); err != nil {
		return &model.ExecutionError{Job: job.Name, Reason: "model generation produced no input deck", Err: err}
	}
	return nil
}

// Stage copies the input deck into the output directory so the solver
// picks it up from its working directory.
func (e *LocalExecutor) Stage(job model.Job) error {
	dst := filepath.Join(e.cfg.OutputDir, job.Name+".inp")
	if err := copyFile(job.DeckPath(), dst); err != nil {
		return &model.StagingError{Path: job.DeckPath(), Err: err}
	}
	return nil
}

// Execute runs the solver for the job. Output is streamed line by line
// into the log artifact (and stdout when interactive) and through the
// phase timer. A non-zero solver exit is logged but not fatal here; the
// container check decides whether the run produced anything usable.
func (e *LocalExecutor) Execute(job model.Job, logw io.Writer, timer *PhaseTimer, expiration time.Duration) error {
	cmd := exec.Command(e.cfg.SolverCmd, solverArgs(e.cfg, job.Name, e.subroutine)...)
	cmd.Dir = e.cfg.OutputDir
	e.logger.Debug().Str("job", job.Name).Strs("args", cmd.Args).Msg("Starting solver")

	watchdog := NewWatchdog(e.clk)
	watchdog.Arm(expiration, func() {
		io.WriteString(logw, interruptMarker)
		e.logger.Warn().Str("job", job.Name).Msg("Time budget elapsed; terminating the analysis")
		term := exec.Command(e.cfg.SolverCmd, terminateArgs(job.Name)...)
		term.Dir = e.cfg.OutputDir
		if out, err := term.CombinedOutput(); err != nil {
			e.logger.Warn().Err(err).Str("output", string(out)).Msg("Terminate request failed")
		}
	})
	defer watchdog.Disarm()

	if err := e.stream(cmd, e.sink(logw), timer); err != nil {
		e.logger.Warn().Str("job", job.Name).Err(err).Msg("Solver exited with an error")
	}
	return nil
}

// sink merges the log artifact with stdout for interactive runs.
func (e *LocalExecutor) sink(logw io.Writer) io.Writer {
	if e.cfg.Interactive {
		return io.MultiWriter(logw, os.Stdout)
	}
	return logw
}

// stream starts cmd with merged stdout/stderr and feeds each line to the
// sink and the phase timer until the process exits.
func (e *LocalExecutor) stream(cmd *exec.Cmd, sink io.Writer, timer *PhaseTimer) error {
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return err
	}
	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		done <- err
	}()

	streamErr := StreamLines(pr, func(line string) {
		fmt.Fprintln(sink, line)
		if timer != nil {
			timer.ProcessLine(line)
		}
	})
	waitErr := <-done
	if waitErr != nil {
		return waitErr
	}
	return streamErr
}

// CheckContainer verifies the solver produced a result container.
func (e *LocalExecutor) CheckContainer(job model.Job) error {
	container := filepath.Join(e.cfg.OutputDir, job.Name+".odb")
	if _, err := os.Stat(container); err != nil {
		return &model.ExecutionError{Job: job.Name, Reason: "no result container produced", Err: err}
	}
	return nil
}

// PostProcess invokes the post-processing script against the container,
// streaming its output into the same job log.
func (e *LocalExecutor) PostProcess(job model.Job, logw io.Writer, timer *PhaseTimer) error {
	script, err := filepath.Abs(e.cfg.PostProcessScript)
	if err != nil {
		return &model.StagingError{Path: e.cfg.PostProcessScript, Err: err}
	}
	cmd := exec.Command(e.cfg.SolverCmd, postProcessArgs(e.cfg, script, job.Name)...)
	cmd.Dir = e.cfg.OutputDir
	e.logger.Debug().Str("job", job.Name).Msg("Post-processing results")
	if err := e.stream(cmd, e.sink(logw), timer); err != nil {
		return &model.ExecutionError{Job: job.Name, Reason: "post-processing failed", Err: err}
	}
	return nil
}

// Retrieve is a no-op for local runs; artifacts are already in the
// output directory.
func (e *LocalExecutor) Retrieve(job model.Job) []remote.TransferResult {
	return nil
}

// ResultsPath returns where post-processing writes the structured
// results for the job.
func (e *LocalExecutor) ResultsPath(job model.Job) string {
	return filepath.Join(e.cfg.OutputDir, job.Name+"_results.yaml")
}

// Close releases nothing; local runs hold no persistent resources.
func (e *LocalExecutor) Close() {}

// copyFile copies src to dst, truncating any existing file.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
