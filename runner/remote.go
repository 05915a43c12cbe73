package runner

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/rs/zerolog"
	"github.com/solverify/solverify/descriptor"
	"github.com/solverify/solverify/model"
	"github.com/solverify/solverify/remote"
)

// remoteEnvName is the canonical name the solver expects for its
// environment file in the remote run directory.
const remoteEnvName = "abaqus_v6.env"

// RemoteExecutor runs solver jobs on a remote host over the harness's
// single reused connection. Inputs are uploaded into a flat run
// directory; results come back into the local output directory.
type RemoteExecutor struct {
	cfg    model.Config
	opts   descriptor.RemoteOptions
	logger zerolog.Logger
	clk    clock.Clock
	client *remote.Client
	runDir string
}

// NewRemoteExecutor returns an executor dispatching jobs through client.
func NewRemoteExecutor(logger zerolog.Logger, cfg model.Config, opts descriptor.RemoteOptions, client *remote.Client) *RemoteExecutor {
	return &RemoteExecutor{
		cfg:    cfg,
		opts:   opts,
		logger: logger,
		clk:    clock.NewClock(),
		client: client,
		runDir: client.Target().RunDir,
	}
}

// Prepare creates and empties the remote run directory, then uploads the
// run-wide inputs: subroutine sources (renamed to the extension the
// remote solver wants), the environment file, the post-processing
// script and any extra configured files. The local output directory is
// prepared as the landing zone for retrieved artifacts.
func (e *RemoteExecutor) Prepare() error {
	if err := prepareOutputDir(e.cfg); err != nil {
		return err
	}

	e.logger.Info().Str("dir", e.runDir).Msg("Preparing remote run directory")
	if err := e.client.MkdirAll(e.runDir); err != nil {
		return &model.StagingError{Path: e.runDir, Err: err}
	}
	if _, err := e.client.Run(fmt.Sprintf("rm -rf %s/*", e.runDir)); err != nil {
		return &model.StagingError{Path: e.runDir, Err: err}
	}

	if err := e.uploadSources(); err != nil {
		return err
	}

	envSrc := filepath.Join(e.cfg.WorkDir, e.opts.EnvironmentFileName)
	if err := e.client.Upload(envSrc, e.remotePath(remoteEnvName)); err != nil {
		return &model.StagingError{Path: envSrc, Err: err}
	}

	if err := e.client.Upload(e.cfg.PostProcessScript, e.remotePath(filepath.Base(e.cfg.PostProcessScript))); err != nil {
		return &model.StagingError{Path: e.cfg.PostProcessScript, Err: err}
	}

	for _, f := range e.opts.LocalFilesToCopy {
		if err := e.client.Upload(f, e.remotePath(filepath.Base(f))); err != nil {
			return &model.StagingError{Path: f, Err: err}
		}
	}
	return nil
}

// uploadSources copies every subroutine source matching the configured
// pattern into the run directory and links the entry point under the
// ".f" extension the remote solver resolves.
func (e *RemoteExecutor) uploadSources() error {
	if e.cfg.SubroutinePath == "" {
		return nil
	}
	srcRe, err := regexp.Compile(e.opts.SourceFileRegexp)
	if err != nil {
		return fmt.Errorf("invalid source file pattern %q: %w", e.opts.SourceFileRegexp, err)
	}
	srcDir := filepath.Dir(e.cfg.SubroutinePath)
	matches, err := filepath.Glob(filepath.Join(srcDir, "*"))
	if err != nil {
		return &model.StagingError{Path: srcDir, Err: err}
	}
	uploaded := 0
	for _, m := range matches {
		if !srcRe.MatchString(filepath.Base(m)) {
			continue
		}
		if err := e.client.Upload(m, e.remotePath(filepath.Base(m))); err != nil {
			return &model.StagingError{Path: m, Err: err}
		}
		uploaded++
	}
	if uploaded == 0 {
		return &model.StagingError{Path: srcDir, Err: fmt.Errorf("no subroutine sources match %q", e.opts.SourceFileRegexp)}
	}

	base := filepath.Base(e.cfg.SubroutinePath)
	link := fmt.Sprintf("cd %s && ln -sf %s.for %s.f", e.runDir, base, base)
	if _, err := e.client.Run(link); err != nil {
		return &model.StagingError{Path: base + ".f", Err: err}
	}
	return nil
}

// GenerateModel runs the job's model-generation script on the remote
// host to produce the input deck in the run directory.
func (e *RemoteExecutor) GenerateModel(job model.Job, logw io.Writer) error {
	script := filepath.Base(job.ScriptPath())
	if err := e.client.Upload(job.ScriptPath(), e.remotePath(script)); err != nil {
		return &model.StagingError{Path: job.ScriptPath(), Err: err}
	}
	cmd := fmt.Sprintf("cd %s && %s cae noGUI=%s 2>&1", e.runDir, e.cfg.SolverCmd, script)
	if err := e.streamRemote(job, cmd, logw, nil); err != nil {
		return &model.ExecutionError{Job: job.Name, Reason: "model generation failed", Err: err}
	}
	if err := e.client.Stat(e.remotePath(job.Name + ".inp")); err != nil {
		return &model.ExecutionError{Job: job.Name, Reason: "model generation produced no input deck", Err: err}
	}
	return nil
}

// Stage uploads the job's input deck and expected descriptor.
func (e *RemoteExecutor) Stage(job model.Job) error {
	if err := e.client.Upload(job.DeckPath(), e.remotePath(job.Name+".inp")); err != nil {
		return &model.StagingError{Path: job.DeckPath(), Err: err}
	}
	if err := e.client.Upload(job.ExpectedPath(), e.remotePath(job.Name+"_expected.yaml")); err != nil {
		return &model.StagingError{Path: job.ExpectedPath(), Err: err}
	}
	return nil
}

// Execute runs the solver in the remote run directory with stderr folded
// into the streamed output. The watchdog issues a remote terminate
// request when the time budget elapses.
func (e *RemoteExecutor) Execute(job model.Job, logw io.Writer, timer *PhaseTimer, expiration time.Duration) error {
	cmd := fmt.Sprintf("cd %s && %s 2>&1", e.runDir, solverCommand(e.cfg, job.Name, remoteSubroutine(e.cfg)))

	watchdog := NewWatchdog(e.clk)
	watchdog.Arm(expiration, func() {
		io.WriteString(logw, interruptMarker)
		e.logger.Warn().Str("job", job.Name).Msg("Time budget elapsed; terminating the remote analysis")
		term := fmt.Sprintf("cd %s && %s", e.runDir, terminateCommand(e.cfg, job.Name))
		if out, err := e.client.Run(term); err != nil {
			e.logger.Warn().Err(err).Str("output", out).Msg("Remote terminate request failed")
		}
	})
	defer watchdog.Disarm()

	if err := e.streamRemote(job, cmd, logw, timer); err != nil {
		e.logger.Warn().Str("job", job.Name).Err(err).Msg("Remote solver exited with an error")
	}
	return nil
}

// streamRemote starts the remote command and feeds each output line to
// the sink and the phase timer until it exits.
func (e *RemoteExecutor) streamRemote(job model.Job, command string, logw io.Writer, timer *PhaseTimer) error {
	proc, err := e.client.Start(command)
	if err != nil {
		return err
	}
	sink := logw
	if e.cfg.Interactive {
		sink = io.MultiWriter(logw, os.Stdout)
	}
	streamErr := StreamLines(proc.Out, func(line string) {
		fmt.Fprintln(sink, line)
		if timer != nil {
			timer.ProcessLine(line)
		}
	})
	waitErr := proc.Wait()
	if waitErr != nil {
		return waitErr
	}
	return streamErr
}

// CheckContainer verifies the remote result container exists.
func (e *RemoteExecutor) CheckContainer(job model.Job) error {
	if err := e.client.Stat(e.remotePath(job.Name + ".odb")); err != nil {
		return &model.ExecutionError{Job: job.Name, Reason: "no result container produced", Err: err}
	}
	return nil
}

// PostProcess runs the post-processing script remotely against the
// container.
func (e *RemoteExecutor) PostProcess(job model.Job, logw io.Writer, timer *PhaseTimer) error {
	script := filepath.Base(e.cfg.PostProcessScript)
	cmd := fmt.Sprintf("cd %s && %s 2>&1", e.runDir, postProcessCommand(e.cfg, script, job.Name))
	if err := e.streamRemote(job, cmd, logw, timer); err != nil {
		return &model.ExecutionError{Job: job.Name, Reason: "post-processing failed", Err: err}
	}
	return nil
}

// Retrieve downloads the structured results file and, when configured,
// the secondary artifacts. Each transfer gets an explicit result; a
// missing secondary artifact is normal and never aborts the job.
func (e *RemoteExecutor) Retrieve(job model.Job) []remote.TransferResult {
	names := []string{job.Name + "_results.yaml"}
	if e.opts.CopyResultsToLocal {
		for _, ext := range e.opts.FileExtensionsToCopy {
			names = append(names, job.Name+ext)
		}
		names = append(names, e.opts.FilesToCopy...)
	}
	results := make([]remote.TransferResult, 0, len(names))
	for _, name := range names {
		local := filepath.Join(e.cfg.OutputDir, name)
		results = append(results, e.client.Download(e.remotePath(name), local))
	}
	return results
}

// ResultsPath returns the local landing path of the retrieved structured
// results.
func (e *RemoteExecutor) ResultsPath(job model.Job) string {
	return filepath.Join(e.cfg.OutputDir, job.Name+"_results.yaml")
}

// Close releases the remote connection.
func (e *RemoteExecutor) Close() {
	e.client.Close()
}

// remotePath joins name onto the run directory with forward slashes
// regardless of the local platform.
func (e *RemoteExecutor) remotePath(name string) string {
	return path.Join(e.runDir, name)
}
