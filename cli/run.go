package cli

// This file contains the run command: flags to configuration, suite
// loading, matrix expansion, the sequential job loop and the run report.

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/solverify/solverify/descriptor"
	"github.com/solverify/solverify/model"
	"github.com/solverify/solverify/remote"
	"github.com/solverify/solverify/report"
	"github.com/solverify/solverify/runner"
	"github.com/urfave/cli/v2"
)

// scheduled is one test to run, either declared directly or expanded
// from a parametric template.
type scheduled struct {
	tc  model.TestCase
	gen *runner.GeneratedCase
}

func (s scheduled) name() string {
	if s.gen != nil {
		return s.gen.Name
	}
	return s.tc.JobName
}

func (a *App) run(ctx *cli.Context) error {
	start := time.Now()

	cfg := model.Config{
		SolverCmd:          ctx.String("solver-cmd"),
		PostProcessScript:  ctx.String("postprocess"),
		SubroutinePath:     ctx.String("subroutine"),
		EnvFileName:        ctx.String("env-file"),
		OutputDir:          ctx.String("output-dir"),
		WorkDir:            ctx.String("work-dir"),
		Cpus:               ctx.Int("cpus"),
		Double:             ctx.Bool("double"),
		Interactive:        ctx.Bool("interactive"),
		TimePhases:         ctx.Bool("time-phases"),
		DiscardXYData:      ctx.Bool("discard-xy"),
		UseExistingResults: ctx.Bool("use-existing-results"),
		KeepOutput:         ctx.Bool("keep-output"),
		Expiration:         ctx.Int("expiration"),
		RemoteTarget:       ctx.String("remote"),
	}

	if cfg.RemoteTarget != "" {
		for _, flag := range []string{"precompile", "use-existing-results", "keep-output"} {
			if ctx.Bool(flag) {
				return fmt.Errorf("--%s is not supported with remote execution", flag)
			}
		}
	}

	if ctx.Bool("precompile") {
		if cfg.SubroutinePath == "" {
			return fmt.Errorf("--precompile requires --subroutine")
		}
		if err := runner.CompileSubroutine(a.logger, cfg); err != nil {
			return err
		}
		cfg.Precompiled = true
	}

	suite, err := descriptor.LoadSuite(ctx.String("suite"))
	if err != nil {
		return fmt.Errorf("failed to load suite: %w", err)
	}
	schedule, err := buildSchedule(suite, ctx.Args().Slice())
	if err != nil {
		return err
	}
	if len(schedule) == 0 {
		return fmt.Errorf("no tests selected")
	}

	exec, target, err := a.buildExecutor(cfg, ctx.String("remote-options"))
	if err != nil {
		return err
	}
	defer exec.Close()

	if err := exec.Prepare(); err != nil {
		return err
	}

	r := runner.New(a.logger, cfg, exec)

	rep := model.RunReport{
		ID:        runID(),
		Timestamp: start,
		Args:      os.Args,
		Target:    target,
	}
	if cwd, err := os.Getwd(); err == nil {
		rep.WorkDir = cwd
	}

	failed := 0
	for _, s := range schedule {
		jobStart := time.Now()
		var outcome model.Outcome
		if s.gen != nil {
			outcome = r.RunGenerated(*s.gen)
		} else {
			outcome = r.RunJob(s.tc)
		}
		if !outcome.Passed() {
			failed++
		}

		jr := model.JobReport{
			Name:      s.name(),
			Outcome:   outcome.Kind.String(),
			Duration:  time.Since(jobStart),
			Phases:    outcome.Phases,
			Generated: s.gen != nil,
		}
		if outcome.Err != nil {
			jr.Error = outcome.Err.Error()
		}
		rep.Jobs = append(rep.Jobs, jr)
	}

	rep.Duration = time.Since(start)
	if err := report.Write(cfg.OutputDir, rep); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to write run report")
	}

	a.logger.Info().
		Int("total", len(schedule)).
		Int("passed", len(schedule)-failed).
		Int("failed", failed).
		Dur("duration", rep.Duration).
		Msg("Run finished")

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d tests failed", failed, len(schedule)), 1)
	}
	return nil
}

// buildExecutor selects the execution target from the configuration,
// connecting to the remote host when one is given.
func (a *App) buildExecutor(cfg model.Config, optsPath string) (runner.Executor, *model.Target, error) {
	if cfg.RemoteTarget == "" {
		return runner.NewLocalExecutor(a.logger, cfg), nil, nil
	}

	opts, err := descriptor.LoadRemoteOptions(optsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load remote options: %w", err)
	}
	tgt, err := remote.ParseTarget(cfg.RemoteTarget, opts.RunDirectory)
	if err != nil {
		return nil, nil, err
	}
	a.logger.Info().Str("target", tgt.String()).Msg("Connecting to remote host")
	client, err := remote.Connect(a.logger, tgt)
	if err != nil {
		return nil, nil, err
	}
	target := &model.Target{RemoteHost: cfg.RemoteTarget, RunDir: tgt.RunDir}
	return runner.NewRemoteExecutor(a.logger, cfg, opts, client), target, nil
}

// buildSchedule turns the suite into the ordered list of tests to run,
// expanding parametric templates and applying the name filters given on
// the command line. A filter matches a test name exactly or a template's
// base name, selecting all of its combinations.
func buildSchedule(suite *descriptor.Suite, filters []string) ([]scheduled, error) {
	var schedule []scheduled
	for _, t := range suite.Tests {
		if !selected(filters, t.Job) {
			continue
		}
		schedule = append(schedule, scheduled{tc: model.TestCase{JobName: t.Job}})
	}
	for _, m := range suite.Parametric {
		domains, err := m.Domains()
		if err != nil {
			return nil, err
		}
		expected, err := m.ExpectedDomains()
		if err != nil {
			return nil, err
		}
		cases, err := runner.ExpandMatrix(runner.MatrixSpec{
			Base:     m.Base,
			Script:   m.Script,
			Domains:  domains,
			Expected: expected,
		})
		if err != nil {
			return nil, err
		}
		for i := range cases {
			if !selected(filters, cases[i].Name, m.Base) {
				continue
			}
			schedule = append(schedule, scheduled{gen: &cases[i]})
		}
	}
	return schedule, nil
}

func selected(filters []string, names ...string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		for _, n := range names {
			if f == n {
				return true
			}
		}
	}
	return false
}

// runID generates a random 16-byte hex run identifier.
func runID() string {
	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(idBytes)
}
