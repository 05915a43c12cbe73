package runner

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/rs/zerolog"
	"github.com/solverify/solverify/model"
)

// Solver log markers delimiting the three instrumented phases.
const (
	markCompileBegin = "Begin Linking"
	markCompileEnd   = "End Linking"
	markPackageBegin = "Begin Abaqus/Explicit Packager"
	markPackageEnd   = "End Abaqus/Explicit Packager"
	markSolveBegin   = "Begin Abaqus/Explicit Analysis"
	markSolveEnd     = "End Abaqus/Explicit Analysis"
)

// The solver reports an aborted analysis with this marker instead of the
// normal end marker; it closes the solve phase all the same.
var solveErrorRe = regexp.MustCompile(`Abaqus/Explicit Analysis exited with an error`)

// phaseTrack is one idle -> running -> closed track.
type phaseTrack struct {
	start    time.Time
	duration time.Duration
	closed   bool
}

// PhaseTimer classifies solver log lines to measure the durations of the
// compile (link), package and solve phases. It is owned by a single job
// execution and never shared. The tracks are independent: an end marker
// without a preceding start is a recoverable anomaly, not an error.
type PhaseTimer struct {
	clk    clock.Clock
	out    io.Writer
	logger zerolog.Logger

	compile  phaseTrack
	packager phaseTrack
	solve    phaseTrack
}

// NewPhaseTimer returns a timer reporting closed-phase durations to out
// with two-decimal precision in seconds.
func NewPhaseTimer(clk clock.Clock, out io.Writer, logger zerolog.Logger) *PhaseTimer {
	return &PhaseTimer{clk: clk, out: out, logger: logger}
}

// ProcessLine feeds one solver output line to the classifier.
func (t *PhaseTimer) ProcessLine(line string) {
	switch {
	case strings.HasPrefix(line, markCompileBegin):
		t.compile.start = t.clk.Now()
	case strings.HasPrefix(line, markCompileEnd):
		t.closePhase(&t.compile, "Compile")
	case strings.HasPrefix(line, markPackageBegin):
		t.packager.start = t.clk.Now()
	case strings.HasPrefix(line, markPackageEnd):
		t.closePhase(&t.packager, "Packager")
	case strings.HasPrefix(line, markSolveBegin):
		t.solve.start = t.clk.Now()
	case strings.HasPrefix(line, markSolveEnd) || solveErrorRe.MatchString(line):
		t.closePhase(&t.solve, "Solver")
	}
}

func (t *PhaseTimer) closePhase(track *phaseTrack, name string) {
	if track.start.IsZero() {
		t.logger.Warn().Str("phase", name).Msg("Phase end marker without matching start; no duration recorded")
		return
	}
	track.duration = t.clk.Now().Sub(track.start)
	track.closed = true
	fmt.Fprintf(t.out, "%s run time: %.2f s\n", name, track.duration.Seconds())
}

// Durations returns the closed phase durations in seconds, nil entries
// for phases that never closed.
func (t *PhaseTimer) Durations() *model.PhaseTimes {
	p := &model.PhaseTimes{}
	if t.compile.closed {
		s := t.compile.duration.Seconds()
		p.Compile = &s
	}
	if t.packager.closed {
		s := t.packager.duration.Seconds()
		p.Package = &s
	}
	if t.solve.closed {
		s := t.solve.duration.Seconds()
		p.Solve = &s
	}
	return p
}
