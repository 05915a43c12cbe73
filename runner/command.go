package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/solverify/solverify/model"
)

// solverArgs builds the argument vector for a local solver invocation:
// job=<name> [user="<path>"] [cpus=<n>] [double=both] interactive.
func solverArgs(cfg model.Config, jobName, userSub string) []string {
	args := []string{"job=" + jobName}
	if userSub != "" {
		args = append(args, "user="+userSub)
	}
	if cfg.Cpus > 1 {
		args = append(args, fmt.Sprintf("cpus=%d", cfg.Cpus))
	}
	if cfg.Double {
		args = append(args, "double=both")
	}
	args = append(args, "interactive")
	return args
}

// solverCommand builds the quoted command string for the same invocation
// inside a remote shell.
func solverCommand(cfg model.Config, jobName, userSub string) string {
	parts := []string{cfg.SolverCmd, "job=" + jobName}
	if userSub != "" {
		parts = append(parts, shellescape.Quote("user="+userSub))
	}
	if cfg.Cpus > 1 {
		parts = append(parts, fmt.Sprintf("cpus=%d", cfg.Cpus))
	}
	if cfg.Double {
		parts = append(parts, "double=both")
	}
	parts = append(parts, "interactive")
	return strings.Join(parts, " ")
}

// terminateArgs builds the argument vector that asks the solver to stop
// the named job.
func terminateArgs(jobName string) []string {
	return []string{"job=" + jobName, "terminate"}
}

// terminateCommand is the remote shell form of terminateArgs.
func terminateCommand(cfg model.Config, jobName string) string {
	return strings.Join(append([]string{cfg.SolverCmd}, terminateArgs(jobName)...), " ")
}

// postProcessArgs builds the argument vector invoking the external
// post-processing step for a job, forwarding the discard flag.
func postProcessArgs(cfg model.Config, script, jobName string) []string {
	return []string{"cae", "noGUI=" + script, "--", "--", jobName, pyBool(cfg.DiscardXYData)}
}

// postProcessCommand is the remote shell form of postProcessArgs.
func postProcessCommand(cfg model.Config, script, jobName string) string {
	parts := []string{cfg.SolverCmd, "cae", shellescape.Quote("noGUI=" + script), "--", "--", jobName, pyBool(cfg.DiscardXYData)}
	return strings.Join(parts, " ")
}

// modelScriptArgs builds the argument vector that runs a model-generation
// script through the solver to produce an input deck.
func modelScriptArgs(script string) []string {
	return []string{"cae", "noGUI=" + script}
}

// pyBool renders a flag the way the post-processing script expects it.
func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// makeArgs builds the argument vector pre-compiling a subroutine into a
// shared library.
func makeArgs(libName string) []string {
	return []string{"make", "library=" + libName}
}

// resolveSubroutine returns the absolute path to the user subroutine for
// a local run, applying the platform-specific extension rule: on Linux
// the solver wants ".f", so a symlink to the ".for" source is created
// when missing. Precompiled runs pass no subroutine at all.
func resolveSubroutine(cfg model.Config) (string, error) {
	if cfg.Precompiled || cfg.SubroutinePath == "" {
		return "", nil
	}
	ext := ".for"
	if runtime.GOOS == "linux" {
		ext = ".f"
		target := cfg.SubroutinePath + ext
		if _, err := os.Stat(target); os.IsNotExist(err) {
			src := cfg.SubroutinePath + ".for"
			if err := os.Symlink(src, target); err != nil {
				return "", fmt.Errorf("linking %s to %s: %w", src, target, err)
			}
		}
	}
	abs, err := filepath.Abs(cfg.SubroutinePath + ext)
	if err != nil {
		return "", err
	}
	return abs, nil
}

// remoteSubroutine returns the subroutine reference used on a remote
// host, where sources live flat in the run directory under the ".f"
// extension.
func remoteSubroutine(cfg model.Config) string {
	if cfg.Precompiled || cfg.SubroutinePath == "" {
		return ""
	}
	return filepath.Base(cfg.SubroutinePath) + ".f"
}

// formatExpiration renders a per-job expiration for logging.
func formatExpiration(seconds int) string {
	if seconds <= 0 {
		return "none"
	}
	return strconv.Itoa(seconds) + "s"
}
