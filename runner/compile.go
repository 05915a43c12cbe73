package runner

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/solverify/solverify/model"
)

// binaryExts are the artifacts the solver's make step leaves next to the
// source; they get moved into the build directory.
var binaryExts = map[string]bool{
	".dll": true,
	".obj": true,
	".so":  true,
	".o":   true,
}

// CompileSubroutine pre-compiles the user subroutine into shared
// libraries so subsequent jobs can run without the compile phase. It
// copies the environment file next to the source, runs the solver's
// make step there, and moves the produced binaries into the build
// directory referenced by the environment file.
func CompileSubroutine(logger zerolog.Logger, cfg model.Config) error {
	forDir, err := filepath.Abs(filepath.Dir(cfg.SubroutinePath))
	if err != nil {
		return &model.StagingError{Path: cfg.SubroutinePath, Err: err}
	}

	envSrc := filepath.Join(cfg.WorkDir, cfg.EnvFileName)
	if err := copyFile(envSrc, filepath.Join(forDir, cfg.EnvFileName)); err != nil {
		return &model.StagingError{Path: envSrc, Err: err}
	}

	source := filepath.Base(cfg.SubroutinePath) + ".for"
	if runtime.GOOS == "linux" {
		source = filepath.Base(cfg.SubroutinePath) + ".f"
	}
	logger.Info().Str("source", source).Msg("Pre-compiling user subroutine")

	logPath := filepath.Join(forDir, "compile.log")
	logFile, err := os.Create(logPath)
	if err != nil {
		return &model.StagingError{Path: logPath, Err: err}
	}
	defer logFile.Close()

	cmd := exec.Command(cfg.SolverCmd, makeArgs(source)...)
	cmd.Dir = forDir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("compiling %s failed (see %s): %w", source, logPath, err)
	}

	buildDir := filepath.Join(cfg.WorkDir, "build")
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return &model.StagingError{Path: buildDir, Err: err}
	}

	entries, err := os.ReadDir(forDir)
	if err != nil {
		return &model.StagingError{Path: forDir, Err: err}
	}
	moved := 0
	for _, entry := range entries {
		if entry.IsDir() || !binaryExts[filepath.Ext(entry.Name())] {
			continue
		}
		src := filepath.Join(forDir, entry.Name())
		dst := filepath.Join(buildDir, entry.Name())
		if err := os.Rename(src, dst); err != nil {
			return &model.StagingError{Path: src, Err: err}
		}
		logger.Debug().Str("binary", entry.Name()).Msg("Moved compiled binary to build directory")
		moved++
	}
	// The make step produces an object and a library each for the
	// implicit and explicit solvers.
	if moved < 4 {
		return fmt.Errorf("compilation produced %d binaries in %s; expected at least 4", moved, forDir)
	}
	return nil
}
