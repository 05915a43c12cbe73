package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/solverify/solverify/model"
)

var usubLibDirRe = regexp.MustCompile(`usub_lib_dir\s*=\s*['"]([^'"]+)['"]`)

// EnsureEnvironmentFile verifies that the local solver environment file
// points the library search path at the build directory holding the
// precompiled subroutine, appending the declaration when it is missing
// entirely, and installs a copy into the output directory where the
// solver will read it. A declaration pointing elsewhere is an error; it
// would silently load a different library.
func EnsureEnvironmentFile(cfg model.Config) error {
	envPath := filepath.Join(cfg.WorkDir, cfg.EnvFileName)
	data, err := os.ReadFile(envPath)
	if err != nil {
		return &model.StagingError{Path: envPath, Err: fmt.Errorf("environment file required for precompiled runs: %w", err)}
	}

	buildDir, err := filepath.Abs(filepath.Join(cfg.WorkDir, "build"))
	if err != nil {
		return &model.StagingError{Path: envPath, Err: err}
	}
	// The solver parses the path as Python source; it wants forward
	// slashes on every platform.
	want := filepath.ToSlash(buildDir)

	if m := usubLibDirRe.FindStringSubmatch(string(data)); m != nil {
		if filepath.ToSlash(m[1]) != want {
			return &model.StagingError{
				Path: envPath,
				Err:  fmt.Errorf("environment file sets usub_lib_dir to %q; expected %q", m[1], want),
			}
		}
	} else {
		var b strings.Builder
		b.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "import os\nusub_lib_dir = \"%s\"\ndel os\n", want)
		data = []byte(b.String())
		if err := os.WriteFile(envPath, data, 0o644); err != nil {
			return &model.StagingError{Path: envPath, Err: err}
		}
	}

	dst := filepath.Join(cfg.OutputDir, cfg.EnvFileName)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return &model.StagingError{Path: dst, Err: err}
	}
	return nil
}
