package descriptor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadRemoteOptions_MissingFileYieldsDefaults(t *testing.T) {
	opts, err := LoadRemoteOptions(filepath.Join(t.TempDir(), "remote_options.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultRemoteOptions(), opts)
}

func TestLoadRemoteOptions_OmittedKeysFilledWithDefaults(t *testing.T) {
	path := writeFile(t, "remote_options.yaml", `remote_run_directory: verification_runs
copy_results_to_local: true
files_to_copy_to_local:
- summary.txt
`)

	opts, err := LoadRemoteOptions(path)
	require.NoError(t, err)
	require.Equal(t, "verification_runs", opts.RunDirectory)
	require.True(t, opts.CopyResultsToLocal)
	require.Equal(t, []string{"summary.txt"}, opts.FilesToCopy)

	// Omitted keys keep their defaults.
	require.Equal(t, `.*\.for$`, opts.SourceFileRegexp)
	require.Equal(t, []string{".dat", ".inp", ".msg", ".odb", ".sta"}, opts.FileExtensionsToCopy)
	require.Equal(t, "abaqus_v6_remote.env", opts.EnvironmentFileName)
}

func TestLoadRemoteOptions_ExplicitExtensionsReplaceDefaults(t *testing.T) {
	path := writeFile(t, "remote_options.yaml", `file_extensions_to_copy_to_local:
- .odb
`)

	opts, err := LoadRemoteOptions(path)
	require.NoError(t, err)
	require.Equal(t, []string{".odb"}, opts.FileExtensionsToCopy)
}

func TestLoadRemoteOptions_UnknownKeyRejected(t *testing.T) {
	path := writeFile(t, "remote_options.yaml", "remote_run_dir: typo\n")

	_, err := LoadRemoteOptions(path)
	require.Error(t, err)
}
