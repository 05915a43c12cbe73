package descriptor

import (
	"os"

	"gopkg.in/yaml.v2"
)

// RemoteOptions controls the remote execution adapter: where jobs run,
// which files travel to the remote before the run and which artifacts are
// retrieved afterwards.
type RemoteOptions struct {
	// RunDirectory is the remote run directory. A run directory given in
	// the host specifier overrides this value.
	RunDirectory string `yaml:"remote_run_directory"`
	// LocalFilesToCopy lists extra local files uploaded into the run
	// directory before execution.
	LocalFilesToCopy []string `yaml:"local_files_to_copy_to_remote"`
	// SourceFileRegexp selects the subroutine source files to upload.
	SourceFileRegexp string `yaml:"source_file_regexp"`
	// CopyResultsToLocal enables best-effort retrieval of secondary
	// artifacts after each job.
	CopyResultsToLocal bool `yaml:"copy_results_to_local"`
	// FileExtensionsToCopy lists per-job artifact extensions to retrieve.
	FileExtensionsToCopy []string `yaml:"file_extensions_to_copy_to_local"`
	// FilesToCopy lists full file names to retrieve (for files whose name
	// is not derived from the job name).
	FilesToCopy []string `yaml:"files_to_copy_to_local"`
	// EnvironmentFileName is the local environment file uploaded to the
	// remote under the solver's canonical name.
	EnvironmentFileName string `yaml:"environment_file_name"`
}

// DefaultRemoteOptions returns the defaults applied when no options file
// is present or a key is omitted.
func DefaultRemoteOptions() RemoteOptions {
	return RemoteOptions{
		RunDirectory:         "solverify_temp",
		SourceFileRegexp:     `.*\.for$`,
		FileExtensionsToCopy: []string{".dat", ".inp", ".msg", ".odb", ".sta"},
		EnvironmentFileName:  "abaqus_v6_remote.env",
	}
}

// LoadRemoteOptions parses the remote options file at path, filling in
// defaults for omitted keys. A missing file yields the defaults.
func LoadRemoteOptions(path string) (RemoteOptions, error) {
	opts := DefaultRemoteOptions()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, nil
		}
		return opts, err
	}
	var loaded RemoteOptions
	if err := yaml.UnmarshalStrict(data, &loaded); err != nil {
		return opts, parseError(path, err)
	}
	if loaded.RunDirectory != "" {
		opts.RunDirectory = loaded.RunDirectory
	}
	if loaded.SourceFileRegexp != "" {
		opts.SourceFileRegexp = loaded.SourceFileRegexp
	}
	if loaded.EnvironmentFileName != "" {
		opts.EnvironmentFileName = loaded.EnvironmentFileName
	}
	if loaded.FileExtensionsToCopy != nil {
		opts.FileExtensionsToCopy = loaded.FileExtensionsToCopy
	}
	opts.LocalFilesToCopy = loaded.LocalFilesToCopy
	opts.FilesToCopy = loaded.FilesToCopy
	opts.CopyResultsToLocal = loaded.CopyResultsToLocal
	return opts, nil
}
