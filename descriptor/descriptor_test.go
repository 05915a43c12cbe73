package descriptor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadExpected(t *testing.T) {
	path := writeFile(t, "tension_expected.yaml", `expiration: 120
results:
- type: max_value
  identifier: S11
  referenceValue: 17100.0
  tolerance: 1.0
- type: final_status
  referenceValue: COMPLETED
`)

	e, err := LoadExpected(path)
	require.NoError(t, err)
	require.NotNil(t, e.Expiration)
	require.Equal(t, 120, *e.Expiration)
	require.Len(t, e.Results, 2)
	require.Equal(t, "max_value", e.Results[0].Type)
	require.Equal(t, "S11", e.Results[0].Identifier)
	require.Equal(t, 17100.0, e.Results[0].ReferenceValue)
	require.Equal(t, 1.0, e.Results[0].Tolerance)
	require.Equal(t, "COMPLETED", e.Results[1].ReferenceValue)
}

func TestLoadExpected_NoExpiration(t *testing.T) {
	path := writeFile(t, "tension_expected.yaml", `results:
- referenceValue: 1.0
  tolerance: 0.1
`)

	e, err := LoadExpected(path)
	require.NoError(t, err)
	require.Nil(t, e.Expiration)
}

func TestLoadExpected_MalformedReportsLine(t *testing.T) {
	path := writeFile(t, "bad_expected.yaml", "results:\n- type: max_value\n  tolerance: [1.0\n")

	_, err := LoadExpected(path)
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, path, perr.Path)
	require.Greater(t, perr.Line, 0)
}

func TestLoadExpected_UnknownKeyRejected(t *testing.T) {
	path := writeFile(t, "typo_expected.yaml", "expirations: 5\nresults: []\n")

	_, err := LoadExpected(path)
	require.Error(t, err)
}

func TestLoadResults(t *testing.T) {
	path := writeFile(t, "tension_results.yaml", `results:
- type: max_value
  identifier: S11
  referenceValue: 17100.0
  computedValue: 17100.4
  tolerance: 1.0
- type: history
  referenceValue:
  - [0.0, 0.0]
  - [1.0, 2.5]
  computedValue:
  - [0.0, 0.01]
  - [1.0, 2.49]
  tolerance: [0.05, 0.05]
`)

	records, err := LoadResults(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, 17100.4, records[0].ComputedValue)

	seq, ok := records[1].ComputedValue.([]interface{})
	require.True(t, ok)
	require.Len(t, seq, 2)
	tuple, ok := seq[1].([]interface{})
	require.True(t, ok)
	require.Equal(t, []interface{}{1.0, 2.49}, tuple)
}

func TestLoadResults_MissingFile(t *testing.T) {
	_, err := LoadResults(filepath.Join(t.TempDir(), "absent_results.yaml"))
	require.Error(t, err)
	require.True(t, os.IsNotExist(err))
}
