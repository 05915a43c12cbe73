package descriptor

import (
	"testing"

	"github.com/solverify/solverify/model"
	"github.com/stretchr/testify/require"
)

func TestLoadSuite(t *testing.T) {
	path := writeFile(t, "solverify.yaml", `tests:
- job: tension_coarse
- job: tension_fine
parametric:
- base: shear_panel
  parameters:
  - name: load
    values: [1.5, 2.5]
  - name: mesh
    values: [coarse, fine]
  expected:
  - name: referenceValue
    values: [10.5, 11.5, 20.5, 21.5]
- base: beam
  script: true
  parameters:
  - name: length
    values: [5, 10]
`)

	s, err := LoadSuite(path)
	require.NoError(t, err)
	require.Len(t, s.Tests, 2)
	require.Equal(t, "tension_coarse", s.Tests[0].Job)
	require.Len(t, s.Parametric, 2)

	m := s.Parametric[0]
	require.Equal(t, "shear_panel", m.Base)
	require.False(t, m.Script)

	domains, err := m.Domains()
	require.NoError(t, err)
	require.Equal(t, []model.Domain{
		{Name: "load", Values: []string{"1.5", "2.5"}},
		{Name: "mesh", Values: []string{"coarse", "fine"}},
	}, domains)

	expected, err := m.ExpectedDomains()
	require.NoError(t, err)
	require.Len(t, expected, 1)
	require.Equal(t, []string{"10.5", "11.5", "20.5", "21.5"}, expected[0].Values)

	require.True(t, s.Parametric[1].Script)
	domains, err = s.Parametric[1].Domains()
	require.NoError(t, err)
	require.Equal(t, []string{"5", "10"}, domains[0].Values)
}

func TestLoadSuite_NonScalarParameterValue(t *testing.T) {
	path := writeFile(t, "solverify.yaml", `parametric:
- base: shear_panel
  parameters:
  - name: load
    values:
    - [1.0, 2.0]
`)

	s, err := LoadSuite(path)
	require.NoError(t, err)

	_, err = s.Parametric[0].Domains()
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a scalar")
}

func TestLoadSuite_MissingFile(t *testing.T) {
	_, err := LoadSuite("does-not-exist.yaml")
	require.Error(t, err)
}
