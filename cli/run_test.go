package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/solverify/solverify/descriptor"
	"github.com/stretchr/testify/require"
)

func loadTestSuite(t *testing.T) *descriptor.Suite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solverify.yaml")
	content := `tests:
- job: tension
- job: shear
parametric:
- base: panel
  parameters:
  - name: mesh
    values: [coarse, fine]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	suite, err := descriptor.LoadSuite(path)
	require.NoError(t, err)
	return suite
}

func scheduleNames(s []scheduled) []string {
	names := make([]string, 0, len(s))
	for _, item := range s {
		names = append(names, item.name())
	}
	return names
}

func TestBuildSchedule_All(t *testing.T) {
	schedule, err := buildSchedule(loadTestSuite(t), nil)
	require.NoError(t, err)
	require.Equal(t, []string{
		"tension",
		"shear",
		"panel_mesh=coarse",
		"panel_mesh=fine",
	}, scheduleNames(schedule))
}

func TestBuildSchedule_FilterByName(t *testing.T) {
	schedule, err := buildSchedule(loadTestSuite(t), []string{"shear"})
	require.NoError(t, err)
	require.Equal(t, []string{"shear"}, scheduleNames(schedule))
}

func TestBuildSchedule_FilterByTemplateBase(t *testing.T) {
	schedule, err := buildSchedule(loadTestSuite(t), []string{"panel"})
	require.NoError(t, err)
	require.Equal(t, []string{"panel_mesh=coarse", "panel_mesh=fine"}, scheduleNames(schedule))
}

func TestBuildSchedule_FilterByGeneratedName(t *testing.T) {
	schedule, err := buildSchedule(loadTestSuite(t), []string{"panel_mesh=fine", "tension"})
	require.NoError(t, err)
	require.Equal(t, []string{"tension", "panel_mesh=fine"}, scheduleNames(schedule))
}

func TestBuildSchedule_NoMatch(t *testing.T) {
	schedule, err := buildSchedule(loadTestSuite(t), []string{"nonexistent"})
	require.NoError(t, err)
	require.Empty(t, schedule)
}
