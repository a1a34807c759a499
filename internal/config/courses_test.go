package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoursePolicyForKnownCourses(t *testing.T) {
	assert.Equal(t, ModeNaturalLanguage, CoursePolicyFor(987654).Mode)
	assert.Equal(t, ModeSolutionComparison, CoursePolicyFor(876543).Mode)
	assert.Equal(t, ModeGuided, CoursePolicyFor(529762).Mode)
}

func TestCoursePolicyForUnknownCourse(t *testing.T) {
	policy := CoursePolicyFor(42)
	assert.Equal(t, int64(42), policy.ID)
	assert.Equal(t, ModeGuided, policy.Mode)
	assert.Empty(t, policy.SolutionIndex)
}

func TestCourseIDForName(t *testing.T) {
	assert.Equal(t, int64(876543), CourseIDForName("Testing course"))
	assert.Equal(t, int64(523756), CourseIDForName("COP 2273 - Spring 2025"))
	assert.Equal(t, int64(0), CourseIDForName("No Such Course"))
}

func TestLoadCoursePolicies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.json")
	data := `[
		{"id": 314, "mode": "solution-comparison", "solution_index": {"HW1": "solutions/hw1.md"}},
		{"id": 315}
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	require.NoError(t, LoadCoursePolicies(path))

	loaded := CoursePolicyFor(314)
	assert.Equal(t, ModeSolutionComparison, loaded.Mode)
	assert.Equal(t, "solutions/hw1.md", loaded.SolutionIndex["HW1"])

	// A missing mode defaults to guided.
	assert.Equal(t, ModeGuided, CoursePolicyFor(315).Mode)
}

func TestLoadCoursePoliciesMissingFile(t *testing.T) {
	err := LoadCoursePolicies(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
