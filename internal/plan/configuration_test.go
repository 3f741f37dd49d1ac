package plan_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/massmove/internal/plan"
)

func writePlanFile(testInstance *testing.T, content string) string {
	testInstance.Helper()
	planPath := filepath.Join(testInstance.TempDir(), "plan.yaml")
	require.NoError(testInstance, os.WriteFile(planPath, []byte(content), 0o644))
	return planPath
}

func TestLoadConfigurationParsesBatches(testInstance *testing.T) {
	planPath := writePlanFile(testInstance, `
batches:
  - cpns: [10, 20]
    dest: beta
    git_user: operator
    reason: staged rollout
  - cpns: [30]
    dest: Master
`)

	configuration, loadError := plan.LoadConfiguration(planPath)
	require.NoError(testInstance, loadError)
	require.Len(testInstance, configuration.Batches, 2)

	firstBatch := configuration.Batches[0]
	require.Equal(testInstance, []int{10, 20}, firstBatch.CompanyNumbers)
	require.Equal(testInstance, "beta", firstBatch.Destination)
	require.Equal(testInstance, "operator", firstBatch.GitUser)
	require.Equal(testInstance, "staged rollout", firstBatch.Reason)

	secondBatch := configuration.Batches[1]
	require.Equal(testInstance, "master", secondBatch.Destination)
	require.Empty(testInstance, secondBatch.GitUser)
}

func TestLoadConfigurationValidation(testInstance *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "empty_plan", content: "batches: []\n"},
		{name: "missing_destination", content: "batches:\n  - cpns: [10]\n"},
		{name: "unsupported_destination", content: "batches:\n  - cpns: [10]\n    dest: staging\n"},
		{name: "empty_company_list", content: "batches:\n  - cpns: []\n    dest: beta\n"},
		{name: "out_of_range_company", content: "batches:\n  - cpns: [1000000]\n    dest: beta\n"},
		{name: "malformed_yaml", content: "batches: [\n"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			planPath := writePlanFile(testInstance, testCase.content)
			_, loadError := plan.LoadConfiguration(planPath)
			require.Error(testInstance, loadError)
		})
	}
}

func TestLoadConfigurationRequiresPath(testInstance *testing.T) {
	_, emptyPathError := plan.LoadConfiguration("  ")
	require.Error(testInstance, emptyPathError)

	_, missingFileError := plan.LoadConfiguration(filepath.Join(testInstance.TempDir(), "absent.yaml"))
	require.Error(testInstance, missingFileError)
}
