package movetool_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/massmove/internal/movetool"
)

const (
	testValueArgumentsCaseNameConstant   = "value_arguments"
	testBooleanArgumentsCaseNameConstant = "boolean_arguments"
	testArgumentPrefixCaseNameConstant   = "build_and_run_prefix"
	testNoArgumentsCaseNameConstant      = "command_only"
)

func TestEncodeArguments(testInstance *testing.T) {
	testCases := []struct {
		name           string
		launchPlan     movetool.LaunchPlan
		specification  movetool.InvocationSpec
		expectedTokens []string
	}{
		{
			name:       testValueArgumentsCaseNameConstant,
			launchPlan: movetool.LaunchPlan{},
			specification: movetool.InvocationSpec{
				CommandName: "move",
				NamedArguments: []movetool.NamedArgument{
					{Name: "cpn", Value: 42},
					{Name: "dest", Value: "beta"},
					{Name: "git_user", Value: "operator"},
				},
			},
			expectedTokens: []string{"move", "--cpn=42", "--dest=beta", "--git_user=operator"},
		},
		{
			name:       testBooleanArgumentsCaseNameConstant,
			launchPlan: movetool.LaunchPlan{},
			specification: movetool.InvocationSpec{
				CommandName: "move",
				NamedArguments: []movetool.NamedArgument{
					{Name: "force", Value: true},
					{Name: "verbose", Value: false},
					{Name: "cpn", Value: 7},
				},
			},
			expectedTokens: []string{"move", "--force", "--cpn=7"},
		},
		{
			name:       testArgumentPrefixCaseNameConstant,
			launchPlan: movetool.LaunchPlan{Executable: "go", ArgumentPrefix: []string{"run", "main.go"}},
			specification: movetool.InvocationSpec{
				CommandName: "move",
				NamedArguments: []movetool.NamedArgument{
					{Name: "cpn", Value: 1},
				},
			},
			expectedTokens: []string{"run", "main.go", "move", "--cpn=1"},
		},
		{
			name:           testNoArgumentsCaseNameConstant,
			launchPlan:     movetool.LaunchPlan{},
			specification:  movetool.InvocationSpec{CommandName: "version"},
			expectedTokens: []string{"version"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			encodedTokens := movetool.EncodeArguments(testCase.launchPlan, testCase.specification)
			require.Equal(testInstance, testCase.expectedTokens, encodedTokens)
		})
	}
}
