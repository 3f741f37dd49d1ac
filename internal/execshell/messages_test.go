package execshell_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/massmove/internal/execshell"
)

func TestCommandMessageFormatterDescribesMoveInvocations(testInstance *testing.T) {
	formatter := execshell.CommandMessageFormatter{}

	directCommand := execshell.ShellCommand{
		Name: "/opt/sitemover/sitemover",
		Details: execshell.CommandDetails{
			Arguments: []string{"move", "--cpn=42", "--dest=beta", "--git_user=operator"},
		},
	}
	buildAndRunCommand := execshell.ShellCommand{
		Name: execshell.CommandGo,
		Details: execshell.CommandDetails{
			Arguments: []string{"run", "main.go", "move", "--cpn=42", "--dest=beta"},
		},
	}

	require.Equal(testInstance, "Migrating company 42 to beta", formatter.BuildStartedMessage(directCommand))
	require.Equal(testInstance, "Migrating company 42 to beta", formatter.BuildStartedMessage(buildAndRunCommand))
	require.Equal(testInstance, "Migrated company 42 to beta", formatter.BuildSuccessMessage(directCommand))

	failureMessage := formatter.BuildFailureMessage(directCommand, execshell.ExecutionResult{ExitCode: 2, StandardError: "no such company"})
	require.Equal(testInstance, "Migration of company 42 to beta failed with exit code 2: no such company", failureMessage)

	executionFailureMessage := formatter.BuildExecutionFailureMessage(directCommand, errors.New("permission denied"))
	require.Equal(testInstance, "Unable to migrate company 42 to beta: permission denied", executionFailureMessage)
}

func TestCommandMessageFormatterFallsBackToGenericMessages(testInstance *testing.T) {
	formatter := execshell.CommandMessageFormatter{}
	command := execshell.ShellCommand{
		Name: execshell.CommandGo,
		Details: execshell.CommandDetails{
			Arguments:        []string{"version"},
			WorkingDirectory: "/tmp",
		},
	}

	require.Equal(testInstance, "Running go version (in /tmp)", formatter.BuildStartedMessage(command))
	require.Equal(testInstance, "Completed go version (in /tmp)", formatter.BuildSuccessMessage(command))
	require.Equal(testInstance, "go version (in /tmp) failed with exit code 1", formatter.BuildFailureMessage(command, execshell.ExecutionResult{ExitCode: 1}))
}
