package movetool_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/massmove/internal/execshell"
	"github.com/temirov/massmove/internal/movetool"
)

type recordingExecutor struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.ShellCommand
	recordedDeadline bool
}

func (executor *recordingExecutor) Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	executor.recordedCommands = append(executor.recordedCommands, command)
	_, executor.recordedDeadline = executionContext.Deadline()
	return executor.executionResult, executor.executionError
}

func TestNewClientRequiresExecutor(testInstance *testing.T) {
	client, creationError := movetool.NewClient(zap.NewNop(), nil, movetool.DefaultSettings())
	require.Nil(testInstance, client)
	require.ErrorIs(testInstance, creationError, movetool.ErrExecutorNotConfigured)
}

func TestClientRunBuildsDevelopmentInvocation(testInstance *testing.T) {
	executor := &recordingExecutor{executionResult: execshell.ExecutionResult{StandardOutput: "done"}}
	client, creationError := movetool.NewClient(zap.NewNop(), executor, movetool.DefaultSettings())
	require.NoError(testInstance, creationError)

	specification := movetool.InvocationSpec{
		CommandName: "move",
		NamedArguments: []movetool.NamedArgument{
			{Name: "cpn", Value: 42},
			{Name: "dest", Value: "beta"},
		},
	}

	executionResult, executionError := client.Run(context.Background(), specification)
	require.NoError(testInstance, executionError)
	require.Equal(testInstance, "done", executionResult.StandardOutput)

	require.Len(testInstance, executor.recordedCommands, 1)
	recordedCommand := executor.recordedCommands[0]
	require.Equal(testInstance, execshell.CommandGo, recordedCommand.Name)
	require.Equal(testInstance, []string{"run", "main.go", "move", "--cpn=42", "--dest=beta"}, recordedCommand.Details.Arguments)
	require.Equal(testInstance, "../sitemover", recordedCommand.Details.WorkingDirectory)
	require.False(testInstance, executor.recordedDeadline)
}

func TestClientRunBuildsProductionInvocation(testInstance *testing.T) {
	executor := &recordingExecutor{}
	settings := movetool.DefaultSettings()
	settings.Environment = "production"

	client, creationError := movetool.NewClient(zap.NewNop(), executor, settings)
	require.NoError(testInstance, creationError)

	_, executionError := client.Run(context.Background(), movetool.InvocationSpec{CommandName: "move"})
	require.NoError(testInstance, executionError)

	require.Len(testInstance, executor.recordedCommands, 1)
	recordedCommand := executor.recordedCommands[0]
	require.Equal(testInstance, execshell.CommandName("/opt/sitemover/sitemover"), recordedCommand.Name)
	require.Equal(testInstance, []string{"move"}, recordedCommand.Details.Arguments)
	require.Equal(testInstance, "/opt/sitemover", recordedCommand.Details.WorkingDirectory)
}

func TestClientRunAppliesConfiguredTimeout(testInstance *testing.T) {
	executor := &recordingExecutor{}
	settings := movetool.DefaultSettings()
	settings.CommandTimeoutSeconds = 30

	client, creationError := movetool.NewClient(zap.NewNop(), executor, settings)
	require.NoError(testInstance, creationError)

	startInstant := time.Now()
	_, executionError := client.Run(context.Background(), movetool.InvocationSpec{CommandName: "move"})
	require.NoError(testInstance, executionError)
	require.True(testInstance, executor.recordedDeadline)
	require.Less(testInstance, time.Since(startInstant), time.Second)
}
