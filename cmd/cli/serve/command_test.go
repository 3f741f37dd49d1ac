package serve_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	servecmd "github.com/temirov/massmove/cmd/cli/serve"
	"github.com/temirov/massmove/internal/execshell"
	"github.com/temirov/massmove/internal/httpapi"
)

type idleCommandExecutor struct {
	mutex    sync.Mutex
	commands []execshell.ShellCommand
}

func (executor *idleCommandExecutor) Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	executor.commands = append(executor.commands, command)
	return execshell.ExecutionResult{}, nil
}

func TestServeCommandRequiresAPIKey(testInstance *testing.T) {
	builder := &servecmd.CommandBuilder{
		LoggerProvider:              func() *zap.Logger { return zap.NewNop() },
		ServerConfigurationProvider: func() httpapi.Configuration { return httpapi.Configuration{} },
		Executor:                    &idleCommandExecutor{},
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(context.Background())
	command.SetArgs([]string{})

	require.Error(testInstance, command.Execute())
}

func TestServeCommandStopsOnContextCancellation(testInstance *testing.T) {
	serveContext, cancelServe := context.WithCancel(context.Background())

	builder := &servecmd.CommandBuilder{
		LoggerProvider: func() *zap.Logger { return zap.NewNop() },
		ServerConfigurationProvider: func() httpapi.Configuration {
			return httpapi.Configuration{Address: "127.0.0.1:0", APIKey: "secret"}
		},
		Executor: &idleCommandExecutor{},
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SetContext(serveContext)
	command.SetArgs([]string{})

	executionOutcomes := make(chan error, 1)
	go func() {
		executionOutcomes <- command.Execute()
	}()

	time.Sleep(100 * time.Millisecond)
	cancelServe()

	select {
	case executionError := <-executionOutcomes:
		require.NoError(testInstance, executionError)
	case <-time.After(5 * time.Second):
		testInstance.Fatal("serve command did not stop after cancellation")
	}
}
