package movetool

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/massmove/internal/execshell"
)

const executorNotConfiguredMessageConstant = "command executor not configured"

// ErrExecutorNotConfigured reports a client constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// CommandExecutor abstracts the shell executor used to launch the tool.
type CommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// Client invokes the external migration tool using the configured launch plan.
type Client struct {
	logger   *zap.Logger
	executor CommandExecutor
	settings Settings
}

// NewClient constructs a tool client and validates its dependencies.
func NewClient(logger *zap.Logger, executor CommandExecutor, settings Settings) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{logger: logger, executor: executor, settings: settings}, nil
}

// Settings returns the immutable configuration the client was built with.
func (client *Client) Settings() Settings {
	return client.settings
}

// Run resolves the launch plan, encodes the invocation, and executes the tool.
// When a command timeout is configured the invocation context is bounded so a
// hung tool cannot stall a batch unit forever.
func (client *Client) Run(executionContext context.Context, specification InvocationSpec) (execshell.ExecutionResult, error) {
	launchPlan := ResolveLaunchPlan(client.settings)
	argumentTokens := EncodeArguments(launchPlan, specification)

	if client.settings.CommandTimeoutSeconds > 0 {
		timeoutDuration := time.Duration(client.settings.CommandTimeoutSeconds) * time.Second
		boundedContext, cancelInvocation := context.WithTimeout(executionContext, timeoutDuration)
		defer cancelInvocation()
		executionContext = boundedContext
	}

	return client.executor.Execute(executionContext, execshell.ShellCommand{
		Name: execshell.CommandName(launchPlan.Executable),
		Details: execshell.CommandDetails{
			Arguments:        argumentTokens,
			WorkingDirectory: launchPlan.WorkingDirectory,
		},
	})
}
