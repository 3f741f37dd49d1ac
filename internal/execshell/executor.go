package execshell

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/massmove/internal/termtext"
)

const (
	loggerNotConfiguredMessageConstant        = "logger not configured"
	commandRunnerNotConfiguredMessageConstant = "command runner not configured"
	commandFailedMessageTemplateConstant      = "%s exited with status %d"
	commandNotFoundMessageTemplateConstant    = "executable not found: %s"
	commandExecutionMessageTemplateConstant   = "unexpected error running %s: %v"
	commandStartedLogMessageConstant          = "external command started"
	commandCompletedLogMessageConstant        = "external command completed"
	commandExecutionFailedLogMessageConstant  = "external command execution failed"
	logFieldExecutableConstant                = "executable"
	logFieldArgumentsConstant                 = "arguments"
	logFieldWorkingDirectoryConstant          = "working_directory"
	logFieldExitCodeConstant                  = "exit_code"
)

// CommandName identifies the executable launched by a shell command.
type CommandName string

// CommandGo names the Go toolchain used for build-and-run tool invocations.
const CommandGo CommandName = "go"

// CommandDetails describes the arguments and execution context for a command.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand combines an executable name with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outputs of a finished command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner abstracts child-process execution so executors remain testable.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// Sentinel errors reported by NewShellExecutor when dependencies are missing.
var (
	ErrLoggerNotConfigured        = errors.New(loggerNotConfiguredMessageConstant)
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
)

// CommandFailedError reports a command that finished with a non-zero exit status.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error surfaces the sanitized standard error stream when present and a
// generic exit status message otherwise.
func (failure CommandFailedError) Error() string {
	sanitizedStandardError := strings.TrimSpace(termtext.StripControlSequences(failure.Result.StandardError))
	if len(sanitizedStandardError) > 0 {
		return sanitizedStandardError
	}
	return fmt.Sprintf(commandFailedMessageTemplateConstant, failure.Command.Name, failure.Result.ExitCode)
}

// CommandNotFoundError reports a command whose executable could not be located.
type CommandNotFoundError struct {
	Command ShellCommand
	Cause   error
}

// Error names the attempted executable path.
func (failure CommandNotFoundError) Error() string {
	return fmt.Sprintf(commandNotFoundMessageTemplateConstant, failure.Command.Name)
}

// Unwrap exposes the underlying lookup failure.
func (failure CommandNotFoundError) Unwrap() error {
	return failure.Cause
}

// CommandExecutionError reports launch-time failures other than a missing executable.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error wraps the underlying cause behind a generic message.
func (failure CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionMessageTemplateConstant, failure.Command.Name, failure.Cause)
}

// Unwrap exposes the underlying launch failure.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// ShellExecutor runs external commands through a CommandRunner while emitting
// lifecycle logs and observer notifications. It never retries and imposes no
// timeout of its own; callers bound the context when a deadline is required.
type ShellExecutor struct {
	logger               *zap.Logger
	runner               CommandRunner
	observer             CommandEventObserver
	humanReadableLogging bool
}

// NewShellExecutor constructs a ShellExecutor and validates its dependencies.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, humanReadableLogging bool) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	return &ShellExecutor{
		logger:               logger,
		runner:               runner,
		observer:             noopCommandEventObserver{},
		humanReadableLogging: humanReadableLogging,
	}, nil
}

// SetCommandEventObserver installs an observer receiving command lifecycle events.
func (executor *ShellExecutor) SetCommandEventObserver(observer CommandEventObserver) {
	if observer == nil {
		executor.observer = noopCommandEventObserver{}
		return
	}
	executor.observer = observer
}

// Execute launches the supplied command and converts process-level failures
// into typed errors: CommandFailedError for non-zero exits,
// CommandNotFoundError for missing executables, and CommandExecutionError for
// any other launch failure.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executor.observer.CommandStarted(command)
	executor.logCommandStarted(command)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.observer.CommandExecutionFailed(command, runError)
		executor.logExecutionFailure(command, runError)
		// PATH lookups miss with exec.ErrNotFound; launching an absolute
		// path that does not exist fails with fs.ErrNotExist instead.
		if errors.Is(runError, exec.ErrNotFound) || errors.Is(runError, fs.ErrNotExist) {
			return ExecutionResult{}, CommandNotFoundError{Command: command, Cause: runError}
		}
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	executor.observer.CommandCompleted(command, executionResult)
	executor.logCommandCompleted(command, executionResult)

	if executionResult.ExitCode != 0 {
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	return executionResult, nil
}

// ExecuteGo runs the Go toolchain with the provided details, the build-and-run
// invocation style used outside production.
func (executor *ShellExecutor) ExecuteGo(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGo, Details: details})
}

// When human-readable logging is selected the installed observer renders the
// lifecycle messages, so the structured log variants are suppressed to avoid
// reporting every event twice.
func (executor *ShellExecutor) logCommandStarted(command ShellCommand) {
	if executor.humanReadableLogging {
		return
	}
	executor.logger.Info(
		commandStartedLogMessageConstant,
		zap.String(logFieldExecutableConstant, string(command.Name)),
		zap.Strings(logFieldArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	)
}

func (executor *ShellExecutor) logCommandCompleted(command ShellCommand, result ExecutionResult) {
	if executor.humanReadableLogging {
		return
	}
	executor.logger.Info(
		commandCompletedLogMessageConstant,
		zap.String(logFieldExecutableConstant, string(command.Name)),
		zap.Int(logFieldExitCodeConstant, result.ExitCode),
	)
}

func (executor *ShellExecutor) logExecutionFailure(command ShellCommand, failure error) {
	if executor.humanReadableLogging {
		return
	}
	executor.logger.Error(
		commandExecutionFailedLogMessageConstant,
		zap.String(logFieldExecutableConstant, string(command.Name)),
		zap.Strings(logFieldArgumentsConstant, command.Details.Arguments),
		zap.Error(failure),
	)
}
