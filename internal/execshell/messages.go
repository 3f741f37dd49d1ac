package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
)

const (
	moveSubcommandNameConstant       = "move"
	companyNumberFlagPrefixConstant  = "--cpn="
	destinationFlagPrefixConstant    = "--dest="
	unknownArgumentLabelConstant     = "unknown"
	moveStartTemplateConstant        = "Migrating company %s to %s"
	moveSuccessTemplateConstant      = "Migrated company %s to %s"
	moveFailureTemplateConstant      = "Migration of company %s to %s failed with exit code %d%s"
	moveExecutionFailureTemplate     = "Unable to migrate company %s to %s: %s"
	goRunSubcommandNameConstant      = "run"
	goRunEntryPointArgumentCount     = 2
	goRunDescriptionSkippedArguments = 2
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	toolArguments := formatter.toolArguments(command)
	if formatter.isMoveInvocation(toolArguments) {
		return formatter.describeMoveMessage(toolArguments, result, failure, stage)
	}
	return formatter.buildGenericMessage(command, result, failure, stage)
}

// toolArguments strips the build-and-run prefix so "go run main.go move ..."
// and a direct binary invocation of "move ..." describe the same operation.
func (formatter CommandMessageFormatter) toolArguments(command ShellCommand) []string {
	arguments := command.Details.Arguments
	if command.Name != CommandGo {
		return arguments
	}
	if len(arguments) < goRunEntryPointArgumentCount {
		return arguments
	}
	if strings.TrimSpace(arguments[0]) != goRunSubcommandNameConstant {
		return arguments
	}
	return arguments[goRunDescriptionSkippedArguments:]
}

func (formatter CommandMessageFormatter) isMoveInvocation(arguments []string) bool {
	return len(arguments) > 0 && strings.TrimSpace(arguments[0]) == moveSubcommandNameConstant
}

func (formatter CommandMessageFormatter) describeMoveMessage(arguments []string, result ExecutionResult, failure error, stage messageStage) string {
	companyNumber := formatter.flagValue(arguments, companyNumberFlagPrefixConstant)
	destination := formatter.flagValue(arguments, destinationFlagPrefixConstant)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(moveStartTemplateConstant, companyNumber, destination)
	case messageStageSuccess:
		return fmt.Sprintf(moveSuccessTemplateConstant, companyNumber, destination)
	case messageStageFailure:
		return fmt.Sprintf(moveFailureTemplateConstant, companyNumber, destination, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(moveExecutionFailureTemplate, companyNumber, destination, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) flagValue(arguments []string, flagPrefix string) string {
	for _, argument := range arguments {
		if strings.HasPrefix(argument, flagPrefix) {
			value := strings.TrimSpace(strings.TrimPrefix(argument, flagPrefix))
			if len(value) > 0 {
				return value
			}
		}
	}
	return unknownArgumentLabelConstant
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = commandLabel + commandArgumentsJoinSeparatorConstant + strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant)
	}
	workingDirectorySuffix := formatter.formatWorkingDirectorySuffix(command)
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, workingDirectorySuffix)
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}
