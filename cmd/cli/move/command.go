// Package move implements the move command, which migrates companies to the
// beta or master environment by invoking the external migration tool.
package move

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/massmove/internal/batch"
	"github.com/temirov/massmove/internal/execshell"
	"github.com/temirov/massmove/internal/history"
	"github.com/temirov/massmove/internal/httpapi"
	"github.com/temirov/massmove/internal/movetool"
	"github.com/temirov/massmove/internal/notify"
	"github.com/temirov/massmove/internal/ui"
	"github.com/temirov/massmove/internal/utils"
	flagutils "github.com/temirov/massmove/internal/utils/flags"
)

const (
	commandUseConstant                  = "move"
	commandShortDescriptionConstant     = "Migrate companies to a destination environment"
	commandLongDescriptionConstant      = "move invokes the migration tool once per company identifier, running the invocations concurrently and reporting per-company outcomes."
	companyNumbersFlagNameConstant      = "cpns"
	companyNumbersFlagUsageConstant     = "Comma-separated company identifiers to migrate"
	destinationFlagNameConstant         = "dest"
	destinationFlagDescriptionConstant  = "Destination environment"
	gitUserFlagNameConstant             = "git-user"
	gitUserFlagUsageConstant            = "GitHub username recorded with the migration"
	reasonFlagNameConstant              = "reason"
	reasonFlagUsageConstant             = "Reason recorded with the migration"
	notifyFlagNameConstant              = "notify"
	notifyFlagUsageConstant             = "Deliver a webhook summary after the batch finishes"
	dryRunFlagNameConstant              = "dry-run"
	dryRunFlagUsageConstant             = "Print the tool invocations without running them"
	assumeYesFlagNameConstant           = "yes"
	assumeYesFlagShorthandConstant      = "y"
	assumeYesFlagUsageConstant          = "Skip the confirmation prompt"
	confirmationPromptTemplateConstant  = "Migrate %d company(ies) to %s? [y/N]: "
	confirmationDeclinedMessageConstant = "migration not confirmed"
	dryRunLineTemplateConstant          = "DRY RUN: %s %s (in %s)\n"
	itemSuccessLineTemplateConstant     = "CPN %d: OK [%s]\n"
	itemFailureLineTemplateConstant     = "CPN %d: FAILED: %s\n"
	summaryLineTemplateConstant         = "Processed %d company(ies) to %s environment: %d succeeded, %d failed\n"
	failedMigrationsTemplateConstant    = "%d of %d migrations failed"
	executorCreationErrorTemplate       = "unable to construct shell executor: %w"
	toolClientCreationErrorTemplate     = "unable to construct tool client: %w"
	batchServiceCreationErrorTemplate   = "unable to construct batch service: %w"
	argumentsJoinSeparatorConstant      = " "
	notificationDeliveryTimeoutConstant = 15 * time.Second
	historyStoreWarnMessageConstant     = "history store unavailable"
	historyRecordWarnMessageConstant    = "history write failed"
)

var destinationChoices = []string{string(batch.DestinationBeta), string(batch.DestinationMaster)}

// ConfirmationPrompter requests confirmation before destructive actions.
type ConfirmationPrompter interface {
	Confirm(prompt string) (bool, error)
}

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

type commandOptions struct {
	companyNumbers []int
	destination    batch.Destination
	gitUser        string
	reason         string
	notifyEnabled  bool
	dryRunEnabled  bool
	assumeYes      bool
}

// CommandBuilder assembles the move Cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ToolConfigurationProvider    func() movetool.Settings
	ServerConfigurationProvider  func() httpapi.Configuration
	Executor                     movetool.CommandExecutor
	Prompter                     ConfirmationPrompter
	OutputWriter                 io.Writer

	notifyFlagValue bool
}

// Build constructs the move command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runMove,
	}

	command.Flags().String(companyNumbersFlagNameConstant, "", companyNumbersFlagUsageConstant)
	command.Flags().String(
		destinationFlagNameConstant,
		string(batch.DestinationBeta),
		flagutils.FormatChoiceUsage(string(batch.DestinationBeta), destinationChoices, destinationFlagDescriptionConstant),
	)
	command.Flags().String(gitUserFlagNameConstant, "", gitUserFlagUsageConstant)
	command.Flags().String(reasonFlagNameConstant, "", reasonFlagUsageConstant)
	flagutils.AddToggleFlag(command.Flags(), &builder.notifyFlagValue, notifyFlagNameConstant, "", false, notifyFlagUsageConstant)
	flagutils.BindExecutionFlags(command, flagutils.ExecutionDefaults{}, flagutils.ExecutionFlagDefinitions{
		DryRun:    flagutils.ExecutionFlagDefinition{Name: dryRunFlagNameConstant, Usage: dryRunFlagUsageConstant, Enabled: true},
		AssumeYes: flagutils.ExecutionFlagDefinition{Name: assumeYesFlagNameConstant, Usage: assumeYesFlagUsageConstant, Shorthand: assumeYesFlagShorthandConstant, Enabled: true},
	})

	return command, nil
}

func (builder *CommandBuilder) runMove(command *cobra.Command, arguments []string) error {
	options, optionsError := builder.parseOptions(command)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()
	toolSettings := builder.resolveToolSettings()
	outputWriter := builder.resolveOutputWriter()

	if options.dryRunEnabled {
		builder.printDryRunPlan(outputWriter, toolSettings, options)
		return nil
	}

	if !options.assumeYes {
		prompter := builder.resolvePrompter(command)
		confirmed, confirmError := prompter.Confirm(fmt.Sprintf(confirmationPromptTemplateConstant, len(options.companyNumbers), options.destination))
		if confirmError != nil {
			return confirmError
		}
		if !confirmed {
			return errors.New(confirmationDeclinedMessageConstant)
		}
	}

	batchService, serviceError := builder.resolveBatchService(logger, toolSettings)
	if serviceError != nil {
		return serviceError
	}

	batchRequest := batch.Request{
		CompanyNumbers: options.companyNumbers,
		Destination:    options.destination,
		GitUser:        options.gitUser,
		Reason:         options.reason,
	}

	batchStartedAt := time.Now().UTC()
	batchResult := batchService.Run(command.Context(), batchRequest)
	batchFinishedAt := time.Now().UTC()

	builder.printBatchReport(outputWriter, options.destination, batchResult)
	builder.recordAndNotify(logger, batchRequest, batchResult, batchStartedAt, batchFinishedAt, options.notifyEnabled)

	if batchResult.Failed > 0 {
		return fmt.Errorf(failedMigrationsTemplateConstant, batchResult.Failed, batchResult.Total)
	}

	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command) (commandOptions, error) {
	companyNumbersValue, _ := command.Flags().GetString(companyNumbersFlagNameConstant)
	companyNumbers, companyNumbersError := batch.ParseCompanyNumbers(companyNumbersValue)
	if companyNumbersError != nil {
		return commandOptions{}, companyNumbersError
	}

	destinationValue, _ := command.Flags().GetString(destinationFlagNameConstant)
	destination, destinationError := batch.ParseDestination(destinationValue)
	if destinationError != nil {
		return commandOptions{}, destinationError
	}

	toolSettings := builder.resolveToolSettings()

	gitUser, _ := command.Flags().GetString(gitUserFlagNameConstant)
	if len(strings.TrimSpace(gitUser)) == 0 {
		gitUser = toolSettings.DefaultGitUser
	}

	reason, _ := command.Flags().GetString(reasonFlagNameConstant)
	if len(strings.TrimSpace(reason)) == 0 {
		reason = toolSettings.DefaultReason
	}

	dryRunEnabled, _ := command.Flags().GetBool(dryRunFlagNameConstant)
	assumeYes, _ := command.Flags().GetBool(assumeYesFlagNameConstant)

	return commandOptions{
		companyNumbers: companyNumbers,
		destination:    destination,
		gitUser:        gitUser,
		reason:         reason,
		notifyEnabled:  builder.notifyFlagValue,
		dryRunEnabled:  dryRunEnabled,
		assumeYes:      assumeYes,
	}, nil
}

func (builder *CommandBuilder) printDryRunPlan(outputWriter io.Writer, toolSettings movetool.Settings, options commandOptions) {
	launchPlan := movetool.ResolveLaunchPlan(toolSettings)
	previewRequest := batch.Request{
		CompanyNumbers: options.companyNumbers,
		Destination:    options.destination,
		GitUser:        options.gitUser,
		Reason:         options.reason,
	}
	for _, companyNumber := range options.companyNumbers {
		specification := batch.MoveInvocationSpec(companyNumber, previewRequest)
		argumentTokens := movetool.EncodeArguments(launchPlan, specification)
		fmt.Fprintf(
			outputWriter,
			dryRunLineTemplateConstant,
			launchPlan.Executable,
			strings.Join(argumentTokens, argumentsJoinSeparatorConstant),
			launchPlan.WorkingDirectory,
		)
	}
}

func (builder *CommandBuilder) printBatchReport(outputWriter io.Writer, destination batch.Destination, batchResult batch.Result) {
	for _, itemResult := range batchResult.Items {
		if itemResult.Success {
			fmt.Fprintf(outputWriter, itemSuccessLineTemplateConstant, itemResult.CompanyNumber, itemResult.CountryCode)
			continue
		}
		fmt.Fprintf(outputWriter, itemFailureLineTemplateConstant, itemResult.CompanyNumber, itemResult.ErrorMessage)
	}
	fmt.Fprintf(outputWriter, summaryLineTemplateConstant, batchResult.Total, destination, batchResult.Successful, batchResult.Failed)
}

func (builder *CommandBuilder) recordAndNotify(logger *zap.Logger, batchRequest batch.Request, batchResult batch.Result, startedAt, finishedAt time.Time, notifyEnabled bool) {
	serverConfiguration := builder.resolveServerConfiguration()
	batchIdentifier := uuid.NewString()

	deliveryContext, cancelDelivery := context.WithTimeout(context.Background(), notificationDeliveryTimeoutConstant)
	defer cancelDelivery()

	if len(serverConfiguration.HistoryDatabasePath) > 0 {
		historyStore, storeError := history.NewStore(logger, serverConfiguration.HistoryDatabasePath)
		if storeError != nil {
			logger.Warn(historyStoreWarnMessageConstant, zap.Error(storeError))
		} else {
			record := history.BatchRecord{
				BatchID:     batchIdentifier,
				Destination: string(batchRequest.Destination),
				GitUser:     batchRequest.GitUser,
				Reason:      batchRequest.Reason,
				Total:       batchResult.Total,
				Successful:  batchResult.Successful,
				Failed:      batchResult.Failed,
				StartedAt:   startedAt,
				FinishedAt:  finishedAt,
				Items:       batchResult.Items,
			}
			if recordError := historyStore.RecordBatch(deliveryContext, record); recordError != nil {
				logger.Warn(historyRecordWarnMessageConstant, zap.Error(recordError))
			}
			historyStore.Close()
		}
	}

	if notifyEnabled {
		webhookClient := notify.NewWebhookClient(logger, serverConfiguration.WebhookURL)
		webhookClient.Deliver(deliveryContext, buildBatchSummary(batchIdentifier, batchRequest, batchResult))
	}
}

func buildBatchSummary(batchIdentifier string, batchRequest batch.Request, batchResult batch.Result) notify.BatchSummary {
	succeededCompanyNumbers := make([]int, 0, batchResult.Successful)
	failedCompanyNumbers := make([]int, 0, batchResult.Failed)
	for _, itemResult := range batchResult.Items {
		if itemResult.Success {
			succeededCompanyNumbers = append(succeededCompanyNumbers, itemResult.CompanyNumber)
			continue
		}
		failedCompanyNumbers = append(failedCompanyNumbers, itemResult.CompanyNumber)
	}

	return notify.BatchSummary{
		BatchID:                 batchIdentifier,
		Destination:             string(batchRequest.Destination),
		GitUser:                 batchRequest.GitUser,
		Total:                   batchResult.Total,
		Successful:              batchResult.Successful,
		Failed:                  batchResult.Failed,
		SucceededCompanyNumbers: succeededCompanyNumbers,
		FailedCompanyNumbers:    failedCompanyNumbers,
	}
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveToolSettings() movetool.Settings {
	if builder.ToolConfigurationProvider == nil {
		return movetool.DefaultSettings()
	}
	return builder.ToolConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveServerConfiguration() httpapi.Configuration {
	if builder.ServerConfigurationProvider == nil {
		return httpapi.DefaultConfiguration()
	}
	return builder.ServerConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveOutputWriter() io.Writer {
	if builder.OutputWriter != nil {
		return builder.OutputWriter
	}
	return utils.NewFlushingWriter(os.Stdout)
}

func (builder *CommandBuilder) resolvePrompter(command *cobra.Command) ConfirmationPrompter {
	if builder.Prompter != nil {
		return builder.Prompter
	}
	return ui.NewIOConfirmationPrompter(command.InOrStdin(), command.OutOrStdout())
}

func (builder *CommandBuilder) resolveExecutor(logger *zap.Logger) (movetool.CommandExecutor, error) {
	if builder.Executor != nil {
		return builder.Executor, nil
	}

	commandRunner := execshell.NewOSCommandRunner()
	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}
	shellExecutor, creationError := execshell.NewShellExecutor(logger, commandRunner, humanReadableLogging)
	if creationError != nil {
		return nil, fmt.Errorf(executorCreationErrorTemplate, creationError)
	}
	if humanReadableLogging {
		shellExecutor.SetCommandEventObserver(ui.NewConsoleCommandEventLogger(logger))
	}
	return shellExecutor, nil
}

func (builder *CommandBuilder) resolveBatchService(logger *zap.Logger, toolSettings movetool.Settings) (*batch.Service, error) {
	executor, executorError := builder.resolveExecutor(logger)
	if executorError != nil {
		return nil, executorError
	}

	toolClient, clientError := movetool.NewClient(logger, executor, toolSettings)
	if clientError != nil {
		return nil, fmt.Errorf(toolClientCreationErrorTemplate, clientError)
	}

	batchService, serviceError := batch.NewService(batch.ServiceDependencies{Logger: logger, Tool: toolClient})
	if serviceError != nil {
		return nil, fmt.Errorf(batchServiceCreationErrorTemplate, serviceError)
	}

	return batchService, nil
}
