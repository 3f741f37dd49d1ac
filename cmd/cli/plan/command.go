// Package plan implements the plan command, which runs the batches declared
// in a YAML migration plan sequentially while keeping per-company invocations
// inside each batch concurrent.
package plan

import (
	"context"
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
	planconfig "github.com/temirov/massmove/internal/plan"
	"github.com/temirov/massmove/internal/ui"
	"github.com/temirov/massmove/internal/utils"
)

const (
	commandUseConstant                = "plan <plan-file>"
	commandShortDescriptionConstant   = "Run the batches declared in a migration plan"
	commandLongDescriptionConstant    = "plan loads a YAML migration plan and executes its batches in order. Companies inside a batch migrate concurrently; batches run one after another."
	batchHeaderLineTemplateConstant   = "Batch %d/%d: %d company(ies) to %s\n"
	itemSuccessLineTemplateConstant   = "  CPN %d: OK [%s]\n"
	itemFailureLineTemplateConstant   = "  CPN %d: FAILED: %s\n"
	planSummaryLineTemplateConstant   = "Plan finished: %d company(ies) processed, %d succeeded, %d failed\n"
	failedPlanTemplateConstant        = "%d of %d migrations failed"
	executorCreationErrorTemplate     = "unable to construct shell executor: %w"
	toolClientCreationErrorTemplate   = "unable to construct tool client: %w"
	batchServiceCreationErrorTemplate = "unable to construct batch service: %w"
	historyStoreWarnMessageConstant   = "history store unavailable"
	historyRecordWarnMessageConstant  = "history write failed"
	historyRecordTimeoutConstant      = 15 * time.Second
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the plan Cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ToolConfigurationProvider    func() movetool.Settings
	ServerConfigurationProvider  func() httpapi.Configuration
	Executor                     movetool.CommandExecutor
	OutputWriter                 io.Writer
}

// Build constructs the plan command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ExactArgs(1),
		RunE:          builder.runPlan,
	}

	return command, nil
}

func (builder *CommandBuilder) runPlan(command *cobra.Command, arguments []string) error {
	configuration, loadError := planconfig.LoadConfiguration(arguments[0])
	if loadError != nil {
		return loadError
	}

	logger := builder.resolveLogger()
	toolSettings := builder.resolveToolSettings()
	outputWriter := builder.resolveOutputWriter()

	batchService, serviceError := builder.resolveBatchService(logger, toolSettings)
	if serviceError != nil {
		return serviceError
	}

	totalCompanies := 0
	totalSucceeded := 0
	totalFailed := 0

	for batchIndex, batchConfiguration := range configuration.Batches {
		destination, destinationError := batch.ParseDestination(batchConfiguration.Destination)
		if destinationError != nil {
			return destinationError
		}

		gitUser := batchConfiguration.GitUser
		if len(strings.TrimSpace(gitUser)) == 0 {
			gitUser = toolSettings.DefaultGitUser
		}
		reason := batchConfiguration.Reason
		if len(strings.TrimSpace(reason)) == 0 {
			reason = toolSettings.DefaultReason
		}

		batchRequest := batch.Request{
			CompanyNumbers: batchConfiguration.CompanyNumbers,
			Destination:    destination,
			GitUser:        gitUser,
			Reason:         reason,
		}

		fmt.Fprintf(
			outputWriter,
			batchHeaderLineTemplateConstant,
			batchIndex+1,
			len(configuration.Batches),
			len(batchRequest.CompanyNumbers),
			destination,
		)

		batchStartedAt := time.Now().UTC()
		batchResult := batchService.Run(command.Context(), batchRequest)
		batchFinishedAt := time.Now().UTC()

		for _, itemResult := range batchResult.Items {
			if itemResult.Success {
				fmt.Fprintf(outputWriter, itemSuccessLineTemplateConstant, itemResult.CompanyNumber, itemResult.CountryCode)
				continue
			}
			fmt.Fprintf(outputWriter, itemFailureLineTemplateConstant, itemResult.CompanyNumber, itemResult.ErrorMessage)
		}

		builder.recordBatch(logger, batchRequest, batchResult, batchStartedAt, batchFinishedAt)

		totalCompanies += batchResult.Total
		totalSucceeded += batchResult.Successful
		totalFailed += batchResult.Failed

		if contextError := command.Context().Err(); contextError != nil {
			return contextError
		}
	}

	fmt.Fprintf(outputWriter, planSummaryLineTemplateConstant, totalCompanies, totalSucceeded, totalFailed)

	if totalFailed > 0 {
		return fmt.Errorf(failedPlanTemplateConstant, totalFailed, totalCompanies)
	}

	return nil
}

func (builder *CommandBuilder) recordBatch(logger *zap.Logger, batchRequest batch.Request, batchResult batch.Result, startedAt, finishedAt time.Time) {
	serverConfiguration := builder.resolveServerConfiguration()
	if len(serverConfiguration.HistoryDatabasePath) == 0 {
		return
	}

	historyStore, storeError := history.NewStore(logger, serverConfiguration.HistoryDatabasePath)
	if storeError != nil {
		logger.Warn(historyStoreWarnMessageConstant, zap.Error(storeError))
		return
	}
	defer historyStore.Close()

	recordContext, cancelRecord := context.WithTimeout(context.Background(), historyRecordTimeoutConstant)
	defer cancelRecord()

	record := history.BatchRecord{
		BatchID:     uuid.NewString(),
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
	if recordError := historyStore.RecordBatch(recordContext, record); recordError != nil {
		logger.Warn(historyRecordWarnMessageConstant, zap.Error(recordError))
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
