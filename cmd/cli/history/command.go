// Package history implements the history command, which lists migration
// batches recorded in the local SQLite history database.
package history

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/massmove/internal/history"
	"github.com/temirov/massmove/internal/httpapi"
	"github.com/temirov/massmove/internal/utils"
)

const (
	commandUseConstant               = "history"
	commandShortDescriptionConstant  = "List recorded migration batches"
	commandLongDescriptionConstant   = "history reads the local batch history database and prints past migration batches, newest first."
	limitFlagNameConstant            = "limit"
	limitFlagUsageConstant           = "Maximum number of batches to list (0 lists all)"
	defaultBatchLimitConstant        = 20
	historyDisabledMessageConstant   = "batch history is not configured; set server.history_database_path"
	emptyHistoryLineConstant         = "No batches recorded.\n"
	batchLineTemplateConstant        = "%s  %s  %s -> %s by %s: %d total, %d succeeded, %d failed\n"
	itemLineTemplateConstant         = "  CPN %d: %s\n"
	itemSuccessLabelTemplateConstant = "OK [%s]"
	itemFailureLabelTemplateConstant = "FAILED: %s"
	batchTimestampLayoutConstant     = "2006-01-02 15:04:05"
	listBatchesErrorTemplateConstant = "unable to list batches: %w"
	openHistoryErrorTemplateConstant = "unable to open history database: %w"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the history Cobra command.
type CommandBuilder struct {
	LoggerProvider              LoggerProvider
	ServerConfigurationProvider func() httpapi.Configuration
	OutputWriter                io.Writer
}

// Build constructs the history command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runHistory,
	}

	command.Flags().Int(limitFlagNameConstant, defaultBatchLimitConstant, limitFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) runHistory(command *cobra.Command, arguments []string) error {
	serverConfiguration := builder.resolveServerConfiguration()
	if len(strings.TrimSpace(serverConfiguration.HistoryDatabasePath)) == 0 {
		return errors.New(historyDisabledMessageConstant)
	}

	batchLimit, _ := command.Flags().GetInt(limitFlagNameConstant)

	historyStore, storeError := history.NewStore(builder.resolveLogger(), serverConfiguration.HistoryDatabasePath)
	if storeError != nil {
		return fmt.Errorf(openHistoryErrorTemplateConstant, storeError)
	}
	defer historyStore.Close()

	storedRecords, listError := historyStore.ListBatches(command.Context(), batchLimit)
	if listError != nil {
		return fmt.Errorf(listBatchesErrorTemplateConstant, listError)
	}

	outputWriter := builder.resolveOutputWriter()
	if len(storedRecords) == 0 {
		fmt.Fprint(outputWriter, emptyHistoryLineConstant)
		return nil
	}

	for _, storedRecord := range storedRecords {
		builder.printBatch(outputWriter, storedRecord)
	}

	return nil
}

func (builder *CommandBuilder) printBatch(outputWriter io.Writer, record history.BatchRecord) {
	fmt.Fprintf(
		outputWriter,
		batchLineTemplateConstant,
		record.StartedAt.Format(batchTimestampLayoutConstant),
		record.BatchID,
		record.Reason,
		record.Destination,
		record.GitUser,
		record.Total,
		record.Successful,
		record.Failed,
	)
	for _, itemResult := range record.Items {
		itemLabel := fmt.Sprintf(itemFailureLabelTemplateConstant, itemResult.ErrorMessage)
		if itemResult.Success {
			itemLabel = fmt.Sprintf(itemSuccessLabelTemplateConstant, itemResult.CountryCode)
		}
		fmt.Fprintf(outputWriter, itemLineTemplateConstant, itemResult.CompanyNumber, itemLabel)
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
