// Package serve implements the serve command, which exposes batch migrations
// over HTTP until interrupted.
package serve

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/massmove/internal/batch"
	"github.com/temirov/massmove/internal/execshell"
	"github.com/temirov/massmove/internal/history"
	"github.com/temirov/massmove/internal/httpapi"
	"github.com/temirov/massmove/internal/movetool"
	"github.com/temirov/massmove/internal/notify"
	"github.com/temirov/massmove/internal/ui"
)

const (
	commandUseConstant                = "serve"
	commandShortDescriptionConstant   = "Serve the migration HTTP API"
	commandLongDescriptionConstant    = "serve starts the HTTP API that accepts authenticated batch migration requests, records history, and delivers webhook summaries. The server runs until interrupted."
	addressFlagNameConstant           = "address"
	addressFlagUsageConstant          = "Listen address for the HTTP API (overrides server.address)"
	executorCreationErrorTemplate     = "unable to construct shell executor: %w"
	toolClientCreationErrorTemplate   = "unable to construct tool client: %w"
	batchServiceCreationErrorTemplate = "unable to construct batch service: %w"
	historyStoreErrorTemplateConstant = "unable to open history database: %w"
	serverCreationErrorTemplate       = "unable to construct http server: %w"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the serve Cobra command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ToolConfigurationProvider    func() movetool.Settings
	ServerConfigurationProvider  func() httpapi.Configuration
	Executor                     movetool.CommandExecutor
}

// Build constructs the serve command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          builder.runServe,
	}

	command.Flags().String(addressFlagNameConstant, "", addressFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) runServe(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()
	toolSettings := builder.resolveToolSettings()
	serverConfiguration := builder.resolveServerConfiguration()

	addressOverride, _ := command.Flags().GetString(addressFlagNameConstant)
	if len(strings.TrimSpace(addressOverride)) > 0 {
		serverConfiguration.Address = strings.TrimSpace(addressOverride)
	}

	batchService, serviceError := builder.resolveBatchService(logger, toolSettings)
	if serviceError != nil {
		return serviceError
	}

	dependencies := httpapi.ServerDependencies{
		Logger:       logger,
		Runner:       batchService,
		Notifier:     notify.NewWebhookClient(logger, serverConfiguration.WebhookURL),
		ToolSettings: toolSettings,
	}

	if len(strings.TrimSpace(serverConfiguration.HistoryDatabasePath)) > 0 {
		historyStore, storeError := history.NewStore(logger, serverConfiguration.HistoryDatabasePath)
		if storeError != nil {
			return fmt.Errorf(historyStoreErrorTemplateConstant, storeError)
		}
		defer historyStore.Close()
		dependencies.History = historyStore
	}

	server, serverError := httpapi.NewServer(dependencies, serverConfiguration)
	if serverError != nil {
		return fmt.Errorf(serverCreationErrorTemplate, serverError)
	}

	serveContext, stopSignalHandling := signal.NotifyContext(command.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignalHandling()

	return server.Run(serveContext)
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
