package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/massmove/internal/batch"
	"github.com/temirov/massmove/internal/history"
	"github.com/temirov/massmove/internal/movetool"
	"github.com/temirov/massmove/internal/notify"
)

const (
	batchRunnerMissingMessageConstant = "batch runner not configured"
	apiKeyMissingMessageConstant      = "server API key not configured"
	defaultListenAddressConstant      = ":8000"
	shutdownGracePeriodConstant       = 10 * time.Second
	serverStartingLogMessageConstant  = "http server starting"
	serverStoppedLogMessageConstant   = "http server stopped"
	logFieldListenAddressConstant     = "address"
)

// Configuration holds the server settings loaded from the server section of
// the application configuration.
type Configuration struct {
	Address             string `mapstructure:"address"`
	APIKey              string `mapstructure:"api_key"`
	WebhookURL          string `mapstructure:"webhook_url"`
	HistoryDatabasePath string `mapstructure:"history_database_path"`
}

// DefaultConfiguration returns server settings used when no configuration
// file overrides them.
func DefaultConfiguration() Configuration {
	return Configuration{Address: defaultListenAddressConstant}
}

// Sanitize fills defaults for unset fields.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	if len(sanitized.Address) == 0 {
		sanitized.Address = defaultListenAddressConstant
	}
	return sanitized
}

// Validation errors returned by NewServer.
var (
	ErrBatchRunnerMissing = errors.New(batchRunnerMissingMessageConstant)
	ErrAPIKeyMissing      = errors.New(apiKeyMissingMessageConstant)
)

// BatchRunner executes one migration batch and aggregates per-item outcomes.
type BatchRunner interface {
	Run(executionContext context.Context, request batch.Request) batch.Result
}

// HistoryRecorder persists completed batches.
type HistoryRecorder interface {
	RecordBatch(executionContext context.Context, record history.BatchRecord) error
}

// SummaryNotifier delivers batch summaries to an external sink.
type SummaryNotifier interface {
	Deliver(executionContext context.Context, summary notify.BatchSummary)
}

// ServerDependencies describes the collaborators a Server requires. History
// and Notifier are optional; a nil value disables the corresponding concern.
type ServerDependencies struct {
	Logger       *zap.Logger
	Runner       BatchRunner
	History      HistoryRecorder
	Notifier     SummaryNotifier
	ToolSettings movetool.Settings
}

// Server serves the migration HTTP API.
type Server struct {
	logger        *zap.Logger
	runner        BatchRunner
	history       HistoryRecorder
	notifier      SummaryNotifier
	toolSettings  movetool.Settings
	configuration Configuration
}

// NewServer validates dependencies and constructs a Server.
func NewServer(dependencies ServerDependencies, configuration Configuration) (*Server, error) {
	if dependencies.Runner == nil {
		return nil, ErrBatchRunnerMissing
	}
	if len(configuration.APIKey) == 0 {
		return nil, ErrAPIKeyMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		logger:        logger,
		runner:        dependencies.Runner,
		history:       dependencies.History,
		notifier:      dependencies.Notifier,
		toolSettings:  dependencies.ToolSettings,
		configuration: configuration.Sanitize(),
	}, nil
}

// Run serves the API until the context is cancelled, then shuts down
// gracefully, letting in-flight batches finish within the grace period.
func (server *Server) Run(executionContext context.Context) error {
	httpServer := &http.Server{
		Addr:    server.configuration.Address,
		Handler: server.Handler(),
	}

	serveFailures := make(chan error, 1)
	go func() {
		server.logger.Info(
			serverStartingLogMessageConstant,
			zap.String(logFieldListenAddressConstant, server.configuration.Address),
		)
		serveFailures <- httpServer.ListenAndServe()
	}()

	select {
	case serveError := <-serveFailures:
		if errors.Is(serveError, http.ErrServerClosed) {
			return nil
		}
		return serveError
	case <-executionContext.Done():
	}

	shutdownContext, cancelShutdown := context.WithTimeout(context.Background(), shutdownGracePeriodConstant)
	defer cancelShutdown()

	shutdownError := httpServer.Shutdown(shutdownContext)
	server.logger.Info(serverStoppedLogMessageConstant)
	return shutdownError
}
