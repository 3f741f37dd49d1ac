package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/massmove/internal/batch"
	"github.com/temirov/massmove/internal/history"
	"github.com/temirov/massmove/internal/notify"
)

const (
	serviceNameConstant                 = "massmove API"
	serviceVersionConstant              = "1.0.0"
	rootRoutePatternConstant            = "/"
	healthRoutePatternConstant          = "/health"
	toBetaRoutePatternConstant          = "/to_beta"
	toMasterRoutePatternConstant        = "/to_master"
	apiKeyHeaderNameConstant            = "X-API-Key"
	contentTypeHeaderNameConstant       = "Content-Type"
	jsonContentTypeConstant             = "application/json"
	invalidAPIKeyMessageConstant        = "Invalid API Key"
	malformedRequestBodyMessageConstant = "request body must be valid JSON"
	methodNotAllowedMessageConstant     = "method not allowed"
	reasonTooLongTemplateConstant       = "reason must be at most %d characters"
	maximumReasonLengthConstant         = 100
	batchMessageTemplateConstant        = "Processed %d company(ies) to %s environment"
	statusOKValueConstant               = "ok"
	statusHealthyValueConstant          = "healthy"
	historyWriteFailedMessageConstant   = "history write failed"
	responseEncodeFailedMessageConstant = "response encoding failed"
	postProcessingTimeoutConstant       = 30 * time.Second
	logFieldBatchIdentifierConstant     = "batch_id"
	logFieldDestinationConstant         = "destination"
	logFieldCompanyCountConstant        = "company_count"
	batchAcceptedLogMessageConstant     = "migration batch accepted"
	batchFinishedLogMessageConstant     = "migration batch finished"
)

type migrationRequest struct {
	IDs     string `json:"ids"`
	GitUser string `json:"git_user"`
	Reason  string `json:"reason"`
}

type migrationResponse struct {
	Message    string             `json:"message"`
	Total      int                `json:"total"`
	Successful int                `json:"successful"`
	Failed     int                `json:"failed"`
	Results    []batch.ItemResult `json:"results"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
	Version string `json:"version,omitempty"`
}

type healthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Handler builds the route table for the migration API.
func (server *Server) Handler() http.Handler {
	routeMultiplexer := http.NewServeMux()
	routeMultiplexer.HandleFunc(rootRoutePatternConstant, server.handleRoot)
	routeMultiplexer.HandleFunc(healthRoutePatternConstant, server.handleHealth)
	routeMultiplexer.HandleFunc(toBetaRoutePatternConstant, server.migrationHandler(batch.DestinationBeta))
	routeMultiplexer.HandleFunc(toMasterRoutePatternConstant, server.migrationHandler(batch.DestinationMaster))
	return routeMultiplexer
}

func (server *Server) handleRoot(responseWriter http.ResponseWriter, request *http.Request) {
	if request.URL.Path != rootRoutePatternConstant {
		http.NotFound(responseWriter, request)
		return
	}
	if request.Method != http.MethodGet {
		server.writeJSON(responseWriter, http.StatusMethodNotAllowed, errorResponse{Detail: methodNotAllowedMessageConstant})
		return
	}
	server.writeJSON(responseWriter, http.StatusOK, statusResponse{
		Status:  statusOKValueConstant,
		Service: serviceNameConstant,
		Version: serviceVersionConstant,
	})
}

func (server *Server) handleHealth(responseWriter http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		server.writeJSON(responseWriter, http.StatusMethodNotAllowed, errorResponse{Detail: methodNotAllowedMessageConstant})
		return
	}
	server.writeJSON(responseWriter, http.StatusOK, healthResponse{
		Status:      statusHealthyValueConstant,
		Environment: server.toolSettings.Environment,
	})
}

func (server *Server) migrationHandler(destination batch.Destination) http.HandlerFunc {
	return func(responseWriter http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			server.writeJSON(responseWriter, http.StatusMethodNotAllowed, errorResponse{Detail: methodNotAllowedMessageConstant})
			return
		}
		if !server.authorized(request) {
			server.writeJSON(responseWriter, http.StatusUnauthorized, errorResponse{Detail: invalidAPIKeyMessageConstant})
			return
		}

		var requestPayload migrationRequest
		if decodeError := json.NewDecoder(request.Body).Decode(&requestPayload); decodeError != nil {
			server.writeJSON(responseWriter, http.StatusBadRequest, errorResponse{Detail: malformedRequestBodyMessageConstant})
			return
		}

		companyNumbers, parseError := batch.ParseCompanyNumbers(requestPayload.IDs)
		if parseError != nil {
			server.writeJSON(responseWriter, http.StatusBadRequest, errorResponse{Detail: parseError.Error()})
			return
		}
		if len(requestPayload.Reason) > maximumReasonLengthConstant {
			server.writeJSON(responseWriter, http.StatusBadRequest, errorResponse{
				Detail: fmt.Sprintf(reasonTooLongTemplateConstant, maximumReasonLengthConstant),
			})
			return
		}

		gitUser := requestPayload.GitUser
		if len(gitUser) == 0 {
			gitUser = server.toolSettings.DefaultGitUser
		}
		reason := requestPayload.Reason
		if len(reason) == 0 {
			reason = server.toolSettings.DefaultReason
		}

		batchRequest := batch.Request{
			CompanyNumbers: companyNumbers,
			Destination:    destination,
			GitUser:        gitUser,
			Reason:         reason,
		}

		server.logger.Info(
			batchAcceptedLogMessageConstant,
			zap.String(logFieldDestinationConstant, string(destination)),
			zap.Int(logFieldCompanyCountConstant, len(companyNumbers)),
		)

		batchStartedAt := time.Now().UTC()
		batchResult := server.runner.Run(request.Context(), batchRequest)
		batchFinishedAt := time.Now().UTC()

		server.logger.Info(
			batchFinishedLogMessageConstant,
			zap.String(logFieldDestinationConstant, string(destination)),
			zap.Int(logFieldCompanyCountConstant, batchResult.Total),
		)

		go server.recordAndNotify(batchRequest, batchResult, batchStartedAt, batchFinishedAt)

		server.writeJSON(responseWriter, http.StatusOK, migrationResponse{
			Message:    fmt.Sprintf(batchMessageTemplateConstant, batchResult.Total, destination),
			Total:      batchResult.Total,
			Successful: batchResult.Successful,
			Failed:     batchResult.Failed,
			Results:    batchResult.Items,
		})
	}
}

func (server *Server) authorized(request *http.Request) bool {
	presentedKey := request.Header.Get(apiKeyHeaderNameConstant)
	return subtle.ConstantTimeCompare([]byte(presentedKey), []byte(server.configuration.APIKey)) == 1
}

// recordAndNotify persists the batch and fires the webhook after the response
// has already been computed, so neither concern can alter the outcome.
func (server *Server) recordAndNotify(batchRequest batch.Request, batchResult batch.Result, startedAt, finishedAt time.Time) {
	postProcessingContext, cancelPostProcessing := context.WithTimeout(context.Background(), postProcessingTimeoutConstant)
	defer cancelPostProcessing()

	batchIdentifier := uuid.NewString()

	if server.history != nil {
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
		if recordError := server.history.RecordBatch(postProcessingContext, record); recordError != nil {
			server.logger.Warn(
				historyWriteFailedMessageConstant,
				zap.String(logFieldBatchIdentifierConstant, batchIdentifier),
				zap.Error(recordError),
			)
		}
	}

	if server.notifier != nil {
		server.notifier.Deliver(postProcessingContext, buildBatchSummary(batchIdentifier, batchRequest, batchResult))
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

func (server *Server) writeJSON(responseWriter http.ResponseWriter, statusCode int, payload any) {
	responseWriter.Header().Set(contentTypeHeaderNameConstant, jsonContentTypeConstant)
	responseWriter.WriteHeader(statusCode)
	if encodeError := json.NewEncoder(responseWriter).Encode(payload); encodeError != nil {
		server.logger.Warn(responseEncodeFailedMessageConstant, zap.Error(encodeError))
	}
}
