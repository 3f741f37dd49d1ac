package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRequestTimeoutConstant         = 10 * time.Second
	contentTypeHeaderNameConstant         = "Content-Type"
	jsonContentTypeConstant               = "application/json"
	summaryEncodingFailedMessageConstant  = "webhook payload encoding failed"
	requestCreationFailedMessageConstant  = "webhook request creation failed"
	deliveryFailedLogMessageConstant      = "webhook delivery failed"
	unexpectedStatusLogMessageConstant    = "webhook endpoint returned unexpected status"
	summaryDeliveredLogMessageConstant    = "webhook summary delivered"
	logFieldWebhookEndpointConstant       = "endpoint"
	logFieldBatchIdentifierConstant       = "batch_id"
	logFieldResponseStatusConstant        = "status"
	maximumAcceptedResponseStatusConstant = 300
)

// BatchSummary is the payload posted to the webhook after a batch finishes.
type BatchSummary struct {
	BatchID                 string `json:"batch_id"`
	Destination             string `json:"destination"`
	GitUser                 string `json:"git_user"`
	Total                   int    `json:"total"`
	Successful              int    `json:"successful"`
	Failed                  int    `json:"failed"`
	SucceededCompanyNumbers []int  `json:"succeeded_cpns"`
	FailedCompanyNumbers    []int  `json:"failed_cpns"`
}

// WebhookClient posts batch summaries to a configured HTTP endpoint. A client
// with an empty endpoint is valid and silently discards every summary.
type WebhookClient struct {
	logger     *zap.Logger
	endpoint   string
	httpClient *http.Client
}

// NewWebhookClient constructs a webhook client for the given endpoint URL.
func NewWebhookClient(logger *zap.Logger, endpointURL string) *WebhookClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookClient{
		logger:   logger,
		endpoint: endpointURL,
		httpClient: &http.Client{
			Timeout: defaultRequestTimeoutConstant,
		},
	}
}

// Enabled reports whether an endpoint is configured.
func (client *WebhookClient) Enabled() bool {
	return len(client.endpoint) > 0
}

// Deliver posts the summary to the endpoint. Errors are logged and swallowed
// so notification problems cannot affect the batch outcome already computed.
func (client *WebhookClient) Deliver(executionContext context.Context, summary BatchSummary) {
	if !client.Enabled() {
		return
	}

	payloadBytes, encodingError := json.Marshal(summary)
	if encodingError != nil {
		client.logger.Warn(summaryEncodingFailedMessageConstant, zap.Error(encodingError))
		return
	}

	webhookRequest, requestError := http.NewRequestWithContext(executionContext, http.MethodPost, client.endpoint, bytes.NewReader(payloadBytes))
	if requestError != nil {
		client.logger.Warn(
			requestCreationFailedMessageConstant,
			zap.String(logFieldWebhookEndpointConstant, client.endpoint),
			zap.Error(requestError),
		)
		return
	}
	webhookRequest.Header.Set(contentTypeHeaderNameConstant, jsonContentTypeConstant)

	webhookResponse, deliveryError := client.httpClient.Do(webhookRequest)
	if deliveryError != nil {
		client.logger.Warn(
			deliveryFailedLogMessageConstant,
			zap.String(logFieldWebhookEndpointConstant, client.endpoint),
			zap.String(logFieldBatchIdentifierConstant, summary.BatchID),
			zap.Error(deliveryError),
		)
		return
	}
	defer webhookResponse.Body.Close()
	_, _ = io.Copy(io.Discard, webhookResponse.Body)

	if webhookResponse.StatusCode >= maximumAcceptedResponseStatusConstant {
		client.logger.Warn(
			unexpectedStatusLogMessageConstant,
			zap.String(logFieldWebhookEndpointConstant, client.endpoint),
			zap.String(logFieldBatchIdentifierConstant, summary.BatchID),
			zap.Int(logFieldResponseStatusConstant, webhookResponse.StatusCode),
		)
		return
	}

	client.logger.Info(
		summaryDeliveredLogMessageConstant,
		zap.String(logFieldWebhookEndpointConstant, client.endpoint),
		zap.String(logFieldBatchIdentifierConstant, summary.BatchID),
	)
}
