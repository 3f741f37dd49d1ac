package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/massmove/internal/batch"
	"github.com/temirov/massmove/internal/history"
	"github.com/temirov/massmove/internal/httpapi"
	"github.com/temirov/massmove/internal/movetool"
	"github.com/temirov/massmove/internal/notify"
)

const (
	testAPIKeyConstant         = "secret-api-key"
	testDefaultGitUserConstant = "github-actions"
	testDefaultReasonConstant  = "Automated migration"
	testEnvironmentConstant    = "production"
	postProcessingWaitConstant = 2 * time.Second
	postProcessingPollConstant = 10 * time.Millisecond
)

type stubBatchRunner struct {
	mutex           sync.Mutex
	receivedRequest batch.Request
	result          batch.Result
}

func (runner *stubBatchRunner) Run(executionContext context.Context, request batch.Request) batch.Result {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()
	runner.receivedRequest = request
	return runner.result
}

func (runner *stubBatchRunner) lastRequest() batch.Request {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()
	return runner.receivedRequest
}

type recordingHistoryRecorder struct {
	mutex   sync.Mutex
	records []history.BatchRecord
}

func (recorder *recordingHistoryRecorder) RecordBatch(executionContext context.Context, record history.BatchRecord) error {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	recorder.records = append(recorder.records, record)
	return nil
}

func (recorder *recordingHistoryRecorder) recordedCount() int {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	return len(recorder.records)
}

func (recorder *recordingHistoryRecorder) firstRecord() history.BatchRecord {
	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	return recorder.records[0]
}

type recordingNotifier struct {
	mutex     sync.Mutex
	summaries []notify.BatchSummary
}

func (notifier *recordingNotifier) Deliver(executionContext context.Context, summary notify.BatchSummary) {
	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()
	notifier.summaries = append(notifier.summaries, summary)
}

func (notifier *recordingNotifier) deliveredCount() int {
	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()
	return len(notifier.summaries)
}

func (notifier *recordingNotifier) firstSummary() notify.BatchSummary {
	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()
	return notifier.summaries[0]
}

func newTestServer(testInstance *testing.T, runner httpapi.BatchRunner, recorder httpapi.HistoryRecorder, notifier httpapi.SummaryNotifier) *httpapi.Server {
	testInstance.Helper()
	toolSettings := movetool.Settings{
		Environment:    testEnvironmentConstant,
		DefaultGitUser: testDefaultGitUserConstant,
		DefaultReason:  testDefaultReasonConstant,
	}
	server, serverError := httpapi.NewServer(httpapi.ServerDependencies{
		Logger:       zap.NewNop(),
		Runner:       runner,
		History:      recorder,
		Notifier:     notifier,
		ToolSettings: toolSettings,
	}, httpapi.Configuration{APIKey: testAPIKeyConstant})
	require.NoError(testInstance, serverError)
	return server
}

func TestNewServerValidation(testInstance *testing.T) {
	_, missingRunnerError := httpapi.NewServer(httpapi.ServerDependencies{}, httpapi.Configuration{APIKey: testAPIKeyConstant})
	require.ErrorIs(testInstance, missingRunnerError, httpapi.ErrBatchRunnerMissing)

	_, missingKeyError := httpapi.NewServer(httpapi.ServerDependencies{Runner: &stubBatchRunner{}}, httpapi.Configuration{})
	require.ErrorIs(testInstance, missingKeyError, httpapi.ErrAPIKeyMissing)
}

func TestRootEndpoint(testInstance *testing.T) {
	server := newTestServer(testInstance, &stubBatchRunner{}, nil, nil)
	recorder := httptest.NewRecorder()

	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(testInstance, http.StatusOK, recorder.Code)
	var payload map[string]string
	require.NoError(testInstance, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.Equal(testInstance, "ok", payload["status"])
	require.Equal(testInstance, "massmove API", payload["service"])
	require.NotEmpty(testInstance, payload["version"])
}

func TestHealthEndpointReportsEnvironment(testInstance *testing.T) {
	server := newTestServer(testInstance, &stubBatchRunner{}, nil, nil)
	recorder := httptest.NewRecorder()

	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(testInstance, http.StatusOK, recorder.Code)
	var payload map[string]string
	require.NoError(testInstance, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.Equal(testInstance, "healthy", payload["status"])
	require.Equal(testInstance, testEnvironmentConstant, payload["environment"])
}

func TestMigrationEndpointRejectsInvalidAPIKey(testInstance *testing.T) {
	server := newTestServer(testInstance, &stubBatchRunner{}, nil, nil)
	recorder := httptest.NewRecorder()

	request := httptest.NewRequest(http.MethodPost, "/to_beta", strings.NewReader(`{"ids":"10"}`))
	request.Header.Set("X-API-Key", "wrong-key")
	server.Handler().ServeHTTP(recorder, request)

	require.Equal(testInstance, http.StatusUnauthorized, recorder.Code)
	require.JSONEq(testInstance, `{"detail":"Invalid API Key"}`, recorder.Body.String())
}

func TestMigrationEndpointValidation(testInstance *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "malformed_json", body: `{`},
		{name: "missing_ids", body: `{}`},
		{name: "non_integer_ids", body: `{"ids":"1,two"}`},
		{name: "out_of_range_ids", body: `{"ids":"1000000"}`},
		{name: "reason_too_long", body: `{"ids":"10","reason":"` + strings.Repeat("x", 101) + `"}`},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			server := newTestServer(testInstance, &stubBatchRunner{}, nil, nil)
			recorder := httptest.NewRecorder()

			request := httptest.NewRequest(http.MethodPost, "/to_beta", strings.NewReader(testCase.body))
			request.Header.Set("X-API-Key", testAPIKeyConstant)
			server.Handler().ServeHTTP(recorder, request)

			require.Equal(testInstance, http.StatusBadRequest, recorder.Code)
			var payload map[string]string
			require.NoError(testInstance, json.Unmarshal(recorder.Body.Bytes(), &payload))
			require.NotEmpty(testInstance, payload["detail"])
		})
	}
}

func TestStatusEndpointsRejectNonGetMethods(testInstance *testing.T) {
	testCases := []struct {
		name   string
		target string
	}{
		{name: "root", target: "/"},
		{name: "health", target: "/health"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			server := newTestServer(testInstance, &stubBatchRunner{}, nil, nil)
			recorder := httptest.NewRecorder()

			server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, testCase.target, nil))

			require.Equal(testInstance, http.StatusMethodNotAllowed, recorder.Code)
			require.JSONEq(testInstance, `{"detail":"method not allowed"}`, recorder.Body.String())
		})
	}
}

func TestMigrationEndpointRejectsNonPostMethods(testInstance *testing.T) {
	server := newTestServer(testInstance, &stubBatchRunner{}, nil, nil)
	recorder := httptest.NewRecorder()

	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/to_master", nil))

	require.Equal(testInstance, http.StatusMethodNotAllowed, recorder.Code)
}

func TestMigrationEndpointRunsBatchAndReportsOutcomes(testInstance *testing.T) {
	runner := &stubBatchRunner{
		result: batch.Result{
			Total:      2,
			Successful: 1,
			Failed:     1,
			Items: []batch.ItemResult{
				{CompanyNumber: 10, Success: true, CountryCode: "AR", Output: "Country: AR"},
				{CompanyNumber: 999, ErrorMessage: "not found"},
			},
		},
	}
	historyRecorder := &recordingHistoryRecorder{}
	summaryNotifier := &recordingNotifier{}
	server := newTestServer(testInstance, runner, historyRecorder, summaryNotifier)
	recorder := httptest.NewRecorder()

	request := httptest.NewRequest(http.MethodPost, "/to_master", strings.NewReader(`{"ids":"10,999","git_user":"operator","reason":"release"}`))
	request.Header.Set("X-API-Key", testAPIKeyConstant)
	server.Handler().ServeHTTP(recorder, request)

	require.Equal(testInstance, http.StatusOK, recorder.Code)

	var responsePayload struct {
		Message    string             `json:"message"`
		Total      int                `json:"total"`
		Successful int                `json:"successful"`
		Failed     int                `json:"failed"`
		Results    []batch.ItemResult `json:"results"`
	}
	require.NoError(testInstance, json.Unmarshal(recorder.Body.Bytes(), &responsePayload))
	require.Equal(testInstance, "Processed 2 company(ies) to master environment", responsePayload.Message)
	require.Equal(testInstance, 2, responsePayload.Total)
	require.Equal(testInstance, 1, responsePayload.Successful)
	require.Equal(testInstance, 1, responsePayload.Failed)
	require.Len(testInstance, responsePayload.Results, 2)
	require.Equal(testInstance, "AR", responsePayload.Results[0].CountryCode)
	require.Equal(testInstance, "not found", responsePayload.Results[1].ErrorMessage)

	dispatchedRequest := runner.lastRequest()
	require.Equal(testInstance, []int{10, 999}, dispatchedRequest.CompanyNumbers)
	require.Equal(testInstance, batch.DestinationMaster, dispatchedRequest.Destination)
	require.Equal(testInstance, "operator", dispatchedRequest.GitUser)
	require.Equal(testInstance, "release", dispatchedRequest.Reason)

	require.Eventually(testInstance, func() bool {
		return historyRecorder.recordedCount() == 1 && summaryNotifier.deliveredCount() == 1
	}, postProcessingWaitConstant, postProcessingPollConstant)

	storedRecord := historyRecorder.firstRecord()
	require.NotEmpty(testInstance, storedRecord.BatchID)
	require.Equal(testInstance, "master", storedRecord.Destination)
	require.Equal(testInstance, 2, storedRecord.Total)

	deliveredSummary := summaryNotifier.firstSummary()
	require.Equal(testInstance, storedRecord.BatchID, deliveredSummary.BatchID)
	require.Equal(testInstance, []int{10}, deliveredSummary.SucceededCompanyNumbers)
	require.Equal(testInstance, []int{999}, deliveredSummary.FailedCompanyNumbers)
}

func TestMigrationEndpointAppliesConfiguredDefaults(testInstance *testing.T) {
	runner := &stubBatchRunner{result: batch.Result{Total: 1, Successful: 1, Items: []batch.ItemResult{{CompanyNumber: 10, Success: true}}}}
	server := newTestServer(testInstance, runner, nil, nil)
	recorder := httptest.NewRecorder()

	request := httptest.NewRequest(http.MethodPost, "/to_beta", strings.NewReader(`{"ids":"10"}`))
	request.Header.Set("X-API-Key", testAPIKeyConstant)
	server.Handler().ServeHTTP(recorder, request)

	require.Equal(testInstance, http.StatusOK, recorder.Code)

	dispatchedRequest := runner.lastRequest()
	require.Equal(testInstance, batch.DestinationBeta, dispatchedRequest.Destination)
	require.Equal(testInstance, testDefaultGitUserConstant, dispatchedRequest.GitUser)
	require.Equal(testInstance, testDefaultReasonConstant, dispatchedRequest.Reason)
}
