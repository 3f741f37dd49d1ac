package batch

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/massmove/internal/execshell"
	"github.com/temirov/massmove/internal/movetool"
	"github.com/temirov/massmove/internal/termtext"
)

const (
	toolInvokerMissingMessageConstant = "tool invoker not configured"
	moveCommandNameConstant           = "move"
	companyNumberArgumentNameConstant = "cpn"
	destinationArgumentNameConstant   = "dest"
	gitUserArgumentNameConstant       = "git_user"
	reasonArgumentNameConstant        = "reason"
	itemSucceededLogMessageConstant   = "company migration succeeded"
	itemFailedLogMessageConstant      = "company migration failed"
	logFieldCompanyNumberConstant     = "cpn"
	logFieldDestinationConstant       = "destination"
	logFieldCountryCodeConstant       = "country_code"
)

// ErrToolInvokerMissing reports a service constructed without a tool invoker.
var ErrToolInvokerMissing = errors.New(toolInvokerMissingMessageConstant)

// Request describes one batch migration: the company identifiers to move,
// the destination tier, and the shared parameters passed through to the tool.
type Request struct {
	CompanyNumbers []int
	Destination    Destination
	GitUser        string
	Reason         string
}

// ItemResult records the outcome for a single company identifier. Every
// requested identifier yields exactly one ItemResult, success or failure.
type ItemResult struct {
	CompanyNumber int    `json:"cpn"`
	Success       bool   `json:"success"`
	CountryCode   string `json:"country_code,omitempty"`
	Output        string `json:"output,omitempty"`
	ErrorMessage  string `json:"error,omitempty"`
}

// Result aggregates the per-item outcomes of one batch. Successful plus
// Failed always equals Total, which equals the number of requested
// identifiers including duplicates.
type Result struct {
	Total      int
	Successful int
	Failed     int
	Items      []ItemResult
}

// MoveInvocationSpec builds the tool invocation for one company identifier.
// Execution and dry-run previews both go through this constructor so a
// preview always names the arguments the real invocation would pass.
func MoveInvocationSpec(companyNumber int, request Request) movetool.InvocationSpec {
	return movetool.InvocationSpec{
		CommandName: moveCommandNameConstant,
		NamedArguments: []movetool.NamedArgument{
			{Name: companyNumberArgumentNameConstant, Value: companyNumber},
			{Name: destinationArgumentNameConstant, Value: string(request.Destination)},
			{Name: gitUserArgumentNameConstant, Value: request.GitUser},
			{Name: reasonArgumentNameConstant, Value: request.Reason},
		},
	}
}

// ToolInvoker launches one migration tool invocation.
type ToolInvoker interface {
	Run(executionContext context.Context, specification movetool.InvocationSpec) (execshell.ExecutionResult, error)
}

// ServiceDependencies describes required collaborators for batch execution.
type ServiceDependencies struct {
	Logger *zap.Logger
	Tool   ToolInvoker
}

// Service orchestrates concurrent per-company tool invocations.
type Service struct {
	logger *zap.Logger
	tool   ToolInvoker
}

// NewService constructs a Service with the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Tool == nil {
		return nil, ErrToolInvokerMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{logger: logger, tool: dependencies.Tool}, nil
}

// Run launches one tool invocation per company identifier concurrently and
// waits for all of them to finish. Item order in the result matches request
// order while completion order remains unconstrained. Nothing is cancelled or
// returned early when individual items fail.
func (service *Service) Run(executionContext context.Context, request Request) Result {
	itemResults := make([]ItemResult, len(request.CompanyNumbers))

	var joinBarrier sync.WaitGroup
	for itemIndex, companyNumber := range request.CompanyNumbers {
		joinBarrier.Add(1)
		go func(slotIndex int, requestedCompanyNumber int) {
			defer joinBarrier.Done()
			itemResults[slotIndex] = service.runItem(executionContext, requestedCompanyNumber, request)
		}(itemIndex, companyNumber)
	}
	joinBarrier.Wait()

	batchResult := Result{Total: len(itemResults), Items: itemResults}
	for _, itemResult := range itemResults {
		if itemResult.Success {
			batchResult.Successful++
			continue
		}
		batchResult.Failed++
	}

	return batchResult
}

func (service *Service) runItem(executionContext context.Context, companyNumber int, request Request) ItemResult {
	specification := MoveInvocationSpec(companyNumber, request)

	executionResult, executionError := service.tool.Run(executionContext, specification)
	if executionError != nil {
		service.logger.Warn(
			itemFailedLogMessageConstant,
			zap.Int(logFieldCompanyNumberConstant, companyNumber),
			zap.String(logFieldDestinationConstant, string(request.Destination)),
			zap.Error(executionError),
		)
		return ItemResult{CompanyNumber: companyNumber, ErrorMessage: executionError.Error()}
	}

	migrationReport := termtext.ParseReport(executionResult.StandardOutput)
	service.logger.Info(
		itemSucceededLogMessageConstant,
		zap.Int(logFieldCompanyNumberConstant, companyNumber),
		zap.String(logFieldDestinationConstant, string(request.Destination)),
		zap.String(logFieldCountryCodeConstant, migrationReport.CountryCode),
	)

	return ItemResult{
		CompanyNumber: companyNumber,
		Success:       true,
		CountryCode:   migrationReport.CountryCode,
		Output:        migrationReport.CleanOutput,
	}
}
