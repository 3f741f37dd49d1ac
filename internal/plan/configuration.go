package plan

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/temirov/massmove/internal/batch"
)

const (
	configurationPathRequiredMessageConstant  = "plan path must be provided"
	configurationLoadErrorTemplateConstant    = "failed to load migration plan: %w"
	configurationParseErrorTemplateConstant   = "failed to parse migration plan: %w"
	configurationEmptyBatchesMessageConstant  = "migration plan must define at least one batch"
	configurationBatchErrorTemplateConstant   = "migration plan batch %d: %w"
	configurationEmptyCompanyMessageConstant  = "at least one company identifier must be provided"
	configurationCompanyRangeTemplateConstant = "company identifier %d is out of range (%d-%d)"
	minimumCompanyNumberConstant              = 1
	maximumCompanyNumberConstant              = 999999
)

// Configuration is an ordered migration plan loaded from YAML.
type Configuration struct {
	Batches []BatchConfiguration `yaml:"batches"`
}

// BatchConfiguration describes one planned batch. GitUser and Reason are
// optional and fall back to the configured tool defaults when empty.
type BatchConfiguration struct {
	CompanyNumbers []int  `yaml:"cpns"`
	Destination    string `yaml:"dest"`
	GitUser        string `yaml:"git_user"`
	Reason         string `yaml:"reason"`
}

// LoadConfiguration reads a migration plan from disk and validates it.
func LoadConfiguration(filePath string) (Configuration, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return Configuration{}, errors.New(configurationPathRequiredMessageConstant)
	}

	contentBytes, readError := os.ReadFile(trimmedPath)
	if readError != nil {
		return Configuration{}, fmt.Errorf(configurationLoadErrorTemplateConstant, readError)
	}

	var configuration Configuration
	if unmarshalError := yaml.Unmarshal(contentBytes, &configuration); unmarshalError != nil {
		return Configuration{}, fmt.Errorf(configurationParseErrorTemplateConstant, unmarshalError)
	}

	if len(configuration.Batches) == 0 {
		return Configuration{}, errors.New(configurationEmptyBatchesMessageConstant)
	}

	for batchIndex := range configuration.Batches {
		if validationError := validateBatch(&configuration.Batches[batchIndex]); validationError != nil {
			return Configuration{}, fmt.Errorf(configurationBatchErrorTemplateConstant, batchIndex, validationError)
		}
	}

	return configuration, nil
}

func validateBatch(batchConfiguration *BatchConfiguration) error {
	parsedDestination, destinationError := batch.ParseDestination(batchConfiguration.Destination)
	if destinationError != nil {
		return destinationError
	}
	batchConfiguration.Destination = string(parsedDestination)

	if len(batchConfiguration.CompanyNumbers) == 0 {
		return errors.New(configurationEmptyCompanyMessageConstant)
	}
	for _, companyNumber := range batchConfiguration.CompanyNumbers {
		if companyNumber < minimumCompanyNumberConstant || companyNumber > maximumCompanyNumberConstant {
			return fmt.Errorf(configurationCompanyRangeTemplateConstant, companyNumber, minimumCompanyNumberConstant, maximumCompanyNumberConstant)
		}
	}

	return nil
}
