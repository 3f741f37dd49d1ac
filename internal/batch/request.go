package batch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	companyNumberSeparatorConstant          = ","
	minimumCompanyNumberConstant            = 1
	maximumCompanyNumberConstant            = 999999
	emptyCompanyNumberListMessageConstant   = "at least one company identifier must be provided"
	invalidCompanyNumberTemplateConstant    = "invalid company identifier format: %q is not a valid integer"
	companyNumberOutOfRangeTemplateConstant = "company identifier %d is out of range (%d-%d)"
	unsupportedDestinationTemplateConstant  = "unsupported destination %q (expected %s or %s)"
)

// Destination identifies the deployment tier companies are migrated to. It is
// passed through to the external tool unchanged.
type Destination string

// Supported migration destinations.
const (
	DestinationBeta   Destination = "beta"
	DestinationMaster Destination = "master"
)

// ParseDestination validates a destination name.
func ParseDestination(value string) (Destination, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(value))
	switch Destination(normalizedValue) {
	case DestinationBeta:
		return DestinationBeta, nil
	case DestinationMaster:
		return DestinationMaster, nil
	default:
		return "", fmt.Errorf(unsupportedDestinationTemplateConstant, value, DestinationBeta, DestinationMaster)
	}
}

// ParseCompanyNumbers parses a comma-separated identifier list, preserving
// order and duplicates. Each identifier must be an integer within the
// supported range and at least one identifier must be present.
func ParseCompanyNumbers(commaSeparatedList string) ([]int, error) {
	rawEntries := strings.Split(commaSeparatedList, companyNumberSeparatorConstant)

	companyNumbers := make([]int, 0, len(rawEntries))
	for _, rawEntry := range rawEntries {
		trimmedEntry := strings.TrimSpace(rawEntry)
		if len(trimmedEntry) == 0 {
			continue
		}

		companyNumber, parseError := strconv.Atoi(trimmedEntry)
		if parseError != nil {
			return nil, fmt.Errorf(invalidCompanyNumberTemplateConstant, trimmedEntry)
		}
		if companyNumber < minimumCompanyNumberConstant || companyNumber > maximumCompanyNumberConstant {
			return nil, fmt.Errorf(companyNumberOutOfRangeTemplateConstant, companyNumber, minimumCompanyNumberConstant, maximumCompanyNumberConstant)
		}

		companyNumbers = append(companyNumbers, companyNumber)
	}

	if len(companyNumbers) == 0 {
		return nil, errors.New(emptyCompanyNumberListMessageConstant)
	}

	return companyNumbers, nil
}
