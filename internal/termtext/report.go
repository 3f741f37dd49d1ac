package termtext

import (
	"regexp"
	"strings"
)

const (
	countryLabelConstant             = "Country:"
	countryCodePatternConstant       = `Country:\s*([A-Z]{2})`
	reportLineSeparatorConstant      = "\n"
	countryCodeSubmatchCountConstant = 2
	countryCodeSubmatchIndexConstant = 1
	absentCountryCodeConstant        = ""
)

var countryCodeExpression = regexp.MustCompile(countryCodePatternConstant)

// MigrationReport carries the fields recovered from one tool invocation's
// captured output.
type MigrationReport struct {
	CountryCode string
	CleanOutput string
}

// ExtractCountryCode scans lines in order and inspects the first line whose
// trimmed content starts with the country label. The scan stops at that line
// regardless of whether a two-letter code follows; when no labeled line exists
// the code is absent rather than an error.
func ExtractCountryCode(text string) string {
	lines := strings.Split(strings.TrimSpace(text), reportLineSeparatorConstant)
	for _, line := range lines {
		if !strings.HasPrefix(strings.TrimSpace(line), countryLabelConstant) {
			continue
		}
		submatches := countryCodeExpression.FindStringSubmatch(line)
		if len(submatches) == countryCodeSubmatchCountConstant {
			return submatches[countryCodeSubmatchIndexConstant]
		}
		return absentCountryCodeConstant
	}
	return absentCountryCodeConstant
}

// ParseReport sanitizes the raw output and extracts the country code from the
// sanitized text, so labels wrapped in color sequences still match. The clean
// output always covers the full raw text independent of extraction success.
func ParseReport(rawOutput string) MigrationReport {
	sanitizedOutput := StripControlSequences(rawOutput)
	return MigrationReport{
		CountryCode: ExtractCountryCode(sanitizedOutput),
		CleanOutput: sanitizedOutput,
	}
}
