package movetool

import (
	"strings"

	pathutils "github.com/temirov/massmove/internal/utils/path"
)

const (
	developmentEnvironmentNameConstant      = "dev"
	productionEnvironmentNameConstant       = "production"
	defaultProductionExecutablePathConstant = "/opt/sitemover"
	defaultProductionExecutableNameConstant = "sitemover"
	defaultDevelopmentProjectPathConstant   = "../sitemover"
	defaultGitUserConstant                  = "github-actions"
	defaultReasonConstant                   = "Automated migration"
)

var settingsHomeExpander = pathutils.NewHomeExpander()

// Settings captures the process-wide migration tool configuration. It is
// resolved once at startup and treated as immutable afterwards.
type Settings struct {
	Environment              string `mapstructure:"environment"`
	ProductionExecutablePath string `mapstructure:"prod_executable_path"`
	ProductionExecutableName string `mapstructure:"prod_executable_name"`
	DevelopmentProjectPath   string `mapstructure:"dev_project_path"`
	DefaultGitUser           string `mapstructure:"default_git_user"`
	DefaultReason            string `mapstructure:"default_reason"`
	CommandTimeoutSeconds    int    `mapstructure:"command_timeout_seconds"`
}

// DefaultSettings returns baseline values for the tool configuration section.
func DefaultSettings() Settings {
	return Settings{
		Environment:              developmentEnvironmentNameConstant,
		ProductionExecutablePath: defaultProductionExecutablePathConstant,
		ProductionExecutableName: defaultProductionExecutableNameConstant,
		DevelopmentProjectPath:   defaultDevelopmentProjectPathConstant,
		DefaultGitUser:           defaultGitUserConstant,
		DefaultReason:            defaultReasonConstant,
		CommandTimeoutSeconds:    0,
	}
}

// Sanitize trims configured values, expands home shortcuts in paths, and fills
// empty fields from the defaults.
func (settings Settings) Sanitize() Settings {
	defaults := DefaultSettings()
	sanitized := settings

	sanitized.Environment = fallbackValue(strings.TrimSpace(settings.Environment), defaults.Environment)
	sanitized.ProductionExecutablePath = settingsHomeExpander.Expand(fallbackValue(strings.TrimSpace(settings.ProductionExecutablePath), defaults.ProductionExecutablePath))
	sanitized.ProductionExecutableName = fallbackValue(strings.TrimSpace(settings.ProductionExecutableName), defaults.ProductionExecutableName)
	sanitized.DevelopmentProjectPath = settingsHomeExpander.Expand(fallbackValue(strings.TrimSpace(settings.DevelopmentProjectPath), defaults.DevelopmentProjectPath))
	sanitized.DefaultGitUser = fallbackValue(strings.TrimSpace(settings.DefaultGitUser), defaults.DefaultGitUser)
	sanitized.DefaultReason = fallbackValue(strings.TrimSpace(settings.DefaultReason), defaults.DefaultReason)
	if sanitized.CommandTimeoutSeconds < 0 {
		sanitized.CommandTimeoutSeconds = 0
	}

	return sanitized
}

func fallbackValue(candidate string, fallback string) string {
	if len(candidate) == 0 {
		return fallback
	}
	return candidate
}
