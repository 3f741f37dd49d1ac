package movetool

import (
	"path/filepath"
	"strings"
)

const (
	goExecutableNameConstant = "go"
	goRunArgumentConstant    = "run"
	goEntryPointNameConstant = "main.go"
)

// LaunchPlan describes how the migration tool is started in the resolved
// execution environment.
type LaunchPlan struct {
	Executable       string
	ArgumentPrefix   []string
	WorkingDirectory string
}

// ResolveLaunchPlan maps the configured environment onto an invocation style.
// Production runs the installed binary directly from its configured path;
// every other environment builds and runs the tool's source entry point. The
// mapping is pure and never fails; a misconfigured path surfaces later as a
// missing-executable process failure.
func ResolveLaunchPlan(settings Settings) LaunchPlan {
	if strings.EqualFold(strings.TrimSpace(settings.Environment), productionEnvironmentNameConstant) {
		return LaunchPlan{
			Executable:       filepath.Join(settings.ProductionExecutablePath, settings.ProductionExecutableName),
			WorkingDirectory: settings.ProductionExecutablePath,
		}
	}

	return LaunchPlan{
		Executable:       goExecutableNameConstant,
		ArgumentPrefix:   []string{goRunArgumentConstant, goEntryPointNameConstant},
		WorkingDirectory: settings.DevelopmentProjectPath,
	}
}
