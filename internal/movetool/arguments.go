package movetool

import "fmt"

const (
	flagTokenTemplateConstant      = "--%s"
	flagValueTokenTemplateConstant = "--%s=%v"
)

// NamedArgument pairs an argument name with its value. Boolean true renders as
// a bare flag, boolean false is omitted entirely, and every other value
// renders as a single --name=value token.
type NamedArgument struct {
	Name  string
	Value any
}

// InvocationSpec describes one migration tool call: a command name plus its
// named arguments in the order they should be emitted. It is immutable once
// built and scoped to a single invocation.
type InvocationSpec struct {
	CommandName    string
	NamedArguments []NamedArgument
}

// EncodeArguments converts a launch plan and invocation spec into the argument
// vector passed to the child process. The encoding is a structural transform
// only; argument names and values are not validated here.
func EncodeArguments(launchPlan LaunchPlan, specification InvocationSpec) []string {
	tokens := append([]string{}, launchPlan.ArgumentPrefix...)
	tokens = append(tokens, specification.CommandName)

	for _, namedArgument := range specification.NamedArguments {
		booleanValue, isBoolean := namedArgument.Value.(bool)
		if isBoolean {
			if booleanValue {
				tokens = append(tokens, fmt.Sprintf(flagTokenTemplateConstant, namedArgument.Name))
			}
			continue
		}
		tokens = append(tokens, fmt.Sprintf(flagValueTokenTemplateConstant, namedArgument.Name, namedArgument.Value))
	}

	return tokens
}
