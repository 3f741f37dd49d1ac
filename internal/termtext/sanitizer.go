package termtext

import "regexp"

const controlSequencePatternConstant = `\x1B(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`

var controlSequenceExpression = regexp.MustCompile(controlSequencePatternConstant)

// StripControlSequences removes ANSI escape sequences (the CSI and OSC
// introducer family) from the provided text. Text without control sequences is
// returned unchanged, so applying the function repeatedly is a no-op, and all
// remaining characters, including multi-byte runes, are preserved.
func StripControlSequences(text string) string {
	if len(text) == 0 {
		return text
	}
	return controlSequenceExpression.ReplaceAllString(text, "")
}
