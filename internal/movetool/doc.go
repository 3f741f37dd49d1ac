// Package movetool knows how to invoke the external site migration tool. It
// resolves the launch plan for the configured execution environment, encodes
// named arguments into an argument vector, and runs the tool through an
// execshell executor with an optional per-invocation timeout.
package movetool
