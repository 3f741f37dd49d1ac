// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with lifecycle logging via ShellExecutor, exposes
// OSCommandRunner for default process execution, and defines the typed errors
// massmove uses to classify migration tool failures in a testable manner.
package execshell
