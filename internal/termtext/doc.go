// Package termtext cleans captured terminal output and extracts structured
// fields from it. It strips ANSI control sequences emitted by colorized CLIs
// and recovers the country code reported by migration tooling so callers can
// surface it alongside the sanitized transcript.
package termtext
