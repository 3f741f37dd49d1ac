// Package plan loads declarative migration plans from YAML: an ordered list
// of batches, each naming company identifiers, a destination, and optional
// overrides for the git user and reason.
package plan
