// Package batch fans one migration request out into concurrent tool
// invocations, one per company identifier, and folds the per-item outcomes
// into a single result. Item failures are contained at item granularity; one
// company's failure never cancels or disturbs its siblings.
package batch
