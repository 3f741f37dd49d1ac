// Package httpapi exposes batch migrations over HTTP: health endpoints plus
// authenticated POST endpoints that move companies to the beta or master
// environment and report per-company outcomes.
package httpapi
