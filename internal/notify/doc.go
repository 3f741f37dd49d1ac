// Package notify delivers batch completion summaries to an optional webhook
// endpoint. Delivery is best effort; failures are logged and never surfaced to
// the caller that produced the batch.
package notify
