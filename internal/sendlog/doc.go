// Package sendlog maintains the append-only send attempt log that feeds
// reputation recalculation.
//
// Attempts are created pending and transition to a terminal outcome exactly
// once. Every K recorded outcomes the service kicks an asynchronous
// recalculation; recalculation failures are logged and retried on the next
// trigger, never surfaced to the caller reporting the outcome.
package sendlog
