// Package admission is the single entry point callers use to ask "may this
// account send N messages right now".
//
// A check reserves capacity in the daily window, then the hourly window.
// The two reservations are all-or-nothing: if the hourly reservation is
// denied, the daily one is rolled back, so a request for N is never
// partially admitted. Storage failures deny (fail closed): over-sending
// damages reputation, a false denial only delays a batch.
//
// The controller mutates counters and emits alerts, nothing else. Tier and
// reputation changes belong to the reputation engine.
package admission
