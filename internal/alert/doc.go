// Package alert records threshold-crossing notifications and pushes
// Critical ones to operators by email.
//
// Emission is idempotent per (account, windowKey, threshold): crossing 80%
// of a daily limit produces one Warning for that day, no matter how many
// requests observe the crossing.
package alert
