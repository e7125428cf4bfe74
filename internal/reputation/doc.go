// Package reputation computes per-account sender scores from trailing send
// outcomes and owns every tier transition: warm-up progression, score-based
// demotion, suspension and reinstatement.
//
// Nothing else in the engine mutates ReputationRecord or Account.Tier. The
// admission path only reads the last committed values; recalculation runs
// off the outcome log, asynchronously, and must never block an in-flight
// admission check.
package reputation
