// Package usage implements the per-account, per-window send counters behind
// admission control.
//
// Two Store implementations exist: RedisStore shares quota across hosts via
// atomic Lua scripts, MemoryStore serializes per account with a sharded
// mutex table for single-node deployments and tests. Both roll windows over
// lazily on access; no background timer exists.
package usage
