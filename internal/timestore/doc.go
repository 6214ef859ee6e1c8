// Package timestore persists trusted epochs as obfuscated, checksummed
// tokens in three independent key-value slots.
//
// Each slot holds a token produced by Pack with its own sub-seed and lives
// under a key derived from the seed and the slot index, so the values read
// like unrelated opaque settings. Reads are best-effort: a missing or corrupt
// slot is skipped, and ReadBest returns the most advanced epoch found
// anywhere. StateDigest hashes the raw slot contents so callers can detect
// any external modification, deletion included, between two checks.
//
// Backends implement KeyValueStore: KeyringStore uses the OS credential
// store, FileStore uses per-namespace JSON files and MemoryStore serves tests.
package timestore
