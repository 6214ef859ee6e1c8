// Package trustedclock reconstructs a wall clock that resists user-level
// manipulation of the system time.
//
// # Lifecycle
//
// A Clock starts uninitialized and Now falls back to the system clock.
// Bootstrap anchors a trusted start time (network time when available,
// never below the most advanced persisted epoch) to the monotonic clock.
// From then on Now is start plus monotonic elapsed time, independent of the
// system clock.
//
// CheckAndUpdate is the periodic tick. Each tick:
//
//  1. compares the digest of the persisted evidence with the last snapshot
//     and declares tampering if the evidence changed and no longer holds a
//     recent epoch
//  2. declares tampering if the system clock fell behind the trusted clock
//     by more than the backward tolerance, after allowing for the skew
//     measured against network time
//  3. fast-forwards to persisted evidence that is ahead of the trusted clock
//  4. re-persists the trusted time every persist interval
//  5. every resync interval, adopts network time that is materially ahead
//
// Tampering is one-way. Once declared, IsTampered stays true, CheckAndUpdate
// returns the same ClockTampered error and the registered Notifier has been
// told exactly once.
//
// The thresholds come from config.GuardConfig. They bound what a patient
// attacker can gain by small steps; they do not prevent it.
package trustedclock
