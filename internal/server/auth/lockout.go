package auth

import "time"

const (
	DefaultLockoutThreshold = 2
	DefaultLockoutDuration  = 30 * time.Minute
)

// LockoutState is the per-account failure bookkeeping the caller persists.
type LockoutState struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// LockedAt reports whether the state holds a lock that has not elapsed at now.
func (s LockoutState) LockedAt(now time.Time) bool {
	return s.LockedUntil != nil && s.LockedUntil.After(now)
}

// Equal reports whether two states would persist identically.
func (s LockoutState) Equal(o LockoutState) bool {
	if s.FailedAttempts != o.FailedAttempts {
		return false
	}
	if s.LockedUntil == nil || o.LockedUntil == nil {
		return s.LockedUntil == nil && o.LockedUntil == nil
	}
	return s.LockedUntil.Equal(*o.LockedUntil)
}

// LockoutDecision is the result of applying one attempt to a LockoutState.
type LockoutDecision struct {
	State   LockoutState
	Allowed bool
	// Locked is set when the attempt was rejected because the account is,
	// or has just become, locked.
	Locked bool
}

// LockoutPolicy locks an account for Duration once FailedAttempts reaches
// Threshold consecutive mismatches.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// NewLockoutPolicy returns a policy, substituting defaults for non-positive values.
func NewLockoutPolicy(threshold int, duration time.Duration) LockoutPolicy {
	if threshold <= 0 {
		threshold = DefaultLockoutThreshold
	}
	if duration <= 0 {
		duration = DefaultLockoutDuration
	}
	return LockoutPolicy{Threshold: threshold, Duration: duration}
}

// OnAttempt applies one verification attempt.
//
// An active lock rejects the attempt before matched is even considered. A lock
// that has elapsed is treated as an open account with a fresh cycle, so the
// stale counter is not carried into the next lock decision.
func (p LockoutPolicy) OnAttempt(current LockoutState, matched bool, now time.Time) LockoutDecision {
	if current.LockedAt(now) {
		return LockoutDecision{State: current, Allowed: false, Locked: true}
	}

	if matched {
		return LockoutDecision{State: LockoutState{}, Allowed: true}
	}

	failed := current.FailedAttempts
	if current.LockedUntil != nil {
		failed = 0
	}
	failed++

	if failed >= p.Threshold {
		until := now.Add(p.Duration)
		return LockoutDecision{
			State:  LockoutState{FailedAttempts: failed, LockedUntil: &until},
			Locked: true,
		}
	}

	return LockoutDecision{State: LockoutState{FailedAttempts: failed}}
}
