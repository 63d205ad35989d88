package quota

import "time"

const (
	// MaxPerWindow is the number of free analyses per window.
	MaxPerWindow = 2
	// WindowDays is the window length in whole days.
	WindowDays = 7

	day = 24 * time.Hour
)

// State is the quota-relevant slice of a user record.
type State struct {
	Unlimited bool      // Subscribed users bypass the quota.
	Count     int       // Units consumed in the current window.
	ResetAt   time.Time // Start of the current window.
	Window    int64     // Generation counter, bumped on every reset.
}

// DaysSinceReset returns the number of whole days elapsed since the window started.
func (s State) DaysSinceReset(now time.Time) int {
	elapsed := now.Sub(s.ResetAt)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / day)
}

// Expired reports whether the window has run its full length.
func (s State) Expired(now time.Time) bool {
	return !s.Unlimited && s.DaysSinceReset(now) >= WindowDays
}

// Remaining returns the free units left in the window.
func (s State) Remaining() int {
	if s.Count >= MaxPerWindow {
		return 0
	}
	if s.Count < 0 {
		return MaxPerWindow
	}
	return MaxPerWindow - s.Count
}

// DaysUntilReset returns how many days remain before the window expires.
func (s State) DaysUntilReset(now time.Time) int {
	return WindowDays - s.DaysSinceReset(now)
}

// Advance collapses an expired window into a fresh one starting at now.
// The second result reports whether a collapse happened.
func Advance(s State, now time.Time) (State, bool) {
	if !s.Expired(now) {
		return s, false
	}
	return State{Count: 0, ResetAt: now, Window: s.Window + 1}, true
}
