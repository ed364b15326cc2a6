// Package quota computes the per-actor rolling windows used to cap how often
// free members may send connection requests.
package quota

import "time"

const (
	// WindowLength is the length of one quota window
	WindowLength = 7 * 24 * time.Hour

	// WeeklyConnectionLimit caps connection requests per window for free actors
	WeeklyConnectionLimit = 4

	// LifetimeApplicationLimit caps job applications for free actors
	LifetimeApplicationLimit = 2
)

// Policy holds the caps enforced for free-tier actors
type Policy struct {
	WeeklyConnections    int
	LifetimeApplications int
	Window               time.Duration
}

// DefaultPolicy returns the production caps
func DefaultPolicy() Policy {
	return Policy{
		WeeklyConnections:    WeeklyConnectionLimit,
		LifetimeApplications: LifetimeApplicationLimit,
		Window:               WindowLength,
	}
}

// Window is the half-open interval [Start, End)
type Window struct {
	Start time.Time
	End   time.Time
}

// CurrentWindow returns the window containing now. Windows are anchored to the
// actor's signup instant, so two actors rarely share boundaries.
func CurrentWindow(anchor, now time.Time, length time.Duration) Window {
	if length <= 0 {
		length = WindowLength
	}
	if now.Before(anchor) {
		// Clock skew between the identity service and us
		return Window{Start: anchor, End: anchor.Add(length)}
	}
	k := now.Sub(anchor) / length
	start := anchor.Add(k * length)
	return Window{Start: start, End: start.Add(length)}
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Remaining is the time left until the window closes
func (w Window) Remaining(now time.Time) time.Duration {
	if now.After(w.End) {
		return 0
	}
	return w.End.Sub(now)
}

// RetryAfterDays rounds the remaining time up to whole days, never below one
func (w Window) RetryAfterDays(now time.Time) int {
	d := w.Remaining(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}
