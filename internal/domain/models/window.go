package models

import "time"

// Window is a half-open [Start, End) period.
type Window struct {
	Start time.Time `json:"period_start"`
	End   time.Time `json:"period_end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Overlaps reports whether w and o share any instant.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// WindowAt returns the UTC-aligned tumbling window of the given size that contains t.
func WindowAt(t time.Time, size time.Duration) Window {
	start := t.UTC().Truncate(size)
	return Window{Start: start, End: start.Add(size)}
}

// LastClosedWindow returns the most recent window whose end plus grace is not after now.
func LastClosedWindow(now time.Time, size, grace time.Duration) Window {
	w := WindowAt(now.Add(-grace), size)
	return Window{Start: w.Start.Add(-size), End: w.Start}
}

// IsClosed reports whether the window no longer accepts messages at now.
func (w Window) IsClosed(now time.Time, grace time.Duration) bool {
	return !now.Before(w.End.Add(grace))
}
