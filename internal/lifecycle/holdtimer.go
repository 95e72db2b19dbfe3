package lifecycle

import (
	"fmt"
	"time"

	"github.com/spec-kit/account-lifecycle/internal/domain"
)

// HoldTimer derives the remaining hold window for a profile on hold.
//
// It runs as two cooperating layers: Reset re-derives the remaining duration
// from an authoritative profile snapshot, and Tick cheaply decrements the
// last known value between snapshots. Tick never consults the wall clock, so
// accumulated drift is discarded every time a fresh snapshot arrives.
type HoldTimer struct {
	remaining time.Duration
	eligible  bool
	running   bool
}

// NewHoldTimer returns a timer with no hold window loaded. It reports not
// eligible until a snapshot with an elapsed hold end resets it.
func NewHoldTimer() *HoldTimer {
	return &HoldTimer{}
}

// Reset re-derives the countdown from a profile snapshot and the current
// time. Profiles not on hold stop the timer.
func (t *HoldTimer) Reset(p *domain.Profile, now time.Time) {
	if p == nil || !p.IsOnHold() || p.HoldEnd == nil {
		t.remaining = 0
		t.eligible = false
		t.running = false
		return
	}
	t.ResetDeadline(*p.HoldEnd, now)
}

// ResetDeadline re-derives the countdown directly from a hold end timestamp.
func (t *HoldTimer) ResetDeadline(holdEnd, now time.Time) {
	remaining := holdEnd.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	t.remaining = remaining
	t.eligible = remaining == 0
	t.running = true
}

// Tick advances the countdown by one tick interval. Once the countdown hits
// zero the eligible flag latches and further ticks are no-ops.
func (t *HoldTimer) Tick(interval time.Duration) {
	if !t.running || t.eligible {
		return
	}
	t.remaining -= interval
	if t.remaining <= 0 {
		t.remaining = 0
		t.eligible = true
	}
}

// Stop halts the countdown, e.g. when the profile leaves the hold state.
func (t *HoldTimer) Stop() {
	t.remaining = 0
	t.eligible = false
	t.running = false
}

// Running reports whether a hold window is loaded.
func (t *HoldTimer) Running() bool {
	return t.running
}

// Remaining returns the last derived remaining duration.
func (t *HoldTimer) Remaining() time.Duration {
	return t.remaining
}

// EligibleToActivate reports whether the hold window has fully elapsed.
func (t *HoldTimer) EligibleToActivate() bool {
	return t.running && t.eligible
}

// Countdown renders the remaining duration for display.
func (t *HoldTimer) Countdown() string {
	return FormatCountdown(t.remaining)
}

// FormatCountdown renders a duration as "Nd HH:MM:SS" when it spans at least
// one full day, "HH:MM:SS" otherwise. Non-positive durations render as
// "00:00:00".
func FormatCountdown(d time.Duration) string {
	if d <= 0 {
		return "00:00:00"
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	minutes := int(d/time.Minute) % 60
	seconds := int(d/time.Second) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
