package engine

import "time"

// AppointmentDuration is the fixed countdown the server arms for each
// appointment turn; `start` and `appointment_pass` both reset to it.
const AppointmentDuration = 30 * time.Second

// displayEpsilon absorbs scheduling jitter so a tick that lands a few
// milliseconds early does not show the next-lower second.
const displayEpsilon = 20 * time.Millisecond

// DisplaySeconds converts a remaining duration to the whole-second count a
// countdown should show: the ceiling of (remaining - epsilon), clamped at zero.
// 10.0s..9.02s shows 10; only at (and past) expiry does it show 0.
func DisplaySeconds(remaining time.Duration) int {
	remaining -= displayEpsilon
	if remaining <= 0 {
		return 0
	}
	secs := remaining / time.Second
	if remaining%time.Second > 0 {
		secs++
	}
	return int(secs)
}
