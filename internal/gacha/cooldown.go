package gacha

import "time"

// RollCooldown is the fixed window between two rolls for one user.
const RollCooldown = 24 * time.Hour

// CanRoll reports whether a user whose most recent roll happened at lastRoll
// may roll again at now. A zero lastRoll means the user never rolled.
func CanRoll(lastRoll, now time.Time) bool {
	if lastRoll.IsZero() {
		return true
	}
	return now.Sub(lastRoll) >= RollCooldown
}

// Countdown returns the time remaining until the next roll is allowed, or 0
// when the user is already eligible.
func Countdown(lastRoll, now time.Time) time.Duration {
	if CanRoll(lastRoll, now) {
		return 0
	}
	return lastRoll.Add(RollCooldown).Sub(now)
}
