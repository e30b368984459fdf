package retention

import "time"

// DayKey maps a timestamp to its UTC calendar day, counted in days since the
// Unix epoch. Two instants on the same UTC day always share a key, so the key
// is a property of the build alone. The thinning decision takes the key, not
// the age, as its modulus operand; that is what keeps a build's keep/drop
// classification from flipping between daily runs.
func DayKey(t time.Time) int {
	u := t.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return int(midnight.Unix() / 86400)
}

// AgeDays is the whole-day age of a build day relative to the current day.
// Future-dated builds (clock skew, pre-published tags) clamp to 0 and are
// treated as brand new.
func AgeDays(nowKey, buildKey int) int {
	age := nowKey - buildKey
	if age < 0 {
		return 0
	}
	return age
}
