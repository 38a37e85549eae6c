package countdown

import "time"

const (
	millisPerDay    = 86_400_000
	millisPerHour   = 3_600_000
	millisPerMinute = 60_000
	millisPerSecond = 1000
)

// RemainingTime is the floor breakdown of the time left before a deadline.
type RemainingTime struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// IsZero reports whether every field is zero. That is true once the
// deadline has passed and also while less than one whole second is left;
// the controller treats both as the deadline being reached.
func (r RemainingTime) IsZero() bool {
	return r == RemainingTime{}
}

// Remaining returns the floor breakdown of the time left from now until
// deadline, clamped at zero. Milliseconds are dropped, so a remainder below
// one second yields the zero value; compare the instants directly to tell
// that apart from a passed deadline.
func Remaining(deadline, now time.Time) RemainingTime {
	diff := deadline.UnixMilli() - now.UnixMilli()
	if diff <= 0 {
		return RemainingTime{}
	}

	return RemainingTime{
		Days:    int(diff / millisPerDay),
		Hours:   int(diff % millisPerDay / millisPerHour),
		Minutes: int(diff % millisPerHour / millisPerMinute),
		Seconds: int(diff % millisPerMinute / millisPerSecond),
	}
}

// DeadlineFor returns the deadline days calendar days after now, at hour:00
// local time in now's location.
func DeadlineFor(now time.Time, days, hour int) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day+days, hour, 0, 0, 0, now.Location())
}
