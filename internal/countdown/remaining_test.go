package countdown

import (
	"testing"
	"time"
)

func TestRemaining(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		deadline time.Time
		want     RemainingTime
	}{
		{"past", now.Add(-time.Hour), RemainingTime{}},
		{"exactly now", now, RemainingTime{}},
		{"sub-second", now.Add(999 * time.Millisecond), RemainingTime{}},
		{"one second", now.Add(time.Second), RemainingTime{Seconds: 1}},
		{"floors milliseconds", now.Add(61*time.Second + 999*time.Millisecond), RemainingTime{Minutes: 1, Seconds: 1}},
		{"mixed", now.Add(2*24*time.Hour + 3*time.Hour + 4*time.Minute + 5*time.Second), RemainingTime{Days: 2, Hours: 3, Minutes: 4, Seconds: 5}},
		{"just under a day", now.Add(24*time.Hour - time.Millisecond), RemainingTime{Hours: 23, Minutes: 59, Seconds: 59}},
		{"exactly a day", now.Add(24 * time.Hour), RemainingTime{Days: 1}},
		{"a year", now.Add(365 * 24 * time.Hour), RemainingTime{Days: 365}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Remaining(tt.deadline, now); got != tt.want {
				t.Errorf("Remaining() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRemainingFieldRanges(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Walk a range of offsets, both sides of the deadline.
	for offset := -3 * time.Hour; offset < 400*24*time.Hour; offset += 7*time.Hour + 13*time.Minute + 17*time.Second + 19*time.Millisecond {
		got := Remaining(now.Add(offset), now)

		if offset <= 0 {
			if !got.IsZero() {
				t.Fatalf("offset %v: expected zero, got %+v", offset, got)
			}
			continue
		}

		if got.Days < 0 || got.Hours < 0 || got.Hours >= 24 || got.Minutes < 0 || got.Minutes >= 60 || got.Seconds < 0 || got.Seconds >= 60 {
			t.Fatalf("offset %v: field out of range: %+v", offset, got)
		}

		total := time.Duration(got.Days)*24*time.Hour +
			time.Duration(got.Hours)*time.Hour +
			time.Duration(got.Minutes)*time.Minute +
			time.Duration(got.Seconds)*time.Second
		if total > offset || offset-total >= time.Second {
			t.Fatalf("offset %v: breakdown %+v is not a floor", offset, got)
		}
	}
}

func TestDeadlineFor(t *testing.T) {
	loc := time.FixedZone("test", 2*60*60)

	tests := []struct {
		name string
		now  time.Time
		days int
		hour int
		want time.Time
	}{
		{
			name: "midday start",
			now:  time.Date(2026, 10, 14, 12, 0, 0, 0, loc),
			days: 10,
			hour: 7,
			want: time.Date(2026, 10, 24, 7, 0, 0, 0, loc),
		},
		{
			name: "crosses month end",
			now:  time.Date(2026, 1, 30, 23, 59, 0, 0, loc),
			days: 3,
			hour: 7,
			want: time.Date(2026, 2, 2, 7, 0, 0, 0, loc),
		},
		{
			name: "crosses year end",
			now:  time.Date(2026, 12, 31, 6, 0, 0, 0, loc),
			days: 365,
			hour: 9,
			want: time.Date(2027, 12, 31, 9, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeadlineFor(tt.now, tt.days, tt.hour)
			if !got.Equal(tt.want) {
				t.Errorf("DeadlineFor() = %v, want %v", got, tt.want)
			}
		})
	}
}
