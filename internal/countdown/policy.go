package countdown

import (
	"fmt"

	"github.com/goodtune/countdown/internal/generation"
)

// Bucket names the band of days remaining that decides what content to show.
type Bucket string

const (
	BucketToday        Bucket = "today"
	BucketFinalDay     Bucket = "final_day"
	BucketLongHorizon  Bucket = "long_horizon"
	BucketMidHorizon   Bucket = "mid_horizon"
	BucketShortHorizon Bucket = "short_horizon"
	BucketFinalStretch Bucket = "final_stretch"
	BucketNotStarted   Bucket = "not_started"
	BucketReached      Bucket = "reached"
)

// Selection is the content choice for one bucket. When Fixed is set,
// Message and Tip are the text to display; otherwise they describe what
// to ask the generator for.
type Selection struct {
	Bucket  Bucket
	Fixed   bool
	Message string
	Tip     string
}

// Request converts a generated selection into a generation request.
func (s Selection) Request() generation.Request {
	return generation.Request{Message: s.Message, Tip: s.Tip}
}

// Content returns the display pair of a fixed selection.
func (s Selection) Content() generation.Content {
	return generation.Content{Message: s.Message, Tip: s.Tip}
}

var (
	todaySelection = Selection{
		Bucket:  BucketToday,
		Fixed:   true,
		Message: "Today is the day! Everything you've worked toward comes together now.",
		Tip:     "Take a breath, trust your preparation and enjoy the moment.",
	}

	notStartedSelection = Selection{
		Bucket:  BucketNotStarted,
		Fixed:   true,
		Message: "Set a countdown to get started.",
		Tip:     "Choose how many days you have and we'll keep you on track.",
	}

	// ReachedContent is displayed once the deadline has passed.
	ReachedContent = generation.Content{
		Message: "The countdown is complete. You made it!",
		Tip:     "Reset whenever you're ready to start the next one.",
	}
)

// SelectContent picks the content bucket for daysRemaining. isToday means
// the countdown is still running with less than a day to go; it overrides
// every day-count bucket. Negative daysRemaining is treated as zero.
func SelectContent(daysRemaining int, isToday bool) Selection {
	if daysRemaining < 0 {
		daysRemaining = 0
	}

	switch {
	case isToday:
		return todaySelection
	case daysRemaining == 1:
		return Selection{
			Bucket:  BucketFinalDay,
			Message: "an energising message for someone whose big day is tomorrow",
			Tip:     "a practical tip for the final evening before the big day",
		}
	case daysRemaining > 50:
		return Selection{
			Bucket:  BucketLongHorizon,
			Message: fmt.Sprintf("an encouraging message for someone with %d days to go, focused on building steady habits", daysRemaining),
			Tip:     fmt.Sprintf("a practical tip for planning the next %d days at a sustainable pace", daysRemaining),
		}
	case daysRemaining > 30:
		return Selection{
			Bucket:  BucketMidHorizon,
			Message: fmt.Sprintf("a motivating message for someone with %d days to go, about keeping momentum", daysRemaining),
			Tip:     fmt.Sprintf("a practical tip for checking progress with %d days left", daysRemaining),
		}
	case daysRemaining > 7:
		return Selection{
			Bucket:  BucketShortHorizon,
			Message: fmt.Sprintf("a focused, upbeat message for someone with only %d days to go", daysRemaining),
			Tip:     fmt.Sprintf("a practical tip for prioritising what matters most in the last %d days", daysRemaining),
		}
	case daysRemaining > 0:
		return Selection{
			Bucket:  BucketFinalStretch,
			Message: fmt.Sprintf("a calm, confident message for the final stretch with %d days remaining", daysRemaining),
			Tip:     fmt.Sprintf("a practical tip for staying rested and ready over the last %d days", daysRemaining),
		}
	default:
		return notStartedSelection
	}
}
