package generation

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited marks a backend rejection that is worth retrying.
	ErrRateLimited = errors.New("generation: rate limited")

	// ErrParse marks a successful response whose payload could not be used.
	ErrParse = errors.New("generation: malformed response")

	// ErrUpstream marks any other backend failure.
	ErrUpstream = errors.New("generation: upstream failure")
)

// Kind classifies a terminal generation failure.
type Kind string

const (
	KindRateLimited Kind = "rate_limited"
	KindParse       Kind = "parse"
	KindUpstream    Kind = "upstream"
)

// Error is a terminal generation failure. Fallback holds the content to
// display instead.
type Error struct {
	Kind     Kind
	Attempts int
	Err      error
	Fallback Content
}

func (e *Error) Error() string {
	return fmt.Sprintf("generation failed (%s) after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(err error, attempts int) *Error {
	kind := KindUpstream
	switch {
	case errors.Is(err, ErrRateLimited):
		kind = KindRateLimited
	case errors.Is(err, ErrParse):
		kind = KindParse
	}
	return &Error{
		Kind:     kind,
		Attempts: attempts,
		Err:      err,
		Fallback: FallbackContent,
	}
}

// FallbackFor returns the content to display for err.
func FallbackFor(err error) Content {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Fallback
	}
	return FallbackContent
}
