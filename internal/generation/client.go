package generation

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goodtune/countdown/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxRetries is the number of extra attempts after a rate-limited call
	DefaultMaxRetries = 5

	// DefaultInitialBackoff is the first wait; each later wait doubles it
	DefaultInitialBackoff = time.Second
)

// Completer sends a prompt to a text generation backend and returns the raw reply.
// Implementations wrap ErrRateLimited when the backend asks the caller to slow down.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds client retry settings.
// MaxRetries of zero disables retries. A zero InitialBackoff uses DefaultInitialBackoff.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
}

// DefaultConfig returns the standard retry policy: 5 retries waiting 1s, 2s, 4s, 8s and 16s.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
	}
}

// Client generates Content through a Completer, retrying rate-limited calls
// with exponential backoff.
type Client struct {
	completer      Completer
	maxRetries     int
	initialBackoff time.Duration
	newTimer       func() backoff.Timer
	logger         zerolog.Logger
}

var _ Generator = (*Client)(nil)

// NewClient creates a new generation client
func NewClient(completer Completer, config Config, logger zerolog.Logger) *Client {
	if config.InitialBackoff == 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}

	return &Client{
		completer:      completer,
		maxRetries:     config.MaxRetries,
		initialBackoff: config.InitialBackoff,
		logger:         logger.With().Str("component", "generation").Logger(),
	}
}

// Generate submits one combined prompt and parses the reply.
//
// Only ErrRateLimited is retried. A terminal failure is returned as *Error
// carrying fallback content. If ctx ends first, including during a backoff
// wait, the context error is returned as is.
func (c *Client) Generate(ctx context.Context, req Request) (Content, error) {
	prompt := BuildPrompt(req)
	log := c.logger.With().Str("request_id", uuid.NewString()).Logger()
	startTime := time.Now()

	var (
		content  Content
		attempts int
	)

	operation := func() error {
		attempts++
		metrics.GenerationAttemptsTotal.Inc()

		raw, err := c.completer.Complete(ctx, prompt)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				metrics.GenerationRateLimited.Inc()
				return err
			}
			return backoff.Permanent(err)
		}

		parsed, err := ParseContent(raw)
		if err != nil {
			return backoff.Permanent(err)
		}

		content = parsed
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().
			Err(err).
			Int("attempt", attempts).
			Dur("backoff", wait).
			Msg("Generation rate limited, backing off")
	}

	var timer backoff.Timer
	if c.newTimer != nil {
		timer = c.newTimer()
	}

	err := backoff.RetryNotifyWithTimer(operation, c.backOff(ctx), notify, timer)
	metrics.GenerationDuration.Observe(time.Since(startTime).Seconds())

	if err == nil {
		metrics.GenerationRequestsTotal.WithLabelValues("success").Inc()
		log.Debug().Int("attempts", attempts).Msg("Content generated")
		return content, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		metrics.GenerationRequestsTotal.WithLabelValues("canceled").Inc()
		log.Debug().Int("attempts", attempts).Msg("Generation canceled")
		return Content{}, ctxErr
	}

	genErr := newError(err, attempts)
	metrics.GenerationRequestsTotal.WithLabelValues(string(genErr.Kind)).Inc()
	log.Error().
		Err(err).
		Str("kind", string(genErr.Kind)).
		Int("attempts", attempts).
		Msg("Generation failed")

	return Content{}, genErr
}

// backOff builds a fresh jitter-free exponential schedule bounded by maxRetries.
func (c *Client) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.initialBackoff
	exp.RandomizationFactor = 0
	exp.Multiplier = 2
	exp.MaxInterval = 24 * time.Hour
	exp.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.maxRetries)), ctx)
}
