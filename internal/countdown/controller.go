// Package countdown implements the countdown lifecycle: the tick loop,
// deadline persistence and de-duplicated content generation.
package countdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goodtune/countdown/internal/clock"
	"github.com/goodtune/countdown/internal/generation"
	"github.com/goodtune/countdown/internal/metrics"
	"github.com/goodtune/countdown/internal/storage"
	"github.com/rs/zerolog"
)

const (
	// DefaultTickInterval is the cadence of the tick loop
	DefaultTickInterval = time.Second

	// DefaultDeadlineHour is the local hour new deadlines land on
	DefaultDeadlineHour = 7

	storeTimeout = 10 * time.Second

	// todayKey is the dedupe key for the final partial day
	todayKey = -1
)

// Options configures a Controller.
type Options struct {
	Store     storage.DeadlineStore
	Generator generation.Generator
	Clock     clock.Clock
	Logger    zerolog.Logger

	// TickInterval defaults to DefaultTickInterval when zero.
	TickInterval time.Duration

	// DeadlineHour is the local hour of day (0-23) new deadlines are set to.
	DeadlineHour int
}

// Snapshot is a copy of the controller's observable state.
type Snapshot struct {
	State           State              `json:"state"`
	Identity        string             `json:"identity,omitempty"`
	Deadline        *time.Time         `json:"deadline,omitempty"`
	Remaining       RemainingTime      `json:"remaining"`
	Bucket          Bucket             `json:"bucket,omitempty"`
	Content         generation.Content `json:"content"`
	ContentFallback bool               `json:"contentFallback"`
	Loading         bool               `json:"loading"`
	Error           string             `json:"error,omitempty"`
}

// EffectKind identifies a side effect produced by ApplyTick.
type EffectKind int

const (
	EffectGenerate EffectKind = iota
	EffectDelete
	EffectStopLoop
)

func (k EffectKind) String() string {
	switch k {
	case EffectGenerate:
		return "generate"
	case EffectDelete:
		return "delete"
	case EffectStopLoop:
		return "stop_loop"
	default:
		return "unknown"
	}
}

// Effect is a side effect the caller of ApplyTick must hand to Perform.
type Effect struct {
	Kind EffectKind

	// Request and Bucket are set for EffectGenerate.
	Request generation.Request
	Bucket  Bucket

	// Identity is set for EffectDelete.
	Identity string

	key   int
	epoch uint64
	ctx   context.Context
}

// dedupe tracks which day bucket content was last settled for and whether
// a generation is outstanding.
type dedupe struct {
	lastKey  int
	settled  bool
	inFlight bool
}

// Controller owns the countdown state machine. All state is guarded by mu.
type Controller struct {
	store        storage.DeadlineStore
	generator    generation.Generator
	clock        clock.Clock
	logger       zerolog.Logger
	tickInterval time.Duration
	deadlineHour int

	mu              sync.Mutex
	state           State
	identity        string
	deadline        time.Time
	remaining       RemainingTime
	bucket          Bucket
	content         generation.Content
	contentFallback bool
	faultMessage    string
	dedupe          dedupe
	epoch           uint64
	cancelGenerate  context.CancelFunc
	ticker          clock.Ticker
	stopLoop        chan struct{}
	subscribers     map[int]chan Snapshot
	nextSubscriber  int
	closed          bool

	baseCtx    context.Context
	baseCancel context.CancelFunc
	tasks      sync.WaitGroup
	loops      sync.WaitGroup
}

// New creates a controller in the Bootstrapping state.
func New(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		store:        opts.Store,
		generator:    opts.Generator,
		clock:        opts.Clock,
		logger:       opts.Logger.With().Str("component", "countdown").Logger(),
		tickInterval: opts.TickInterval,
		deadlineHour: opts.DeadlineHour,
		state:        Bootstrapping,
		subscribers:  make(map[int]chan Snapshot),
		baseCtx:      ctx,
		baseCancel:   cancel,
	}
	metrics.SetLifecycleState(c.state.String(), StateNames())
	return c
}

// SetIdentity supplies the identity and loads any persisted deadline.
// It may be called once; later calls return ErrIdentityAlreadySet.
func (c *Controller) SetIdentity(ctx context.Context, identity string) (Snapshot, error) {
	if err := storage.CheckIdentity(identity); err != nil {
		return c.Snapshot(), err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return c.Snapshot(), ErrClosed
	}
	if c.identity != "" {
		c.mu.Unlock()
		return c.Snapshot(), ErrIdentityAlreadySet
	}
	c.identity = identity
	c.mu.Unlock()

	c.logger.Info().Str("identity", identity).Msg("Identity set, loading deadline")

	// The identity is consumed by this call, so a caller going away must
	// not turn a good deadline into a fault.
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	record, err := c.store.Load(loadCtx, identity)
	cancel()
	if errors.Is(err, storage.ErrNotFound) {
		metrics.ObserveStoreOperation("load", nil)
	} else {
		metrics.ObserveStoreOperation("load", err)
	}

	c.mu.Lock()
	if c.closed || c.state != Bootstrapping {
		// Reset or Close won the race with the load.
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, nil
	}

	var effects []Effect
	now := c.clock.Now()

	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.setStateLocked(AwaitingInput)

	case err != nil:
		c.logger.Error().Err(err).Str("identity", identity).Msg("Failed to load deadline")
		c.faultMessage = fmt.Sprintf("could not load saved countdown: %v", err)
		c.setStateLocked(Faulted)

	case record.Deadline().After(now):
		c.deadline = record.Deadline()
		c.setStateLocked(Counting)
		c.startLoopLocked()
		effects = c.applyTickLocked(now)

	default:
		c.logger.Info().Time("deadline", record.Deadline()).Msg("Saved deadline already passed")
		c.deadline = record.Deadline()
		effects = c.enterReachedLocked()
	}

	snap := c.snapshotLocked()
	c.publishLocked(snap)
	c.mu.Unlock()

	c.Perform(effects)
	return snap, nil
}

// Start begins a countdown of days calendar days. The deadline lands on
// the configured hour of the target day.
func (c *Controller) Start(ctx context.Context, days int) (Snapshot, error) {
	if err := ValidateDays(days); err != nil {
		return c.Snapshot(), err
	}

	c.mu.Lock()
	if c.closed {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, ErrClosed
	}
	if c.state != AwaitingInput {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("%w: cannot start while %s", ErrInvalidState, snap.State)
	}

	now := c.clock.Now()
	c.deadline = DeadlineFor(now, days, c.deadlineHour)
	c.clearContentLocked()
	c.setStateLocked(Counting)

	c.logger.Info().
		Int("days", days).
		Time("deadline", c.deadline).
		Msg("Countdown started")

	c.saveAsync(ctx, c.identity, storage.NewRecord(c.deadline, now))
	c.startLoopLocked()
	effects := c.applyTickLocked(now)

	snap := c.snapshotLocked()
	c.publishLocked(snap)
	c.mu.Unlock()

	c.Perform(effects)
	return snap, nil
}

// Reset abandons the current countdown, deletes the persisted deadline
// and returns to AwaitingInput. Any outstanding generation is cancelled
// and its result discarded.
func (c *Controller) Reset(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.snapshotLocked(), ErrClosed
	}
	if c.identity == "" {
		return c.snapshotLocked(), ErrNoIdentity
	}

	c.stopLoopLocked()
	c.invalidateLocked()
	c.deadline = time.Time{}
	c.remaining = RemainingTime{}
	c.faultMessage = ""
	c.clearContentLocked()
	c.setStateLocked(AwaitingInput)

	c.logger.Info().Str("identity", c.identity).Msg("Countdown reset")
	c.deleteAsync(ctx, c.identity)

	snap := c.snapshotLocked()
	c.publishLocked(snap)
	return snap, nil
}

// ApplyTick advances the state machine to now and returns the side effects
// to perform. It does not perform them; see Tick. Outside Counting it is a
// no-op.
//
// The returned effects MUST be passed to Perform. An EffectGenerate marks a
// generation as in flight, and until it is performed and completes no
// further content is requested for this countdown.
func (c *Controller) ApplyTick(now time.Time) (Snapshot, []Effect) {
	c.mu.Lock()
	defer c.mu.Unlock()

	effects := c.applyTickLocked(now)
	snap := c.snapshotLocked()
	if c.state == Counting || len(effects) > 0 {
		c.publishLocked(snap)
	}
	return snap, effects
}

// Tick applies a tick at now and performs its effects.
func (c *Controller) Tick(now time.Time) Snapshot {
	snap, effects := c.ApplyTick(now)
	c.Perform(effects)
	return snap
}

// Perform executes effects returned by ApplyTick. Generation and deletion
// run in the background; use Wait to block until they finish.
func (c *Controller) Perform(effects []Effect) {
	for _, effect := range effects {
		switch effect.Kind {
		case EffectGenerate:
			c.tasks.Add(1)
			go c.generate(effect)

		case EffectDelete:
			c.deleteAsync(context.Background(), effect.Identity)

		case EffectStopLoop:
			c.mu.Lock()
			if c.state != Counting {
				c.stopLoopLocked()
			}
			c.mu.Unlock()
		}
	}
}

// Snapshot returns the current observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel that receives the current snapshot and every
// later change. Slow readers only see the most recent snapshot. The cancel
// function closes the channel.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSubscriber
	c.nextSubscriber++
	c.subscribers[id] = ch
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(sub)
			}
		})
	}
}

// Wait blocks until background persistence and generation work finishes.
func (c *Controller) Wait() {
	c.tasks.Wait()
}

// Close stops the tick loop, cancels generation, closes subscriptions and
// waits for background work.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopLoopLocked()
	c.invalidateLocked()
	c.baseCancel()
	for id, sub := range c.subscribers {
		delete(c.subscribers, id)
		close(sub)
	}
	c.mu.Unlock()

	c.loops.Wait()
	c.tasks.Wait()
	c.logger.Info().Msg("Countdown controller stopped")
}

func (c *Controller) applyTickLocked(now time.Time) []Effect {
	if c.closed || c.state != Counting {
		return nil
	}
	metrics.TicksTotal.Inc()

	c.remaining = Remaining(c.deadline, now)
	if c.remaining.IsZero() {
		c.logger.Info().Time("deadline", c.deadline).Msg("Deadline reached")
		return append(c.enterReachedLocked(), Effect{Kind: EffectStopLoop})
	}

	key := c.remaining.Days
	isToday := c.remaining.Days == 0
	if isToday {
		key = todayKey
	}

	if c.dedupe.inFlight || (c.dedupe.settled && c.dedupe.lastKey == key) {
		return nil
	}

	selection := SelectContent(c.remaining.Days, isToday)
	if selection.Fixed {
		c.bucket = selection.Bucket
		c.content = selection.Content()
		c.contentFallback = false
		c.dedupe = dedupe{lastKey: key, settled: true}
		return nil
	}

	ctx, cancel := context.WithCancel(c.baseCtx)
	c.cancelGenerate = cancel
	c.dedupe.inFlight = true

	return []Effect{{
		Kind:    EffectGenerate,
		Request: selection.Request(),
		Bucket:  selection.Bucket,
		key:     key,
		epoch:   c.epoch,
		ctx:     ctx,
	}}
}

// enterReachedLocked moves to Reached and returns the delete effect for the
// persisted deadline.
func (c *Controller) enterReachedLocked() []Effect {
	c.invalidateLocked()
	c.remaining = RemainingTime{}
	c.bucket = BucketReached
	c.content = ReachedContent
	c.contentFallback = false
	c.setStateLocked(Reached)

	return []Effect{{Kind: EffectDelete, Identity: c.identity}}
}

func (c *Controller) generate(effect Effect) {
	defer c.tasks.Done()

	ctx := effect.ctx
	if ctx == nil {
		ctx = c.baseCtx
	}

	content, err := c.generator.Generate(ctx, effect.Request)

	c.mu.Lock()
	defer c.mu.Unlock()

	if effect.epoch != c.epoch || c.state != Counting {
		c.logger.Debug().
			Str("bucket", string(effect.Bucket)).
			Msg("Discarding stale generation result")
		return
	}

	if c.cancelGenerate != nil {
		c.cancelGenerate()
		c.cancelGenerate = nil
	}
	c.dedupe = dedupe{lastKey: effect.key, settled: true}
	c.bucket = effect.Bucket

	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("bucket", string(effect.Bucket)).
			Msg("Content generation failed, showing fallback")
		c.content = generation.FallbackFor(err)
		c.contentFallback = true
	} else {
		c.content = content
		c.contentFallback = false
	}

	c.publishLocked(c.snapshotLocked())
}

// invalidateLocked cancels any outstanding generation and makes its result stale.
func (c *Controller) invalidateLocked() {
	c.epoch++
	if c.cancelGenerate != nil {
		c.cancelGenerate()
		c.cancelGenerate = nil
	}
	c.dedupe = dedupe{}
}

func (c *Controller) clearContentLocked() {
	c.bucket = ""
	c.content = generation.Content{}
	c.contentFallback = false
	c.dedupe = dedupe{}
}

func (c *Controller) setStateLocked(state State) {
	if c.state == state {
		return
	}
	c.logger.Debug().
		Str("from", c.state.String()).
		Str("to", state.String()).
		Msg("State transition")
	c.state = state
	metrics.SetLifecycleState(state.String(), StateNames())
}

func (c *Controller) startLoopLocked() {
	c.stopLoopLocked()

	ticker := c.clock.NewTicker(c.tickInterval)
	stop := make(chan struct{})
	c.ticker = ticker
	c.stopLoop = stop

	c.loops.Add(1)
	go c.runLoop(ticker, stop)
}

func (c *Controller) stopLoopLocked() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.stopLoop)
	c.ticker = nil
	c.stopLoop = nil
}

func (c *Controller) runLoop(ticker clock.Ticker, stop chan struct{}) {
	defer c.loops.Done()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C():
			c.mu.Lock()
			if c.stopLoop != stop {
				c.mu.Unlock()
				return
			}
			effects := c.applyTickLocked(now)
			c.publishLocked(c.snapshotLocked())
			c.mu.Unlock()

			c.Perform(effects)
		}
	}
}

func (c *Controller) saveAsync(ctx context.Context, identity string, record storage.Record) {
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
		defer cancel()

		err := c.store.Save(ctx, identity, record)
		metrics.ObserveStoreOperation("save", err)
		if err != nil {
			c.logger.Error().Err(err).Str("identity", identity).Msg("Failed to save deadline")
			return
		}
		c.logger.Debug().Str("identity", identity).Msg("Deadline saved")
	}()
}

func (c *Controller) deleteAsync(ctx context.Context, identity string) {
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
		defer cancel()

		err := c.store.Delete(ctx, identity)
		metrics.ObserveStoreOperation("delete", err)
		if err != nil {
			c.logger.Error().Err(err).Str("identity", identity).Msg("Failed to delete deadline")
			return
		}
		c.logger.Debug().Str("identity", identity).Msg("Deadline deleted")
	}()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:           c.state,
		Identity:        c.identity,
		Remaining:       c.remaining,
		Bucket:          c.bucket,
		Content:         c.content,
		ContentFallback: c.contentFallback,
		Loading:         c.dedupe.inFlight,
		Error:           c.faultMessage,
	}
	if !c.deadline.IsZero() {
		deadline := c.deadline
		snap.Deadline = &deadline
	}
	return snap
}

// publishLocked delivers snap to every subscriber, replacing any snapshot
// the subscriber has not read yet.
func (c *Controller) publishLocked(snap Snapshot) {
	for _, sub := range c.subscribers {
		select {
		case sub <- snap:
			continue
		default:
		}
		select {
		case <-sub:
		default:
		}
		select {
		case sub <- snap:
		default:
		}
	}
}
