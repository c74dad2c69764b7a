package notisync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/notisync/pkg/apiclient"
	"github.com/dmitrymomot/notisync/pkg/backoff"
	"github.com/dmitrymomot/notisync/pkg/logger"
	"github.com/dmitrymomot/notisync/pkg/statemachine"
)

// Polling lifecycle states, readable through Engine.State.
const (
	StateIdle    statemachine.State = "idle"
	StatePolling statemachine.State = "polling"
	StateBackoff statemachine.State = "backoff"
	StateStopped statemachine.State = "stopped"
)

const (
	eventStart   statemachine.Event = "start"
	eventStop    statemachine.Event = "stop"
	eventFailure statemachine.Event = "failure"
	eventRetry   statemachine.Event = "retry"
	eventRecover statemachine.Event = "recover"
	eventAbort   statemachine.Event = "abort"
)

func newLifecycle() *statemachine.Machine {
	m := statemachine.New(StateIdle)
	m.AddTransition(StateIdle, eventStart, StatePolling)
	m.AddTransition(StateStopped, eventStart, StatePolling)
	m.AddTransition(StatePolling, eventStop, StateIdle)
	m.AddTransition(StateBackoff, eventStop, StateIdle)
	m.AddTransition(StatePolling, eventFailure, StateBackoff)
	m.AddTransition(StateBackoff, eventRetry, StatePolling)
	m.AddTransition(StateBackoff, eventRecover, StatePolling)
	m.AddTransition(StatePolling, eventAbort, StateStopped)
	m.AddTransition(StateBackoff, eventAbort, StateStopped)
	return m
}

// syncFunc fetches a snapshot and applies it to the cache. The generation
// lets the callee discard results that complete after a newer cycle began.
type syncFunc func(ctx context.Context, gen uint64) error

type pollOutcome int

const (
	pollContinue pollOutcome = iota
	pollTerminate
)

type refreshRequest struct {
	errCh chan error
}

// poller owns the recurring sync loop. A single goroutine runs the ticker
// and executes polls inline, so two polls can never overlap. Failed polls
// go through the backoff policy inside the same goroutine; the one-shot
// backoff timer is cancelled by stopping the poller.
type poller struct {
	syncFn     syncFunc
	policy     backoff.Policy
	log        *slog.Logger
	onTerminal func(err error, failures int)

	mu         sync.Mutex
	lifecycle  *statemachine.Machine
	running    bool
	generation uint64
	interval   time.Duration
	failures   int
	cancel     context.CancelFunc
	done       chan struct{}

	refreshCh chan *refreshRequest

	// backoffHook is a test seam invoked before each backoff sleep.
	backoffHook func(failures int, delay time.Duration)
}

func newPoller(syncFn syncFunc, interval time.Duration, policy backoff.Policy, log *slog.Logger, onTerminal func(error, int)) *poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &poller{
		syncFn:     syncFn,
		policy:     policy,
		log:        log,
		onTerminal: onTerminal,
		lifecycle:  newLifecycle(),
		interval:   interval,
		refreshCh:  make(chan *refreshRequest),
	}
}

// start launches the run loop. Calling start while the loop is already
// running is a no-op; the bool reports whether a new cycle began.
func (p *poller) start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return false
	}
	if err := p.lifecycle.Fire(eventStart); err != nil {
		// Only reachable from idle or stopped; running guards the rest.
		p.lifecycle.Reset()
		_ = p.lifecycle.Fire(eventStart)
	}
	p.running = true
	p.generation++
	p.failures = 0
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.run(runCtx, p.generation, p.done)
	return true
}

// stop cancels the run loop, waits for it to exit and returns to idle.
// Stopping an already stopped poller is a no-op; the bool reports whether
// a running cycle was actually stopped.
func (p *poller) stop() bool {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return false
	}
	p.running = false
	p.generation++
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	cancel()
	<-done

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.lifecycle.Fire(eventStop); err != nil {
		p.lifecycle.Reset()
	}
	return true
}

func (p *poller) isRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *poller) state() statemachine.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lifecycle.Current()
}

func (p *poller) currentGeneration() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

func (p *poller) consecutiveFailures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

func (p *poller) resetFailures() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = 0
}

func (p *poller) setInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = d
}

func (p *poller) currentInterval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// refresh asks the run loop for an immediate out-of-band poll and returns
// its error. The recurring schedule is not shifted. The caller's context
// bounds the wait; a refresh on a stopped poller reports errNotPolling.
// The loop's done channel guards the handoff, so a stop racing the
// request fails fast instead of leaving the caller blocked on a channel
// nobody reads.
func (p *poller) refresh(ctx context.Context) error {
	p.mu.Lock()
	running := p.running
	done := p.done
	p.mu.Unlock()
	if !running || done == nil {
		return errNotPolling
	}

	req := &refreshRequest{errCh: make(chan error, 1)}
	select {
	case p.refreshCh <- req:
	case <-done:
		return errNotPolling
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.errCh:
		return err
	case <-done:
		// The loop may have replied just before exiting.
		select {
		case err := <-req.errCh:
			return err
		default:
			return errNotPolling
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *poller) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	interval := p.currentInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if p.pollOnce(ctx, gen) == pollTerminate {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if iv := p.currentInterval(); iv != interval {
				interval = iv
				ticker.Reset(iv)
			}
			if p.pollOnce(ctx, gen) == pollTerminate {
				return
			}
		case req := <-p.refreshCh:
			req.errCh <- p.syncFn(ctx, gen)
		}

		// A poll or backoff sleep can outlast the ticker period. Drop the
		// queued tick so a slow cycle is skipped instead of replayed.
		select {
		case <-ticker.C:
		default:
		}
	}
}

// pollOnce executes one sync and, on retryable failure, sleeps and retries
// inline until the backoff policy is exhausted. Auth errors and other
// non-retryable failures terminate the loop immediately.
func (p *poller) pollOnce(ctx context.Context, gen uint64) pollOutcome {
	err := p.syncFn(ctx, gen)
	for {
		if ctx.Err() != nil {
			return pollTerminate
		}
		if err == nil {
			p.recover()
			return pollContinue
		}

		failures := p.recordFailure()
		if apiclient.IsAuthError(err) || !apiclient.IsRetryable(err) {
			p.log.ErrorContext(ctx, "polling aborted",
				logger.Component("poller"), logger.Error(err))
			p.terminate(err, failures)
			return pollTerminate
		}
		if !p.policy.ShouldContinue(failures) {
			p.log.ErrorContext(ctx, "polling retries exhausted",
				logger.Component("poller"), logger.Error(err),
				slog.Int("failures", failures))
			p.terminate(err, failures)
			return pollTerminate
		}

		delay := p.policy.NextDelay(failures)
		p.log.WarnContext(ctx, "poll failed, backing off",
			logger.Component("poller"), logger.Error(err),
			slog.Int("failures", failures), slog.Duration("delay", delay))
		p.fire(eventFailure)
		if p.backoffHook != nil {
			p.backoffHook(failures, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return pollTerminate
		case <-timer.C:
		}

		p.fire(eventRetry)
		err = p.syncFn(ctx, gen)
	}
}

func (p *poller) recover() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = 0
	if p.lifecycle.Is(StateBackoff) {
		_ = p.lifecycle.Fire(eventRecover)
	}
}

func (p *poller) recordFailure() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures++
	return p.failures
}

func (p *poller) fire(ev statemachine.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.lifecycle.Fire(ev)
}

// terminate moves the lifecycle to stopped from inside the run loop and
// reports the terminal error to the owner.
func (p *poller) terminate(err error, failures int) {
	p.mu.Lock()
	p.running = false
	_ = p.lifecycle.Fire(eventAbort)
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	if p.onTerminal != nil {
		p.onTerminal(err, failures)
	}
}
