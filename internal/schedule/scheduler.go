package schedule

import (
	"context"
	"errors"
	"time"

	"typeahead/internal/logging"
	"typeahead/internal/predict"
)

// Config tunes the scheduler.
type Config struct {
	// DebounceDelay is the minimum quiet period between a content change
	// and the policy evaluation for it, and also the minimum spacing from
	// the previous request.
	DebounceDelay time.Duration

	// Policy is handed to predict.Decide when the debounce fires.
	Policy predict.PolicyConfig
}

// DefaultConfig returns the stock scheduler tuning.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 300 * time.Millisecond,
		Policy:        predict.DefaultPolicyConfig(),
	}
}

// RequestFunc performs the actual backend call. It runs on its own
// goroutine and must observe ctx cancellation at its next suspension point.
type RequestFunc func(ctx context.Context, segment string) (string, error)

// DeliverFunc receives a completed prediction on the host-loop thread,
// along with the request that produced it.
type DeliverFunc func(predict.Request, predict.Result)

// Scheduler is the debounce/single-flight controller. It guarantees:
//
//   - at most one backend request in flight at any instant
//   - at most one live debounce timer; arming supersedes the previous one
//   - content arriving while a request is in flight is dropped, never
//     queued; the next edit re-arms a fresh debounce cycle
//
// Every method must be called from the host-loop thread. Completions cross
// back onto that thread through the Bridge, so state transitions never
// interleave.
type Scheduler struct {
	cfg     Config
	clock   Clock
	timers  Timers
	bridge  *Bridge
	request RequestFunc
	deliver DeliverFunc

	baseCtx    context.Context
	baseCancel context.CancelFunc

	lastText        string
	lastChangeTime  time.Time
	lastRequestTime time.Time

	pendingContent string
	hasPending     bool
	pendingTimer   Timer
	processing     bool
	cancelInFlight context.CancelFunc
	closed         bool
}

// New creates a scheduler. deliver is invoked on the host-loop thread for
// every successful non-empty completion.
func New(cfg Config, clock Clock, timers Timers, bridge *Bridge, request RequestFunc, deliver DeliverFunc) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:        cfg,
		clock:      clock,
		timers:     timers,
		bridge:     bridge,
		request:    request,
		deliver:    deliver,
		baseCtx:    ctx,
		baseCancel: cancel,
	}
}

// OnContentChanged records new field content. The idle clock moves only on
// content inequality: two edits restoring identical text do not reset it.
func (s *Scheduler) OnContentChanged(text string) {
	if s.closed {
		return
	}
	now := s.clock.Now()
	if text != s.lastText {
		s.lastText = text
		s.lastChangeTime = now
	}

	if s.processing {
		// A burst of edits during an active request neither cancels nor
		// queues; the suggestion may reflect a superseded snapshot until
		// the next edit after completion.
		logging.SchedulerDebug("in flight, dropping content change (%d chars)", len(text))
		return
	}

	if s.pendingTimer != nil {
		s.pendingTimer.Stop()
		s.pendingTimer = nil
	}

	s.pendingContent = text
	s.hasPending = true

	delay := s.cfg.DebounceDelay - now.Sub(s.lastRequestTime)
	if delay < 0 {
		delay = 0
	}
	var armed Timer
	armed = s.timers.AfterFunc(delay, func() { s.timerFired(armed) })
	s.pendingTimer = armed
	logging.SchedulerDebug("debounce armed for %s", delay)
}

// timerFired runs on the host-loop thread when the debounce elapses. A
// timer can fire and queue this callback just before an edit supersedes
// it; Stop then reports false and a second timer gets armed. The identity
// check drops such stale callbacks so only the currently armed timer can
// consume the pending content.
func (s *Scheduler) timerFired(armed Timer) {
	if armed != s.pendingTimer {
		logging.SchedulerDebug("superseded debounce callback dropped")
		return
	}
	s.pendingTimer = nil
	if !s.hasPending {
		return
	}

	content := s.pendingContent
	s.pendingContent = ""
	s.hasPending = false

	if s.processing {
		// Lost the race against an in-flight request; single-flight wins
		// over firing.
		logging.SchedulerDebug("timer fired during request, content dropped")
		return
	}
	if content == "" {
		return
	}

	now := s.clock.Now()
	s.processing = true
	s.lastRequestTime = now

	decision := predict.Decide(content, s.lastChangeTime, now, s.cfg.Policy)
	if !decision.Fire {
		logging.SchedulerDebug("policy skip (%s) for %d chars", decision.Reason, len(content))
		s.processing = false
		return
	}

	req := predict.NewRequest(content, now)
	ctx, cancel := context.WithCancel(s.baseCtx)
	s.cancelInFlight = cancel

	logging.Scheduler("request %d dispatched: trigger=%s segment=%d chars id=%s",
		req.Seq, decision.Trigger, len(decision.Segment), req.ID)

	go func() {
		text, err := s.request(ctx, decision.Segment)
		s.bridge.Post(func() {
			s.requestDone(req, decision, text, err)
		})
	}()
}

// requestDone runs on the host-loop thread via the bridge pump.
func (s *Scheduler) requestDone(req predict.Request, decision predict.Decision, text string, err error) {
	s.processing = false
	if s.cancelInFlight != nil {
		s.cancelInFlight()
		s.cancelInFlight = nil
	}

	elapsed := s.clock.Now().Sub(req.CreatedAt)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Expected control signal, not a failure.
			logging.SchedulerDebug("request %d cancelled", req.Seq)
		} else {
			logging.Get(logging.CategoryScheduler).Warn("request %d failed: %v", req.Seq, err)
		}
		return
	}
	if text == "" {
		logging.SchedulerDebug("request %d produced no completion", req.Seq)
		return
	}

	logging.Scheduler("request %d completed in %s: %d chars", req.Seq, elapsed.Round(time.Millisecond), len(text))
	s.deliver(req, predict.Result{
		Text: text,
		Meta: predict.Metadata{
			Trigger:       decision.Trigger,
			SegmentLength: len(decision.Segment),
			Elapsed:       elapsed,
		},
	})
}

// Processing reports whether a request is currently in flight.
func (s *Scheduler) Processing() bool { return s.processing }

// Shutdown cancels any pending timer and cooperatively cancels the
// in-flight request, without waiting for it to unwind. The scheduler is
// terminal afterwards: content changes are ignored, since the base
// context stays cancelled and any new request would be born dead.
func (s *Scheduler) Shutdown() {
	s.closed = true
	if s.pendingTimer != nil {
		s.pendingTimer.Stop()
		s.pendingTimer = nil
	}
	s.pendingContent = ""
	s.hasPending = false
	s.baseCancel()
}
