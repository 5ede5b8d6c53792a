package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"typeahead/internal/predict"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeTimer is an armed timer the test fires by hand.
type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (t *fakeTimer) fire() {
	t.fired = true
	t.fn()
}

type fakeTimers struct {
	armed []*fakeTimer
}

func (f *fakeTimers) AfterFunc(d time.Duration, fn func()) Timer {
	t := &fakeTimer{delay: d, fn: fn}
	f.armed = append(f.armed, t)
	return t
}

// live returns the timers that are armed and have neither fired nor been
// stopped.
func (f *fakeTimers) live() []*fakeTimer {
	var out []*fakeTimer
	for _, t := range f.armed {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fireOnly fires the single live timer and fails the test if there is not
// exactly one.
func (f *fakeTimers) fireOnly(t *testing.T) {
	t.Helper()
	live := f.live()
	require.Len(t, live, 1, "expected exactly one live timer")
	live[0].fire()
}

// backend is a controllable RequestFunc.
type backend struct {
	segments []string
	release  chan struct{} // close (or send) to let a blocked call return
	text     string
	err      error
	blocking bool
}

func newBackend(text string) *backend {
	return &backend{text: text, release: make(chan struct{}, 1)}
}

func (b *backend) request(ctx context.Context, segment string) (string, error) {
	b.segments = append(b.segments, segment)
	if b.blocking {
		select {
		case <-b.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return b.text, b.err
}

// pump drains the bridge, waiting for the request goroutine to post its
// completion first.
func pump(t *testing.T, b *Bridge) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.Pump() > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no continuation arrived on the bridge")
}

type fixture struct {
	clock   *fakeClock
	timers  *fakeTimers
	bridge  *Bridge
	backend *backend
	results []predict.Result
	sched   *Scheduler
}

func newFixture(t *testing.T, back *backend) *fixture {
	t.Helper()
	f := &fixture{
		clock:   newFakeClock(),
		timers:  &fakeTimers{},
		bridge:  NewBridge(16),
		backend: back,
	}
	f.sched = New(DefaultConfig(), f.clock, f.timers, f.bridge, back.request,
		func(_ predict.Request, r predict.Result) { f.results = append(f.results, r) })
	t.Cleanup(f.sched.Shutdown)
	return f
}

func TestDebounceSupersedesEarlierContent(t *testing.T) {
	f := newFixture(t, newBackend("completion"))

	f.sched.OnContentChanged("hello ")
	f.clock.Advance(50 * time.Millisecond)
	f.sched.OnContentChanged("hello world ")

	// Arming the second timer cancelled the first: never two live timers.
	assert.Len(t, f.timers.live(), 1)
	assert.Len(t, f.timers.armed, 2)
	assert.True(t, f.timers.armed[0].stopped)

	f.clock.Advance(DefaultConfig().DebounceDelay)
	f.timers.fireOnly(t)
	pump(t, f.bridge)

	// Only the later content ever reached the backend.
	require.Equal(t, []string{"world"}, f.backend.segments)
	require.Len(t, f.results, 1)
	assert.Equal(t, "completion", f.results[0].Text)
	assert.Equal(t, predict.TriggerDelimiter, f.results[0].Meta.Trigger)
}

func TestIdleTrigger(t *testing.T) {
	f := newFixture(t, newBackend("lo"))

	f.sched.OnContentChanged("hel")
	f.clock.Advance(DefaultConfig().Policy.IdleDelay)
	f.timers.fireOnly(t)
	pump(t, f.bridge)

	require.Equal(t, []string{"hel"}, f.backend.segments)
	require.Len(t, f.results, 1)
	assert.Equal(t, predict.TriggerIdle, f.results[0].Meta.Trigger)
	assert.Equal(t, 3, f.results[0].Meta.SegmentLength)
}

func TestPolicySkipLeavesSchedulerIdle(t *testing.T) {
	f := newFixture(t, newBackend("ignored"))

	f.sched.OnContentChanged("hi")
	f.clock.Advance(time.Second)
	f.timers.fireOnly(t)

	assert.Empty(t, f.backend.segments, "too_short must never reach the backend")
	assert.False(t, f.sched.Processing())

	// And the scheduler accepts new content immediately.
	f.sched.OnContentChanged("hi there ")
	assert.Len(t, f.timers.live(), 1)
}

func TestSingleFlightDropsBurstDuringRequest(t *testing.T) {
	back := newBackend("completion")
	back.blocking = true
	f := newFixture(t, back)

	f.sched.OnContentChanged("hello world ")
	f.clock.Advance(time.Second)
	f.timers.fireOnly(t)
	require.True(t, f.sched.Processing())

	// Edits during the in-flight request are dropped: no timer armed, no
	// second request.
	f.sched.OnContentChanged("hello world a")
	f.sched.OnContentChanged("hello world ab")
	assert.Empty(t, f.timers.live())

	back.release <- struct{}{}
	pump(t, f.bridge)

	assert.False(t, f.sched.Processing())
	require.Equal(t, []string{"world"}, f.backend.segments, "exactly one request")
	require.Len(t, f.results, 1)

	// The next edit after completion re-arms a fresh cycle.
	f.sched.OnContentChanged("hello world abc ")
	assert.Len(t, f.timers.live(), 1)
}

func TestTimerRaceDropsContentWhileRequesting(t *testing.T) {
	back := newBackend("completion")
	back.blocking = true
	f := newFixture(t, back)

	f.sched.OnContentChanged("hello world ")
	f.clock.Advance(time.Second)
	f.timers.fireOnly(t)
	require.True(t, f.sched.Processing())

	// A straggler timer firing while a request is active must drop its
	// content rather than fire a second request.
	f.sched.pendingContent = "stale text "
	f.sched.hasPending = true
	f.sched.timerFired(f.sched.pendingTimer)

	assert.False(t, f.sched.hasPending)

	back.release <- struct{}{}
	pump(t, f.bridge)

	require.Equal(t, []string{"world"}, f.backend.segments)
}

func TestFiredTimerSupersededBeforeCallbackRuns(t *testing.T) {
	back := newBackend("completion")
	f := newFixture(t, back)

	f.sched.OnContentChanged("hello ")
	require.Len(t, f.timers.live(), 1)
	first := f.timers.armed[0]

	// The timer fires, queueing its callback on the host loop, but an
	// edit is handled before that callback runs. Stop reports false and
	// a second timer is armed.
	first.fired = true
	f.sched.OnContentChanged("hello world ")
	require.Len(t, f.timers.live(), 1, "exactly one live timer after supersede")

	// The stale callback must not consume the superseding content or
	// orphan the live timer.
	first.fn()
	require.True(t, f.sched.hasPending, "superseding content must survive the stale callback")
	require.Len(t, f.timers.live(), 1)

	f.clock.Advance(time.Second)
	f.timers.fireOnly(t)
	pump(t, f.bridge)

	require.Equal(t, []string{"world"}, f.backend.segments)
	require.Len(t, f.results, 1)
}

func TestRequestSpacingShortensDebounce(t *testing.T) {
	f := newFixture(t, newBackend(""))

	f.sched.OnContentChanged("hello ")
	f.clock.Advance(time.Second)
	f.timers.fireOnly(t)
	pump(t, f.bridge) // empty completion, nothing delivered
	require.Empty(t, f.results)

	// 100ms after the previous request, the next debounce is only the
	// remaining 200ms of the 300ms spacing.
	f.clock.Advance(100 * time.Millisecond)
	f.sched.OnContentChanged("hello again ")
	live := f.timers.live()
	require.Len(t, live, 1)
	assert.Equal(t, 200*time.Millisecond, live[0].delay)
}

func TestStaleRequestTimeDoesNotDelayFirstRequest(t *testing.T) {
	f := newFixture(t, newBackend("x"))

	f.sched.OnContentChanged("hello ")
	live := f.timers.live()
	require.Len(t, live, 1)
	assert.Equal(t, time.Duration(0), live[0].delay,
		"first ever request needs no spacing delay")
}

func TestFailedRequestSuppressedNotFatal(t *testing.T) {
	back := newBackend("")
	back.err = assert.AnError
	f := newFixture(t, back)

	f.sched.OnContentChanged("hello world ")
	f.clock.Advance(time.Second)
	f.timers.fireOnly(t)
	pump(t, f.bridge)

	assert.Empty(t, f.results, "failures surface as no prediction")
	assert.False(t, f.sched.Processing())

	// Pipeline continues.
	f.sched.OnContentChanged("hello again ")
	assert.Len(t, f.timers.live(), 1)
}

func TestShutdownCancelsInFlight(t *testing.T) {
	back := newBackend("completion")
	back.blocking = true
	f := newFixture(t, back)

	f.sched.OnContentChanged("hello world ")
	f.clock.Advance(time.Second)
	f.timers.fireOnly(t)
	require.True(t, f.sched.Processing())

	f.sched.Shutdown()
	pump(t, f.bridge) // cancelled request still posts its unwinding

	assert.Empty(t, f.results, "cancelled request delivers nothing")
	assert.False(t, f.sched.Processing())

	// The scheduler is terminal: later content must not arm anything,
	// because any request it produced would start out cancelled.
	f.sched.OnContentChanged("fresh text ")
	assert.Empty(t, f.timers.live())
}

func TestShutdownStopsPendingTimer(t *testing.T) {
	f := newFixture(t, newBackend("x"))

	f.sched.OnContentChanged("hello ")
	require.Len(t, f.timers.live(), 1)

	f.sched.Shutdown()
	assert.Empty(t, f.timers.live())
}

func TestIdleClockIsContentBased(t *testing.T) {
	f := newFixture(t, newBackend("lo"))
	idle := DefaultConfig().Policy.IdleDelay

	f.sched.OnContentChanged("hel")
	f.clock.Advance(idle / 2)
	// Same text observed again: the idle clock must not reset.
	f.sched.OnContentChanged("hel")
	f.clock.Advance(idle / 2)
	f.timers.fireOnly(t)
	pump(t, f.bridge)

	require.Equal(t, []string{"hel"}, f.backend.segments,
		"idle delay measured from the original change, not the duplicate")
}

func TestDifferingContentResetsIdleClock(t *testing.T) {
	f := newFixture(t, newBackend("lo"))
	idle := DefaultConfig().Policy.IdleDelay

	f.sched.OnContentChanged("hel")
	f.clock.Advance(idle / 2)
	f.sched.OnContentChanged("help")
	f.clock.Advance(idle / 2)
	f.timers.fireOnly(t)

	// Only half the idle delay has passed since the last real change, and
	// the text is not delimiter-terminated, so the policy skips.
	assert.Empty(t, f.backend.segments)
}

func TestEmptyPendingContentReturnsToIdle(t *testing.T) {
	f := newFixture(t, newBackend("x"))

	f.sched.OnContentChanged("")
	f.timers.fireOnly(t)

	assert.Empty(t, f.backend.segments)
	assert.False(t, f.sched.Processing())
}

func TestBridgePumpNeverBlocks(t *testing.T) {
	b := NewBridge(4)
	if n := b.Pump(); n != 0 {
		t.Errorf("empty pump ran %d continuations", n)
	}

	ran := 0
	b.Post(func() { ran++ })
	b.Post(func() { ran++ })
	if n := b.Pump(); n != 2 || ran != 2 {
		t.Errorf("expected 2 continuations, pumped %d ran %d", n, ran)
	}
}
