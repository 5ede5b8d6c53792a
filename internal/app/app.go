// Package app wires the accessibility event stream, target matching,
// prediction scheduling, and completion delivery into a single daemon.
//
// All mutable state lives on one goroutine, the host loop, which owns
// the event channel, the bridge pump, and every timer callback. The only
// code that runs elsewhere is the network request inside the scheduler
// and the accessibility source itself.
package app

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"typeahead/internal/a11y"
	"typeahead/internal/config"
	"typeahead/internal/history"
	"typeahead/internal/inject"
	"typeahead/internal/logging"
	"typeahead/internal/overlay"
	"typeahead/internal/predict"
	"typeahead/internal/schedule"
	"typeahead/internal/target"
)

// keyRepeatGuard suppresses auto-repeat of the accept key. A physical
// second press arrives well after this window.
const keyRepeatGuard = 100 * time.Millisecond

// Options collects the collaborators an App needs. Zero-value fields
// get sensible defaults in New where one exists.
type Options struct {
	Config   *config.Config
	Matcher  *target.Matcher
	Source   a11y.Source
	Overlay  overlay.Overlay
	Injector inject.Injector
	History  *history.Store // nil disables persistence
	Request  schedule.RequestFunc
	Clock    schedule.Clock
	Timers   schedule.Timers // defaults to host-loop timers
}

// shown is the prediction currently on screen, if any.
type shown struct {
	id   string
	text string
}

// App is the composition root. Methods other than Run must only be
// called from the host loop.
type App struct {
	cfg      *config.Config
	matcher  *target.Matcher
	source   a11y.Source
	overlay  overlay.Overlay
	injector inject.Injector
	hist     *history.Store
	clock    schedule.Clock

	bridge *schedule.Bridge
	sched  *schedule.Scheduler

	// runq carries timer callbacks back onto the host loop.
	runq chan func()

	current     *shown
	caretX      int
	caretY      int
	lastAccept  time.Time
	watcherPath string
}

func New(opts Options) *App {
	a := &App{
		cfg:      opts.Config,
		matcher:  opts.Matcher,
		source:   opts.Source,
		overlay:  opts.Overlay,
		injector: opts.Injector,
		hist:     opts.History,
		clock:    opts.Clock,
		runq:     make(chan func(), 64),
	}
	if a.clock == nil {
		a.clock = schedule.SystemClock{}
	}
	timers := opts.Timers
	if timers == nil {
		timers = schedule.NewHostTimers(a.post)
	}
	a.bridge = schedule.NewBridge(16)
	a.sched = schedule.New(schedule.Config{
		DebounceDelay: opts.Config.DebounceDelay(),
		Policy: predict.PolicyConfig{
			MinChars:  opts.Config.Predict.MinChars,
			IdleDelay: opts.Config.IdleDelay(),
			Delimiter: opts.Config.Predict.Delimiter,
		},
	}, a.clock, timers, a.bridge, opts.Request, a.deliver)
	a.watcherPath = opts.Config.TargetsPath
	return a
}

// post queues fn for the host loop. Timer goroutines block here at most
// briefly; the loop drains runq ahead of new events.
func (a *App) post(fn func()) {
	a.runq <- fn
}

// Run drives the daemon until ctx is cancelled. It starts the
// accessibility source and the targets file watcher alongside the host
// loop and returns the first error any of them produce.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.source.Run(ctx) })

	if a.watcherPath != "" {
		w := newTargetsWatcher(a.watcherPath, a.matcher)
		g.Go(func() error { return w.Run(ctx) })
	}

	g.Go(func() error { return a.loop(ctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loop is the host loop. Everything that touches App or Scheduler state
// funnels through this select.
func (a *App) loop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.PumpEvery())
	defer ticker.Stop()
	defer a.sched.Shutdown()

	logging.Boot("host loop running, pump every %s", a.cfg.PumpEvery())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-a.runq:
			fn()
		case ev, ok := <-a.source.Events():
			if !ok {
				return nil
			}
			a.handleEvent(ev)
		case <-ticker.C:
			a.bridge.Pump()
		}
	}
}

func (a *App) handleEvent(ev a11y.Event) {
	switch {
	case ev.Kind == a11y.EventFocus:
		a.handleFocus(ev.Source)
	case ev.IsText():
		a.handleTextChanged(ev.Source)
	case ev.Kind == a11y.EventKeyPress:
		a.handleKey(ev.Key)
	}
}

// handleFocus clears any visible prediction when focus leaves a target
// widget. Focus arriving on a target does not itself trigger anything;
// the first text change does.
func (a *App) handleFocus(obj a11y.Accessible) {
	if obj == nil || !a.matcher.IsTarget(obj) {
		a.clearPrediction()
		return
	}
	logging.MatcherDebug("target widget focused")
}

// handleTextChanged feeds the scheduler with the widget's full content
// and records where the caret sits so a later async completion can be
// shown at the right spot. The accessible reference is only valid for
// the duration of this call, so everything needed later is copied out
// now.
func (a *App) handleTextChanged(obj a11y.Accessible) {
	if obj == nil || !a.matcher.IsTarget(obj) {
		return
	}
	content, err := obj.Text()
	if err != nil {
		logging.MatcherDebug("target text unreadable: %v", err)
		return
	}
	a.caretX, a.caretY = overlay.CaretPosition(obj)
	a.clearPrediction()
	a.sched.OnContentChanged(content)
}

// handleKey accepts the visible prediction when the configured trigger
// key is pressed. Auto-repeat inside keyRepeatGuard is ignored.
func (a *App) handleKey(k a11y.KeyEvent) {
	if a.current == nil {
		return
	}
	if k.Keystring != a.cfg.Trigger.EventString && k.Keycode != a.cfg.Trigger.KeyCode {
		return
	}
	now := a.clock.Now()
	if now.Sub(a.lastAccept) < keyRepeatGuard {
		return
	}
	a.lastAccept = now

	p := a.current
	a.clearPrediction()

	if err := a.injector.Type(p.text); err != nil {
		logging.Get(logging.CategoryInject).Warn("injection failed: %v", err)
		return
	}
	logging.Get(logging.CategoryInject).Info("accepted %d chars", len(p.text))
	if a.hist != nil {
		if err := a.hist.MarkAccepted(p.id); err != nil {
			logging.Get(logging.CategoryStore).Warn("mark accepted: %v", err)
		}
	}
}

// deliver runs on the host loop via the bridge pump. It shows the
// completion at the last captured caret position and persists it.
func (a *App) deliver(req predict.Request, res predict.Result) {
	a.current = &shown{id: req.ID, text: res.Text}
	a.overlay.Show(res.Text, a.caretX, a.caretY)
	if a.hist != nil {
		if err := a.hist.Record(req.ID, req.CreatedAt, req.Content, res); err != nil {
			logging.Get(logging.CategoryStore).Warn("record prediction: %v", err)
		}
	}
}

func (a *App) clearPrediction() {
	if a.current == nil {
		return
	}
	a.current = nil
	a.overlay.Hide()
}
