package schedule

import "typeahead/internal/logging"

// Bridge joins the cooperative task side (network requests running on their
// own goroutines) to the synchronous host loop. Completed work posts a
// continuation; the host loop drains them on a fixed pump period. Pump
// never blocks, so the host loop stays responsive regardless of backend
// latency.
type Bridge struct {
	ready chan func()
}

// NewBridge creates a bridge with the given continuation capacity. With
// at most one request in flight the queue never comes close to full; the
// capacity only guards against a stalled host loop.
func NewBridge(capacity int) *Bridge {
	return &Bridge{ready: make(chan func(), capacity)}
}

// Post queues a continuation for the next pump. Never blocks: if the queue
// is full the continuation is dropped, which at worst loses one suggestion.
func (b *Bridge) Post(fn func()) {
	select {
	case b.ready <- fn:
	default:
		logging.SchedulerDebug("bridge queue full, continuation dropped")
	}
}

// Pump runs every continuation that is ready right now and returns the
// count. Continuations posted during the pump run in the same call; the
// queue is drained, not snapshotted, but each drain step is non-blocking.
func (b *Bridge) Pump() int {
	n := 0
	for {
		select {
		case fn := <-b.ready:
			fn()
			n++
		default:
			return n
		}
	}
}
