package predict

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var requestSeq atomic.Uint64

// Request is one content snapshot headed for the backend. Seq orders
// requests for debugging; ID correlates log lines across subsystems.
// Neither is load-bearing for correctness.
type Request struct {
	ID        string
	Seq       uint64
	Content   string
	CreatedAt time.Time
}

// NewRequest snapshots content for a prediction attempt.
func NewRequest(content string, now time.Time) Request {
	return Request{
		ID:        uuid.NewString(),
		Seq:       requestSeq.Add(1),
		Content:   content,
		CreatedAt: now,
	}
}

// Metadata describes how a result came to be.
type Metadata struct {
	Trigger       TriggerType
	SegmentLength int
	Elapsed       time.Duration
	Reason        string
}

// Result is an optional completion plus its metadata. Text is empty when no
// prediction was produced.
type Result struct {
	Text string
	Meta Metadata
}
