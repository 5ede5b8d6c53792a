// Package predict decides when a completion request should fire, with what
// text segment, and talks to the completion backend. It never decides what
// the completion is; prediction quality belongs to the model.
package predict

import (
	"strings"
	"time"
)

// TriggerType labels why a request fired.
type TriggerType string

const (
	TriggerDelimiter TriggerType = "delimiter"
	TriggerIdle      TriggerType = "idle"
)

// Skip reasons, recorded in result metadata and debug logs.
const (
	SkipEmpty     = "empty"
	SkipTooShort  = "too_short"
	SkipNoTrigger = "no_trigger"
)

// PolicyConfig tunes the trigger decision.
type PolicyConfig struct {
	MinChars  int
	IdleDelay time.Duration
	Delimiter string
}

// DefaultPolicyConfig returns the stock tuning.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		MinChars:  3,
		IdleDelay: time.Second,
		Delimiter: " ",
	}
}

// Decision is the outcome of one policy evaluation.
type Decision struct {
	Fire    bool
	Segment string
	Trigger TriggerType
	Reason  string // skip reason when Fire is false
}

// Decide is a pure trigger decision over the current content and timing.
// lastChange is maintained by the caller and moves only when the observed
// text actually differs from the previously observed text; two edits that
// restore identical content do not reset the idle clock.
func Decide(text string, lastChange, now time.Time, cfg PolicyConfig) Decision {
	if text == "" {
		return Decision{Reason: SkipEmpty}
	}
	if len(text) < cfg.MinChars {
		return Decision{Reason: SkipTooShort}
	}

	if strings.HasSuffix(text, cfg.Delimiter) {
		if seg := lastSegment(text, cfg.Delimiter); seg != "" {
			return Decision{Fire: true, Segment: seg, Trigger: TriggerDelimiter}
		}
		return Decision{Reason: SkipNoTrigger}
	}

	if now.Sub(lastChange) >= cfg.IdleDelay {
		if seg := lastSegment(text, cfg.Delimiter); seg != "" {
			return Decision{Fire: true, Segment: seg, Trigger: TriggerIdle}
		}
		return Decision{Reason: SkipNoTrigger}
	}

	return Decision{Reason: SkipNoTrigger}
}

// lastSegment splits on the delimiter and returns the last non-empty
// fragment, trimmed.
func lastSegment(text, delimiter string) string {
	parts := strings.Split(text, delimiter)
	for i := len(parts) - 1; i >= 0; i-- {
		if seg := strings.TrimSpace(parts[i]); seg != "" {
			return seg
		}
	}
	return ""
}
