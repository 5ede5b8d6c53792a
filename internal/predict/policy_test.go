package predict

import (
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestDecideEmpty(t *testing.T) {
	d := Decide("", t0, t0, DefaultPolicyConfig())
	if d.Fire || d.Reason != SkipEmpty {
		t.Errorf("expected skip(empty), got %+v", d)
	}
}

func TestDecideTooShort(t *testing.T) {
	cfg := DefaultPolicyConfig()
	// Regardless of timing: idle elapsed and delimiter-terminated variants
	// must still skip.
	for _, text := range []string{"hi", "h "} {
		d := Decide(text, t0, t0.Add(time.Hour), cfg)
		if d.Fire || d.Reason != SkipTooShort {
			t.Errorf("Decide(%q) = %+v, expected skip(too_short)", text, d)
		}
	}
}

func TestDecideDelimiterTrigger(t *testing.T) {
	d := Decide("hello world ", t0, t0, DefaultPolicyConfig())
	if !d.Fire {
		t.Fatalf("expected fire, got %+v", d)
	}
	if d.Trigger != TriggerDelimiter {
		t.Errorf("expected delimiter trigger, got %s", d.Trigger)
	}
	if d.Segment != "world" {
		t.Errorf("expected segment \"world\", got %q", d.Segment)
	}
}

func TestDecideDelimiterSkipsEmptyFragments(t *testing.T) {
	d := Decide("hello   ", t0, t0, DefaultPolicyConfig())
	if !d.Fire || d.Segment != "hello" {
		t.Errorf("expected fire on last non-empty fragment, got %+v", d)
	}
}

func TestDecideIdleTrigger(t *testing.T) {
	cfg := DefaultPolicyConfig()
	d := Decide("hel", t0, t0.Add(cfg.IdleDelay), cfg)
	if !d.Fire {
		t.Fatalf("expected fire, got %+v", d)
	}
	if d.Trigger != TriggerIdle {
		t.Errorf("expected idle trigger, got %s", d.Trigger)
	}
	if d.Segment != "hel" {
		t.Errorf("expected segment \"hel\", got %q", d.Segment)
	}
}

func TestDecideIdleUsesUnterminatedFragment(t *testing.T) {
	cfg := DefaultPolicyConfig()
	d := Decide("hello wor", t0, t0.Add(2*time.Second), cfg)
	if !d.Fire || d.Segment != "wor" || d.Trigger != TriggerIdle {
		t.Errorf("expected idle fire on \"wor\", got %+v", d)
	}
}

func TestDecideNoTriggerWhileTyping(t *testing.T) {
	cfg := DefaultPolicyConfig()
	d := Decide("hello", t0, t0.Add(cfg.IdleDelay/2), cfg)
	if d.Fire || d.Reason != SkipNoTrigger {
		t.Errorf("expected skip(no_trigger), got %+v", d)
	}
}

func TestDecideDelimiterOnlyContent(t *testing.T) {
	d := Decide("    ", t0, t0, DefaultPolicyConfig())
	if d.Fire {
		t.Errorf("all-delimiter content must not fire, got %+v", d)
	}
}

func TestRequestSequenceIncreases(t *testing.T) {
	a := NewRequest("one", t0)
	b := NewRequest("two", t0)
	if b.Seq <= a.Seq {
		t.Errorf("sequence not increasing: %d then %d", a.Seq, b.Seq)
	}
	if a.ID == b.ID || a.ID == "" {
		t.Errorf("expected distinct non-empty ids, got %q and %q", a.ID, b.ID)
	}
}
