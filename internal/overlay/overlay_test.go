package overlay

import (
	"testing"

	"typeahead/internal/a11y"
)

func TestCaretPosition(t *testing.T) {
	field := &a11y.FakeNode{
		Origin: a11y.Point{X: 100, Y: 200},
		Caret:  a11y.Point{X: 42, Y: 3},
	}
	x, y := CaretPosition(field)
	if x != 142 || y != 203 {
		t.Errorf("expected (142,203), got (%d,%d)", x, y)
	}
}

func TestCaretPositionStaleFallsBack(t *testing.T) {
	field := &a11y.FakeNode{Stale: true}
	x, y := CaretPosition(field)
	if x != 0 || y != 0 {
		t.Errorf("expected origin fallback, got (%d,%d)", x, y)
	}
}
