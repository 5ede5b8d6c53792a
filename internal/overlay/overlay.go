// Package overlay defines the contract to the on-screen suggestion
// renderer and the caret placement math. The renderer itself is an external
// process; this package only decides where a suggestion belongs and hands
// it over.
package overlay

import (
	"typeahead/internal/a11y"
	"typeahead/internal/logging"
)

// Overlay displays (or hides) the current suggestion near the caret.
type Overlay interface {
	Show(text string, x, y int)
	Hide()
}

// CaretPosition computes the screen coordinates of the caret: the widget's
// on-screen origin plus the caret glyph offset. Any read failure yields the
// screen origin fallback (0,0); a misplaced suggestion beats a crash.
func CaretPosition(obj a11y.Accessible) (int, int) {
	origin, err := obj.ScreenOrigin()
	if err != nil {
		logging.Get(logging.CategoryOverlay).Debug("origin read failed: %v", err)
		return 0, 0
	}
	caret, err := obj.CaretExtent()
	if err != nil {
		logging.Get(logging.CategoryOverlay).Debug("caret read failed: %v", err)
		return origin.X, origin.Y
	}
	return origin.X + caret.X, origin.Y + caret.Y
}

// LogOverlay is a headless overlay for development and for running without
// a renderer attached.
type LogOverlay struct{}

// Show implements Overlay.
func (LogOverlay) Show(text string, x, y int) {
	logging.Get(logging.CategoryOverlay).Info("show %q at (%d,%d)", text, x, y)
}

// Hide implements Overlay.
func (LogOverlay) Hide() {
	logging.Get(logging.CategoryOverlay).Debug("hide")
}
