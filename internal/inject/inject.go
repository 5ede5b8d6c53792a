// Package inject types accepted suggestions into the focused field by
// shelling out to ydotool. Injection happens at most once per accepted
// suggestion and always prefixes the configured delimiter, so the typed
// text lands after the word that triggered it.
package inject

import (
	"fmt"
	"os/exec"
	"strings"

	"typeahead/internal/logging"
)

// Injector sends one literal string to the focused widget.
type Injector interface {
	Type(text string) error
}

// runCommand is swapped out by tests.
var runCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// lookPath is swapped out by tests.
var lookPath = exec.LookPath

// Ydotool injects text through the ydotool daemon.
type Ydotool struct {
	delimiter string
}

// NewYdotool creates an injector that prefixes each injection with the
// given delimiter.
func NewYdotool(delimiter string) *Ydotool {
	return &Ydotool{delimiter: delimiter}
}

// Type implements Injector.
func (y *Ydotool) Type(text string) error {
	payload := y.delimiter + text
	if err := runCommand("ydotool", "type", payload); err != nil {
		return fmt.Errorf("inject: ydotool type: %w", err)
	}
	logging.Get(logging.CategoryInject).Info("injected %d chars", len(payload))
	return nil
}

// CheckDependencies verifies the injection tooling is usable: the ydotool
// binary exists and its user service is running. Returned errors carry the
// remediation hint shown to the user at startup.
func CheckDependencies() error {
	if _, err := lookPath("ydotool"); err != nil {
		return fmt.Errorf("inject: 'ydotool' not found; install it (apt install ydotool / pacman -S ydotool)")
	}

	out, err := exec.Command("systemctl", "--user", "is-active", "ydotool.service").Output()
	if err != nil || strings.TrimSpace(string(out)) != "active" {
		return fmt.Errorf("inject: ydotool service not running; start it with: systemctl --user start ydotool.service")
	}
	return nil
}
