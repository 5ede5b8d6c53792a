// Package a11y defines the read-only boundary to the desktop accessibility
// tree. The tree itself lives in another process and is delivered to us as a
// callback stream by an external bridge; everything in this package is a
// narrow capability-query adapter over that stream. Widget references are
// borrowed: they are valid only for the duration of the callback that
// produced them and must never be persisted.
package a11y

import (
	"errors"
	"strconv"
)

// ErrStale is returned by any accessor whose underlying widget has been
// disposed or re-rendered since the event was delivered. Callers treat it as
// "not a match" or "no content", never as a fatal condition.
var ErrStale = errors.New("a11y: stale accessible reference")

// Role identifies a widget class. Values follow the AT-SPI2 role registry so
// that descriptors captured by external tools compare directly.
type Role int32

const (
	RoleInvalid       Role = 0
	RoleFrame         Role = 23
	RoleScrollPane    Role = 49
	RoleTerminal      Role = 60
	RoleText          Role = 61
	RoleViewport      Role = 68
	RoleParagraph     Role = 73
	RoleApplication   Role = 75
	RoleEditbar       Role = 77
	RoleEntry         Role = 79
	RoleDocumentFrame Role = 82
	RoleDocumentText  Role = 94
)

var roleNames = map[Role]string{
	RoleInvalid:       "invalid",
	RoleFrame:         "frame",
	RoleScrollPane:    "scroll pane",
	RoleTerminal:      "terminal",
	RoleText:          "text",
	RoleViewport:      "viewport",
	RoleParagraph:     "paragraph",
	RoleApplication:   "application",
	RoleEditbar:       "edit bar",
	RoleEntry:         "entry",
	RoleDocumentFrame: "document frame",
	RoleDocumentText:  "document text",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "role-" + strconv.Itoa(int(r))
}

// State is a single widget state flag, numbered per the AT-SPI2 state set.
type State int32

const (
	StateEditable State = 7
	StateEnabled  State = 8
	StateFocused  State = 12
	StateShowing  State = 25
	StateVisible  State = 30
)

// StateSet is an immutable set of state flags.
type StateSet uint64

// NewStateSet builds a set from individual flags.
func NewStateSet(states ...State) StateSet {
	var s StateSet
	for _, st := range states {
		s |= 1 << uint(st)
	}
	return s
}

// Contains reports whether the flag is present.
func (s StateSet) Contains(st State) bool {
	return s&(1<<uint(st)) != 0
}

// Interface (capability) names a widget may advertise. Matching uses subset
// comparison, so only the names that appear in captured descriptors matter.
const (
	IfaceText         = "Text"
	IfaceEditableText = "EditableText"
	IfaceComponent    = "Component"
	IfaceAction       = "Action"
	IfaceAccessible   = "Accessible"
)

// Point is a screen coordinate in pixels.
type Point struct {
	X int
	Y int
}

// Accessible is the borrowed, read-only view of one live widget. Every
// accessor may fail with ErrStale (or a transport error); implementations
// must never panic on a disposed widget.
type Accessible interface {
	// Role returns the widget class.
	Role() (Role, error)

	// Name returns the accessible name, which may be empty.
	Name() (string, error)

	// RoleName returns the human-readable role label.
	RoleName() (string, error)

	// IndexInParent returns the widget's position among its siblings.
	IndexInParent() (int, error)

	// Parent returns the parent widget, or nil at the tree root.
	Parent() (Accessible, error)

	// States returns the current state flags.
	States() (StateSet, error)

	// Interfaces returns the capability names the widget advertises.
	Interfaces() ([]string, error)

	// Text returns the full text content of the widget.
	Text() (string, error)

	// ScreenOrigin returns the widget's on-screen origin.
	ScreenOrigin() (Point, error)

	// CaretExtent returns the glyph offset of the caret relative to the
	// widget origin.
	CaretExtent() (Point, error)
}
