package a11y

// EventKind discriminates the callback stream delivered by the bridge.
type EventKind string

const (
	EventFocus      EventKind = "focus"
	EventTextInsert EventKind = "text-insert"
	EventTextDelete EventKind = "text-delete"
	EventKeyPress   EventKind = "key-press"
	EventKeyRelease EventKind = "key-release"
)

// Event is one delivered accessibility callback. Source is nil for key
// events that carry no widget reference.
type Event struct {
	Kind   EventKind
	Source Accessible
	Key    KeyEvent
}

// KeyEvent carries the symbolic and numeric identity of a key event.
type KeyEvent struct {
	Keystring string
	Keycode   int
}

// IsText reports whether the event is a content change.
func (e Event) IsText() bool {
	return e.Kind == EventTextInsert || e.Kind == EventTextDelete
}

// IsKey reports whether the event is a key press or release.
func (e Event) IsKey() bool {
	return e.Kind == EventKeyPress || e.Kind == EventKeyRelease
}
