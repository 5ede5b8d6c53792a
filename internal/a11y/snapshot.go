package a11y

import (
	"encoding/json"
	"fmt"
)

// The bridge process walks the live tree on its side and ships each event as
// one JSON object per line. A snapshot is therefore consistent at the moment
// of the event but can still be incomplete: any field the bridge failed to
// read is absent, and the corresponding accessor reports ErrStale.

// WireNode is one entry of a recorded ancestor path, root-most first. The
// last entry is the event source widget itself.
type WireNode struct {
	Role     Role    `json:"role"`
	Name     *string `json:"name"`
	Index    int     `json:"index"`
	RoleName string  `json:"role_name"`
}

// WireEvent is the bridge's on-the-wire event record.
type WireEvent struct {
	Kind       EventKind  `json:"kind"`
	Role       *Role      `json:"role,omitempty"`
	Name       string     `json:"name,omitempty"`
	RoleName   string     `json:"role_name,omitempty"`
	States     []State    `json:"states,omitempty"`
	Interfaces []string   `json:"interfaces,omitempty"`
	Path       []WireNode `json:"path,omitempty"`
	Text       *string    `json:"text,omitempty"`
	Origin     *Point     `json:"origin,omitempty"`
	Caret      *Point     `json:"caret,omitempty"`
	Keystring  string     `json:"keystring,omitempty"`
	Keycode    int        `json:"keycode,omitempty"`
}

// DecodeEvent parses one wire line into an Event. Key events carry no
// source; widget events are wrapped in a snapshot Accessible.
func DecodeEvent(line []byte) (Event, error) {
	var we WireEvent
	if err := json.Unmarshal(line, &we); err != nil {
		return Event{}, fmt.Errorf("a11y: undecodable event: %w", err)
	}
	switch we.Kind {
	case EventFocus, EventTextInsert, EventTextDelete:
		if we.Role == nil {
			return Event{}, fmt.Errorf("a11y: %s event without source", we.Kind)
		}
		return Event{Kind: we.Kind, Source: &snapshot{we: &we}}, nil
	case EventKeyPress, EventKeyRelease:
		return Event{
			Kind: we.Kind,
			Key:  KeyEvent{Keystring: we.Keystring, Keycode: we.Keycode},
		}, nil
	default:
		return Event{}, fmt.Errorf("a11y: unknown event kind %q", we.Kind)
	}
}

// snapshot adapts one wire event into the Accessible view of its source
// widget. Ancestors are materialized from the recorded path: depth 0 is the
// source widget, depth 1 its parent, and so on toward the root.
type snapshot struct {
	we    *WireEvent
	depth int
}

// node returns the path entry backing this snapshot, or nil when the
// recorded path does not reach that far.
func (s *snapshot) node() *WireNode {
	i := len(s.we.Path) - 1 - s.depth
	if i < 0 || i >= len(s.we.Path) {
		return nil
	}
	return &s.we.Path[i]
}

func (s *snapshot) Role() (Role, error) {
	if s.depth == 0 {
		return *s.we.Role, nil
	}
	n := s.node()
	if n == nil {
		return RoleInvalid, ErrStale
	}
	return n.Role, nil
}

func (s *snapshot) Name() (string, error) {
	if s.depth == 0 {
		return s.we.Name, nil
	}
	n := s.node()
	if n == nil {
		return "", ErrStale
	}
	if n.Name == nil {
		return "", nil
	}
	return *n.Name, nil
}

func (s *snapshot) RoleName() (string, error) {
	if s.depth == 0 {
		return s.we.RoleName, nil
	}
	n := s.node()
	if n == nil {
		return "", ErrStale
	}
	return n.RoleName, nil
}

func (s *snapshot) IndexInParent() (int, error) {
	n := s.node()
	if n == nil {
		if s.depth == 0 {
			return 0, nil
		}
		return 0, ErrStale
	}
	return n.Index, nil
}

func (s *snapshot) Parent() (Accessible, error) {
	// The last recorded entry is the source itself, so the root sits at
	// depth len(Path)-1.
	if s.depth+1 >= len(s.we.Path) {
		return nil, nil
	}
	return &snapshot{we: s.we, depth: s.depth + 1}, nil
}

func (s *snapshot) States() (StateSet, error) {
	if s.depth != 0 {
		return 0, ErrStale
	}
	return NewStateSet(s.we.States...), nil
}

func (s *snapshot) Interfaces() ([]string, error) {
	if s.depth != 0 {
		return nil, ErrStale
	}
	return s.we.Interfaces, nil
}

func (s *snapshot) Text() (string, error) {
	if s.depth != 0 || s.we.Text == nil {
		return "", ErrStale
	}
	return *s.we.Text, nil
}

func (s *snapshot) ScreenOrigin() (Point, error) {
	if s.depth != 0 || s.we.Origin == nil {
		return Point{}, ErrStale
	}
	return *s.we.Origin, nil
}

func (s *snapshot) CaretExtent() (Point, error) {
	if s.depth != 0 || s.we.Caret == nil {
		return Point{}, ErrStale
	}
	return *s.we.Caret, nil
}
