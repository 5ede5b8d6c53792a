package target

import (
	"sync"

	"typeahead/internal/a11y"
	"typeahead/internal/logging"
)

// MaxPathDepth bounds ancestor walks. The external tree is not under our
// control and has been observed malformed; without a cap a cyclic parent
// chain would hang the event loop.
const MaxPathDepth = 64

// Matcher matches live widget references against the loaded descriptors.
// Matching is tolerant by design: the deep tree below the application window
// is unstable (dynamic ids, re-rendered subtrees), so identity is anchored
// at the application/window level plus role and capability checks on the
// widget itself.
type Matcher struct {
	mu          sync.RWMutex
	descriptors []Descriptor
}

// NewMatcher creates a matcher over the given descriptor list.
func NewMatcher(descriptors []Descriptor) *Matcher {
	return &Matcher{descriptors: descriptors}
}

// SetDescriptors replaces the descriptor list, e.g. after the targets file
// changed on disk.
func (m *Matcher) SetDescriptors(descriptors []Descriptor) {
	m.mu.Lock()
	m.descriptors = descriptors
	m.mu.Unlock()
	logging.Matcher("descriptor list replaced: %d targets", len(descriptors))
}

// Len returns the number of loaded descriptors.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.descriptors)
}

// IsTarget reports whether the widget matches any descriptor. Evaluation
// short-circuits on the first match.
func (m *Matcher) IsTarget(obj a11y.Accessible) bool {
	m.mu.RLock()
	descriptors := m.descriptors
	m.mu.RUnlock()

	for i := range descriptors {
		if m.matches(obj, &descriptors[i]) {
			return true
		}
	}
	return false
}

// matches checks one widget against one descriptor. Any failure to read a
// widget property means the reference went stale mid-check; that is a
// non-match, never an error.
func (m *Matcher) matches(obj a11y.Accessible, d *Descriptor) bool {
	role, err := obj.Role()
	if err != nil {
		logging.MatcherDebug("role read failed: %v", err)
		return false
	}

	// Terminals routinely advertise no text capability at all, so for them
	// only liveness counts.
	if role == a11y.RoleTerminal {
		states, err := obj.States()
		if err != nil {
			return false
		}
		return states.Contains(a11y.StateEnabled) &&
			(states.Contains(a11y.StateVisible) || states.Contains(a11y.StateShowing))
	}

	if role != d.Role {
		return false
	}

	ifaces, err := obj.Interfaces()
	if err != nil {
		logging.MatcherDebug("interface read failed: %v", err)
		return false
	}
	// Subset, not equality: a widget may expose more capabilities than the
	// descriptor recorded at capture time.
	if !subset(d.Interfaces, ifaces) {
		return false
	}

	return m.sameApplication(obj, d)
}

// sameApplication anchors the match to "same running application/window":
// the two root-most path entries must pairwise agree on role and name for
// at least one pair. Everything below that point is deliberately ignored.
func (m *Matcher) sameApplication(obj a11y.Accessible, d *Descriptor) bool {
	livePath := Path(obj)
	if len(livePath) < 2 || len(d.Path) < 2 {
		logging.MatcherDebug("path too short: live=%d target=%d", len(livePath), len(d.Path))
		return false
	}

	for _, live := range livePath[:2] {
		for _, want := range d.Path[:2] {
			if live.Role == want.Role && nameEqual(live.Name, want.Name) {
				return true
			}
		}
	}
	return false
}

// Path walks parent references leaf to root and returns the chain in
// root-to-leaf order. The walk stops at MaxPathDepth or on the first failed
// property read, returning whatever was collected so far.
func Path(obj a11y.Accessible) []PathEntry {
	var path []PathEntry
	current := obj
	for depth := 0; current != nil && depth < MaxPathDepth; depth++ {
		role, err := current.Role()
		if err != nil {
			break
		}
		name, err := current.Name()
		if err != nil {
			break
		}
		index, err := current.IndexInParent()
		if err != nil {
			break
		}
		roleName, err := current.RoleName()
		if err != nil {
			break
		}
		n := name
		path = append(path, PathEntry{Role: role, Name: &n, Index: index, RoleName: roleName})

		parent, err := current.Parent()
		if err != nil {
			break
		}
		current = parent
	}

	// Reverse in place to root-to-leaf order.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func nameEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func subset(required, have []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, s := range have {
		set[s] = struct{}{}
	}
	for _, s := range required {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
