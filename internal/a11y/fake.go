package a11y

// FakeNode is an in-memory Accessible used by tests across packages. It can
// simulate stale references and malformed (cyclic) trees, which the real
// bridge occasionally produces.
type FakeNode struct {
	NodeRole       Role
	NodeName       string
	NodeRoleName   string
	NodeIndex      int
	NodeParent     *FakeNode
	NodeStates     StateSet
	NodeInterfaces []string
	NodeText       string
	Origin         Point
	Caret          Point

	// Stale makes every accessor fail, as a disposed widget would.
	Stale bool
}

var _ Accessible = (*FakeNode)(nil)

func (f *FakeNode) Role() (Role, error) {
	if f.Stale {
		return RoleInvalid, ErrStale
	}
	return f.NodeRole, nil
}

func (f *FakeNode) Name() (string, error) {
	if f.Stale {
		return "", ErrStale
	}
	return f.NodeName, nil
}

func (f *FakeNode) RoleName() (string, error) {
	if f.Stale {
		return "", ErrStale
	}
	if f.NodeRoleName != "" {
		return f.NodeRoleName, nil
	}
	return f.NodeRole.String(), nil
}

func (f *FakeNode) IndexInParent() (int, error) {
	if f.Stale {
		return 0, ErrStale
	}
	return f.NodeIndex, nil
}

func (f *FakeNode) Parent() (Accessible, error) {
	if f.Stale {
		return nil, ErrStale
	}
	if f.NodeParent == nil {
		return nil, nil
	}
	return f.NodeParent, nil
}

func (f *FakeNode) States() (StateSet, error) {
	if f.Stale {
		return 0, ErrStale
	}
	return f.NodeStates, nil
}

func (f *FakeNode) Interfaces() ([]string, error) {
	if f.Stale {
		return nil, ErrStale
	}
	return f.NodeInterfaces, nil
}

func (f *FakeNode) Text() (string, error) {
	if f.Stale {
		return "", ErrStale
	}
	return f.NodeText, nil
}

func (f *FakeNode) ScreenOrigin() (Point, error) {
	if f.Stale {
		return Point{}, ErrStale
	}
	return f.Origin, nil
}

func (f *FakeNode) CaretExtent() (Point, error) {
	if f.Stale {
		return Point{}, ErrStale
	}
	return f.Caret, nil
}

// FakeTree builds the usual application > frame > field chain and returns
// the leaf field.
func FakeTree(appName, frameName string, field *FakeNode) *FakeNode {
	app := &FakeNode{NodeRole: RoleApplication, NodeName: appName}
	frame := &FakeNode{NodeRole: RoleFrame, NodeName: frameName, NodeParent: app}
	field.NodeParent = frame
	return field
}
