// Package target decides whether a live widget is one of the fields the
// user designated for completion. Designation happens out of process: a
// capture tool records a structural fingerprint of the focused widget, and
// this package matches later live references against those fingerprints.
package target

import (
	"encoding/json"
	"fmt"
	"os"

	"typeahead/internal/a11y"
)

// PathEntry is one node of a recorded root-to-leaf ancestor path.
type PathEntry struct {
	Role     a11y.Role `json:"role"`
	Name     *string   `json:"name"`
	Index    int       `json:"index"`
	RoleName string    `json:"role_name"`
}

// Descriptor is the persisted structural fingerprint of a designated field.
// Loaded once at startup (or on file change) and read-only thereafter.
type Descriptor struct {
	Role       a11y.Role         `json:"role"`
	Interfaces []string          `json:"interfaces"`
	Path       []PathEntry       `json:"path"`
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
}

// LoadDescriptors reads the target list file: an ordered JSON array of
// descriptors.
func LoadDescriptors(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("target: read %s: %w", path, err)
	}
	var ds []Descriptor
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("target: parse %s: %w", path, err)
	}
	return ds, nil
}

// SaveDescriptors writes the target list file.
func SaveDescriptors(path string, ds []Descriptor) error {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("target: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("target: write %s: %w", path, err)
	}
	return nil
}

// Capture builds a descriptor from a live widget, the way the capture tool
// does. It exists here so a captured, serialized and reloaded descriptor
// provably still matches the widget it came from.
func Capture(obj a11y.Accessible) (Descriptor, error) {
	role, err := obj.Role()
	if err != nil {
		return Descriptor{}, fmt.Errorf("target: capture role: %w", err)
	}
	ifaces, err := obj.Interfaces()
	if err != nil {
		return Descriptor{}, fmt.Errorf("target: capture interfaces: %w", err)
	}
	name, err := obj.Name()
	if err != nil {
		return Descriptor{}, fmt.Errorf("target: capture name: %w", err)
	}
	return Descriptor{
		Role:       role,
		Interfaces: ifaces,
		Path:       Path(obj),
		Name:       name,
		Attributes: map[string]string{},
	}, nil
}
