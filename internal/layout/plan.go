package layout

import (
	"fmt"
	"strings"
)

// RoomKind selects how a room's interior is finished after growth
type RoomKind int

const (
	Solid       RoomKind = iota // One open space
	Partitioned                 // Walled sub-chambers joined as a spanning tree
)

// String returns the string representation of a RoomKind
func (k RoomKind) String() string {
	switch k {
	case Solid:
		return "solid"
	case Partitioned:
		return "partitioned"
	default:
		return "unknown"
	}
}

// ParseRoomKind parses a room kind name. "merged" is accepted as an alias of "solid".
func ParseRoomKind(name string) (RoomKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "solid", "merged", "":
		return Solid, nil
	case "partitioned":
		return Partitioned, nil
	default:
		return Solid, fmt.Errorf("%w: %q", ErrInvalidRoomKind, name)
	}
}

// Step is one bulk room request in a generation plan
type Step struct {
	Kind      RoomKind
	Count     int
	MinBlocks int
	MaxBlocks int
	Door      SideState // Contact state with the existing layout
}

// Validate checks the step's arguments
func (s Step) Validate() error {
	if s.Kind != Solid && s.Kind != Partitioned {
		return fmt.Errorf("%w: %d", ErrInvalidRoomKind, s.Kind)
	}
	if err := validateCount(s.Count); err != nil {
		return err
	}
	if err := validateRange(s.MinBlocks, s.MaxBlocks); err != nil {
		return err
	}
	if !s.Door.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidSideState, s.Door)
	}
	return nil
}

// Apply runs every step in order. All steps are validated before the first
// room is placed, so an invalid plan leaves the layout untouched.
// It returns the number of rooms actually placed.
func (g *Generator) Apply(steps []Step) (int, error) {
	for i, step := range steps {
		if err := step.Validate(); err != nil {
			return 0, fmt.Errorf("step %d: %w", i, err)
		}
	}

	placed := 0
	for _, step := range steps {
		for n := 0; n < step.Count; n++ {
			if g.addRoom(step.Kind, step.MinBlocks, step.MaxBlocks, step.Door) {
				placed++
			}
		}
	}
	return placed, nil
}
