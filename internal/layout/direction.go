package layout

import (
	"fmt"
	"strings"
)

// Direction represents one of the four sides of a block.
// The order matches the side order of exported block records.
type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left
)

// AllDirections returns all four directions in record order
func AllDirections() []Direction {
	return []Direction{Up, Right, Down, Left}
}

// String returns the string representation of a Direction
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

// IsValid returns true if the direction is one of the four sides
func (d Direction) IsValid() bool {
	return d >= Up && d <= Left
}

// Opposite returns the opposite direction
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Right:
		return Left
	case Left:
		return Right
	default:
		return d
	}
}

// Delta returns the x and y offsets for this direction. Y grows downward.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Right:
		return 1, 0
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	default:
		return 0, 0
	}
}

// Coord is a cell position on the unbounded grid.
type Coord struct {
	X, Y int
}

// Step returns the coordinate adjacent to c in the given direction
func (c Coord) Step(d Direction) Coord {
	dx, dy := d.Delta()
	return Coord{X: c.X + dx, Y: c.Y + dy}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// SideState is the passability of a block side.
type SideState int

const (
	Open SideState = iota // Passable, no wall (also called "none")
	Wall                  // Impassable
	Door                  // Passable, crosses a room boundary
)

// String returns the string representation of a SideState
func (s SideState) String() string {
	switch s {
	case Open:
		return "open"
	case Wall:
		return "wall"
	case Door:
		return "door"
	default:
		return "unknown"
	}
}

// IsValid returns true if s is one of the three side states
func (s SideState) IsValid() bool {
	return s >= Open && s <= Door
}

// Passable returns true for open sides and doors
func (s SideState) Passable() bool {
	return s == Open || s == Door
}

// ParseSideState parses a side state name. "none" is accepted as an alias of "open".
func ParseSideState(name string) (SideState, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "open", "none":
		return Open, nil
	case "wall":
		return Wall, nil
	case "door":
		return Door, nil
	default:
		return Wall, fmt.Errorf("%w: %q", ErrInvalidSideState, name)
	}
}
