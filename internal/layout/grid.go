package layout

import "fmt"

// Grid maps occupied coordinates to blocks. It is the only place occupancy is
// tested; Insert never overwrites, so Remove is its exact inverse.
type Grid struct {
	cells  map[Coord]BlockID
	bounds *Rect
}

// Rect is an inclusive rectangle of cells
type Rect struct {
	Min, Max Coord
}

// Contains returns true if c lies inside r
func (r Rect) Contains(c Coord) bool {
	return c.X >= r.Min.X && c.X <= r.Max.X && c.Y >= r.Min.Y && c.Y <= r.Max.Y
}

// Area returns the number of cells in r
func (r Rect) Area() int {
	if r.Max.X < r.Min.X || r.Max.Y < r.Min.Y {
		return 0
	}
	return (r.Max.X - r.Min.X + 1) * (r.Max.Y - r.Min.Y + 1)
}

// NewGrid creates an empty grid
func NewGrid() *Grid {
	return &Grid{cells: make(map[Coord]BlockID)}
}

// Get returns the block at c, if any
func (g *Grid) Get(c Coord) (BlockID, bool) {
	id, ok := g.cells[c]
	return id, ok
}

// Contains returns true if c is occupied
func (g *Grid) Contains(c Coord) bool {
	_, ok := g.cells[c]
	return ok
}

// Free returns true if a block may be placed at c: the cell is unoccupied and,
// for a bounded grid, inside the bounds
func (g *Grid) Free(c Coord) bool {
	if g.bounds != nil && !g.bounds.Contains(c) {
		return false
	}
	return !g.Contains(c)
}

// Bounds returns the grid's confinement rectangle, if it has one
func (g *Grid) Bounds() (Rect, bool) {
	if g.bounds == nil {
		return Rect{}, false
	}
	return *g.bounds, true
}

// Insert registers a block at c. It fails if c is already occupied.
func (g *Grid) Insert(c Coord, id BlockID) error {
	if g.bounds != nil && !g.bounds.Contains(c) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, c)
	}
	if existing, ok := g.cells[c]; ok {
		return fmt.Errorf("%w: %s holds block %d", ErrCellOccupied, c, existing)
	}
	g.cells[c] = id
	return nil
}

// Remove frees c
func (g *Grid) Remove(c Coord) {
	delete(g.cells, c)
}

// Len returns the number of occupied cells
func (g *Grid) Len() int {
	return len(g.cells)
}

// Clear frees every cell
func (g *Grid) Clear() {
	g.cells = make(map[Coord]BlockID)
}

// Min returns the smallest X and smallest Y over all occupied cells.
// The two minimums may come from different cells.
func (g *Grid) Min() (Coord, bool) {
	if len(g.cells) == 0 {
		return Coord{}, false
	}
	first := true
	var min Coord
	for c := range g.cells {
		if first {
			min = c
			first = false
			continue
		}
		if c.X < min.X {
			min.X = c.X
		}
		if c.Y < min.Y {
			min.Y = c.Y
		}
	}
	return min, true
}
