// Package layout grows connected room layouts on an unbounded integer grid.
//
// Rooms are grown block by block from a seed cell, attached to the existing
// layout through a door, and either merged into one open space or walled and
// carved into a spanning tree of sub-chambers. A Generator is not safe for
// concurrent use; hosts that generate in parallel use one Generator each.
package layout

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/lawnchairsociety/roomgen/internal/logger"
)

var (
	ErrInvalidBlockRange = errors.New("layout: invalid block range")
	ErrInvalidRoomCount  = errors.New("layout: room count must be greater than zero")
	ErrInvalidSideState  = errors.New("layout: invalid side state")
	ErrInvalidRoomKind   = errors.New("layout: invalid room kind")
	ErrCellOccupied      = errors.New("layout: cell already occupied")
	ErrOutOfBounds       = errors.New("layout: cell outside grid bounds")
	ErrInconsistent      = errors.New("layout: inconsistent layout")
)

// Generator owns the grid and the block and room arenas.
type Generator struct {
	rng    *rand.Rand
	grid   *Grid
	blocks []*Block
	rooms  []*Room

	// bounds as configured; the grid's copy moves with normalization
	bounds *Rect
}

// Option configures a Generator
type Option func(*Generator)

// WithRand makes the generator draw every random decision from r
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) {
		g.rng = r
	}
}

// WithSeed seeds the generator's random source for reproducible layouts
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewSource(seed))
	}
}

// WithBounds confines the layout to r. Rooms that cannot grow inside r are
// skipped like any other room that fits nowhere. Export normalization shifts
// the bounds together with the blocks.
func WithBounds(r Rect) Option {
	return func(g *Generator) {
		g.bounds = &r
		g.grid.bounds = &Rect{Min: r.Min, Max: r.Max}
	}
}

// New creates a generator with an empty grid
func New(opts ...Option) *Generator {
	g := &Generator{grid: NewGrid()}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return g
}

// Clear resets the generator to an empty grid within the configured bounds
func (g *Generator) Clear() {
	g.grid.Clear()
	if g.bounds != nil {
		g.grid.bounds = &Rect{Min: g.bounds.Min, Max: g.bounds.Max}
	}
	g.blocks = nil
	g.rooms = nil
}

// RoomCount returns the number of committed rooms
func (g *Generator) RoomCount() int {
	return len(g.rooms)
}

// BlockCount returns the number of occupied cells
func (g *Generator) BlockCount() int {
	return g.grid.Len()
}

// Room returns a committed room by id
func (g *Generator) Room(id RoomID) (*Room, bool) {
	if id < 0 || int(id) >= len(g.rooms) {
		return nil, false
	}
	return g.rooms[id], true
}

// BlockAt returns the block occupying c
func (g *Generator) BlockAt(c Coord) (*Block, bool) {
	id, ok := g.grid.Get(c)
	if !ok {
		return nil, false
	}
	return g.blocks[id], true
}

// DoorCount returns the number of door sides on the room's blocks
func (g *Generator) DoorCount(id RoomID) int {
	room, ok := g.Room(id)
	if !ok {
		return 0
	}
	count := 0
	for _, bid := range room.Blocks {
		for _, side := range g.blocks[bid].Sides {
			if side.State == Door {
				count++
			}
		}
	}
	return count
}

// AddRoom grows one open room and attaches it to the layout with the given
// contact state. Invalid arguments fail before any mutation; a room that fits
// nowhere is silently skipped.
func (g *Generator) AddRoom(minBlocks, maxBlocks int, door SideState) error {
	if err := validateRange(minBlocks, maxBlocks); err != nil {
		return err
	}
	if !door.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidSideState, door)
	}
	g.addRoom(Solid, minBlocks, maxBlocks, door)
	return nil
}

// AddRooms calls AddRoom count times
func (g *Generator) AddRooms(count, minBlocks, maxBlocks int, door SideState) error {
	if err := validateCount(count); err != nil {
		return err
	}
	if err := validateRange(minBlocks, maxBlocks); err != nil {
		return err
	}
	if !door.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidSideState, door)
	}
	for i := 0; i < count; i++ {
		g.addRoom(Solid, minBlocks, maxBlocks, door)
	}
	return nil
}

// AddSolidRoom grows one open room joined to the layout by a door
func (g *Generator) AddSolidRoom(minBlocks, maxBlocks int) error {
	return g.AddRoom(minBlocks, maxBlocks, Door)
}

// AddSolidRooms calls AddSolidRoom count times
func (g *Generator) AddSolidRooms(count, minBlocks, maxBlocks int) error {
	return g.AddRooms(count, minBlocks, maxBlocks, Door)
}

// AddRoomWithPartitions grows one walled room joined by a door and carves a
// spanning tree of openings through its interior
func (g *Generator) AddRoomWithPartitions(minBlocks, maxBlocks int) error {
	if err := validateRange(minBlocks, maxBlocks); err != nil {
		return err
	}
	g.addRoom(Partitioned, minBlocks, maxBlocks, Door)
	return nil
}

// AddRoomsWithPartitions calls AddRoomWithPartitions count times
func (g *Generator) AddRoomsWithPartitions(count, minBlocks, maxBlocks int) error {
	if err := validateCount(count); err != nil {
		return err
	}
	if err := validateRange(minBlocks, maxBlocks); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		g.addRoom(Partitioned, minBlocks, maxBlocks, Door)
	}
	return nil
}

// addRoom draws a target size, attaches a room of that size and finishes its interior.
// It reports whether a room was placed.
func (g *Generator) addRoom(kind RoomKind, minBlocks, maxBlocks int, door SideState) bool {
	target := minBlocks + g.rng.Intn(maxBlocks-minBlocks+1)

	room, ok := g.attach(target, kind == Solid, door)
	if !ok {
		logger.Debug("room skipped, no attachment point fits",
			"kind", kind.String(),
			"target_blocks", target,
			"rooms", len(g.rooms))
		return false
	}

	if kind == Partitioned {
		g.setInteriorSides(room, Wall)
		g.partition(room)
	}

	logger.Debug("room placed",
		"room", int(room.ID),
		"kind", kind.String(),
		"blocks", room.Len(),
		"seed", g.blocks[room.Blocks[0]].Pos.String())
	return true
}

// setInteriorSides sets every side shared by two blocks of the room
func (g *Generator) setInteriorSides(room *Room, state SideState) {
	for _, bid := range room.Blocks {
		b := g.blocks[bid]
		for _, dir := range AllDirections() {
			nid, ok := g.grid.Get(b.Facing(dir))
			if ok && g.blocks[nid].Room == room.ID {
				b.Sides[dir].State = state
			}
		}
	}
}

// setPair sets the side of b facing dir and the matching side of its neighbor
func (g *Generator) setPair(b *Block, dir Direction, state SideState) {
	b.Sides[dir].State = state
	if nid, ok := g.grid.Get(b.Facing(dir)); ok {
		g.blocks[nid].Sides[dir.Opposite()].State = state
	}
}

func validateRange(minBlocks, maxBlocks int) error {
	if minBlocks < 1 || maxBlocks < 1 {
		return fmt.Errorf("%w: min %d and max %d must be greater than zero", ErrInvalidBlockRange, minBlocks, maxBlocks)
	}
	if minBlocks > maxBlocks {
		return fmt.Errorf("%w: min %d is greater than max %d", ErrInvalidBlockRange, minBlocks, maxBlocks)
	}
	return nil
}

func validateCount(count int) error {
	if count < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidRoomCount, count)
	}
	return nil
}
