package layout

import (
	"fmt"

	"github.com/zyedidia/generic/mapset"
	"github.com/zyedidia/generic/queue"
)

// Validate checks the layout's structural invariants:
//   - every block is registered in the grid under its own coordinate, once
//   - the two sides of every shared edge hold the same state
//   - every room's neighbor set is exactly the rooms it shares a door with
//   - every partitioned room's interior openings form a spanning tree
func (g *Generator) Validate() error {
	if g.grid.Len() != len(g.blocks) {
		return fmt.Errorf("%w: grid holds %d cells for %d blocks", ErrInconsistent, g.grid.Len(), len(g.blocks))
	}

	for _, b := range g.blocks {
		id, ok := g.grid.Get(b.Pos)
		if !ok || id != b.ID {
			return fmt.Errorf("%w: block %d at %s is not registered in the grid", ErrInconsistent, b.ID, b.Pos)
		}
		for _, dir := range AllDirections() {
			nid, ok := g.grid.Get(b.Facing(dir))
			if !ok {
				continue
			}
			mine := b.Sides[dir].State
			theirs := g.blocks[nid].Sides[dir.Opposite()].State
			if mine != theirs {
				return fmt.Errorf("%w: side %s of %s is %s but its neighbor's is %s",
					ErrInconsistent, dir, b.Pos, mine, theirs)
			}
		}
	}

	for _, room := range g.rooms {
		if err := g.checkNeighbors(room); err != nil {
			return err
		}
		if room.Partitioned {
			if err := g.checkSpanningTree(room); err != nil {
				return err
			}
		}
	}

	return nil
}

// checkNeighbors compares the room's registered neighbors with its door contacts
func (g *Generator) checkNeighbors(room *Room) error {
	viaDoor := make(map[RoomID]bool)
	for _, bid := range room.Blocks {
		b := g.blocks[bid]
		for _, dir := range AllDirections() {
			if b.Sides[dir].State != Door {
				continue
			}
			nid, ok := g.grid.Get(b.Facing(dir))
			if !ok {
				return fmt.Errorf("%w: door on side %s of %s faces an empty cell", ErrInconsistent, dir, b.Pos)
			}
			if other := g.blocks[nid].Room; other != room.ID {
				viaDoor[other] = true
			}
		}
	}

	if len(viaDoor) != len(room.neighbors) {
		return fmt.Errorf("%w: room %d has %d door neighbors but lists %d",
			ErrInconsistent, room.ID, len(viaDoor), len(room.neighbors))
	}
	for _, n := range room.neighbors {
		if !viaDoor[n] {
			return fmt.Errorf("%w: room %d lists room %d without a door between them", ErrInconsistent, room.ID, n)
		}
		if !g.rooms[n].HasNeighbor(room.ID) {
			return fmt.Errorf("%w: room %d lists room %d but not the reverse", ErrInconsistent, room.ID, n)
		}
	}
	return nil
}

// checkSpanningTree verifies the room's interior openings connect every block
// with no cycle: exactly len-1 openings and every block reachable from the first
func (g *Generator) checkSpanningTree(room *Room) error {
	openings := 0
	for _, bid := range room.Blocks {
		b := g.blocks[bid]
		// Right and Down only, so each shared edge is counted once
		for _, dir := range []Direction{Right, Down} {
			if _, ok := g.interiorStep(b, dir); ok {
				openings++
			}
		}
	}
	if openings != room.Len()-1 {
		return fmt.Errorf("%w: room %d has %d interior openings for %d blocks",
			ErrInconsistent, room.ID, openings, room.Len())
	}

	visited := mapset.New[BlockID]()
	pending := queue.New[BlockID]()
	visited.Put(room.Blocks[0])
	pending.Enqueue(room.Blocks[0])
	for !pending.Empty() {
		b := g.blocks[pending.Dequeue()]
		for _, dir := range AllDirections() {
			nid, ok := g.interiorStep(b, dir)
			if ok && !visited.Has(nid) {
				visited.Put(nid)
				pending.Enqueue(nid)
			}
		}
	}
	if visited.Size() != room.Len() {
		return fmt.Errorf("%w: room %d reaches %d of %d blocks through its openings",
			ErrInconsistent, room.ID, visited.Size(), room.Len())
	}
	return nil
}

// interiorStep returns the same-room block behind b's passable side dir
func (g *Generator) interiorStep(b *Block, dir Direction) (BlockID, bool) {
	nid, ok := g.grid.Get(b.Facing(dir))
	if !ok || g.blocks[nid].Room != b.Room || !b.Sides[dir].State.Passable() {
		return 0, false
	}
	return nid, true
}
