package layout

import "github.com/lawnchairsociety/roomgen/internal/logger"

// placeBlock creates a block at pos, registers it in the grid and appends it to room
func (g *Generator) placeBlock(pos Coord, room *Room) (*Block, error) {
	id := BlockID(len(g.blocks))
	if err := g.grid.Insert(pos, id); err != nil {
		return nil, err
	}
	b := newBlock(id, pos, room.ID)
	g.blocks = append(g.blocks, b)
	room.Blocks = append(room.Blocks, id)
	return b, nil
}

// grow builds a room of exactly target blocks starting at seed. Each new block is
// placed on a uniformly chosen free side of the blocks placed so far. If the room
// runs out of free sides before reaching target, every block it placed is removed
// again and grow reports false; the grid is left exactly as it was.
// On success the room is committed to the room arena.
func (g *Generator) grow(seed Coord, target int, merge bool) (*Room, bool) {
	room := &Room{ID: RoomID(len(g.rooms))}
	mark := len(g.blocks)

	if _, err := g.placeBlock(seed, room); err != nil {
		return nil, false
	}

	for room.Len() < target {
		free := g.freeSides(room.Blocks)
		if len(free) == 0 {
			g.rollback(room, mark)
			return nil, false
		}

		pick := free[g.rng.Intn(len(free))]
		b, err := g.placeBlock(g.blocks[pick.block].Facing(pick.dir), room)
		if err != nil {
			// Unreachable: free sides were just checked against the grid
			logger.Error("room growth placed onto an occupied cell", "error", err)
			g.rollback(room, mark)
			return nil, false
		}

		if merge {
			g.mergeWithRoom(b)
		}
	}

	g.rooms = append(g.rooms, room)
	return room, true
}

// rollback removes every block of an uncommitted room from the grid and the arena.
// The room's blocks are always the arena tail starting at mark.
func (g *Generator) rollback(room *Room, mark int) {
	for _, id := range room.Blocks {
		g.grid.Remove(g.blocks[id].Pos)
	}
	g.blocks = g.blocks[:mark]
	room.Blocks = nil
}

// mergeWithRoom opens every side pair between b and adjacent blocks of its own room
func (g *Generator) mergeWithRoom(b *Block) {
	for _, dir := range AllDirections() {
		nid, ok := g.grid.Get(b.Facing(dir))
		if ok && nid != b.ID && g.blocks[nid].Room == b.Room {
			g.setPair(b, dir, Open)
		}
	}
}

// freeSides returns every side of the given blocks whose facing cell is free,
// in block order then direction order
func (g *Generator) freeSides(ids []BlockID) []sideRef {
	var free []sideRef
	for _, id := range ids {
		b := g.blocks[id]
		for _, dir := range AllDirections() {
			if g.grid.Free(b.Facing(dir)) {
				free = append(free, sideRef{block: id, dir: dir})
			}
		}
	}
	return free
}
