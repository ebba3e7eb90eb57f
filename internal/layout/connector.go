package layout

// attach grows a room of target blocks against the existing layout. The first
// room is grown at the origin, or the bounds' corner, without a door. Later
// rooms try every free side of the whole map in random order as a seed, and
// the first that admits the room wins: its side pair takes the door state and,
// for doors, the two rooms become neighbors.
func (g *Generator) attach(target int, merge bool, door SideState) (*Room, bool) {
	if g.grid.Len() == 0 {
		return g.grow(g.origin(), target, merge)
	}

	candidates := g.mapFreeSides()
	g.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	for _, c := range candidates {
		anchor := g.blocks[c.block]
		room, ok := g.grow(anchor.Facing(c.dir), target, merge)
		if !ok {
			continue
		}

		seed := g.blocks[room.Blocks[0]]
		anchor.Sides[c.dir].State = door
		seed.Sides[c.dir.Opposite()].State = door

		if door == Door {
			g.linkRooms(room, g.rooms[anchor.Room])
		}
		return room, true
	}

	return nil, false
}

// origin returns the seed of the first room
func (g *Generator) origin() Coord {
	if r, ok := g.grid.Bounds(); ok && !r.Contains(Coord{}) {
		return r.Min
	}
	return Coord{}
}

// mapFreeSides returns every free side on the map in arena order
func (g *Generator) mapFreeSides() []sideRef {
	ids := make([]BlockID, len(g.blocks))
	for i, b := range g.blocks {
		ids[i] = b.ID
	}
	return g.freeSides(ids)
}

// linkRooms registers a and b as each other's door neighbors
func (g *Generator) linkRooms(a, b *Room) {
	if a.ID == b.ID {
		return
	}
	a.addNeighbor(b.ID)
	b.addNeighbor(a.ID)
}
