package layout

import "github.com/zyedidia/generic/mapset"

// partition carves a random spanning tree of openings through a walled room.
// Starting from a random block, it repeatedly picks a random connected block,
// looks at its sides in random order and opens the first one leading to an
// unconnected block of the same room. Rooms are grown from their own free
// sides, so every block is reachable and the loop always finishes.
func (g *Generator) partition(room *Room) {
	if room.Len() == 0 {
		return
	}

	connected := mapset.New[BlockID]()
	order := make([]BlockID, 0, room.Len())

	start := room.Blocks[g.rng.Intn(room.Len())]
	connected.Put(start)
	order = append(order, start)

	for len(order) < room.Len() {
		b := g.blocks[order[g.rng.Intn(len(order))]]

		dirs := AllDirections()
		g.rng.Shuffle(len(dirs), func(i, j int) {
			dirs[i], dirs[j] = dirs[j], dirs[i]
		})

		for _, dir := range dirs {
			nid, ok := g.grid.Get(b.Facing(dir))
			if !ok || g.blocks[nid].Room != room.ID || connected.Has(nid) {
				continue
			}
			g.setPair(b, dir, Open)
			connected.Put(nid)
			order = append(order, nid)
			break
		}
	}

	room.Partitioned = true
}
