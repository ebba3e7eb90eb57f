package layout

import "github.com/lawnchairsociety/roomgen/internal/logger"

// BlockData is the exported geometry and side states of one block
type BlockData struct {
	X         int       `json:"x"`
	Y         int       `json:"y"`
	UpSide    SideState `json:"upSide"`
	RightSide SideState `json:"rightSide"`
	DownSide  SideState `json:"downSide"`
	LeftSide  SideState `json:"leftSide"`
}

// Side returns the state of the side facing dir
func (b BlockData) Side(dir Direction) SideState {
	switch dir {
	case Up:
		return b.UpSide
	case Right:
		return b.RightSide
	case Down:
		return b.DownSide
	case Left:
		return b.LeftSide
	default:
		return Wall
	}
}

// RoomData is the exported block list of one room
type RoomData struct {
	Blocks []BlockData `json:"blocks"`
}

// RoomView is a room record together with its adjacency, for hosts that need
// more than geometry
type RoomView struct {
	Index       int
	Blocks      []BlockData
	Neighbors   []int // Indexes of door neighbors
	DoorCount   int
	Partitioned bool
}

// RoomsData normalizes the layout and returns one record per room in creation order
func (g *Generator) RoomsData() []RoomData {
	g.normalize()

	out := make([]RoomData, 0, len(g.rooms))
	for _, room := range g.rooms {
		out = append(out, RoomData{Blocks: g.blockRecords(room)})
	}
	return out
}

// RawRooms normalizes the layout and returns every room with its door neighbors
func (g *Generator) RawRooms() []RoomView {
	g.normalize()

	out := make([]RoomView, 0, len(g.rooms))
	for _, room := range g.rooms {
		neighbors := make([]int, 0, len(room.neighbors))
		for _, n := range room.neighbors {
			neighbors = append(neighbors, int(n))
		}
		out = append(out, RoomView{
			Index:       int(room.ID),
			Blocks:      g.blockRecords(room),
			Neighbors:   neighbors,
			DoorCount:   g.DoorCount(room.ID),
			Partitioned: room.Partitioned,
		})
	}
	return out
}

func (g *Generator) blockRecords(room *Room) []BlockData {
	records := make([]BlockData, 0, room.Len())
	for _, id := range room.Blocks {
		b := g.blocks[id]
		records = append(records, BlockData{
			X:         b.Pos.X,
			Y:         b.Pos.Y,
			UpSide:    b.Sides[Up].State,
			RightSide: b.Sides[Right].State,
			DownSide:  b.Sides[Down].State,
			LeftSide:  b.Sides[Left].State,
		})
	}
	return records
}

// normalize shifts every block so the smallest occupied X and Y are both 0.
// The grid is re-keyed by removing every block before reinserting it at its
// new coordinate. Bounds, if any, move with the layout.
func (g *Generator) normalize() {
	min, ok := g.grid.Min()
	if !ok || min == (Coord{}) {
		return
	}
	if g.grid.bounds != nil {
		g.grid.bounds.Min = Coord{X: g.grid.bounds.Min.X - min.X, Y: g.grid.bounds.Min.Y - min.Y}
		g.grid.bounds.Max = Coord{X: g.grid.bounds.Max.X - min.X, Y: g.grid.bounds.Max.Y - min.Y}
	}

	for _, b := range g.blocks {
		g.grid.Remove(b.Pos)
	}
	for _, b := range g.blocks {
		b.Pos = Coord{X: b.Pos.X - min.X, Y: b.Pos.Y - min.Y}
		if err := g.grid.Insert(b.Pos, b.ID); err != nil {
			logger.Error("normalize: re-keying block failed", "block", int(b.ID), "error", err)
		}
	}
}
