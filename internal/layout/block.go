package layout

// BlockID addresses a block in the generator's block arena.
type BlockID int

// RoomID addresses a room in the generator's room arena.
type RoomID int

// Side is one directional face of a block. It only knows its owner by handle;
// the cell it faces is derived from the owner's position.
type Side struct {
	Owner     BlockID
	Direction Direction
	State     SideState
}

// Block is a single occupied grid cell
type Block struct {
	ID    BlockID
	Pos   Coord
	Room  RoomID
	Sides [4]Side // Indexed by Direction
}

// newBlock creates a block with all four sides walled
func newBlock(id BlockID, pos Coord, room RoomID) *Block {
	b := &Block{
		ID:   id,
		Pos:  pos,
		Room: room,
	}
	for _, dir := range AllDirections() {
		b.Sides[dir] = Side{Owner: id, Direction: dir, State: Wall}
	}
	return b
}

// Side returns the side facing the given direction
func (b *Block) Side(dir Direction) *Side {
	return &b.Sides[dir]
}

// Facing returns the coordinate the given side looks onto
func (b *Block) Facing(dir Direction) Coord {
	return b.Pos.Step(dir)
}

// sideRef addresses one side of one block in the arena
type sideRef struct {
	block BlockID
	dir   Direction
}

// Room is a connected set of blocks created by one growth request.
type Room struct {
	ID          RoomID
	Blocks      []BlockID // Construction order; Blocks[0] is the growth seed
	Partitioned bool

	neighbors []RoomID
}

// Len returns the number of blocks in the room
func (r *Room) Len() int {
	return len(r.Blocks)
}

// Neighbors returns the rooms reachable from this one through a door
func (r *Room) Neighbors() []RoomID {
	out := make([]RoomID, len(r.neighbors))
	copy(out, r.neighbors)
	return out
}

// HasNeighbor returns true if id is registered as a door neighbor
func (r *Room) HasNeighbor(id RoomID) bool {
	for _, n := range r.neighbors {
		if n == id {
			return true
		}
	}
	return false
}

// addNeighbor registers id as a door neighbor. Adding an existing neighbor is a no-op.
func (r *Room) addNeighbor(id RoomID) {
	if r.HasNeighbor(id) {
		return
	}
	r.neighbors = append(r.neighbors, id)
}
