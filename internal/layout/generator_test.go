package layout

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

// interiorOpenings counts passable sides shared by two blocks of the same room
func interiorOpenings(room RoomData) int {
	cells := make(map[Coord]BlockData, len(room.Blocks))
	for _, b := range room.Blocks {
		cells[Coord{X: b.X, Y: b.Y}] = b
	}
	count := 0
	for c, b := range cells {
		for _, dir := range []Direction{Right, Down} {
			if _, ok := cells[c.Step(dir)]; ok && b.Side(dir).Passable() {
				count++
			}
		}
	}
	return count
}

// reachableBlocks returns how many blocks of the room are reachable from its
// first block through passable interior sides
func reachableBlocks(room RoomData) int {
	if len(room.Blocks) == 0 {
		return 0
	}
	cells := make(map[Coord]BlockData, len(room.Blocks))
	for _, b := range room.Blocks {
		cells[Coord{X: b.X, Y: b.Y}] = b
	}
	start := Coord{X: room.Blocks[0].X, Y: room.Blocks[0].Y}
	visited := map[Coord]bool{start: true}
	queue := []Coord{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dir := range AllDirections() {
			next := current.Step(dir)
			if visited[next] || !cells[current].Side(dir).Passable() {
				continue
			}
			if _, ok := cells[next]; ok {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return len(visited)
}

// occupied snapshots the set of occupied cells
func occupied(g *Generator) map[Coord]BlockID {
	out := make(map[Coord]BlockID, g.grid.Len())
	for c, id := range g.grid.cells {
		out[c] = id
	}
	return out
}

// surround walls in a square pocket of (2*radius-1)^2 free cells around the origin
func surround(g *Generator, radius int) {
	room := &Room{ID: RoomID(len(g.rooms))}
	for x := -radius; x <= radius; x++ {
		for y := -radius; y <= radius; y++ {
			if x == -radius || x == radius || y == -radius || y == radius {
				if _, err := g.placeBlock(Coord{X: x, Y: y}, room); err != nil {
					panic(err)
				}
			}
		}
	}
	g.rooms = append(g.rooms, room)
}

func TestFirstRoomIsSingleWalledBlockAtOrigin(t *testing.T) {
	g := New(WithSeed(1))
	g.Clear()

	if err := g.AddRoom(1, 1, Door); err != nil {
		t.Fatalf("AddRoom() failed: %v", err)
	}

	rooms := g.RoomsData()
	if len(rooms) != 1 {
		t.Fatalf("got %d rooms, want 1", len(rooms))
	}
	if len(rooms[0].Blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(rooms[0].Blocks))
	}

	b := rooms[0].Blocks[0]
	if b.X != 0 || b.Y != 0 {
		t.Errorf("block at (%d,%d), want (0,0)", b.X, b.Y)
	}
	for _, dir := range AllDirections() {
		if b.Side(dir) != Wall {
			t.Errorf("side %s = %s, want wall", dir, b.Side(dir))
		}
	}
}

func TestSecondRoomAttachesThroughDoor(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		g := New(WithSeed(seed))
		if err := g.AddRoom(1, 1, Door); err != nil {
			t.Fatalf("AddRoom() failed: %v", err)
		}
		if err := g.AddRoom(1, 1, Door); err != nil {
			t.Fatalf("AddRoom() failed: %v", err)
		}

		rooms := g.RoomsData()
		if len(rooms) != 2 {
			t.Fatalf("seed %d: got %d rooms, want 2", seed, len(rooms))
		}

		first, second := rooms[0].Blocks[0], rooms[1].Blocks[0]
		a := Coord{X: first.X, Y: first.Y}
		b := Coord{X: second.X, Y: second.Y}

		contact := Direction(-1)
		for _, dir := range AllDirections() {
			if a.Step(dir) == b {
				contact = dir
			}
		}
		if !contact.IsValid() {
			t.Fatalf("seed %d: second room at %s is not adjacent to %s", seed, b, a)
		}

		for _, dir := range AllDirections() {
			want := Wall
			if dir == contact {
				want = Door
			}
			if got := first.Side(dir); got != want {
				t.Errorf("seed %d: first room side %s = %s, want %s", seed, dir, got, want)
			}
		}
		if got := second.Side(contact.Opposite()); got != Door {
			t.Errorf("seed %d: second room side %s = %s, want door", seed, contact.Opposite(), got)
		}

		r0, _ := g.Room(0)
		r1, _ := g.Room(1)
		if !r0.HasNeighbor(1) || !r1.HasNeighbor(0) {
			t.Errorf("seed %d: rooms should list each other as neighbors", seed)
		}
		if g.DoorCount(0) != 1 || g.DoorCount(1) != 1 {
			t.Errorf("seed %d: door counts = %d/%d, want 1/1", seed, g.DoorCount(0), g.DoorCount(1))
		}
	}
}

func TestPartitionedRoomIsSpanningTree(t *testing.T) {
	for n := 1; n <= 16; n++ {
		g := New(WithSeed(int64(n) * 7))
		if err := g.AddRoomWithPartitions(n, n); err != nil {
			t.Fatalf("AddRoomWithPartitions(%d) failed: %v", n, err)
		}

		rooms := g.RoomsData()
		if len(rooms) != 1 {
			t.Fatalf("n=%d: got %d rooms, want 1", n, len(rooms))
		}
		room := rooms[0]
		if len(room.Blocks) != n {
			t.Errorf("n=%d: got %d blocks", n, len(room.Blocks))
		}
		if got := interiorOpenings(room); got != n-1 {
			t.Errorf("n=%d: %d interior openings, want %d", n, got, n-1)
		}
		if got := reachableBlocks(room); got != n {
			t.Errorf("n=%d: %d blocks reachable, want %d", n, got, n)
		}
		if err := g.Validate(); err != nil {
			t.Errorf("n=%d: Validate() failed: %v", n, err)
		}
	}
}

func TestPartitionedRoomOfFour(t *testing.T) {
	g := New(WithSeed(42))
	if err := g.AddRoomWithPartitions(4, 4); err != nil {
		t.Fatalf("AddRoomWithPartitions() failed: %v", err)
	}

	room := g.RoomsData()[0]
	if len(room.Blocks) != 4 {
		t.Fatalf("got %d blocks, want 4", len(room.Blocks))
	}
	if got := interiorOpenings(room); got != 3 {
		t.Errorf("interior openings = %d, want 3", got)
	}
	if got := reachableBlocks(room); got != 4 {
		t.Errorf("reachable blocks = %d, want 4", got)
	}
}

func TestSolidRoomInteriorIsOpen(t *testing.T) {
	g := New(WithSeed(5))
	if err := g.AddSolidRoom(8, 8); err != nil {
		t.Fatalf("AddSolidRoom() failed: %v", err)
	}

	room := g.RoomsData()[0]
	cells := make(map[Coord]bool)
	for _, b := range room.Blocks {
		cells[Coord{X: b.X, Y: b.Y}] = true
	}
	for _, b := range room.Blocks {
		c := Coord{X: b.X, Y: b.Y}
		for _, dir := range AllDirections() {
			want := Wall
			if cells[c.Step(dir)] {
				want = Open
			}
			if got := b.Side(dir); got != want {
				t.Errorf("block %s side %s = %s, want %s", c, dir, got, want)
			}
		}
	}
}

func TestInvalidArgumentsFailBeforeMutation(t *testing.T) {
	g := New(WithSeed(3))
	if err := g.AddRoom(2, 2, Door); err != nil {
		t.Fatalf("AddRoom() failed: %v", err)
	}
	before := occupied(g)

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"min greater than max", func() error { return g.AddRoom(5, 3, Door) }, ErrInvalidBlockRange},
		{"zero min", func() error { return g.AddRoom(0, 3, Door) }, ErrInvalidBlockRange},
		{"zero max", func() error { return g.AddSolidRoom(1, 0) }, ErrInvalidBlockRange},
		{"negative range", func() error { return g.AddRoomWithPartitions(-2, -1) }, ErrInvalidBlockRange},
		{"zero count", func() error { return g.AddRooms(0, 1, 1, Door) }, ErrInvalidRoomCount},
		{"zero solid count", func() error { return g.AddSolidRooms(0, 1, 1) }, ErrInvalidRoomCount},
		{"zero partitioned count", func() error { return g.AddRoomsWithPartitions(-1, 1, 1) }, ErrInvalidRoomCount},
		{"bad range in bulk", func() error { return g.AddRoomsWithPartitions(3, 4, 2) }, ErrInvalidBlockRange},
		{"bad door state", func() error { return g.AddRoom(1, 1, SideState(7)) }, ErrInvalidSideState},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			if !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
			if g.RoomCount() != 1 {
				t.Errorf("RoomCount() = %d, want 1", g.RoomCount())
			}
			if !reflect.DeepEqual(occupied(g), before) {
				t.Error("grid changed after invalid call")
			}
		})
	}
}

func TestGrowRollbackLeavesGridUnchanged(t *testing.T) {
	// A radius-3 ring leaves a 5x5 pocket of 25 free cells
	g := New(WithSeed(9))
	surround(g, 3)
	before := occupied(g)
	blocksBefore := len(g.blocks)
	roomsBefore := g.RoomCount()

	for _, target := range []int{26, 30, 100} {
		room, ok := g.grow(Coord{}, target, true)
		if ok || room != nil {
			t.Fatalf("grow(%d) succeeded inside a 25-cell pocket", target)
		}
		if !reflect.DeepEqual(occupied(g), before) {
			t.Errorf("grow(%d): grid changed after failed attempt", target)
		}
		if len(g.blocks) != blocksBefore {
			t.Errorf("grow(%d): block arena has %d blocks, want %d", target, len(g.blocks), blocksBefore)
		}
		if g.RoomCount() != roomsBefore {
			t.Errorf("grow(%d): room count changed", target)
		}
	}

	room, ok := g.grow(Coord{}, 25, false)
	if !ok {
		t.Fatal("grow(25) should fill the pocket exactly")
	}
	if room.Len() != 25 {
		t.Errorf("room has %d blocks, want 25", room.Len())
	}
}

func TestUnplaceableRoomIsSilentNoOp(t *testing.T) {
	g := New(WithSeed(11), WithBounds(Rect{Min: Coord{X: 0, Y: 0}, Max: Coord{X: 2, Y: 2}}))
	if err := g.AddRoom(4, 4, Door); err != nil {
		t.Fatalf("AddRoom() failed: %v", err)
	}
	before := occupied(g)

	for i := 0; i < 5; i++ {
		if err := g.AddRoom(1000, 1000, Door); err != nil {
			t.Fatalf("AddRoom(1000) returned error: %v", err)
		}
	}

	if g.RoomCount() != 1 {
		t.Errorf("RoomCount() = %d, want 1", g.RoomCount())
	}
	if !reflect.DeepEqual(occupied(g), before) {
		t.Error("grid changed after skipped rooms")
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}

func TestBoundedFirstRoomTooLarge(t *testing.T) {
	g := New(WithSeed(2), WithBounds(Rect{Min: Coord{X: 5, Y: 5}, Max: Coord{X: 6, Y: 6}}))
	if err := g.AddRoom(5, 5, Door); err != nil {
		t.Fatalf("AddRoom() failed: %v", err)
	}
	if g.RoomCount() != 0 || g.BlockCount() != 0 {
		t.Errorf("got %d rooms and %d blocks, want none", g.RoomCount(), g.BlockCount())
	}

	if err := g.AddRoom(4, 4, Door); err != nil {
		t.Fatalf("AddRoom() failed: %v", err)
	}
	if g.BlockCount() != 4 {
		t.Errorf("BlockCount() = %d, want 4 (room fills the bounds)", g.BlockCount())
	}
}

func TestOpenContactDoesNotRegisterNeighbors(t *testing.T) {
	g := New(WithSeed(8))
	if err := g.AddRooms(2, 1, 1, Open); err != nil {
		t.Fatalf("AddRooms() failed: %v", err)
	}

	r0, _ := g.Room(0)
	if len(r0.Neighbors()) != 0 {
		t.Errorf("room 0 has %d neighbors, want 0", len(r0.Neighbors()))
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}

	open := 0
	for _, b := range g.RoomsData()[0].Blocks {
		for _, dir := range AllDirections() {
			if b.Side(dir) == Open {
				open++
			}
		}
	}
	if open != 1 {
		t.Errorf("first room has %d open sides, want 1", open)
	}
}

func TestGeneratedLayoutsHoldInvariants(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		g := New(WithSeed(seed))
		if err := g.AddRooms(6, 1, 6, Door); err != nil {
			t.Fatalf("AddRooms() failed: %v", err)
		}
		if err := g.AddRoomsWithPartitions(6, 2, 9); err != nil {
			t.Fatalf("AddRoomsWithPartitions() failed: %v", err)
		}

		if g.RoomCount() != 12 {
			t.Errorf("seed %d: RoomCount() = %d, want 12", seed, g.RoomCount())
		}
		if err := g.Validate(); err != nil {
			t.Fatalf("seed %d: Validate() failed: %v", seed, err)
		}

		views := g.RawRooms()
		seen := make(map[Coord]bool)
		minX, minY := 1<<30, 1<<30
		for _, view := range views {
			for _, b := range view.Blocks {
				c := Coord{X: b.X, Y: b.Y}
				if seen[c] {
					t.Errorf("seed %d: coordinate %s claimed twice", seed, c)
				}
				seen[c] = true
				if b.X < minX {
					minX = b.X
				}
				if b.Y < minY {
					minY = b.Y
				}
			}
			for _, n := range view.Neighbors {
				back := false
				for _, m := range views[n].Neighbors {
					if m == view.Index {
						back = true
					}
				}
				if !back {
					t.Errorf("seed %d: room %d lists %d but not the reverse", seed, view.Index, n)
				}
			}
			if view.Index > 0 && len(view.Neighbors) == 0 {
				t.Errorf("seed %d: room %d was attached without a door neighbor", seed, view.Index)
			}
		}
		if minX != 0 || minY != 0 {
			t.Errorf("seed %d: normalized minimum = (%d,%d), want (0,0)", seed, minX, minY)
		}

		// Normalization re-keys the grid, the invariants must still hold
		if err := g.Validate(); err != nil {
			t.Errorf("seed %d: Validate() after export failed: %v", seed, err)
		}
	}
}

func TestSameSeedSameLayout(t *testing.T) {
	build := func() []RoomData {
		g := New(WithRand(rand.New(rand.NewSource(77))))
		if err := g.AddSolidRooms(4, 2, 5); err != nil {
			t.Fatalf("AddSolidRooms() failed: %v", err)
		}
		if err := g.AddRoomsWithPartitions(4, 3, 6); err != nil {
			t.Fatalf("AddRoomsWithPartitions() failed: %v", err)
		}
		return g.RoomsData()
	}

	first, second := build(), build()
	if !reflect.DeepEqual(first, second) {
		t.Error("same seed produced different layouts")
	}
}

func TestClearResetsLayout(t *testing.T) {
	g := New(WithSeed(4))
	if err := g.AddSolidRooms(3, 2, 3); err != nil {
		t.Fatalf("AddSolidRooms() failed: %v", err)
	}
	g.Clear()

	if g.RoomCount() != 0 || g.BlockCount() != 0 {
		t.Errorf("after Clear(): %d rooms, %d blocks", g.RoomCount(), g.BlockCount())
	}
	if len(g.RoomsData()) != 0 {
		t.Error("RoomsData() not empty after Clear()")
	}

	if err := g.AddRoom(1, 1, Door); err != nil {
		t.Fatalf("AddRoom() failed: %v", err)
	}
	if _, ok := g.BlockAt(Coord{}); !ok {
		t.Error("first room after Clear() should start at the origin")
	}
}

func TestValidateDetectsMismatchedSides(t *testing.T) {
	g := New(WithSeed(6))
	if err := g.AddSolidRoom(3, 3); err != nil {
		t.Fatalf("AddSolidRoom() failed: %v", err)
	}

	b, _ := g.BlockAt(Coord{})
	for _, dir := range AllDirections() {
		if _, ok := g.BlockAt(b.Facing(dir)); ok {
			b.Side(dir).State = Wall
			break
		}
	}

	if err := g.Validate(); !errors.Is(err, ErrInconsistent) {
		t.Errorf("Validate() error = %v, want ErrInconsistent", err)
	}
}

func TestValidateDetectsDisconnectedPartition(t *testing.T) {
	g := New(WithSeed(12))
	if err := g.AddRoomWithPartitions(6, 6); err != nil {
		t.Fatalf("AddRoomWithPartitions() failed: %v", err)
	}
	room, _ := g.Room(0)
	g.setInteriorSides(room, Wall)

	if err := g.Validate(); !errors.Is(err, ErrInconsistent) {
		t.Errorf("Validate() error = %v, want ErrInconsistent", err)
	}
}

func TestClearRestoresConfiguredBounds(t *testing.T) {
	bounds := Rect{Min: Coord{X: 5, Y: 5}, Max: Coord{X: 6, Y: 6}}
	g := New(WithSeed(3), WithBounds(bounds))
	if err := g.AddRoom(1, 1, Door); err != nil {
		t.Fatalf("AddRoom() failed: %v", err)
	}

	// Export shifts the layout, and the grid bounds with it, to (0,0)
	g.RoomsData()
	g.Clear()

	if got, ok := g.grid.Bounds(); !ok || got != bounds {
		t.Errorf("bounds after Clear() = %v, want %v", got, bounds)
	}
	if err := g.AddRoom(1, 1, Door); err != nil {
		t.Fatalf("AddRoom() failed: %v", err)
	}
	if _, ok := g.BlockAt(bounds.Min); !ok {
		t.Errorf("first room after Clear() should start at %s", bounds.Min)
	}
}
