package render

import (
	"strings"
	"testing"

	"github.com/lawnchairsociety/roomgen/internal/layout"
)

func TestASCIITwoRoomsThroughDoor(t *testing.T) {
	rooms := []layout.RoomData{
		{Blocks: []layout.BlockData{
			{X: 0, Y: 0, UpSide: layout.Wall, RightSide: layout.Open, DownSide: layout.Wall, LeftSide: layout.Wall},
			{X: 1, Y: 0, UpSide: layout.Wall, RightSide: layout.Door, DownSide: layout.Wall, LeftSide: layout.Open},
		}},
		{Blocks: []layout.BlockData{
			{X: 2, Y: 0, UpSide: layout.Wall, RightSide: layout.Wall, DownSide: layout.Wall, LeftSide: layout.Door},
		}},
	}

	got := ASCII(rooms, Options{})
	want := "#-#-#-#\n" +
		"|a a+b|\n" +
		"#-#-#-#\n"
	if got != want {
		t.Errorf("ASCII() =\n%s\nwant\n%s", got, want)
	}
}

func TestASCIIEmpty(t *testing.T) {
	if got := ASCII(nil, Options{Legend: true}); got != "" {
		t.Errorf("ASCII(nil) = %q, want empty", got)
	}
}

func TestASCIIGeneratedLayout(t *testing.T) {
	g := layout.New(layout.WithSeed(4))
	if err := g.AddSolidRooms(5, 2, 6); err != nil {
		t.Fatal(err)
	}
	rooms := g.RoomsData()

	out := ASCII(rooms, Options{Legend: true})
	for i := range rooms {
		if !strings.ContainsRune(out, rune(glyphs[i])) {
			t.Errorf("room %d glyph %q missing", i, glyphs[i])
		}
	}
	if !strings.Contains(out, "+") {
		t.Error("attached rooms should show doors")
	}
	if !strings.HasSuffix(out, "a-z room\n") {
		t.Error("legend missing")
	}
}

func TestASCIIColorKeepsGlyphs(t *testing.T) {
	rooms := []layout.RoomData{{Blocks: []layout.BlockData{
		{X: 0, Y: 0, UpSide: layout.Wall, RightSide: layout.Wall, DownSide: layout.Wall, LeftSide: layout.Wall},
	}}}
	out := ASCII(rooms, Options{Color: true})
	if !strings.Contains(out, "a") {
		t.Errorf("colored output lost the room glyph: %q", out)
	}
}

func TestASCIIOffsetsNegativeCoordinates(t *testing.T) {
	shifted := []layout.RoomData{{Blocks: []layout.BlockData{
		{X: -1, Y: -3, UpSide: layout.Wall, RightSide: layout.Open, DownSide: layout.Wall, LeftSide: layout.Wall},
		{X: 0, Y: -3, UpSide: layout.Wall, RightSide: layout.Wall, DownSide: layout.Wall, LeftSide: layout.Open},
	}}}

	got := ASCII(shifted, Options{})
	want := "#-#-#\n" +
		"|a a|\n" +
		"#-#-#\n"
	if got != want {
		t.Errorf("ASCII() =\n%s\nwant\n%s", got, want)
	}
}
