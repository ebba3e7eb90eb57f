// Package layoutfile reads and writes generated layouts as YAML documents.
package layoutfile

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lawnchairsociety/roomgen/internal/layout"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

var ErrInvalidDocument = errors.New("layoutfile: invalid layout document")

// Document is one generated layout
type Document struct {
	Seed        int64     `yaml:"seed"`
	GeneratedAt time.Time `yaml:"generated_at"`
	Digest      string    `yaml:"digest"`
	Rooms       []Room    `yaml:"rooms"`
}

// Room is one room of a layout, in creation order
type Room struct {
	Index       int     `yaml:"index"`
	Partitioned bool    `yaml:"partitioned"`
	DoorCount   int     `yaml:"door_count"`
	Neighbors   []int   `yaml:"neighbors,flow"`
	Blocks      []Block `yaml:"blocks"`
}

// Block is one cell with its side states by name
type Block struct {
	X     int    `yaml:"x"`
	Y     int    `yaml:"y"`
	Up    string `yaml:"up"`
	Right string `yaml:"right"`
	Down  string `yaml:"down"`
	Left  string `yaml:"left"`
}

// MarshalYAML writes each block on a single line
func (b Block) MarshalYAML() (interface{}, error) {
	type plain Block
	var node yaml.Node
	if err := node.Encode(plain(b)); err != nil {
		return nil, err
	}
	node.Style = yaml.FlowStyle
	return &node, nil
}

// FromRooms builds a document from exported rooms and stamps its digest
func FromRooms(rooms []layout.RoomView, seed int64) *Document {
	doc := &Document{
		Seed:        seed,
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
		Rooms:       make([]Room, 0, len(rooms)),
	}
	for _, r := range rooms {
		room := Room{
			Index:       r.Index,
			Partitioned: r.Partitioned,
			DoorCount:   r.DoorCount,
			Neighbors:   append([]int{}, r.Neighbors...),
			Blocks:      make([]Block, 0, len(r.Blocks)),
		}
		for _, b := range r.Blocks {
			room.Blocks = append(room.Blocks, Block{
				X:     b.X,
				Y:     b.Y,
				Up:    b.UpSide.String(),
				Right: b.RightSide.String(),
				Down:  b.DownSide.String(),
				Left:  b.LeftSide.String(),
			})
		}
		doc.Rooms = append(doc.Rooms, room)
	}
	doc.Digest = doc.ComputeDigest()
	return doc
}

// BlockCount returns the number of blocks over all rooms
func (d *Document) BlockCount() int {
	n := 0
	for _, r := range d.Rooms {
		n += len(r.Blocks)
	}
	return n
}

// RoomsData converts the document back into room records
func (d *Document) RoomsData() ([]layout.RoomData, error) {
	out := make([]layout.RoomData, 0, len(d.Rooms))
	for _, r := range d.Rooms {
		data := layout.RoomData{Blocks: make([]layout.BlockData, 0, len(r.Blocks))}
		for _, b := range r.Blocks {
			bd, err := b.data()
			if err != nil {
				return nil, fmt.Errorf("room %d: %w", r.Index, err)
			}
			data.Blocks = append(data.Blocks, bd)
		}
		out = append(out, data)
	}
	return out, nil
}

func (b Block) data() (layout.BlockData, error) {
	names := [4]string{b.Up, b.Right, b.Down, b.Left}
	var states [4]layout.SideState
	for i, name := range names {
		s, err := layout.ParseSideState(name)
		if err != nil {
			return layout.BlockData{}, fmt.Errorf("block (%d,%d): %w", b.X, b.Y, err)
		}
		states[i] = s
	}
	return layout.BlockData{
		X:         b.X,
		Y:         b.Y,
		UpSide:    states[0],
		RightSide: states[1],
		DownSide:  states[2],
		LeftSide:  states[3],
	}, nil
}

// Validate checks room indexes, side names, cell ownership and the digest. It
// also requires a normalized layout (smallest X and Y are 0), matching facing
// sides on adjacent cells, and neighbor lists equal to the rooms each room
// touches through a door.
func (d *Document) Validate() error {
	type owner struct {
		room  int
		block layout.BlockData
	}
	cells := make(map[layout.Coord]owner)
	minX, minY := 0, 0

	for i, r := range d.Rooms {
		if r.Index != i {
			return fmt.Errorf("%w: room at position %d has index %d", ErrInvalidDocument, i, r.Index)
		}
		for _, n := range r.Neighbors {
			if n < 0 || n >= len(d.Rooms) || n == i {
				return fmt.Errorf("%w: room %d has neighbor %d", ErrInvalidDocument, i, n)
			}
			if !contains(d.Rooms[n].Neighbors, i) {
				return fmt.Errorf("%w: room %d lists %d but not the reverse", ErrInvalidDocument, i, n)
			}
		}
		for _, b := range r.Blocks {
			bd, err := b.data()
			if err != nil {
				return fmt.Errorf("%w: room %d: %v", ErrInvalidDocument, i, err)
			}
			c := layout.Coord{X: b.X, Y: b.Y}
			if other, ok := cells[c]; ok {
				return fmt.Errorf("%w: cell (%d,%d) claimed by rooms %d and %d", ErrInvalidDocument, b.X, b.Y, other.room, i)
			}
			if len(cells) == 0 || b.X < minX {
				minX = b.X
			}
			if len(cells) == 0 || b.Y < minY {
				minY = b.Y
			}
			cells[c] = owner{room: i, block: bd}
		}
	}
	if len(cells) > 0 && (minX != 0 || minY != 0) {
		return fmt.Errorf("%w: layout not normalized, smallest cell is (%d,%d)", ErrInvalidDocument, minX, minY)
	}

	doorNeighbors := make([]map[int]bool, len(d.Rooms))
	for i := range doorNeighbors {
		doorNeighbors[i] = make(map[int]bool)
	}
	for c, o := range cells {
		for _, dir := range layout.AllDirections() {
			other, ok := cells[c.Step(dir)]
			if !ok {
				continue
			}
			mine, theirs := o.block.Side(dir), other.block.Side(dir.Opposite())
			if mine != theirs {
				return fmt.Errorf("%w: cell %s %s side is %s but the facing side is %s", ErrInvalidDocument, c, dir, mine, theirs)
			}
			if mine == layout.Door && o.room != other.room {
				doorNeighbors[o.room][other.room] = true
			}
		}
	}
	for i, r := range d.Rooms {
		for _, n := range r.Neighbors {
			if !doorNeighbors[i][n] {
				return fmt.Errorf("%w: rooms %d and %d are neighbors without a door", ErrInvalidDocument, i, n)
			}
		}
		for n := range doorNeighbors[i] {
			if !contains(r.Neighbors, n) {
				return fmt.Errorf("%w: rooms %d and %d share a door but are not neighbors", ErrInvalidDocument, i, n)
			}
		}
	}

	if d.Digest != "" && d.Digest != d.ComputeDigest() {
		return fmt.Errorf("%w: digest mismatch", ErrInvalidDocument)
	}
	return nil
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// ComputeDigest hashes the layout's geometry, sides and adjacency with
// BLAKE2b-256. Seed and timestamp are excluded so equal layouts hash equal.
func (d *Document) ComputeDigest() string {
	h, _ := blake2b.New256(nil)
	for _, r := range d.Rooms {
		fmt.Fprintf(h, "room %d %t\n", r.Index, r.Partitioned)
		for _, b := range r.Blocks {
			fmt.Fprintf(h, "%d %d %s %s %s %s\n", b.X, b.Y, b.Up, b.Right, b.Down, b.Left)
		}
		h.Write([]byte("neighbors"))
		for _, n := range r.Neighbors {
			h.Write([]byte(" " + strconv.Itoa(n)))
		}
		h.Write([]byte("\n"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Write encodes the document with a summary header
func Write(w io.Writer, doc *Document) error {
	fmt.Fprintf(w, "# Generated room layout\n")
	fmt.Fprintf(w, "# Rooms: %d, blocks: %d\n\n", len(doc.Rooms), doc.BlockCount())

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

// WriteFile writes the document to path, creating parent directories
func WriteFile(path string, doc *Document) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := Write(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read decodes and validates a document
func Read(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse layout YAML: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ReadFile reads a document from path
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	defer f.Close()
	return Read(f)
}
