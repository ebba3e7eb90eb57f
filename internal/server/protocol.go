package server

import (
	"github.com/lawnchairsociety/roomgen/internal/config"
	"github.com/lawnchairsociety/roomgen/internal/layout"
)

// Message types
const (
	TypeGenerate = "generate"
	TypeGet      = "get"
	TypeLayout   = "layout"
	TypeError    = "error"
)

// Request is a client message
type Request struct {
	Type string `json:"type"`

	// generate
	Seed   int64                `json:"seed,omitempty"`
	Bounds *config.BoundsConfig `json:"bounds,omitempty"`
	Steps  []StepRequest        `json:"steps,omitempty"`
	Save   bool                 `json:"save,omitempty"`

	// get
	LayoutID int64 `json:"layout_id,omitempty"`
}

// StepRequest is one batch of rooms in a generate request
type StepRequest struct {
	Kind      string `json:"kind"`
	Count     int    `json:"count"`
	MinBlocks int    `json:"min_blocks"`
	MaxBlocks int    `json:"max_blocks"`
	Door      string `json:"door,omitempty"`
}

// Response is a server message
type Response struct {
	Type     string      `json:"type"`
	Seed     int64       `json:"seed,omitempty"`
	Digest   string      `json:"digest,omitempty"`
	Placed   int         `json:"placed"`
	Rooms    []RoomReply `json:"rooms,omitempty"`
	LayoutID int64       `json:"layout_id,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// RoomReply is one room of a layout response
type RoomReply struct {
	Index       int                `json:"index"`
	Partitioned bool               `json:"partitioned"`
	DoorCount   int                `json:"door_count"`
	Neighbors   []int              `json:"neighbors"`
	Blocks      []layout.BlockData `json:"blocks"`
}

func errorResponse(err error) Response {
	return Response{Type: TypeError, Error: err.Error()}
}

// configSteps converts request steps to their configuration form
func configSteps(steps []StepRequest) []config.StepConfig {
	out := make([]config.StepConfig, 0, len(steps))
	for _, s := range steps {
		out = append(out, config.StepConfig{
			Kind:      s.Kind,
			Count:     s.Count,
			MinBlocks: s.MinBlocks,
			MaxBlocks: s.MaxBlocks,
			Door:      s.Door,
		})
	}
	return out
}
