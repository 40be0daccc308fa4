// Package geometry turns model curves into display-space polygon outlines
// and lead markers.
package geometry

import (
	"github.com/nikoskalogridis/scenestate/internal/msg"
	"github.com/nikoskalogridis/scenestate/internal/projection"
)

// MaxVertices bounds every vertex buffer: one forward and one return pass
// over a full trajectory.
const MaxVertices = 2 * msg.TrajectorySize

// BufferID is a stable index into an Arena.
type BufferID int

const (
	LaneLine0 BufferID = iota
	LaneLine1
	LaneLine2
	LaneLine3
	RoadEdge0
	RoadEdge1
	Track

	NumBuffers
)

// LaneLine returns the buffer ID of lane line i (0-3).
func LaneLine(i int) BufferID { return LaneLine0 + BufferID(i) }

// RoadEdge returns the buffer ID of road edge i (0-1).
func RoadEdge(i int) BufferID { return RoadEdge0 + BufferID(i) }

func (id BufferID) String() string {
	switch {
	case id >= LaneLine0 && id <= LaneLine3:
		return "lane_line_" + string(rune('0'+int(id-LaneLine0)))
	case id == RoadEdge0 || id == RoadEdge1:
		return "road_edge_" + string(rune('0'+int(id-RoadEdge0)))
	case id == Track:
		return "track"
	default:
		return "unknown"
	}
}

// VertexBuffer is a closed polygon outline. Only V[:Cnt] is meaningful.
type VertexBuffer struct {
	V   [MaxVertices]projection.Point
	Cnt int
}

// Points returns the populated vertices.
func (b *VertexBuffer) Points() []projection.Point { return b.V[:b.Cnt] }

// Reset empties the buffer.
func (b *VertexBuffer) Reset() { b.Cnt = 0 }

func (b *VertexBuffer) push(p projection.Point) {
	if b.Cnt < len(b.V) {
		b.V[b.Cnt] = p
		b.Cnt++
	}
}

// Arena owns one buffer per curve kind. It is a plain value: copying an
// Arena copies every vertex.
type Arena struct {
	Buffers [NumBuffers]VertexBuffer
}

// Get returns the buffer for id, or nil if id is out of range.
func (a *Arena) Get(id BufferID) *VertexBuffer {
	if id < 0 || id >= NumBuffers {
		return nil
	}
	return &a.Buffers[id]
}
