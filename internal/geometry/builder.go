package geometry

import (
	"github.com/nikoskalogridis/scenestate/internal/msg"
	"github.com/nikoskalogridis/scenestate/internal/projection"
)

const (
	// MinDrawDistance and MaxDrawDistance bound the path horizon in meters.
	MinDrawDistance = 10.0
	MaxDrawDistance = 100.0

	laneLineOffset = 0.025
	roadEdgeOffset = 0.025
	pathOffset     = 0.5

	// CameraHeight is the camera mount height; path and lead points are
	// shifted by it along Z so they sit on the road surface.
	CameraHeight = 1.22

	leadProbThreshold = 0.5
	leadHorizonRatio  = 0.35
	leadHorizonMax    = 10.0
)

// Projector maps a calibrated point onto the surface.
type Projector interface {
	Project(pt projection.Vec3) (projection.Point, bool)
}

// LeadMarker is a projected lead vehicle position.
type LeadMarker struct {
	Point   projection.Point `json:"point"`
	Prob    float64          `json:"prob"`
	Valid   bool             `json:"valid"`
	Visible bool             `json:"visible"`
}

// Result is everything Update derives from one model message besides the
// vertex buffers.
type Result struct {
	MaxDistance   float64
	LaneLineProbs [4]float64
	RoadEdgeStds  [2]float64
	Leads         [2]LeadMarker
}

// Builder projects model curves through a Projector.
type Builder struct {
	proj Projector
}

// NewBuilder returns a builder that projects with p.
func NewBuilder(p Projector) *Builder {
	return &Builder{proj: p}
}

// PathLengthIdx returns the last index whose X is below maxDistance,
// scanning forward from 0 and stopping at the first point at or past it.
// It returns 0 when even the first point is too far.
func PathLengthIdx(x []float64, maxDistance float64) int {
	maxIdx := 0
	for i := 0; i < len(x) && x[i] < maxDistance; i++ {
		maxIdx = i
	}
	return maxIdx
}

// DrawDistance is the model horizon clamped to the draw range.
func DrawDistance(position *msg.XYZT) float64 {
	return clamp(position.X[msg.TrajectorySize-1], MinDrawDistance, MaxDrawDistance)
}

// LeadHorizon shortens maxDistance to stop short of a confident lead at
// leadX. The path is drawn to twice the lead distance less 35% of that,
// with the reduction capped at 10 m.
func LeadHorizon(leadProb, leadX, maxDistance float64) float64 {
	if leadProb <= leadProbThreshold {
		return maxDistance
	}
	d := leadX * 2
	cut := d * leadHorizonRatio
	if cut > leadHorizonMax {
		cut = leadHorizonMax
	}
	return clamp(d-cut, 0, maxDistance)
}

// UpdateLine writes the ribbon around line[0..maxIdx] into buf: forward
// with Y shifted by -yOff, then back with +yOff. Points that do not project
// inside the visible margin are skipped.
func (b *Builder) UpdateLine(line *msg.XYZT, yOff, zOff float64, maxIdx int, buf *VertexBuffer) {
	buf.Reset()
	if maxIdx >= msg.TrajectorySize {
		maxIdx = msg.TrajectorySize - 1
	}
	for i := 0; i <= maxIdx; i++ {
		b.pushProjected(buf, line.X[i], line.Y[i]-yOff, line.Z[i]+zOff)
	}
	for i := maxIdx; i >= 0; i-- {
		b.pushProjected(buf, line.X[i], line.Y[i]+yOff, line.Z[i]+zOff)
	}
}

func (b *Builder) pushProjected(buf *VertexBuffer, x, y, z float64) {
	if p, ok := b.proj.Project(projection.Vec3{X: x, Y: y, Z: z}); ok {
		buf.push(p)
	}
}

// BuildLaneEdges rebuilds the lane line and road edge ribbons. All curves
// are truncated at the index where lane line 0 reaches maxDistance. Lane
// width scales with detection probability.
func (b *Builder) BuildLaneEdges(model *msg.ModelV2, maxDistance float64, arena *Arena, res *Result) {
	maxIdx := PathLengthIdx(model.LaneLines[0].X[:], maxDistance)

	for i := range model.LaneLines {
		res.LaneLineProbs[i] = model.LaneLineProbs[i]
		b.UpdateLine(&model.LaneLines[i], laneLineOffset*model.LaneLineProbs[i], 0, maxIdx, arena.Get(LaneLine(i)))
	}
	for i := range model.RoadEdges {
		res.RoadEdgeStds[i] = model.RoadEdgeStds[i]
		b.UpdateLine(&model.RoadEdges[i], roadEdgeOffset, 0, maxIdx, arena.Get(RoadEdge(i)))
	}
}

// BuildPath rebuilds the driving path ribbon, stopping short of a
// confident lead.
func (b *Builder) BuildPath(model *msg.ModelV2, maxDistance float64, arena *Arena) {
	if len(model.Leads) > 0 && len(model.Leads[0].X) > 0 {
		maxDistance = LeadHorizon(model.Leads[0].Prob, model.Leads[0].X[0], maxDistance)
	}
	maxIdx := PathLengthIdx(model.Position.X[:], maxDistance)
	b.UpdateLine(&model.Position, pathOffset, CameraHeight, maxIdx, arena.Get(Track))
}

// ProjectLeadMarkers projects up to two confident leads, placing each at
// the path height found at its forward distance.
func (b *Builder) ProjectLeadMarkers(model *msg.ModelV2) [2]LeadMarker {
	var out [2]LeadMarker
	for i := 0; i < len(out) && i < len(model.Leads); i++ {
		lead := model.Leads[i]
		out[i].Prob = lead.Prob
		if lead.Prob <= leadProbThreshold || len(lead.X) == 0 || len(lead.Y) == 0 {
			continue
		}
		x, y := lead.X[0], lead.Y[0]
		z := model.Position.Z[PathLengthIdx(model.Position.X[:], x)]
		p, ok := b.proj.Project(projection.Vec3{X: x, Y: y, Z: z + CameraHeight})
		out[i].Point = p
		out[i].Valid = true
		out[i].Visible = ok
	}
	return out
}

// Update rebuilds every buffer in arena from model.
func (b *Builder) Update(model *msg.ModelV2, arena *Arena) Result {
	var res Result
	res.MaxDistance = DrawDistance(&model.Position)
	b.BuildLaneEdges(model, res.MaxDistance, arena, &res)
	b.BuildPath(model, res.MaxDistance, arena)
	res.Leads = b.ProjectLeadMarkers(model)
	return res
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
