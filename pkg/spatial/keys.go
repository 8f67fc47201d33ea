package spatial

import (
	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/chazu/polyedit/pkg/meshmath"
	"github.com/go-gl/mathgl/mgl64"
)

// FaceKey identifies a face in the scene.
type FaceKey struct {
	MeshID int
	FaceID int
}

// EdgeKey identifies an undirected edge. Build it with NewEdgeKey so the
// two vertex ids are in canonical order.
type EdgeKey struct {
	MeshID    int
	VertexID1 int
	VertexID2 int
}

// NewEdgeKey orders the vertex ids so that both directions of an edge map
// to the same key.
func NewEdgeKey(meshID, v1, v2 int) EdgeKey {
	if v2 < v1 {
		v1, v2 = v2, v1
	}
	return EdgeKey{MeshID: meshID, VertexID1: v1, VertexID2: v2}
}

// VertexKey identifies a vertex in the scene.
type VertexKey struct {
	MeshID   int
	VertexID int
}

// FaceInfo caches the model-space geometry of a face.
type FaceInfo struct {
	Bounds     geom.Bounds
	Plane      geom.Plane
	BaryCenter mgl64.Vec3
	// Border is the outer boundary, clockwise from outside.
	Border []mgl64.Vec3
	// Radius is the largest distance from BaryCenter to a border point.
	Radius float64
}

// EdgeInfo caches the model-space geometry of an edge.
type EdgeInfo struct {
	Bounds     geom.Bounds
	Length     float64
	EdgeStart  mgl64.Vec3
	EdgeVector mgl64.Vec3
}

// End returns the far end of the edge.
func (e EdgeInfo) End() mgl64.Vec3 { return e.EdgeStart.Add(e.EdgeVector) }

func newFaceInfo(border []mgl64.Vec3) FaceInfo {
	center := geom.Centroid(border)
	var radius float64
	for _, p := range border {
		if d := p.Sub(center).Len(); d > radius {
			radius = d
		}
	}
	return FaceInfo{
		Bounds:     geom.BoundsOf(border),
		Plane:      geom.NewPlane(meshmath.CalculateNormal(border), center),
		BaryCenter: center,
		Border:     border,
		Radius:     radius,
	}
}

func newEdgeInfo(start, end mgl64.Vec3) EdgeInfo {
	v := end.Sub(start)
	return EdgeInfo{
		Bounds:     geom.BoundsOf([]mgl64.Vec3{start, end}),
		Length:     v.Len(),
		EdgeStart:  start,
		EdgeVector: v,
	}
}

// meshEntry is everything the index stores for one mesh, computed without
// holding the index lock.
type meshEntry struct {
	id       int
	bounds   geom.Bounds
	faces    map[FaceKey]FaceInfo
	edges    map[EdgeKey]EdgeInfo
	vertices map[VertexKey]mgl64.Vec3
}

func newMeshEntry(mm *mesh.MMesh) *meshEntry {
	e := &meshEntry{
		id:       mm.ID(),
		bounds:   mm.Bounds(),
		faces:    make(map[FaceKey]FaceInfo, mm.FaceCount()),
		edges:    make(map[EdgeKey]EdgeInfo),
		vertices: make(map[VertexKey]mgl64.Vec3, mm.VertexCount()),
	}
	for _, v := range mm.Vertices() {
		e.vertices[VertexKey{MeshID: e.id, VertexID: v.ID()}] = mm.VertexPositionInModelCoords(v.ID())
	}
	for _, f := range mm.Faces() {
		if f.Len() < 3 {
			continue
		}
		e.faces[FaceKey{MeshID: e.id, FaceID: f.ID()}] = newFaceInfo(mm.FaceLocationsModelSpace(f))
		e.addCycle(f.VertexIDs())
		for _, h := range f.Holes() {
			e.addCycle(h.VertexIDs())
		}
	}
	return e
}

func (e *meshEntry) addCycle(ids []int) {
	for i, a := range ids {
		b := ids[(i+1)%len(ids)]
		if a == b {
			continue
		}
		key := NewEdgeKey(e.id, a, b)
		if _, seen := e.edges[key]; seen {
			continue
		}
		start := e.vertices[VertexKey{MeshID: e.id, VertexID: key.VertexID1}]
		end := e.vertices[VertexKey{MeshID: e.id, VertexID: key.VertexID2}]
		e.edges[key] = newEdgeInfo(start, end)
	}
}
