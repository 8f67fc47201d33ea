package mesh

import (
	"fmt"

	"github.com/chazu/polyedit/pkg/invariant"
	"github.com/go-gl/mathgl/mgl64"
)

// Vertex is an immutable point in mesh-local space.
type Vertex struct {
	id  int
	loc mgl64.Vec3
}

// NewVertex returns a vertex with the given id and mesh-space location.
func NewVertex(id int, loc mgl64.Vec3) Vertex {
	return Vertex{id: id, loc: loc}
}

// ID returns the vertex id, unique within its mesh.
func (v Vertex) ID() int { return v.id }

// Loc returns the mesh-space position.
func (v Vertex) Loc() mgl64.Vec3 { return v.loc }

func (v Vertex) String() string { return fmt.Sprintf("v%d%v", v.id, v.loc) }

// WithLoc returns a vertex with the same id at a new location.
func (v Vertex) WithLoc(loc mgl64.Vec3) Vertex { return Vertex{id: v.id, loc: loc} }

// FaceProperties carries the per-face render attributes.
type FaceProperties struct {
	MaterialID int `json:"materialId" yaml:"materialId"`
}

// Hole is a secondary boundary inside a face.
type Hole struct {
	vertexIDs []int
	normals   []mgl64.Vec3
}

// NewHole returns a hole. vertexIDs and normals must have the same length.
func NewHole(vertexIDs []int, normals []mgl64.Vec3) Hole {
	invariant.Check(len(vertexIDs) == len(normals),
		"hole has %d vertices but %d normals", len(vertexIDs), len(normals))
	return Hole{vertexIDs: cloneInts(vertexIDs), normals: cloneVecs(normals)}
}

// VertexIDs returns a copy of the hole cycle.
func (h Hole) VertexIDs() []int { return cloneInts(h.vertexIDs) }

// Normals returns a copy of the per-vertex normals.
func (h Hole) Normals() []mgl64.Vec3 { return cloneVecs(h.normals) }

// Len returns the number of vertices in the cycle.
func (h Hole) Len() int { return len(h.vertexIDs) }

// Face is an immutable polygon over vertex ids, wound clockwise when viewed
// from the side its normal points to.
type Face struct {
	id         int
	vertexIDs  []int
	normal     mgl64.Vec3
	properties FaceProperties
	holes      []Hole
}

// NewFace returns a face. The normal is usually recalculated by the owning
// mesh; pass the zero vector when unknown.
func NewFace(id int, vertexIDs []int, normal mgl64.Vec3, props FaceProperties) Face {
	return Face{id: id, vertexIDs: cloneInts(vertexIDs), normal: normal, properties: props}
}

// NewFaceWithHoles returns a face with interior boundaries.
func NewFaceWithHoles(id int, vertexIDs []int, normal mgl64.Vec3, props FaceProperties, holes []Hole) Face {
	f := NewFace(id, vertexIDs, normal, props)
	f.holes = append([]Hole(nil), holes...)
	return f
}

// ID returns the face id, unique within its mesh.
func (f Face) ID() int { return f.id }

// VertexIDs returns a copy of the outer cycle in winding order.
func (f Face) VertexIDs() []int { return cloneInts(f.vertexIDs) }

// Len returns the number of vertices in the outer cycle.
func (f Face) Len() int { return len(f.vertexIDs) }

// Normal returns the unit normal computed at the last commit.
func (f Face) Normal() mgl64.Vec3 { return f.normal }

// Properties returns the face properties.
func (f Face) Properties() FaceProperties { return f.properties }

// Holes returns a copy of the hole list.
func (f Face) Holes() []Hole { return append([]Hole(nil), f.holes...) }

// VertexIDAt returns the id at position i of the cycle, wrapping around.
func (f Face) VertexIDAt(i int) int {
	n := len(f.vertexIDs)
	return f.vertexIDs[((i%n)+n)%n]
}

// IndexOf returns the first cycle position of vertexID, or -1.
func (f Face) IndexOf(vertexID int) int {
	for i, id := range f.vertexIDs {
		if id == vertexID {
			return i
		}
	}
	return -1
}

// References reports whether the face boundary or any hole uses vertexID.
func (f Face) References(vertexID int) bool {
	if f.IndexOf(vertexID) >= 0 {
		return true
	}
	for _, h := range f.holes {
		for _, id := range h.vertexIDs {
			if id == vertexID {
				return true
			}
		}
	}
	return false
}

// WithProperties returns a copy of the face with props.
func (f Face) WithProperties(props FaceProperties) Face {
	c := f
	c.properties = props
	return c
}

func (f Face) withNormal(n mgl64.Vec3) Face {
	c := f
	c.normal = n
	if len(f.holes) > 0 {
		c.holes = make([]Hole, len(f.holes))
		for i, h := range f.holes {
			normals := make([]mgl64.Vec3, len(h.vertexIDs))
			for j := range normals {
				normals[j] = n
			}
			c.holes[i] = Hole{vertexIDs: h.vertexIDs, normals: normals}
		}
	}
	return c
}

func (f Face) allVertexIDs() []int {
	ids := cloneInts(f.vertexIDs)
	for _, h := range f.holes {
		ids = append(ids, h.vertexIDs...)
	}
	return ids
}

func cloneInts(s []int) []int {
	if s == nil {
		return nil
	}
	return append([]int(nil), s...)
}

func cloneVecs(s []mgl64.Vec3) []mgl64.Vec3 {
	if s == nil {
		return nil
	}
	return append([]mgl64.Vec3(nil), s...)
}
