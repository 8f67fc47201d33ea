// Package mesh defines the editable polygon mesh. Vertices and faces refer to
// each other only through small integer ids scoped to one mesh, and every
// mutation goes through a GeometryOperation transaction that keeps the
// vertex-to-face adjacency table, face normals and bounds consistent.
package mesh

import (
	"sort"

	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/invariant"
	"github.com/go-gl/mathgl/mgl64"
)

// GroupNone is the group id of a mesh that belongs to no group.
const GroupNone = 0

// MMesh is a polygon mesh placed in model space by an offset and rotation.
// An MMesh is not safe for concurrent mutation; readers on other goroutines
// must work on a Clone.
type MMesh struct {
	id       int
	offset   mgl64.Vec3
	rotation mgl64.Quat
	groupID  int

	vertices map[int]Vertex
	faces    map[int]Face

	// reverseTable maps a vertex id to the ids of the faces that use it.
	reverseTable map[int]map[int]struct{}

	boundsMeshSpace geom.Bounds
	bounds          geom.Bounds

	nextVertexID int
	nextFaceID   int
	opInProgress bool
}

// New builds a mesh from vertices and faces. Face normals are recalculated
// from the vertex positions. Every face must reference existing vertices.
func New(id int, offset mgl64.Vec3, rotation mgl64.Quat, vertices []Vertex, faces []Face) *MMesh {
	m := &MMesh{
		id:           id,
		offset:       offset,
		rotation:     rotation,
		vertices:     make(map[int]Vertex, len(vertices)),
		faces:        make(map[int]Face, len(faces)),
		reverseTable: make(map[int]map[int]struct{}, len(vertices)),
	}
	for _, v := range vertices {
		invariant.Check(!m.HasVertex(v.id), "mesh %d: duplicate vertex id %d", id, v.id)
		m.vertices[v.id] = v
		if v.id >= m.nextVertexID {
			m.nextVertexID = v.id + 1
		}
	}
	for _, f := range faces {
		invariant.Check(!m.HasFace(f.id), "mesh %d: duplicate face id %d", id, f.id)
		for _, vid := range f.allVertexIDs() {
			invariant.Check(m.HasVertex(vid), "mesh %d: face %d references missing vertex %d", id, f.id, vid)
		}
		m.faces[f.id] = f.withNormal(m.newellNormal(f.vertexIDs))
		m.addToReverseTable(f)
		if f.id >= m.nextFaceID {
			m.nextFaceID = f.id + 1
		}
	}
	m.recalcBounds()
	return m
}

// ID returns the mesh id.
func (m *MMesh) ID() int { return m.id }

// Offset returns the model-space position of the mesh origin.
func (m *MMesh) Offset() mgl64.Vec3 { return m.offset }

// Rotation returns the mesh orientation.
func (m *MMesh) Rotation() mgl64.Quat { return m.rotation }

// GroupID returns the group the mesh belongs to, or GroupNone.
func (m *MMesh) GroupID() int { return m.groupID }

// SetGroupID moves the mesh into a group.
func (m *MMesh) SetGroupID(groupID int) { m.groupID = groupID }

// VertexCount returns the number of vertices.
func (m *MMesh) VertexCount() int { return len(m.vertices) }

// FaceCount returns the number of faces.
func (m *MMesh) FaceCount() int { return len(m.faces) }

// Bounds returns the model-space bounding box.
func (m *MMesh) Bounds() geom.Bounds { return m.bounds }

// BoundsMeshSpace returns the bounding box before offset and rotation.
func (m *MMesh) BoundsMeshSpace() geom.Bounds { return m.boundsMeshSpace }

// SetOffset moves the mesh origin and refreshes the model-space bounds.
func (m *MMesh) SetOffset(offset mgl64.Vec3) {
	m.offset = offset
	m.recalcModelBounds()
}

// SetRotation changes the mesh rotation and refreshes the model-space bounds.
func (m *MMesh) SetRotation(rotation mgl64.Quat) {
	m.rotation = rotation.Normalize()
	m.recalcModelBounds()
}

// HasVertex reports whether the vertex id exists.
func (m *MMesh) HasVertex(id int) bool {
	_, ok := m.vertices[id]
	return ok
}

// HasFace reports whether the face id exists.
func (m *MMesh) HasFace(id int) bool {
	_, ok := m.faces[id]
	return ok
}

// GetVertex returns the vertex with the given id.
func (m *MMesh) GetVertex(id int) (Vertex, bool) {
	v, ok := m.vertices[id]
	return v, ok
}

// GetFace returns the face with the given id.
func (m *MMesh) GetFace(id int) (Face, bool) {
	f, ok := m.faces[id]
	return f, ok
}

// MustGetFace returns the face with the given id or raises a violation.
func (m *MMesh) MustGetFace(id int) Face {
	f, ok := m.faces[id]
	invariant.Check(ok, "mesh %d: no face %d", m.id, id)
	return f
}

// VertexIDs returns all vertex ids in ascending order.
func (m *MMesh) VertexIDs() []int {
	ids := make([]int, 0, len(m.vertices))
	for id := range m.vertices {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// FaceIDs returns all face ids in ascending order.
func (m *MMesh) FaceIDs() []int {
	ids := make([]int, 0, len(m.faces))
	for id := range m.faces {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Vertices returns the vertices ordered by id.
func (m *MMesh) Vertices() []Vertex {
	out := make([]Vertex, 0, len(m.vertices))
	for _, id := range m.VertexIDs() {
		out = append(out, m.vertices[id])
	}
	return out
}

// Faces returns the faces ordered by id.
func (m *MMesh) Faces() []Face {
	out := make([]Face, 0, len(m.faces))
	for _, id := range m.FaceIDs() {
		out = append(out, m.faces[id])
	}
	return out
}

// VertexLocation returns the mesh-space location of a vertex.
func (m *MMesh) VertexLocation(id int) mgl64.Vec3 {
	v, ok := m.vertices[id]
	invariant.Check(ok, "mesh %d: no vertex %d", m.id, id)
	return v.loc
}

// VertexPositionInModelCoords returns the model-space location of a vertex.
func (m *MMesh) VertexPositionInModelCoords(id int) mgl64.Vec3 {
	return m.MeshCoordsToModelCoords(m.VertexLocation(id))
}

// MeshCoordsToModelCoords applies the mesh rotation and offset.
func (m *MMesh) MeshCoordsToModelCoords(p mgl64.Vec3) mgl64.Vec3 {
	return m.rotation.Rotate(p).Add(m.offset)
}

// ModelCoordsToMeshCoords inverts MeshCoordsToModelCoords.
func (m *MMesh) ModelCoordsToMeshCoords(p mgl64.Vec3) mgl64.Vec3 {
	return m.rotation.Inverse().Rotate(p.Sub(m.offset))
}

// MeshDirectionToModel rotates a direction such as a normal into model space.
func (m *MMesh) MeshDirectionToModel(d mgl64.Vec3) mgl64.Vec3 {
	return m.rotation.Rotate(d)
}

// FaceLocations returns the mesh-space positions of a face boundary.
func (m *MMesh) FaceLocations(f Face) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(f.vertexIDs))
	for i, id := range f.vertexIDs {
		out[i] = m.VertexLocation(id)
	}
	return out
}

// FaceLocationsModelSpace returns the model-space positions of a face boundary.
func (m *MMesh) FaceLocationsModelSpace(f Face) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(f.vertexIDs))
	for i, id := range f.vertexIDs {
		out[i] = m.VertexPositionInModelCoords(id)
	}
	return out
}

// FaceNormalModelSpace returns a face normal rotated into model space.
func (m *MMesh) FaceNormalModelSpace(f Face) mgl64.Vec3 {
	return m.rotation.Rotate(f.normal)
}

// ReverseTableValue returns the ids of the faces using vertexID, ascending.
func (m *MMesh) ReverseTableValue(vertexID int) []int {
	set := m.reverseTable[vertexID]
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Clone returns a deep copy with the same id.
func (m *MMesh) Clone() *MMesh {
	return m.CloneWithID(m.id)
}

// CloneWithID returns a deep copy with a new id.
func (m *MMesh) CloneWithID(id int) *MMesh {
	invariant.Check(!m.opInProgress, "mesh %d: clone during an open operation", m.id)
	c := &MMesh{
		id:              id,
		offset:          m.offset,
		rotation:        m.rotation,
		groupID:         m.groupID,
		vertices:        make(map[int]Vertex, len(m.vertices)),
		faces:           make(map[int]Face, len(m.faces)),
		reverseTable:    make(map[int]map[int]struct{}, len(m.reverseTable)),
		boundsMeshSpace: m.boundsMeshSpace,
		bounds:          m.bounds,
		nextVertexID:    m.nextVertexID,
		nextFaceID:      m.nextFaceID,
	}
	for k, v := range m.vertices {
		c.vertices[k] = v
	}
	for k, f := range m.faces {
		c.faces[k] = f
	}
	for k, set := range m.reverseTable {
		cs := make(map[int]struct{}, len(set))
		for fid := range set {
			cs[fid] = struct{}{}
		}
		c.reverseTable[k] = cs
	}
	return c
}

// StartOperation opens a transaction on the mesh. Only one operation may be
// open at a time.
func (m *MMesh) StartOperation() *GeometryOperation {
	invariant.Check(!m.opInProgress, "mesh %d: an operation is already open", m.id)
	m.opInProgress = true
	return newGeometryOperation(m)
}

func (m *MMesh) newellNormal(ids []int) mgl64.Vec3 {
	pts := make([]mgl64.Vec3, len(ids))
	for i, id := range ids {
		pts[i] = m.vertices[id].loc
	}
	return safeNewell(pts)
}

func safeNewell(pts []mgl64.Vec3) mgl64.Vec3 {
	return geom.SafeNormalize(geom.Newell(pts))
}

func (m *MMesh) addToReverseTable(f Face) {
	for _, vid := range f.allVertexIDs() {
		set, ok := m.reverseTable[vid]
		if !ok {
			set = make(map[int]struct{})
			m.reverseTable[vid] = set
		}
		set[f.id] = struct{}{}
	}
}

func (m *MMesh) removeFromReverseTable(f Face) {
	for _, vid := range f.allVertexIDs() {
		set, ok := m.reverseTable[vid]
		if !ok {
			continue
		}
		delete(set, f.id)
		if len(set) == 0 {
			delete(m.reverseTable, vid)
		}
	}
}

func (m *MMesh) recalcBounds() {
	pts := make([]mgl64.Vec3, 0, len(m.vertices))
	for _, v := range m.vertices {
		pts = append(pts, v.loc)
	}
	m.boundsMeshSpace = geom.BoundsOf(pts)
	m.recalcModelBounds()
}

func (m *MMesh) recalcModelBounds() {
	if len(m.vertices) == 0 {
		m.bounds = geom.Bounds{Center: m.offset}
		return
	}
	pts := make([]mgl64.Vec3, 0, len(m.vertices))
	for _, v := range m.vertices {
		pts = append(pts, m.MeshCoordsToModelCoords(v.loc))
	}
	m.bounds = geom.BoundsOf(pts)
}
