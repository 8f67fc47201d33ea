package mesh

import (
	"github.com/chazu/polyedit/pkg/invariant"
	"github.com/go-gl/mathgl/mgl64"
)

// GeometryOperation buffers vertex and face edits against one mesh and
// applies them together on Commit. Reads through GetCurrent* see the
// buffered state. An operation must stay on the goroutine that started it.
type GeometryOperation struct {
	mesh *MMesh

	vertexChanges map[int]Vertex
	vertexDeletes map[int]struct{}
	faceChanges   map[int]Face
	faceDeletes   map[int]struct{}
	changedUsers  map[int]map[int]struct{} // vertex id -> ids of changed faces using it
	nextVertexID  int
	nextFaceID    int
	closed        bool
}

func newGeometryOperation(m *MMesh) *GeometryOperation {
	return &GeometryOperation{
		mesh:          m,
		vertexChanges: make(map[int]Vertex),
		vertexDeletes: make(map[int]struct{}),
		faceChanges:   make(map[int]Face),
		faceDeletes:   make(map[int]struct{}),
		changedUsers:  make(map[int]map[int]struct{}),
		nextVertexID:  m.nextVertexID,
		nextFaceID:    m.nextFaceID,
	}
}

// Mesh returns the mesh the operation is bound to.
func (op *GeometryOperation) Mesh() *MMesh { return op.mesh }

func (op *GeometryOperation) checkOpen() {
	invariant.Check(!op.closed, "mesh %d: operation already committed or aborted", op.mesh.id)
}

// --- Vertices ---

// AddVertexMeshSpace adds a vertex at a mesh-space location.
func (op *GeometryOperation) AddVertexMeshSpace(loc mgl64.Vec3) Vertex {
	op.checkOpen()
	v := Vertex{id: op.nextVertexID, loc: loc}
	op.nextVertexID++
	op.vertexChanges[v.id] = v
	return v
}

// AddVertexModelSpace adds a vertex at a model-space location.
func (op *GeometryOperation) AddVertexModelSpace(loc mgl64.Vec3) Vertex {
	return op.AddVertexMeshSpace(op.mesh.ModelCoordsToMeshCoords(loc))
}

// ModifyVertex replaces a vertex with one of the same id.
func (op *GeometryOperation) ModifyVertex(v Vertex) {
	op.checkOpen()
	_, ok := op.GetCurrentVertex(v.id)
	invariant.Check(ok, "mesh %d: modify of missing vertex %d", op.mesh.id, v.id)
	op.vertexChanges[v.id] = v
}

// ModifyVertexMeshSpace moves a vertex to a mesh-space location.
func (op *GeometryOperation) ModifyVertexMeshSpace(id int, loc mgl64.Vec3) {
	op.ModifyVertex(Vertex{id: id, loc: loc})
}

// ModifyVertexModelSpace moves a vertex to a model-space location.
func (op *GeometryOperation) ModifyVertexModelSpace(id int, loc mgl64.Vec3) {
	op.ModifyVertex(Vertex{id: id, loc: op.mesh.ModelCoordsToMeshCoords(loc)})
}

// DeleteVertex removes a vertex. No face may reference it once the
// operation commits.
func (op *GeometryOperation) DeleteVertex(id int) {
	op.checkOpen()
	_, ok := op.GetCurrentVertex(id)
	invariant.Check(ok, "mesh %d: delete of missing vertex %d", op.mesh.id, id)
	delete(op.vertexChanges, id)
	if op.mesh.HasVertex(id) {
		op.vertexDeletes[id] = struct{}{}
	}
}

// GetCurrentVertex returns the vertex as the operation currently sees it.
func (op *GeometryOperation) GetCurrentVertex(id int) (Vertex, bool) {
	if v, ok := op.vertexChanges[id]; ok {
		return v, true
	}
	if _, deleted := op.vertexDeletes[id]; deleted {
		return Vertex{}, false
	}
	return op.mesh.GetVertex(id)
}

// GetCurrentVertexPositionMeshSpace returns the buffered location of a vertex.
func (op *GeometryOperation) GetCurrentVertexPositionMeshSpace(id int) mgl64.Vec3 {
	v, ok := op.GetCurrentVertex(id)
	invariant.Check(ok, "mesh %d: no vertex %d", op.mesh.id, id)
	return v.loc
}

// --- Faces ---

// AddFace adds a face over existing vertex ids.
func (op *GeometryOperation) AddFace(vertexIDs []int, props FaceProperties) Face {
	return op.AddFaceWithHoles(vertexIDs, nil, props)
}

// AddFaceWithHoles adds a face with interior boundaries.
func (op *GeometryOperation) AddFaceWithHoles(vertexIDs []int, holes []Hole, props FaceProperties) Face {
	op.checkOpen()
	f := NewFaceWithHoles(op.nextFaceID, vertexIDs, mgl64.Vec3{}, props, holes)
	op.nextFaceID++
	f = op.prepareFace(f)
	op.setChanged(f)
	return f
}

// ModifyFace replaces the vertex cycle and properties of an existing face.
// Holes are dropped.
func (op *GeometryOperation) ModifyFace(id int, vertexIDs []int, props FaceProperties) Face {
	return op.ModifyFaceWithHoles(id, vertexIDs, nil, props)
}

// ModifyFaceWithHoles replaces a face, holes included.
func (op *GeometryOperation) ModifyFaceWithHoles(id int, vertexIDs []int, holes []Hole, props FaceProperties) Face {
	op.checkOpen()
	_, ok := op.GetCurrentFace(id)
	invariant.Check(ok, "mesh %d: modify of missing face %d", op.mesh.id, id)
	f := op.prepareFace(NewFaceWithHoles(id, vertexIDs, mgl64.Vec3{}, props, holes))
	op.setChanged(f)
	return f
}

// DeleteFace removes a face.
func (op *GeometryOperation) DeleteFace(id int) {
	op.checkOpen()
	_, ok := op.GetCurrentFace(id)
	invariant.Check(ok, "mesh %d: delete of missing face %d", op.mesh.id, id)
	op.clearChanged(id)
	if op.mesh.HasFace(id) {
		op.faceDeletes[id] = struct{}{}
	}
}

// GetCurrentFace returns the face as the operation currently sees it.
func (op *GeometryOperation) GetCurrentFace(id int) (Face, bool) {
	if f, ok := op.faceChanges[id]; ok {
		return f, true
	}
	if _, deleted := op.faceDeletes[id]; deleted {
		return Face{}, false
	}
	return op.mesh.GetFace(id)
}

// CurrentFaceIDs returns the ids of every face in the buffered state,
// ascending.
func (op *GeometryOperation) CurrentFaceIDs() []int {
	set := make(map[int]struct{}, len(op.mesh.faces)+len(op.faceChanges))
	for id := range op.mesh.faces {
		if _, deleted := op.faceDeletes[id]; !deleted {
			set[id] = struct{}{}
		}
	}
	for id := range op.faceChanges {
		set[id] = struct{}{}
	}
	return sortedKeys(set)
}

// FacesUsingVertex returns the ids of the buffered faces that reference
// vertexID on their border or in a hole, ascending.
func (op *GeometryOperation) FacesUsingVertex(vertexID int) []int {
	set := make(map[int]struct{})
	for id := range op.mesh.reverseTable[vertexID] {
		_, changed := op.faceChanges[id]
		_, deleted := op.faceDeletes[id]
		if !changed && !deleted {
			set[id] = struct{}{}
		}
	}
	for id := range op.changedUsers[vertexID] {
		set[id] = struct{}{}
	}
	return sortedKeys(set)
}

func (op *GeometryOperation) setChanged(f Face) {
	op.clearChanged(f.id)
	op.faceChanges[f.id] = f
	for _, vid := range f.allVertexIDs() {
		users, ok := op.changedUsers[vid]
		if !ok {
			users = make(map[int]struct{})
			op.changedUsers[vid] = users
		}
		users[f.id] = struct{}{}
	}
}

func (op *GeometryOperation) clearChanged(id int) {
	old, ok := op.faceChanges[id]
	if !ok {
		return
	}
	for _, vid := range old.allVertexIDs() {
		delete(op.changedUsers[vid], id)
	}
	delete(op.faceChanges, id)
}

// prepareFace checks the face references and gives it a provisional normal
// from the buffered vertex positions.
func (op *GeometryOperation) prepareFace(f Face) Face {
	for _, vid := range f.allVertexIDs() {
		_, ok := op.GetCurrentVertex(vid)
		invariant.Check(ok, "mesh %d: face %d references missing vertex %d", op.mesh.id, f.id, vid)
	}
	pts := make([]mgl64.Vec3, len(f.vertexIDs))
	for i, vid := range f.vertexIDs {
		pts[i] = op.GetCurrentVertexPositionMeshSpace(vid)
	}
	return f.withNormal(safeNewell(pts))
}

// --- Finalizing ---

// Commit applies the buffered edits, recalculates the normal of every face
// that changed or touches a moved vertex, and refreshes the bounds.
func (op *GeometryOperation) Commit() {
	op.commit(true)
}

// CommitWithoutRecalculation applies the buffered edits and keeps existing
// normals. Use it only when the edit cannot change any face's plane.
func (op *GeometryOperation) CommitWithoutRecalculation() {
	op.commit(false)
}

// Abort discards the buffered edits and releases the mesh.
func (op *GeometryOperation) Abort() {
	op.checkOpen()
	op.closed = true
	op.mesh.opInProgress = false
}

func (op *GeometryOperation) commit(recalculate bool) {
	op.checkOpen()
	m := op.mesh

	for id := range op.faceDeletes {
		m.removeFromReverseTable(m.faces[id])
		delete(m.faces, id)
	}
	for id := range op.faceChanges {
		if old, ok := m.faces[id]; ok {
			m.removeFromReverseTable(old)
		}
	}
	for id := range op.vertexDeletes {
		delete(m.vertices, id)
	}

	moved := make(map[int]struct{})
	for id, v := range op.vertexChanges {
		if old, ok := m.vertices[id]; ok && old.loc != v.loc {
			moved[id] = struct{}{}
		}
		m.vertices[id] = v
	}
	for id, f := range op.faceChanges {
		m.faces[id] = f
		m.addToReverseTable(f)
	}

	for id, f := range op.faceChanges {
		for _, vid := range f.allVertexIDs() {
			invariant.Check(m.HasVertex(vid), "mesh %d: face %d references missing vertex %d", m.id, id, vid)
		}
	}
	for id := range op.vertexDeletes {
		if len(m.reverseTable[id]) > 0 {
			invariant.Fail("mesh %d: deleted vertex %d is still used by faces %v", m.id, id, m.ReverseTableValue(id))
		}
	}

	if recalculate {
		affected := make(map[int]struct{}, len(op.faceChanges))
		for id := range op.faceChanges {
			affected[id] = struct{}{}
		}
		for vid := range moved {
			for fid := range m.reverseTable[vid] {
				affected[fid] = struct{}{}
			}
		}
		for fid := range affected {
			f := m.faces[fid]
			m.faces[fid] = f.withNormal(m.newellNormal(f.vertexIDs))
		}
	}

	m.nextVertexID = op.nextVertexID
	m.nextFaceID = op.nextFaceID
	m.recalcBounds()

	op.closed = true
	m.opInProgress = false
}
