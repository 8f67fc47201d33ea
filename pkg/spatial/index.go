// Package spatial indexes the meshes of a scene, with their faces, edges and
// vertices, for proximity queries. The index is maintained on a background
// goroutine while the scene is edited on another, so it can lag behind the
// scene: every query asks the MeshSource whether a mesh still exists and is
// visible, and a deletion can be announced with CondemnMesh before the index
// catches up.
package spatial

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/chazu/polyedit/pkg/meshmath"
	"github.com/go-gl/mathgl/mgl64"
)

var pkgLogger atomic.Pointer[slog.Logger]

// SetLogger sets the logger used by the package. nil restores slog.Default.
func SetLogger(l *slog.Logger) {
	pkgLogger.Store(l)
}

func logger() *slog.Logger {
	if l := pkgLogger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// MeshSource is the authority on which meshes exist. Its methods are called
// with the index lock held and must not call back into the index.
type MeshSource interface {
	HasMesh(id int) bool
	IsMeshHidden(id int) bool
}

// Index is the scene's spatial acceleration structure. Every method is safe
// for concurrent use.
type Index struct {
	source      MeshSource
	sceneBounds geom.Bounds
	backend     Backend

	// nearbyFraction and nearbyMin decide when FindMeshWithNearbyVertices
	// attributes a cluster of vertices to one mesh.
	nearbyFraction float64
	nearbyMin      int

	mu       sync.Mutex
	meshes   CollisionSystem[int]
	faces    CollisionSystem[FaceKey]
	edges    CollisionSystem[EdgeKey]
	vertices CollisionSystem[VertexKey]
	faceInfo map[FaceKey]FaceInfo
	edgeInfo map[EdgeKey]EdgeInfo
	vertexAt map[VertexKey]mgl64.Vec3
	entries  map[int]*meshEntry

	// condemnedMu guards condemned only. It is never held while taking mu.
	condemnedMu sync.Mutex
	condemned   map[int]struct{}
}

// New returns an empty index over the scene. Queries are clipped to
// sceneBounds.
func New(source MeshSource, sceneBounds geom.Bounds, backend Backend) *Index {
	idx := &Index{
		source:      source,
		sceneBounds: sceneBounds,
		backend:     backend,
		condemned:   make(map[int]struct{}),

		nearbyFraction: meshmath.NearbyVertexFraction,
		nearbyMin:      meshmath.CommonEdgeMinSharedVertices,
	}
	idx.resetLocked()
	return idx
}

func (idx *Index) resetLocked() {
	idx.meshes = newSystem[int](idx.backend)
	idx.faces = newSystem[FaceKey](idx.backend)
	idx.edges = newSystem[EdgeKey](idx.backend)
	idx.vertices = newSystem[VertexKey](idx.backend)
	idx.faceInfo = make(map[FaceKey]FaceInfo)
	idx.edgeInfo = make(map[EdgeKey]EdgeInfo)
	idx.vertexAt = make(map[VertexKey]mgl64.Vec3)
	idx.entries = make(map[int]*meshEntry)
}

// SetNearbyVertexRule changes the share of nearby vertices, and the least
// number of them, that must belong to one mesh before
// FindMeshWithNearbyVertices picks it. Call it before the index is shared.
func (idx *Index) SetNearbyVertexRule(fraction float64, minCount int) {
	idx.nearbyFraction = fraction
	idx.nearbyMin = minCount
}

// Reset empties the index and forgets every condemned mesh.
func (idx *Index) Reset() {
	idx.mu.Lock()
	idx.resetLocked()
	idx.mu.Unlock()

	idx.condemnedMu.Lock()
	idx.condemned = make(map[int]struct{})
	idx.condemnedMu.Unlock()
}

// AddMesh indexes a mesh, replacing any previous entry with the same id.
// The mesh is only read; pass a copy when the original may be edited
// concurrently.
func (idx *Index) AddMesh(mm *mesh.MMesh) {
	e := newMeshEntry(mm)

	idx.mu.Lock()
	if old, ok := idx.entries[e.id]; ok {
		idx.unloadLocked(old)
	}
	idx.loadLocked(e)
	idx.mu.Unlock()

	logger().Debug("spatial: mesh indexed", "mesh", e.id, "faces", len(e.faces), "edges", len(e.edges))
}

// UpdateMesh re-indexes a mesh whose geometry or placement changed.
func (idx *Index) UpdateMesh(mm *mesh.MMesh) {
	idx.AddMesh(mm)
}

// RemoveMesh drops a mesh from the index and clears its condemned mark.
func (idx *Index) RemoveMesh(id int) {
	idx.mu.Lock()
	e, ok := idx.entries[id]
	if ok {
		idx.unloadLocked(e)
	}
	idx.mu.Unlock()

	idx.condemnedMu.Lock()
	delete(idx.condemned, id)
	idx.condemnedMu.Unlock()

	if ok {
		logger().Debug("spatial: mesh removed", "mesh", id)
	}
}

// HasMeshIndexed reports whether the index holds an entry for the mesh,
// regardless of whether queries would return it.
func (idx *Index) HasMeshIndexed(id int) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, ok := idx.entries[id]
	return ok
}

// CondemnMesh hides a mesh from every query until RemoveMesh or Reset runs.
func (idx *Index) CondemnMesh(id int) {
	idx.condemnedMu.Lock()
	idx.condemned[id] = struct{}{}
	idx.condemnedMu.Unlock()
	logger().Debug("spatial: mesh condemned", "mesh", id)
}

// IsCondemned reports whether the mesh was condemned and not yet removed.
func (idx *Index) IsCondemned(id int) bool {
	idx.condemnedMu.Lock()
	defer idx.condemnedMu.Unlock()
	_, ok := idx.condemned[id]
	return ok
}

func (idx *Index) loadLocked(e *meshEntry) {
	idx.entries[e.id] = e
	idx.meshes.Add(e.id, e.bounds)
	for k, info := range e.faces {
		idx.faces.Add(k, info.Bounds)
		idx.faceInfo[k] = info
	}
	for k, info := range e.edges {
		idx.edges.Add(k, info.Bounds)
		idx.edgeInfo[k] = info
	}
	for k, p := range e.vertices {
		idx.vertices.Add(k, geom.Bounds{Center: p})
		idx.vertexAt[k] = p
	}
}

func (idx *Index) unloadLocked(e *meshEntry) {
	delete(idx.entries, e.id)
	idx.meshes.Remove(e.id)
	for k := range e.faces {
		idx.faces.Remove(k)
		delete(idx.faceInfo, k)
	}
	for k := range e.edges {
		idx.edges.Remove(k)
		delete(idx.edgeInfo, k)
	}
	for k := range e.vertices {
		idx.vertices.Remove(k)
		delete(idx.vertexAt, k)
	}
}

// live reports whether query results may include the mesh. Called with mu
// held.
func (idx *Index) live(meshID int) bool {
	return idx.source.HasMesh(meshID) && !idx.source.IsMeshHidden(meshID) && !idx.IsCondemned(meshID)
}

// GetFaceInfo returns the cached geometry of a face.
func (idx *Index) GetFaceInfo(k FaceKey) (FaceInfo, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	info, ok := idx.faceInfo[k]
	return info, ok
}

// GetEdgeInfo returns the cached geometry of an edge.
func (idx *Index) GetEdgeInfo(k EdgeKey) (EdgeInfo, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	info, ok := idx.edgeInfo[k]
	return info, ok
}

// GetVertexPosition returns the cached model-space position of a vertex.
func (idx *Index) GetVertexPosition(k VertexKey) (mgl64.Vec3, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	p, ok := idx.vertexAt[k]
	return p, ok
}

// GetMeshBounds returns the indexed model-space bounds of a mesh.
func (idx *Index) GetMeshBounds(id int) (geom.Bounds, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.meshes.Bounds(id)
}
