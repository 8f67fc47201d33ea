package spatial

import (
	"math"
	"sort"

	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/chazu/polyedit/pkg/meshmath"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

const (
	// faceSizeBias and edgeLengthBias add a small penalty per unit of face
	// radius or edge length, so the smaller of two equally close elements
	// wins.
	faceSizeBias   = 0.001
	edgeLengthBias = 0.001
)

type scored[T any] struct {
	item  T
	score float64
}

func sortScored[T any](s []scored[T], less func(a, b T) bool) []T {
	sort.Slice(s, func(i, j int) bool {
		if s[i].score != s[j].score {
			return s[i].score < s[j].score
		}
		return less(s[i].item, s[j].item)
	})
	return lo.Map(s, func(x scored[T], _ int) T { return x.item })
}

func lessInt(a, b int) bool { return a < b }

func lessFace(a, b FaceKey) bool {
	if a.MeshID != b.MeshID {
		return a.MeshID < b.MeshID
	}
	return a.FaceID < b.FaceID
}

func lessEdge(a, b EdgeKey) bool {
	if a.MeshID != b.MeshID {
		return a.MeshID < b.MeshID
	}
	if a.VertexID1 != b.VertexID1 {
		return a.VertexID1 < b.VertexID1
	}
	return a.VertexID2 < b.VertexID2
}

func lessVertex(a, b VertexKey) bool {
	if a.MeshID != b.MeshID {
		return a.MeshID < b.MeshID
	}
	return a.VertexID < b.VertexID
}

func searchBox(point mgl64.Vec3, radius float64) geom.Bounds {
	d := 2 * radius
	return geom.NewBounds(point, mgl64.Vec3{d, d, d})
}

// inScene reports whether a search region reaches the scene. A zero scene
// bounds places no limit.
func (idx *Index) inScene(b geom.Bounds) bool {
	if idx.sceneBounds.Extents == (mgl64.Vec3{}) {
		return true
	}
	return idx.sceneBounds.Intersects(b)
}

// FindMeshesClosestTo returns the visible meshes whose bounds come within
// radius of point, nearest bounds centre first.
func (idx *Index) FindMeshesClosestTo(point mgl64.Vec3, radius float64) ([]int, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.meshesClosestToLocked(point, radius, false)
}

// FindNearestMeshTo returns the visible mesh whose bounds centre is nearest
// to point among those within radius.
func (idx *Index) FindNearestMeshTo(point mgl64.Vec3, radius float64) (int, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	ids, ok := idx.meshesClosestToLocked(point, radius, false)
	if !ok {
		return 0, false
	}
	return ids[0], true
}

// FindNearestMeshToNotIncludingPoint is FindNearestMeshTo restricted to
// meshes whose bounds do not contain point.
func (idx *Index) FindNearestMeshToNotIncludingPoint(point mgl64.Vec3, radius float64) (int, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	ids, ok := idx.meshesClosestToLocked(point, radius, true)
	if !ok {
		return 0, false
	}
	return ids[0], true
}

func (idx *Index) meshesClosestToLocked(point mgl64.Vec3, radius float64, excludeContaining bool) ([]int, bool) {
	box := searchBox(point, radius)
	if !idx.inScene(box) {
		return nil, false
	}
	var found []scored[int]
	for _, id := range idx.meshes.IntersectedBy(box, 0) {
		if !idx.live(id) {
			continue
		}
		b, _ := idx.meshes.Bounds(id)
		if b.SqrDistance(point) > radius*radius {
			continue
		}
		if excludeContaining && b.Contains(point) {
			continue
		}
		found = append(found, scored[int]{id, b.Center.Sub(point).Len()})
	}
	return sortScored(found, lessInt), len(found) > 0
}

// FindFacesClosestTo returns the visible faces within radius of point, best
// first. A face scores the distance combining its plane distance and its
// centre distance, plus a small penalty for its size.
func (idx *Index) FindFacesClosestTo(point mgl64.Vec3, radius float64) ([]FaceKey, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	box := searchBox(point, radius)
	if !idx.inScene(box) {
		return nil, false
	}
	var found []scored[FaceKey]
	for _, k := range idx.faces.IntersectedBy(box, 0) {
		if !idx.live(k.MeshID) {
			continue
		}
		info := idx.faceInfo[k]
		planeDist := info.Plane.GetDistanceToPoint(point)
		if math.Abs(planeDist) > radius || info.Bounds.SqrDistance(point) > radius*radius {
			continue
		}
		centerDist := info.BaryCenter.Sub(point).Len()
		score := math.Sqrt(planeDist*planeDist+centerDist*centerDist) + info.Radius*faceSizeBias
		found = append(found, scored[FaceKey]{k, score})
	}
	return sortScored(found, lessFace), len(found) > 0
}

// FindEdgesClosestTo returns the visible edges within radius of point, best
// first. An edge scores its distance from point plus a small penalty for
// its length.
func (idx *Index) FindEdgesClosestTo(point mgl64.Vec3, radius float64) ([]EdgeKey, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	box := searchBox(point, radius)
	if !idx.inScene(box) {
		return nil, false
	}
	var found []scored[EdgeKey]
	for _, k := range idx.edges.IntersectedBy(box, 0) {
		if !idx.live(k.MeshID) {
			continue
		}
		info := idx.edgeInfo[k]
		dist := edgeDistance(point, info)
		if dist > radius {
			continue
		}
		found = append(found, scored[EdgeKey]{k, dist + info.Length*edgeLengthBias})
	}
	return sortScored(found, lessEdge), len(found) > 0
}

// edgeDistance is the distance from point to the edge line where point
// projects inside the edge, and to the nearer end otherwise.
func edgeDistance(point mgl64.Vec3, info EdgeInfo) float64 {
	start, end := info.EdgeStart, info.End()
	if meshmath.InsideEdge(point, start, end) {
		return meshmath.DistanceFromEdge(point, start, end)
	}
	return math.Min(point.Sub(start).Len(), point.Sub(end).Len())
}

// FindVerticesClosestTo returns the visible vertices within radius of
// point, nearest first.
func (idx *Index) FindVerticesClosestTo(point mgl64.Vec3, radius float64) ([]VertexKey, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.verticesClosestToLocked(point, radius)
}

func (idx *Index) verticesClosestToLocked(point mgl64.Vec3, radius float64) ([]VertexKey, bool) {
	box := searchBox(point, radius)
	if !idx.inScene(box) {
		return nil, false
	}
	var found []scored[VertexKey]
	for _, k := range idx.vertices.IntersectedBy(box, 0) {
		if !idx.live(k.MeshID) {
			continue
		}
		d := idx.vertexAt[k].Sub(point).Len()
		if d > radius {
			continue
		}
		found = append(found, scored[VertexKey]{k, d})
	}
	return sortScored(found, lessVertex), len(found) > 0
}

// FindMeshWithNearbyVertices returns the mesh owning most of the vertices
// within radius of point, when one mesh clearly dominates.
func (idx *Index) FindMeshWithNearbyVertices(point mgl64.Vec3, radius float64) (int, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	keys, ok := idx.verticesClosestToLocked(point, radius)
	if !ok {
		return 0, false
	}
	owners := lo.Map(keys, func(k VertexKey, _ int) int { return k.MeshID })
	return meshmath.MultipleNearbyVerticesOnSameMeshWith(owners, idx.nearbyFraction, idx.nearbyMin)
}

// FindIntersectingMeshes returns the visible meshes whose bounds overlap
// those of mm, mm itself excluded.
func (idx *Index) FindIntersectingMeshes(mm *mesh.MMesh) ([]int, bool) {
	ids, _ := idx.FindIntersectingMeshesForBounds(mm.Bounds())
	ids = lo.Without(ids, mm.ID())
	return ids, len(ids) > 0
}

// FindIntersectingMeshesForBounds returns the visible meshes whose bounds
// overlap b, nearest bounds centre first.
func (idx *Index) FindIntersectingMeshesForBounds(b geom.Bounds) ([]int, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.inScene(b) {
		return nil, false
	}
	var found []scored[int]
	for _, id := range idx.meshes.IntersectedBy(b, 0) {
		if !idx.live(id) {
			continue
		}
		mb, _ := idx.meshes.Bounds(id)
		found = append(found, scored[int]{id, mb.Center.Sub(b.Center).Len()})
	}
	return sortScored(found, lessInt), len(found) > 0
}

// FindMeshesContainedBy returns the visible meshes lying entirely inside b,
// ascending by id.
func (idx *Index) FindMeshesContainedBy(b geom.Bounds) ([]int, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	ids := lo.Filter(idx.meshes.ContainedBy(b, 0), func(id, _ int) bool { return idx.live(id) })
	sort.Ints(ids)
	return ids, len(ids) > 0
}
