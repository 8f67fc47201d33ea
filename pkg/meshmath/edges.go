package meshmath

import (
	"sort"

	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/samber/lo"
)

// FindCommonEdge returns an edge shared by two faces of the same mesh, as
// the pair of vertex ids in the winding order of a. Faces sharing fewer than
// CommonEdgeMinSharedVertices ids never report an edge.
func FindCommonEdge(a, b mesh.Face) (v1, v2 int, ok bool) {
	return FindCommonEdgeWithMin(a, b, CommonEdgeMinSharedVertices)
}

// FindCommonEdgeWithMin is FindCommonEdge with an explicit shared-vertex
// minimum.
func FindCommonEdgeWithMin(a, b mesh.Face, minShared int) (v1, v2 int, ok bool) {
	aIDs, bIDs := a.VertexIDs(), b.VertexIDs()
	shared := lo.Intersect(aIDs, bIDs)
	if len(shared) < minShared || len(shared) < 2 {
		return 0, 0, false
	}
	for i := range aIDs {
		x, y := a.VertexIDAt(i), a.VertexIDAt(i+1)
		if x == y {
			continue
		}
		if adjacentInCycle(b, x, y) {
			return x, y, true
		}
	}
	return 0, 0, false
}

func adjacentInCycle(f mesh.Face, x, y int) bool {
	for i := 0; i < f.Len(); i++ {
		p, q := f.VertexIDAt(i), f.VertexIDAt(i+1)
		if (p == x && q == y) || (p == y && q == x) {
			return true
		}
	}
	return false
}

// MultipleNearbyVerticesOnSameMesh takes the owning mesh id of each vertex
// found near some point and reports the mesh owning at least
// NearbyVertexFraction of them. At least CommonEdgeMinSharedVertices
// vertices are required.
func MultipleNearbyVerticesOnSameMesh(meshIDs []int) (int, bool) {
	return MultipleNearbyVerticesOnSameMeshWith(meshIDs, NearbyVertexFraction, CommonEdgeMinSharedVertices)
}

// MultipleNearbyVerticesOnSameMeshWith is MultipleNearbyVerticesOnSameMesh
// with explicit thresholds.
func MultipleNearbyVerticesOnSameMeshWith(meshIDs []int, fraction float64, minCount int) (int, bool) {
	if len(meshIDs) < minCount || len(meshIDs) == 0 {
		return 0, false
	}
	counts := lo.CountValues(meshIDs)
	ids := lo.Keys(counts)
	sort.Ints(ids)
	for _, id := range ids {
		if float64(counts[id]) >= fraction*float64(len(meshIDs)) {
			return id, true
		}
	}
	return 0, false
}
