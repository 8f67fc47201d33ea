// Package meshmath holds the stateless geometry used by the editing tools:
// face normals, coplanarity, point-in-face and edge proximity tests, face
// comparison, regular polygon measurements and ear-clipping triangulation.
package meshmath

import (
	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// MergeDistance is how close two vertices must be to be joined.
	MergeDistance = 0.0005
	// MaxCoplanarDistance is how far a vertex may sit from a face plane
	// before the face counts as non-coplanar.
	MaxCoplanarDistance = 0.001
	// Epsilon is the length below which a vector counts as degenerate.
	Epsilon = 1e-6
	// VertexExclusionDistance keeps points near a corner out of the face
	// interior so a corner hit reads as a vertex, not a face.
	VertexExclusionDistance = 0.005
	// CommonEdgeMinSharedVertices is how many vertex ids two faces must share
	// before FindCommonEdge looks for an edge.
	CommonEdgeMinSharedVertices = 2
	// NearbyVertexFraction is the share of nearby vertices that must belong to
	// one mesh for MultipleNearbyVerticesOnSameMesh to pick it.
	NearbyVertexFraction = 0.75
)

// CalculateNormal returns the unit Newell normal of a polygon given in
// clockwise order, or the zero vector for a degenerate polygon.
func CalculateNormal(points []mgl64.Vec3) mgl64.Vec3 {
	return geom.SafeNormalize(geom.Newell(points))
}

// CalculateNormalFromVertices is CalculateNormal over vertex values.
func CalculateNormalFromVertices(vs []mesh.Vertex) mgl64.Vec3 {
	pts := make([]mgl64.Vec3, len(vs))
	for i, v := range vs {
		pts[i] = v.Loc()
	}
	return CalculateNormal(pts)
}

// CalculateMeshNormal returns the mesh-space normal of the polygon formed by
// vertexIDs of m.
func CalculateMeshNormal(m *mesh.MMesh, vertexIDs []int) mgl64.Vec3 {
	pts := make([]mgl64.Vec3, len(vertexIDs))
	for i, id := range vertexIDs {
		pts[i] = m.VertexLocation(id)
	}
	return CalculateNormal(pts)
}

// CalculateFaceNormal recomputes the mesh-space normal of f from the current
// vertex positions of m.
func CalculateFaceNormal(m *mesh.MMesh, f mesh.Face) mgl64.Vec3 {
	return CalculateNormal(m.FaceLocations(f))
}

// CalculateOperationNormal is CalculateMeshNormal over the buffered state of
// an open operation.
func CalculateOperationNormal(op *mesh.GeometryOperation, vertexIDs []int) mgl64.Vec3 {
	return CalculateNormal(OperationLocations(op, vertexIDs))
}

// OperationLocations returns the buffered mesh-space positions of vertexIDs.
func OperationLocations(op *mesh.GeometryOperation, vertexIDs []int) []mgl64.Vec3 {
	pts := make([]mgl64.Vec3, len(vertexIDs))
	for i, id := range vertexIDs {
		pts[i] = op.GetCurrentVertexPositionMeshSpace(id)
	}
	return pts
}

// IsCoplanar reports whether every point lies within tolerance of the plane
// through the first three non-colinear points. Colinear or too-short point
// lists count as coplanar.
func IsCoplanar(points []mgl64.Vec3, tolerance float64) bool {
	plane, ok := firstPlane(points)
	if !ok {
		return true
	}
	for _, p := range points {
		d := plane.GetDistanceToPoint(p)
		if d > tolerance || d < -tolerance {
			return false
		}
	}
	return true
}

// AreVerticesCoplanar is IsCoplanar over vertex ids of m using
// MaxCoplanarDistance.
func AreVerticesCoplanar(m *mesh.MMesh, vertexIDs []int) bool {
	pts := make([]mgl64.Vec3, len(vertexIDs))
	for i, id := range vertexIDs {
		pts[i] = m.VertexLocation(id)
	}
	return IsCoplanar(pts, MaxCoplanarDistance)
}

// firstPlane finds the plane through the first three points that are not
// on one line, scanning in cycle order.
func firstPlane(points []mgl64.Vec3) (geom.Plane, bool) {
	if len(points) < 3 {
		return geom.Plane{}, false
	}
	a := points[0]
	for i := 1; i < len(points); i++ {
		if points[i].Sub(a).Len() < Epsilon {
			continue
		}
		for j := i + 1; j < len(points); j++ {
			n := points[j].Sub(a).Cross(points[i].Sub(a))
			if n.Len() > Epsilon {
				return geom.NewPlaneFromPoints(a, points[i], points[j]), true
			}
		}
		break
	}
	return geom.Plane{}, false
}
