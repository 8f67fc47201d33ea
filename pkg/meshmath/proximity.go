package meshmath

import (
	"math"

	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

// AngleDegrees returns the unsigned angle between two vectors in degrees.
// Zero-length input yields 0.
func AngleDegrees(a, b mgl64.Vec3) float64 {
	la, lb := a.Len(), b.Len()
	if la < Epsilon || lb < Epsilon {
		return 0
	}
	c := a.Dot(b) / (la * lb)
	c = math.Max(-1, math.Min(1, c))
	return mgl64.RadToDeg(math.Acos(c))
}

// IsCloseToFaceInterior reports whether point lies within maxDistance of the
// face plane and, projected onto it, inside the face border but not within
// VertexExclusionDistance of a corner. faceVertices are clockwise about normal.
func IsCloseToFaceInterior(point mgl64.Vec3, faceVertices []mgl64.Vec3, normal mgl64.Vec3, maxDistance float64) bool {
	if len(faceVertices) < 3 {
		return false
	}
	plane := geom.NewPlane(normal, faceVertices[0])
	if math.Abs(plane.GetDistanceToPoint(point)) > maxDistance {
		return false
	}
	projected := plane.ClosestPointOnPlane(point)
	for _, v := range faceVertices {
		if v.Sub(projected).Len() < VertexExclusionDistance {
			return false
		}
	}
	return PointInPolygon(projected, faceVertices, normal)
}

// PointInPolygon reports whether p, assumed on the polygon plane, lies inside
// a clockwise polygon or on its border. Convex polygons use one half-space
// test per edge; concave ones fall back to the ear triangulation.
func PointInPolygon(p mgl64.Vec3, points []mgl64.Vec3, normal mgl64.Vec3) bool {
	if len(points) < 3 {
		return false
	}
	if IsConvexPolygon(points, normal) {
		for i := range points {
			if !insideEdge(points[i], points[(i+1)%len(points)], p, normal, Epsilon) {
				return false
			}
		}
		return true
	}
	for _, t := range Triangulate(points, normal) {
		if PointInTriangle(p, points[t[0]], points[t[1]], points[t[2]], normal) {
			return true
		}
	}
	return false
}

// DistanceFromEdge returns the perpendicular distance from point to the line
// through start and end. A degenerate edge measures to start.
func DistanceFromEdge(point, start, end mgl64.Vec3) float64 {
	dir := end.Sub(start)
	l := dir.Len()
	if l < Epsilon {
		return point.Sub(start).Len()
	}
	return point.Sub(start).Cross(dir).Len() / l
}

// InsideEdge reports whether point projects onto the segment start-end,
// that is, neither corner of the triangle (start, end, point) at the segment
// ends is obtuse.
func InsideEdge(point, start, end mgl64.Vec3) bool {
	return end.Sub(start).Dot(point.Sub(start)) >= 0 &&
		start.Sub(end).Dot(point.Sub(end)) >= 0
}

// CompareEdges measures edge a1-a2 against edge b1-b2. separation is the
// distance from the midpoint of a to the line of b and angle is the angle in
// degrees between the two lines, 0 for parallel. ok is false when the
// midpoint of a does not project inside b.
func CompareEdges(a1, a2, b1, b2 mgl64.Vec3) (separation, angle float64, ok bool) {
	mid := a1.Add(a2).Mul(0.5)
	if !InsideEdge(mid, b1, b2) {
		return 0, 0, false
	}
	angle = AngleDegrees(a2.Sub(a1), b2.Sub(b1))
	if angle > 90 {
		angle = 180 - angle
	}
	return DistanceFromEdge(mid, b1, b2), angle, true
}

// FaceGeometry is a face reduced to model-space points, normal and centre.
type FaceGeometry struct {
	Points []mgl64.Vec3
	Normal mgl64.Vec3
	Center mgl64.Vec3
}

// NewFaceGeometry computes normal and centre from clockwise points.
func NewFaceGeometry(points []mgl64.Vec3) FaceGeometry {
	return FaceGeometry{Points: points, Normal: CalculateNormal(points), Center: geom.Centroid(points)}
}

// FaceGeometryModelSpace returns f of m in model space.
func FaceGeometryModelSpace(m *mesh.MMesh, f mesh.Face) FaceGeometry {
	return NewFaceGeometry(m.FaceLocationsModelSpace(f))
}

// Plane returns the plane of the face.
func (g FaceGeometry) Plane() geom.Plane {
	return geom.NewPlane(g.Normal, g.Center)
}

// FaceComparison is the outcome of CompareFaces. Separation is a distance
// and Flushness the angle in degrees between the source normal and the
// reversed target normal, 0 when the faces are flush.
type FaceComparison struct {
	Separation float64
	Flushness  float64
	Comparable bool
}

// CompareFaces measures how close src is to lying flat against target. The
// pair is comparable only when a ray from the source centre along its
// normal meets the target plane.
func CompareFaces(src, target FaceGeometry) FaceComparison {
	ray := geom.NewRay(src.Center, src.Normal)
	dist, ok := target.Plane().Raycast(ray)
	if !ok {
		return FaceComparison{}
	}
	centerDist := src.Center.Sub(target.Center).Len()
	return FaceComparison{
		Separation: (dist + centerDist) / 2,
		Flushness:  AngleDegrees(src.Normal, target.Normal.Mul(-1)),
		Comparable: true,
	}
}

// FindClosestFace returns the index of the comparable candidate with the
// smallest separation, ties broken by flushness.
func FindClosestFace(src FaceGeometry, candidates []FaceGeometry) (int, FaceComparison, bool) {
	best := -1
	var bestCmp FaceComparison
	for i, c := range candidates {
		cmp := CompareFaces(src, c)
		if !cmp.Comparable {
			continue
		}
		if best < 0 || cmp.Separation < bestCmp.Separation ||
			(cmp.Separation == bestCmp.Separation && cmp.Flushness < bestCmp.Flushness) {
			best, bestCmp = i, cmp
		}
	}
	return best, bestCmp, best >= 0
}
