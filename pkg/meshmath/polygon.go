package meshmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// turn returns the signed turn at cur for a polygon wound clockwise about
// normal. Negative means a convex corner, positive a reflex one.
func turn(prev, cur, next, normal mgl64.Vec3) float64 {
	return cur.Sub(prev).Cross(next.Sub(cur)).Dot(normal)
}

// IsConvexAt reports whether corner i of a clockwise polygon is convex.
// A straight corner counts as convex.
func IsConvexAt(points []mgl64.Vec3, i int, normal mgl64.Vec3) bool {
	n := len(points)
	prev := points[(i-1+n)%n]
	next := points[(i+1)%n]
	return turn(prev, points[i], next, normal) <= Epsilon
}

// IsConvexPolygon reports whether every corner of the polygon is convex.
func IsConvexPolygon(points []mgl64.Vec3, normal mgl64.Vec3) bool {
	for i := range points {
		if !IsConvexAt(points, i, normal) {
			return false
		}
	}
	return true
}

// insideEdge reports whether p is on the interior side of the directed edge
// a->b of a clockwise polygon facing normal, within slack.
func insideEdge(a, b, p, normal mgl64.Vec3, slack float64) bool {
	inward := b.Sub(a).Cross(normal)
	return inward.Dot(p.Sub(a)) >= -slack
}

// PointInTriangle reports whether p, projected onto the triangle plane, lies
// inside the clockwise triangle abc or on its border.
func PointInTriangle(p, a, b, c, normal mgl64.Vec3) bool {
	return insideEdge(a, b, p, normal, Epsilon) &&
		insideEdge(b, c, p, normal, Epsilon) &&
		insideEdge(c, a, p, normal, Epsilon)
}

func coincident(a, b mgl64.Vec3) bool {
	return a.Sub(b).Len() < Epsilon
}

// Triangulate splits a simple clockwise polygon into triangles by ear
// clipping and returns index triples into points, each clockwise. Degenerate
// input still terminates: when no ear is found a corner is clipped anyway.
func Triangulate(points []mgl64.Vec3, normal mgl64.Vec3) [][3]int {
	n := len(points)
	if n < 3 {
		return nil
	}
	if n == 3 {
		return [][3]int{{0, 1, 2}}
	}

	remaining := make([]int, n)
	for i := range remaining {
		remaining[i] = i
	}
	tris := make([][3]int, 0, n-2)
	for len(remaining) > 3 {
		ear := findEar(points, remaining, normal)
		if ear < 0 {
			ear = 0
		}
		k := len(remaining)
		prev := remaining[(ear-1+k)%k]
		next := remaining[(ear+1)%k]
		tris = append(tris, [3]int{prev, remaining[ear], next})
		remaining = append(remaining[:ear], remaining[ear+1:]...)
	}
	return append(tris, [3]int{remaining[0], remaining[1], remaining[2]})
}

func findEar(points []mgl64.Vec3, remaining []int, normal mgl64.Vec3) int {
	k := len(remaining)
	for i := 0; i < k; i++ {
		pi, ci, ni := remaining[(i-1+k)%k], remaining[i], remaining[(i+1)%k]
		a, b, c := points[pi], points[ci], points[ni]
		if turn(a, b, c, normal) >= -Epsilon {
			continue
		}
		ear := true
		for _, j := range remaining {
			p := points[j]
			if j == pi || j == ci || j == ni || coincident(p, a) || coincident(p, b) || coincident(p, c) {
				continue
			}
			// A vertex on the border blocks the ear too, or the new diagonal
			// would run through it.
			if PointInTriangle(p, a, b, c, normal) {
				ear = false
				break
			}
		}
		if ear {
			return i
		}
	}
	return -1
}

// FindApothem returns the distance from the centre of a regular polygon to
// the middle of a side.
func FindApothem(sides int, sideLength float64) float64 {
	return sideLength / (2 * math.Tan(math.Pi/float64(sides)))
}

// FindRadiusOfARegularPolygonalFace returns the distance from the centre of
// a regular polygon to a corner.
func FindRadiusOfARegularPolygonalFace(sides int, sideLength float64) float64 {
	return sideLength / (2 * math.Sin(math.Pi/float64(sides)))
}

// FindHeightOfARegularPolygonalFace returns the extent of a regular polygon
// measured perpendicular to one side resting on the ground.
func FindHeightOfARegularPolygonalFace(sides int, sideLength float64) float64 {
	apothem := FindApothem(sides, sideLength)
	if sides%2 == 0 {
		return 2 * apothem
	}
	return apothem + FindRadiusOfARegularPolygonalFace(sides, sideLength)
}

// FindSideLength returns the side length of a regular polygon with the
// given circumradius.
func FindSideLength(sides int, radius float64) float64 {
	return 2 * radius * math.Sin(math.Pi/float64(sides))
}
