// Package geom holds the small value types shared by the mesh, math and
// spatial packages: planes, rays, axis-aligned bounds and Newell's normal
// sum. Vectors and rotations are mathgl's mgl64.Vec3 and mgl64.Quat.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the tolerance used for degenerate-length checks.
const Epsilon = 1e-9

// SafeNormalize returns v scaled to unit length, or the zero vector when v
// is too short to normalize.
func SafeNormalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < Epsilon {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// Newell returns the unnormalized Newell sum of a closed polygon. Its length
// is twice the polygon's area and its direction is the polygon normal for
// clockwise-from-the-front winding used by meshes in this module.
func Newell(points []mgl64.Vec3) mgl64.Vec3 {
	if len(points) < 3 {
		return mgl64.Vec3{}
	}
	var n mgl64.Vec3
	for i := range points {
		cur := points[i]
		next := points[(i+1)%len(points)]
		n[0] += (cur[1] - next[1]) * (cur[2] + next[2])
		n[1] += (cur[2] - next[2]) * (cur[0] + next[0])
		n[2] += (cur[0] - next[0]) * (cur[1] + next[1])
	}
	// Newell's sum follows the counter-clockwise right-hand rule; faces in
	// this module are wound clockwise when viewed from outside.
	return n.Mul(-1)
}

// Centroid returns the arithmetic mean of points.
func Centroid(points []mgl64.Vec3) mgl64.Vec3 {
	var c mgl64.Vec3
	if len(points) == 0 {
		return c
	}
	for _, p := range points {
		c = c.Add(p)
	}
	return c.Mul(1 / float64(len(points)))
}

// Ray is a half line.
type Ray struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
}

// NewRay returns a ray with a normalized direction.
func NewRay(origin, direction mgl64.Vec3) Ray {
	return Ray{Origin: origin, Direction: SafeNormalize(direction)}
}

// GetPoint returns the point at distance t along the ray.
func (r Ray) GetPoint(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Plane is the set of points p with dot(Normal, p) + Distance == 0.
type Plane struct {
	Normal   mgl64.Vec3
	Distance float64
}

// NewPlane builds a plane through point with the given normal.
func NewPlane(normal, point mgl64.Vec3) Plane {
	n := SafeNormalize(normal)
	return Plane{Normal: n, Distance: -n.Dot(point)}
}

// NewPlaneFromPoints builds a plane through three points, wound clockwise.
func NewPlaneFromPoints(a, b, c mgl64.Vec3) Plane {
	n := SafeNormalize(c.Sub(a).Cross(b.Sub(a)))
	return Plane{Normal: n, Distance: -n.Dot(a)}
}

// GetDistanceToPoint returns the signed distance from the plane to p.
func (p Plane) GetDistanceToPoint(pt mgl64.Vec3) float64 {
	return p.Normal.Dot(pt) + p.Distance
}

// GetSide reports whether pt is on the side the normal points to.
func (p Plane) GetSide(pt mgl64.Vec3) bool {
	return p.GetDistanceToPoint(pt) > 0
}

// ClosestPointOnPlane projects pt onto the plane.
func (p Plane) ClosestPointOnPlane(pt mgl64.Vec3) mgl64.Vec3 {
	return pt.Sub(p.Normal.Mul(p.GetDistanceToPoint(pt)))
}

// Flipped returns the plane facing the other way.
func (p Plane) Flipped() Plane {
	return Plane{Normal: p.Normal.Mul(-1), Distance: -p.Distance}
}

// Raycast intersects the ray with the plane. ok is false when the ray is
// parallel to the plane or the intersection lies behind the ray origin.
func (p Plane) Raycast(r Ray) (dist float64, ok bool) {
	denom := r.Direction.Dot(p.Normal)
	if math.Abs(denom) < Epsilon {
		return 0, false
	}
	t := -(r.Origin.Dot(p.Normal) + p.Distance) / denom
	if t < 0 {
		return t, false
	}
	return t, true
}
