package snap

import (
	"math"

	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/invariant"
	"github.com/chazu/polyedit/pkg/meshmath"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultMaxRotationAngle is how far, in degrees, a vertebra may be turned
// away from a requested normal and still be offered as a rotation target.
const DefaultMaxRotationAngle = 60

// Vertebra is one regular-polygon cross-section along a spine.
type Vertebra struct {
	Position   mgl64.Vec3
	Normal     mgl64.Vec3
	Up         mgl64.Vec3
	Sides      int
	SideLength float64
}

// Radius returns the distance from the centre to a corner.
func (v Vertebra) Radius() float64 {
	return meshmath.FindRadiusOfARegularPolygonalFace(v.Sides, v.SideLength)
}

// Height returns the extent of the cross-section measured from one side.
func (v Vertebra) Height() float64 {
	return meshmath.FindHeightOfARegularPolygonalFace(v.Sides, v.SideLength)
}

// FaceVertices returns the corners of the cross-section, clockwise when
// seen from the side Normal points to. The first corner lies along Up.
func (v Vertebra) FaceVertices() []mgl64.Vec3 {
	r := v.Radius()
	w := v.Normal.Cross(v.Up)
	pts := make([]mgl64.Vec3, v.Sides)
	for i := range pts {
		theta := -2 * math.Pi * float64(i) / float64(v.Sides)
		dir := v.Up.Mul(math.Cos(theta)).Add(w.Mul(math.Sin(theta)))
		pts[i] = v.Position.Add(dir.Mul(r))
	}
	return pts
}

// Spine is an ordered run of vertebrae sharing one cross-section shape.
type Spine struct {
	Sides            int
	SideLength       float64
	MaxRotationAngle float64

	vertebrae []Vertebra
}

// NewSpine returns an empty spine with a regular cross-section of the
// given number of sides.
func NewSpine(sides int, sideLength float64) *Spine {
	invariant.Check(sides >= 3, "spine needs at least 3 sides, got %d", sides)
	invariant.Check(sideLength > 0, "spine side length must be positive, got %v", sideLength)
	return &Spine{Sides: sides, SideLength: sideLength, MaxRotationAngle: DefaultMaxRotationAngle}
}

// NewSpineFromStroke places a vertebra at every distinct point of path,
// each facing along the local stroke direction. It reports false when the
// path has fewer than two distinct points.
func NewSpineFromStroke(path []mgl64.Vec3, sides int, sideLength float64) (*Spine, bool) {
	pts := make([]mgl64.Vec3, 0, len(path))
	for _, p := range path {
		if len(pts) > 0 && p.Sub(pts[len(pts)-1]).Len() < meshmath.Epsilon {
			continue
		}
		pts = append(pts, p)
	}
	if len(pts) < 2 {
		return nil, false
	}
	s := NewSpine(sides, sideLength)
	for i, p := range pts {
		prev, next := pts[max(i-1, 0)], pts[min(i+1, len(pts)-1)]
		s.AddVertebra(p, next.Sub(prev))
	}
	return s, true
}

// AddVertebra appends a cross-section at position facing normal. Its Up
// is the previous Up carried through the change of normal, so the polygon
// does not twist along the stroke.
func (s *Spine) AddVertebra(position, normal mgl64.Vec3) Vertebra {
	n := geom.SafeNormalize(normal)
	invariant.Check(n.Len() > 0, "vertebra normal must be non-zero")
	var up mgl64.Vec3
	if len(s.vertebrae) == 0 {
		up = perpendicular(n)
	} else {
		last := s.vertebrae[len(s.vertebrae)-1]
		up = mgl64.QuatBetweenVectors(last.Normal, n).Rotate(last.Up)
		up = geom.SafeNormalize(up.Sub(n.Mul(up.Dot(n))))
		if up.Len() == 0 {
			up = perpendicular(n)
		}
	}
	v := Vertebra{Position: position, Normal: n, Up: up, Sides: s.Sides, SideLength: s.SideLength}
	s.vertebrae = append(s.vertebrae, v)
	return v
}

// perpendicular picks a unit vector at right angles to n, preferring the
// world up axis.
func perpendicular(n mgl64.Vec3) mgl64.Vec3 {
	ref := mgl64.Vec3{0, 1, 0}
	if math.Abs(n.Dot(ref)) > 0.99 {
		ref = mgl64.Vec3{1, 0, 0}
	}
	return geom.SafeNormalize(ref.Sub(n.Mul(ref.Dot(n))))
}

// Vertebrae returns a copy of the vertebrae in stroke order.
func (s *Spine) Vertebrae() []Vertebra {
	return append([]Vertebra(nil), s.vertebrae...)
}

// Len returns the number of vertebrae.
func (s *Spine) Len() int { return len(s.vertebrae) }

// NearestVertebra returns the index of the vertebra whose centre is closest
// to point, or false for an empty spine.
func (s *Spine) NearestVertebra(point mgl64.Vec3) (int, bool) {
	best, bestDist := -1, math.Inf(1)
	for i, v := range s.vertebrae {
		diff := v.Position.Sub(point)
		if d := diff.Dot(diff); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

// ValidRotationTargets returns, in stroke order, the vertebrae whose face
// normal is within MaxRotationAngle of normal.
func (s *Spine) ValidRotationTargets(normal mgl64.Vec3) []int {
	var out []int
	for i, v := range s.vertebrae {
		if meshmath.AngleDegrees(v.Normal, normal) <= s.MaxRotationAngle {
			out = append(out, i)
		}
	}
	return out
}
