package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Bounds is an axis-aligned box stored as center and half-size.
type Bounds struct {
	Center  mgl64.Vec3
	Extents mgl64.Vec3
}

// NewBounds builds a box from its center and full size.
func NewBounds(center, size mgl64.Vec3) Bounds {
	return Bounds{Center: center, Extents: size.Mul(0.5)}
}

// NewBoundsMinMax builds the box spanning min and max.
func NewBoundsMinMax(min, max mgl64.Vec3) Bounds {
	return Bounds{Center: min.Add(max).Mul(0.5), Extents: max.Sub(min).Mul(0.5)}
}

// BoundsOf returns the smallest box containing every point. The zero Bounds
// is returned for an empty slice.
func BoundsOf(points []mgl64.Vec3) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	min, max := points[0], points[0]
	for _, p := range points[1:] {
		min = componentMin(min, p)
		max = componentMax(max, p)
	}
	return NewBoundsMinMax(min, max)
}

// Min returns the lowest corner.
func (b Bounds) Min() mgl64.Vec3 { return b.Center.Sub(b.Extents) }

// Max returns the highest corner.
func (b Bounds) Max() mgl64.Vec3 { return b.Center.Add(b.Extents) }

// Size returns the full edge lengths.
func (b Bounds) Size() mgl64.Vec3 { return b.Extents.Mul(2) }

// Encapsulate grows the box to include p.
func (b Bounds) Encapsulate(p mgl64.Vec3) Bounds {
	return NewBoundsMinMax(componentMin(b.Min(), p), componentMax(b.Max(), p))
}

// EncapsulateBounds grows the box to include o.
func (b Bounds) EncapsulateBounds(o Bounds) Bounds {
	return NewBoundsMinMax(componentMin(b.Min(), o.Min()), componentMax(b.Max(), o.Max()))
}

// Expand grows the full size of the box by amount on every axis.
func (b Bounds) Expand(amount float64) Bounds {
	half := amount / 2
	return Bounds{Center: b.Center, Extents: b.Extents.Add(mgl64.Vec3{half, half, half})}
}

// Intersects reports whether the boxes overlap, touching included.
func (b Bounds) Intersects(o Bounds) bool {
	bmin, bmax := b.Min(), b.Max()
	omin, omax := o.Min(), o.Max()
	for i := 0; i < 3; i++ {
		if bmax[i] < omin[i] || bmin[i] > omax[i] {
			return false
		}
	}
	return true
}

// Contains reports whether p lies inside or on the box.
func (b Bounds) Contains(p mgl64.Vec3) bool {
	bmin, bmax := b.Min(), b.Max()
	for i := 0; i < 3; i++ {
		if p[i] < bmin[i] || p[i] > bmax[i] {
			return false
		}
	}
	return true
}

// ContainsBounds reports whether o lies entirely inside b.
func (b Bounds) ContainsBounds(o Bounds) bool {
	return b.Contains(o.Min()) && b.Contains(o.Max())
}

// SqrDistance returns the squared distance from p to the box, zero inside.
func (b Bounds) SqrDistance(p mgl64.Vec3) float64 {
	bmin, bmax := b.Min(), b.Max()
	var d float64
	for i := 0; i < 3; i++ {
		if p[i] < bmin[i] {
			d += (bmin[i] - p[i]) * (bmin[i] - p[i])
		} else if p[i] > bmax[i] {
			d += (p[i] - bmax[i]) * (p[i] - bmax[i])
		}
	}
	return d
}

// Corners returns the eight corners of the box.
func (b Bounds) Corners() [8]mgl64.Vec3 {
	var out [8]mgl64.Vec3
	for i := 0; i < 8; i++ {
		sx, sy, sz := -1.0, -1.0, -1.0
		if i&1 != 0 {
			sx = 1
		}
		if i&2 != 0 {
			sy = 1
		}
		if i&4 != 0 {
			sz = 1
		}
		out[i] = b.Center.Add(mgl64.Vec3{sx * b.Extents[0], sy * b.Extents[1], sz * b.Extents[2]})
	}
	return out
}

// Transform returns the axis-aligned box around b after rotating it about
// the origin and then translating by offset.
func (b Bounds) Transform(offset mgl64.Vec3, rotation mgl64.Quat) Bounds {
	corners := b.Corners()
	pts := make([]mgl64.Vec3, 0, len(corners))
	for _, c := range corners {
		pts = append(pts, rotation.Rotate(c).Add(offset))
	}
	return BoundsOf(pts)
}

// Radius returns the length of the half-diagonal.
func (b Bounds) Radius() float64 {
	return b.Extents.Len()
}

func componentMin(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])}
}

func componentMax(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])}
}
