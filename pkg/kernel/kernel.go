// Package kernel defines the solid-modeling backend that feeds imported
// geometry into the editor, and the flat triangle buffer shared by the
// kernel, the tessellator and mesh import. The editor itself never models
// with solids; a kernel is only a source of triangle soup.
package kernel

import (
	"github.com/chazu/polyedit/pkg/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Solid is an opaque handle to a backend solid.
type Solid interface {
	Bounds() geom.Bounds
}

// Kernel builds solids and converts them to triangles. Primitives are
// centred on the origin; cylinders run along Z.
type Kernel interface {
	Box(size mgl64.Vec3) Solid
	Cylinder(radius, height float64) Solid

	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	Translate(s Solid, d mgl64.Vec3) Solid
	Rotate(s Solid, q mgl64.Quat) Solid

	ToMesh(s Solid) (*Mesh, error)
}

// Orient turns a Z-aligned solid so that its Z axis points along axis.
func Orient(k Kernel, s Solid, axis mgl64.Vec3) Solid {
	if axis.Len() == 0 {
		return s
	}
	q := mgl64.QuatBetweenVectors(mgl64.Vec3{0, 0, 1}, axis.Normalize())
	if q.ApproxEqual(mgl64.QuatIdent()) {
		return s
	}
	return k.Rotate(s, q)
}
