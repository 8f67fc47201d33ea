// Package sdfx implements kernel.Kernel on the github.com/deadsy/sdfx
// signed-distance library. Solids are polygonized with uniform marching
// cubes, so flat faces come out finely triangulated; mesh import welds and
// coalesces them back into polygons.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

var _ kernel.Kernel = (*Kernel)(nil)

// DefaultMeshCells is the marching cubes resolution along the longest axis.
const DefaultMeshCells = 200

type solid struct {
	s sdf.SDF3
}

func (s *solid) Bounds() geom.Bounds {
	bb := s.s.BoundingBox()
	return geom.NewBoundsMinMax(vec(bb.Min), vec(bb.Max))
}

// Kernel builds sdfx solids.
type Kernel struct {
	cells int
}

// New returns a kernel polygonizing at DefaultMeshCells.
func New() *Kernel {
	return &Kernel{cells: DefaultMeshCells}
}

// NewWithCells returns a kernel polygonizing at the given resolution.
func NewWithCells(cells int) *Kernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &Kernel{cells: cells}
}

func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*solid).s
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &solid{s: s}
}

func vec(v v3.Vec) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

func sdfVec(v mgl64.Vec3) v3.Vec {
	return v3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// Box creates a box centred on the origin. It panics on a non-positive
// size.
func (k *Kernel) Box(size mgl64.Vec3) kernel.Solid {
	s, err := sdf.Box3D(sdfVec(size), 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	return wrap(s)
}

// Cylinder creates a cylinder along Z centred on the origin. The surface
// stays smooth until ToMesh polygonizes it.
func (k *Kernel) Cylinder(radius, height float64) kernel.Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	return wrap(s)
}

// Union merges two solids.
func (k *Kernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference cuts b out of a.
func (k *Kernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Intersection keeps the volume shared by a and b.
func (k *Kernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

// Translate moves s by d.
func (k *Kernel) Translate(s kernel.Solid, d mgl64.Vec3) kernel.Solid {
	return wrap(sdf.Transform3D(unwrap(s), sdf.Translate3d(sdfVec(d))))
}

// Rotate turns a solid about the origin.
func (k *Kernel) Rotate(s kernel.Solid, q mgl64.Quat) kernel.Solid {
	q = q.Normalize()
	half := math.Sqrt(math.Max(0, 1-q.W*q.W))
	if half < 1e-12 {
		return s
	}
	angle := 2 * math.Acos(math.Max(-1, math.Min(1, q.W)))
	axis := q.V.Mul(1 / half)
	return wrap(sdf.Transform3D(unwrap(s), sdf.Rotate3d(sdfVec(axis), angle)))
}

// ToMesh polygonizes a solid into an unwelded triangle buffer with one flat
// normal per triangle.
func (k *Kernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	triangles := render.ToTriangles(unwrap(s), render.NewMarchingCubesUniform(k.cells))
	if len(triangles) == 0 {
		return nil, fmt.Errorf("sdfx: solid produced no triangles")
	}

	out := &kernel.Mesh{
		Vertices: make([]float32, 0, len(triangles)*9),
		Normals:  make([]float32, 0, len(triangles)*9),
		Indices:  make([]uint32, 0, len(triangles)*3),
	}
	for _, tri := range triangles {
		normal := vec(tri.Normal())
		var idx [3]uint32
		for j := 0; j < 3; j++ {
			idx[j] = out.AddVertex(vec(tri[j]), normal)
		}
		out.AddTriangle(idx[0], idx[1], idx[2])
	}
	return out, nil
}
