package kernel

import (
	"testing"

	"github.com/chazu/polyedit/pkg/geom"
	"github.com/go-gl/mathgl/mgl64"
)

func TestMeshCounts(t *testing.T) {
	tests := []struct {
		name      string
		mesh      Mesh
		vertices  int
		triangles int
		empty     bool
	}{
		{"empty", Mesh{}, 0, 0, true},
		{"one vertex", Mesh{Vertices: []float32{1, 2, 3}}, 1, 0, false},
		{"quad", Mesh{
			Vertices: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
			Indices:  []uint32{0, 1, 2, 2, 3, 0},
		}, 4, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mesh.VertexCount(); got != tt.vertices {
				t.Errorf("VertexCount() = %d, want %d", got, tt.vertices)
			}
			if got := tt.mesh.TriangleCount(); got != tt.triangles {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.triangles)
			}
			if got := tt.mesh.IsEmpty(); got != tt.empty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.empty)
			}
		})
	}
}

func TestMeshBuilders(t *testing.T) {
	var m Mesh
	up := mgl64.Vec3{0, 0, 1}
	a := m.AddVertex(mgl64.Vec3{0, 0, 0}, up)
	b := m.AddVertex(mgl64.Vec3{1, 0, 0}, up)
	c := m.AddVertex(mgl64.Vec3{0, 1, 0}, up)
	m.AddTriangle(a, b, c)

	if m.VertexCount() != 3 || m.TriangleCount() != 1 {
		t.Fatalf("got %d vertices, %d triangles", m.VertexCount(), m.TriangleCount())
	}
	if got := m.Triangle(0); got != [3]int{0, 1, 2} {
		t.Errorf("Triangle(0) = %v", got)
	}
	if got := m.Position(1); got != (mgl64.Vec3{1, 0, 0}) {
		t.Errorf("Position(1) = %v", got)
	}
	if got := m.Normal(2); got != up {
		t.Errorf("Normal(2) = %v", got)
	}
}

// stubSolid and stubKernel track bounds only, enough to check Orient.
type stubSolid struct {
	bounds geom.Bounds
	turns  int
}

func (s *stubSolid) Bounds() geom.Bounds { return s.bounds }

type stubKernel struct{}

func (k *stubKernel) Box(size mgl64.Vec3) Solid {
	return &stubSolid{bounds: geom.NewBounds(mgl64.Vec3{}, size)}
}

func (k *stubKernel) Cylinder(radius, height float64) Solid {
	return k.Box(mgl64.Vec3{2 * radius, 2 * radius, height})
}

func (k *stubKernel) Union(a, _ Solid) Solid        { return a }
func (k *stubKernel) Difference(a, _ Solid) Solid   { return a }
func (k *stubKernel) Intersection(a, _ Solid) Solid { return a }

func (k *stubKernel) Translate(s Solid, d mgl64.Vec3) Solid {
	b := s.Bounds()
	return &stubSolid{bounds: geom.Bounds{Center: b.Center.Add(d), Extents: b.Extents}}
}

// Rotate swaps extents for quarter turns about X or Y and counts the call.
func (k *stubKernel) Rotate(s Solid, q mgl64.Quat) Solid {
	b := s.Bounds()
	e := q.Rotate(b.Extents)
	out := &stubSolid{bounds: geom.Bounds{Center: q.Rotate(b.Center), Extents: mgl64.Vec3{abs(e[0]), abs(e[1]), abs(e[2])}}}
	out.turns = s.(*stubSolid).turns + 1
	return out
}

func (k *stubKernel) ToMesh(_ Solid) (*Mesh, error) {
	return &Mesh{}, nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

var _ Kernel = (*stubKernel)(nil)

func TestOrient(t *testing.T) {
	k := &stubKernel{}
	tests := []struct {
		name    string
		axis    mgl64.Vec3
		extents mgl64.Vec3
		turns   int
	}{
		{"z is unchanged", mgl64.Vec3{0, 0, 1}, mgl64.Vec3{1, 1, 3}, 0},
		{"zero axis is unchanged", mgl64.Vec3{}, mgl64.Vec3{1, 1, 3}, 0},
		{"x", mgl64.Vec3{2, 0, 0}, mgl64.Vec3{3, 1, 1}, 1},
		{"y", mgl64.Vec3{0, 1, 0}, mgl64.Vec3{1, 3, 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Orient(k, k.Cylinder(1, 6), tt.axis).(*stubSolid)
			if s.turns != tt.turns {
				t.Errorf("rotations = %d, want %d", s.turns, tt.turns)
			}
			if s.bounds.Extents.Sub(tt.extents).Len() > 1e-9 {
				t.Errorf("extents = %v, want %v", s.bounds.Extents, tt.extents)
			}
		})
	}
}
