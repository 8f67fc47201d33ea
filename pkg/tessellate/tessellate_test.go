package tessellate_test

import (
	"testing"

	"github.com/chazu/polyedit/pkg/kernel"
	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/chazu/polyedit/pkg/tessellate"
	"github.com/go-gl/mathgl/mgl64"
)

// scene is a minimal MeshSource.
type scene struct {
	meshes []*mesh.MMesh
	hidden map[int]bool
}

func (s *scene) GetAllMeshes() []*mesh.MMesh { return s.meshes }
func (s *scene) IsMeshHidden(id int) bool    { return s.hidden[id] }

func makeBox(id int, offset mgl64.Vec3) *mesh.MMesh {
	m := mesh.NewBox(id, mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, mesh.FaceProperties{})
	m.SetOffset(offset)
	return m
}

// checkWinding verifies every triangle is counter-clockwise about its
// stored normal and that the normal faces away from center.
func checkWinding(t *testing.T, km *kernel.Mesh, center mgl64.Vec3) {
	t.Helper()
	for i := 0; i < km.TriangleCount(); i++ {
		tri := km.Triangle(i)
		a, b, c := km.Position(tri[0]), km.Position(tri[1]), km.Position(tri[2])
		n := km.Normal(tri[0])
		if b.Sub(a).Cross(c.Sub(a)).Dot(n) <= 0 {
			t.Errorf("triangle %d is not counter-clockwise about %v", i, n)
		}
		mid := a.Add(b).Add(c).Mul(1.0 / 3)
		if mid.Sub(center).Dot(n) <= 0 {
			t.Errorf("triangle %d normal %v points inward", i, n)
		}
	}
}

func TestSingleBox(t *testing.T) {
	km := tessellate.Tessellate(makeBox(1, mgl64.Vec3{}))
	if km.Name != "mesh-1" {
		t.Errorf("Name = %q, want %q", km.Name, "mesh-1")
	}
	if km.TriangleCount() != 12 {
		t.Errorf("TriangleCount() = %d, want 12", km.TriangleCount())
	}
	if km.VertexCount() != 36 {
		t.Errorf("VertexCount() = %d, want 36 unshared vertices", km.VertexCount())
	}
	checkWinding(t, km, mgl64.Vec3{})
}

func TestBoxInModelSpace(t *testing.T) {
	offset := mgl64.Vec3{200, 100, 50}
	m := makeBox(3, offset)
	m.SetRotation(mgl64.QuatRotate(mgl64.DegToRad(30), mgl64.Vec3{0, 1, 0}))
	km := tessellate.Tessellate(m)

	for i := 0; i < km.VertexCount(); i++ {
		if d := km.Position(i).Sub(offset).Len(); d > 0.9 {
			t.Fatalf("vertex %d is %.3f from the mesh offset", i, d)
		}
	}
	checkWinding(t, km, offset)
}

func TestConcaveFace(t *testing.T) {
	verts := []mesh.Vertex{
		mesh.NewVertex(0, mgl64.Vec3{0, 0, 0}),
		mesh.NewVertex(1, mgl64.Vec3{2, 0, 0}),
		mesh.NewVertex(2, mgl64.Vec3{2, 0, 1}),
		mesh.NewVertex(3, mgl64.Vec3{1, 0, 1}),
		mesh.NewVertex(4, mgl64.Vec3{1, 0, 2}),
		mesh.NewVertex(5, mgl64.Vec3{0, 0, 2}),
	}
	face := mesh.NewFace(0, []int{0, 1, 2, 3, 4, 5}, mgl64.Vec3{}, mesh.FaceProperties{})
	m := mesh.New(9, mgl64.Vec3{}, mgl64.QuatIdent(), verts, []mesh.Face{face})

	km := tessellate.Tessellate(m)
	if km.TriangleCount() != 4 {
		t.Fatalf("TriangleCount() = %d, want 4", km.TriangleCount())
	}
	var area float64
	for i := 0; i < km.TriangleCount(); i++ {
		tri := km.Triangle(i)
		a, b, c := km.Position(tri[0]), km.Position(tri[1]), km.Position(tri[2])
		area += b.Sub(a).Cross(c.Sub(a)).Len() / 2
	}
	if area < 3-1e-6 || area > 3+1e-6 {
		t.Errorf("triangulated area = %v, want 3", area)
	}
}

func TestTessellateModel(t *testing.T) {
	s := &scene{
		meshes: []*mesh.MMesh{
			makeBox(1, mgl64.Vec3{}),
			makeBox(2, mgl64.Vec3{3, 0, 0}),
			makeBox(4, mgl64.Vec3{6, 0, 0}),
		},
		hidden: map[int]bool{2: true},
	}
	buffers := tessellate.TessellateModel(s)
	if len(buffers) != 2 {
		t.Fatalf("got %d buffers, want 2", len(buffers))
	}
	for i, want := range []string{"mesh-1", "mesh-4"} {
		if buffers[i].Name != want {
			t.Errorf("buffer %d = %q, want %q", i, buffers[i].Name, want)
		}
		if buffers[i].IsEmpty() {
			t.Errorf("buffer %q is empty", want)
		}
	}
}

func TestNilInputs(t *testing.T) {
	if km := tessellate.Tessellate(nil); !km.IsEmpty() {
		t.Error("nil mesh produced geometry")
	}
	if got := tessellate.TessellateModel(nil); len(got) != 0 {
		t.Errorf("nil source produced %d buffers", len(got))
	}
}
