package meshvalidate

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/chazu/polyedit/pkg/meshfix"
	"github.com/chazu/polyedit/pkg/meshutil"
	"github.com/go-gl/mathgl/mgl64"
)

func unitBox() *mesh.MMesh {
	return mesh.NewBox(1, mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, mesh.FaceProperties{})
}

// boxWithStrayQuad adds a lone quad, vertices 8 to 11, well away from the box.
func boxWithStrayQuad() *mesh.MMesh {
	m := unitBox()
	op := m.StartOperation()
	var ids []int
	for _, p := range []mgl64.Vec3{{10, 0, 0}, {10, 0, 1}, {11, 0, 1}, {11, 0, 0}} {
		ids = append(ids, op.AddVertexMeshSpace(p).ID())
	}
	op.AddFace(ids, mesh.FaceProperties{})
	op.Commit()
	return m
}

func TestIsValidMesh(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *mesh.MMesh
		updated []int
		want    bool
	}{
		{"closed box", unitBox, nil, true},
		{"box offset and rotated", func() *mesh.MMesh {
			m := unitBox()
			m.SetOffset(mgl64.Vec3{5, -2, 3})
			m.SetRotation(mgl64.QuatRotate(0.7, mgl64.Vec3{1, 1, 0}.Normalize()))
			return m
		}, nil, true},
		{"flipped face", func() *mesh.MMesh {
			m := unitBox()
			op := m.StartOperation()
			meshutil.FlipFace(op, 1)
			op.Commit()
			return m
		}, nil, false},
		{"open box", func() *mesh.MMesh {
			m := unitBox()
			op := m.StartOperation()
			op.DeleteFace(1)
			op.Commit()
			return m
		}, []int{0, 1, 2, 3}, false},
		{"stray quad outside the update", boxWithStrayQuad, []int{0}, true},
		{"stray quad updated", boxWithStrayQuad, []int{8}, false},
		{"bent and repaired box", func() *mesh.MMesh {
			m := unitBox()
			meshfix.MoveVerticesAndMutateMeshAndFix(m, map[int]mgl64.Vec3{6: {0.8, 0.8, 0.8}}, false)
			return m
		}, []int{6}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidMesh(tt.build(), tt.updated); got != tt.want {
				t.Errorf("IsValidMesh = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExits(t *testing.T) {
	// One triangle from face 3, normal +Y.
	tris := []triangle{{
		faceID: 3,
		pts:    [3]mgl64.Vec3{{0, 0, 0}, {0, 0, 1}, {1, 0, 0}},
		normal: mgl64.Vec3{0, 1, 0},
	}}
	up, down := mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, -1, 0}
	edge := mgl64.Vec3{0.5005, -1, 0.5005}
	tests := []struct {
		name      string
		inflation float64
		ray       geom.Ray
		fromFace  int
		want      bool
	}{
		{"leaves through the front", 1.005, geom.NewRay(mgl64.Vec3{0.2, -1, 0.2}, up), 0, true},
		{"enters through the back", 1.005, geom.NewRay(mgl64.Vec3{0.2, 2, 0.2}, down), 0, false},
		{"miss outside", 1.005, geom.NewRay(mgl64.Vec3{0.8, -1, 0.8}, up), 0, false},
		{"pointing away", 1.005, geom.NewRay(mgl64.Vec3{0.2, -1, 0.2}, down), 0, false},
		{"own face ignored", 1.005, geom.NewRay(mgl64.Vec3{0.2, -1, 0.2}, up), 3, false},
		{"grown triangle catches the edge", 1.005, geom.NewRay(edge, up), 0, true},
		{"exact triangle misses the edge", 1, geom.NewRay(edge, up), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := Options{Inflation: tt.inflation}.newHitSet(tris)
			if got := hits.exits(tt.ray, tt.fromFace); got != tt.want {
				t.Errorf("exits = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExitsWithNothingToHit(t *testing.T) {
	hits := DefaultOptions().newHitSet(nil)
	if hits.exits(geom.NewRay(mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}), 0) {
		t.Error("a ray exits an empty mesh")
	}
}

func TestCustomScale(t *testing.T) {
	opts := Options{Scale: 1, Bend: 0.2, Inflation: 1.01}
	if !opts.IsValidMesh(unitBox(), nil) {
		t.Error("closed box reported invalid at unit scale")
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)

	m := unitBox()
	op := m.StartOperation()
	meshutil.FlipFace(op, 1)
	op.Commit()
	if IsValidMesh(m, nil) {
		t.Fatal("flipped box reported valid")
	}
	if !strings.Contains(buf.String(), "exposed back face") {
		t.Errorf("log output = %q", buf.String())
	}
}
