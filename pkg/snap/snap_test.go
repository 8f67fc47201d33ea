package snap

import (
	"math"
	"testing"

	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

// fakeScene answers both finder and lookup queries from a fixed mesh set.
// Finder results are every mesh whose bounds come within radius, nearest
// centre first.
type fakeScene struct {
	meshes map[int]*mesh.MMesh
	order  []int
}

func newFakeScene(ms ...*mesh.MMesh) *fakeScene {
	s := &fakeScene{meshes: map[int]*mesh.MMesh{}}
	for _, m := range ms {
		s.meshes[m.ID()] = m
		s.order = append(s.order, m.ID())
	}
	return s
}

func (s *fakeScene) GetMesh(id int) (*mesh.MMesh, bool) {
	m, ok := s.meshes[id]
	return m, ok
}

func (s *fakeScene) FindMeshesClosestTo(p mgl64.Vec3, radius float64) ([]int, bool) {
	var ids []int
	for _, id := range s.order {
		if s.meshes[id].Bounds().SqrDistance(p) <= radius*radius {
			ids = append(ids, id)
		}
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && s.dist(ids[j], p) < s.dist(ids[j-1], p); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids, len(ids) > 0
}

func (s *fakeScene) dist(id int, p mgl64.Vec3) float64 {
	return s.meshes[id].Bounds().Center.Sub(p).Len()
}

func unitBox(id int, center mgl64.Vec3) *mesh.MMesh {
	return mesh.NewBox(id, center, mgl64.Vec3{1, 1, 1}, mesh.FaceProperties{})
}

func vecNear(a, b mgl64.Vec3) bool {
	return a.Sub(b).Len() < 1e-9
}

func TestDetectSnap(t *testing.T) {
	target := unitBox(1, mgl64.Vec3{})
	tests := []struct {
		name      string
		moving    *mesh.MMesh
		wantType  Type
		wantFace  [2]int
		wantStuck bool
		wantMove  mgl64.Vec3
	}{
		{
			name:     "overlapping centres",
			moving:   unitBox(2, mgl64.Vec3{0.3, 0.1, 0}),
			wantType: Mesh,
			wantMove: mgl64.Vec3{-0.3, -0.1, 0},
		},
		{
			name:     "face centre embedded in target",
			moving:   unitBox(2, mgl64.Vec3{0.7, 0, 0}),
			wantType: Mesh,
			wantMove: mgl64.Vec3{-0.7, 0, 0},
		},
		{
			// The -X face of the moving box sits 0.03 off the +X face of
			// the target, right over its centre.
			name:      "face pair sticks to centre",
			moving:    unitBox(2, mgl64.Vec3{1.03, 0, 0}),
			wantType:  Face,
			wantFace:  [2]int{4, 5},
			wantStuck: true,
			wantMove:  mgl64.Vec3{-0.03, 0, 0},
		},
		{
			name:     "face pair off centre",
			moving:   unitBox(2, mgl64.Vec3{1.03, 0.2, 0}),
			wantType: Face,
			wantFace: [2]int{4, 5},
			wantMove: mgl64.Vec3{-0.03, 0, 0},
		},
		{
			name:     "too far for a face snap",
			moving:   unitBox(2, mgl64.Vec3{1.2, 0.012, 0}),
			wantType: Universal,
			wantMove: mgl64.Vec3{0, -0.012, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene := newFakeScene(target, tt.moving)
			got := NewDetector(WorldSpace{Scale: 1}).DetectSnap(tt.moving, scene, scene)
			if got.Type != tt.wantType {
				t.Fatalf("Type = %v, want %v", got.Type, tt.wantType)
			}
			if !vecNear(got.Translation, tt.wantMove) {
				t.Errorf("Translation = %v, want %v", got.Translation, tt.wantMove)
			}
			if tt.wantType == Universal {
				return
			}
			if got.TargetMeshID != 1 {
				t.Errorf("TargetMeshID = %d", got.TargetMeshID)
			}
			if tt.wantType != Face {
				return
			}
			if got.SourceFaceID != tt.wantFace[0] || got.TargetFaceID != tt.wantFace[1] {
				t.Errorf("faces = %d -> %d, want %v", got.SourceFaceID, got.TargetFaceID, tt.wantFace)
			}
			if got.Stuck != tt.wantStuck {
				t.Errorf("Stuck = %v", got.Stuck)
			}
			if !vecNear(got.TargetNormal, mgl64.Vec3{1, 0, 0}) {
				t.Errorf("TargetNormal = %v", got.TargetNormal)
			}
			if math.Abs(got.Rotation.W) < 1-1e-9 {
				t.Errorf("flush faces should need no rotation, got %v", got.Rotation)
			}
		})
	}
}

func TestThresholdsScaleWithWorld(t *testing.T) {
	target := unitBox(1, mgl64.Vec3{})
	moving := unitBox(2, mgl64.Vec3{1.03, 0.2, 0})
	scene := newFakeScene(target, moving)

	// Zoomed out, the 0.06 separation is beyond the face threshold.
	if _, ok := NewDetector(WorldSpace{Scale: 2}).DetectRelationalSnap(moving, scene, scene); ok {
		t.Error("face snap found at scale 2")
	}
	// Zoomed in, the 0.2 offset from the face centre is within stick range.
	got, ok := NewDetector(WorldSpace{Scale: 0.2}).DetectRelationalSnap(moving, scene, scene)
	if !ok || got.Type != Face || !got.Stuck {
		t.Fatalf("scale 0.2: %+v, %v", got, ok)
	}
	if !vecNear(got.SnapPoint, mgl64.Vec3{0.5, 0, 0}) {
		t.Errorf("SnapPoint = %v, want target face centre", got.SnapPoint)
	}
}

func TestFaceSnapRotates(t *testing.T) {
	target := unitBox(1, mgl64.Vec3{})
	moving := unitBox(2, mgl64.Vec3{1.03, 0, 0})
	// Tilt the moving box slightly about Z so its -X face no longer lies
	// flush with the target.
	moving.SetRotation(mgl64.QuatRotate(mgl64.DegToRad(5), mgl64.Vec3{0, 0, 1}))
	scene := newFakeScene(target, moving)

	got, ok := NewDetector(WorldSpace{Scale: 1}).DetectRelationalSnap(moving, scene, scene)
	if !ok || got.Type != Face {
		t.Fatalf("DetectRelationalSnap = %+v, %v", got, ok)
	}
	srcNormal := moving.Rotation().Rotate(mgl64.Vec3{-1, 0, 0})
	if turned := got.Rotation.Rotate(srcNormal); !vecNear(turned, mgl64.Vec3{-1, 0, 0}) {
		t.Errorf("rotated source normal = %v, want (-1,0,0)", turned)
	}
}

func TestNoNeighbours(t *testing.T) {
	moving := unitBox(2, mgl64.Vec3{0.012, 0.5, 1.04})
	scene := newFakeScene(moving)
	d := NewDetector(WorldSpace{Scale: 1})
	if _, ok := d.DetectRelationalSnap(moving, scene, scene); ok {
		t.Fatal("relational snap found with no neighbours")
	}
	got := d.DetectSnap(moving, scene, scene)
	if got.Type != Universal || !vecNear(got.SnapPoint, mgl64.Vec3{0, 0.5, 1.05}) {
		t.Errorf("DetectSnap = %v at %v", got.Type, got.SnapPoint)
	}
}

func TestTypeString(t *testing.T) {
	for typ, want := range map[Type]string{Universal: "universal", Mesh: "mesh", Face: "face", Type(9): "unknown"} {
		if got := typ.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", typ, got, want)
		}
	}
}
