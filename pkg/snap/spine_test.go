package snap

import (
	"math"
	"reflect"
	"testing"

	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/invariant"
	"github.com/chazu/polyedit/pkg/meshmath"
	"github.com/go-gl/mathgl/mgl64"
)

func TestVertebraFaceVertices(t *testing.T) {
	normals := []mgl64.Vec3{
		{0, 0, 1},
		{1, 0, 0},
		{0, 1, 0},
		{1, 1, 1},
	}
	for _, sides := range []int{3, 4, 6, 9} {
		for _, n := range normals {
			s := NewSpine(sides, 0.5)
			v := s.AddVertebra(mgl64.Vec3{1, 2, 3}, n)
			pts := v.FaceVertices()
			if len(pts) != sides {
				t.Fatalf("%d sides: got %d corners", sides, len(pts))
			}
			if got := meshmath.CalculateNormal(pts); !vecNear(got, geom.SafeNormalize(n)) {
				t.Errorf("%d sides about %v: winding normal %v", sides, n, got)
			}
			if c := geom.Centroid(pts); !vecNear(c, v.Position) {
				t.Errorf("%d sides: centroid %v", sides, c)
			}
			for i := range pts {
				side := pts[(i+1)%sides].Sub(pts[i]).Len()
				if math.Abs(side-0.5) > 1e-9 {
					t.Errorf("%d sides: side %d has length %v", sides, i, side)
				}
			}
		}
	}
}

func TestVertebraMeasurements(t *testing.T) {
	v := Vertebra{Sides: 4, SideLength: 2}
	if got := v.Radius(); math.Abs(got-math.Sqrt2) > 1e-9 {
		t.Errorf("Radius = %v", got)
	}
	if got := v.Height(); math.Abs(got-2) > 1e-9 {
		t.Errorf("Height = %v", got)
	}
}

func TestSpineFromStroke(t *testing.T) {
	path := []mgl64.Vec3{
		{0, 0, 0},
		{0, 0, 0},
		{1, 0, 0},
		{2, 0, 0},
		{2, 1, 0},
	}
	s, ok := NewSpineFromStroke(path, 4, 0.2)
	if !ok {
		t.Fatal("NewSpineFromStroke failed")
	}
	if s.Len() != 4 {
		t.Fatalf("Len = %d, want 4 after dropping the repeated point", s.Len())
	}
	vs := s.Vertebrae()
	if !vecNear(vs[0].Normal, mgl64.Vec3{1, 0, 0}) || !vecNear(vs[3].Normal, mgl64.Vec3{0, 1, 0}) {
		t.Errorf("end normals = %v, %v", vs[0].Normal, vs[3].Normal)
	}
	for i, v := range vs {
		if math.Abs(v.Up.Dot(v.Normal)) > 1e-9 || math.Abs(v.Up.Len()-1) > 1e-9 {
			t.Errorf("vertebra %d: Up %v not a unit vector across Normal %v", i, v.Up, v.Normal)
		}
	}
	// Up is carried along the straight run unchanged.
	if !vecNear(vs[0].Up, vs[1].Up) {
		t.Errorf("Up twisted on a straight run: %v -> %v", vs[0].Up, vs[1].Up)
	}

	if _, ok := NewSpineFromStroke([]mgl64.Vec3{{1, 1, 1}, {1, 1, 1}}, 4, 0.2); ok {
		t.Error("stroke with one distinct point accepted")
	}
}

func TestNearestVertebra(t *testing.T) {
	s := NewSpine(5, 1)
	if _, ok := s.NearestVertebra(mgl64.Vec3{}); ok {
		t.Error("empty spine returned a vertebra")
	}
	for i := 0; i < 4; i++ {
		s.AddVertebra(mgl64.Vec3{float64(i), 0, 0}, mgl64.Vec3{1, 0, 0})
	}
	if i, ok := s.NearestVertebra(mgl64.Vec3{2.2, 1, 0}); !ok || i != 2 {
		t.Errorf("NearestVertebra = %d, %v", i, ok)
	}
}

func TestValidRotationTargets(t *testing.T) {
	s := NewSpine(4, 1)
	s.AddVertebra(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0})
	s.AddVertebra(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{1, 1, 0})
	s.AddVertebra(mgl64.Vec3{1, 1, 0}, mgl64.Vec3{0, 1, 0})
	s.AddVertebra(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{-1, 0, 0})

	tests := []struct {
		normal   mgl64.Vec3
		maxAngle float64
		want     []int
	}{
		{mgl64.Vec3{1, 0, 0}, 60, []int{0, 1}},
		{mgl64.Vec3{0, 1, 0}, 60, []int{1, 2}},
		{mgl64.Vec3{0, 1, 0}, 100, []int{0, 1, 2, 3}},
		{mgl64.Vec3{0, 0, 1}, 45, nil},
	}
	for _, tt := range tests {
		s.MaxRotationAngle = tt.maxAngle
		if got := s.ValidRotationTargets(tt.normal); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ValidRotationTargets(%v) within %v = %v, want %v", tt.normal, tt.maxAngle, got, tt.want)
		}
	}
}

func TestSpineRejectsBadShapes(t *testing.T) {
	for _, fn := range []func(){
		func() { NewSpine(2, 1) },
		func() { NewSpine(4, 0) },
		func() { NewSpine(4, 1).AddVertebra(mgl64.Vec3{}, mgl64.Vec3{}) },
	} {
		func() {
			defer func() {
				if _, ok := recover().(*invariant.Violation); !ok {
					t.Error("expected invariant violation")
				}
			}()
			fn()
		}()
	}
}
