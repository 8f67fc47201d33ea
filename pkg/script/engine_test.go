package script

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chazu/polyedit/pkg/invariant"
	"github.com/chazu/polyedit/pkg/kernel/sdfx"
	"github.com/chazu/polyedit/pkg/model"
	"github.com/chazu/polyedit/pkg/spatial"
	"github.com/go-gl/mathgl/mgl64"
)

func newModel(batch time.Duration) *model.Model {
	opts := model.DefaultOptions()
	opts.BatchFrequency = batch
	return model.New(opts)
}

func evaluate(t *testing.T, eng *Engine, m *model.Model, source string) *Result {
	t.Helper()
	res, err := eng.Evaluate(context.Background(), source, m)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(res.Errors) > 0 {
		t.Fatalf("eval errors: %v", res.Errors)
	}
	return res
}

func vecNear(a, b mgl64.Vec3) bool {
	return a.Sub(b).Len() < 1e-9
}

func TestEvaluateEmptySource(t *testing.T) {
	eng := NewEngine(Options{})
	for _, src := range []string{"", "   \n\t  \n  "} {
		res := evaluate(t, eng, newModel(0), src)
		if res.Applied != 0 || res.Value != "" {
			t.Errorf("Evaluate(%q) = %+v", src, res)
		}
	}
}

func TestEvaluateArithmetic(t *testing.T) {
	eng := NewEngine(Options{})
	source := `
(def x 10)
(def y 20)
(+ x y)
`
	// Each run gets a fresh sandbox, so the result never drifts.
	for i := 0; i < 3; i++ {
		res := evaluate(t, eng, newModel(0), source)
		if res.Value != "30" {
			t.Errorf("iteration %d: Value = %q, want 30", i, res.Value)
		}
	}
}

func TestEvaluateUserErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"unbalanced paren", "(+ 1 2", ""},
		{"undefined symbol", "(+ 1 undefined-symbol)", ""},
		{"missing mesh", "(move 99 1 0 0)", "no mesh 99"},
		{"bad size", "(box 1 0)", "size must be positive"},
		{"short vector", "(vec3 1 2)", "expected 3 arguments"},
		{"duplicate id", "(box 3 1)\n(box 3 1)", "mesh 3 already exists"},
		{"no index for snap", "(box 1 1)\n(snap 1)", "no spatial index"},
		{"missing face", "(box 1 1)\n(material 1 99 2)", "no face 99"},
		{"missing vertex", "(box 1 1)\n(move-vertex 1 42 (vec3 0 0 0))", "no vertex 42"},
		{"outside scene", "(box :size 1 :at (vec3 80 0 0))", "does not fit"},
	}
	eng := NewEngine(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := eng.Evaluate(context.Background(), tt.source, newModel(0))
			if err != nil {
				t.Fatalf("expected a non-fatal error, got fatal: %v", err)
			}
			if len(res.Errors) == 0 {
				t.Fatal("expected an eval error")
			}
			msg := res.Errors[0].Message
			if msg == "" {
				t.Error("empty error message")
			}
			if tt.want != "" && !strings.Contains(msg, tt.want) {
				t.Errorf("error %q does not mention %q", msg, tt.want)
			}
		})
	}
}

func TestEvalErrorString(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	if s := e.Error(); !strings.Contains(s, "line 5") || !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() = %q", s)
	}
	e = EvalError{Message: "no location"}
	if s := e.Error(); strings.Contains(s, "line") {
		t.Errorf("Error() without a line = %q", s)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"Error on line 3: unexpected token", 3, "unexpected token"},
		{"line 7: bad thing", 7, "bad thing"},
		{"  something else  ", 0, "something else"},
	}
	for _, tt := range tests {
		got := parseZygomysError(errors.New(tt.msg))
		if len(got) != 1 || got[0].Line != tt.wantLine || got[0].Message != tt.wantMsg {
			t.Errorf("parseZygomysError(%q) = %+v", tt.msg, got)
		}
	}
}

func TestBuildScene(t *testing.T) {
	m := newModel(0)
	res := evaluate(t, NewEngine(Options{}), m, `
; two boxes, one placed by id
(def a (box :size 1))
(def b (box 7 2))
(move a 3 0 0)
(move b (vec3 0 5 0))
(rotate a 90 :axis :z)
(group a b)
(material a 4)
(material b 2 9)
(mesh-count)
`)
	if res.Value != "2" {
		t.Errorf("Value = %q, want 2", res.Value)
	}
	if res.Applied != 8 {
		t.Errorf("Applied = %d, want 8", res.Applied)
	}

	a, ok := m.GetMesh(1)
	if !ok {
		t.Fatal("box a not created with id 1")
	}
	b := m.MustGetMesh(7)
	if !vecNear(a.Offset(), mgl64.Vec3{3, 0, 0}) || !vecNear(b.Offset(), mgl64.Vec3{0, 5, 0}) {
		t.Errorf("offsets = %v, %v", a.Offset(), b.Offset())
	}
	want := mgl64.QuatRotate(mgl64.DegToRad(90), mgl64.Vec3{0, 0, 1})
	if !a.Rotation().ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("rotation = %v, want %v", a.Rotation(), want)
	}
	if a.GroupID() == 0 || a.GroupID() != b.GroupID() {
		t.Errorf("groups = %d, %d", a.GroupID(), b.GroupID())
	}
	for _, f := range a.Faces() {
		if f.Properties().MaterialID != 4 {
			t.Errorf("a face %d material = %d", f.ID(), f.Properties().MaterialID)
		}
	}
	if got := b.MustGetFace(2).Properties().MaterialID; got != 9 {
		t.Errorf("b face 2 material = %d, want 9", got)
	}
	if got := b.MustGetFace(0).Properties().MaterialID; got != 0 {
		t.Errorf("b face 0 material = %d, want 0", got)
	}
}

func TestUndoRedoBuiltins(t *testing.T) {
	m := newModel(0)
	eng := NewEngine(Options{})
	res := evaluate(t, eng, m, `
(def a (box :size 1))
(move a 1 0 0)
(undo)
`)
	if res.Value != "true" {
		t.Errorf("undo returned %q", res.Value)
	}
	if got := m.MustGetMesh(1).Offset(); !vecNear(got, mgl64.Vec3{}) {
		t.Errorf("offset after undo = %v", got)
	}
	evaluate(t, eng, m, "(redo)")
	if got := m.MustGetMesh(1).Offset(); !vecNear(got, mgl64.Vec3{1, 0, 0}) {
		t.Errorf("offset after redo = %v", got)
	}
	if res := evaluate(t, eng, m, "(redo)"); res.Value != "false" {
		t.Errorf("redo with an empty stack returned %q", res.Value)
	}
}

func TestEndBatchSplitsUndoSteps(t *testing.T) {
	eng := NewEngine(Options{})
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"one batch", "(box :size 1)\n(move 1 1 0 0)\n(undo)\n(mesh-count)", "0"},
		{"split batch", "(box :size 1)\n(end-batch)\n(move 1 1 0 0)\n(undo)\n(mesh-count)", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := evaluate(t, eng, newModel(time.Hour), tt.source)
			if res.Value != tt.want {
				t.Errorf("mesh-count = %q, want %q", res.Value, tt.want)
			}
		})
	}
}

func TestDeleteAndUngroup(t *testing.T) {
	m := newModel(0)
	res := evaluate(t, NewEngine(Options{}), m, `
(box 1 1)
(box 2 1 :at (vec3 3 0 0))
(group 1 2)
(ungroup 1)
(delete 2)
(mesh-count)
`)
	if res.Value != "1" {
		t.Errorf("mesh-count = %q", res.Value)
	}
	if g := m.MustGetMesh(1).GroupID(); g != 0 {
		t.Errorf("mesh 1 still in group %d", g)
	}
}

func TestMoveVertexBuiltin(t *testing.T) {
	m := newModel(0)
	evaluate(t, NewEngine(Options{}), m, "(box 1 1)\n(move-vertex 1 6 (vec3 0.8 0.8 0.8))")
	if got := m.MustGetMesh(1).FaceCount(); got <= 6 {
		t.Errorf("FaceCount = %d, want the bent faces split", got)
	}
	res := evaluate(t, NewEngine(Options{}), m, "(valid 1)")
	if res.Value != "true" {
		t.Errorf("valid after a repaired move = %q", res.Value)
	}
}

func TestSnapBuiltin(t *testing.T) {
	m := newModel(0)
	idx := spatial.New(m, m.Options().SceneBounds, spatial.BackendRTree)
	u := spatial.NewUpdater(idx)
	u.Attach(m)

	eng := NewEngine(Options{Finder: u})
	res := evaluate(t, eng, m, `
(box :size 1)
(def b (box :size 1 :at (vec3 1.03 0 0)))
(snap b)
`)
	if res.Value != `"face"` && res.Value != "face" {
		t.Errorf("snap returned %q, want face", res.Value)
	}
	if got := m.MustGetMesh(2).Offset(); !vecNear(got, mgl64.Vec3{1, 0, 0}) {
		t.Errorf("offset after snap = %v, want (1,0,0)", got)
	}
}

func TestCylinderBuiltin(t *testing.T) {
	m := newModel(0)
	eng := NewEngine(Options{Kernel: sdfx.NewWithCells(24)})
	res := evaluate(t, eng, m, "(cylinder :radius 0.5 :height 1 :at (vec3 0 2 0))")
	if res.Value != "1" {
		t.Fatalf("cylinder returned %q", res.Value)
	}
	c := m.MustGetMesh(1)
	if c.FaceCount() == 0 {
		t.Fatal("cylinder has no faces")
	}
	if got := c.Bounds().Center; got.Sub(mgl64.Vec3{0, 2, 0}).Len() > 0.1 {
		t.Errorf("cylinder centred at %v", got)
	}
}

func TestTubeBuiltin(t *testing.T) {
	m := newModel(0)
	eng := NewEngine(Options{Kernel: sdfx.NewWithCells(24)})
	evaluate(t, eng, m, "(tube :outer 0.5 :inner 0.25 :height 2 :axis :x)")
	size := m.MustGetMesh(1).Bounds().Size()
	if size.X() < 1.8 || size.Y() > 1.2 || size.Z() > 1.2 {
		t.Errorf("tube size = %v, want it laid along X", size)
	}

	res, err := eng.Evaluate(context.Background(), "(tube :outer 0.2 :inner 0.3)", m)
	if err != nil || len(res.Errors) == 0 || !strings.Contains(res.Errors[0].Message, "inner < outer") {
		t.Errorf("inverted tube = %+v, %v", res, err)
	}
}

func TestReadOnlyModelIsFatal(t *testing.T) {
	m := newModel(0)
	m.SetWriteable(false)
	res, err := NewEngine(Options{}).Evaluate(context.Background(), "(box :size 1)\n(box :size 1)", m)
	if err == nil {
		t.Fatalf("expected a fatal error, got %+v", res)
	}
	var v *invariant.Violation
	if !errors.As(err, &v) {
		t.Errorf("error %v is not an invariant violation", err)
	}
}

func TestServeTimeout(t *testing.T) {
	s := newSession(NewEngine(Options{}), newModel(0))
	_, err := s.serve(context.Background(), make(chan outcome), 10*time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("serve = %v, want a timeout", err)
	}
	// The abandoned interpreter can no longer reach the model.
	if err := s.do(func() error { return nil }); !errors.Is(err, errAbandoned) {
		t.Errorf("do after timeout = %v", err)
	}
}

func TestServeCancel(t *testing.T) {
	s := newSession(NewEngine(Options{}), newModel(0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.serve(ctx, make(chan outcome), time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("serve = %v, want context.Canceled", err)
	}
}
