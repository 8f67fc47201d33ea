package script

import (
	"github.com/chazu/polyedit/pkg/kernel"
	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/chazu/polyedit/pkg/meshimport"
	"github.com/chazu/polyedit/pkg/model"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl64"
)

type builtin func(a args) (zygo.Sexp, error)

// register installs the polyedit builtins. Names use underscores because
// preprocess has already rewritten kebab-case.
func (s *session) register(env *zygo.Zlisp) {
	builtins := map[string]builtin{
		"vec3":        s.vec3,
		"box":         s.box,
		"cylinder":    s.cylinder,
		"tube":        s.tube,
		"move":        s.move,
		"rotate":      s.rotate,
		"move_vertex": s.moveVertex,
		"delete":      s.deleteMesh,
		"group":       s.group,
		"ungroup":     s.ungroup,
		"material":    s.material,
		"snap":        s.snap,
		"valid":       s.valid,
		"undo":        s.undo,
		"redo":        s.redo,
		"end_batch":   s.endBatch,
		"mesh_count":  s.meshCount,
	}
	for name, fn := range builtins {
		env.AddFunction(name, func(env *zygo.Zlisp, name string, in []zygo.Sexp) (zygo.Sexp, error) {
			return fn(parseArgs(name, in))
		})
	}
}

// (vec3 x y z)
func (s *session) vec3(a args) (zygo.Sexp, error) {
	if err := a.need(3, 3); err != nil {
		return zygo.SexpNull, err
	}
	v, err := a.vecFrom(0)
	if err != nil {
		return zygo.SexpNull, err
	}
	return &sexpVec3{v: v}, nil
}

// newMeshID resolves the id a new mesh should get: the positional id when
// given, otherwise :id, and a fresh one when neither is set. It runs on the
// owner goroutine.
func (s *session) newMeshID(a args, positional int) (int, error) {
	id := 0
	var err error
	if positional >= 0 {
		id, err = a.intAt(positional)
	} else {
		id, err = a.kwInt("id", 0)
	}
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return s.m.GenerateMeshID(), nil
	}
	if s.m.HasMesh(id) {
		return 0, a.errorf("mesh %d already exists", id)
	}
	return id, nil
}

func (s *session) addMesh(a args, mm *mesh.MMesh) error {
	if !s.m.CanAddMesh(mm) {
		return a.errorf("mesh %d does not fit in the scene", mm.ID())
	}
	return s.command(a.fn, model.NewAddMeshCommand(mm))
}

// (box id size) or (box :size 1 :at (vec3 0 0 0) :material 2)
func (s *session) box(a args) (zygo.Sexp, error) {
	if err := a.need(0, 2); err != nil {
		return zygo.SexpNull, err
	}
	size, err := a.kwSize("size", mgl64.Vec3{1, 1, 1})
	if err != nil {
		return zygo.SexpNull, err
	}
	idArg := -1
	if len(a.positional) == 2 {
		f, err := a.floatAt(1)
		if err != nil {
			return zygo.SexpNull, err
		}
		size = mgl64.Vec3{f, f, f}
		idArg = 0
	} else if len(a.positional) == 1 {
		return zygo.SexpNull, a.errorf("expected an id and a size")
	}
	if size[0] <= 0 || size[1] <= 0 || size[2] <= 0 {
		return zygo.SexpNull, a.errorf("size must be positive, got %v", size)
	}
	at, err := a.kwVec("at", mgl64.Vec3{})
	if err != nil {
		return zygo.SexpNull, err
	}
	mat, err := a.kwInt("material", 0)
	if err != nil {
		return zygo.SexpNull, err
	}

	var id int
	err = s.do(func() error {
		var err error
		if id, err = s.newMeshID(a, idArg); err != nil {
			return err
		}
		return s.addMesh(a, mesh.NewBox(id, at, size, mesh.FaceProperties{MaterialID: mat}))
	})
	if err != nil {
		return zygo.SexpNull, err
	}
	return intSexp(id), nil
}

// (cylinder :radius 0.5 :height 1 :axis :z :at (vec3 0 0 0))
func (s *session) cylinder(a args) (zygo.Sexp, error) {
	if err := a.need(0, 0); err != nil {
		return zygo.SexpNull, err
	}
	radius, err := a.kwFloat("radius", 0.5)
	if err != nil {
		return zygo.SexpNull, err
	}
	height, err := a.kwFloat("height", 1)
	if err != nil {
		return zygo.SexpNull, err
	}
	if radius <= 0 || height <= 0 {
		return zygo.SexpNull, a.errorf("radius and height must be positive")
	}
	k := s.e.opts.Kernel
	return s.solid(a, k.Cylinder(radius, height))
}

// (tube :outer 0.5 :inner 0.3 :height 1 :axis :z :at (vec3 0 0 0)) is a
// cylinder with a coaxial bore.
func (s *session) tube(a args) (zygo.Sexp, error) {
	if err := a.need(0, 0); err != nil {
		return zygo.SexpNull, err
	}
	outer, err := a.kwFloat("outer", 0.5)
	if err != nil {
		return zygo.SexpNull, err
	}
	inner, err := a.kwFloat("inner", 0.25)
	if err != nil {
		return zygo.SexpNull, err
	}
	height, err := a.kwFloat("height", 1)
	if err != nil {
		return zygo.SexpNull, err
	}
	if height <= 0 || inner <= 0 || outer <= inner {
		return zygo.SexpNull, a.errorf("need 0 < inner < outer and a positive height")
	}
	k := s.e.opts.Kernel
	// The bore overshoots both caps so they are cut cleanly.
	return s.solid(a, k.Difference(k.Cylinder(outer, height), k.Cylinder(inner, height*1.5)))
}

// solid orients a Z-aligned kernel solid along :axis, polygonizes it and
// adds the coalesced result centred on :at.
func (s *session) solid(a args, sol kernel.Solid) (zygo.Sexp, error) {
	axis := mgl64.Vec3{0, 0, 1}
	if v, ok := a.kw["axis"]; ok {
		var err error
		if axis, err = toAxis(v); err != nil {
			return zygo.SexpNull, a.errorf("axis: %v", err)
		}
	}
	at, err := a.kwVec("at", mgl64.Vec3{})
	if err != nil {
		return zygo.SexpNull, err
	}
	mat, err := a.kwInt("material", 0)
	if err != nil {
		return zygo.SexpNull, err
	}

	k := s.e.opts.Kernel
	km, err := k.ToMesh(kernel.Orient(k, sol, axis))
	if err != nil {
		return zygo.SexpNull, a.errorf("%v", err)
	}
	var id int
	err = s.do(func() error {
		var err error
		if id, err = s.newMeshID(a, -1); err != nil {
			return err
		}
		mm := meshimport.FromTriangles(id, km, meshimport.Options{
			Coalesce:   true,
			Properties: mesh.FaceProperties{MaterialID: mat},
		})
		mm.SetOffset(mm.Offset().Add(at))
		return s.addMesh(a, mm)
	})
	if err != nil {
		return zygo.SexpNull, err
	}
	return intSexp(id), nil
}

// existing checks the mesh exists. It runs on the owner goroutine.
func (s *session) existing(a args, id int) (*mesh.MMesh, error) {
	mm, ok := s.m.GetMesh(id)
	if !ok {
		return nil, a.errorf("no mesh %d", id)
	}
	return mm, nil
}

// (move id dx dy dz) or (move id (vec3 dx dy dz))
func (s *session) move(a args) (zygo.Sexp, error) {
	if err := a.need(2, 4); err != nil {
		return zygo.SexpNull, err
	}
	id, err := a.intAt(0)
	if err != nil {
		return zygo.SexpNull, err
	}
	delta, err := a.vecFrom(1)
	if err != nil {
		return zygo.SexpNull, err
	}
	err = s.do(func() error {
		if _, err := s.existing(a, id); err != nil {
			return err
		}
		return s.command(a.fn, model.NewMoveMeshCommand(id, delta, mgl64.QuatIdent()))
	})
	return intSexp(id), err
}

// (rotate id degrees :axis :y) turns the mesh about its offset.
func (s *session) rotate(a args) (zygo.Sexp, error) {
	if err := a.need(2, 2); err != nil {
		return zygo.SexpNull, err
	}
	id, err := a.intAt(0)
	if err != nil {
		return zygo.SexpNull, err
	}
	deg, err := a.floatAt(1)
	if err != nil {
		return zygo.SexpNull, err
	}
	axis := mgl64.Vec3{0, 1, 0}
	if v, ok := a.kw["axis"]; ok {
		if axis, err = toAxis(v); err != nil {
			return zygo.SexpNull, a.errorf("axis: %v", err)
		}
	}
	q := mgl64.QuatRotate(mgl64.DegToRad(deg), axis)
	err = s.do(func() error {
		if _, err := s.existing(a, id); err != nil {
			return err
		}
		return s.command(a.fn, model.NewMoveMeshCommand(id, mgl64.Vec3{}, q))
	})
	return intSexp(id), err
}

// (move-vertex id vertex (vec3 x y z)) moves one vertex to a mesh-space
// position and repairs the mesh. An edit that leaves the mesh invalid is
// refused.
func (s *session) moveVertex(a args) (zygo.Sexp, error) {
	if err := a.need(3, 5); err != nil {
		return zygo.SexpNull, err
	}
	id, err := a.intAt(0)
	if err != nil {
		return zygo.SexpNull, err
	}
	vertex, err := a.intAt(1)
	if err != nil {
		return zygo.SexpNull, err
	}
	pos, err := a.vecFrom(2)
	if err != nil {
		return zygo.SexpNull, err
	}
	err = s.do(func() error {
		mm, err := s.existing(a, id)
		if err != nil {
			return err
		}
		if !mm.HasVertex(vertex) {
			return a.errorf("mesh %d has no vertex %d", id, vertex)
		}
		cmd, ok := model.NewMoveVerticesCommand(s.m, id, map[int]mgl64.Vec3{vertex: pos})
		if !ok {
			return a.errorf("moving vertex %d of mesh %d leaves it invalid", vertex, id)
		}
		return s.command(a.fn, cmd)
	})
	return intSexp(id), err
}

// (delete id)
func (s *session) deleteMesh(a args) (zygo.Sexp, error) {
	if err := a.need(1, 1); err != nil {
		return zygo.SexpNull, err
	}
	id, err := a.intAt(0)
	if err != nil {
		return zygo.SexpNull, err
	}
	err = s.do(func() error {
		if _, err := s.existing(a, id); err != nil {
			return err
		}
		return s.command(a.fn, model.NewDeleteMeshCommand(id))
	})
	return boolSexp(err == nil), err
}

// (group id id ...) returns the new group id.
func (s *session) group(a args) (zygo.Sexp, error) {
	if err := a.need(1, -1); err != nil {
		return zygo.SexpNull, err
	}
	ids, err := a.ints(0)
	if err != nil {
		return zygo.SexpNull, err
	}
	var groupID int
	err = s.do(func() error {
		for _, id := range ids {
			if _, err := s.existing(a, id); err != nil {
				return err
			}
		}
		cmd := model.CreateGroupMeshesCommand(s.m, ids)
		groupID = cmd.Groups()[ids[0]]
		return s.command(a.fn, cmd)
	})
	if err != nil {
		return zygo.SexpNull, err
	}
	return intSexp(groupID), nil
}

// (ungroup id id ...)
func (s *session) ungroup(a args) (zygo.Sexp, error) {
	if err := a.need(1, -1); err != nil {
		return zygo.SexpNull, err
	}
	ids, err := a.ints(0)
	if err != nil {
		return zygo.SexpNull, err
	}
	err = s.do(func() error {
		for _, id := range ids {
			if _, err := s.existing(a, id); err != nil {
				return err
			}
		}
		return s.command(a.fn, model.CreateUngroupMeshesCommand(ids))
	})
	return boolSexp(err == nil), err
}

// (material id mat) paints every face; (material id face mat) one face.
func (s *session) material(a args) (zygo.Sexp, error) {
	if err := a.need(2, 3); err != nil {
		return zygo.SexpNull, err
	}
	nums, err := a.ints(0)
	if err != nil {
		return zygo.SexpNull, err
	}
	id, mat := nums[0], nums[len(nums)-1]
	err = s.do(func() error {
		mm, err := s.existing(a, id)
		if err != nil {
			return err
		}
		faces := mm.FaceIDs()
		if len(nums) == 3 {
			if !mm.HasFace(nums[1]) {
				return a.errorf("mesh %d has no face %d", id, nums[1])
			}
			faces = []int{nums[1]}
		}
		props := make(map[int]mesh.FaceProperties, len(faces))
		for _, f := range faces {
			props[f] = mesh.FaceProperties{MaterialID: mat}
		}
		return s.command(a.fn, model.NewChangeFacePropertiesCommand(id, props))
	})
	return intSexp(id), err
}

// (snap id) aligns the mesh with its neighbours and returns the kind of
// snap applied.
func (s *session) snap(a args) (zygo.Sexp, error) {
	if err := a.need(1, 1); err != nil {
		return zygo.SexpNull, err
	}
	if s.e.opts.Finder == nil {
		return zygo.SexpNull, a.errorf("no spatial index available")
	}
	id, err := a.intAt(0)
	if err != nil {
		return zygo.SexpNull, err
	}
	var kind string
	err = s.do(func() error {
		mm, err := s.existing(a, id)
		if err != nil {
			return err
		}
		space := s.e.opts.Detector.DetectSnap(mm, s.e.opts.Finder, s.m)
		kind = space.Type.String()
		return s.command(a.fn, model.NewMoveMeshCommand(id, space.Translation, space.Rotation))
	})
	if err != nil {
		return zygo.SexpNull, err
	}
	return stringSexp(kind), nil
}

// (valid id) runs the structural and back-face checks on a mesh.
func (s *session) valid(a args) (zygo.Sexp, error) {
	if err := a.need(1, 1); err != nil {
		return zygo.SexpNull, err
	}
	id, err := a.intAt(0)
	if err != nil {
		return zygo.SexpNull, err
	}
	var ok bool
	err = s.do(func() error {
		mm, err := s.existing(a, id)
		if err != nil {
			return err
		}
		ok = !mesh.HasErrors(mesh.Validate(mm)) && s.m.Options().Validator.IsValidMesh(mm, nil)
		return nil
	})
	if err != nil {
		return zygo.SexpNull, err
	}
	return boolSexp(ok), nil
}

func (s *session) undo(a args) (zygo.Sexp, error) {
	return s.history(a, s.m.Undo)
}

func (s *session) redo(a args) (zygo.Sexp, error) {
	return s.history(a, s.m.Redo)
}

func (s *session) history(a args, step func() bool) (zygo.Sexp, error) {
	if err := a.need(0, 0); err != nil {
		return zygo.SexpNull, err
	}
	var ok bool
	err := s.do(func() error {
		ok = step()
		return nil
	})
	return boolSexp(ok), err
}

// (end-batch) closes the current undo step.
func (s *session) endBatch(a args) (zygo.Sexp, error) {
	if err := a.need(0, 0); err != nil {
		return zygo.SexpNull, err
	}
	return zygo.SexpNull, s.do(func() error {
		s.m.EndBatch()
		return nil
	})
}

func (s *session) meshCount(a args) (zygo.Sexp, error) {
	if err := a.need(0, 0); err != nil {
		return zygo.SexpNull, err
	}
	var n int
	err := s.do(func() error {
		n = s.m.MeshCount()
		return nil
	})
	return intSexp(n), err
}
