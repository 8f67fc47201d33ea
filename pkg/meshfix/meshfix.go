// Package meshfix restores a valid mesh after raw vertex moves. The pipeline
// joins vertices that were moved onto their neighbours, splits faces the
// move bent out of plane, strips degenerate cycle segments and drops faces
// that collapsed below a triangle. Each stage commits its own operation and
// reports whether it changed the mesh.
package meshfix

import (
	"log/slog"
	"sort"

	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/chazu/polyedit/pkg/meshmath"
	"github.com/chazu/polyedit/pkg/meshutil"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// Fixer runs the repair pipeline with explicit tolerances.
type Fixer struct {
	MergeDistance       float64
	MaxCoplanarDistance float64
	Logger              *slog.Logger
}

// DefaultFixer uses the meshmath tolerances.
func DefaultFixer() *Fixer {
	return &Fixer{
		MergeDistance:       meshmath.MergeDistance,
		MaxCoplanarDistance: meshmath.MaxCoplanarDistance,
		Logger:              slog.Default(),
	}
}

var defaultFixer = DefaultFixer()

// FixMutatedMesh runs the full pipeline with default tolerances.
func FixMutatedMesh(original, m *mesh.MMesh, movedVertexIDs []int, allowNonCoplanar bool) bool {
	return defaultFixer.FixMutatedMesh(original, m, movedVertexIDs, allowNonCoplanar)
}

// MoveVerticesAndMutateMeshAndFix moves vertices with default tolerances.
func MoveVerticesAndMutateMeshAndFix(m *mesh.MMesh, moves map[int]mgl64.Vec3, forPreview bool) bool {
	return defaultFixer.MoveVerticesAndMutateMeshAndFix(m, moves, forPreview)
}

// FixMutatedMesh runs every stage in order and returns whether any of them
// changed m. original is the mesh before the move and only feeds the
// debug record; it may be nil.
func (fx *Fixer) FixMutatedMesh(original, m *mesh.MMesh, movedVertexIDs []int, allowNonCoplanar bool) bool {
	moved := lo.Uniq(movedVertexIDs)
	sort.Ints(moved)

	changed := fx.JoinDuplicateVertices(m, moved)
	if !allowNonCoplanar {
		changed = fx.SplitNonCoplanarFaces(m, moved) || changed
	}
	changed = fx.RemoveZeroLengthSegments(m) || changed
	changed = fx.RemoveZeroAreaSegments(m) || changed
	changed = fx.RemoveInvalidFacesAndHoles(m) || changed

	attrs := []any{"mesh", m.ID(), "moved", len(moved), "changed", changed}
	if original != nil {
		attrs = append(attrs,
			"vertices", m.VertexCount()-original.VertexCount(),
			"faces", m.FaceCount()-original.FaceCount())
	}
	fx.logger().Debug("meshfix: pipeline finished", attrs...)
	return changed
}

func (fx *Fixer) logger() *slog.Logger {
	if fx.Logger == nil {
		return slog.Default()
	}
	return fx.Logger
}

// MoveVerticesAndMutateMeshAndFix moves vertices to new mesh-space
// positions and repairs the mesh. A preview only splits bent faces; the
// edit must be finalized with the full pipeline before it is kept.
func (fx *Fixer) MoveVerticesAndMutateMeshAndFix(m *mesh.MMesh, moves map[int]mgl64.Vec3, forPreview bool) bool {
	original := m.Clone()
	ids := lo.Keys(moves)
	sort.Ints(ids)

	op := m.StartOperation()
	for _, id := range ids {
		op.ModifyVertexMeshSpace(id, moves[id])
	}
	op.Commit()

	if forPreview {
		return fx.SplitNonCoplanarFaces(m, ids)
	}
	return fx.FixMutatedMesh(original, m, ids, false)
}

// JoinDuplicateVertices merges every stationary vertex lying within merge
// distance of a moved vertex it shares a face with into the moved vertex.
// Two moved vertices are never merged with each other.
func (fx *Fixer) JoinDuplicateVertices(m *mesh.MMesh, movedVertexIDs []int) bool {
	movedSet := lo.SliceToMap(movedVertexIDs, func(id int) (int, struct{}) { return id, struct{}{} })

	op := m.StartOperation()
	changed := false
	for _, mv := range movedVertexIDs {
		for fx.joinOne(op, mv, movedSet) {
			changed = true
		}
	}
	return commitIf(op, changed)
}

// joinOne merges the first stationary neighbour of mv found within merge
// distance and reports whether it merged one. Faces gained by the merge are
// scanned on the next call.
func (fx *Fixer) joinOne(op *mesh.GeometryOperation, mv int, movedSet map[int]struct{}) bool {
	keep, ok := op.GetCurrentVertex(mv)
	if !ok {
		return false
	}
	for _, fid := range op.FacesUsingVertex(mv) {
		f, _ := op.GetCurrentFace(fid)
		for _, sv := range f.VertexIDs() {
			if _, isMoved := movedSet[sv]; isMoved || sv == mv {
				continue
			}
			other, ok := op.GetCurrentVertex(sv)
			if !ok || other.Loc().Sub(keep.Loc()).Len() >= fx.MergeDistance {
				continue
			}
			meshutil.MergeVertices(op, mv, sv)
			return true
		}
	}
	return false
}

// SplitNonCoplanarFaces splits every face touching a moved vertex that is
// not flat, whether or not it was flat before the move.
func (fx *Fixer) SplitNonCoplanarFaces(m *mesh.MMesh, movedVertexIDs []int) bool {
	op := m.StartOperation()
	changed := false

	touched := make(map[int]struct{})
	for _, mv := range movedVertexIDs {
		if _, ok := op.GetCurrentVertex(mv); !ok {
			continue
		}
		for _, fid := range op.FacesUsingVertex(mv) {
			touched[fid] = struct{}{}
		}
	}
	faceIDs := lo.Keys(touched)
	sort.Ints(faceIDs)

	for _, fid := range faceIDs {
		for _, mv := range movedVertexIDs {
			f, ok := op.GetCurrentFace(fid)
			if !ok || f.Len() <= 3 {
				break
			}
			if f.IndexOf(mv) < 0 {
				continue
			}
			pts := meshmath.OperationLocations(op, f.VertexIDs())
			if meshmath.IsCoplanar(pts, fx.MaxCoplanarDistance) {
				break
			}
			if meshutil.SplitFaceAtVertex(op, fid, mv) {
				changed = true
			}
		}
	}
	return commitIf(op, changed)
}

// RemoveZeroLengthSegments drops consecutive repeats of a vertex id from
// every face cycle and hole.
func (fx *Fixer) RemoveZeroLengthSegments(m *mesh.MMesh) bool {
	return rewriteCycles(m, meshutil.HasAdjacentDuplicate, meshutil.DedupeAdjacent)
}

// RemoveZeroAreaSegments collapses every a,b,a spike in face cycles and
// holes.
func (fx *Fixer) RemoveZeroAreaSegments(m *mesh.MMesh) bool {
	return rewriteCycles(m, func(ids []int) bool {
		return meshutil.HasSpike(ids) || meshutil.HasAdjacentDuplicate(ids)
	}, meshutil.RemoveSpikes)
}

// RemoveInvalidFacesAndHoles deletes faces with fewer than three vertices
// and holes with fewer than three vertices.
func (fx *Fixer) RemoveInvalidFacesAndHoles(m *mesh.MMesh) bool {
	op := m.StartOperation()
	changed := false
	for _, fid := range op.CurrentFaceIDs() {
		f, _ := op.GetCurrentFace(fid)
		if f.Len() < 3 {
			op.DeleteFace(fid)
			changed = true
			continue
		}
		holes := f.Holes()
		kept := lo.Filter(holes, func(h mesh.Hole, _ int) bool { return h.Len() >= 3 })
		if len(kept) != len(holes) {
			op.ModifyFaceWithHoles(fid, f.VertexIDs(), kept, f.Properties())
			changed = true
		}
	}
	return commitIf(op, changed)
}

// rewriteCycles applies fix to every face border and hole for which bad
// reports true.
func rewriteCycles(m *mesh.MMesh, bad func([]int) bool, fix func([]int) []int) bool {
	op := m.StartOperation()
	changed := false
	for _, fid := range op.CurrentFaceIDs() {
		f, _ := op.GetCurrentFace(fid)
		ids := f.VertexIDs()
		holes := f.Holes()
		dirty := false
		if bad(ids) {
			ids = fix(ids)
			dirty = true
		}
		for i, h := range holes {
			hids := h.VertexIDs()
			if !bad(hids) {
				continue
			}
			hids = fix(hids)
			normals := h.Normals()[:len(hids)]
			holes[i] = mesh.NewHole(hids, normals)
			dirty = true
		}
		if dirty {
			op.ModifyFaceWithHoles(fid, ids, holes, f.Properties())
			changed = true
		}
	}
	return commitIf(op, changed)
}

func commitIf(op *mesh.GeometryOperation, changed bool) bool {
	if changed {
		op.Commit()
	} else {
		op.Abort()
	}
	return changed
}
