// Package snap decides how a mesh being moved should align with the geometry
// around it: to another mesh's centre, flush against a nearby face, or to
// the world grid when nothing is close enough.
package snap

import (
	"math"

	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/chazu/polyedit/pkg/meshmath"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// Type is the kind of alignment detected.
type Type int

const (
	// Universal snaps to the world grid.
	Universal Type = iota
	// Mesh snaps the bounds centre onto another mesh's bounds centre.
	Mesh
	// Face snaps a face of the moving mesh flush against a target face.
	Face
)

func (t Type) String() string {
	switch t {
	case Universal:
		return "universal"
	case Mesh:
		return "mesh"
	case Face:
		return "face"
	default:
		return "unknown"
	}
}

const (
	// MeshCenterFactor is the fraction of the moving mesh's radius within
	// which a neighbour's centre triggers a mesh snap.
	MeshCenterFactor = 0.65
	// DefaultStickThreshold is the world-space distance from a target face
	// centre within which a face snap lands exactly on the centre.
	DefaultStickThreshold = 0.05
	// DefaultFaceSnapThreshold is the largest world-space separation at
	// which two faces snap together.
	DefaultFaceSnapThreshold = 0.1
	// DefaultSearchMargin widens the neighbour search beyond the moving
	// mesh's own radius, in world space.
	DefaultSearchMargin = 0.2
	// DefaultGridSize is the world-space spacing of the universal grid.
	DefaultGridSize = 0.05
)

// WorldSpace relates model units to what the user sees. Scale is how many
// world units one model unit covers on screen; thresholds given in world
// units shrink as the scale grows.
type WorldSpace struct {
	Scale float64
}

// ToModel converts a world-space length to model space.
func (w WorldSpace) ToModel(d float64) float64 {
	if w.Scale <= 0 {
		return d
	}
	return d / w.Scale
}

// Space is the detected alignment and the transform that performs it.
// Rotation is applied about the moving mesh's offset before Translation.
type Space struct {
	Type         Type
	TargetMeshID int
	SourceFaceID int
	TargetFaceID int
	SnapPoint    mgl64.Vec3
	TargetNormal mgl64.Vec3
	Rotation     mgl64.Quat
	Translation  mgl64.Vec3
	// Stuck is set when a face snap was pulled onto the target face centre.
	Stuck bool
}

// MeshFinder returns meshes near a point, nearest centre first.
// *spatial.Index satisfies it.
type MeshFinder interface {
	FindMeshesClosestTo(point mgl64.Vec3, radius float64) ([]int, bool)
}

// MeshLookup resolves mesh ids. *model.Model satisfies it.
type MeshLookup interface {
	GetMesh(id int) (*mesh.MMesh, bool)
}

// Detector holds the snap thresholds, all in world units.
type Detector struct {
	World             WorldSpace
	MeshCenterFactor  float64
	StickThreshold    float64
	FaceSnapThreshold float64
	SearchMargin      float64
	GridSize          float64
}

// NewDetector returns a detector with the default thresholds.
func NewDetector(world WorldSpace) *Detector {
	return &Detector{
		World:             world,
		MeshCenterFactor:  MeshCenterFactor,
		StickThreshold:    DefaultStickThreshold,
		FaceSnapThreshold: DefaultFaceSnapThreshold,
		SearchMargin:      DefaultSearchMargin,
		GridSize:          DefaultGridSize,
	}
}

// DetectSnap returns the relational snap for moving when there is one and
// a universal grid snap otherwise.
func (d *Detector) DetectSnap(moving *mesh.MMesh, finder MeshFinder, lookup MeshLookup) Space {
	if s, ok := d.DetectRelationalSnap(moving, finder, lookup); ok {
		return s
	}
	grid := d.World.ToModel(d.GridSize)
	off := moving.Offset()
	snapped := off
	if grid > 0 {
		for i := 0; i < 3; i++ {
			snapped[i] = math.Round(off[i]/grid) * grid
		}
	}
	return Space{
		Type:        Universal,
		SnapPoint:   snapped,
		Rotation:    mgl64.QuatIdent(),
		Translation: snapped.Sub(off),
	}
}

type faceGeom struct {
	id     int
	points []mgl64.Vec3
	normal mgl64.Vec3
	center mgl64.Vec3
	plane  geom.Plane
}

func facesOf(mm *mesh.MMesh) []faceGeom {
	faces := mm.Faces()
	out := make([]faceGeom, 0, len(faces))
	for _, f := range faces {
		if f.Len() < 3 {
			continue
		}
		g := meshmath.FaceGeometryModelSpace(mm, f)
		if g.Normal.Len() < meshmath.Epsilon {
			continue
		}
		out = append(out, faceGeom{id: f.ID(), points: g.Points, normal: g.Normal, center: g.Center, plane: g.Plane()})
	}
	return out
}

type faceCandidate struct {
	meshID     int
	src, dst   faceGeom
	projected  mgl64.Vec3
	separation float64
}

// DetectRelationalSnap looks for a mesh or face snap between moving and
// its neighbours. It reports false when the caller should fall back to the
// universal grid.
func (d *Detector) DetectRelationalSnap(moving *mesh.MMesh, finder MeshFinder, lookup MeshLookup) (Space, bool) {
	radius := moving.Bounds().Radius()
	ids, _ := finder.FindMeshesClosestTo(moving.Offset(), radius+d.World.ToModel(d.SearchMargin))
	targets := lo.FilterMap(ids, func(id, _ int) (*mesh.MMesh, bool) {
		if id == moving.ID() {
			return nil, false
		}
		return lookup.GetMesh(id)
	})
	if len(targets) == 0 {
		return Space{}, false
	}

	// A neighbour centred well inside the moving mesh overlaps it heavily.
	nearest := targets[0]
	if nearest.Bounds().Center.Sub(moving.Offset()).Len() < radius*d.MeshCenterFactor {
		return d.meshSnap(moving, nearest), true
	}

	sources := facesOf(moving)
	threshold := d.World.ToModel(d.FaceSnapThreshold)
	var best *faceCandidate
	for _, target := range targets {
		dsts := facesOf(target)
		for _, src := range sources {
			if embedded(src.center, dsts) {
				return d.meshSnap(moving, target), true
			}
			for _, dst := range dsts {
				c, ok := compareFaces(src, dst)
				if !ok || c.separation >= threshold {
					continue
				}
				if best == nil || c.separation < best.separation {
					c.meshID = target.ID()
					best = &c
				}
			}
		}
	}
	if best == nil {
		return Space{}, false
	}
	return d.faceSnap(moving, *best), true
}

// embedded reports whether p lies behind every face plane of a mesh.
func embedded(p mgl64.Vec3, faces []faceGeom) bool {
	if len(faces) == 0 {
		return false
	}
	for _, f := range faces {
		if f.plane.GetSide(p) {
			return false
		}
	}
	return true
}

// compareFaces measures how far src is from lying flush on dst. The faces
// must point at each other and the source centre must project inside the
// target border.
func compareFaces(src, dst faceGeom) (faceCandidate, bool) {
	if meshmath.AngleDegrees(src.normal, dst.normal) <= 90 {
		return faceCandidate{}, false
	}
	planeDist := dst.plane.GetDistanceToPoint(src.center)
	rayDist, ok := dst.plane.Raycast(geom.NewRay(src.center, src.normal))
	if !ok {
		back, okBack := dst.plane.Raycast(geom.NewRay(src.center, src.normal.Mul(-1)))
		if !okBack {
			return faceCandidate{}, false
		}
		rayDist = back
	}
	projected := dst.plane.ClosestPointOnPlane(src.center)
	if !meshmath.PointInPolygon(projected, dst.points, dst.normal) {
		return faceCandidate{}, false
	}
	return faceCandidate{
		src:        src,
		dst:        dst,
		projected:  projected,
		separation: math.Abs(planeDist) + math.Abs(rayDist),
	}, true
}

func (d *Detector) meshSnap(moving, target *mesh.MMesh) Space {
	center := target.Bounds().Center
	return Space{
		Type:         Mesh,
		TargetMeshID: target.ID(),
		SnapPoint:    center,
		Rotation:     mgl64.QuatIdent(),
		Translation:  center.Sub(moving.Bounds().Center),
	}
}

func (d *Detector) faceSnap(moving *mesh.MMesh, c faceCandidate) Space {
	point := c.projected
	stuck := false
	if point.Sub(c.dst.center).Len() < d.World.ToModel(d.StickThreshold) {
		point = c.dst.center
		stuck = true
	}
	rot := mgl64.QuatBetweenVectors(c.src.normal, c.dst.normal.Mul(-1))
	off := moving.Offset()
	rotatedCenter := off.Add(rot.Rotate(c.src.center.Sub(off)))
	return Space{
		Type:         Face,
		TargetMeshID: c.meshID,
		SourceFaceID: c.src.id,
		TargetFaceID: c.dst.id,
		SnapPoint:    point,
		TargetNormal: c.dst.normal,
		Rotation:     rot,
		Translation:  point.Sub(rotatedCenter),
		Stuck:        stuck,
	}
}
