package model

import (
	"fmt"
	"sort"

	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

func commandName(cmd Command) string {
	return fmt.Sprintf("%T", cmd)
}

// AddMeshCommand adds a mesh. The model receives a clone, so one command
// can be applied, undone and redone any number of times.
type AddMeshCommand struct {
	mesh *mesh.MMesh
}

// NewAddMeshCommand captures a copy of mm.
func NewAddMeshCommand(mm *mesh.MMesh) *AddMeshCommand {
	return &AddMeshCommand{mesh: mm.Clone()}
}

// MeshID returns the id of the mesh being added.
func (c *AddMeshCommand) MeshID() int { return c.mesh.ID() }

// Mesh returns a copy of the mesh the command adds.
func (c *AddMeshCommand) Mesh() *mesh.MMesh { return c.mesh.Clone() }

// ApplyToModel adds a fresh copy of the mesh.
func (c *AddMeshCommand) ApplyToModel(m *Model) {
	m.AddMesh(c.mesh.Clone())
}

// GetUndoCommand deletes the added mesh.
func (c *AddMeshCommand) GetUndoCommand(m *Model) Command {
	return &DeleteMeshCommand{meshID: c.mesh.ID()}
}

// DeleteMeshCommand removes a mesh.
type DeleteMeshCommand struct {
	meshID int
}

// NewDeleteMeshCommand deletes the mesh with the given id.
func NewDeleteMeshCommand(meshID int) *DeleteMeshCommand {
	return &DeleteMeshCommand{meshID: meshID}
}

// MeshID returns the id of the mesh being deleted.
func (c *DeleteMeshCommand) MeshID() int { return c.meshID }

// ApplyToModel removes the mesh from the model.
func (c *DeleteMeshCommand) ApplyToModel(m *Model) {
	m.DeleteMesh(c.meshID)
}

// GetUndoCommand re-adds the mesh as it is now, group included.
func (c *DeleteMeshCommand) GetUndoCommand(m *Model) Command {
	return NewAddMeshCommand(m.MustGetMesh(c.meshID))
}

// MoveMeshCommand translates and rotates a mesh relative to its current
// placement.
type MoveMeshCommand struct {
	meshID        int
	positionDelta mgl64.Vec3
	rotDelta      mgl64.Quat
}

// NewMoveMeshCommand offsets a mesh by positionDelta and turns it by
// rotDelta about its own origin.
func NewMoveMeshCommand(meshID int, positionDelta mgl64.Vec3, rotDelta mgl64.Quat) *MoveMeshCommand {
	return &MoveMeshCommand{meshID: meshID, positionDelta: positionDelta, rotDelta: rotDelta}
}

// MeshID returns the id of the mesh being moved.
func (c *MoveMeshCommand) MeshID() int { return c.meshID }

// ApplyToModel adds the deltas to the mesh placement.
func (c *MoveMeshCommand) ApplyToModel(m *Model) {
	m.checkWriteable()
	mm := m.MustGetMesh(c.meshID)
	mm.SetOffset(mm.Offset().Add(c.positionDelta))
	mm.SetRotation(c.rotDelta.Mul(mm.Rotation()).Normalize())
	m.MeshChanged(c.meshID)
}

// GetUndoCommand applies the opposite deltas.
func (c *MoveMeshCommand) GetUndoCommand(m *Model) Command {
	return &MoveMeshCommand{
		meshID:        c.meshID,
		positionDelta: c.positionDelta.Mul(-1),
		rotDelta:      c.rotDelta.Inverse(),
	}
}

// ReplaceMeshCommand swaps a mesh for an edited copy with the same id. Vertex
// edits are expressed this way: the edit runs on a clone and the result
// replaces the original.
type ReplaceMeshCommand struct {
	mesh *mesh.MMesh
}

// NewReplaceMeshCommand captures a copy of mm, which replaces the mesh
// with the same id.
func NewReplaceMeshCommand(mm *mesh.MMesh) *ReplaceMeshCommand {
	return &ReplaceMeshCommand{mesh: mm.Clone()}
}

// MeshID returns the id of the mesh being replaced.
func (c *ReplaceMeshCommand) MeshID() int { return c.mesh.ID() }

// ApplyToModel swaps in a copy of the edited mesh.
func (c *ReplaceMeshCommand) ApplyToModel(m *Model) {
	m.ReplaceMesh(c.mesh.Clone())
}

// GetUndoCommand restores the mesh as it is now.
func (c *ReplaceMeshCommand) GetUndoCommand(m *Model) Command {
	return NewReplaceMeshCommand(m.MustGetMesh(c.mesh.ID()))
}

// NewMoveVerticesCommand moves vertices of a mesh to new mesh-space
// positions on a copy, repairs it and wraps the result in a
// ReplaceMeshCommand. It returns false when the repaired mesh exposes a
// back face.
func NewMoveVerticesCommand(m *Model, meshID int, moves map[int]mgl64.Vec3) (*ReplaceMeshCommand, bool) {
	edited := m.MustGetMesh(meshID).Clone()
	m.opts.Fixer.MoveVerticesAndMutateMeshAndFix(edited, moves, false)

	updated := lo.Filter(lo.Keys(moves), func(id, _ int) bool { return edited.HasVertex(id) })
	sort.Ints(updated)
	if len(updated) == 0 || !m.opts.Validator.IsValidMesh(edited, updated) {
		return nil, false
	}
	return &ReplaceMeshCommand{mesh: edited}, true
}

// ChangeFacePropertiesCommand sets the properties of faces of one mesh.
type ChangeFacePropertiesCommand struct {
	meshID int
	props  map[int]mesh.FaceProperties
}

// NewChangeFacePropertiesCommand assigns props, keyed by face id.
func NewChangeFacePropertiesCommand(meshID int, props map[int]mesh.FaceProperties) *ChangeFacePropertiesCommand {
	return &ChangeFacePropertiesCommand{meshID: meshID, props: lo.Assign(props)}
}

// MeshID returns the id of the mesh whose faces change.
func (c *ChangeFacePropertiesCommand) MeshID() int { return c.meshID }

// ApplyToModel rewrites the listed faces without touching normals.
func (c *ChangeFacePropertiesCommand) ApplyToModel(m *Model) {
	m.checkWriteable()
	mm := m.MustGetMesh(c.meshID)
	ids := lo.Keys(c.props)
	sort.Ints(ids)

	op := mm.StartOperation()
	for _, id := range ids {
		f := mm.MustGetFace(id)
		op.ModifyFaceWithHoles(id, f.VertexIDs(), f.Holes(), c.props[id])
	}
	op.CommitWithoutRecalculation()
	m.MeshChanged(c.meshID)
}

// GetUndoCommand captures the properties the faces carry now.
func (c *ChangeFacePropertiesCommand) GetUndoCommand(m *Model) Command {
	mm := m.MustGetMesh(c.meshID)
	old := make(map[int]mesh.FaceProperties, len(c.props))
	for id := range c.props {
		old[id] = mm.MustGetFace(id).Properties()
	}
	return &ChangeFacePropertiesCommand{meshID: c.meshID, props: old}
}
