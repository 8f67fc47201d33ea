package model

import (
	"sort"

	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/samber/lo"
)

// SetMeshGroupsCommand assigns meshes to groups. A group id of
// mesh.GroupNone removes a mesh from its group.
type SetMeshGroupsCommand struct {
	groups map[int]int
}

// NewSetMeshGroupsCommand maps mesh ids to their new group ids.
func NewSetMeshGroupsCommand(groups map[int]int) *SetMeshGroupsCommand {
	return &SetMeshGroupsCommand{groups: lo.Assign(groups)}
}

// CreateGroupMeshesCommand puts the meshes into one freshly generated group.
func CreateGroupMeshesCommand(m *Model, meshIDs []int) *SetMeshGroupsCommand {
	groupID := m.GenerateGroupID()
	return &SetMeshGroupsCommand{
		groups: lo.SliceToMap(meshIDs, func(id int) (int, int) { return id, groupID }),
	}
}

// CreateUngroupMeshesCommand takes the meshes out of their groups.
func CreateUngroupMeshesCommand(meshIDs []int) *SetMeshGroupsCommand {
	return &SetMeshGroupsCommand{
		groups: lo.SliceToMap(meshIDs, func(id int) (int, int) { return id, mesh.GroupNone }),
	}
}

// Groups returns the mesh id to group id assignment.
func (c *SetMeshGroupsCommand) Groups() map[int]int { return lo.Assign(c.groups) }

// ApplyToModel assigns each listed mesh its group.
func (c *SetMeshGroupsCommand) ApplyToModel(m *Model) {
	ids := lo.Keys(c.groups)
	sort.Ints(ids)
	for _, id := range ids {
		m.SetMeshGroup(id, c.groups[id])
	}
}

// GetUndoCommand restores the groups the meshes are in now.
func (c *SetMeshGroupsCommand) GetUndoCommand(m *Model) Command {
	old := make(map[int]int, len(c.groups))
	for id := range c.groups {
		old[id] = m.MustGetMesh(id).GroupID()
	}
	return &SetMeshGroupsCommand{groups: old}
}
