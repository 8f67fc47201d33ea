// Package model holds the scene: every mesh, the groups they belong to, the
// render ownership of each mesh and the command history with batched
// undo and redo. All mutation happens on one goroutine through
// ApplyCommand, Undo and Redo; the existence checks HasMesh, GetMesh and
// IsMeshHidden may be called from any goroutine.
package model

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/invariant"
	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/chazu/polyedit/pkg/meshfix"
	"github.com/chazu/polyedit/pkg/meshvalidate"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	// DefaultUndoStackMaxSize bounds the undo stack; the oldest half is
	// dropped when it overflows.
	DefaultUndoStackMaxSize = 80
	// DefaultBatchFrequency is the window within which consecutive commands
	// share one undo step.
	DefaultBatchFrequency = 500 * time.Millisecond
)

var pkgLogger atomic.Pointer[slog.Logger]

// SetLogger sets the logger used by the package. nil restores slog.Default.
func SetLogger(l *slog.Logger) {
	pkgLogger.Store(l)
}

func logger() *slog.Logger {
	if l := pkgLogger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// Owner identifies a renderer claiming a mesh.
type Owner string

// Options configures a Model.
type Options struct {
	UndoStackMaxSize int
	BatchFrequency   time.Duration
	// SceneBounds limits where meshes may be added.
	SceneBounds geom.Bounds
	// Clock drives the batching window. nil uses time.Now.
	Clock func() time.Time
	// Fixer repairs meshes after vertex edits. nil uses meshfix.DefaultFixer.
	Fixer *meshfix.Fixer
	// Validator rejects vertex edits that expose a back face. The zero
	// value uses meshvalidate.DefaultOptions.
	Validator meshvalidate.Options
}

// DefaultOptions returns the stock history settings and a 100 unit scene
// centred on the origin.
func DefaultOptions() Options {
	return Options{
		UndoStackMaxSize: DefaultUndoStackMaxSize,
		BatchFrequency:   DefaultBatchFrequency,
		SceneBounds:      geom.NewBounds(mgl64.Vec3{}, mgl64.Vec3{100, 100, 100}),
		Clock:            time.Now,
		Fixer:            meshfix.DefaultFixer(),
		Validator:        meshvalidate.DefaultOptions(),
	}
}

// Model is the scene aggregate.
type Model struct {
	opts Options

	// mu guards the maps read by other goroutines. It is held only for the
	// map access itself; events fire after it is released.
	mu       sync.RWMutex
	meshes   map[int]*mesh.MMesh
	groups   map[int]map[int]struct{}
	hidden   map[int]struct{}
	marked   map[int]struct{}
	owners   map[int]Owner
	images   map[uuid.UUID]ReferenceImage
	viewer   VideoViewer
	writable bool

	nextMeshID  int
	nextGroupID int

	history history
	events  events
}

// New returns an empty writeable model.
func New(opts Options) *Model {
	if opts.UndoStackMaxSize <= 0 {
		opts.UndoStackMaxSize = DefaultUndoStackMaxSize
	}
	if opts.BatchFrequency < 0 {
		opts.BatchFrequency = 0
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Fixer == nil {
		opts.Fixer = meshfix.DefaultFixer()
	}
	if opts.Validator == (meshvalidate.Options{}) {
		opts.Validator = meshvalidate.DefaultOptions()
	}
	return &Model{
		opts:        opts,
		meshes:      make(map[int]*mesh.MMesh),
		groups:      make(map[int]map[int]struct{}),
		hidden:      make(map[int]struct{}),
		marked:      make(map[int]struct{}),
		owners:      make(map[int]Owner),
		images:      make(map[uuid.UUID]ReferenceImage),
		viewer:      VideoViewer{Rotation: mgl64.QuatIdent()},
		writable:    true,
		nextMeshID:  1,
		nextGroupID: 1,
	}
}

// Options returns the configuration the model was built with.
func (m *Model) Options() Options { return m.opts }

// SetWriteable allows or forbids mutation. Mutating a read-only model is an
// invariant violation.
func (m *Model) SetWriteable(w bool) {
	m.mu.Lock()
	m.writable = w
	m.mu.Unlock()
}

// IsWriteable reports whether the model accepts mutation.
func (m *Model) IsWriteable() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writable
}

func (m *Model) checkWriteable() {
	invariant.Check(m.IsWriteable(), "model: mutation of a read-only model")
}

// --- Meshes ---

// AddMesh registers a mesh under its id and fires OnMeshAdded. Adding an id
// that is already present is an invariant violation.
func (m *Model) AddMesh(mm *mesh.MMesh) {
	m.checkWriteable()
	m.mu.Lock()
	_, exists := m.meshes[mm.ID()]
	if !exists {
		m.meshes[mm.ID()] = mm
		if g := mm.GroupID(); g != mesh.GroupNone {
			m.addToGroupLocked(g, mm.ID())
		}
		if mm.ID() >= m.nextMeshID {
			m.nextMeshID = mm.ID() + 1
		}
	}
	m.mu.Unlock()
	invariant.Check(!exists, "model: mesh %d already exists", mm.ID())

	logger().Debug("model: mesh added", "mesh", mm.ID())
	m.events.meshAdded(mm)
}

// DeleteMesh removes a mesh with its group membership, hidden and deletion
// marks and owner, then fires OnMeshDeleted.
func (m *Model) DeleteMesh(id int) {
	m.checkWriteable()
	m.mu.Lock()
	mm, ok := m.meshes[id]
	if ok {
		delete(m.meshes, id)
		m.removeFromGroupLocked(mm.GroupID(), id)
		delete(m.hidden, id)
		delete(m.marked, id)
		delete(m.owners, id)
	}
	m.mu.Unlock()
	invariant.Check(ok, "model: delete of missing mesh %d", id)

	logger().Debug("model: mesh deleted", "mesh", id)
	m.events.meshDeleted(mm)
}

// ReplaceMesh swaps in a new mesh for an existing id, keeping its group.
func (m *Model) ReplaceMesh(mm *mesh.MMesh) {
	m.checkWriteable()
	m.mu.Lock()
	old, ok := m.meshes[mm.ID()]
	if ok {
		mm.SetGroupID(old.GroupID())
		m.meshes[mm.ID()] = mm
	}
	m.mu.Unlock()
	invariant.Check(ok, "model: replace of missing mesh %d", mm.ID())
	m.MeshChanged(mm.ID())
}

// MeshChanged fires OnMeshChanged for a mesh whose geometry or transform
// changed in place.
func (m *Model) MeshChanged(id int) {
	mm, ok := m.GetMesh(id)
	invariant.Check(ok, "model: change of missing mesh %d", id)
	m.events.meshChanged(mm)
}

// GetMesh returns the mesh with the given id.
func (m *Model) GetMesh(id int) (*mesh.MMesh, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mm, ok := m.meshes[id]
	return mm, ok
}

// MustGetMesh returns the mesh or raises an invariant violation.
func (m *Model) MustGetMesh(id int) *mesh.MMesh {
	mm, ok := m.GetMesh(id)
	invariant.Check(ok, "model: no mesh %d", id)
	return mm
}

// HasMesh reports whether the mesh exists. It is the authoritative existence
// check for readers on other goroutines.
func (m *Model) HasMesh(id int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.meshes[id]
	return ok
}

// GetAllMeshes returns every mesh in ascending id order.
func (m *Model) GetAllMeshes() []*mesh.MMesh {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := lo.Values(m.meshes)
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// MeshIDs returns every mesh id, ascending.
func (m *Model) MeshIDs() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := lo.Keys(m.meshes)
	sort.Ints(ids)
	return ids
}

// MeshCount returns the number of meshes.
func (m *Model) MeshCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.meshes)
}

// GenerateMeshID returns an id no mesh uses and reserves it.
func (m *Model) GenerateMeshID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		id := m.nextMeshID
		m.nextMeshID++
		if _, used := m.meshes[id]; !used {
			return id
		}
	}
}

// CanAddMesh reports whether the mesh fits inside the scene bounds. Zero
// scene bounds leave the scene unlimited.
func (m *Model) CanAddMesh(mm *mesh.MMesh) bool {
	if m.opts.SceneBounds == (geom.Bounds{}) {
		return true
	}
	return m.opts.SceneBounds.ContainsBounds(mm.Bounds())
}

// --- Visibility and deletion marks ---

// HideMesh hides a mesh from queries and rendering.
func (m *Model) HideMesh(id int) {
	m.checkWriteable()
	m.mu.Lock()
	m.hidden[id] = struct{}{}
	m.mu.Unlock()
}

// ShowMesh reverses HideMesh.
func (m *Model) ShowMesh(id int) {
	m.checkWriteable()
	m.mu.Lock()
	delete(m.hidden, id)
	m.mu.Unlock()
}

// IsMeshHidden reports whether the mesh is hidden.
func (m *Model) IsMeshHidden(id int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.hidden[id]
	return ok
}

// MarkMeshForDeletion flags a mesh a tool is about to delete.
func (m *Model) MarkMeshForDeletion(id int) {
	m.mu.Lock()
	m.marked[id] = struct{}{}
	m.mu.Unlock()
}

// UnmarkMeshForDeletion clears the flag.
func (m *Model) UnmarkMeshForDeletion(id int) {
	m.mu.Lock()
	delete(m.marked, id)
	m.mu.Unlock()
}

// IsMeshMarkedForDeletion reports whether the mesh is flagged.
func (m *Model) IsMeshMarkedForDeletion(id int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.marked[id]
	return ok
}

// --- Groups ---

// GenerateGroupID returns a fresh group id. The group exists once a mesh
// is assigned to it.
func (m *Model) GenerateGroupID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		id := m.nextGroupID
		m.nextGroupID++
		if _, used := m.groups[id]; !used && id != mesh.GroupNone {
			return id
		}
	}
}

// SetMeshGroup moves a mesh into a group, or out of every group with
// mesh.GroupNone. Empty groups are dropped.
func (m *Model) SetMeshGroup(meshID, groupID int) {
	m.checkWriteable()
	m.mu.Lock()
	mm, ok := m.meshes[meshID]
	if ok {
		m.removeFromGroupLocked(mm.GroupID(), meshID)
		mm.SetGroupID(groupID)
		if groupID != mesh.GroupNone {
			m.addToGroupLocked(groupID, meshID)
		}
	}
	m.mu.Unlock()
	invariant.Check(ok, "model: group change of missing mesh %d", meshID)
}

// GetMeshGroup returns the meshes of a group in ascending id order.
func (m *Model) GetMeshGroup(groupID int) []*mesh.MMesh {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*mesh.MMesh
	for _, id := range sortedIDs(m.groups[groupID]) {
		out = append(out, m.meshes[id])
	}
	return out
}

// GroupMembers returns the mesh ids of a group, ascending.
func (m *Model) GroupMembers(groupID int) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedIDs(m.groups[groupID])
}

// GetAllGroups returns every non-empty group id, ascending.
func (m *Model) GetAllGroups() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := lo.Keys(m.groups)
	sort.Ints(ids)
	return ids
}

func (m *Model) addToGroupLocked(groupID, meshID int) {
	members, ok := m.groups[groupID]
	if !ok {
		members = make(map[int]struct{})
		m.groups[groupID] = members
	}
	members[meshID] = struct{}{}
}

func (m *Model) removeFromGroupLocked(groupID, meshID int) {
	if groupID == mesh.GroupNone {
		return
	}
	members := m.groups[groupID]
	delete(members, meshID)
	if len(members) == 0 {
		delete(m.groups, groupID)
	}
}

// --- Render ownership ---

// ClaimMesh gives owner exclusive render ownership of a mesh. It fails when
// another owner holds it.
func (m *Model) ClaimMesh(id int, owner Owner) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.meshes[id]; !ok {
		return false
	}
	if cur, held := m.owners[id]; held && cur != owner {
		return false
	}
	m.owners[id] = owner
	return true
}

// RelinquishMesh releases ownership held by owner.
func (m *Model) RelinquishMesh(id int, owner Owner) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, held := m.owners[id]; !held || cur != owner {
		return false
	}
	delete(m.owners, id)
	return true
}

// MeshOwner returns the current owner of a mesh.
func (m *Model) MeshOwner(id int) (Owner, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.owners[id]
	return o, ok
}

func sortedIDs(set map[int]struct{}) []int {
	ids := lo.Keys(set)
	sort.Ints(ids)
	return ids
}
