package spatial

import (
	"context"
	"sync"

	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

// EventSource publishes mesh lifecycle events. *model.Model satisfies it.
type EventSource interface {
	OnMeshAdded(func(*mesh.MMesh))
	OnMeshChanged(func(*mesh.MMesh))
	OnMeshDeleted(func(*mesh.MMesh))
}

type updateKind int

const (
	updateAdd updateKind = iota
	updateRemove
)

type update struct {
	kind   updateKind
	meshID int
	mesh   *mesh.MMesh
}

// Updater applies scene changes to an Index on a background goroutine.
// Event handlers only copy the mesh and queue the work, so the editing
// goroutine never waits for the index.
type Updater struct {
	idx *Index

	mu      sync.Mutex
	pending []update
	wake    chan struct{}

	// applyMu keeps passes from Run and Drain from interleaving.
	applyMu sync.Mutex
}

// NewUpdater returns an updater feeding idx.
func NewUpdater(idx *Index) *Updater {
	return &Updater{idx: idx, wake: make(chan struct{}, 1)}
}

// Attach subscribes to src. A deleted mesh is condemned immediately, before
// its removal is queued.
func (u *Updater) Attach(src EventSource) {
	src.OnMeshAdded(func(mm *mesh.MMesh) { u.enqueue(update{kind: updateAdd, meshID: mm.ID(), mesh: mm.Clone()}) })
	src.OnMeshChanged(func(mm *mesh.MMesh) { u.enqueue(update{kind: updateAdd, meshID: mm.ID(), mesh: mm.Clone()}) })
	src.OnMeshDeleted(func(mm *mesh.MMesh) {
		u.idx.CondemnMesh(mm.ID())
		u.enqueue(update{kind: updateRemove, meshID: mm.ID()})
	})
}

func (u *Updater) enqueue(up update) {
	u.mu.Lock()
	u.pending = append(u.pending, up)
	u.mu.Unlock()
	select {
	case u.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued updates.
func (u *Updater) Pending() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.pending)
}

// Run applies queued updates until ctx is done. It returns nil on
// cancellation.
func (u *Updater) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-u.wake:
			u.Drain()
		}
	}
}

// Drain applies every queued update on the calling goroutine and returns
// how many it applied.
func (u *Updater) Drain() int {
	u.applyMu.Lock()
	defer u.applyMu.Unlock()

	u.mu.Lock()
	batch := u.pending
	u.pending = nil
	u.mu.Unlock()

	for _, up := range batch {
		switch up.kind {
		case updateAdd:
			u.idx.AddMesh(up.mesh)
		case updateRemove:
			u.idx.RemoveMesh(up.meshID)
		}
	}
	if len(batch) > 0 {
		logger().Debug("spatial: index pass", "updates", len(batch))
	}
	return len(batch)
}

// FindMeshesClosestTo applies every queued update and then queries the
// index, so callers on the editing goroutine see their own latest edits.
func (u *Updater) FindMeshesClosestTo(point mgl64.Vec3, radius float64) ([]int, bool) {
	u.Drain()
	return u.idx.FindMeshesClosestTo(point, radius)
}
