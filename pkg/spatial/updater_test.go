package spatial

import (
	"context"
	"testing"
	"time"

	"github.com/chazu/polyedit/pkg/model"
	"github.com/go-gl/mathgl/mgl64"
)

func attachedIndex() (*model.Model, *Index, *Updater) {
	opts := model.DefaultOptions()
	opts.BatchFrequency = 0
	m := model.New(opts)
	idx := New(m, opts.SceneBounds, BackendRTree)
	u := NewUpdater(idx)
	u.Attach(m)
	return m, idx, u
}

func TestUpdaterCondemnsBeforeRemoval(t *testing.T) {
	m, idx, u := attachedIndex()

	m.ApplyCommand(model.NewAddMeshCommand(box(1, mgl64.Vec3{}, 1)))
	if idx.HasMeshIndexed(1) {
		t.Fatal("mesh indexed before the updater ran")
	}
	if n := u.Drain(); n != 1 {
		t.Fatalf("Drain applied %d updates, want 1", n)
	}
	if id, ok := idx.FindNearestMeshTo(mgl64.Vec3{}, 1); !ok || id != 1 {
		t.Fatalf("FindNearestMeshTo = %d, %v", id, ok)
	}

	m.ApplyCommand(model.NewDeleteMeshCommand(1))
	if !idx.IsCondemned(1) || !idx.HasMeshIndexed(1) {
		t.Fatalf("after delete: condemned=%v indexed=%v", idx.IsCondemned(1), idx.HasMeshIndexed(1))
	}
	if _, ok := idx.FindNearestMeshTo(mgl64.Vec3{}, 1); ok {
		t.Error("deleted mesh returned before the index caught up")
	}
	u.Drain()
	if idx.IsCondemned(1) || idx.HasMeshIndexed(1) {
		t.Error("removal not applied")
	}

	m.Undo()
	u.Drain()
	if _, ok := idx.FindNearestMeshTo(mgl64.Vec3{}, 1); !ok {
		t.Error("restored mesh not found")
	}
}

func TestUpdaterTracksMoves(t *testing.T) {
	m, idx, u := attachedIndex()
	m.ApplyCommand(model.NewAddMeshCommand(box(1, mgl64.Vec3{}, 1)))
	m.ApplyCommand(model.NewMoveMeshCommand(1, mgl64.Vec3{5, 0, 0}, mgl64.QuatIdent()))
	u.Drain()

	if _, ok := idx.FindFacesClosestTo(mgl64.Vec3{5, 0.6, 0}, 0.5); !ok {
		t.Error("face not found where the mesh moved")
	}
	if _, ok := idx.FindFacesClosestTo(mgl64.Vec3{0, 0.6, 0}, 0.5); ok {
		t.Error("face found where the mesh used to be")
	}
}

func TestUpdaterFindCatchesUp(t *testing.T) {
	m, idx, u := attachedIndex()
	m.ApplyCommand(model.NewAddMeshCommand(box(1, mgl64.Vec3{}, 1)))
	if _, ok := idx.FindMeshesClosestTo(mgl64.Vec3{}, 1); ok {
		t.Fatal("index answered before draining")
	}
	if ids, ok := u.FindMeshesClosestTo(mgl64.Vec3{}, 1); !ok || len(ids) != 1 || ids[0] != 1 {
		t.Errorf("FindMeshesClosestTo = %v, %v", ids, ok)
	}
	if u.Pending() != 0 {
		t.Errorf("Pending = %d", u.Pending())
	}
}

func TestUpdaterRun(t *testing.T) {
	m, idx, u := attachedIndex()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- u.Run(ctx) }()

	m.ApplyCommand(model.NewAddMeshCommand(box(1, mgl64.Vec3{}, 1)))
	deadline := time.Now().Add(5 * time.Second)
	for !idx.HasMeshIndexed(1) {
		if time.Now().After(deadline) {
			t.Fatal("background updater never indexed the mesh")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v", err)
	}
	if u.Pending() != 0 {
		t.Errorf("Pending = %d", u.Pending())
	}
}
