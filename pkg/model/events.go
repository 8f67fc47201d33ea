package model

import (
	"slices"
	"sync"

	"github.com/chazu/polyedit/pkg/mesh"
)

// events holds the subscriber lists. Handlers run synchronously on the
// goroutine that mutated the model, after the mutation completed.
type events struct {
	mu               sync.Mutex
	onMeshAdded      []func(*mesh.MMesh)
	onMeshChanged    []func(*mesh.MMesh)
	onMeshDeleted    []func(*mesh.MMesh)
	onCommandApplied []func(Command)
	onUndo           []func(Command)
	onRedo           []func(Command)
	validators       []func(Command) bool
}

// OnMeshAdded subscribes to mesh additions.
func (m *Model) OnMeshAdded(fn func(*mesh.MMesh)) {
	m.events.mu.Lock()
	m.events.onMeshAdded = append(m.events.onMeshAdded, fn)
	m.events.mu.Unlock()
}

// OnMeshChanged subscribes to in-place geometry and transform changes.
func (m *Model) OnMeshChanged(fn func(*mesh.MMesh)) {
	m.events.mu.Lock()
	m.events.onMeshChanged = append(m.events.onMeshChanged, fn)
	m.events.mu.Unlock()
}

// OnMeshDeleted subscribes to mesh removals. The handler receives the mesh
// that was removed.
func (m *Model) OnMeshDeleted(fn func(*mesh.MMesh)) {
	m.events.mu.Lock()
	m.events.onMeshDeleted = append(m.events.onMeshDeleted, fn)
	m.events.mu.Unlock()
}

// OnCommandApplied subscribes to commands applied through ApplyCommand.
func (m *Model) OnCommandApplied(fn func(Command)) {
	m.events.mu.Lock()
	m.events.onCommandApplied = append(m.events.onCommandApplied, fn)
	m.events.mu.Unlock()
}

// OnUndo subscribes to undo steps. The handler receives the command that
// was applied to undo.
func (m *Model) OnUndo(fn func(Command)) {
	m.events.mu.Lock()
	m.events.onUndo = append(m.events.onUndo, fn)
	m.events.mu.Unlock()
}

// OnRedo subscribes to redo steps.
func (m *Model) OnRedo(fn func(Command)) {
	m.events.mu.Lock()
	m.events.onRedo = append(m.events.onRedo, fn)
	m.events.mu.Unlock()
}

// OnValidateCommand registers a predicate consulted before every command.
// A false result vetoes the command.
func (m *Model) OnValidateCommand(fn func(Command) bool) {
	m.events.mu.Lock()
	m.events.validators = append(m.events.validators, fn)
	m.events.mu.Unlock()
}

func (e *events) snapshotMesh(list *[]func(*mesh.MMesh)) []func(*mesh.MMesh) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(*list)
}

func (e *events) snapshotCommand(list *[]func(Command)) []func(Command) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(*list)
}

func (e *events) meshAdded(mm *mesh.MMesh) {
	for _, fn := range e.snapshotMesh(&e.onMeshAdded) {
		fn(mm)
	}
}

func (e *events) meshChanged(mm *mesh.MMesh) {
	for _, fn := range e.snapshotMesh(&e.onMeshChanged) {
		fn(mm)
	}
}

func (e *events) meshDeleted(mm *mesh.MMesh) {
	for _, fn := range e.snapshotMesh(&e.onMeshDeleted) {
		fn(mm)
	}
}

func (e *events) commandApplied(cmd Command) {
	for _, fn := range e.snapshotCommand(&e.onCommandApplied) {
		fn(cmd)
	}
}

func (e *events) undone(cmd Command) {
	for _, fn := range e.snapshotCommand(&e.onUndo) {
		fn(cmd)
	}
}

func (e *events) redone(cmd Command) {
	for _, fn := range e.snapshotCommand(&e.onRedo) {
		fn(cmd)
	}
}

func (e *events) validate(cmd Command) bool {
	e.mu.Lock()
	validators := append([]func(Command) bool(nil), e.validators...)
	e.mu.Unlock()
	for _, fn := range validators {
		if !fn(cmd) {
			return false
		}
	}
	return true
}
