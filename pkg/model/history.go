package model

import (
	"time"

	"github.com/chazu/polyedit/pkg/invariant"
)

// history is the forward log and the undo and redo stacks. The undo stack
// holds inverse commands: popping and applying the top entry undoes the
// latest step.
type history struct {
	all       []Command
	undo      []Command
	redo      []Command
	lastApply time.Time
	// open is true while the latest step may still absorb commands.
	open bool
}

// ApplyCommand validates and applies cmd. The redo stack is cleared and cmd
// is recorded for undo, merged into the previous step when it arrives
// within the batching window. It returns false, leaving the model
// untouched, when a validator vetoes the command.
func (m *Model) ApplyCommand(cmd Command) bool {
	if !m.events.validate(cmd) {
		logger().Debug("model: command vetoed", "command", commandName(cmd))
		return false
	}
	m.checkWriteable()

	h := &m.history
	h.redo = nil
	now := m.opts.Clock()
	batch := h.open && len(h.undo) > 0 && now.Sub(h.lastApply) < m.opts.BatchFrequency

	undo := m.applyCapturingUndo(cmd)
	if batch {
		m.extendLastStep(cmd, undo)
	} else {
		h.all = append(h.all, cmd)
		m.pushUndo(undo)
	}
	h.lastApply = now
	h.open = true

	logger().Debug("model: command applied", "command", commandName(cmd), "batched", batch, "undo_depth", len(h.undo))
	m.events.commandApplied(cmd)
	return true
}

// applyCapturingUndo applies cmd and returns its inverse. The inverse of
// every step of a composite is captured just before that step runs, so
// composites whose steps depend on each other invert exactly.
func (m *Model) applyCapturingUndo(cmd Command) Command {
	if c, ok := cmd.(*CompositeCommand); ok {
		undo := make([]Command, len(c.commands))
		for i, sub := range c.commands {
			undo[len(c.commands)-1-i] = m.applyCapturingUndo(sub)
		}
		return &CompositeCommand{commands: undo}
	}
	undo := cmd.GetUndoCommand(m)
	cmd.ApplyToModel(m)
	return undo
}

// extendLastStep merges cmd into the latest forward entry and its inverse
// into the top of the undo stack, ahead of the inverses already there.
func (m *Model) extendLastStep(cmd, undo Command) {
	h := &m.history
	last := len(h.all) - 1
	if c, ok := h.all[last].(*CompositeCommand); ok && c.batch {
		c.commands = append(c.commands, cmd)
	} else {
		h.all[last] = &CompositeCommand{commands: []Command{h.all[last], cmd}, batch: true}
	}

	top := len(h.undo) - 1
	if c, ok := h.undo[top].(*CompositeCommand); ok && c.batch {
		c.commands = append([]Command{undo}, c.commands...)
	} else {
		h.undo[top] = &CompositeCommand{commands: []Command{undo, h.undo[top]}, batch: true}
	}
}

func (m *Model) pushUndo(undo Command) {
	h := &m.history
	h.undo = append(h.undo, undo)
	if max := m.opts.UndoStackMaxSize; len(h.undo) > max {
		drop := len(h.undo) / 2
		h.undo = append([]Command(nil), h.undo[drop:]...)
		logger().Debug("model: undo stack trimmed", "dropped", drop)
	}
}

// EndBatch closes the current batching window; the next command starts a
// new undo step.
func (m *Model) EndBatch() {
	m.history.open = false
}

// CanUndo reports whether an undo step is available.
func (m *Model) CanUndo() bool { return len(m.history.undo) > 0 }

// CanRedo reports whether a redo step is available.
func (m *Model) CanRedo() bool { return len(m.history.redo) > 0 }

// Undo reverts the latest step and makes it available to Redo. The applied
// inverse is recorded in the forward log.
func (m *Model) Undo() bool {
	h := &m.history
	if len(h.undo) == 0 {
		return false
	}
	m.checkWriteable()
	h.open = false

	undo := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	redo := m.applyCapturingUndo(undo)
	h.redo = append(h.redo, redo)
	h.all = append(h.all, undo)

	logger().Debug("model: undo", "command", commandName(undo), "undo_depth", len(h.undo))
	m.events.undone(undo)
	return true
}

// Redo reapplies the latest undone step.
func (m *Model) Redo() bool {
	h := &m.history
	if len(h.redo) == 0 {
		return false
	}
	m.checkWriteable()
	h.open = false

	redo := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	undo := m.applyCapturingUndo(redo)
	m.pushUndo(undo)
	h.all = append(h.all, redo)

	logger().Debug("model: redo", "command", commandName(redo), "undo_depth", len(h.undo))
	m.events.redone(redo)
	return true
}

// GetAllCommands returns every command applied so far, undo and redo steps
// included, oldest first.
func (m *Model) GetAllCommands() []Command {
	return append([]Command(nil), m.history.all...)
}

// GetUndoStack returns the inverse commands, bottom of the stack first.
func (m *Model) GetUndoStack() []Command {
	return append([]Command(nil), m.history.undo...)
}

// GetRedoStack returns the redo commands, bottom of the stack first.
func (m *Model) GetRedoStack() []Command {
	return append([]Command(nil), m.history.redo...)
}

// ClearHistory drops the forward log and both stacks.
func (m *Model) ClearHistory() {
	invariant.Check(m.IsWriteable(), "model: history cleared on a read-only model")
	m.history = history{}
}
