package model

// Command is a reversible edit of the model. A command is an immutable value
// holding exactly what it needs to apply itself and to build its inverse.
//
// GetUndoCommand reads the current model state, so it must be called before
// ApplyToModel: the inverse of a face property change, for example, is the
// property values the faces carry right now.
type Command interface {
	ApplyToModel(m *Model)
	GetUndoCommand(m *Model) Command
}

// CompositeCommand applies several commands in order as one undo step.
type CompositeCommand struct {
	commands []Command
	// batch marks composites grown by the history batching window; only
	// those are extended in place.
	batch bool
}

// NewCompositeCommand groups commands into one step.
func NewCompositeCommand(commands ...Command) *CompositeCommand {
	return &CompositeCommand{commands: append([]Command(nil), commands...)}
}

// Commands returns the grouped commands in application order.
func (c *CompositeCommand) Commands() []Command {
	return append([]Command(nil), c.commands...)
}

// Len returns the number of grouped commands.
func (c *CompositeCommand) Len() int { return len(c.commands) }

// ApplyToModel applies the grouped commands in order.
func (c *CompositeCommand) ApplyToModel(m *Model) {
	for _, cmd := range c.commands {
		cmd.ApplyToModel(m)
	}
}

// GetUndoCommand inverts every grouped command against the current state and
// reverses the order. It is exact only when the grouped commands touch
// disjoint state; Model's history captures dependent steps one at a time
// through applyCapturingUndo instead.
func (c *CompositeCommand) GetUndoCommand(m *Model) Command {
	undo := make([]Command, len(c.commands))
	for i, cmd := range c.commands {
		undo[len(c.commands)-1-i] = cmd.GetUndoCommand(m)
	}
	return &CompositeCommand{commands: undo}
}
