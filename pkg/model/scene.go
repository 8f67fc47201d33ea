package model

import (
	"sort"

	"github.com/chazu/polyedit/pkg/invariant"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ReferenceImage is an image placed in the scene as a modelling guide.
type ReferenceImage struct {
	ID       uuid.UUID  `json:"id" yaml:"id"`
	Path     string     `json:"path" yaml:"path"`
	Position mgl64.Vec3 `json:"position" yaml:"position"`
	Rotation mgl64.Quat `json:"rotation" yaml:"rotation"`
	Scale    float64    `json:"scale" yaml:"scale"`
}

// NewReferenceImage places the image at position with a fresh id.
func NewReferenceImage(path string, position mgl64.Vec3, rotation mgl64.Quat, scale float64) ReferenceImage {
	return ReferenceImage{ID: uuid.New(), Path: path, Position: position, Rotation: rotation, Scale: scale}
}

// VideoViewer is the placement and visibility of the in-scene video panel.
type VideoViewer struct {
	Visible  bool
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// ReferenceImages returns every reference image ordered by id.
func (m *Model) ReferenceImages() []ReferenceImage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := lo.Values(m.images)
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// GetReferenceImage returns the image with the given id.
func (m *Model) GetReferenceImage(id uuid.UUID) (ReferenceImage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.images[id]
	return img, ok
}

func (m *Model) addReferenceImage(img ReferenceImage) {
	m.checkWriteable()
	m.mu.Lock()
	_, exists := m.images[img.ID]
	if !exists {
		m.images[img.ID] = img
	}
	m.mu.Unlock()
	invariant.Check(!exists, "model: reference image %s already exists", img.ID)
}

func (m *Model) deleteReferenceImage(id uuid.UUID) ReferenceImage {
	m.checkWriteable()
	m.mu.Lock()
	img, ok := m.images[id]
	delete(m.images, id)
	m.mu.Unlock()
	invariant.Check(ok, "model: delete of missing reference image %s", id)
	return img
}

// VideoViewer returns the current video panel state.
func (m *Model) VideoViewer() VideoViewer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.viewer
}

func (m *Model) setVideoViewer(v VideoViewer) {
	m.checkWriteable()
	m.mu.Lock()
	m.viewer = v
	m.mu.Unlock()
}

// AddReferenceImageCommand adds a reference image.
type AddReferenceImageCommand struct {
	image ReferenceImage
}

// NewAddReferenceImageCommand adds img.
func NewAddReferenceImageCommand(img ReferenceImage) *AddReferenceImageCommand {
	return &AddReferenceImageCommand{image: img}
}

// ApplyToModel stores the image.
func (c *AddReferenceImageCommand) ApplyToModel(m *Model) { m.addReferenceImage(c.image) }

// GetUndoCommand deletes the image again.
func (c *AddReferenceImageCommand) GetUndoCommand(m *Model) Command {
	return &DeleteReferenceImageCommand{id: c.image.ID}
}

// DeleteReferenceImageCommand removes a reference image.
type DeleteReferenceImageCommand struct {
	id uuid.UUID
}

// NewDeleteReferenceImageCommand removes the image with the given id.
func NewDeleteReferenceImageCommand(id uuid.UUID) *DeleteReferenceImageCommand {
	return &DeleteReferenceImageCommand{id: id}
}

// ApplyToModel drops the image.
func (c *DeleteReferenceImageCommand) ApplyToModel(m *Model) { m.deleteReferenceImage(c.id) }

// GetUndoCommand re-adds the image as it is now.
func (c *DeleteReferenceImageCommand) GetUndoCommand(m *Model) Command {
	img, ok := m.GetReferenceImage(c.id)
	invariant.Check(ok, "model: no reference image %s", c.id)
	return &AddReferenceImageCommand{image: img}
}

// viewerCommand sets the whole video panel state; the hide, show and move
// commands differ only in how they derive the new state.
type viewerCommand struct {
	next func(VideoViewer) VideoViewer
}

// ApplyToModel sets the derived panel state.
func (c viewerCommand) ApplyToModel(m *Model) { m.setVideoViewer(c.next(m.VideoViewer())) }

// GetUndoCommand restores the current panel state.
func (c viewerCommand) GetUndoCommand(m *Model) Command {
	prev := m.VideoViewer()
	return &MoveVideoViewerCommand{viewerCommand{next: func(VideoViewer) VideoViewer { return prev }}}
}

// HideVideoViewerCommand hides the video panel.
type HideVideoViewerCommand struct{ viewerCommand }

// NewHideVideoViewerCommand hides the panel and keeps its placement.
func NewHideVideoViewerCommand() *HideVideoViewerCommand {
	return &HideVideoViewerCommand{viewerCommand{next: func(v VideoViewer) VideoViewer {
		v.Visible = false
		return v
	}}}
}

// ShowVideoViewerCommand shows the video panel where it was last placed.
type ShowVideoViewerCommand struct{ viewerCommand }

// NewShowVideoViewerCommand shows the panel.
func NewShowVideoViewerCommand() *ShowVideoViewerCommand {
	return &ShowVideoViewerCommand{viewerCommand{next: func(v VideoViewer) VideoViewer {
		v.Visible = true
		return v
	}}}
}

// MoveVideoViewerCommand places the video panel.
type MoveVideoViewerCommand struct{ viewerCommand }

// NewMoveVideoViewerCommand places the panel at position and rotation.
func NewMoveVideoViewerCommand(position mgl64.Vec3, rotation mgl64.Quat) *MoveVideoViewerCommand {
	return &MoveVideoViewerCommand{viewerCommand{next: func(v VideoViewer) VideoViewer {
		v.Position = position
		v.Rotation = rotation
		return v
	}}}
}
