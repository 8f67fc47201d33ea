package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/chazu/polyedit/pkg/config"
	"github.com/chazu/polyedit/pkg/mesh"
	"github.com/chazu/polyedit/pkg/model"
	"github.com/chazu/polyedit/pkg/script"
	"github.com/chazu/polyedit/pkg/spatial"
	"github.com/chazu/polyedit/pkg/tessellate"
)

// colorPalette assigns distinct colors to meshes in report order.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// MeshData summarises one mesh of the evaluated scene.
type MeshData struct {
	ID        int      `yaml:"id"`
	Name      string   `yaml:"name"`
	Faces     int      `yaml:"faces"`
	Vertices  int      `yaml:"vertices"`
	Triangles int      `yaml:"triangles"`
	Group     int      `yaml:"group,omitempty"`
	Color     string   `yaml:"color"`
	Overlaps  []int    `yaml:"overlaps,omitempty"`
	Problems  []string `yaml:"problems,omitempty"`
}

// EvalErrorData is an eval error in report form.
type EvalErrorData struct {
	Line    int    `yaml:"line,omitempty"`
	Message string `yaml:"message"`
}

func (e EvalErrorData) String() string {
	if e.Line > 0 {
		return fmt.Sprintf("error (line %d): %s", e.Line, e.Message)
	}
	return "error: " + e.Message
}

// EvalResult is the full report of one evaluation.
type EvalResult struct {
	Value     string          `yaml:"value,omitempty"`
	Applied   int             `yaml:"applied"`
	UndoSteps int             `yaml:"undo_steps"`
	RedoSteps int             `yaml:"redo_steps"`
	Meshes    []MeshData      `yaml:"meshes"`
	Errors    []EvalErrorData `yaml:"errors,omitempty"`
}

// Invalid counts the meshes that reported a problem.
func (r EvalResult) Invalid() int {
	n := 0
	for _, m := range r.Meshes {
		if len(m.Problems) > 0 {
			n++
		}
	}
	return n
}

// currentScene forwards index existence checks to whichever model the
// latest evaluation built.
type currentScene struct {
	m atomic.Pointer[model.Model]
}

func (s *currentScene) HasMesh(id int) bool {
	if m := s.m.Load(); m != nil {
		return m.HasMesh(id)
	}
	return false
}

func (s *currentScene) IsMeshHidden(id int) bool {
	if m := s.m.Load(); m != nil {
		return m.IsMeshHidden(id)
	}
	return false
}

// App evaluates scripts into fresh models while one spatial index, kept
// current by the updater, follows whichever model is live.
type App struct {
	cfg     config.Config
	scene   *currentScene
	index   *spatial.Index
	updater *spatial.Updater
	model   *model.Model
	logger  *slog.Logger
}

// NewApp builds the index and updater described by cfg.
func NewApp(cfg config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	scene := &currentScene{}
	idx := cfg.NewIndex(scene)
	return &App{
		cfg:     cfg,
		scene:   scene,
		index:   idx,
		updater: spatial.NewUpdater(idx),
		logger:  logger,
	}
}

// Updater returns the updater whose Run loop keeps the index current.
func (a *App) Updater() *spatial.Updater { return a.updater }

// Model returns the model of the latest evaluation, or nil before the
// first one.
func (a *App) Model() *model.Model { return a.model }

// Evaluate runs source against a fresh model and reports the scene it
// built. Only one goroutine may call Evaluate.
func (a *App) Evaluate(ctx context.Context, source string) EvalResult {
	result := EvalResult{
		Meshes: []MeshData{},
		Errors: []EvalErrorData{},
	}

	a.updater.Drain()
	a.index.Reset()
	m := model.New(a.cfg.ModelOptions())
	a.scene.m.Store(m)
	a.updater.Attach(m)
	a.model = m

	eng := script.NewEngine(a.cfg.ScriptOptions(a.updater))
	res, err := eng.Evaluate(ctx, source, m)
	if err != nil {
		a.logger.Error("evaluate failed", "err", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	for _, e := range res.Errors {
		result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Message: e.Message})
	}
	result.Value = res.Value
	result.Applied = res.Applied
	result.UndoSteps = len(m.GetUndoStack())
	result.RedoSteps = len(m.GetRedoStack())

	a.updater.Drain()
	for i, mm := range m.GetAllMeshes() {
		result.Meshes = append(result.Meshes, a.describe(mm, colorPalette[i%len(colorPalette)]))
	}
	a.logger.Debug("evaluated", "meshes", len(result.Meshes), "applied", result.Applied, "errors", len(result.Errors))
	return result
}

func (a *App) describe(mm *mesh.MMesh, color string) MeshData {
	buf := tessellate.Tessellate(mm)
	d := MeshData{
		ID:        mm.ID(),
		Name:      buf.Name,
		Faces:     mm.FaceCount(),
		Vertices:  mm.VertexCount(),
		Triangles: buf.TriangleCount(),
		Group:     mm.GroupID(),
		Color:     color,
	}
	if ids, ok := a.index.FindIntersectingMeshes(mm); ok {
		d.Overlaps = ids
	}
	for _, e := range mesh.Validate(mm) {
		if e.Severity == mesh.SeverityError {
			d.Problems = append(d.Problems, e.Message)
		}
	}
	if len(d.Problems) == 0 && !a.cfg.ValidatorOptions().IsValidMesh(mm, nil) {
		d.Problems = append(d.Problems, "exposes a back face")
	}
	return d
}
