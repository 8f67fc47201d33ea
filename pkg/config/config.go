// Package config loads polyedit's tuning constants from YAML. Every field
// has a default matching the constants of the package it feeds, so a
// missing file or a partial one is always usable.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/chazu/polyedit/pkg/geom"
	"github.com/chazu/polyedit/pkg/kernel/sdfx"
	"github.com/chazu/polyedit/pkg/meshfix"
	"github.com/chazu/polyedit/pkg/meshmath"
	"github.com/chazu/polyedit/pkg/meshvalidate"
	"github.com/chazu/polyedit/pkg/model"
	"github.com/chazu/polyedit/pkg/script"
	"github.com/chazu/polyedit/pkg/snap"
	"github.com/chazu/polyedit/pkg/spatial"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// Config is the root of a polyedit configuration file.
type Config struct {
	History   History   `yaml:"history"`
	Geometry  Geometry  `yaml:"geometry"`
	Snap      Snap      `yaml:"snap"`
	Validator Validator `yaml:"validator"`
	Spatial   Spatial   `yaml:"spatial"`
	Script    Script    `yaml:"script"`
}

// History tunes the undo stack and the scene extent.
type History struct {
	UndoStackMaxSize int           `yaml:"undo_stack_max_size"`
	BatchFrequency   time.Duration `yaml:"batch_frequency"`
	// SceneSize is the edge length of the cube, centred on the origin,
	// that meshes must fit in. Zero leaves the scene unbounded.
	SceneSize float64 `yaml:"scene_size"`
}

// Geometry holds the repair and adjacency tolerances.
type Geometry struct {
	MergeDistance               float64 `yaml:"merge_distance"`
	MaxCoplanarDistance         float64 `yaml:"max_coplanar_distance"`
	NearbyVertexFraction        float64 `yaml:"nearby_vertex_fraction"`
	CommonEdgeMinSharedVertices int     `yaml:"common_edge_min_shared_vertices"`
}

// Snap holds the snap thresholds, in world units before WorldScale applies.
type Snap struct {
	MeshCenterFactor  float64 `yaml:"mesh_center_factor"`
	StickThreshold    float64 `yaml:"stick_threshold"`
	FaceSnapThreshold float64 `yaml:"face_snap_threshold"`
	SearchMargin      float64 `yaml:"search_margin"`
	GridSize          float64 `yaml:"grid_size"`
	WorldScale        float64 `yaml:"world_scale"`
}

// Validator tunes the back-face check.
type Validator struct {
	Scale     float64 `yaml:"scale"`
	Bend      float64 `yaml:"bend"`
	Inflation float64 `yaml:"inflation"`
}

// Spatial picks the collision backend, "rtree" or "flat".
type Spatial struct {
	Backend string `yaml:"backend"`
}

// Script bounds script evaluation.
type Script struct {
	Timeout     time.Duration `yaml:"timeout"`
	KernelCells int           `yaml:"kernel_cells"`
}

// Default returns the stock configuration.
func Default() Config {
	v := meshvalidate.DefaultOptions()
	return Config{
		History: History{
			UndoStackMaxSize: model.DefaultUndoStackMaxSize,
			BatchFrequency:   model.DefaultBatchFrequency,
			SceneSize:        100,
		},
		Geometry: Geometry{
			MergeDistance:               meshmath.MergeDistance,
			MaxCoplanarDistance:         meshmath.MaxCoplanarDistance,
			NearbyVertexFraction:        meshmath.NearbyVertexFraction,
			CommonEdgeMinSharedVertices: meshmath.CommonEdgeMinSharedVertices,
		},
		Snap: Snap{
			MeshCenterFactor:  snap.MeshCenterFactor,
			StickThreshold:    snap.DefaultStickThreshold,
			FaceSnapThreshold: snap.DefaultFaceSnapThreshold,
			SearchMargin:      snap.DefaultSearchMargin,
			GridSize:          snap.DefaultGridSize,
			WorldScale:        1,
		},
		Validator: Validator{Scale: v.Scale, Bend: v.Bend, Inflation: v.Inflation},
		Spatial:   Spatial{Backend: string(spatial.BackendRTree)},
		Script: Script{
			Timeout:     script.DefaultTimeout,
			KernelCells: script.DefaultKernelCells,
		},
	}
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch {
	case c.History.UndoStackMaxSize <= 0:
		return errors.New("history.undo_stack_max_size must be positive")
	case c.History.BatchFrequency < 0:
		return errors.New("history.batch_frequency must not be negative")
	case c.History.SceneSize < 0:
		return errors.New("history.scene_size must not be negative")
	case c.Geometry.MergeDistance < 0 || c.Geometry.MaxCoplanarDistance < 0:
		return errors.New("geometry tolerances must not be negative")
	case c.Geometry.NearbyVertexFraction <= 0 || c.Geometry.NearbyVertexFraction > 1:
		return errors.New("geometry.nearby_vertex_fraction must be in (0, 1]")
	case c.Geometry.CommonEdgeMinSharedVertices < 2:
		return errors.New("geometry.common_edge_min_shared_vertices must be at least 2")
	case c.Snap.WorldScale <= 0:
		return errors.New("snap.world_scale must be positive")
	case c.Validator.Scale <= 0 || c.Validator.Inflation <= 0:
		return errors.New("validator.scale and validator.inflation must be positive")
	case c.Script.Timeout <= 0:
		return errors.New("script.timeout must be positive")
	case c.Script.KernelCells <= 0:
		return errors.New("script.kernel_cells must be positive")
	}
	if _, err := spatial.ParseBackend(c.Spatial.Backend); err != nil {
		return err
	}
	return nil
}

// ModelOptions returns the model settings. The repair and back-face
// tolerances travel with them.
func (c Config) ModelOptions() model.Options {
	opts := model.DefaultOptions()
	opts.UndoStackMaxSize = c.History.UndoStackMaxSize
	opts.BatchFrequency = c.History.BatchFrequency
	opts.SceneBounds = c.SceneBounds()
	opts.Fixer = c.Fixer()
	opts.Validator = c.ValidatorOptions()
	return opts
}

// SceneBounds is the cube meshes must fit in. A zero size gives zero
// bounds, which the model and the index treat as unlimited.
func (c Config) SceneBounds() geom.Bounds {
	if c.History.SceneSize == 0 {
		return geom.Bounds{}
	}
	s := c.History.SceneSize
	return geom.NewBounds(mgl64.Vec3{}, mgl64.Vec3{s, s, s})
}

// Fixer returns a mesh fixer with the configured tolerances.
func (c Config) Fixer() *meshfix.Fixer {
	fx := meshfix.DefaultFixer()
	fx.MergeDistance = c.Geometry.MergeDistance
	fx.MaxCoplanarDistance = c.Geometry.MaxCoplanarDistance
	return fx
}

// ValidatorOptions returns the back-face check tuning.
func (c Config) ValidatorOptions() meshvalidate.Options {
	return meshvalidate.Options{
		Scale:     c.Validator.Scale,
		Bend:      c.Validator.Bend,
		Inflation: c.Validator.Inflation,
	}
}

// Detector returns a snap detector with the configured thresholds.
func (c Config) Detector() *snap.Detector {
	d := snap.NewDetector(snap.WorldSpace{Scale: c.Snap.WorldScale})
	d.MeshCenterFactor = c.Snap.MeshCenterFactor
	d.StickThreshold = c.Snap.StickThreshold
	d.FaceSnapThreshold = c.Snap.FaceSnapThreshold
	d.SearchMargin = c.Snap.SearchMargin
	d.GridSize = c.Snap.GridSize
	return d
}

// Backend returns the collision backend. Call Validate first; an unknown
// name falls back to the R-tree.
func (c Config) Backend() spatial.Backend {
	b, err := spatial.ParseBackend(c.Spatial.Backend)
	if err != nil {
		return spatial.BackendRTree
	}
	return b
}

// NewIndex builds a spatial index over source using the configured backend
// and nearby-vertex rule.
func (c Config) NewIndex(source spatial.MeshSource) *spatial.Index {
	idx := spatial.New(source, c.SceneBounds(), c.Backend())
	idx.SetNearbyVertexRule(c.Geometry.NearbyVertexFraction, c.Geometry.CommonEdgeMinSharedVertices)
	return idx
}

// ScriptOptions returns the script engine settings. finder may be nil, in
// which case the snap builtin is unavailable.
func (c Config) ScriptOptions(finder snap.MeshFinder) script.Options {
	return script.Options{
		Timeout:  c.Script.Timeout,
		Kernel:   sdfx.NewWithCells(c.Script.KernelCells),
		Finder:   finder,
		Detector: c.Detector(),
	}
}
