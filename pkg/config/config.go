// Package config loads and saves editor preferences as YAML under the
// user's config directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/chazu/kiln/pkg/camera"
	"github.com/chazu/kiln/pkg/kernel/sdfx"
	"github.com/chazu/kiln/pkg/tools"
	"gopkg.in/yaml.v3"
)

// AppName names the config directory.
const AppName = "kiln"

// FileName is the preferences file inside Dir().
const FileName = "prefs.yaml"

// MaxRecentProjects caps the recent-projects list.
const MaxRecentProjects = 10

// ToolPrefs are the creation tool defaults.
type ToolPrefs struct {
	PlaneSize      float32    `yaml:"plane_size"`
	PlaneColor     [3]float32 `yaml:"plane_color,flow"`
	PlaneCollision bool       `yaml:"plane_collision"`
	MeshCells      int        `yaml:"mesh_cells"` // marching cubes resolution for solids
}

// WatchPrefs control reloading the open scene when it changes on disk.
type WatchPrefs struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Prefs holds editor preferences. Persisted across runs.
type Prefs struct {
	Camera         camera.Settings `yaml:"camera"`
	Tools          ToolPrefs       `yaml:"tools"`
	Watch          WatchPrefs      `yaml:"watch"`
	RecentProjects []string        `yaml:"recent_projects,omitempty"`
}

// Default returns the stock preferences.
func Default() Prefs {
	return Prefs{
		Camera: camera.DefaultSettings(),
		Tools: ToolPrefs{
			PlaneSize:      tools.DefaultPlaneSize,
			PlaneColor:     tools.DefaultPlaneColor,
			PlaneCollision: true,
			MeshCells:      sdfx.DefaultMeshCells,
		},
		Watch: WatchPrefs{
			Enabled:  true,
			Debounce: 300 * time.Millisecond,
		},
	}
}

// Dir returns $XDG_CONFIG_HOME/kiln, falling back to ~/.config/kiln and,
// without a home directory, ./.kiln.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".config", AppName)
	}
	return "." + AppName
}

// Path returns the default preferences file path.
func Path() string {
	return filepath.Join(Dir(), FileName)
}

// Load reads preferences from path. Fields absent from the file keep their
// defaults. A missing file is not an error. An unreadable or invalid file
// yields Default() together with the error, so callers can warn and go on.
// Load never creates a file.
func Load(path string) (Prefs, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("config: read %s: %w", path, err)
	}
	p := Default()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Default(), fmt.Errorf("config: parse %s: %w", path, err)
	}
	return p, nil
}

// Save writes preferences to path, creating the directory if needed.
func Save(path string, p Prefs) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// AddRecentProject moves dir to the front of the recent-projects list,
// removing any earlier entry for it and trimming to MaxRecentProjects.
func (p *Prefs) AddRecentProject(dir string) {
	if dir == "" {
		return
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	recent := slices.DeleteFunc(slices.Clone(p.RecentProjects), func(d string) bool {
		return d == dir
	})
	recent = append([]string{dir}, recent...)
	if len(recent) > MaxRecentProjects {
		recent = recent[:MaxRecentProjects]
	}
	p.RecentProjects = recent
}

// RemoveRecentProject drops dir from the recent-projects list.
func (p *Prefs) RemoveRecentProject(dir string) {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	p.RecentProjects = slices.DeleteFunc(p.RecentProjects, func(d string) bool {
		return d == dir
	})
}
