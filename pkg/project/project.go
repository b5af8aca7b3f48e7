// Package project finds and creates scene files inside a project directory.
package project

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chazu/kiln/pkg/scene"
	"github.com/chazu/kiln/pkg/tools"
	"github.com/chazu/kiln/pkg/usda"
	"github.com/samber/lo"
)

// GroundPlaneName and GroundPlaneSize describe the optional starter mesh.
const (
	GroundPlaneName = "GroundPlane"
	GroundPlaneSize = 20
)

// ErrExists is returned by CreateScene when the target file already exists.
var ErrExists = errors.New("project: scene already exists")

// skipDirs are never descended into. Hidden directories are skipped too.
var skipDirs = []string{"build", "node_modules"}

// SceneFile is one scene found by Scan.
type SceneFile struct {
	Name   string `json:"name"`   // file stem
	Path   string `json:"path"`   // absolute or root-joined path
	Rel    string `json:"rel"`    // path relative to the project root
	Format string `json:"format"` // extension without the dot, lowercased
}

// Scan walks root recursively and returns every scene file, sorted by
// name and then by relative path. Unreadable subdirectories are skipped.
func Scan(root string) ([]SceneFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("project: scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project: scan %s: not a directory", root)
	}

	files := []SceneFile{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !lo.Contains(usda.Extensions, ext) {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		files = append(files, SceneFile{
			Name:   strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())),
			Path:   path,
			Rel:    rel,
			Format: strings.TrimPrefix(ext, "."),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("project: scan %s: %w", root, err)
	}

	slices.SortFunc(files, func(a, b SceneFile) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Rel, b.Rel))
	})
	return files, nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || lo.Contains(skipDirs, name)
}

// SceneFileName appends .usda to names without an extension.
func SceneFileName(name string) string {
	if filepath.Ext(name) == "" {
		return name + ".usda"
	}
	return name
}

// CreateScene writes a new scene called name into dir and returns its
// path. Existing files are never overwritten. With groundPlane set the
// scene starts with a 20x20 collidable GroundPlane under the root.
func CreateScene(dir, name string, groundPlane bool) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("project: invalid scene name %q", name)
	}
	path := filepath.Join(dir, SceneFileName(name))
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, path)
	}

	s := scene.New()
	s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if groundPlane {
		p := tools.NewPlane()
		p.Name = GroundPlaneName
		p.Size = GroundPlaneSize
		p.Color = scene.DefaultDisplayColor
		if _, err := tools.Activate(s, s.Root, nil, p); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("project: create %s: %w", dir, err)
	}
	if err := usda.SaveFile(s, path); err != nil {
		return "", err
	}
	return path, nil
}
