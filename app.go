package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chazu/kiln/pkg/camera"
	"github.com/chazu/kiln/pkg/config"
	"github.com/chazu/kiln/pkg/engine"
	"github.com/chazu/kiln/pkg/kernel"
	"github.com/chazu/kiln/pkg/kernel/sdfx"
	"github.com/chazu/kiln/pkg/pick"
	"github.com/chazu/kiln/pkg/project"
	"github.com/chazu/kiln/pkg/scene"
	"github.com/chazu/kiln/pkg/tessellate"
	"github.com/chazu/kiln/pkg/tools"
	"github.com/chazu/kiln/pkg/usda"
	"github.com/chazu/kiln/pkg/watch"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/samber/lo"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Events emitted to the frontend.
const (
	EventSceneReloaded = "scene:reloaded"
	EventSceneChanged  = "scene:changed"
	EventSceneConflict = "scene:conflict"
)

// ErrNoScenePath is returned by SaveScene for a scene never saved before.
var ErrNoScenePath = errors.New("scene has no file path; use save as")

// App is the Wails backend. It exposes methods to the frontend via bindings.
// All bindings are safe for concurrent use.
type App struct {
	ctx context.Context
	log *slog.Logger

	mu        sync.Mutex
	prefs     config.Prefs
	prefsPath string
	scene     *scene.Scene
	path      string    // file backing the scene, "" for unsaved scenes
	savedMod  time.Time // mtime after our own last load or save
	dirty     bool
	selected  string // selected node path, "" for none
	camera    *camera.Camera
	viewport  mgl32.Vec2
	kernel    kernel.Kernel
	engine    *engine.Engine

	stopWatch context.CancelFunc
}

// SceneInfo summarizes the open scene.
type SceneInfo struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Dirty       bool   `json:"dirty"`
	DefaultPrim string `json:"defaultPrim"`
	UpAxis      string `json:"upAxis"`
	Nodes       int    `json:"nodes"`
	Meshes      int    `json:"meshes"`
	Selected    string `json:"selected"`
}

// IssueData is a JSON-serializable load or validation issue.
type IssueData struct {
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// OpenResult is returned by OpenScene.
type OpenResult struct {
	Scene  SceneInfo   `json:"scene"`
	Issues []IssueData `json:"issues"`
	Error  string      `json:"error,omitempty"`
}

// TreeNode is one row of the hierarchy panel, listed in pre-order.
type TreeNode struct {
	ID          uint64 `json:"id"`
	Path        string `json:"path"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Depth       int    `json:"depth"`
	HasChildren bool   `json:"hasChildren"`
	Selected    bool   `json:"selected"`
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	NodePath string    `json:"nodePath"`
	Color    string    `json:"color"`
	Selected bool      `json:"selected"`
}

// PickResult is returned by Pick.
type PickResult struct {
	Hit      bool    `json:"hit"`
	Path     string  `json:"path"`
	Distance float32 `json:"distance"`
}

// CameraData carries the matrices the renderer needs, column-major.
type CameraData struct {
	View       [16]float32 `json:"view"`
	Projection [16]float32 `json:"projection"`
	Position   [3]float32  `json:"position"`
	Target     [3]float32  `json:"target"`
	Distance   float32     `json:"distance"`
	Yaw        float32     `json:"yaw"`
	Pitch      float32     `json:"pitch"`
}

// ScriptResult is the full result of a console evaluation.
type ScriptResult struct {
	Nodes  []string           `json:"nodes"`
	Errors []engine.EvalError `json:"errors"`
	Issues []IssueData        `json:"issues"`
}

// NewApp creates an App with preferences loaded from prefsPath. An empty
// prefsPath uses the defaults and never writes preferences.
func NewApp(prefsPath string) *App {
	prefs := config.Default()
	if prefsPath != "" {
		p, err := config.Load(prefsPath)
		if err != nil {
			slog.Warn("loading preferences", "path", prefsPath, "err", err)
		}
		prefs = p
	}
	k := sdfx.New(prefs.Tools.MeshCells)
	return &App{
		log:       slog.Default().With("component", "app"),
		prefs:     prefs,
		prefsPath: prefsPath,
		scene:     scene.New(),
		camera:    camera.New(prefs.Camera),
		viewport:  mgl32.Vec2{1280, 800},
		kernel:    k,
		engine:    engine.NewEngine(k),
	}
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later.
func (a *App) startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ctx = ctx
	if a.path != "" {
		a.watchLocked()
	}
}

// shutdown is called by Wails before the window closes.
func (a *App) shutdown(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unwatchLocked()
	a.savePrefsLocked()
}

// ---------------------------------------------------------------------------
// Scene files
// ---------------------------------------------------------------------------

// NewScene replaces the open scene with an empty one.
func (a *App) NewScene() SceneInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unwatchLocked()
	a.scene = scene.New()
	a.path = ""
	a.dirty = false
	a.selected = ""
	return a.infoLocked()
}

// OpenScene loads the scene at path. On failure the open scene is kept.
func (a *App) OpenScene(path string) OpenResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := OpenResult{Issues: []IssueData{}}
	s := scene.New()
	issues, err := usda.LoadFile(s, path)
	if err != nil {
		a.log.Error("open scene", "path", path, "err", err)
		result.Error = err.Error()
		result.Scene = a.infoLocked()
		return result
	}
	if len(issues) > 0 {
		a.log.Warn("scene loaded with issues", "path", path, "count", len(issues))
	}

	a.unwatchLocked()
	a.scene = s
	a.path = path
	a.dirty = false
	a.selected = ""
	a.savedMod = modTime(path)
	a.watchLocked()

	result.Issues = issueData(issues)
	result.Scene = a.infoLocked()
	return result
}

// SaveScene writes the scene back to its file.
func (a *App) SaveScene() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.path == "" {
		return ErrNoScenePath
	}
	return a.saveLocked(a.path)
}

// SaveSceneAs writes the scene to path and makes it the scene's file.
// Names without an extension get .usda.
func (a *App) SaveSceneAs(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	path = project.SceneFileName(path)
	if err := a.saveLocked(path); err != nil {
		return err
	}
	if path != a.path {
		a.unwatchLocked()
		a.path = path
		a.scene.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		a.watchLocked()
	}
	return nil
}

func (a *App) saveLocked(path string) error {
	if err := usda.SaveFile(a.scene, path); err != nil {
		a.log.Error("save scene", "path", path, "err", err)
		return err
	}
	a.dirty = false
	a.savedMod = modTime(path)
	a.log.Info("scene saved", "path", path, "nodes", a.scene.Len())
	return nil
}

// SceneInfo returns a summary of the open scene.
func (a *App) SceneInfo() SceneInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.infoLocked()
}

func (a *App) infoLocked() SceneInfo {
	return SceneInfo{
		Name:        a.scene.Name,
		Path:        a.path,
		Dirty:       a.dirty,
		DefaultPrim: a.scene.DefaultPrim,
		UpAxis:      a.scene.UpAxis,
		Nodes:       a.scene.Len(),
		Meshes:      len(a.scene.Meshes()),
		Selected:    a.selectedLocked(),
	}
}

// ValidateScene reports every invariant the open scene breaks.
func (a *App) ValidateScene() []IssueData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return issueData(a.scene.Validate())
}

// reload re-reads the scene file after an outside change. Changes that
// match our own last save are ignored. Unsaved edits are never replaced;
// the frontend is told about the conflict instead.
func (a *App) reload(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if path != a.path && !sameFile(path, a.path) {
		return
	}
	mod := modTime(a.path)
	if mod.Equal(a.savedMod) {
		return
	}
	if a.dirty {
		a.log.Warn("scene changed on disk with unsaved edits", "path", a.path)
		a.emitLocked(EventSceneConflict, a.infoLocked())
		return
	}

	s := scene.New()
	issues, err := usda.LoadFile(s, a.path)
	if err != nil {
		a.log.Error("reload scene", "path", a.path, "err", err)
		return
	}
	a.scene = s
	a.savedMod = mod
	a.dirty = false
	a.selectedLocked()
	a.log.Info("scene reloaded", "path", a.path, "issues", len(issues))
	a.emitLocked(EventSceneReloaded, a.infoLocked())
}

// watchLocked starts watching the scene file. Watching needs the Wails
// context for events, so it only runs after startup.
func (a *App) watchLocked() {
	if a.ctx == nil || a.path == "" || !a.prefs.Watch.Enabled {
		return
	}
	w, err := watch.New(a.path, a.prefs.Watch.Debounce, a.reload)
	if err != nil {
		a.log.Warn("watch scene", "path", a.path, "err", err)
		return
	}
	ctx, cancel := context.WithCancel(a.ctx)
	a.stopWatch = cancel
	go func() {
		if err := w.Run(ctx); err != nil {
			a.log.Warn("watcher stopped", "path", w.Path(), "err", err)
		}
	}()
}

func (a *App) unwatchLocked() {
	if a.stopWatch != nil {
		a.stopWatch()
		a.stopWatch = nil
	}
}

// ---------------------------------------------------------------------------
// Hierarchy and selection
// ---------------------------------------------------------------------------

// Tree returns the scene hierarchy in pre-order.
func (a *App) Tree() []TreeNode {
	a.mu.Lock()
	defer a.mu.Unlock()
	sel := a.selectedLocked()
	nodes := []TreeNode{}
	a.scene.Walk(func(n *scene.Node, depth int) bool {
		p := a.scene.Path(n.ID)
		nodes = append(nodes, TreeNode{
			ID:          uint64(n.ID),
			Path:        p,
			Name:        n.Name,
			Type:        n.Type.String(),
			Depth:       depth,
			HasChildren: n.HasChildren(),
			Selected:    p == sel,
		})
		return true
	})
	return nodes
}

// Select selects the node at path. An empty path clears the selection.
func (a *App) Select(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if path == "" {
		a.selected = ""
		return nil
	}
	if a.scene.FindNodeByPath(path) == nil {
		return fmt.Errorf("select %s: %w", path, scene.ErrNodeNotFound)
	}
	a.selected = path
	return nil
}

// Selected returns the selected node path, or "".
func (a *App) Selected() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selectedLocked()
}

// selectedLocked drops a selection whose node no longer exists.
func (a *App) selectedLocked() string {
	if a.selected != "" && a.scene.FindNodeByPath(a.selected) == nil {
		a.selected = ""
	}
	return a.selected
}

// Meshes tessellates the scene for the renderer.
func (a *App) Meshes() []MeshData {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := []MeshData{}
	meshes, err := tessellate.Tessellate(a.scene)
	if err != nil {
		a.log.Error("tessellate", "err", err)
		return result
	}
	sel := a.selectedLocked()
	for _, m := range meshes {
		result = append(result, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			NodePath: m.NodePath,
			Color:    hexColor(m.Color),
			Selected: m.NodePath == sel,
		})
	}
	return result
}

// Pick selects the mesh under the cursor, in pixels from the viewport's
// top-left corner. A miss clears the selection.
func (a *App) Pick(x, y float32) PickResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	hit, ok := pick.Pick(a.scene, a.camera.View(), a.projectionLocked(), a.viewport, mgl32.Vec2{x, y})
	if !ok {
		a.selected = ""
		return PickResult{}
	}
	a.selected = a.scene.Path(hit.Node.ID)
	return PickResult{Hit: true, Path: a.selected, Distance: hit.Distance}
}

// ---------------------------------------------------------------------------
// Camera
// ---------------------------------------------------------------------------

// SetViewport records the canvas size in pixels.
func (a *App) SetViewport(width, height float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if width > 0 && height > 0 {
		a.viewport = mgl32.Vec2{width, height}
	}
}

// OrbitCamera rotates the view by a mouse delta in pixels.
func (a *App) OrbitCamera(dx, dy float32) CameraData {
	return a.withCamera(func(c *camera.Camera) { c.Orbit(dx, dy) })
}

// PanCamera slides the view by a mouse delta in pixels.
func (a *App) PanCamera(dx, dy float32) CameraData {
	return a.withCamera(func(c *camera.Camera) { c.Pan(dx, dy) })
}

// ZoomCamera moves toward the target for positive wheel deltas.
func (a *App) ZoomCamera(delta float32) CameraData {
	return a.withCamera(func(c *camera.Camera) { c.Zoom(delta) })
}

// MoveCamera walks the target: forward, backward, left or right.
func (a *App) MoveCamera(direction string, speed float32) CameraData {
	return a.withCamera(func(c *camera.Camera) {
		switch direction {
		case "forward":
			c.MoveForward(speed)
		case "backward":
			c.MoveBackward(speed)
		case "left":
			c.MoveLeft(speed)
		case "right":
			c.MoveRight(speed)
		}
	})
}

// ResetCamera restores the configured view.
func (a *App) ResetCamera() CameraData {
	return a.withCamera((*camera.Camera).Reset)
}

// Camera returns the current camera matrices.
func (a *App) Camera() CameraData {
	return a.withCamera(func(*camera.Camera) {})
}

func (a *App) withCamera(fn func(c *camera.Camera)) CameraData {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.camera)
	c := a.camera
	return CameraData{
		View:       c.View(),
		Projection: a.projectionLocked(),
		Position:   c.Position(),
		Target:     c.Target,
		Distance:   c.Distance,
		Yaw:        c.Yaw,
		Pitch:      c.Pitch,
	}
}

func (a *App) projectionLocked() mgl32.Mat4 {
	return a.camera.Projection(a.viewport.X() / a.viewport.Y())
}

// ---------------------------------------------------------------------------
// Editing
// ---------------------------------------------------------------------------

// CreatePrimitive runs a creation tool (plane, box, sphere or cylinder)
// and selects the new node. The node goes under the selected Xform or
// Scope, or under the root.
func (a *App) CreatePrimitive(kind, name string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var p tools.Params
	switch strings.ToLower(kind) {
	case "plane":
		pp := tools.NewPlane()
		pp.Name = name
		pp.Size = a.prefs.Tools.PlaneSize
		pp.Color = a.prefs.Tools.PlaneColor
		pp.Collision = a.prefs.Tools.PlaneCollision
		p = pp
	case "box":
		bp := tools.NewBox()
		bp.Name = name
		p = bp
	case "sphere":
		sp := tools.NewSphere()
		sp.Name = name
		p = sp
	case "cylinder":
		cp := tools.NewCylinder()
		cp.Name = name
		p = cp
	default:
		return "", fmt.Errorf("unknown primitive %q", kind)
	}

	n, err := tools.Activate(a.scene, a.insertParentLocked(), a.kernel, p)
	if err != nil {
		a.log.Error("create primitive", "kind", kind, "err", err)
		return "", err
	}
	a.changedLocked()
	a.selected = a.scene.Path(n.ID)
	return a.selected, nil
}

// insertParentLocked returns the selected container, or the root.
func (a *App) insertParentLocked() scene.NodeID {
	if sel := a.selectedLocked(); sel != "" {
		n := a.scene.FindNodeByPath(sel)
		if n.Type != scene.Mesh {
			return n.ID
		}
	}
	return a.scene.Root
}

// RemoveNode deletes the node at path and its subtree. The root cannot be
// removed.
func (a *App) RemoveNode(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.scene.FindNodeByPath(path)
	if n == nil {
		return fmt.Errorf("remove %s: %w", path, scene.ErrNodeNotFound)
	}
	if !a.scene.Remove(n.ID) {
		return fmt.Errorf("remove %s: cannot remove the root", path)
	}
	a.changedLocked()
	a.selectedLocked()
	return nil
}

// DuplicateNode copies the node at path next to the original and selects
// the copy.
func (a *App) DuplicateNode(path string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.scene.FindNodeByPath(path)
	if n == nil {
		return "", fmt.Errorf("duplicate %s: %w", path, scene.ErrNodeNotFound)
	}
	c, err := a.scene.Duplicate(n.ID)
	if err != nil {
		return "", err
	}
	a.changedLocked()
	a.selected = a.scene.Path(c.ID)
	return a.selected, nil
}

// RenameNode renames the node at path and returns its new path.
func (a *App) RenameNode(path, name string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.scene.FindNodeByPath(path)
	if n == nil {
		return "", fmt.Errorf("rename %s: %w", path, scene.ErrNodeNotFound)
	}
	wasSelected := a.selected == path
	if err := a.scene.Rename(n.ID, name); err != nil {
		return "", err
	}
	a.changedLocked()
	np := a.scene.Path(n.ID)
	if wasSelected {
		a.selected = np
	}
	return np, nil
}

// RunScript evaluates console source and adds the prims it builds under
// the root, renaming top-level prims that clash with existing children.
func (a *App) RunScript(source string) ScriptResult {
	result := ScriptResult{
		Nodes:  []string{},
		Errors: []engine.EvalError{},
		Issues: []IssueData{},
	}

	// Evaluate outside the lock; the engine serializes itself.
	prims, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.log.Error("script fatal error", "err", err)
		result.Errors = append(result.Errors, engine.EvalError{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		result.Errors = append(result.Errors, evalErrs...)
		return result
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	root := a.scene.Root
	for _, p := range prims {
		p.Name = a.scene.UniqueChildName(root, p.Name)
		issues, err := a.scene.Import(root, []*scene.Prim{p})
		if err != nil {
			result.Errors = append(result.Errors, engine.EvalError{Message: err.Error()})
			return result
		}
		result.Issues = append(result.Issues, issueData(issues)...)
		if n := a.scene.FindChild(root, p.Name); n != nil {
			result.Nodes = append(result.Nodes, a.scene.Path(n.ID))
		}
	}
	if len(prims) > 0 {
		a.changedLocked()
	}
	return result
}

func (a *App) changedLocked() {
	a.dirty = true
	a.emitLocked(EventSceneChanged, a.infoLocked())
}

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

// ProjectScenes lists the scene files under dir and records dir as a
// recent project.
func (a *App) ProjectScenes(dir string) ([]project.SceneFile, error) {
	files, err := project.Scan(dir)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prefs.AddRecentProject(dir)
	a.savePrefsLocked()
	return files, nil
}

// RecentProjects returns recently opened project directories, newest first.
func (a *App) RecentProjects() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string{}, a.prefs.RecentProjects...)
}

// CreateScene creates a new scene file in dir and opens it.
func (a *App) CreateScene(dir, name string, groundPlane bool) OpenResult {
	path, err := project.CreateScene(dir, name, groundPlane)
	if err != nil {
		a.log.Error("create scene", "dir", dir, "name", name, "err", err)
		return OpenResult{Issues: []IssueData{}, Error: err.Error(), Scene: a.SceneInfo()}
	}
	return a.OpenScene(path)
}

func (a *App) savePrefsLocked() {
	if a.prefsPath == "" {
		return
	}
	if err := config.Save(a.prefsPath, a.prefs); err != nil {
		a.log.Warn("saving preferences", "path", a.prefsPath, "err", err)
	}
}

// ---------------------------------------------------------------------------
// Dialogs
// ---------------------------------------------------------------------------

var sceneFilters = []runtime.FileFilter{{
	DisplayName: "USD scenes",
	Pattern:     "*" + strings.Join(usda.Extensions, ";*"),
}}

// OpenSceneDialog asks for a scene file and opens it.
func (a *App) OpenSceneDialog() OpenResult {
	if a.ctx == nil {
		return OpenResult{Issues: []IssueData{}, Error: "no window"}
	}
	path, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title:   "Open Scene",
		Filters: sceneFilters,
	})
	if err != nil || path == "" {
		return OpenResult{Issues: []IssueData{}, Scene: a.SceneInfo()}
	}
	return a.OpenScene(path)
}

// SaveSceneDialog asks for a target path and saves the scene there.
func (a *App) SaveSceneDialog() (string, error) {
	if a.ctx == nil {
		return "", errors.New("no window")
	}
	info := a.SceneInfo()
	path, err := runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
		Title:           "Save Scene",
		DefaultFilename: info.Name + ".usda",
		Filters:         sceneFilters,
	})
	if err != nil || path == "" {
		return "", err
	}
	return path, a.SaveSceneAs(path)
}

// ChooseProjectDialog asks for a project directory and lists its scenes.
func (a *App) ChooseProjectDialog() ([]project.SceneFile, error) {
	if a.ctx == nil {
		return nil, errors.New("no window")
	}
	dir, err := runtime.OpenDirectoryDialog(a.ctx, runtime.OpenDialogOptions{Title: "Open Project"})
	if err != nil || dir == "" {
		return []project.SceneFile{}, err
	}
	return a.ProjectScenes(dir)
}

func (a *App) emitLocked(name string, data any) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, name, data)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func issueData(issues []scene.Issue) []IssueData {
	return lo.Map(issues, func(i scene.Issue, _ int) IssueData {
		return IssueData{Kind: i.Kind.String(), Path: i.Path, Line: i.Line, Message: i.Message}
	})
}

// hexColor formats a 0-1 RGB triple as #RRGGBB.
func hexColor(c [3]float32) string {
	b := lo.Map(c[:], func(v float32, _ int) int {
		return int(mgl32.Clamp(v, 0, 1)*255 + 0.5)
	})
	return fmt.Sprintf("#%02X%02X%02X", b[0], b[1], b[2])
}

func modTime(path string) time.Time {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}

func sameFile(a, b string) bool {
	fa, err := os.Stat(a)
	if err != nil {
		return false
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(fa, fb)
}
