package geom

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ScreenRay builds a world-space ray through the cursor position.
//
// cursor is in pixels with the origin at the top-left corner and y growing
// downward. The ray starts on the near plane (NDC z = -1) and points toward
// the far plane (NDC z = +1). ok is false when the viewport has no area or
// when view or proj cannot be inverted.
func ScreenRay(view, proj mgl32.Mat4, viewport, cursor mgl32.Vec2) (Ray, bool) {
	if viewport.X() <= 0 || viewport.Y() <= 0 {
		return Ray{}, false
	}

	ndcX := 2*cursor.X()/viewport.X() - 1
	ndcY := 1 - 2*cursor.Y()/viewport.Y()

	invProj := proj.Inv()
	invView := view.Inv()
	if invProj == (mgl32.Mat4{}) || invView == (mgl32.Mat4{}) {
		return Ray{}, false
	}

	near, ok := unproject(invProj, invView, mgl32.Vec4{ndcX, ndcY, -1, 1})
	if !ok {
		return Ray{}, false
	}
	far, ok := unproject(invProj, invView, mgl32.Vec4{ndcX, ndcY, 1, 1})
	if !ok {
		return Ray{}, false
	}

	dir := far.Sub(near)
	if dir.Len() < Epsilon {
		return Ray{}, false
	}
	return Ray{Origin: near, Dir: dir.Normalize()}, true
}

// unproject maps a clip-space point to world space: inverse projection,
// perspective divide, then inverse view.
func unproject(invProj, invView mgl32.Mat4, clip mgl32.Vec4) (mgl32.Vec3, bool) {
	eye := invProj.Mul4x1(clip)
	w := eye.W()
	if math32.Abs(w) < Epsilon || math32.IsNaN(w) {
		return mgl32.Vec3{}, false
	}
	eye = eye.Mul(1 / w)
	eye[3] = 1

	world := invView.Mul4x1(eye)
	return world.Vec3(), true
}
