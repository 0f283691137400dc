package lab

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera describes the viewpoint the pointer rays are cast from. It mirrors
// the perspective camera of the rendering host so that screen coordinates
// resolve to the same world-space rays on both sides.
type Camera struct {
	Position mgl32.Vec3 `json:"position"`
	Target   mgl32.Vec3 `json:"target"`
	Up       mgl32.Vec3 `json:"up"`
	FovY     float32    `json:"fov_y"`   // vertical field of view, radians
	Aspect   float32    `json:"aspect"`  // width / height
	Near     float32    `json:"near"`
	Far      float32    `json:"far"`
	Width    int        `json:"width"`   // viewport size in pixels
	Height   int        `json:"height"`
}

// DefaultCamera returns a camera matching the host scene's default framing:
// slightly above the bench, looking at the origin.
func DefaultCamera() Camera {
	return Camera{
		Position: mgl32.Vec3{0, 4, 8},
		Target:   mgl32.Vec3{0, 1, 0},
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     mgl32.DegToRad(45),
		Aspect:   16.0 / 9.0,
		Near:     0.1,
		Far:      100,
		Width:    1280,
		Height:   720,
	}
}

// Ray is a world-space half-line with a normalized direction.
type Ray struct {
	Origin mgl32.Vec3
	Dir    mgl32.Vec3
}

// ScreenRay converts a pointer position (pixels, origin top-left) into a
// world-space ray. The bool result is false when the unprojection is
// numerically invalid; callers skip the frame in that case.
func (c Camera) ScreenRay(x, y float32) (Ray, bool) {
	if c.Width <= 0 || c.Height <= 0 {
		return Ray{}, false
	}
	view := mgl32.LookAtV(c.Position, c.Target, c.Up)
	proj := mgl32.Perspective(c.FovY, c.Aspect, c.Near, c.Far)

	// UnProject expects window coordinates with the origin at the bottom-left.
	winX := x
	winY := float32(c.Height) - y

	near, err := mgl32.UnProject(mgl32.Vec3{winX, winY, 0}, view, proj, 0, 0, c.Width, c.Height)
	if err != nil {
		return Ray{}, false
	}
	far, err := mgl32.UnProject(mgl32.Vec3{winX, winY, 1}, view, proj, 0, 0, c.Width, c.Height)
	if err != nil {
		return Ray{}, false
	}

	dir := far.Sub(near)
	if dir.Len() == 0 || !isFiniteVec(dir) {
		return Ray{}, false
	}
	return Ray{Origin: near, Dir: dir.Normalize()}, true
}

// IntersectSphere returns the distance along the ray to the nearest
// intersection with the sphere, or false if the ray misses.
func (r Ray) IntersectSphere(center mgl32.Vec3, radius float32) (float32, bool) {
	oc := r.Origin.Sub(center)
	b := oc.Dot(r.Dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sqrtD := float32(math.Sqrt(float64(disc)))
	t := -b - sqrtD
	if t < 0 {
		t = -b + sqrtD
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}

// IntersectPlaneY returns the intersection of the ray with the horizontal
// plane y = height. A ray parallel to the plane, pointing away from it, or
// producing a non-finite point yields false.
func (r Ray) IntersectPlaneY(height float32) (mgl32.Vec3, bool) {
	if r.Dir.Y() == 0 {
		return mgl32.Vec3{}, false
	}
	t := (height - r.Origin.Y()) / r.Dir.Y()
	if t < 0 {
		return mgl32.Vec3{}, false
	}
	p := r.Origin.Add(r.Dir.Mul(t))
	if !isFiniteVec(p) {
		return mgl32.Vec3{}, false
	}
	return p, true
}

func isFiniteVec(v mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		f := float64(v[i])
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
