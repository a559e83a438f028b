package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a perspective camera looking at a target point.
type Camera struct {
	FOV    float32 // vertical, degrees
	Aspect float32
	Near   float32
	Far    float32

	Position mgl32.Vec3
	Up       mgl32.Vec3
	target   mgl32.Vec3
}

func NewPerspectiveCamera(fov, aspect, near, far float32) *Camera {
	c := &Camera{
		FOV:  fov,
		Near: near,
		Far:  far,
		Up:   mgl32.Vec3{0, 1, 0},
	}
	c.SetAspect(float64(aspect))
	return c
}

// SetAspect ignores non-finite or non-positive ratios so a bad resize
// cannot poison the projection.
func (c *Camera) SetAspect(aspect float64) {
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		if c.Aspect == 0 {
			c.Aspect = 1
		}
		return
	}
	c.Aspect = float32(aspect)
}

func (c *Camera) LookAt(target mgl32.Vec3) { c.target = target }

func (c *Camera) Target() mgl32.Vec3 { return c.target }

func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.target, c.Up)
}

// ToScreen maps a clip-space position to pixel coordinates of a w x h target
// (origin top left). ok is false behind the camera or outside the depth range.
func ToScreen(clip mgl32.Vec4, w, h int) (x, y, z float32, ok bool) {
	if clip[3] <= 0 {
		return 0, 0, 0, false
	}
	inv := 1 / clip[3]
	nx, ny, nz := clip[0]*inv, clip[1]*inv, clip[2]*inv
	if nz < -1 || nz > 1 {
		return 0, 0, 0, false
	}
	x = (nx + 1) / 2 * float32(w)
	y = (1 - ny) / 2 * float32(h)
	return x, y, nz, true
}

// FrontFacing reports whether screen-space triangle a b c is counter-clockwise
// in the y-up convention the geometry is authored in.
func FrontFacing(ax, ay, bx, by, cx, cy float32) bool {
	// screen y grows down, which flips the sign of the area
	return (bx-ax)*(cy-ay)-(cx-ax)*(by-ay) < 0
}
