package anim

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/iburimskiy/reality-check/internal/config"
	"github.com/iburimskiy/reality-check/internal/scene"
)

var (
	RigStart  = vec64(scene.CameraStart)
	RigTarget = mgl64.Vec3{0, 2.0, 5.4}
	RigLookAt = vec64(scene.CameraFocus)
)

// Rig moves the camera from its start toward a fixed cinematic position.
// Progress counts up to 1 and is not fed back into the motion.
type Rig struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
	LookAt   mgl64.Vec3
	Progress float64
	Smoothed float64
}

func NewRig() *Rig {
	return &Rig{Position: RigStart, Target: RigTarget, LookAt: RigLookAt}
}

// Step advances the rig by dt seconds. Each step moves the camera toward
// Target by 1-exp(-CameraFollow*dt) of the remaining distance rather than a
// flat CameraFollow*dt; the two agree to within 0.01% at frame-sized dt, and
// splitting dt into several steps lands on the same position.
func (r *Rig) Step(dt float64) {
	if dt <= 0 || math.IsNaN(dt) {
		return
	}
	r.Progress = math.Min(1, r.Progress+config.ZoomRate*dt)
	r.Smoothed = smoothstep(r.Progress)

	alpha := 1 - math.Exp(-config.CameraFollow*dt)
	r.Position = r.Position.Add(r.Target.Sub(r.Position).Mul(alpha))
}

// Apply writes the rig pose into cam.
func (r *Rig) Apply(cam *scene.Camera) {
	cam.Position = vec32(r.Position)
	cam.LookAt(vec32(r.LookAt))
}

func smoothstep(x float64) float64 {
	x = math.Min(math.Max(x, 0), 1)
	return x * x * (3 - 2*x)
}

func vec64(v mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

func vec32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}
