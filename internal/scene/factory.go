package scene

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	PlanetRadius   = 2.2
	PlanetSegments = 128

	EyeSize = 3.0

	StreamInner  = 2.35
	StreamBand   = 0.25
	StreamMinSpd = 0.4
	StreamMaxSpd = 1.4

	CircuitRadius = 2.2
	CircuitReach  = 0.4

	StarNear = 40.0
	StarFar  = 80.0
	StarSize = 0.6
)

// Uniform names shared with the Kage programs.
const (
	UniformTime    = "Time"
	UniformOpen    = "Open"
	UniformColor   = "Color"
	UniformOpacity = "Opacity"
	UniformSize    = "Size"
)

// NewPlanet builds the gridded, rim-lit sphere.
func NewPlanet() *Object {
	u := Uniforms{UniformTime: float32(0)}
	u.SetVec3("Cyan", Vec3(mustHex("#00eaff")))
	u.SetVec3("Blue", Vec3(mustHex("#0abdc6")))
	m := &Material{
		Name:        "planet",
		Fragment:    mustShader("planet.kage"),
		Vertex:      planetVertex,
		Blending:    AdditiveBlending,
		Side:        FrontSide,
		Transparent: true,
		DepthWrite:  true,
		Uniforms:    u,
	}
	return NewObject("planet", NewSphere(PlanetRadius, PlanetSegments, PlanetSegments), m)
}

func planetVertex(ctx *VertexContext, in VertexInput) VertexOutput {
	mv := ctx.ModelView.Mul4x1(in.Position.Vec4(1)).Vec3()
	n := safeNormalize(ctx.NormalMatrix.Mul3x1(in.Normal))
	v := safeNormalize(mv.Mul(-1))
	return VertexOutput{
		Position: in.Position,
		Varyings: [4]float32{in.Position[0], in.Position[1], in.Position[2], n.Dot(v)},
	}
}

// NewEye builds the eye quad; its Open uniform starts shut.
func NewEye() *Object {
	m := &Material{
		Name:        "eye",
		Fragment:    mustShader("eye.kage"),
		Vertex:      eyeVertex,
		Blending:    AdditiveBlending,
		Side:        FrontSide,
		Transparent: true,
		Uniforms:    Uniforms{UniformTime: float32(0), UniformOpen: float32(0)},
	}
	o := NewObject("eye", NewPlane(EyeSize, EyeSize), m)
	o.Position = mgl32.Vec3{0, 3.2, 0}
	return o
}

func eyeVertex(_ *VertexContext, in VertexInput) VertexOutput {
	return VertexOutput{Position: in.Position, Varyings: [4]float32{in.UV[0], in.UV[1]}}
}

// NewDataStreams scatters count points through a thin shell around the planet,
// each with its own orbital speed.
func NewDataStreams(rng *rand.Rand, count int) *Object {
	positions := make([]mgl32.Vec3, count)
	speeds := make([]float32, count)
	for i := range count {
		theta := math.Acos(randFloat(rng, -1, 1))
		phi := randFloat(rng, 0, 2*math.Pi)
		r := StreamInner + rng.Float64()*StreamBand
		positions[i] = mgl32.Vec3{
			float32(r * math.Sin(theta) * math.Cos(phi)),
			float32(r * math.Cos(theta)),
			float32(r * math.Sin(theta) * math.Sin(phi)),
		}
		speeds[i] = float32(randFloat(rng, StreamMinSpd, StreamMaxSpd))
	}
	m := &Material{
		Name:        "streams",
		Fragment:    mustShader("stream.kage"),
		Vertex:      streamVertex,
		Blending:    AdditiveBlending,
		Transparent: true,
		Uniforms:    Uniforms{UniformTime: float32(0)},
	}
	return NewObject("streams", NewPoints(positions, speeds), m)
}

// StreamOrbit is the position and pulse of a stream point at time t.
func StreamOrbit(p mgl32.Vec3, speed, t float32) (mgl32.Vec3, float32) {
	a := float64(t*speed) * 0.2
	s, c := float32(math.Sin(a)), float32(math.Cos(a))
	out := mgl32.Vec3{c*p[0] + s*p[2], p[1], -s*p[0] + c*p[2]}
	glow := fract(t*speed*0.25 + (out[1] + 3))
	return out, glow
}

func streamVertex(ctx *VertexContext, in VertexInput) VertexOutput {
	p, glow := StreamOrbit(in.Position, in.Attrib, ctx.Uniforms.Float(UniformTime))
	return VertexOutput{
		Position:  p,
		Varyings:  [4]float32{0, 0, glow, 0},
		PointSize: 2 + 2*glow,
	}
}

// NewCircuitLines builds count short arcs hugging the planet surface. All
// arcs share one line material.
func NewCircuitLines(rng *rand.Rand, count, segments int) *Object {
	m := &Material{
		Name:        "circuits",
		Fragment:    mustShader("basic.kage"),
		Vertex:      basicVertex,
		Blending:    NormalBlending,
		Transparent: true,
		DepthWrite:  true,
		ToneMapped:  true,
		Fog:         true,
		Uniforms:    Uniforms{UniformOpacity: float32(0.35)},
	}
	m.Uniforms.SetVec3(UniformColor, LinearVec3(mustHex("#00eaff")))

	group := NewGroup("circuits")
	for range count {
		a := randomDirection(rng).Mul(CircuitRadius)
		b := a.Mul(1.05).Add(randomDirection(rng).Mul(CircuitReach))
		c := b.Add(randomDirection(rng).Mul(CircuitReach))
		curve := CatmullRom{Points: []mgl64.Vec3{a, b, c}}
		group.Add(NewObject("circuit", NewLine(curve.Sample(segments)), m))
	}
	return group
}

// NewStars scatters count points in a far shell.
func NewStars(rng *rand.Rand, count int) *Object {
	positions := make([]mgl32.Vec3, count)
	for i := range count {
		p := randomDirection(rng).Mul(randFloat(rng, StarNear, StarFar))
		positions[i] = mgl32.Vec3{float32(p[0]), float32(p[1]), float32(p[2])}
	}
	m := &Material{
		Name:        "stars",
		Fragment:    mustShader("basic.kage"),
		Vertex:      basicPointVertex,
		Blending:    NormalBlending,
		Transparent: true,
		DepthWrite:  true,
		ToneMapped:  true,
		Fog:         true,
		Uniforms:    Uniforms{UniformOpacity: float32(0.6), UniformSize: float32(StarSize)},
	}
	m.Uniforms.SetVec3(UniformColor, LinearVec3(mustHex("#7fe9ff")))
	return NewObject("stars", NewPoints(positions, nil), m)
}

func basicVertex(ctx *VertexContext, in VertexInput) VertexOutput {
	return VertexOutput{
		Position: in.Position,
		Varyings: [4]float32{0, 0, viewDepth(ctx, in.Position), 0},
	}
}

// basicPointVertex shrinks sprites with distance, scaled to the target height.
func basicPointVertex(ctx *VertexContext, in VertexInput) VertexOutput {
	depth := viewDepth(ctx, in.Position)
	size := ctx.Uniforms.Float(UniformSize)
	if depth > 0 {
		size *= ctx.ViewportHeight / 2 / depth
	}
	return VertexOutput{
		Position:  in.Position,
		Varyings:  [4]float32{0, 0, depth, 0},
		PointSize: size,
	}
}

func fract(x float32) float32 {
	return x - float32(math.Floor(float64(x)))
}
