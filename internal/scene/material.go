package scene

import (
	"embed"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

//go:embed shaders/*.kage
var shaderFS embed.FS

// ShaderSource returns an embedded Kage program by file name.
func ShaderSource(name string) ([]byte, error) {
	src, err := shaderFS.ReadFile("shaders/" + name)
	if err != nil {
		return nil, fmt.Errorf("scene: shader %s: %w", name, err)
	}
	return src, nil
}

func mustShader(name string) []byte {
	src, err := ShaderSource(name)
	if err != nil {
		panic(err)
	}
	return src
}

type Blending int

const (
	NormalBlending Blending = iota
	AdditiveBlending
)

type Side int

const (
	FrontSide Side = iota
	DoubleSide
)

// Uniforms maps a shader variable name to a float32 or []float32 value.
type Uniforms map[string]any

func (u Uniforms) Has(name string) bool {
	_, ok := u[name]
	return ok
}

func (u Uniforms) Float(name string) float32 {
	switch v := u[name].(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	}
	return 0
}

func (u Uniforms) SetFloat(name string, v float32) { u[name] = v }

func (u Uniforms) SetVec3(name string, v mgl32.Vec3) { u[name] = []float32{v[0], v[1], v[2]} }

// VertexInput is one vertex as stored in the geometry.
type VertexInput struct {
	Index    int
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
	Attrib   float32
}

// VertexContext is the per-draw state a vertex program may read.
type VertexContext struct {
	ModelView      mgl32.Mat4
	NormalMatrix   mgl32.Mat3
	ViewportHeight float32
	Uniforms       Uniforms
}

// VertexOutput is the object-space position to project plus the four
// varyings handed to the fragment program as its custom vec4.
// For points, Varyings[0] and [1] are overwritten with the sprite coordinate.
type VertexOutput struct {
	Position  mgl32.Vec3
	Varyings  [4]float32
	PointSize float32
}

// VertexProgram runs per vertex on the CPU ahead of rasterization.
type VertexProgram func(ctx *VertexContext, in VertexInput) VertexOutput

// Material pairs a Kage fragment program with its uniforms and raster state.
// ToneMapped materials get the surface tone mapping and output encoding; Fog
// materials get the scene fog. Both are filled in by the renderer per draw.
type Material struct {
	Name        string
	Fragment    []byte
	Vertex      VertexProgram
	Blending    Blending
	Side        Side
	Transparent bool
	DepthWrite  bool
	ToneMapped  bool
	Fog         bool
	Uniforms    Uniforms

	disposed bool
}

// Program returns the vertex program, defaulting to a pass-through.
func (m *Material) Program() VertexProgram {
	if m.Vertex == nil {
		return passthrough
	}
	return m.Vertex
}

func (m *Material) Disposed() bool { return m.disposed }

func (m *Material) Dispose() { m.disposed = true }

func passthrough(_ *VertexContext, in VertexInput) VertexOutput {
	return VertexOutput{Position: in.Position}
}

func viewDepth(ctx *VertexContext, p mgl32.Vec3) float32 {
	return -ctx.ModelView.Mul4x1(p.Vec4(1)).Z()
}
