// Package render rasterizes a scene into an ebiten image with Kage fragment
// programs. Vertex programs run on the CPU; their output is projected,
// culled and expanded into triangles before each material's draw.
package render

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/iburimskiy/reality-check/internal/scene"
	"github.com/iburimskiy/reality-check/internal/surface"
)

// maxBatch keeps every index inside uint16.
const maxBatch = math.MaxUint16

var ErrCanvas = errors.New("render: canvas is not an ebiten image")

type Renderer struct {
	log      *slog.Logger
	shaders  map[string]*ebiten.Shader
	draws    []scene.Drawable
	vertices []ebiten.Vertex
	indices  []uint16
	remap    []int32
	proj     []projected
	uniforms map[string]any
	stats    Stats
}

// Stats counts the work of the last Render.
type Stats struct {
	Draws     int
	Batches   int
	Triangles int
	Culled    int
}

type projected struct {
	x, y     float32
	ok       bool
	size     float32
	varyings [4]float32
}

func New(log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{
		log:      log.With("component", "render"),
		shaders:  map[string]*ebiten.Shader{},
		uniforms: map[string]any{},
	}
}

func (r *Renderer) Stats() Stats { return r.stats }

// Render clears dst and draws every visible object back to front through
// the scene camera.
func (r *Renderer) Render(dst surface.Canvas, sc *scene.Scene, cfg surface.Config) error {
	img, ok := dst.(*ebiten.Image)
	if !ok {
		return fmt.Errorf("%w: %T", ErrCanvas, dst)
	}
	if sc == nil || sc.Disposed() {
		return errors.New("render: no scene")
	}
	img.Fill(cfg.ClearColor)
	r.stats = Stats{}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	view := sc.Camera.View()
	proj := sc.Camera.Projection()

	r.draws = sc.DrawList(view, r.draws)
	for _, d := range r.draws {
		if err := r.draw(img, d, view, proj, w, h, cfg, sc.Fog); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) draw(img *ebiten.Image, d scene.Drawable, view, proj mgl32.Mat4, w, h int, cfg surface.Config, fog scene.FogExp2) error {
	m := d.Object.Material
	g := d.Object.Geometry
	shader, err := r.shader(m)
	if err != nil {
		return err
	}
	mv := view.Mul4(d.World)
	ctx := &scene.VertexContext{
		ModelView:      mv,
		NormalMatrix:   mv.Mat3().Inv().Transpose(),
		ViewportHeight: float32(h),
		Uniforms:       m.Uniforms,
	}
	r.project(g, m.Program(), ctx, proj.Mul4(mv), w, h)

	opts := &ebiten.DrawTrianglesShaderOptions{
		Uniforms: r.bindUniforms(m, cfg, fog),
		Blend:    blend(m.Blending),
	}
	switch g.Primitive {
	case scene.Triangles:
		r.triangles(img, shader, opts, g, m.Side == scene.FrontSide)
	case scene.Points:
		r.points(img, shader, opts)
	case scene.LineStrip:
		r.lines(img, shader, opts)
	}
	r.stats.Draws++
	return nil
}

func (r *Renderer) project(g *scene.Geometry, prog scene.VertexProgram, ctx *scene.VertexContext, mvp mgl32.Mat4, w, h int) {
	n := g.Len()
	r.proj = r.proj[:0]
	for i := range n {
		in := scene.VertexInput{Index: i, Position: g.Positions[i]}
		if i < len(g.Normals) {
			in.Normal = g.Normals[i]
		}
		if i < len(g.UVs) {
			in.UV = g.UVs[i]
		}
		if i < len(g.Attrib) {
			in.Attrib = g.Attrib[i]
		}
		out := prog(ctx, in)
		x, y, _, ok := scene.ToScreen(mvp.Mul4x1(out.Position.Vec4(1)), w, h)
		r.proj = append(r.proj, projected{x: x, y: y, ok: ok, size: out.PointSize, varyings: out.Varyings})
	}
}

func (r *Renderer) triangles(img *ebiten.Image, shader *ebiten.Shader, opts *ebiten.DrawTrianglesShaderOptions, g *scene.Geometry, cull bool) {
	if cap(r.remap) < len(r.proj) {
		r.remap = make([]int32, len(r.proj))
	}
	r.remap = r.remap[:len(r.proj)]
	resetRemap(r.remap)

	idx := g.Indices
	for k := 0; k+2 < len(idx); k += 3 {
		a, b, c := r.proj[idx[k]], r.proj[idx[k+1]], r.proj[idx[k+2]]
		if !a.ok || !b.ok || !c.ok {
			continue
		}
		if cull && !scene.FrontFacing(a.x, a.y, b.x, b.y, c.x, c.y) {
			r.stats.Culled++
			continue
		}
		if len(r.vertices)+3 > maxBatch {
			r.flush(img, shader, opts)
			resetRemap(r.remap)
		}
		for _, vi := range idx[k : k+3] {
			if r.remap[vi] < 0 {
				p := r.proj[vi]
				r.remap[vi] = int32(len(r.vertices))
				r.vertices = append(r.vertices, vertex(p.x, p.y, p.varyings))
			}
			r.indices = append(r.indices, uint16(r.remap[vi]))
		}
		r.stats.Triangles++
	}
	r.flush(img, shader, opts)
}

// points draws each vertex as a square sprite of its point size in pixels.
// Varyings 0 and 1 carry the sprite coordinate, 0..1 from the top left.
func (r *Renderer) points(img *ebiten.Image, shader *ebiten.Shader, opts *ebiten.DrawTrianglesShaderOptions) {
	for _, p := range r.proj {
		if !p.ok {
			continue
		}
		s := max(p.size, 1) / 2
		if len(r.vertices)+4 > maxBatch {
			r.flush(img, shader, opts)
		}
		v := p.varyings
		r.quad(
			[2]float32{p.x - s, p.y - s}, [2]float32{p.x + s, p.y - s},
			[2]float32{p.x - s, p.y + s}, [2]float32{p.x + s, p.y + s},
			withSprite(v, 0, 0), withSprite(v, 1, 0), withSprite(v, 0, 1), withSprite(v, 1, 1),
		)
	}
	r.flush(img, shader, opts)
}

// lines draws the strip as one-pixel wide quads between consecutive vertices.
func (r *Renderer) lines(img *ebiten.Image, shader *ebiten.Shader, opts *ebiten.DrawTrianglesShaderOptions) {
	for i := 0; i+1 < len(r.proj); i++ {
		a, b := r.proj[i], r.proj[i+1]
		if !a.ok || !b.ok {
			continue
		}
		dx, dy := b.x-a.x, b.y-a.y
		l := float32(math.Hypot(float64(dx), float64(dy)))
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*0.5, dx/l*0.5
		if len(r.vertices)+4 > maxBatch {
			r.flush(img, shader, opts)
		}
		r.quad(
			[2]float32{a.x + nx, a.y + ny}, [2]float32{b.x + nx, b.y + ny},
			[2]float32{a.x - nx, a.y - ny}, [2]float32{b.x - nx, b.y - ny},
			a.varyings, b.varyings, a.varyings, b.varyings,
		)
	}
	r.flush(img, shader, opts)
}

// quad appends corners in the order top left, top right, bottom left, bottom right.
func (r *Renderer) quad(p0, p1, p2, p3 [2]float32, v0, v1, v2, v3 [4]float32) {
	base := uint16(len(r.vertices))
	r.vertices = append(r.vertices,
		vertex(p0[0], p0[1], v0),
		vertex(p1[0], p1[1], v1),
		vertex(p2[0], p2[1], v2),
		vertex(p3[0], p3[1], v3),
	)
	r.indices = append(r.indices, base, base+1, base+2, base+1, base+3, base+2)
	r.stats.Triangles += 2
}

func (r *Renderer) flush(img *ebiten.Image, shader *ebiten.Shader, opts *ebiten.DrawTrianglesShaderOptions) {
	if len(r.indices) > 0 {
		img.DrawTrianglesShader(r.vertices, r.indices, shader, opts)
		r.stats.Batches++
	}
	r.vertices = r.vertices[:0]
	r.indices = r.indices[:0]
}

func (r *Renderer) shader(m *scene.Material) (*ebiten.Shader, error) {
	key := string(m.Fragment)
	if s, ok := r.shaders[key]; ok {
		return s, nil
	}
	s, err := ebiten.NewShader(m.Fragment)
	if err != nil {
		return nil, fmt.Errorf("render: compile %s shader: %w", m.Name, err)
	}
	r.log.Debug("shader compiled", "material", m.Name)
	r.shaders[key] = s
	return s, nil
}

// bindUniforms merges the material uniforms with the surface output state
// and the scene fog, as the material asks for them.
func (r *Renderer) bindUniforms(m *scene.Material, cfg surface.Config, fog scene.FogExp2) map[string]any {
	clear(r.uniforms)
	for k, v := range m.Uniforms {
		r.uniforms[k] = v
	}
	if m.ToneMapped {
		r.uniforms["ToneMapping"] = float32(cfg.ToneMapping)
		r.uniforms["Exposure"] = float32(cfg.Exposure)
		srgb := float32(0)
		if cfg.ColorSpace == surface.SRGB {
			srgb = 1
		}
		r.uniforms["OutputSRGB"] = srgb
	}
	if m.Fog {
		c := scene.Vec3(fog.Color)
		r.uniforms["FogColor"] = []float32{c[0], c[1], c[2]}
		r.uniforms["FogDensity"] = fog.Density
	}
	return r.uniforms
}

// Extract reads src back into an RGBA image with premultiplied alpha.
func (r *Renderer) Extract(src surface.Canvas) (*image.RGBA, error) {
	img, ok := src.(*ebiten.Image)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrCanvas, src)
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	img.ReadPixels(out.Pix)
	return out, nil
}

// Dispose releases every compiled shader.
func (r *Renderer) Dispose() {
	for k, s := range r.shaders {
		s.Deallocate()
		delete(r.shaders, k)
	}
	r.vertices, r.indices, r.proj, r.remap, r.draws = nil, nil, nil, nil, nil
}

func blend(b scene.Blending) ebiten.Blend {
	if b == scene.AdditiveBlending {
		return ebiten.BlendLighter
	}
	return ebiten.BlendSourceOver
}

func vertex(x, y float32, v [4]float32) ebiten.Vertex {
	return ebiten.Vertex{
		DstX:    x,
		DstY:    y,
		SrcX:    x,
		SrcY:    y,
		ColorR:  1,
		ColorG:  1,
		ColorB:  1,
		ColorA:  1,
		Custom0: v[0],
		Custom1: v[1],
		Custom2: v[2],
		Custom3: v[3],
	}
}

func withSprite(v [4]float32, u, t float32) [4]float32 {
	v[0], v[1] = u, t
	return v
}

func resetRemap(m []int32) {
	for i := range m {
		m[i] = -1
	}
}
