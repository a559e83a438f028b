package scene

import (
	"errors"
	"image/color"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

type AmbientLight struct {
	Color     color.RGBA
	Intensity float32
}

type DirectionalLight struct {
	Color     color.RGBA
	Intensity float32
	Position  mgl32.Vec3
}

// FogExp2 fades toward Color by 1 - exp(-(Density*depth)^2).
type FogExp2 struct {
	Color   color.RGBA
	Density float32
}

// Factor is the fog blend amount at a view depth.
func (f FogExp2) Factor(depth float32) float32 {
	d := f.Density * depth
	return 1 - float32(math.Exp(float64(-d*d)))
}

// Counts sizes the procedural populations.
type Counts struct {
	Streams  int
	Circuits int
	Segments int
	Stars    int
}

func DefaultCounts() Counts {
	return Counts{Streams: 800, Circuits: 200, Segments: 24, Stars: 2000}
}

// UniformBinding names one uniform on one object's material.
type UniformBinding struct {
	Object *Object
	Name   string
}

func (b UniformBinding) Set(v float32) { b.Object.Material.Uniforms.SetFloat(b.Name, v) }

// Scene is built once by Assemble and then only read, apart from the
// uniforms, transforms and camera the animation loop drives.
type Scene struct {
	Camera      *Camera
	Ambient     AmbientLight
	Directional DirectionalLight
	Fog         FogExp2
	Objects     []*Object

	Planet   *Object
	Eye      *Object
	Streams  *Object
	Circuits *Object
	Stars    *Object

	timeBindings []UniformBinding
	disposed     bool
}

var (
	CameraStart = mgl32.Vec3{0, 1.4, 9}
	CameraFocus = mgl32.Vec3{0, 2.6, 0}
)

// Assemble builds the full scene for a viewport of the given aspect ratio.
func Assemble(rng *rand.Rand, aspect float64, counts Counts) (*Scene, error) {
	if rng == nil {
		return nil, errors.New("scene: nil random source")
	}
	cam := NewPerspectiveCamera(55, float32(aspect), 0.1, 200)
	cam.Position = CameraStart

	s := &Scene{
		Camera:      cam,
		Ambient:     AmbientLight{Color: mustHex("#2bd9ff"), Intensity: 0.25},
		Directional: DirectionalLight{Color: mustHex("#9ff6ff"), Intensity: 1.1, Position: mgl32.Vec3{-4, 6, 6}},
		Fog:         FogExp2{Color: mustHex("#06152a"), Density: 0.03},
	}
	s.Planet = NewPlanet()
	s.Eye = NewEye()
	s.Streams = NewDataStreams(rng, counts.Streams)
	s.Circuits = NewCircuitLines(rng, counts.Circuits, counts.Segments)
	s.Stars = NewStars(rng, counts.Stars)
	s.Add(s.Planet, s.Eye, s.Streams, s.Circuits, s.Stars)
	return s, nil
}

// Add appends objects and refreshes the time uniform registry.
func (s *Scene) Add(objs ...*Object) {
	s.Objects = append(s.Objects, objs...)
	s.timeBindings = s.timeBindings[:0]
	for _, o := range s.Objects {
		o.Walk(mgl32.Ident4(), func(n *Object, _ mgl32.Mat4) {
			if n.Material != nil && n.Material.Uniforms.Has(UniformTime) {
				s.timeBindings = append(s.timeBindings, UniformBinding{Object: n, Name: UniformTime})
			}
		})
	}
}

// TimeBindings lists every object whose material reads elapsed time.
func (s *Scene) TimeBindings() []UniformBinding { return s.timeBindings }

// Drawable is one object with geometry, ready to rasterize.
type Drawable struct {
	Object *Object
	World  mgl32.Mat4
	Depth  float32
}

// DrawList flattens the scene back to front by view depth; ties keep scene order.
func (s *Scene) DrawList(view mgl32.Mat4, dst []Drawable) []Drawable {
	dst = dst[:0]
	for _, o := range s.Objects {
		o.Walk(mgl32.Ident4(), func(n *Object, world mgl32.Mat4) {
			if n.Geometry == nil || n.Material == nil || n.Geometry.Len() == 0 {
				return
			}
			origin := view.Mul4(world).Col(3)
			dst = append(dst, Drawable{Object: n, World: world, Depth: -origin[2]})
		})
	}
	sort.SliceStable(dst, func(i, j int) bool { return dst[i].Depth > dst[j].Depth })
	return dst
}

func (s *Scene) Disposed() bool { return s.disposed }

// Dispose releases every object's resources.
func (s *Scene) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	for _, o := range s.Objects {
		o.Dispose()
	}
	s.timeBindings = nil
}
