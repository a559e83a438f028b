package scene

import "github.com/go-gl/mathgl/mgl32"

// Object is one renderable entity or, with no geometry, a group of children.
type Object struct {
	Name     string
	Geometry *Geometry
	Material *Material
	Position mgl32.Vec3
	Rotation mgl32.Vec3 // Euler XYZ, radians
	Children []*Object
	Visible  bool
}

func NewObject(name string, g *Geometry, m *Material) *Object {
	return &Object{Name: name, Geometry: g, Material: m, Visible: true}
}

func NewGroup(name string) *Object {
	return NewObject(name, nil, nil)
}

func (o *Object) Add(children ...*Object) {
	o.Children = append(o.Children, children...)
}

// Matrix is the local transform: translate, then rotate X, Y, Z.
func (o *Object) Matrix() mgl32.Mat4 {
	m := mgl32.Translate3D(o.Position[0], o.Position[1], o.Position[2])
	if o.Rotation[0] != 0 {
		m = m.Mul4(mgl32.HomogRotate3DX(o.Rotation[0]))
	}
	if o.Rotation[1] != 0 {
		m = m.Mul4(mgl32.HomogRotate3DY(o.Rotation[1]))
	}
	if o.Rotation[2] != 0 {
		m = m.Mul4(mgl32.HomogRotate3DZ(o.Rotation[2]))
	}
	return m
}

// Walk visits o and its visible descendants depth first with their world matrices.
func (o *Object) Walk(parent mgl32.Mat4, fn func(o *Object, world mgl32.Mat4)) {
	if !o.Visible {
		return
	}
	world := parent.Mul4(o.Matrix())
	fn(o, world)
	for _, c := range o.Children {
		c.Walk(world, fn)
	}
}

// Dispose releases the geometry and material of o and its children.
// Materials shared between children are released once.
func (o *Object) Dispose() {
	if o.Geometry != nil {
		o.Geometry.Dispose()
	}
	if o.Material != nil && !o.Material.Disposed() {
		o.Material.Dispose()
	}
	for _, c := range o.Children {
		c.Dispose()
	}
}
