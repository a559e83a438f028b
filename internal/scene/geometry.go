package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type Primitive int

const (
	Triangles Primitive = iota
	Points
	LineStrip
)

// Geometry is a vertex buffer plus an optional index list.
// Attrib holds one extra float per vertex (for example a per-point speed).
type Geometry struct {
	Primitive Primitive
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Attrib    []float32
	Indices   []uint32
}

func (g *Geometry) Len() int { return len(g.Positions) }

// Dispose drops the vertex data.
func (g *Geometry) Dispose() {
	g.Positions = nil
	g.Normals = nil
	g.UVs = nil
	g.Attrib = nil
	g.Indices = nil
}

// NewSphere tessellates a full UV sphere with counter-clockwise front faces.
func NewSphere(radius float32, widthSegments, heightSegments int) *Geometry {
	widthSegments = max(widthSegments, 3)
	heightSegments = max(heightSegments, 2)
	g := &Geometry{Primitive: Triangles}

	grid := make([][]uint32, heightSegments+1)
	var index uint32
	for iy := 0; iy <= heightSegments; iy++ {
		row := make([]uint32, widthSegments+1)
		v := float64(iy) / float64(heightSegments)

		// poles get a half-step U offset so the triangle fans stay symmetric
		uOffset := 0.0
		switch iy {
		case 0:
			uOffset = 0.5 / float64(widthSegments)
		case heightSegments:
			uOffset = -0.5 / float64(widthSegments)
		}

		for ix := 0; ix <= widthSegments; ix++ {
			u := float64(ix) / float64(widthSegments)
			phi := u * 2 * math.Pi
			theta := v * math.Pi
			p := mgl32.Vec3{
				float32(-float64(radius) * math.Cos(phi) * math.Sin(theta)),
				float32(float64(radius) * math.Cos(theta)),
				float32(float64(radius) * math.Sin(phi) * math.Sin(theta)),
			}
			g.Positions = append(g.Positions, p)
			g.Normals = append(g.Normals, safeNormalize(p))
			g.UVs = append(g.UVs, mgl32.Vec2{float32(u + uOffset), float32(1 - v)})
			row[ix] = index
			index++
		}
		grid[iy] = row
	}

	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := grid[iy][ix+1]
			b := grid[iy][ix]
			c := grid[iy+1][ix]
			d := grid[iy+1][ix+1]
			if iy != 0 {
				g.Indices = append(g.Indices, a, b, d)
			}
			if iy != heightSegments-1 {
				g.Indices = append(g.Indices, b, c, d)
			}
		}
	}
	return g
}

// NewPlane builds a width x height quad in the XY plane facing +Z.
func NewPlane(width, height float32) *Geometry {
	g := &Geometry{Primitive: Triangles}
	for iy := 0; iy <= 1; iy++ {
		for ix := 0; ix <= 1; ix++ {
			g.Positions = append(g.Positions, mgl32.Vec3{
				float32(ix)*width - width/2,
				-(float32(iy)*height - height/2),
				0,
			})
			g.Normals = append(g.Normals, mgl32.Vec3{0, 0, 1})
			g.UVs = append(g.UVs, mgl32.Vec2{float32(ix), float32(1 - iy)})
		}
	}
	// vertices 0 1 on top, 2 3 below
	g.Indices = []uint32{0, 2, 1, 2, 3, 1}
	return g
}

// NewPoints wraps positions and a per-point attribute as a point cloud.
func NewPoints(positions []mgl32.Vec3, attrib []float32) *Geometry {
	return &Geometry{Primitive: Points, Positions: positions, Attrib: attrib}
}

// NewLine wraps an ordered point list as a line strip.
func NewLine(points []mgl32.Vec3) *Geometry {
	return &Geometry{Primitive: LineStrip, Positions: points}
}

func safeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l == 0 {
		return mgl32.Vec3{0, 1, 0}
	}
	return v.Mul(1 / l)
}
