package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// CatmullRom is an open centripetal Catmull-Rom spline through its points.
// The end tangents come from control points mirrored past the first and last point.
type CatmullRom struct {
	Points []mgl64.Vec3
}

// Point evaluates the curve at t in [0,1].
func (c CatmullRom) Point(t float64) mgl64.Vec3 {
	pts := c.Points
	l := len(pts)
	switch l {
	case 0:
		return mgl64.Vec3{}
	case 1:
		return pts[0]
	}
	t = math.Min(math.Max(t, 0), 1)

	p := float64(l-1) * t
	i := int(math.Floor(p))
	w := p - float64(i)
	if i >= l-1 {
		i, w = l-2, 1
	}

	var p0, p3 mgl64.Vec3
	if i > 0 {
		p0 = pts[i-1]
	} else {
		p0 = pts[0].Sub(pts[1]).Add(pts[0])
	}
	p1, p2 := pts[i], pts[i+1]
	if i+2 < l {
		p3 = pts[i+2]
	} else {
		p3 = pts[l-1].Sub(pts[l-2]).Add(pts[l-1])
	}

	dt0 := math.Pow(distSq(p0, p1), 0.25)
	dt1 := math.Pow(distSq(p1, p2), 0.25)
	dt2 := math.Pow(distSq(p2, p3), 0.25)
	if dt1 < 1e-4 {
		dt1 = 1
	}
	if dt0 < 1e-4 {
		dt0 = dt1
	}
	if dt2 < 1e-4 {
		dt2 = dt1
	}

	var out mgl64.Vec3
	for k := 0; k < 3; k++ {
		out[k] = nonuniformCubic(p0[k], p1[k], p2[k], p3[k], dt0, dt1, dt2, w)
	}
	return out
}

// Sample returns divisions+1 evenly spaced (in t) points along the curve.
func (c CatmullRom) Sample(divisions int) []mgl32.Vec3 {
	divisions = max(divisions, 1)
	out := make([]mgl32.Vec3, 0, divisions+1)
	for d := 0; d <= divisions; d++ {
		p := c.Point(float64(d) / float64(divisions))
		out = append(out, mgl32.Vec3{float32(p[0]), float32(p[1]), float32(p[2])})
	}
	return out
}

func nonuniformCubic(x0, x1, x2, x3, dt0, dt1, dt2, t float64) float64 {
	t1 := (x1-x0)/dt0 - (x2-x0)/(dt0+dt1) + (x2-x1)/dt1
	t2 := (x2-x1)/dt1 - (x3-x1)/(dt1+dt2) + (x3-x2)/dt2
	t1 *= dt1
	t2 *= dt1

	c0 := x1
	c1 := t1
	c2 := -3*x1 + 3*x2 - 2*t1 - t2
	c3 := 2*x1 - 2*x2 + t1 + t2
	return c0 + c1*t + c2*t*t + c3*t*t*t
}

func distSq(a, b mgl64.Vec3) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}
