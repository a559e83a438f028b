package game

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"
)

// Button is a labelled rectangle in logical window coordinates.
type Button struct {
	ID    string
	Label string
	X, Y  float64
	W, H  float64

	hovered bool
	pressed bool
}

func (b *Button) Contains(x, y float64) bool {
	return x >= b.X && x <= b.X+b.W && y >= b.Y && y <= b.Y+b.H
}

// Update tracks hover and press state and reports a click: a press and
// release that both land on the button.
func (b *Button) Update(x, y float64, justPressed, justReleased bool) bool {
	b.hovered = b.Contains(x, y)
	if b.hovered && justPressed {
		b.pressed = true
	}
	if !justReleased {
		return false
	}
	clicked := b.pressed && b.hovered
	b.pressed = false
	return clicked
}

func (b *Button) Hovered() bool { return b.hovered }

func (b *Button) Pressed() bool { return b.pressed }

// Draw renders the button scaled by scale. glow in 0..1 brightens the border.
func (b *Button) Draw(screen *ebiten.Image, scale, glow float64, disabled bool) {
	var bg color.RGBA
	switch {
	case disabled:
		bg = color.RGBA{R: 20, G: 40, B: 50, A: 220}
	case b.pressed:
		bg = color.RGBA{R: 0, G: 90, B: 110, A: 230}
	case b.hovered:
		bg = color.RGBA{R: 0, G: 120, B: 140, A: 230}
	default:
		bg = color.RGBA{R: 0, G: 70, B: 90, A: 210}
	}
	x, y := float32(b.X*scale), float32(b.Y*scale)
	w, h := float32(b.W*scale), float32(b.H*scale)
	vector.DrawFilledRect(screen, x, y, w, h, bg, false)

	r, g, bl := hsvToRgb(185, 1-0.6*clamp01(glow), 0.7+0.3*clamp01(glow))
	vector.StrokeRect(screen, x, y, w, h, float32(2*scale), color.RGBA{R: r, G: g, B: bl, A: 255}, false)

	face := basicfont.Face7x13
	bounds := text.BoundString(face, b.Label)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(
		b.X+(b.W-float64(bounds.Dx()))/2,
		b.Y+(b.H+float64(face.Ascent)-float64(face.Descent))/2,
	)
	op.GeoM.Scale(scale, scale)
	op.ColorScale.ScaleWithColor(color.RGBA{R: 220, G: 250, B: 255, A: 255})
	text.DrawWithOptions(screen, b.Label, face, op)
}
