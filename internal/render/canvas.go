package render

import (
	"fmt"
	"image"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/iburimskiy/reality-check/internal/surface"
)

// Allocator creates unmanaged ebiten images as surface canvases. ebiten
// panics when it cannot create an image; the panic comes back as an error.
func Allocator() surface.Allocator {
	return surface.AllocatorFunc(func(w, h int) (c surface.Canvas, err error) {
		defer func() {
			if p := recover(); p != nil {
				c, err = nil, fmt.Errorf("render: allocate %dx%d canvas: %v", w, h, p)
			}
		}()
		img := ebiten.NewImageWithOptions(image.Rect(0, 0, w, h), &ebiten.NewImageOptions{Unmanaged: true})
		return img, nil
	})
}

// Present draws src scaled to fill dst.
func Present(dst *ebiten.Image, src surface.Canvas) {
	img, ok := src.(*ebiten.Image)
	if !ok || img == nil {
		return
	}
	sb, db := img.Bounds(), dst.Bounds()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(db.Dx())/float64(sb.Dx()), float64(db.Dy())/float64(sb.Dy()))
	op.Filter = ebiten.FilterLinear
	dst.DrawImage(img, op)
}
