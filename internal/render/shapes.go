package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// roundRect describes a rounded rectangle, filled when stroke is 0 or
// outlined with a stroke of that width centred on the edge
type roundRect struct {
	x, y, w, h float64
	radius     float64
	stroke     float64
}

// mask rasterizes the shape into an antialiased alpha mask in surface coordinates
func (r roundRect) mask() *image.Alpha {
	pad := r.stroke/2 + 1
	bounds := image.Rect(
		int(math.Floor(r.x-pad)), int(math.Floor(r.y-pad)),
		int(math.Ceil(r.x+r.w+pad)), int(math.Ceil(r.y+r.h+pad)),
	)
	m := image.NewAlpha(bounds)

	hx, hy := r.w/2, r.h/2
	cx, cy := r.x+hx, r.y+hy
	radius := math.Max(0, math.Min(r.radius, math.Min(hx, hy)))

	for py := bounds.Min.Y; py < bounds.Max.Y; py++ {
		for px := bounds.Min.X; px < bounds.Max.X; px++ {
			qx := math.Abs(float64(px)+0.5-cx) - hx + radius
			qy := math.Abs(float64(py)+0.5-cy) - hy + radius
			// signed distance to the rounded edge, negative inside
			d := math.Hypot(math.Max(qx, 0), math.Max(qy, 0)) + math.Min(math.Max(qx, qy), 0) - radius

			var cover float64
			if r.stroke > 0 {
				cover = r.stroke/2 - math.Abs(d) + 0.5
			} else {
				cover = 0.5 - d
			}
			m.SetAlpha(px, py, color.Alpha{A: coverage(cover)})
		}
	}
	return m
}

func coverage(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xFF
	}
	return uint8(v*255 + 0.5)
}

// paint composites c over dst through the shape's mask
func (r roundRect) paint(dst *image.RGBA, c color.Color) {
	if r.w <= 0 || r.h <= 0 {
		return
	}
	m := r.mask()
	clip := m.Bounds().Intersect(dst.Bounds())
	if clip.Empty() {
		return
	}
	draw.DrawMask(dst, clip, image.NewUniform(c), image.Point{}, m, clip.Min, draw.Over)
}

// withAlpha returns c at the given opacity (0-1)
func withAlpha(c color.RGBA, alpha float64) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(alpha * 255))}
}
