// Package render draws the mirrored preview and the emotion overlays onto an
// RGBA surface. Surfaces are expected to have their origin at (0,0).
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"emolens/internal/emotion"
)

// Overlay is one annotated face region on the surface
type Overlay interface {
	EmotionLabel() string
	ConfidenceScore() float64
	Bounds() (x, y, w, h float64)
}

const (
	boxMargin    = 14.0
	boxRadius    = 14.0
	fillAlpha    = 0.18
	innerAlpha   = 0.7
	innerInset   = 4.0
	labelHeight  = 34
	labelGap     = 4
	labelPadding = 10
)

var (
	white     = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	textColor = color.RGBA{0x0F, 0x17, 0x2A, 0xFF}
)

// Renderer draws overlays with a fixed label face
type Renderer struct {
	face font.Face
}

// NewRenderer creates a renderer using the bold Inconsolata bitmap face
func NewRenderer() *Renderer {
	return NewRendererWithFace(inconsolata.Bold8x16)
}

// NewRendererWithFace creates a renderer using face for labels
func NewRendererWithFace(face font.Face) *Renderer {
	return &Renderer{face: face}
}

// NewSurface allocates a w×h surface
func NewSurface(w, h int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// Resize returns dst if it already measures w×h, otherwise a new surface
func Resize(dst *image.RGBA, w, h int) *image.RGBA {
	if dst != nil && dst.Bounds().Dx() == w && dst.Bounds().Dy() == h {
		return dst
	}
	return NewSurface(w, h)
}

// Clear resets every pixel to transparent
func Clear(dst *image.RGBA) {
	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// DrawMirrored scales src onto the whole surface, flipped about the vertical centre
func DrawMirrored(dst *image.RGBA, src image.Image) {
	sb := src.Bounds()
	if sb.Empty() || dst.Bounds().Empty() {
		return
	}
	vw := float64(dst.Bounds().Dx())
	vh := float64(dst.Bounds().Dy())
	kx := vw / float64(sb.Dx())
	ky := vh / float64(sb.Dy())

	s2d := f64.Aff3{
		-kx, 0, vw + kx*float64(sb.Min.X),
		0, ky, -ky * float64(sb.Min.Y),
	}
	draw.ApproxBiLinear.Transform(dst, s2d, src, sb, draw.Src, nil)
}

// Label formats the chip text, e.g. "HAPPY 91.0%"
func Label(o Overlay) string {
	return fmt.Sprintf("%s %.1f%%", strings.ToUpper(o.EmotionLabel()), o.ConfidenceScore()*100)
}

// DrawAll draws overlays in order. Overlapping boxes are drawn independently.
func DrawAll[O Overlay](r *Renderer, dst *image.RGBA, overlays []O) {
	for _, o := range overlays {
		r.Draw(dst, o)
	}
}

// Draw draws a single overlay: tinted rounded box, coloured border, inner
// white border and the label chip above the box
func (r *Renderer) Draw(dst *image.RGBA, o Overlay) {
	cw := float64(dst.Bounds().Dx())
	ch := float64(dst.Bounds().Dy())
	base := emotion.Color(o.EmotionLabel())

	ex, ey, ew, eh := o.Bounds()
	x := math.Max(0, ex-boxMargin)
	y := math.Max(0, ey-boxMargin*1.2)
	w := math.Min(cw-x, ew+boxMargin*2)
	h := math.Min(ch-y, eh+boxMargin*2)

	roundRect{x: x, y: y, w: w, h: h, radius: boxRadius}.paint(dst, withAlpha(base, fillAlpha))

	lw := math.Max(4, math.Round(math.Min(cw, ch)/140))
	roundRect{x: x, y: y, w: w, h: h, radius: boxRadius, stroke: lw}.paint(dst, base)

	roundRect{
		x: x + innerInset, y: y + innerInset,
		w: w - 2*innerInset, h: h - 2*innerInset,
		radius: boxRadius - innerInset,
		stroke: math.Max(2, lw-2),
	}.paint(dst, withAlpha(white, innerAlpha))

	r.drawLabel(dst, Label(o), x, y, base)
}

func (r *Renderer) drawLabel(dst *image.RGBA, label string, x, y float64, base color.RGBA) {
	textW := font.MeasureString(r.face, label).Ceil() + 2*labelPadding
	labelY := math.Max(0, y-labelHeight-labelGap)

	chip := image.Rect(0, 0, textW, labelHeight).Add(image.Pt(int(math.Round(x)), int(math.Round(labelY))))
	draw.Draw(dst, chip.Intersect(dst.Bounds()), image.NewUniform(base), image.Point{}, draw.Over)

	// vertically centred baseline
	m := r.face.Metrics()
	baseline := fixed.I(chip.Min.Y+labelHeight/2) + (m.Ascent-m.Descent)/2

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor),
		Face: r.face,
		Dot:  fixed.Point26_6{X: fixed.I(chip.Min.X + labelPadding), Y: baseline},
	}
	d.DrawString(label)
}
