package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"

	"emolens/internal/emotion"
)

type box struct {
	label      string
	confidence float64
	x, y, w, h float64
}

func (b box) EmotionLabel() string         { return b.label }
func (b box) ConfidenceScore() float64     { return b.confidence }
func (b box) Bounds() (x, y, w, h float64) { return b.x, b.y, b.w, b.h }

func opaque(w, h int, c color.RGBA) *image.RGBA {
	img := NewSurface(w, h)
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "HAPPY 91.0%", Label(box{label: "happy", confidence: 0.91}))
	assert.Equal(t, "SAD 80.0%", Label(box{label: "sad", confidence: 0.8}))
	assert.Equal(t, "NEUTRAL 12.3%", Label(box{label: "neutral", confidence: 0.1234}))
}

func TestRenderIsIdempotent(t *testing.T) {
	overlays := []box{
		{label: "happy", confidence: 0.9, x: 220, y: 20, w: 80, h: 80},
		{label: "sad", confidence: 0.61, x: 40, y: 150, w: 100, h: 120},
		{label: "mystery", confidence: 0.5, x: 60, y: 170, w: 90, h: 90}, // overlaps the previous box
	}
	r := NewRenderer()

	first := NewSurface(320, 320)
	Clear(first)
	DrawAll(r, first, overlays)

	second := NewSurface(320, 320)
	Clear(second)
	DrawAll(r, second, overlays)

	assert.Equal(t, first.Pix, second.Pix)

	// redrawing on the same surface after a clear is identical too
	Clear(first)
	DrawAll(r, first, overlays)
	assert.Equal(t, second.Pix, first.Pix)
}

func TestDrawLabelChipColour(t *testing.T) {
	surface := opaque(320, 320, color.RGBA{0, 0, 0, 0xFF})
	NewRenderer().Draw(surface, box{label: "happy", confidence: 0.9, x: 100, y: 100, w: 80, h: 80})

	// box at (86, 83.2); chip 38 px above it, left padding free of text
	assert.Equal(t, emotion.Color("happy"), surface.RGBAAt(88, 47))
}

func TestDrawUnknownLabelUsesDefaultColour(t *testing.T) {
	surface := opaque(320, 320, color.RGBA{0, 0, 0, 0xFF})
	NewRenderer().Draw(surface, box{label: "contempt", confidence: 0.5, x: 100, y: 100, w: 80, h: 80})

	assert.Equal(t, emotion.DefaultColor, surface.RGBAAt(88, 47))
}

func TestDrawTintsBoxInterior(t *testing.T) {
	surface := opaque(320, 320, color.RGBA{0, 0, 0, 0xFF})
	NewRenderer().Draw(surface, box{label: "sad", confidence: 0.7, x: 100, y: 100, w: 80, h: 80})

	centre := surface.RGBAAt(140, 140)
	base := emotion.Color("sad")
	// 18% of the palette colour over black
	assert.InDelta(t, float64(base.B)*0.18, float64(centre.B), 2)
	assert.InDelta(t, float64(base.R)*0.18, float64(centre.R), 2)
	assert.Equal(t, uint8(0xFF), centre.A)

	// outside the padded box nothing changes
	assert.Equal(t, color.RGBA{0, 0, 0, 0xFF}, surface.RGBAAt(300, 300))
}

func TestDrawClampsAtTopEdge(t *testing.T) {
	surface := opaque(200, 200, color.RGBA{0, 0, 0, 0xFF})
	require.NotPanics(t, func() {
		NewRenderer().Draw(surface, box{label: "fear", confidence: 1, x: 0, y: 0, w: 60, h: 60})
	})
	// chip pinned to the top edge
	assert.Equal(t, emotion.Color("fear"), surface.RGBAAt(2, 2))
}

func TestDrawDegenerateBox(t *testing.T) {
	surface := opaque(100, 100, color.RGBA{0, 0, 0, 0xFF})
	assert.NotPanics(t, func() {
		NewRenderer().Draw(surface, box{label: "angry", confidence: 0.3, x: 100, y: 100, w: 0, h: 0})
	})
}

func TestDrawMirrored(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 4))
	red := color.RGBA{0xFF, 0, 0, 0xFF}
	blue := color.RGBA{0, 0, 0xFF, 0xFF}
	draw.Draw(src, image.Rect(0, 0, 4, 4), image.NewUniform(red), image.Point{}, draw.Src)
	draw.Draw(src, image.Rect(4, 0, 8, 4), image.NewUniform(blue), image.Point{}, draw.Src)

	dst := NewSurface(8, 4)
	DrawMirrored(dst, src)

	assert.Equal(t, blue, dst.RGBAAt(1, 2))
	assert.Equal(t, red, dst.RGBAAt(6, 2))
}

func TestDrawMirroredScales(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	green := color.RGBA{0, 0xFF, 0, 0xFF}
	draw.Draw(src, src.Bounds(), image.NewUniform(green), image.Point{}, draw.Src)

	dst := NewSurface(16, 16)
	DrawMirrored(dst, src)
	assert.Equal(t, green, dst.RGBAAt(8, 8))
}

func TestResize(t *testing.T) {
	s := NewSurface(10, 10)
	assert.Same(t, s, Resize(s, 10, 10))

	resized := Resize(s, 20, 10)
	assert.Equal(t, 20, resized.Bounds().Dx())
	assert.Equal(t, 10, resized.Bounds().Dy())

	assert.NotNil(t, Resize(nil, 4, 4))
}

func TestClear(t *testing.T) {
	s := opaque(4, 4, color.RGBA{1, 2, 3, 0xFF})
	Clear(s)
	assert.Equal(t, color.RGBA{}, s.RGBAAt(2, 2))
}
