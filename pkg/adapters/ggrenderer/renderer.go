// Package ggrenderer draws simulated timelines using the gg library.
package ggrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/basicfont"

	"github.com/user/loadsim/pkg/ports"
)

const (
	defaultWidth = 1000
	labelWidth   = 260
	rowHeight    = 16
	headerHeight = 32
	axisHeight   = 20
	padding      = 8
	maxLabelLen  = 36
)

var (
	background = color.White
	gridColor  = color.RGBA{R: 225, G: 225, B: 225, A: 255}
	textColor  = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	fallback   = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

// Renderer implements ports.WaterfallRenderer using the gg library.
type Renderer struct {
	width int
	scale float64
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithWidth sets the image width in pixels before scaling.
func WithWidth(width int) Option {
	return func(r *Renderer) {
		if width > labelWidth+2*padding {
			r.width = width
		}
	}
}

// WithScale resamples the finished image by factor.
func WithScale(factor float64) Option {
	return func(r *Renderer) {
		if factor > 0 {
			r.scale = factor
		}
	}
}

// New creates a new Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{width: defaultWidth, scale: 1}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderWaterfall draws one row per bar, in the given order, on a time axis
// spanning [0, totalMs].
func (r *Renderer) RenderWaterfall(title string, bars []ports.WaterfallBar, totalMs float64) image.Image {
	height := headerHeight + len(bars)*rowHeight + axisHeight + padding
	dc := gg.NewContext(r.width, height)
	dc.SetColor(background)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	span := totalMs
	for _, b := range bars {
		span = math.Max(span, b.EndMs)
	}
	if span <= 0 {
		span = 1
	}
	chartLeft := float64(labelWidth)
	chartWidth := float64(r.width - labelWidth - padding)
	xOf := func(ms float64) float64 {
		return chartLeft + chartWidth*math.Max(ms, 0)/span
	}

	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, padding, headerHeight/2, 0, 0.5)

	axisY := float64(headerHeight + len(bars)*rowHeight)
	step := gridStep(span)
	dc.SetLineWidth(1)
	for t := 0.0; t <= span; t += step {
		x := xOf(t)
		dc.SetColor(gridColor)
		dc.DrawLine(x, headerHeight, x, axisY)
		dc.Stroke()
		dc.SetColor(textColor)
		dc.DrawStringAnchored(fmt.Sprintf("%.0f", t), x, axisY+axisHeight/2, 0.5, 0.5)
	}

	for i, b := range bars {
		y := float64(headerHeight + i*rowHeight)
		dc.SetColor(textColor)
		dc.DrawStringAnchored(truncate(b.Label, maxLabelLen), padding, y+rowHeight/2, 0, 0.5)

		x0, x1 := xOf(b.StartMs), xOf(b.EndMs)
		if x1-x0 < 1 {
			x1 = x0 + 1
		}
		col := b.Color
		if col == nil {
			col = fallback
		}
		dc.SetColor(col)
		dc.DrawRectangle(x0, y+2, x1-x0, rowHeight-4)
		dc.Fill()
	}

	img := dc.Image()
	if r.scale == 1 {
		return img
	}
	return resize(img, r.scale)
}

// EncodePNG encodes an image as PNG.
func (r *Renderer) EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// gridStep picks a 1-2-5 step giving at most ten grid lines over span.
func gridStep(span float64) float64 {
	raw := span / 10
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5, 10} {
		if m*mag >= raw {
			return m * mag
		}
	}
	return 10 * mag
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func resize(img image.Image, factor float64) image.Image {
	b := img.Bounds()
	w := int(math.Max(1, math.Round(float64(b.Dx())*factor)))
	h := int(math.Max(1, math.Round(float64(b.Dy())*factor)))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Ensure Renderer implements ports.WaterfallRenderer
var _ ports.WaterfallRenderer = (*Renderer)(nil)
