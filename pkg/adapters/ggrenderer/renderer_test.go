package ggrenderer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/user/loadsim/pkg/ports"
)

var red = color.RGBA{R: 255, A: 255}

func testBars() []ports.WaterfallBar {
	return []ports.WaterfallBar{
		{Label: "https://example.com/", StartMs: 0, EndMs: 300, Color: red},
		{Label: "ParseHTML", StartMs: 300, EndMs: 320},
		{Label: "https://cdn.example.com/a-very-long-path/that/keeps/going/hero.jpg", StartMs: 330, EndMs: 900, Color: red},
	}
}

func TestRenderer_RenderWaterfall(t *testing.T) {
	r := New()

	img := r.RenderWaterfall("optimistic-lcp/fast", testBars(), 1000)
	bounds := img.Bounds()

	expectedHeight := headerHeight + 3*rowHeight + axisHeight + padding
	if bounds.Dx() != defaultWidth || bounds.Dy() != expectedHeight {
		t.Errorf("expected %dx%d, got %dx%d", defaultWidth, expectedHeight, bounds.Dx(), bounds.Dy())
	}

	// Middle of the first bar: 150ms on a 1000ms axis.
	chartWidth := float64(defaultWidth - labelWidth - padding)
	x := labelWidth + int(chartWidth*0.15)
	y := headerHeight + rowHeight/2
	rr, g, b, _ := img.At(x, y).RGBA()
	if rr>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("expected red bar at (%d,%d), got %v", x, y, img.At(x, y))
	}
}

func TestRenderer_RenderWaterfall_Empty(t *testing.T) {
	r := New()

	img := r.RenderWaterfall("empty", nil, 0)
	if img.Bounds().Dy() != headerHeight+axisHeight+padding {
		t.Errorf("unexpected height %d", img.Bounds().Dy())
	}
}

func TestRenderer_Options(t *testing.T) {
	r := New(WithWidth(600), WithScale(0.5))

	img := r.RenderWaterfall("scaled", testBars(), 900)
	expectedHeight := (headerHeight + 3*rowHeight + axisHeight + padding) / 2
	if img.Bounds().Dx() != 300 || img.Bounds().Dy() != expectedHeight {
		t.Errorf("expected 300x%d, got %v", expectedHeight, img.Bounds())
	}

	if New(WithWidth(10)).width != defaultWidth {
		t.Error("too narrow width should be ignored")
	}
}

func TestRenderer_EncodePNG(t *testing.T) {
	r := New()

	img := image.NewRGBA(image.Rect(0, 0, 50, 40))
	data, err := r.EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}

	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Bounds().Dx() != 50 || decoded.Bounds().Dy() != 40 {
		t.Errorf("expected 50x40, got %v", decoded.Bounds())
	}
}

func TestGridStep(t *testing.T) {
	tests := []struct {
		span     float64
		expected float64
	}{
		{span: 1000, expected: 100},
		{span: 1500, expected: 200},
		{span: 4000, expected: 500},
		{span: 9, expected: 1},
	}

	for _, tt := range tests {
		if got := gridStep(tt.span); got != tt.expected {
			t.Errorf("gridStep(%v) = %v, want %v", tt.span, got, tt.expected)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Errorf("got %q", got)
	}
}
