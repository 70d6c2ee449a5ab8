package ports

import (
	"image"
	"image/color"
)

// WaterfallBar is one horizontal bar of a simulated timeline.
type WaterfallBar struct {
	Label   string
	StartMs float64
	EndMs   float64
	Color   color.Color
}

// WaterfallRenderer draws simulated timelines and encodes images.
type WaterfallRenderer interface {
	// RenderWaterfall draws the bars on a timeline spanning [0, totalMs].
	RenderWaterfall(title string, bars []WaterfallBar, totalMs float64) image.Image
	// EncodePNG encodes an image as PNG.
	EncodePNG(img image.Image) ([]byte, error)
}
