package mocks

import (
	"image"
	"sync"

	"github.com/user/loadsim/pkg/ports"
)

// Renderer is a mock implementation of ports.WaterfallRenderer.
type Renderer struct {
	mu sync.Mutex

	RenderWaterfallFunc func(title string, bars []ports.WaterfallBar, totalMs float64) image.Image
	EncodePNGFunc       func(img image.Image) ([]byte, error)

	// Rendered counts bars per title.
	Rendered map[string]int
}

func (m *Renderer) RenderWaterfall(title string, bars []ports.WaterfallBar, totalMs float64) image.Image {
	m.mu.Lock()
	if m.Rendered == nil {
		m.Rendered = make(map[string]int)
	}
	m.Rendered[title] = len(bars)
	m.mu.Unlock()
	if m.RenderWaterfallFunc != nil {
		return m.RenderWaterfallFunc(title, bars, totalMs)
	}
	return image.NewRGBA(image.Rect(0, 0, 100, 10*len(bars)+10))
}

func (m *Renderer) EncodePNG(img image.Image) ([]byte, error) {
	if m.EncodePNGFunc != nil {
		return m.EncodePNGFunc(img)
	}
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

var _ ports.WaterfallRenderer = (*Renderer)(nil)
