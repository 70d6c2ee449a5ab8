// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/user/loadsim/pkg/ports"
)

// Sink saves debug output to files.
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.WaterfallRenderer
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem, renderer ports.WaterfallRenderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveGraphJSON saves a dependency graph as graphs/<name>.json.
func (s *Sink) SaveGraphJSON(name string, data []byte) error {
	return s.save("graphs", name+".json", data)
}

// SaveTimingJSON saves a timing table as timings/<scenario>.json.
func (s *Sink) SaveTimingJSON(scenario string, data []byte) error {
	return s.save("timings", scenario+".json", data)
}

// SaveWaterfall saves a rendered waterfall as waterfalls/<scenario>.png.
func (s *Sink) SaveWaterfall(scenario string, img image.Image) error {
	data, err := s.renderer.EncodePNG(img)
	if err != nil {
		return fmt.Errorf("encode waterfall: %w", err)
	}
	return s.save("waterfalls", scenario+".png", data)
}

func (s *Sink) save(kind, name string, data []byte) error {
	dir := filepath.Join(s.baseDir, kind)
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	return s.fs.WriteFile(filepath.Join(dir, fileName(name)), data)
}

// fileName flattens scenario keys such as "optimistic-interactive/none" into
// a single path element.
var fileName = strings.NewReplacer("/", "__", "\\", "__", ":", "_").Replace

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
