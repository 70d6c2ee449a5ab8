package summarizer

import (
	"errors"
	"testing"

	"github.com/user/loadsim/pkg/mocks"
)

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	formatter := FormatFunc(func(s *Summary) string { return "summary of " + s.Run.Name })
	writer := NewWriter(fs, formatter)

	summary := NewBuilder().WithRun("example", "lcp", 0).Build()
	if err := writer.Write("out/summary.md", summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, ok := fs.GetFile("out/summary.md")
	if !ok {
		t.Fatal("expected summary file to be written")
	}
	if string(data) != "summary of example" {
		t.Errorf("unexpected content %q", data)
	}
	if exists, _ := fs.Exists("out"); !exists {
		t.Error("expected parent directory to be created")
	}
}

func TestWriter_Write_Error(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFileFunc = func(path string, data []byte) error { return errors.New("disk full") }
	writer := NewWriter(fs, NewMarkdownFormatter())

	if err := writer.Write("summary.md", NewSummary()); err == nil {
		t.Error("expected write error")
	}
}
