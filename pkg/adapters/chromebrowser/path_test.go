package chromebrowser

import (
	"os"
	"runtime"
	"testing"
)

func TestResolveChromePath(t *testing.T) {
	t.Setenv(ChromePathEnv, "/env/chrome")

	tests := []struct {
		name     string
		explicit string
		expected string
	}{
		{name: "explicit wins", explicit: "/custom/path/to/chrome", expected: "/custom/path/to/chrome"},
		{name: "environment fallback", explicit: "", expected: "/env/chrome"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveChromePath(tt.explicit); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestResolveChromePath_NotFound(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("absolute install locations may exist on this platform")
	}
	t.Setenv(ChromePathEnv, "")
	t.Setenv("PATH", "")

	if got := ResolveChromePath(""); got != "" {
		t.Errorf("expected no Chrome with empty PATH, got %s", got)
	}
}

func TestChromeCandidates(t *testing.T) {
	if got := chromeCandidates("linux"); len(got) == 0 || got[0] != "chromium" {
		t.Errorf("expected chromium first on linux, got %v", got)
	}
	if got := chromeCandidates("darwin"); len(got) != 3 {
		t.Errorf("expected 3 macOS candidates, got %v", got)
	}

	t.Setenv("PROGRAMFILES", `C:\Program Files`)
	t.Setenv("PROGRAMFILES(X86)", "")
	t.Setenv("LOCALAPPDATA", "")
	if got := chromeCandidates("windows"); len(got) != 2 {
		t.Errorf("expected 2 windows candidates, got %v", got)
	}
}

func TestResolveExecutable(t *testing.T) {
	fullPath := "/bin/sh"
	if runtime.GOOS == "windows" {
		fullPath = os.Getenv("COMSPEC")
	}

	tests := []struct {
		name     string
		input    string
		wantPath bool
	}{
		{name: "existing full path", input: fullPath, wantPath: fullPath != ""},
		{name: "missing full path", input: "/definitely/not/a/real/path/chrome", wantPath: false},
		{name: "missing command", input: "definitely-not-a-real-command-xyz123", wantPath: false},
		{name: "empty", input: "", wantPath: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := resolveExecutable(tt.input)
			if tt.wantPath && result == "" {
				t.Errorf("expected path for %s, got empty", tt.input)
			}
			if !tt.wantPath && result != "" {
				t.Errorf("expected empty for %s, got %s", tt.input, result)
			}
		})
	}
}
