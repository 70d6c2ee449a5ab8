package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/user/loadsim/pkg/ports"
)

func TestConsoleLogger_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    ports.LogLevel
		wantOut  []string
		wantErr  []string
		unwanted []string
	}{
		{
			name:     "info",
			level:    ports.LevelInfo,
			wantOut:  []string{"info 2"},
			wantErr:  []string{"warn 3", "error 4"},
			unwanted: []string{"debug 1"},
		},
		{
			name:     "warn",
			level:    ports.LevelWarn,
			wantErr:  []string{"warn 3", "error 4"},
			unwanted: []string{"debug 1", "info 2"},
		},
		{
			name:     "quiet",
			level:    ports.LevelQuiet,
			unwanted: []string{"debug 1", "info 2", "warn 3", "error 4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			l := NewWriterLogger(tt.level, &out, &errOut, false)

			l.Debug("debug %d", 1)
			l.Info("info %d", 2)
			l.Warn("warn %d", 3)
			l.Error("error %d", 4)

			for _, s := range tt.wantOut {
				if !strings.Contains(out.String(), s) {
					t.Errorf("stdout missing %q: %q", s, out.String())
				}
			}
			for _, s := range tt.wantErr {
				if !strings.Contains(errOut.String(), s) {
					t.Errorf("stderr missing %q: %q", s, errOut.String())
				}
			}
			all := out.String() + errOut.String()
			for _, s := range tt.unwanted {
				if strings.Contains(all, s) {
					t.Errorf("unexpected %q in output", s)
				}
			}
		})
	}
}

func TestConsoleLogger_WithComponent(t *testing.T) {
	var out bytes.Buffer
	l := NewWriterLogger(ports.LevelDebug, &out, &out, false)

	l.WithComponent("simulator").Debug("step %d", 7)

	if got := strings.TrimSpace(out.String()); got != "[simulator] step 7" {
		t.Errorf("unexpected line %q", got)
	}
}

func TestConsoleLogger_PreformattedMessage(t *testing.T) {
	var out bytes.Buffer
	l := NewWriterLogger(ports.LevelInfo, &out, &out, false)

	l.Info("https://example.com/a%20b")

	if got := strings.TrimSpace(out.String()); got != "https://example.com/a%20b" {
		t.Errorf("message without args must be printed verbatim, got %q", got)
	}
}

func TestConsoleLogger_Color(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewWriterLogger(ports.LevelDebug, &out, &errOut, true)

	l.Warn("careful")

	if !strings.HasPrefix(errOut.String(), colorYellow) {
		t.Errorf("expected yellow warning, got %q", errOut.String())
	}
}

func TestNoopLogger(t *testing.T) {
	var l ports.Logger = NewNoop()
	l.Info("ignored %d", 1)
	if l.WithComponent("x") != l {
		t.Error("expected WithComponent to return the same logger")
	}
}
