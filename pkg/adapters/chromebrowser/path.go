package chromebrowser

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ChromePathEnv names the environment variable consulted when no explicit
// Chrome path is given.
const ChromePathEnv = "CHROME_PATH"

// ResolveChromePath returns explicitPath when set, else $CHROME_PATH, else the
// first Chromium or Chrome found in the platform's usual places. It returns ""
// when nothing is found.
func ResolveChromePath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}
	if env := os.Getenv(ChromePathEnv); env != "" {
		return env
	}
	for _, candidate := range chromeCandidates(runtime.GOOS) {
		if path := resolveExecutable(candidate); path != "" {
			return path
		}
	}
	return ""
}

// chromeCandidates lists executables to try, Chromium before Chrome.
func chromeCandidates(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Google Chrome Canary.app/Contents/MacOS/Google Chrome Canary",
		}
	case "windows":
		var out []string
		for _, env := range []string{"PROGRAMFILES", "PROGRAMFILES(X86)", "LOCALAPPDATA"} {
			base := os.Getenv(env)
			if base == "" {
				continue
			}
			out = append(out,
				filepath.Join(base, "Chromium", "Application", "chrome.exe"),
				filepath.Join(base, "Google", "Chrome", "Application", "chrome.exe"),
			)
		}
		return out
	default:
		return []string{"chromium", "chromium-browser", "google-chrome-stable", "google-chrome"}
	}
}

// resolveExecutable returns nameOrPath if it is an existing absolute path, or
// its PATH lookup if it is a bare command name.
func resolveExecutable(nameOrPath string) string {
	if nameOrPath == "" {
		return ""
	}
	if filepath.IsAbs(nameOrPath) || filepath.VolumeName(nameOrPath) != "" || nameOrPath[0] == '/' {
		if _, err := os.Stat(nameOrPath); err == nil {
			return nameOrPath
		}
		return ""
	}
	if path, err := exec.LookPath(nameOrPath); err == nil {
		return path
	}
	return ""
}
