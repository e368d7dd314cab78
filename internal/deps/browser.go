package deps

import (
	"os"
	"os/exec"
	"strings"
)

// browserCandidates lists binary names probed when no explicit browser path is
// configured. Order reflects how distributions commonly name Chrome builds.
var browserCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
}

// ResolveBrowserPath locates a usable Chrome or Chromium binary. A configured
// value wins when it points at an executable; otherwise the well known binary
// names are probed on PATH. Returns an empty string when nothing is found.
func ResolveBrowserPath(configured string) string {
	configured = strings.TrimSpace(configured)
	if configured != "" {
		if strings.ContainsRune(configured, os.PathSeparator) {
			if isExecutable(configured) {
				return configured
			}
			return ""
		}
		if resolved, err := exec.LookPath(configured); err == nil {
			return resolved
		}
		return ""
	}
	for _, candidate := range browserCandidates {
		if resolved, err := exec.LookPath(candidate); err == nil {
			return resolved
		}
	}
	return ""
}

// CheckBrowser reports whether a Chrome or Chromium binary is available for
// the portal driver.
func CheckBrowser(configured string) Status {
	status := Status{
		Name:        "chrome",
		Command:     "chrome",
		Description: "Chrome or Chromium binary driven for portal sessions",
	}
	resolved := ResolveBrowserPath(configured)
	if resolved == "" {
		status.Available = false
		if strings.TrimSpace(configured) != "" {
			status.Detail = "configured browser path " + strings.TrimSpace(configured) + " is not an executable"
		} else {
			status.Detail = "no Chrome or Chromium binary found on PATH"
		}
		return status
	}
	status.Command = resolved
	status.Available = true
	status.Detail = "using browser at " + resolved
	return status
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
