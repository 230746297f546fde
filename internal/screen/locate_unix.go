//go:build !windows

package screen

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/vova616/screenshot"
)

// procRoot is the procfs mount scanned for process names.
var procRoot = "/proc"

// displayLocator confirms the target process is running and reports the
// primary display bounds, standing in for a window rectangle on platforms
// without a portable window API.
type displayLocator struct {
	name   string
	bounds func() image.Rectangle
}

func newProcessLocator(name string) Locator {
	return &displayLocator{name: name, bounds: screenshot.ScreenRect}
}

func (l *displayLocator) Locate(ctx context.Context) (image.Rectangle, error) {
	running, err := processRunning(procRoot, l.name)
	if err != nil {
		return image.Rectangle{}, err
	}
	if !running {
		return image.Rectangle{}, fmt.Errorf("%w: %s", ErrProcessNotFound, l.name)
	}
	return l.bounds(), nil
}

// processRunning scans root/*/comm for name. A missing procfs (macOS) is
// treated as "running" so capture proceeds against the display.
func processRunning(root, name string) (bool, error) {
	if name == "" {
		return true, nil
	}
	matches, err := filepath.Glob(filepath.Join(root, "[0-9]*", "comm"))
	if err != nil {
		return false, err
	}
	if len(matches) == 0 {
		return true, nil
	}
	// comm is truncated to 15 bytes by the kernel.
	want := name
	if len(want) > 15 {
		want = want[:15]
	}
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			continue // process exited mid-scan
		}
		comm := strings.TrimSpace(string(data))
		if strings.EqualFold(comm, want) || strings.EqualFold(strings.TrimSuffix(comm, ".exe"), name) {
			return true, nil
		}
	}
	return false, nil
}
