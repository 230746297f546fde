//go:build !windows

package screen

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
)

func fakeProc(t *testing.T, comms ...string) string {
	t.Helper()
	root := t.TempDir()
	for i, c := range comms {
		dir := filepath.Join(root, string(rune('1'+i)))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "comm"), []byte(c+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestProcessRunning(t *testing.T) {
	root := fakeProc(t, "bash", "NewWorld.exe", "averyveryverylo")

	tests := []struct {
		name string
		want bool
	}{
		{"NewWorld", true},
		{"newworld", true},
		{"bash", true},
		{"averyveryverylongname", true},
		{"steam", false},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := processRunning(root, tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("processRunning(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestProcessRunningWithoutProcfs(t *testing.T) {
	got, err := processRunning(t.TempDir(), "NewWorld")
	if err != nil || !got {
		t.Errorf("got (%v, %v), want (true, nil)", got, err)
	}
}

func TestDisplayLocator(t *testing.T) {
	old := procRoot
	procRoot = fakeProc(t, "NewWorld.exe")
	t.Cleanup(func() { procRoot = old })

	screen := image.Rect(0, 0, 2560, 1440)
	l := &displayLocator{name: "NewWorld", bounds: func() image.Rectangle { return screen }}
	got, err := l.Locate(context.Background())
	if err != nil || got != screen {
		t.Errorf("Locate = (%v, %v), want (%v, nil)", got, err, screen)
	}

	l.name = "other"
	if _, err := l.Locate(context.Background()); !errors.Is(err, ErrProcessNotFound) {
		t.Errorf("err = %v, want ErrProcessNotFound", err)
	}
}
