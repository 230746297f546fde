//go:build windows

package screen

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows        = user32.NewProc("EnumWindows")
	procGetWindowThreadPID = user32.NewProc("GetWindowThreadProcessId")
	procGetWindowRect      = user32.NewProc("GetWindowRect")
	procIsWindowVisible    = user32.NewProc("IsWindowVisible")
)

// windowLocator finds the first visible top-level window owned by a
// process whose executable matches the configured name.
type windowLocator struct {
	name string
}

func newProcessLocator(name string) Locator {
	return &windowLocator{name: name}
}

func (l *windowLocator) Locate(ctx context.Context) (image.Rectangle, error) {
	pids, err := processIDs(l.name)
	if err != nil {
		return image.Rectangle{}, err
	}
	if len(pids) == 0 {
		return image.Rectangle{}, fmt.Errorf("%w: %s", ErrProcessNotFound, l.name)
	}
	hwnd := findWindow(pids)
	if hwnd == 0 {
		return image.Rectangle{}, fmt.Errorf("%w: %s has no visible window", ErrProcessNotFound, l.name)
	}
	var r windows.Rect
	if ok, _, callErr := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r))); ok == 0 {
		return image.Rectangle{}, fmt.Errorf("GetWindowRect: %w", callErr)
	}
	return image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)), nil
}

// processIDs returns the IDs of all processes named name or name.exe.
func processIDs(name string) (map[uint32]struct{}, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("process snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	pids := make(map[uint32]struct{})
	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	for err = windows.Process32First(snap, &entry); err == nil; err = windows.Process32Next(snap, &entry) {
		exe := windows.UTF16ToString(entry.ExeFile[:])
		if strings.EqualFold(exe, name) || strings.EqualFold(exe, name+".exe") {
			pids[entry.ProcessID] = struct{}{}
		}
	}
	return pids, nil
}

// enumState is shared with the EnumWindows callback. The callback is
// created once because the runtime caps the number of callbacks.
var (
	enumMu    sync.Mutex
	enumPIDs  map[uint32]struct{}
	enumFound uintptr
	enumCB    = syscall.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		if vis, _, _ := procIsWindowVisible.Call(hwnd); vis == 0 {
			return 1
		}
		var pid uint32
		procGetWindowThreadPID.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
		if _, ok := enumPIDs[pid]; ok {
			enumFound = hwnd
			return 0 // stop
		}
		return 1
	})
)

func findWindow(pids map[uint32]struct{}) uintptr {
	enumMu.Lock()
	defer enumMu.Unlock()
	enumPIDs, enumFound = pids, 0
	// EnumWindows reports failure when the callback stops early; enumFound decides.
	procEnumWindows.Call(enumCB, 0)
	return enumFound
}
