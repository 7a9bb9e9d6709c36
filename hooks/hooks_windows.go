//go:build windows

package hooks

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/mobile-next/trackcli/tracker"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPeekMessageW        = user32.NewProc("PeekMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessageW    = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procGetCursorPos        = user32.NewProc("GetCursorPos")
	procGetCurrentThreadId  = kernel32.NewProc("GetCurrentThreadId")
	procGetTickCount64      = kernel32.NewProc("GetTickCount64")
)

const (
	whKeyboardLL = 13
	whMouseLL    = 14

	wmQuit        = 0x0012
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205

	pmNoRemove = 0x0000
)

type point struct {
	x, y int32
}

type msg struct {
	hwnd    uintptr
	message uint32
	wparam  uintptr
	lparam  uintptr
	time    uint32
	pt      point
}

type msllHookStruct struct {
	pt          point
	mouseData   uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type kbdllHookStruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

// The hook procedures are registered with the OS once per process; which
// capture run they deliver into is swapped atomically on source start/stop.
type keyHookState struct {
	emit      func(tracker.Event)
	isTracked func(uint32) bool
}

var (
	mouseEmit atomic.Pointer[func(tracker.Event)]
	keyState  atomic.Pointer[keyHookState]

	mouseProcCallback    = windows.NewCallback(lowLevelMouseProc)
	keyboardProcCallback = windows.NewCallback(lowLevelKeyboardProc)
)

// Sources builds the Windows input sources: the two low-level hooks and the
// cursor position sampler.
func Sources(cfg tracker.SourceConfig) []tracker.Source {
	return []tracker.Source{
		newMouseHookSource(),
		newKeyHookSource(cfg.IsTracked),
		NewPositionSampler(cfg.PollInterval, cursorPosition, tickMs),
	}
}

// hookSource installs one low-level hook on a dedicated OS thread and pumps
// that thread's message queue until Stop posts WM_QUIT. Low-level hooks are
// called on the thread that installed them, so the thread must keep pumping
// for the callbacks to fire.
type hookSource struct {
	name       string
	idHook     uintptr
	proc       uintptr
	activate   func(emit func(tracker.Event))
	deactivate func()

	threadID atomic.Uint32
	exited   chan struct{}
}

func newMouseHookSource() *hookSource {
	return &hookSource{
		name:   "mouse-hook",
		idHook: whMouseLL,
		proc:   mouseProcCallback,
		activate: func(emit func(tracker.Event)) {
			mouseEmit.Store(&emit)
		},
		deactivate: func() {
			mouseEmit.Store(nil)
		},
	}
}

func newKeyHookSource(isTracked func(uint32) bool) *hookSource {
	if isTracked == nil {
		isTracked = func(uint32) bool { return false }
	}
	return &hookSource{
		name:   "key-hook",
		idHook: whKeyboardLL,
		proc:   keyboardProcCallback,
		activate: func(emit func(tracker.Event)) {
			keyState.Store(&keyHookState{emit: emit, isTracked: isTracked})
		},
		deactivate: func() {
			keyState.Store(nil)
		},
	}
}

func (h *hookSource) Name() string {
	return h.name
}

func (h *hookSource) Start(emit func(tracker.Event)) error {
	h.activate(emit)
	h.exited = make(chan struct{})
	ready := make(chan error, 1)
	go h.pump(ready)
	if err := <-ready; err != nil {
		h.deactivate()
		return err
	}
	return nil
}

func (h *hookSource) Stop() {
	h.deactivate()
	if tid := h.threadID.Load(); tid != 0 {
		procPostThreadMessageW.Call(uintptr(tid), wmQuit, 0, 0)
	}
	<-h.exited
}

func (h *hookSource) pump(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(h.exited)

	hook, _, err := procSetWindowsHookExW.Call(h.idHook, h.proc, 0, 0)
	if hook == 0 {
		ready <- fmt.Errorf("SetWindowsHookEx(%s): %v", h.name, err)
		return
	}

	// force creation of this thread's message queue before reporting ready,
	// so a racing Stop can always reach us with WM_QUIT
	var m msg
	procPeekMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, wmQuit, wmQuit, pmNoRemove)
	tid, _, _ := procGetCurrentThreadId.Call()
	h.threadID.Store(uint32(tid))
	ready <- nil

	for {
		ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(ret) <= 0 {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}

	procUnhookWindowsHookEx.Call(hook)
}

func lowLevelMouseProc(nCode, wParam, lParam uintptr) uintptr {
	if int32(nCode) >= 0 {
		if emit := mouseEmit.Load(); emit != nil {
			kind := tracker.MousePos
			known := true
			switch wParam {
			case wmLButtonDown:
				kind = tracker.MouseLeftDown
			case wmLButtonUp:
				kind = tracker.MouseLeftUp
			case wmRButtonDown:
				kind = tracker.MouseRightDown
			case wmRButtonUp:
				kind = tracker.MouseRightUp
			default:
				known = false
			}
			if known {
				info := (*msllHookStruct)(unsafe.Pointer(lParam))
				(*emit)(tracker.Event{
					Kind:        kind,
					TimestampMs: tickMs(),
					X:           info.pt.x,
					Y:           info.pt.y,
				})
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return ret
}

func lowLevelKeyboardProc(nCode, wParam, lParam uintptr) uintptr {
	if int32(nCode) >= 0 {
		if state := keyState.Load(); state != nil {
			info := (*kbdllHookStruct)(unsafe.Pointer(lParam))
			if state.isTracked(info.vkCode) {
				var kind tracker.EventKind
				known := true
				switch wParam {
				case wmKeyDown, wmSysKeyDown:
					kind = tracker.KeyDown
				case wmKeyUp, wmSysKeyUp:
					kind = tracker.KeyUp
				default:
					known = false
				}
				if known {
					x, y := currentCursor()
					state.emit(tracker.Event{
						Kind:        kind,
						TimestampMs: tickMs(),
						X:           x,
						Y:           y,
						KeyCode:     info.vkCode,
					})
				}
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return ret
}

func currentCursor() (int32, int32) {
	var pt point
	procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	return pt.x, pt.y
}

func cursorPosition() (int32, int32, bool) {
	var pt point
	ret, _, _ := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	return pt.x, pt.y, ret != 0
}

func tickMs() uint64 {
	ms, _, _ := procGetTickCount64.Call()
	return uint64(ms)
}
