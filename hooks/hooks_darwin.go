//go:build darwin

package hooks

/*
#cgo LDFLAGS: -framework CoreGraphics -framework ApplicationServices

#include <stdbool.h>
#include <stdint.h>
#include <time.h>
#include <ApplicationServices/ApplicationServices.h>
#include <CoreGraphics/CoreGraphics.h>

extern CGEventRef goTapEvent(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *userInfo);

static bool axCheckTrusted(void) {
	const void *keys[] = { kAXTrustedCheckOptionPrompt };
	const void *values[] = { kCFBooleanTrue };
	CFDictionaryRef options = CFDictionaryCreate(kCFAllocatorDefault, keys, values, 1,
		&kCFTypeDictionaryKeyCallBacks, &kCFTypeDictionaryValueCallBacks);
	bool trusted = AXIsProcessTrustedWithOptions(options);
	CFRelease(options);
	return trusted;
}

static CGEventMask maskBit(CGEventType type) {
	return CGEventMaskBit(type);
}

static CFMachPortRef tapCreate(CGEventMask mask, uintptr_t handle) {
	return CGEventTapCreate(kCGSessionEventTap, kCGHeadInsertEventTap,
		kCGEventTapOptionListenOnly, mask, goTapEvent, (void *)handle);
}

static void tapAttach(CFMachPortRef tap, CFRunLoopSourceRef *sourceOut) {
	CFRunLoopSourceRef source = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, tap, 0);
	CFRunLoopAddSource(CFRunLoopGetCurrent(), source, kCFRunLoopDefaultMode);
	CGEventTapEnable(tap, true);
	*sourceOut = source;
}

static void tapDetach(CFMachPortRef tap, CFRunLoopSourceRef source) {
	CGEventTapEnable(tap, false);
	CFRunLoopRemoveSource(CFRunLoopGetCurrent(), source, kCFRunLoopDefaultMode);
	CFRelease(source);
	CFRelease(tap);
}

static void tapReenable(CFMachPortRef tap) {
	CGEventTapEnable(tap, true);
}

static void runLoopRunOnce(void) {
	CFRunLoopRunInMode(kCFRunLoopDefaultMode, 0.25, true);
}

static void runLoopStop(CFRunLoopRef runLoop) {
	CFRunLoopStop(runLoop);
}

static double tapEventX(CGEventRef event) {
	return CGEventGetLocation(event).x;
}

static double tapEventY(CGEventRef event) {
	return CGEventGetLocation(event).y;
}

static int64_t tapEventKeycode(CGEventRef event) {
	return CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);
}

static uint64_t tapEventTimestampNs(CGEventRef event) {
	return CGEventGetTimestamp(event);
}

static bool copyCursorPosition(double *x, double *y) {
	CGEventRef event = CGEventCreate(NULL);
	if (event == NULL) {
		return false;
	}
	CGPoint location = CGEventGetLocation(event);
	CFRelease(event);
	*x = location.x;
	*y = location.y;
	return true;
}

static uint64_t uptimeNs(void) {
	return clock_gettime_nsec_np(CLOCK_UPTIME_RAW);
}
*/
import "C"

import (
	"errors"
	"runtime"
	"runtime/cgo"
	"sync/atomic"
	"unsafe"

	"github.com/mobile-next/trackcli/tracker"
)

// Sources builds the macOS input sources: a listen-only CGEventTap for
// clicks and key events, and the cursor position sampler.
func Sources(cfg tracker.SourceConfig) []tracker.Source {
	return []tracker.Source{
		newEventTap(cfg.IsTracked),
		NewPositionSampler(cfg.PollInterval, cursorPosition, uptimeMs),
	}
}

type eventTap struct {
	isTracked func(uint32) bool

	emit    func(tracker.Event)
	handle  cgo.Handle
	tap     C.CFMachPortRef
	source  C.CFRunLoopSourceRef
	runLoop C.CFRunLoopRef
	stopped atomic.Bool
	exited  chan struct{}
}

func newEventTap(isTracked func(uint32) bool) *eventTap {
	if isTracked == nil {
		isTracked = func(uint32) bool { return false }
	}
	return &eventTap{isTracked: isTracked}
}

func (t *eventTap) Name() string {
	return "event-tap"
}

func (t *eventTap) Start(emit func(tracker.Event)) error {
	if !C.axCheckTrusted() {
		return errors.New("accessibility permission not granted, enable it under System Settings > Privacy & Security > Accessibility")
	}
	t.emit = emit
	t.handle = cgo.NewHandle(t)
	t.exited = make(chan struct{})
	ready := make(chan error, 1)
	go t.pump(ready)
	if err := <-ready; err != nil {
		t.handle.Delete()
		return err
	}
	return nil
}

func (t *eventTap) Stop() {
	t.stopped.Store(true)
	C.runLoopStop(t.runLoop)
	<-t.exited
	t.handle.Delete()
}

// pump owns the tap for its whole lifetime. The tap delivers events on the
// run loop of the thread that attached it, so creation, the run loop and
// teardown all stay on one locked OS thread.
func (t *eventTap) pump(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(t.exited)

	mask := C.maskBit(C.kCGEventLeftMouseDown) |
		C.maskBit(C.kCGEventLeftMouseUp) |
		C.maskBit(C.kCGEventRightMouseDown) |
		C.maskBit(C.kCGEventRightMouseUp) |
		C.maskBit(C.kCGEventKeyDown) |
		C.maskBit(C.kCGEventKeyUp)

	tap := C.tapCreate(mask, C.uintptr_t(t.handle))
	if tap == nil {
		ready <- errors.New("CGEventTapCreate failed")
		return
	}
	t.tap = tap

	var source C.CFRunLoopSourceRef
	C.tapAttach(tap, &source)
	t.source = source
	t.runLoop = C.CFRunLoopGetCurrent()
	ready <- nil

	// CFRunLoopStop is lost if it lands before the loop is entered, so run
	// in short slices and re-check the flag instead of blocking forever.
	for !t.stopped.Load() {
		C.runLoopRunOnce()
	}

	C.tapDetach(tap, source)
}

func (t *eventTap) handleEvent(eventType C.CGEventType, event C.CGEventRef) {
	var kind tracker.EventKind
	var keyCode uint32

	switch eventType {
	case C.kCGEventLeftMouseDown:
		kind = tracker.MouseLeftDown
	case C.kCGEventLeftMouseUp:
		kind = tracker.MouseLeftUp
	case C.kCGEventRightMouseDown:
		kind = tracker.MouseRightDown
	case C.kCGEventRightMouseUp:
		kind = tracker.MouseRightUp
	case C.kCGEventKeyDown, C.kCGEventKeyUp:
		keyCode = uint32(C.tapEventKeycode(event))
		if !t.isTracked(keyCode) {
			return
		}
		if eventType == C.kCGEventKeyDown {
			kind = tracker.KeyDown
		} else {
			kind = tracker.KeyUp
		}
	case C.kCGEventTapDisabledByTimeout:
		// macOS disables taps it considers slow, turn it back on
		C.tapReenable(t.tap)
		return
	default:
		return
	}

	t.emit(tracker.Event{
		Kind:        kind,
		TimestampMs: uint64(C.tapEventTimestampNs(event)) / 1e6,
		X:           int32(C.tapEventX(event)),
		Y:           int32(C.tapEventY(event)),
		KeyCode:     keyCode,
	})
}

//export goTapEvent
func goTapEvent(proxy C.CGEventTapProxy, eventType C.CGEventType, event C.CGEventRef, userInfo unsafe.Pointer) C.CGEventRef {
	tap := cgo.Handle(uintptr(userInfo)).Value().(*eventTap)
	tap.handleEvent(eventType, event)
	return event
}

func cursorPosition() (int32, int32, bool) {
	var x, y C.double
	if !C.copyCursorPosition(&x, &y) {
		return 0, 0, false
	}
	return int32(x), int32(y), true
}

func uptimeMs() uint64 {
	return uint64(C.uptimeNs()) / 1e6
}
