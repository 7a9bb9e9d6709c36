package tracker

// EventKind identifies what kind of input occurrence an Event records.
type EventKind uint8

const (
	MousePos EventKind = iota
	MouseLeftDown
	MouseLeftUp
	MouseRightDown
	MouseRightUp
	KeyDown
	KeyUp
)

// String returns the event type tag written to the CSV log.
func (k EventKind) String() string {
	switch k {
	case MousePos:
		return "MOUSE_POS"
	case MouseLeftDown:
		return "MOUSE_LEFT_DOWN"
	case MouseLeftUp:
		return "MOUSE_LEFT_UP"
	case MouseRightDown:
		return "MOUSE_RIGHT_DOWN"
	case MouseRightUp:
		return "MOUSE_RIGHT_UP"
	case KeyDown:
		return "KEY_DOWN"
	case KeyUp:
		return "KEY_UP"
	default:
		return "UNKNOWN"
	}
}

// IsKey reports whether the kind is a key transition.
func (k EventKind) IsKey() bool {
	return k == KeyDown || k == KeyUp
}

// Event is one captured input occurrence. Events are plain values: producers
// construct them, the queue hands them to the writer, the writer serializes
// and discards them. KeyCode is zero for everything but key transitions; X
// and Y carry the pointer position for every kind, including keystrokes.
type Event struct {
	Kind        EventKind
	TimestampMs uint64
	X           int32
	Y           int32
	KeyCode     uint32
}
