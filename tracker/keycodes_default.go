//go:build !darwin

package tracker

// Virtual-key codes as used by the Windows input APIs; letters and digits
// map to their ASCII values. Platforms without a hook backend share this
// numbering so key parsing behaves identically everywhere.
const (
	keyCodeShift   uint32 = 0x10 // VK_SHIFT
	keyCodeControl uint32 = 0x11 // VK_CONTROL
	keyCodeAlt     uint32 = 0x12 // VK_MENU
)

func keyCodeForChar(c byte) uint32 {
	return uint32(c)
}

func charForKeyCode(code uint32) (byte, bool) {
	if (code >= '0' && code <= '9') || (code >= 'A' && code <= 'Z') {
		return byte(code), true
	}
	return 0, false
}
