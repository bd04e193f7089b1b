package x11

import (
	"encoding/binary"
	"strings"

	"github.com/jezek/xgb/xproto"
)

// parseWMClass splits a WM_CLASS value ("instance\x00class\x00")
func parseWMClass(data []byte) (instance, class string) {
	if len(data) == 0 {
		return "", ""
	}
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = parts[0]
	}
	if len(parts) >= 2 {
		class = parts[1]
	}
	return instance, class
}

// decodeWindows reads a 32-bit WINDOW list property
func decodeWindows(data []byte) []xproto.Window {
	out := make([]xproto.Window, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		out = append(out, xproto.Window(binary.LittleEndian.Uint32(data[i:])))
	}
	return out
}

func hasAtom(data []byte, atom xproto.Atom) bool {
	for i := 0; i+4 <= len(data); i += 4 {
		if xproto.Atom(binary.LittleEndian.Uint32(data[i:])) == atom {
			return true
		}
	}
	return false
}

// reversed returns a front-to-back copy of a bottom-to-top stacking list
func reversed(wins []xproto.Window) []xproto.Window {
	out := make([]xproto.Window, len(wins))
	for i, w := range wins {
		out[len(wins)-1-i] = w
	}
	return out
}

// appName prefers the WM_CLASS class, then the instance, then the process name
func appName(instance, class, processName string) string {
	switch {
	case class != "":
		return class
	case instance != "":
		return instance
	case processName != "":
		return processName
	default:
		return "Unknown"
	}
}
