// Package keys translates UI key events into the byte sequences an xterm-style
// terminal program expects.
package keys

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/kandev/ptyterm/internal/terminal/grid"
)

// Modifiers held during a key press. Platform is Cmd on macOS and Super elsewhere.
type Modifiers struct {
	Shift    bool
	Control  bool
	Alt      bool
	Platform bool
}

// KeyEvent is a key press as reported by the UI. Key is the logical key name
// ("a", "enter", "pageup", "f5"); Text is the character the press produced,
// if any.
type KeyEvent struct {
	Key       string
	Modifiers Modifiers
	Text      string
}

// class folds a modifier set into the combinations the fixed table distinguishes.
type class int

const (
	classNone class = iota
	classAlt
	classCtrl
	classShift
	classCtrlShift
	classOther
)

func classify(m Modifiers) class {
	switch m {
	case Modifiers{}:
		return classNone
	case Modifiers{Alt: true}:
		return classAlt
	case Modifiers{Control: true}:
		return classCtrl
	case Modifiers{Shift: true}:
		return classShift
	case Modifiers{Control: true, Shift: true}:
		return classCtrlShift
	default:
		return classOther
	}
}

// AltSendsEscape reports whether Alt should act as Meta (ESC prefix). macOS
// keeps Option for composing characters unless optionAsMeta is set.
func AltSendsEscape(optionAsMeta bool) bool {
	return runtime.GOOS != "darwin" || optionAsMeta
}

// Encode returns the bytes to send for ev, or false when the key has no
// terminal encoding and should be left to the UI (for example Shift+PageUp
// outside the alternate screen, which scrolls the viewport).
func Encode(ev KeyEvent, mode grid.Mode, altSendsEsc bool) ([]byte, bool) {
	cls := classify(ev.Modifiers)

	if s, ok := fixed(ev.Key, cls, mode); ok {
		return []byte(s), true
	}

	if cls != classNone && !ev.Modifiers.Platform {
		if s, ok := modified(ev.Key, modifierCode(ev.Modifiers)); ok {
			return []byte(s), true
		}
	}

	if altSendsEsc {
		if s, ok := meta(ev); ok {
			return []byte(s), true
		}
	}

	// Option composes characters on macOS when it is not acting as Meta.
	composing := cls == classAlt && !altSendsEsc
	if cls == classNone || cls == classShift || composing {
		if ev.Text != "" {
			return []byte(ev.Text), true
		}
	}
	return nil, false
}

var functionKeys = map[string]string{
	"f1": "\x1bOP", "f2": "\x1bOQ", "f3": "\x1bOR", "f4": "\x1bOS",
	"f5": "\x1b[15~", "f6": "\x1b[17~", "f7": "\x1b[18~", "f8": "\x1b[19~",
	"f9": "\x1b[20~", "f10": "\x1b[21~", "f11": "\x1b[23~", "f12": "\x1b[24~",
	"f13": "\x1b[25~", "f14": "\x1b[26~", "f15": "\x1b[28~", "f16": "\x1b[29~",
	"f17": "\x1b[31~", "f18": "\x1b[32~", "f19": "\x1b[33~", "f20": "\x1b[34~",
}

// cursorKeys maps navigation keys to their final byte. They are sent as
// SS3 in application cursor mode and CSI otherwise.
var cursorKeys = map[string]byte{
	"up": 'A', "down": 'B', "right": 'C', "left": 'D', "home": 'H', "end": 'F',
}

var plainKeys = map[string]string{
	"tab":       "\t",
	"escape":    "\x1b",
	"enter":     "\r",
	"backspace": "\x7f",
	"back":      "\x7f",
	"insert":    "\x1b[2~",
	"delete":    "\x1b[3~",
	"pageup":    "\x1b[5~",
	"pagedown":  "\x1b[6~",
}

var ctrlSymbols = map[string]string{
	"@": "\x00", "[": "\x1b", "\\": "\x1c", "]": "\x1d", "^": "\x1e", "_": "\x1f", "?": "\x7f",
}

// fixed handles key and modifier combinations with a dedicated encoding.
func fixed(key string, cls class, mode grid.Mode) (string, bool) {
	switch cls {
	case classNone:
		if s, ok := plainKeys[key]; ok {
			return s, true
		}
		if s, ok := functionKeys[key]; ok {
			return s, true
		}
		if final, ok := cursorKeys[key]; ok {
			if mode.Has(grid.ModeAppCursor) {
				return "\x1bO" + string(final), true
			}
			return "\x1b[" + string(final), true
		}

	case classShift:
		switch key {
		case "tab":
			return "\x1b[Z", true
		case "enter":
			return "\n", true
		case "backspace":
			return "\x7f", true
		}
		if mode.Has(grid.ModeAltScreen) {
			switch key {
			case "home":
				return "\x1b[1;2H", true
			case "end":
				return "\x1b[1;2F", true
			case "pageup":
				return "\x1b[5;2~", true
			case "pagedown":
				return "\x1b[6;2~", true
			}
		}

	case classAlt:
		switch key {
		case "enter":
			return "\x1b\r", true
		case "backspace":
			return "\x1b\x7f", true
		}

	case classCtrl, classCtrlShift:
		if cls == classCtrl {
			switch key {
			case "backspace":
				return "\b", true
			case "space":
				return "\x00", true
			}
			if s, ok := ctrlSymbols[key]; ok {
				return s, true
			}
		}
		if len(key) == 1 {
			c := key[0] | 0x20
			if c >= 'a' && c <= 'z' {
				return string(rune(c - 'a' + 1)), true
			}
		}
	}
	return "", false
}

// modifierCode is the xterm parameter for a modifier set:
// 1 + shift + 2*alt + 4*ctrl.
func modifierCode(m Modifiers) int {
	code := 0
	if m.Shift {
		code |= 1
	}
	if m.Alt {
		code |= 2
	}
	if m.Control {
		code |= 4
	}
	return code + 1
}

var modifiedFunctionKeys = map[string]string{
	"f1": "1;%dP", "f2": "1;%dQ", "f3": "1;%dR", "f4": "1;%dS",
	"f5": "15;%d~", "f6": "17;%d~", "f7": "18;%d~", "f8": "19;%d~",
	"f9": "20;%d~", "f10": "21;%d~", "f11": "23;%d~", "f12": "24;%d~",
	"f13": "25;%d~", "f14": "26;%d~", "f15": "28;%d~", "f16": "29;%d~",
	"f17": "31;%d~", "f18": "32;%d~", "f19": "33;%d~", "f20": "34;%d~",
	"up": "1;%dA", "down": "1;%dB", "right": "1;%dC", "left": "1;%dD",
}

// Shift alone on these keys is left to the UI for scrollback.
var modifiedEditingKeys = map[string]string{
	"insert": "2;%d~", "pageup": "5;%d~", "pagedown": "6;%d~", "end": "1;%dF", "home": "1;%dH",
}

func modified(key string, code int) (string, bool) {
	if tmpl, ok := modifiedFunctionKeys[key]; ok {
		return "\x1b[" + fmt.Sprintf(tmpl, code), true
	}
	if code == 2 {
		return "", false
	}
	if tmpl, ok := modifiedEditingKeys[key]; ok {
		return "\x1b[" + fmt.Sprintf(tmpl, code), true
	}
	return "", false
}

// meta encodes Alt+key as ESC followed by the key, upper-cased with Shift.
func meta(ev KeyEvent) (string, bool) {
	m := ev.Modifiers
	altOnly := classify(m) == classAlt
	altShift := m.Alt && m.Shift
	if !altOnly && !altShift {
		return "", false
	}
	key := ev.Key
	if key == "space" {
		key = " "
	}
	if len(key) != 1 || key[0] >= 0x80 {
		return "", false
	}
	if altShift {
		key = strings.ToUpper(key)
	}
	return "\x1b" + key, true
}
