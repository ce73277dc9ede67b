package main

import (
	"github.com/gdamore/tcell/v2"

	"github.com/kandev/ptyterm/internal/terminal"
	"github.com/kandev/ptyterm/internal/terminal/keys"
)

var namedKeys = map[tcell.Key]string{
	tcell.KeyEnter:      "enter",
	tcell.KeyTab:        "tab",
	tcell.KeyEscape:     "escape",
	tcell.KeyBackspace:  "backspace",
	tcell.KeyBackspace2: "backspace",
	tcell.KeyDelete:     "delete",
	tcell.KeyInsert:     "insert",
	tcell.KeyHome:       "home",
	tcell.KeyEnd:        "end",
	tcell.KeyPgUp:       "pageup",
	tcell.KeyPgDn:       "pagedown",
	tcell.KeyUp:         "up",
	tcell.KeyDown:       "down",
	tcell.KeyLeft:       "left",
	tcell.KeyRight:      "right",
	tcell.KeyF1:         "f1",
	tcell.KeyF2:         "f2",
	tcell.KeyF3:         "f3",
	tcell.KeyF4:         "f4",
	tcell.KeyF5:         "f5",
	tcell.KeyF6:         "f6",
	tcell.KeyF7:         "f7",
	tcell.KeyF8:         "f8",
	tcell.KeyF9:         "f9",
	tcell.KeyF10:        "f10",
	tcell.KeyF11:        "f11",
	tcell.KeyF12:        "f12",
	tcell.KeyF13:        "f13",
	tcell.KeyF14:        "f14",
	tcell.KeyF15:        "f15",
	tcell.KeyF16:        "f16",
	tcell.KeyF17:        "f17",
	tcell.KeyF18:        "f18",
	tcell.KeyF19:        "f19",
	tcell.KeyF20:        "f20",
}

// ctrlSymbols are the control keys tcell reports by their own key code.
var ctrlSymbols = map[tcell.Key]string{
	tcell.KeyCtrlSpace:      "space",
	tcell.KeyCtrlBackslash:  "\\",
	tcell.KeyCtrlRightSq:    "]",
	tcell.KeyCtrlCarat:      "^",
	tcell.KeyCtrlUnderscore: "_",
}

func modifiers(m tcell.ModMask) keys.Modifiers {
	return keys.Modifiers{
		Shift:    m&tcell.ModShift != 0,
		Control:  m&tcell.ModCtrl != 0,
		Alt:      m&tcell.ModAlt != 0,
		Platform: m&tcell.ModMeta != 0,
	}
}

// keyEvent converts a tcell key press. It returns false for keys with no name.
func keyEvent(ev *tcell.EventKey) (keys.KeyEvent, bool) {
	mods := modifiers(ev.Modifiers())
	k := ev.Key()

	switch {
	case k == tcell.KeyRune:
		r := ev.Rune()
		out := keys.KeyEvent{Key: string(r), Modifiers: mods}
		if r == ' ' {
			out.Key = "space"
		}
		if !mods.Control && !mods.Alt {
			out.Text = string(r)
		}
		return out, true
	case k == tcell.KeyBacktab:
		mods.Shift = true
		return keys.KeyEvent{Key: "tab", Modifiers: mods}, true
	}

	if name, ok := namedKeys[k]; ok {
		return keys.KeyEvent{Key: name, Modifiers: mods}, true
	}
	mods.Control = true
	if k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		return keys.KeyEvent{Key: string(rune('a' + k - tcell.KeyCtrlA)), Modifiers: mods}, true
	}
	if name, ok := ctrlSymbols[k]; ok {
		return keys.KeyEvent{Key: name, Modifiers: mods}, true
	}
	return keys.KeyEvent{}, false
}

// scrollAction returns the viewport shortcut bound to ev, if any. These keys
// only reach it when the program did not claim them.
func scrollAction(ev keys.KeyEvent) func(*terminal.Session) {
	if ev.Modifiers != (keys.Modifiers{Shift: true}) {
		return nil
	}
	switch ev.Key {
	case "pageup":
		return (*terminal.Session).ScrollPageUp
	case "pagedown":
		return (*terminal.Session).ScrollPageDown
	case "home":
		return (*terminal.Session).ScrollToTop
	case "end":
		return (*terminal.Session).ScrollToBottom
	}
	return nil
}
