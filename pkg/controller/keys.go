package controller

import (
	"github.com/gdamore/tcell/v2"
)

// runeKeyBase moves printable keys out of the range tcell uses for its own keys, so that
// both can live in one map[tcell.Key]KeyEvent.
const runeKeyBase tcell.Key = 1 << 12

// Printable keys the board view binds.
var (
	KeyA      = RuneKey('a')
	KeyC      = RuneKey('c')
	KeyD      = RuneKey('d')
	KeyE      = RuneKey('e')
	KeyH      = RuneKey('h')
	KeyL      = RuneKey('l')
	KeyN      = RuneKey('n')
	KeyQ      = RuneKey('q')
	KeyR      = RuneKey('r')
	KeyT      = RuneKey('t')
	KeyX      = RuneKey('x')
	KeyShiftH = RuneKey('H')
	KeyShiftJ = RuneKey('J')
	KeyShiftK = RuneKey('K')
	KeyShiftL = RuneKey('L')
	KeyShiftN = RuneKey('N')
	KeyShiftM = RuneKey('M')
	KeyShiftB = RuneKey('B')
	KeyShiftE = RuneKey('E')
	KeyLess   = RuneKey('<')
	KeyMore   = RuneKey('>')
)

// RuneKey returns the key used for r in event maps.
func RuneKey(r rune) tcell.Key {
	return runeKeyBase + tcell.Key(r)
}

// AsKey maps a key event to its event map key.
func AsKey(evt *tcell.EventKey) tcell.Key {
	if evt.Key() == tcell.KeyRune {
		return RuneKey(evt.Rune())
	}

	return evt.Key()
}

// KeyName returns the label shown for key in the shortcut headers.
func KeyName(key tcell.Key) string {
	if key >= runeKeyBase {
		return string(rune(key - runeKeyBase))
	}

	if name, ok := tcell.KeyNames[key]; ok {
		return name
	}

	return "?"
}
