package standalone

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/user-none/m64ui/session"
)

// SDL2 scancode values the core's input plugin expects.
const (
	ScancodeUnknown      = 0
	scancodeA            = 4
	scancode1            = 30
	scancode0            = 39
	scancodeReturn       = 40
	scancodeEscape       = 41
	scancodeBackspace    = 42
	scancodeTab          = 43
	scancodeSpace        = 44
	scancodeMinus        = 45
	scancodeEquals       = 46
	scancodeLeftBracket  = 47
	scancodeRightBracket = 48
	scancodeBackslash    = 49
	scancodeSemicolon    = 51
	scancodeApostrophe   = 52
	scancodeGrave        = 53
	scancodeComma        = 54
	scancodePeriod       = 55
	scancodeSlash        = 56
	scancodeCapsLock     = 57
	scancodeF1           = 58
	scancodePrintScreen  = 70
	scancodeScrollLock   = 71
	scancodePause        = 72
	scancodeInsert       = 73
	scancodeHome         = 74
	scancodePageUp       = 75
	scancodeDelete       = 76
	scancodeEnd          = 77
	scancodePageDown     = 78
	scancodeRight        = 79
	scancodeLeft         = 80
	scancodeDown         = 81
	scancodeUp           = 82
	scancodeNumLock      = 83
	scancodeKPEnter      = 88
	scancodeF13          = 104
	scancodeLCtrl        = 224
	scancodeLShift       = 225
	scancodeLAlt         = 226
	scancodeLGUI         = 227
	scancodeRCtrl        = 228
	scancodeRShift       = 229
	scancodeRAlt         = 230
	scancodeRGUI         = 231
)

// SDL2 KMOD bits.
const (
	KmodLShift = 0x0001
	KmodRShift = 0x0002
	KmodLCtrl  = 0x0040
	KmodRCtrl  = 0x0080
	KmodLAlt   = 0x0100
	KmodRAlt   = 0x0200
	KmodLGUI   = 0x0400
	KmodRGUI   = 0x0800

	KmodShift = KmodLShift | KmodRShift
	KmodCtrl  = KmodLCtrl | KmodRCtrl
	KmodAlt   = KmodLAlt | KmodRAlt
	KmodGUI   = KmodLGUI | KmodRGUI
)

var scancodeMap = map[ebiten.Key]int{
	ebiten.KeyEscape:       scancodeEscape,
	ebiten.KeyTab:          scancodeTab,
	ebiten.KeyBackspace:    scancodeBackspace,
	ebiten.KeyEnter:        scancodeReturn,
	ebiten.KeyNumpadEnter:  scancodeKPEnter,
	ebiten.KeyInsert:       scancodeInsert,
	ebiten.KeyDelete:       scancodeDelete,
	ebiten.KeyPause:        scancodePause,
	ebiten.KeyPrintScreen:  scancodePrintScreen,
	ebiten.KeyHome:         scancodeHome,
	ebiten.KeyEnd:          scancodeEnd,
	ebiten.KeyArrowLeft:    scancodeLeft,
	ebiten.KeyArrowRight:   scancodeRight,
	ebiten.KeyArrowUp:      scancodeUp,
	ebiten.KeyArrowDown:    scancodeDown,
	ebiten.KeyPageUp:       scancodePageUp,
	ebiten.KeyPageDown:     scancodePageDown,
	ebiten.KeyShiftLeft:    scancodeLShift,
	ebiten.KeyShiftRight:   scancodeRShift,
	ebiten.KeyControlLeft:  scancodeLCtrl,
	ebiten.KeyControlRight: scancodeRCtrl,
	ebiten.KeyMetaLeft:     scancodeLGUI,
	ebiten.KeyMetaRight:    scancodeRGUI,
	ebiten.KeyAltLeft:      scancodeLAlt,
	ebiten.KeyAltRight:     scancodeRAlt,
	ebiten.KeyCapsLock:     scancodeCapsLock,
	ebiten.KeyNumLock:      scancodeNumLock,
	ebiten.KeyScrollLock:   scancodeScrollLock,
	ebiten.KeySpace:        scancodeSpace,
	ebiten.KeyBracketLeft:  scancodeLeftBracket,
	ebiten.KeyBracketRight: scancodeRightBracket,
	ebiten.KeyMinus:        scancodeMinus,
	ebiten.KeySemicolon:    scancodeSemicolon,
	ebiten.KeySlash:        scancodeSlash,
	ebiten.KeyBackslash:    scancodeBackslash,
	ebiten.KeyQuote:        scancodeApostrophe,
	ebiten.KeyComma:        scancodeComma,
	ebiten.KeyPeriod:       scancodePeriod,
	ebiten.KeyEqual:        scancodeEquals,
	ebiten.KeyBackquote:    scancodeGrave,
}

func init() {
	// Letters, digits and function keys are contiguous on both sides except
	// for SDL putting 0 after 9.
	for i := 0; i < 26; i++ {
		scancodeMap[ebiten.KeyA+ebiten.Key(i)] = scancodeA + i
	}
	scancodeMap[ebiten.KeyDigit0] = scancode0
	for i := 1; i <= 9; i++ {
		scancodeMap[ebiten.KeyDigit0+ebiten.Key(i)] = scancode1 + i - 1
	}
	for i := 0; i < 12; i++ {
		scancodeMap[ebiten.KeyF1+ebiten.Key(i)] = scancodeF1 + i
		scancodeMap[ebiten.KeyF13+ebiten.Key(i)] = scancodeF13 + i
	}
}

// KeyToScancode returns the SDL2 scancode for key, or ScancodeUnknown when
// the key has no mapping.
func KeyToScancode(key ebiten.Key) int {
	if sc, ok := scancodeMap[key]; ok {
		return sc
	}
	return ScancodeUnknown
}

// ModifierState returns the KMOD bits for the modifiers reported as held by
// pressed. Either side of a modifier sets both of its bits.
func ModifierState(pressed func(ebiten.Key) bool) int {
	var mod int
	if pressed(ebiten.KeyShiftLeft) || pressed(ebiten.KeyShiftRight) {
		mod |= KmodShift
	}
	if pressed(ebiten.KeyControlLeft) || pressed(ebiten.KeyControlRight) {
		mod |= KmodCtrl
	}
	if pressed(ebiten.KeyAltLeft) || pressed(ebiten.KeyAltRight) {
		mod |= KmodAlt
	}
	if pressed(ebiten.KeyMetaLeft) || pressed(ebiten.KeyMetaRight) {
		mod |= KmodGUI
	}
	return mod
}

// keySender is the part of session.Context the forwarder needs.
type keySender interface {
	SendKey(down bool, scancode, mod int) error
}

var _ keySender = (*session.Context)(nil)

// KeyForwarder relays key transitions from the GUI window to the core.
type KeyForwarder struct {
	sender  keySender
	pressed []ebiten.Key
	release []ebiten.Key
}

// NewKeyForwarder creates a forwarder sending to s.
func NewKeyForwarder(s keySender) *KeyForwarder {
	return &KeyForwarder{sender: s}
}

// Update forwards this frame's key presses and releases. Call once per
// ebiten tick.
func (f *KeyForwarder) Update() {
	f.pressed = inpututil.AppendJustPressedKeys(f.pressed[:0])
	f.release = inpututil.AppendJustReleasedKeys(f.release[:0])
	f.forward(f.pressed, f.release, ebiten.IsKeyPressed)
}

func (f *KeyForwarder) forward(down, up []ebiten.Key, pressed func(ebiten.Key) bool) {
	if len(down) == 0 && len(up) == 0 {
		return
	}
	mod := ModifierState(pressed)
	for _, k := range down {
		if sc := KeyToScancode(k); sc != ScancodeUnknown {
			// Not running is the common case; SendKey drops it.
			f.sender.SendKey(true, sc, mod)
		}
	}
	for _, k := range up {
		if sc := KeyToScancode(k); sc != ScancodeUnknown {
			f.sender.SendKey(false, sc, mod)
		}
	}
}
