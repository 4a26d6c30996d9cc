package event

import (
	"encoding/binary"
	"fmt"
)

// Payload is the kind-specific part of a record. The set of variants is
// closed: Key, MouseMove, MouseClick, MouseWheel, WindowSwitch, Idle, None.
type Payload interface {
	// accepts reports whether the variant belongs to kind.
	accepts(kind Kind) bool
	// put writes the variant into the fixed payload area.
	put(dst *[PayloadSize]byte)
}

// Key modifier and state flags.
const (
	FlagShift uint32 = 1 << iota
	FlagControl
	FlagAlt
	FlagMeta
	FlagRepeat
)

// Mouse buttons.
const (
	ButtonLeft   uint32 = 1
	ButtonRight  uint32 = 2
	ButtonMiddle uint32 = 3
	ButtonX1     uint32 = 4
	ButtonX2     uint32 = 5
)

// Wheel orientations.
const (
	WheelVertical   uint32 = 0
	WheelHorizontal uint32 = 1
)

// Key is the payload of KeyPress and KeyRelease.
type Key struct {
	VirtualKey uint32
	ScanCode   uint32
	Flags      uint32
}

// MouseMove is the payload of MouseMoved. Speed is in pixels per second.
type MouseMove struct {
	X, Y  int32
	Speed uint32
}

// MouseClick is the payload of MouseClicked.
type MouseClick struct {
	X, Y   int32
	Button uint32
}

// MouseWheel is the payload of MouseScrolled. Positive Delta scrolls up.
type MouseWheel struct {
	Delta       int32
	Orientation uint32
}

// WindowSwitch is the payload of WindowFocusChange and WindowTitleChange.
type WindowSwitch struct {
	OldWindow    uint32
	NewWindow    uint32
	CategoryHint uint32
}

// Idle is the payload of IdleStart and IdleEnd.
type Idle struct {
	DurationMS uint32
}

// None is the payload of kinds that carry no data.
type None struct{}

func (Key) accepts(k Kind) bool          { return k == KeyPress || k == KeyRelease }
func (MouseMove) accepts(k Kind) bool    { return k == MouseMoved }
func (MouseClick) accepts(k Kind) bool   { return k == MouseClicked }
func (MouseWheel) accepts(k Kind) bool   { return k == MouseScrolled }
func (WindowSwitch) accepts(k Kind) bool { return k == WindowFocusChange || k == WindowTitleChange }
func (Idle) accepts(k Kind) bool         { return k == IdleStart || k == IdleEnd }

func (None) accepts(k Kind) bool {
	switch k {
	case WindowMinimize, WindowMaximize, ScreenLock, ScreenUnlock:
		return true
	}
	return false
}

func putWords(dst *[PayloadSize]byte, a, b, c uint32) {
	binary.LittleEndian.PutUint32(dst[0:4], a)
	binary.LittleEndian.PutUint32(dst[4:8], b)
	binary.LittleEndian.PutUint32(dst[8:12], c)
	binary.LittleEndian.PutUint32(dst[12:16], 0)
}

func words(src *[PayloadSize]byte) (a, b, c uint32) {
	return binary.LittleEndian.Uint32(src[0:4]),
		binary.LittleEndian.Uint32(src[4:8]),
		binary.LittleEndian.Uint32(src[8:12])
}

func (p Key) put(dst *[PayloadSize]byte)        { putWords(dst, p.VirtualKey, p.ScanCode, p.Flags) }
func (p MouseMove) put(dst *[PayloadSize]byte)  { putWords(dst, uint32(p.X), uint32(p.Y), p.Speed) }
func (p MouseClick) put(dst *[PayloadSize]byte) { putWords(dst, uint32(p.X), uint32(p.Y), p.Button) }
func (p MouseWheel) put(dst *[PayloadSize]byte) { putWords(dst, uint32(p.Delta), p.Orientation, 0) }
func (p WindowSwitch) put(dst *[PayloadSize]byte) {
	putWords(dst, p.OldWindow, p.NewWindow, p.CategoryHint)
}
func (p Idle) put(dst *[PayloadSize]byte) { putWords(dst, p.DurationMS, 0, 0) }
func (None) put(dst *[PayloadSize]byte)   { *dst = [PayloadSize]byte{} }

func (p Key) String() string {
	return fmt.Sprintf("key{vk=%d scan=%d flags=%#x}", p.VirtualKey, p.ScanCode, p.Flags)
}

func (p MouseMove) String() string {
	return fmt.Sprintf("move{x=%d y=%d speed=%d}", p.X, p.Y, p.Speed)
}

func (p MouseClick) String() string {
	return fmt.Sprintf("click{x=%d y=%d button=%d}", p.X, p.Y, p.Button)
}

func (p MouseWheel) String() string {
	return fmt.Sprintf("wheel{delta=%d orientation=%d}", p.Delta, p.Orientation)
}

func (p WindowSwitch) String() string {
	return fmt.Sprintf("switch{old=%#x new=%#x hint=%d}", p.OldWindow, p.NewWindow, p.CategoryHint)
}

func (p Idle) String() string { return fmt.Sprintf("idle{%dms}", p.DurationMS) }

func (None) String() string { return "none" }

// Payload decodes the variant selected by the record's kind. It returns nil
// for a record whose kind is not defined.
func (r Record) Payload() Payload {
	a, b, c := words(&r.payload)
	switch r.kind {
	case KeyPress, KeyRelease:
		return Key{VirtualKey: a, ScanCode: b, Flags: c}
	case MouseMoved:
		return MouseMove{X: int32(a), Y: int32(b), Speed: c}
	case MouseClicked:
		return MouseClick{X: int32(a), Y: int32(b), Button: c}
	case MouseScrolled:
		return MouseWheel{Delta: int32(a), Orientation: b}
	case WindowFocusChange, WindowTitleChange:
		return WindowSwitch{OldWindow: a, NewWindow: b, CategoryHint: c}
	case IdleStart, IdleEnd:
		return Idle{DurationMS: a}
	case WindowMinimize, WindowMaximize, ScreenLock, ScreenUnlock:
		return None{}
	default:
		return nil
	}
}

// Key returns the key payload; ok is false unless the kind is KeyPress or
// KeyRelease.
func (r Record) Key() (Key, bool) {
	p, ok := r.Payload().(Key)
	return p, ok
}

// MouseMove returns the mouse move payload; ok is false unless the kind is
// MouseMoved.
func (r Record) MouseMove() (MouseMove, bool) {
	p, ok := r.Payload().(MouseMove)
	return p, ok
}

// MouseClick returns the click payload; ok is false unless the kind is
// MouseClicked.
func (r Record) MouseClick() (MouseClick, bool) {
	p, ok := r.Payload().(MouseClick)
	return p, ok
}

// MouseWheel returns the wheel payload; ok is false unless the kind is
// MouseScrolled.
func (r Record) MouseWheel() (MouseWheel, bool) {
	p, ok := r.Payload().(MouseWheel)
	return p, ok
}

// WindowSwitch returns the window payload; ok is false unless the kind is
// WindowFocusChange or WindowTitleChange.
func (r Record) WindowSwitch() (WindowSwitch, bool) {
	p, ok := r.Payload().(WindowSwitch)
	return p, ok
}

// Idle returns the idle payload; ok is false unless the kind is IdleStart or
// IdleEnd.
func (r Record) Idle() (Idle, bool) {
	p, ok := r.Payload().(Idle)
	return p, ok
}
