// Package event defines the fixed-size input event record carried by the
// capture transport.
//
// A Record is exactly one cache line (64 bytes) and contains no pointers, so
// it can be copied by value into a ring buffer slot and read back by another
// goroutine without any allocation. The active payload variant is selected by
// the record's Kind and can only be read through the matching accessor.
//
// Record layout (little-endian):
//
//	Offset  Size  Field
//	0       8     timestamp (microseconds since Unix epoch)
//	8       4     kind
//	12      4     process id
//	16      24    application name (NUL-terminated)
//	40      4     window handle
//	44      16    payload (variant selected by kind)
//	60      4     reserved (zero)
package event

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
	"unsafe"
)

// Size constants for the record layout.
const (
	RecordSize  = 64
	NameSize    = 24
	PayloadSize = 16

	// MaxNameLen is the longest application name that still leaves room
	// for the terminating NUL.
	MaxNameLen = NameSize - 1
)

// Plausible timestamp range, in microseconds since the Unix epoch.
const (
	MinTimestamp uint64 = 1577836800000000 // 2020-01-01T00:00:00Z
	MaxTimestamp uint64 = 2524608000000000 // 2050-01-01T00:00:00Z
)

// Errors
var (
	ErrUnknownKind          = errors.New("event: unknown kind")
	ErrPayloadMismatch      = errors.New("event: payload does not match kind")
	ErrImplausibleTimestamp = errors.New("event: timestamp outside plausible range")
	ErrUnterminatedName     = errors.New("event: application name not terminated")
	ErrShortBuffer          = errors.New("event: buffer shorter than record size")
)

// Kind discriminates the event type and selects the payload variant.
type Kind uint32

const (
	Unknown           Kind = 0
	KeyPress          Kind = 1
	KeyRelease        Kind = 2
	MouseMoved        Kind = 3
	MouseClicked      Kind = 4
	MouseScrolled     Kind = 5
	WindowFocusChange Kind = 6
	WindowTitleChange Kind = 7
	WindowMinimize    Kind = 8
	WindowMaximize    Kind = 9
	IdleStart         Kind = 10
	IdleEnd           Kind = 11
	ScreenLock        Kind = 12
	ScreenUnlock      Kind = 13

	maxKind = ScreenUnlock
)

var kindNames = [...]string{
	Unknown:           "unknown",
	KeyPress:          "key_press",
	KeyRelease:        "key_release",
	MouseMoved:        "mouse_move",
	MouseClicked:      "mouse_click",
	MouseScrolled:     "mouse_wheel",
	WindowFocusChange: "window_focus_change",
	WindowTitleChange: "window_title_change",
	WindowMinimize:    "window_minimize",
	WindowMaximize:    "window_maximize",
	IdleStart:         "idle_start",
	IdleEnd:           "idle_end",
	ScreenLock:        "screen_lock",
	ScreenUnlock:      "screen_unlock",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if k <= maxKind {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// Known reports whether k is a defined, non-Unknown kind.
func (k Kind) Known() bool {
	return k > Unknown && k <= maxKind
}

// ParseKind parses the name produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Origin identifies where an event was captured.
type Origin struct {
	ProcessID uint32
	Window    uint32
	App       string
}

// Record is a single captured input event. The zero value is an invalid
// record of kind Unknown.
type Record struct {
	timestamp uint64
	kind      Kind
	pid       uint32
	app       [NameSize]byte
	window    uint32
	payload   [PayloadSize]byte
	reserved  uint32
}

// Record must occupy exactly one cache line.
var (
	_ [RecordSize - unsafe.Sizeof(Record{})]struct{}
	_ [unsafe.Sizeof(Record{}) - RecordSize]struct{}
)

// New builds a fully populated record. The payload variant must belong to
// kind. Application names longer than MaxNameLen bytes are truncated on a
// UTF-8 boundary.
func New(ts uint64, kind Kind, o Origin, p Payload) (Record, error) {
	if !kind.Known() {
		return Record{}, fmt.Errorf("%w: %d", ErrUnknownKind, uint32(kind))
	}
	if p == nil || !p.accepts(kind) {
		return Record{}, fmt.Errorf("%w: %s with %T", ErrPayloadMismatch, kind, p)
	}
	r := Record{
		timestamp: ts,
		kind:      kind,
		pid:       o.ProcessID,
		window:    o.Window,
	}
	setName(&r.app, o.App)
	p.put(&r.payload)
	return r, nil
}

// must is used by the typed constructors whose kind/payload pairing is
// fixed at compile time.
func must(r Record, err error) Record {
	if err != nil {
		panic(err)
	}
	return r
}

// NewKeyPress returns a KeyPress record.
func NewKeyPress(ts uint64, o Origin, k Key) Record {
	return must(New(ts, KeyPress, o, k))
}

// NewKeyRelease returns a KeyRelease record.
func NewKeyRelease(ts uint64, o Origin, k Key) Record {
	return must(New(ts, KeyRelease, o, k))
}

// NewMouseMove returns a MouseMoved record.
func NewMouseMove(ts uint64, o Origin, m MouseMove) Record {
	return must(New(ts, MouseMoved, o, m))
}

// NewMouseClick returns a MouseClicked record.
func NewMouseClick(ts uint64, o Origin, c MouseClick) Record {
	return must(New(ts, MouseClicked, o, c))
}

// NewMouseWheel returns a MouseScrolled record.
func NewMouseWheel(ts uint64, o Origin, w MouseWheel) Record {
	return must(New(ts, MouseScrolled, o, w))
}

// NewWindowFocus returns a WindowFocusChange record.
func NewWindowFocus(ts uint64, o Origin, s WindowSwitch) Record {
	return must(New(ts, WindowFocusChange, o, s))
}

// NewIdleStart returns an IdleStart record.
func NewIdleStart(ts uint64, o Origin, idle Idle) Record {
	return must(New(ts, IdleStart, o, idle))
}

// NewIdleEnd returns an IdleEnd record.
func NewIdleEnd(ts uint64, o Origin, idle Idle) Record {
	return must(New(ts, IdleEnd, o, idle))
}

func setName(dst *[NameSize]byte, name string) {
	if i := strings.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	if len(name) > MaxNameLen {
		n := MaxNameLen
		for n > 0 && !utf8.RuneStart(name[n]) {
			n--
		}
		name = name[:n]
	}
	copy(dst[:], name)
}

// Timestamp returns the capture time in microseconds since the Unix epoch.
func (r Record) Timestamp() uint64 { return r.timestamp }

// Time returns the capture time.
func (r Record) Time() time.Time { return time.UnixMicro(int64(r.timestamp)) }

// Kind returns the event discriminator.
func (r Record) Kind() Kind { return r.kind }

// ProcessID returns the id of the process that owned the input.
func (r Record) ProcessID() uint32 { return r.pid }

// Window returns the window handle that owned the input.
func (r Record) Window() uint32 { return r.window }

// Origin returns the process, window, and application of the event.
func (r Record) Origin() Origin {
	return Origin{ProcessID: r.pid, Window: r.window, App: r.AppName()}
}

// AppName returns the application name up to its terminator. An
// unterminated name is returned in full.
func (r Record) AppName() string {
	for i, b := range r.app {
		if b == 0 {
			return string(r.app[:i])
		}
	}
	return string(r.app[:])
}

// Validate reports why a record should not be published, or nil.
func (r Record) Validate() error {
	if r.timestamp < MinTimestamp || r.timestamp > MaxTimestamp {
		return fmt.Errorf("%w: %d", ErrImplausibleTimestamp, r.timestamp)
	}
	if !r.kind.Known() {
		return fmt.Errorf("%w: %d", ErrUnknownKind, uint32(r.kind))
	}
	terminated := false
	for _, b := range r.app {
		if b == 0 {
			terminated = true
			break
		}
	}
	if !terminated {
		return ErrUnterminatedName
	}
	return nil
}

// Valid is shorthand for Validate() == nil.
func (r Record) Valid() bool {
	return r.Validate() == nil
}

// String formats the record for logs.
func (r Record) String() string {
	return fmt.Sprintf("%s@%d app=%q pid=%d window=%#x %v",
		r.kind, r.timestamp, r.AppName(), r.pid, r.window, r.Payload())
}
