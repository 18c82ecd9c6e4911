package xkb

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// The XKB extension has no generated bindings in the xgb tree, so the few
// requests the bridge needs are encoded by hand, the same way the generated
// extension packages drive the wire: major opcode from Conn.Extensions,
// minor opcode, length in 4-byte units, then the request fields.

// extName is the extension's X11 protocol name.
const extName = "XKEYBOARD"

// Minor request opcodes.
const (
	opUseExtension   = 0
	opSelectEvents   = 1
	opGetState       = 4
	opLatchLockState = 5
	opGetNames       = 17
)

// useCoreKbd is the DeviceSpec addressing the core keyboard.
const useCoreKbd uint16 = 0x0100

// Event type mask bits for SelectEvents, matching the sub-event numbers.
const (
	eventMaskNewKeyboardNotify = 1 << 0
	eventMaskStateNotify       = 1 << 2
	eventMaskNamesNotify       = 1 << 6
)

// Sub-event numbers carried in byte 1 of every xkb event.
const (
	typeNewKeyboardNotify = 0
	typeMapNotify         = 1
	typeStateNotify       = 2
	typeNamesNotify       = 6
)

// Change-mask bits consulted by the event relay.
const (
	nknDetailKeycodes   = 1 << 0 // NewKeyboardNotifyEvent.Changed
	nknDetailGeometry   = 1 << 1
	statePartGroupState = 1 << 4 // StateNotifyEvent.Changed
)

// GetNames detail bits. Atom values appear in the reply's value list in
// ascending bit order.
const (
	nameDetailKeycodes = 1 << 0
	nameDetailGeometry = 1 << 1
	nameDetailSymbols  = 1 << 2
)

// initExt registers the extension opcode and the event parser on conn.
// All xkb sub-events share the one event number the server assigns; the
// parser dispatches on the sub-type byte.
func initExt(c *xgb.Conn) error {
	reply, err := xproto.QueryExtension(c, uint16(len(extName)), extName).Reply()
	if err != nil {
		return err
	}
	if !reply.Present {
		return xgb.Errorf("no extension named %s could be found on the server", extName)
	}

	c.ExtLock.Lock()
	c.Extensions[extName] = reply.MajorOpcode
	c.ExtLock.Unlock()
	xgb.NewEventFuncs[int(reply.FirstEvent)] = newEvent
	return nil
}

// header fills the 4-byte request header and returns the buffer.
func header(c *xgb.Conn, minor byte, size int) []byte {
	buf := make([]byte, size)
	c.ExtLock.RLock()
	buf[0] = c.Extensions[extName]
	c.ExtLock.RUnlock()
	buf[1] = minor
	xgb.Put16(buf[2:], uint16(size/4))
	return buf
}

// useExtension negotiates the protocol version with the server.
func useExtension(c *xgb.Conn, wantedMajor, wantedMinor uint16) (supported bool, serverMajor, serverMinor uint16, err error) {
	buf := header(c, opUseExtension, 8)
	xgb.Put16(buf[4:], wantedMajor)
	xgb.Put16(buf[6:], wantedMinor)

	cookie := c.NewCookie(true, true)
	c.NewRequest(buf, cookie)
	raw, err := cookie.Reply()
	if err != nil {
		return false, 0, 0, err
	}
	if len(raw) < 12 {
		return false, 0, 0, fmt.Errorf("short UseExtension reply (%d bytes)", len(raw))
	}
	return raw[1] != 0, xgb.Get16(raw[8:]), xgb.Get16(raw[10:]), nil
}

// selectEvents subscribes conn to the given event types on the device.
// The types are both affected and select-all, so no per-event detail
// masks follow the fixed part.
func selectEvents(c *xgb.Conn, deviceSpec, events uint16) error {
	buf := header(c, opSelectEvents, 16)
	xgb.Put16(buf[4:], deviceSpec)
	xgb.Put16(buf[6:], events)  // affectWhich
	xgb.Put16(buf[8:], 0)       // clear
	xgb.Put16(buf[10:], events) // selectAll
	xgb.Put16(buf[12:], 0)      // affectMap
	xgb.Put16(buf[14:], 0)      // map

	cookie := c.NewCookie(true, false)
	c.NewRequest(buf, cookie)
	return cookie.Check()
}

// latchLockState locks group as the active layout. Fire and forget, like
// the callers.
func latchLockState(c *xgb.Conn, deviceSpec uint16, group uint8) {
	buf := header(c, opLatchLockState, 16)
	xgb.Put16(buf[4:], deviceSpec)
	// affectModLocks (6) and modLocks (7) stay zero.
	buf[8] = 1     // lockGroup
	buf[9] = group // groupLock
	// affectModLatches, latchGroup and groupLatch stay zero.

	cookie := c.NewCookie(false, false)
	c.NewRequest(buf, cookie)
}

// getState returns the effective layout group.
func getState(c *xgb.Conn, deviceSpec uint16) (uint8, error) {
	buf := header(c, opGetState, 8)
	xgb.Put16(buf[4:], deviceSpec)

	cookie := c.NewCookie(true, true)
	c.NewRequest(buf, cookie)
	raw, err := cookie.Reply()
	if err != nil {
		return 0, err
	}
	if len(raw) < 13 {
		return 0, fmt.Errorf("short GetState reply (%d bytes)", len(raw))
	}
	return raw[12], nil
}

// getSymbolsName returns the atom naming the symbol layout stack.
func getSymbolsName(c *xgb.Conn, deviceSpec uint16) (xproto.Atom, error) {
	buf := header(c, opGetNames, 12)
	xgb.Put16(buf[4:], deviceSpec)
	xgb.Put32(buf[8:], nameDetailSymbols)

	cookie := c.NewCookie(true, true)
	c.NewRequest(buf, cookie)
	raw, err := cookie.Reply()
	if err != nil {
		return 0, err
	}
	if len(raw) < 32 {
		return 0, fmt.Errorf("short GetNames reply (%d bytes)", len(raw))
	}
	which := xgb.Get32(raw[8:])
	if which&nameDetailSymbols == 0 {
		return 0, fmt.Errorf("GetNames reply carries no symbols name (which=%#x)", which)
	}
	off := symbolsNameOffset(which)
	if len(raw) < off+4 {
		return 0, fmt.Errorf("GetNames value list truncated (%d bytes)", len(raw))
	}
	return xproto.Atom(xgb.Get32(raw[off:])), nil
}

// symbolsNameOffset locates the symbols atom in a GetNames value list,
// which starts at byte 32 and carries one atom per lower which bit first.
func symbolsNameOffset(which uint32) int {
	off := 32
	for _, bit := range []uint32{nameDetailKeycodes, nameDetailGeometry} {
		if which&bit != 0 {
			off += 4
		}
	}
	return off
}

// NewKeyboardNotifyEvent reports a keyboard replacement; Changed says
// which parts differ.
type NewKeyboardNotifyEvent struct {
	Changed uint16
}

func (e NewKeyboardNotifyEvent) Bytes() []byte { return nil }

func (e NewKeyboardNotifyEvent) String() string {
	return fmt.Sprintf("XkbNewKeyboardNotify {Changed: %#x}", e.Changed)
}

// MapNotifyEvent reports a keymap mapping change.
type MapNotifyEvent struct{}

func (e MapNotifyEvent) Bytes() []byte { return nil }

func (e MapNotifyEvent) String() string { return "XkbMapNotify {}" }

// StateNotifyEvent reports a keyboard state change; Group is the new
// effective group when the group bit of Changed is set.
type StateNotifyEvent struct {
	Group   uint8
	Changed uint16
}

func (e StateNotifyEvent) Bytes() []byte { return nil }

func (e StateNotifyEvent) String() string {
	return fmt.Sprintf("XkbStateNotify {Group: %d, Changed: %#x}", e.Group, e.Changed)
}

// NamesNotifyEvent reports a symbolic name change.
type NamesNotifyEvent struct {
	Changed uint16
}

func (e NamesNotifyEvent) Bytes() []byte { return nil }

func (e NamesNotifyEvent) String() string {
	return fmt.Sprintf("XkbNamesNotify {Changed: %#x}", e.Changed)
}

// unhandledEvent covers sub-events the bridge never selects or consumes.
type unhandledEvent struct {
	xkbType byte
}

func (e unhandledEvent) Bytes() []byte { return nil }

func (e unhandledEvent) String() string {
	return fmt.Sprintf("XkbEvent {type: %d}", e.xkbType)
}

// newEvent parses one raw xkb event, dispatching on the sub-type byte.
// Field offsets follow the wire layout of the protocol structs.
func newEvent(buf []byte) xgb.Event {
	switch buf[1] {
	case typeNewKeyboardNotify:
		return NewKeyboardNotifyEvent{Changed: xgb.Get16(buf[16:])}
	case typeMapNotify:
		return MapNotifyEvent{}
	case typeStateNotify:
		return StateNotifyEvent{Group: buf[13], Changed: xgb.Get16(buf[26:])}
	case typeNamesNotify:
		return NamesNotifyEvent{Changed: xgb.Get16(buf[10:])}
	default:
		return unhandledEvent{xkbType: buf[1]}
	}
}
