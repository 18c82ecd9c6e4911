// Package xkb bridges X Keyboard Extension state to the rest of the daemon.
//
// It exposes get/set operations for the active layout group (0-3) and relays
// keymap and group change events to handler callbacks. Nothing is cached:
// the X server owns the state and every query goes to the wire.
package xkb

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// MaxGroup is the highest layout group the extension supports.
const MaxGroup = 3

// Bridge relays XKB extension traffic for one X connection.
type Bridge struct {
	conn   *xgb.Conn
	logger *slog.Logger

	onMapChanged   func()
	onGroupChanged func(group uint8)
}

// New initializes XKB support on conn. The extension must be present with at
// least version 1.0 and the event selection must succeed; there is no
// degraded mode, so any failure here is fatal for the caller.
func New(conn *xgb.Conn, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := initExt(conn); err != nil {
		return nil, fmt.Errorf("xkb extension not present: %w", err)
	}

	supported, serverMajor, serverMinor, err := useExtension(conn, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("xkb use extension: %w", err)
	}
	if !supported {
		return nil, fmt.Errorf("xkb extension version 1.0 not supported (server has %d.%d)",
			serverMajor, serverMinor)
	}

	events := uint16(eventMaskNewKeyboardNotify | eventMaskStateNotify | eventMaskNamesNotify)
	if err := selectEvents(conn, useCoreKbd, events); err != nil {
		return nil, fmt.Errorf("xkb select events: %w", err)
	}

	return &Bridge{conn: conn, logger: logger}, nil
}

// OnMapChanged registers the callback fired when the keymap changes.
func (b *Bridge) OnMapChanged(fn func()) {
	b.onMapChanged = fn
}

// OnGroupChanged registers the callback fired with the new group when the
// active layout group changes.
func (b *Bridge) OnGroupChanged(fn func(group uint8)) {
	b.onGroupChanged = fn
}

// SetLayout latches group as the active core-keyboard layout. The request is
// fire-and-forget; groups outside 0-3 are rejected before touching the wire.
func (b *Bridge) SetLayout(group uint8) error {
	if group > MaxGroup {
		return fmt.Errorf("layout group %d out of range 0-%d", group, MaxGroup)
	}
	latchLockState(b.conn, useCoreKbd, group)
	return nil
}

// Layout queries the currently active layout group.
func (b *Bridge) Layout() (uint8, error) {
	group, err := getState(b.conn, useCoreKbd)
	if err != nil {
		return 0, fmt.Errorf("xkb get state: %w", err)
	}
	return group, nil
}

// GroupNames resolves the symbolic name of the current symbol layout stack,
// e.g. "pc+us+ru:2+inet(evdev)+group(alt_shift_toggle)".
func (b *Bridge) GroupNames() (string, error) {
	symbols, err := getSymbolsName(b.conn, useCoreKbd)
	if err != nil {
		b.logger.Warn("failed to get xkb symbols name", "error", err)
		return "", fmt.Errorf("xkb get names: %w", err)
	}

	atom, err := xproto.GetAtomName(b.conn, symbols).Reply()
	if err != nil {
		b.logger.Warn("failed to resolve xkb symbols atom", "error", err)
		return "", fmt.Errorf("get atom name: %w", err)
	}
	return atom.Name, nil
}

// HandleEvent dispatches one XKB event to the registered callbacks. Keymap
// changes (a new keyboard with changed keycodes, or a names change) fire the
// map-changed callback; state changes fire the group-changed callback only
// when the group bitfield of the change mask is set. Everything else is
// ignored.
func (b *Bridge) HandleEvent(ev xgb.Event) {
	switch e := ev.(type) {
	case NewKeyboardNotifyEvent:
		if e.Changed&nknDetailKeycodes != 0 {
			b.emitMapChanged()
		}
	case NamesNotifyEvent:
		b.emitMapChanged()
	case StateNotifyEvent:
		if e.Changed&statePartGroupState != 0 {
			b.emitGroupChanged(e.Group)
		}
	}
}

// ParseSymbols splits a symbols string like "pc+us+ru:2+inet(evdev)" into
// per-group layout names, dropping the non-layout components.
func ParseSymbols(symbols string) []string {
	var names []string
	for _, part := range strings.Split(symbols, "+") {
		if i := strings.IndexAny(part, "(:"); i >= 0 {
			part = part[:i]
		}
		switch part {
		case "", "pc", "inet", "base", "capslock", "terminate":
			continue
		}
		names = append(names, part)
	}
	return names
}

func (b *Bridge) emitMapChanged() {
	b.logger.Debug("xkb keymap changed")
	if b.onMapChanged != nil {
		b.onMapChanged()
	}
}

func (b *Bridge) emitGroupChanged(group uint8) {
	b.logger.Debug("xkb group changed", "group", group)
	if b.onGroupChanged != nil {
		b.onGroupChanged(group)
	}
}
