package xkb

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestBridge() (*Bridge, *int, *[]uint8) {
	mapCalls := 0
	var groups []uint8

	b := &Bridge{logger: slog.Default()}
	b.OnMapChanged(func() { mapCalls++ })
	b.OnGroupChanged(func(g uint8) { groups = append(groups, g) })
	return b, &mapCalls, &groups
}

func TestHandleEventNewKeyboardKeycodes(t *testing.T) {
	b, mapCalls, groups := newTestBridge()

	b.HandleEvent(NewKeyboardNotifyEvent{Changed: nknDetailKeycodes})
	assert.Equal(t, 1, *mapCalls)
	assert.Empty(t, *groups)
}

func TestHandleEventNewKeyboardWithoutKeycodes(t *testing.T) {
	b, mapCalls, _ := newTestBridge()

	// Geometry-only change must not refresh the keymap.
	b.HandleEvent(NewKeyboardNotifyEvent{Changed: nknDetailGeometry})
	assert.Equal(t, 0, *mapCalls)
}

func TestHandleEventNamesNotify(t *testing.T) {
	b, mapCalls, _ := newTestBridge()

	b.HandleEvent(NamesNotifyEvent{})
	assert.Equal(t, 1, *mapCalls)
}

func TestHandleEventStateNotifyGroup(t *testing.T) {
	b, mapCalls, groups := newTestBridge()

	b.HandleEvent(StateNotifyEvent{
		Changed: statePartGroupState,
		Group:   2,
	})
	assert.Equal(t, 0, *mapCalls)
	assert.Equal(t, []uint8{2}, *groups)
}

func TestHandleEventStateNotifyWithoutGroupBit(t *testing.T) {
	b, _, groups := newTestBridge()

	// Modifier-state-only change carries no group update.
	b.HandleEvent(StateNotifyEvent{
		Changed: 1 << 0,
		Group:   1,
	})
	assert.Empty(t, *groups)
}

func TestHandleEventIgnoresUnknown(t *testing.T) {
	b, mapCalls, groups := newTestBridge()

	b.HandleEvent(MapNotifyEvent{})
	assert.Equal(t, 0, *mapCalls)
	assert.Empty(t, *groups)
}

func TestHandleEventNilCallbacks(t *testing.T) {
	b := &Bridge{logger: slog.Default()}

	assert.NotPanics(t, func() {
		b.HandleEvent(NamesNotifyEvent{})
		b.HandleEvent(StateNotifyEvent{Changed: statePartGroupState})
	})
}

func TestSetLayoutRange(t *testing.T) {
	b := &Bridge{logger: slog.Default()}

	err := b.SetLayout(4)
	assert.Error(t, err)
}

func TestParseSymbols(t *testing.T) {
	tests := []struct {
		symbols string
		want    []string
	}{
		{"pc+us+ru:2+inet(evdev)", []string{"us", "ru"}},
		{"pc+us+inet(evdev)+group(alt_shift_toggle)", []string{"us"}},
		{"pc+de(nodeadkeys)+fr:2+inet(evdev)+capslock(escape)", []string{"de", "fr"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSymbols(tt.symbols), "symbols %q", tt.symbols)
	}
}
