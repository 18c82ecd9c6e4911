package dbus

import (
	"image/color"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsedActions(t *testing.T) {
	r := &Request{Actions: []string{"default", "Open", "dismiss", "Dismiss"}}

	actions := r.ParsedActions()
	require.Len(t, actions, 2)
	assert.Equal(t, Action{Key: "default", Label: "Open"}, actions[0])
	assert.Equal(t, Action{Key: "dismiss", Label: "Dismiss"}, actions[1])
}

func TestParsedActionsOddCount(t *testing.T) {
	r := &Request{Actions: []string{"default", "Open", "dangling"}}
	assert.Len(t, r.ParsedActions(), 1)
}

func TestUrgencyDefault(t *testing.T) {
	r := &Request{Hints: map[string]dbus.Variant{}}
	assert.Equal(t, byte(1), r.Urgency())
}

func TestUrgencyFromHint(t *testing.T) {
	r := &Request{Hints: map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(2)),
	}}
	assert.Equal(t, byte(2), r.Urgency())
}

func TestUrgencyWrongTypeIgnored(t *testing.T) {
	r := &Request{Hints: map[string]dbus.Variant{
		"urgency": dbus.MakeVariant("critical"),
	}}
	assert.Equal(t, byte(1), r.Urgency())
}

func TestColorHints(t *testing.T) {
	r := &Request{Hints: map[string]dbus.Variant{
		"fgcolor": dbus.MakeVariant("#ffffff"),
		"bgcolor": dbus.MakeVariant("#000000"),
		"frcolor": dbus.MakeVariant("#ff0000"),
	}}

	assert.Equal(t, "#ffffff", r.ForegroundColor())
	assert.Equal(t, "#000000", r.BackgroundColor())
	assert.Equal(t, "#ff0000", r.FrameColor())
}

func TestSoundHints(t *testing.T) {
	r := &Request{Hints: map[string]dbus.Variant{
		"sound-file":     dbus.MakeVariant("/usr/share/sounds/bell.ogg"),
		"suppress-sound": dbus.MakeVariant(true),
	}}

	assert.Equal(t, "/usr/share/sounds/bell.ogg", r.SoundFile())
	assert.True(t, r.SuppressSound())
}

func imageDataVariant(width, height, rowstride int32, hasAlpha bool, channels int32, data []byte) dbus.Variant {
	return dbus.MakeVariant([]interface{}{
		width, height, rowstride, hasAlpha, int32(8), channels, data,
	})
}

func TestImageDataRGB(t *testing.T) {
	// 2x1 image: red pixel, green pixel.
	data := []byte{0xff, 0x00, 0x00, 0x00, 0xff, 0x00}
	r := &Request{Hints: map[string]dbus.Variant{
		"image-data": imageDataVariant(2, 1, 6, false, 3, data),
	}}

	img := r.ImageData()
	require.NotNil(t, img)
	assert.Equal(t, 2, img.Bounds().Dx())

	c := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA)
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, c)
	c = color.RGBAModel.Convert(img.At(1, 0)).(color.RGBA)
	assert.Equal(t, color.RGBA{G: 0xff, A: 0xff}, c)
}

func TestImageDataRGBA(t *testing.T) {
	data := []byte{0x10, 0x20, 0x30, 0x80}
	r := &Request{Hints: map[string]dbus.Variant{
		"image-data": imageDataVariant(1, 1, 4, true, 4, data),
	}}

	img := r.ImageData()
	require.NotNil(t, img)
	c := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA)
	assert.Equal(t, uint8(0x80), c.A)
}

func TestImageDataRowstridePadding(t *testing.T) {
	// rowstride 8 for a 2-pixel RGB row (2 padding bytes per row).
	data := []byte{
		0xff, 0x00, 0x00, 0x00, 0xff, 0x00, 0xaa, 0xbb,
		0x00, 0x00, 0xff, 0xff, 0xff, 0xff, 0xcc, 0xdd,
	}
	r := &Request{Hints: map[string]dbus.Variant{
		"image-data": imageDataVariant(2, 2, 8, false, 3, data),
	}}

	img := r.ImageData()
	require.NotNil(t, img)
	c := color.RGBAModel.Convert(img.At(0, 1)).(color.RGBA)
	assert.Equal(t, color.RGBA{B: 0xff, A: 0xff}, c)
}

func TestImageDataMalformed(t *testing.T) {
	cases := map[string]dbus.Variant{
		"short data":     imageDataVariant(100, 100, 300, false, 3, []byte{1, 2, 3}),
		"bad channels":   imageDataVariant(1, 1, 5, false, 5, make([]byte, 5)),
		"alpha mismatch": imageDataVariant(1, 1, 3, true, 3, make([]byte, 3)),
		"not a struct":   dbus.MakeVariant("nope"),
	}
	for name, v := range cases {
		r := &Request{Hints: map[string]dbus.Variant{"image-data": v}}
		assert.Nil(t, r.ImageData(), name)
	}
}

func TestImageDataAbsent(t *testing.T) {
	r := &Request{Hints: map[string]dbus.Variant{}}
	assert.Nil(t, r.ImageData())
}

func TestCloseReasonString(t *testing.T) {
	assert.Equal(t, "expired", CloseReasonExpired.String())
	assert.Equal(t, "dismissed", CloseReasonDismissed.String())
	assert.Equal(t, "closed", CloseReasonClosed.String())
	assert.Equal(t, "undefined", CloseReasonUndefined.String())
	assert.Equal(t, "unknown", CloseReason(99).String())
}
