// Package dbus exposes wmkitd on the session bus: the standard
// org.freedesktop.Notifications interface for desktop notifications and
// the org.wmkit.Control1 interface for daemon and keyboard control.
package dbus

import (
	"image"

	"github.com/godbus/dbus/v5"
)

const (
	// NotificationsInterface is the freedesktop notification interface name.
	NotificationsInterface = "org.freedesktop.Notifications"
	// NotificationsPath is the freedesktop notification object path.
	NotificationsPath = "/org/freedesktop/Notifications"

	// ControlInterface is the wmkit control interface name.
	ControlInterface = "org.wmkit.Control1"
	// ControlPath is the wmkit control object path.
	ControlPath = "/org/wmkit/Control"
	// ControlBusName is the bus name the daemon claims for control calls.
	ControlBusName = "org.wmkit.wmkitd"
)

// CloseReason represents the reason for closing a notification.
// These values are defined by the freedesktop.org notification specification.
type CloseReason uint32

const (
	// CloseReasonExpired indicates the notification expired (timeout reached).
	CloseReasonExpired CloseReason = 1
	// CloseReasonDismissed indicates the user dismissed the notification.
	CloseReasonDismissed CloseReason = 2
	// CloseReasonClosed indicates the notification was closed via CloseNotification.
	CloseReasonClosed CloseReason = 3
	// CloseReasonUndefined is reserved/undefined per the spec.
	CloseReasonUndefined CloseReason = 4
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Request carries the raw parameters of one Notify call.
type Request struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// Action represents a notification action with key and label.
type Action struct {
	Key   string
	Label string
}

// ParsedActions converts the D-Bus action array to structured form.
// D-Bus actions are passed as alternating key/label pairs.
func (r *Request) ParsedActions() []Action {
	actions := make([]Action, 0, len(r.Actions)/2)
	for i := 0; i+1 < len(r.Actions); i += 2 {
		actions = append(actions, Action{
			Key:   r.Actions[i],
			Label: r.Actions[i+1],
		})
	}
	return actions
}

// Urgency extracts the urgency hint, defaulting to normal (1).
func (r *Request) Urgency() byte {
	if v, ok := r.Hints["urgency"]; ok {
		if b, ok := v.Value().(byte); ok {
			return b
		}
	}
	return 1
}

func (r *Request) stringHint(name string) string {
	if v, ok := r.Hints[name]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

func (r *Request) boolHint(name string) bool {
	if v, ok := r.Hints[name]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

// SoundFile extracts the sound-file hint.
func (r *Request) SoundFile() string {
	return r.stringHint("sound-file")
}

// SuppressSound returns true if the suppress-sound hint is set.
func (r *Request) SuppressSound() bool {
	return r.boolHint("suppress-sound")
}

// Transient returns true if the transient hint is set.
func (r *Request) Transient() bool {
	return r.boolHint("transient")
}

// ImagePath extracts the image-path hint.
func (r *Request) ImagePath() string {
	return r.stringHint("image-path")
}

// ForegroundColor extracts the foreground color hint (string:fgcolor:#RRGGBB).
func (r *Request) ForegroundColor() string {
	return r.stringHint("fgcolor")
}

// BackgroundColor extracts the background color hint (string:bgcolor:#RRGGBB).
func (r *Request) BackgroundColor() string {
	return r.stringHint("bgcolor")
}

// FrameColor extracts the frame/border color hint (string:frcolor:#RRGGBB).
func (r *Request) FrameColor() string {
	return r.stringHint("frcolor")
}

// ImageData decodes the image-data hint (iiibiiay: width, height,
// rowstride, has_alpha, bits_per_sample, channels, data) into an image.
// Returns nil if the hint is absent or malformed.
func (r *Request) ImageData() image.Image {
	v, ok := r.Hints["image-data"]
	if !ok {
		v, ok = r.Hints["image_data"] // spec 1.1 spelling
	}
	if !ok {
		v, ok = r.Hints["icon_data"] // spec 1.0 spelling
	}
	if !ok {
		return nil
	}

	fields, ok := v.Value().([]interface{})
	if !ok || len(fields) != 7 {
		return nil
	}

	width, ok1 := fields[0].(int32)
	height, ok2 := fields[1].(int32)
	rowstride, ok3 := fields[2].(int32)
	hasAlpha, ok4 := fields[3].(bool)
	bits, ok5 := fields[4].(int32)
	channels, ok6 := fields[5].(int32)
	data, ok7 := fields[6].([]byte)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 || !ok7 {
		return nil
	}
	if width <= 0 || height <= 0 || bits != 8 {
		return nil
	}
	if channels != 3 && channels != 4 {
		return nil
	}
	if hasAlpha != (channels == 4) {
		return nil
	}
	if int32(len(data)) < (height-1)*rowstride+width*channels {
		return nil
	}

	img := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	for y := int32(0); y < height; y++ {
		row := data[y*rowstride:]
		for x := int32(0); x < width; x++ {
			px := row[x*channels:]
			i := img.PixOffset(int(x), int(y))
			img.Pix[i] = px[0]
			img.Pix[i+1] = px[1]
			img.Pix[i+2] = px[2]
			if channels == 4 {
				img.Pix[i+3] = px[3]
			} else {
				img.Pix[i+3] = 0xff
			}
		}
	}
	return img
}

// ServerCapabilities lists the capabilities advertised by wmkitd.
var ServerCapabilities = []string{
	"actions",     // Invoke an action on click
	"body",        // Body text
	"body-markup", // Markup in body, degraded gracefully
	"icon-static", // Static icons
	"sound",       // Play sounds
}

// ServerInfo contains information about the notification server.
type ServerInfo struct {
	Name        string
	Vendor      string
	Version     string
	SpecVersion string
}

// DefaultServerInfo returns the default server information.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Name:        "wmkitd",
		Vendor:      "wmkit",
		Version:     "0.1.0",
		SpecVersion: "1.2",
	}
}
