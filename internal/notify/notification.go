// Package notify implements the notification popup manager: per-screen,
// per-corner ordered stacks of popups with timeout expiry, replacement,
// suspension and deterministic eviction when a stack outgrows the
// workarea. All registries live on the Manager; nothing is process-global.
package notify

import (
	"image"
	"image/color"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wmkit/wmkit/internal/config"
	"github.com/wmkit/wmkit/internal/markup"
	"github.com/wmkit/wmkit/internal/render"
	"github.com/wmkit/wmkit/internal/tile"
)

// Reason explains why a notification went away. The values match the
// org.freedesktop.Notifications NotificationClosed reason codes.
type Reason int

const (
	// ReasonExpired is a timeout expiry, including stack eviction.
	ReasonExpired Reason = 1
	// ReasonDismissed is a user dismissal, e.g. a click.
	ReasonDismissed Reason = 2
	// ReasonClosed is a programmatic close request.
	ReasonClosed Reason = 3
	// ReasonSilent suppresses close callbacks and signals. Used for
	// replacement, where the old popup must vanish without a trace.
	ReasonSilent Reason = 0
)

// Surface is one popup window. Implementations own the native window and
// redraw the last updated image on expose.
type Surface interface {
	// Window returns the native window id for event routing.
	Window() uint32
	Move(x, y int)
	Show()
	Hide()
	// Update swaps the surface content and resizes the window to match.
	Update(img *image.RGBA)
	Destroy()
}

// SurfaceOptions describes a popup window to create. Width and Height are
// the content size; the border adds to the outer footprint.
type SurfaceOptions struct {
	X, Y          int
	Width, Height int
	BorderWidth   int
	Background    color.RGBA
	Border        color.RGBA
}

// Backend abstracts the display server connection.
type Backend interface {
	// ScreenForPointer returns the screen currently containing the pointer.
	ScreenForPointer() (int, error)
	// Workarea returns the usable area of a screen, struts excluded.
	Workarea(screen int) (tile.Rect, error)
	CreateSurface(opts SurfaceOptions) (Surface, error)
}

// Renderer rasterizes popup content.
type Renderer interface {
	Measure(c render.Content, maxTextWidth int) (int, int)
	Render(c render.Content, width, height int) *image.RGBA
}

// Args is the structured argument set of a notify request. Pointer fields
// distinguish "unset, use the preset" from explicit zero values.
type Args struct {
	ReplacesID uint32
	AppName    string
	Title      string
	Body       string
	Preset     string // preset name, "" or unknown = defaults

	IconPath  string
	IconImage image.Image // takes precedence over IconPath

	Timeout  *time.Duration
	Position *config.Position
	Screen   *int
	Width    *int
	Height   *int
	FontSize *float64

	Foreground  string // "#rrggbb" overrides, "" = preset value
	Background  string
	BorderColor string

	SuppressSound bool

	// OnDestroy is invoked with the closing reason, unless the reason
	// is ReasonSilent.
	OnDestroy func(reason Reason)
	// OnRun is invoked when the popup is left-clicked, before dismissal.
	OnRun func()
}

// Notification is the managed record of one popup.
type Notification struct {
	ID        uint32
	UID       ulid.ULID // stable identity across ID reuse
	AppName   string
	Title     string
	Body      string // raw request body
	Text      string // markup-resolved body
	Tier      markup.Tier
	Preset    string
	Screen    int
	Position  config.Position
	Width     int // content size, border excluded
	Height    int
	X, Y      int
	Timeout   time.Duration
	CreatedAt time.Time

	style     config.Style
	icon      *image.RGBA
	surface   Surface
	timer     *time.Timer
	hovered   bool
	queued    bool // created while suspended, not yet attached to a stack
	onDestroy func(Reason)
	onRun     func()
}

// listKey addresses one per-screen per-corner stack.
type listKey struct {
	screen   int
	position config.Position
}

// outerWidth is the footprint width including the window border.
func (n *Notification) outerWidth() int {
	return n.Width + 2*n.style.BorderWidth
}

func (n *Notification) outerHeight() int {
	return n.Height + 2*n.style.BorderWidth
}

func (n *Notification) key() listKey {
	return listKey{screen: n.Screen, position: n.Position}
}
