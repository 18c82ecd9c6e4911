// Package tile implements window arrangement algorithms.
//
// Layouts are pure: they map an ordered client list plus a work area to one
// geometry per client, and never touch the X server themselves.
package tile

// Client identifies a window to be arranged. It matches the X11 window XID
// width so callers can convert without loss.
type Client uint32

// Rect is a screen rectangle in pixels.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Params carries the input of one arrangement pass.
type Params struct {
	// Workarea is the screen rectangle excluding reserved bars and docks.
	Workarea Rect
	// Clients is the ordered list of windows to arrange.
	Clients []Client
}

// Layout is the contract every arrangement algorithm satisfies.
type Layout interface {
	// Name returns the layout's identifier, e.g. "stack".
	Name() string
	// Arrange computes one geometry per client. Clients absent from the
	// result keep their current geometry.
	Arrange(p Params) map[Client]Rect
}

// Stack arranges clients in a single column, top to bottom, each taking the
// full work-area width and an equal share of its height.
//
// Heights are ceil-divided, so with N clients on a work area of height H the
// last client may extend up to N-1 pixels past the bottom edge. That is
// accepted rather than corrected.
type Stack struct{}

// Name implements Layout.
func (Stack) Name() string { return "stack" }

// Arrange implements Layout.
func (Stack) Arrange(p Params) map[Client]Rect {
	if len(p.Clients) == 0 {
		return nil
	}

	geoms := make(map[Client]Rect, len(p.Clients))
	height := ceilDiv(p.Workarea.Height, len(p.Clients))
	for k, c := range p.Clients {
		geoms[c] = Rect{
			X:      p.Workarea.X,
			Y:      p.Workarea.Y + k*height,
			Width:  p.Workarea.Width,
			Height: height,
		}
	}
	return geoms
}

// ceilDiv returns ceil(a/b) for positive b.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
