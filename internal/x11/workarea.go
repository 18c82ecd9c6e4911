package x11

import (
	"fmt"

	"github.com/jezek/xgb/xinerama"
	"github.com/jezek/xgb/xproto"

	"github.com/wmkit/wmkit/internal/tile"
)

// monitors returns the physical screen rectangles, falling back to one
// root-sized rectangle when xinerama is absent or inactive.
func (c *Conn) monitors() ([]tile.Rect, error) {
	if c.xinerama {
		reply, err := xinerama.QueryScreens(c.conn).Reply()
		if err == nil && len(reply.ScreenInfo) > 0 {
			rects := make([]tile.Rect, len(reply.ScreenInfo))
			for i, si := range reply.ScreenInfo {
				rects[i] = tile.Rect{
					X:      int(si.XOrg),
					Y:      int(si.YOrg),
					Width:  int(si.Width),
					Height: int(si.Height),
				}
			}
			return rects, nil
		}
		if err != nil {
			c.logger.Debug("xinerama query failed, using root geometry", "error", err)
		}
	}

	return []tile.Rect{{
		Width:  int(c.screen.WidthInPixels),
		Height: int(c.screen.HeightInPixels),
	}}, nil
}

// Workarea returns the usable rectangle of one screen: its monitor
// geometry intersected with the window manager's _NET_WORKAREA, so panels
// and docks are excluded. Screens out of range fall back to screen 0.
func (c *Conn) Workarea(screen int) (tile.Rect, error) {
	mons, err := c.monitors()
	if err != nil {
		return tile.Rect{}, err
	}
	if screen < 0 || screen >= len(mons) {
		screen = 0
	}
	mon := mons[screen]

	wa, ok := c.netWorkarea()
	if !ok {
		return mon, nil
	}
	if r := intersect(mon, wa); !r.Empty() {
		return r, nil
	}
	return mon, nil
}

// ScreenForPointer returns the index of the screen containing the pointer.
func (c *Conn) ScreenForPointer() (int, error) {
	reply, err := xproto.QueryPointer(c.conn, c.root).Reply()
	if err != nil {
		return 0, fmt.Errorf("query pointer: %w", err)
	}

	mons, err := c.monitors()
	if err != nil {
		return 0, err
	}
	x, y := int(reply.RootX), int(reply.RootY)
	for i, m := range mons {
		if x >= m.X && x < m.X+m.Width && y >= m.Y && y < m.Y+m.Height {
			return i, nil
		}
	}
	return 0, nil
}

// netWorkarea reads the root _NET_WORKAREA entry for the current desktop.
func (c *Conn) netWorkarea() (tile.Rect, bool) {
	desktop := c.currentDesktop()

	waAtom, err := c.atom("_NET_WORKAREA")
	if err != nil {
		return tile.Rect{}, false
	}
	reply, err := xproto.GetProperty(c.conn, false, c.root, waAtom,
		xproto.AtomCardinal, 0, 4*32).Reply()
	if err != nil || reply.Format != 32 {
		return tile.Rect{}, false
	}

	vals := cardinals(reply.Value)
	idx := desktop * 4
	if len(vals) < idx+4 {
		return tile.Rect{}, false
	}
	return tile.Rect{
		X:      int(vals[idx]),
		Y:      int(vals[idx+1]),
		Width:  int(vals[idx+2]),
		Height: int(vals[idx+3]),
	}, true
}

func (c *Conn) currentDesktop() int {
	atom, err := c.atom("_NET_CURRENT_DESKTOP")
	if err != nil {
		return 0
	}
	reply, err := xproto.GetProperty(c.conn, false, c.root, atom,
		xproto.AtomCardinal, 0, 1).Reply()
	if err != nil || reply.Format != 32 || len(reply.Value) < 4 {
		return 0
	}
	return int(cardinals(reply.Value)[0])
}

// cardinals decodes a 32-bit property payload.
func cardinals(data []byte) []uint32 {
	vals := make([]uint32, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		vals = append(vals, uint32(data[i])|uint32(data[i+1])<<8|
			uint32(data[i+2])<<16|uint32(data[i+3])<<24)
	}
	return vals
}

// intersect clips a to b. An empty result means the two do not overlap.
func intersect(a, b tile.Rect) tile.Rect {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.Width, b.X+b.Width)
	y2 := min(a.Y+a.Height, b.Y+b.Height)
	if x2 <= x1 || y2 <= y1 {
		return tile.Rect{}
	}
	return tile.Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}
