package x11

import (
	"fmt"

	"github.com/jezek/xgb/xproto"

	"github.com/wmkit/wmkit/internal/tile"
)

// Clients returns the manageable top-level windows: viewable children of
// the root that are not override-redirect.
func (c *Conn) Clients() ([]tile.Client, error) {
	tree, err := xproto.QueryTree(c.conn, c.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("query window tree: %w", err)
	}

	var clients []tile.Client
	for _, win := range tree.Children {
		attrs, err := xproto.GetWindowAttributes(c.conn, win).Reply()
		if err != nil {
			continue
		}
		if attrs.OverrideRedirect || attrs.MapState != xproto.MapStateViewable {
			continue
		}
		clients = append(clients, tile.Client(win))
	}
	return clients, nil
}

// Apply moves and resizes windows to their computed frames.
func (c *Conn) Apply(frames map[tile.Client]tile.Rect) error {
	for client, r := range frames {
		err := xproto.ConfigureWindowChecked(c.conn, xproto.Window(client),
			xproto.ConfigWindowX|xproto.ConfigWindowY|
				xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
			[]uint32{uint32(r.X), uint32(r.Y), uint32(r.Width), uint32(r.Height)}).Check()
		if err != nil {
			return fmt.Errorf("configure window 0x%x: %w", uint32(client), err)
		}
	}
	return nil
}
