// Package x11 is the display server glue: one shared X connection, popup
// surfaces as override-redirect windows, workarea queries and the event
// loop that feeds pointer and keyboard traffic back to the daemon.
package x11

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xinerama"
	"github.com/jezek/xgb/xproto"
)

// Conn wraps the X connection shared by the popup backend, the keyboard
// bridge and the tiling helpers.
type Conn struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	root   xproto.Window
	logger *slog.Logger

	xinerama bool

	mu       sync.Mutex
	atoms    map[string]xproto.Atom
	surfaces map[xproto.Window]*surface

	onEnter  func(window uint32)
	onLeave  func(window uint32)
	onButton func(window uint32, button byte)
	onOther  func(ev xgb.Event)
}

// Connect opens the display named by $DISPLAY.
func Connect(logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	c := &Conn{
		conn:     conn,
		screen:   screen,
		root:     screen.Root,
		logger:   logger,
		atoms:    make(map[string]xproto.Atom),
		surfaces: make(map[xproto.Window]*surface),
	}

	if err := xinerama.Init(conn); err != nil {
		logger.Debug("xinerama unavailable, treating the display as one screen", "error", err)
	} else {
		c.xinerama = true
	}

	return c, nil
}

// Raw exposes the underlying connection for extension setup.
func (c *Conn) Raw() *xgb.Conn {
	return c.conn
}

// Close shuts down the connection, unblocking Run.
func (c *Conn) Close() {
	c.conn.Close()
}

// SetEnterHandler registers the callback for the pointer entering a popup.
func (c *Conn) SetEnterHandler(fn func(window uint32)) {
	c.onEnter = fn
}

// SetLeaveHandler registers the callback for the pointer leaving a popup.
func (c *Conn) SetLeaveHandler(fn func(window uint32)) {
	c.onLeave = fn
}

// SetButtonHandler registers the callback for button presses on a popup.
func (c *Conn) SetButtonHandler(fn func(window uint32, button byte)) {
	c.onButton = fn
}

// SetEventHandler registers the fallthrough callback for events that are
// not popup traffic, e.g. XKB extension events.
func (c *Conn) SetEventHandler(fn func(ev xgb.Event)) {
	c.onOther = fn
}

// Run pumps the event loop until the connection closes. Popup events are
// routed to the popup handlers, everything else to the fallthrough
// handler. X errors are logged and skipped.
func (c *Conn) Run() {
	for {
		ev, xerr := c.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			c.logger.Info("X connection closed, stopping event loop")
			return
		}
		if xerr != nil {
			c.logger.Warn("X error", "error", xerr)
			continue
		}

		switch e := ev.(type) {
		case xproto.ExposeEvent:
			c.redraw(e.Window)
		case xproto.EnterNotifyEvent:
			if c.onEnter != nil {
				c.onEnter(uint32(e.Event))
			}
		case xproto.LeaveNotifyEvent:
			if c.onLeave != nil {
				c.onLeave(uint32(e.Event))
			}
		case xproto.ButtonPressEvent:
			if c.onButton != nil {
				c.onButton(uint32(e.Event), byte(e.Detail))
			}
		default:
			if c.onOther != nil {
				c.onOther(ev)
			}
		}
	}
}

func (c *Conn) redraw(win xproto.Window) {
	c.mu.Lock()
	s := c.surfaces[win]
	c.mu.Unlock()
	if s != nil {
		s.draw()
	}
}

// atom interns an atom name, caching replies.
func (c *Conn) atom(name string) (xproto.Atom, error) {
	c.mu.Lock()
	if a, ok := c.atoms[name]; ok {
		c.mu.Unlock()
		return a, nil
	}
	c.mu.Unlock()

	reply, err := xproto.InternAtom(c.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("intern atom %s: %w", name, err)
	}

	c.mu.Lock()
	c.atoms[name] = reply.Atom
	c.mu.Unlock()
	return reply.Atom, nil
}
