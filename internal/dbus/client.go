package dbus

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

// Client talks to a running wmkitd (or any freedesktop notification
// daemon for the Notify path) over the session bus.
type Client struct {
	conn          *dbus.Conn
	notifications dbus.BusObject
	control       dbus.BusObject
}

// NewClient connects to the session bus.
func NewClient() (*Client, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Client{
		conn:          conn,
		notifications: conn.Object(NotificationsInterface, NotificationsPath),
		control:       conn.Object(ControlBusName, ControlPath),
	}, nil
}

// Close releases the client's bus resources.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Notify sends a notification and returns the assigned id.
func (c *Client) Notify(req Request) (uint32, error) {
	if req.Hints == nil {
		req.Hints = map[string]dbus.Variant{}
	}
	var id uint32
	err := c.notifications.Call(NotificationsInterface+".Notify", 0,
		req.AppName, req.ReplacesID, req.AppIcon, req.Summary, req.Body,
		req.Actions, req.Hints, req.ExpireTimeout).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("notify call failed: %w", err)
	}
	return id, nil
}

// CloseNotification asks the daemon to close a notification.
func (c *Client) CloseNotification(id uint32) error {
	return c.notifications.Call(NotificationsInterface+".CloseNotification", 0, id).Err
}

// Suspend stops the daemon from displaying new notifications.
func (c *Client) Suspend() error {
	return c.control.Call(ControlInterface+".Suspend", 0).Err
}

// Resume re-enables notification display.
func (c *Client) Resume() error {
	return c.control.Call(ControlInterface+".Resume", 0).Err
}

// Toggle flips suspension and returns the new state.
func (c *Client) Toggle() (bool, error) {
	var suspended bool
	err := c.control.Call(ControlInterface+".Toggle", 0).Store(&suspended)
	return suspended, err
}

// IsSuspended reports the daemon's suspension state.
func (c *Client) IsSuspended() (bool, error) {
	var suspended bool
	err := c.control.Call(ControlInterface+".IsSuspended", 0).Store(&suspended)
	return suspended, err
}

// CloseAll dismisses every notification, returning how many went away.
func (c *Client) CloseAll() (uint32, error) {
	var count uint32
	err := c.control.Call(ControlInterface+".CloseAll", 0).Store(&count)
	return count, err
}

// Dismiss closes one notification, reporting whether it existed.
func (c *Client) Dismiss(id uint32) (bool, error) {
	var found bool
	err := c.control.Call(ControlInterface+".Dismiss", 0, id).Store(&found)
	return found, err
}

// ResetTimeout restarts a notification's expiry timer.
func (c *Client) ResetTimeout(id uint32, d time.Duration) (bool, error) {
	var found bool
	err := c.control.Call(ControlInterface+".ResetTimeout", 0, id, d.Milliseconds()).Store(&found)
	return found, err
}

// ReplaceText swaps a notification's title and body in place.
func (c *Client) ReplaceText(id uint32, summary, body string) (bool, error) {
	var found bool
	err := c.control.Call(ControlInterface+".ReplaceText", 0, id, summary, body).Store(&found)
	return found, err
}

// ActiveCount returns the number of live notifications.
func (c *Client) ActiveCount() (uint32, error) {
	var count uint32
	err := c.control.Call(ControlInterface+".ActiveCount", 0).Store(&count)
	return count, err
}

// GetLayout returns the active keyboard layout group.
func (c *Client) GetLayout() (byte, error) {
	var group byte
	err := c.control.Call(ControlInterface+".GetLayout", 0).Store(&group)
	return group, err
}

// SetLayout switches the active keyboard layout group (0-3).
func (c *Client) SetLayout(group byte) error {
	return c.control.Call(ControlInterface+".SetLayout", 0, group).Err
}

// GetGroupNames returns the symbolic layout name string.
func (c *Client) GetGroupNames() (string, error) {
	var names string
	err := c.control.Call(ControlInterface+".GetGroupNames", 0).Store(&names)
	return names, err
}
