package dbus

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/wmkit/wmkit/internal/notify"
)

// Notifier is the slice of the popup manager the control interface needs.
type Notifier interface {
	Suspend()
	Resume()
	Toggle() bool
	IsSuspended() bool
	CloseAll(reason notify.Reason) int
	DestroyByID(id uint32, reason notify.Reason) bool
	ResetTimeout(id uint32, d time.Duration) bool
	ReplaceText(id uint32, title, body string) bool
	ActiveCount() int
}

// Keyboard is the slice of the layout bridge the control interface needs.
type Keyboard interface {
	Layout() (uint8, error)
	SetLayout(group uint8) error
	GroupNames() (string, error)
}

// ControlServer implements org.wmkit.Control1: suspension, dismissal and
// keyboard layout control for wmkit clients.
type ControlServer struct {
	conn     *dbus.Conn
	logger   *slog.Logger
	notifier Notifier
	keyboard Keyboard // nil when the keyboard bridge is disabled
}

// NewControlServer creates a control server over the given manager and
// keyboard bridge. keyboard may be nil.
func NewControlServer(notifier Notifier, keyboard Keyboard, logger *slog.Logger) *ControlServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ControlServer{
		logger:   logger,
		notifier: notifier,
		keyboard: keyboard,
	}
}

// Start exports the control interface on conn and claims the control bus
// name.
func (s *ControlServer) Start(conn *dbus.Conn) error {
	s.conn = conn

	if err := conn.Export(s, ControlPath, ControlInterface); err != nil {
		return fmt.Errorf("failed to export control object: %w", err)
	}

	node := &introspect.Node{
		Name: ControlPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    ControlInterface,
				Methods: controlMethods(),
				Signals: controlSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ControlPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export control introspectable: %w", err)
	}

	reply, err := conn.RequestName(ControlBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request control bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", ControlBusName)
	}

	s.logger.Info("control service started", "interface", ControlInterface, "path", ControlPath)
	return nil
}

// Stop releases the control bus name.
func (s *ControlServer) Stop() error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.ReleaseName(ControlBusName); err != nil {
		s.logger.Warn("failed to release control bus name", "error", err)
	}
	return nil
}

// Suspend stops new notifications from displaying.
func (s *ControlServer) Suspend() *dbus.Error {
	s.notifier.Suspend()
	return nil
}

// Resume re-enables notification display.
func (s *ControlServer) Resume() *dbus.Error {
	s.notifier.Resume()
	return nil
}

// Toggle flips the suspended state and returns the new value.
func (s *ControlServer) Toggle() (bool, *dbus.Error) {
	return s.notifier.Toggle(), nil
}

// IsSuspended reports the current suspension state.
func (s *ControlServer) IsSuspended() (bool, *dbus.Error) {
	return s.notifier.IsSuspended(), nil
}

// CloseAll dismisses every notification and returns how many went away.
func (s *ControlServer) CloseAll() (uint32, *dbus.Error) {
	return uint32(s.notifier.CloseAll(notify.ReasonClosed)), nil
}

// Dismiss closes one notification as if the user clicked it away.
func (s *ControlServer) Dismiss(id uint32) (bool, *dbus.Error) {
	return s.notifier.DestroyByID(id, notify.ReasonDismissed), nil
}

// ResetTimeout restarts a notification's expiry timer. A positive
// timeoutMS becomes the new timeout; zero restarts the current one.
func (s *ControlServer) ResetTimeout(id uint32, timeoutMS int64) (bool, *dbus.Error) {
	if timeoutMS < 0 {
		return false, dbus.MakeFailedError(fmt.Errorf("timeout must not be negative"))
	}
	return s.notifier.ResetTimeout(id, time.Duration(timeoutMS)*time.Millisecond), nil
}

// ReplaceText swaps a notification's title and body in place.
func (s *ControlServer) ReplaceText(id uint32, summary, body string) (bool, *dbus.Error) {
	return s.notifier.ReplaceText(id, summary, body), nil
}

// ActiveCount returns the number of live notifications.
func (s *ControlServer) ActiveCount() (uint32, *dbus.Error) {
	return uint32(s.notifier.ActiveCount()), nil
}

// GetLayout returns the active keyboard layout group.
func (s *ControlServer) GetLayout() (byte, *dbus.Error) {
	if s.keyboard == nil {
		return 0, dbus.MakeFailedError(fmt.Errorf("keyboard bridge disabled"))
	}
	group, err := s.keyboard.Layout()
	if err != nil {
		return 0, dbus.MakeFailedError(err)
	}
	return group, nil
}

// SetLayout switches the active keyboard layout group (0-3).
func (s *ControlServer) SetLayout(group byte) *dbus.Error {
	if s.keyboard == nil {
		return dbus.MakeFailedError(fmt.Errorf("keyboard bridge disabled"))
	}
	if err := s.keyboard.SetLayout(group); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// GetGroupNames returns the symbolic layout name string.
func (s *ControlServer) GetGroupNames() (string, *dbus.Error) {
	if s.keyboard == nil {
		return "", dbus.MakeFailedError(fmt.Errorf("keyboard bridge disabled"))
	}
	names, err := s.keyboard.GroupNames()
	if err != nil {
		return "", dbus.MakeFailedError(err)
	}
	return names, nil
}

// EmitGroupChanged emits the GroupChanged signal with the new layout group.
func (s *ControlServer) EmitGroupChanged(group uint8) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}
	return s.conn.Emit(ControlPath, ControlInterface+".GroupChanged", group)
}

// EmitMapChanged emits the MapChanged signal after a keymap change.
func (s *ControlServer) EmitMapChanged() error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}
	return s.conn.Emit(ControlPath, ControlInterface+".MapChanged")
}

func controlMethods() []introspect.Method {
	return []introspect.Method{
		{Name: "Suspend"},
		{Name: "Resume"},
		{Name: "Toggle", Args: []introspect.Arg{
			{Name: "suspended", Type: "b", Direction: "out"},
		}},
		{Name: "IsSuspended", Args: []introspect.Arg{
			{Name: "suspended", Type: "b", Direction: "out"},
		}},
		{Name: "CloseAll", Args: []introspect.Arg{
			{Name: "count", Type: "u", Direction: "out"},
		}},
		{Name: "Dismiss", Args: []introspect.Arg{
			{Name: "id", Type: "u", Direction: "in"},
			{Name: "found", Type: "b", Direction: "out"},
		}},
		{Name: "ResetTimeout", Args: []introspect.Arg{
			{Name: "id", Type: "u", Direction: "in"},
			{Name: "timeout_ms", Type: "x", Direction: "in"},
			{Name: "found", Type: "b", Direction: "out"},
		}},
		{Name: "ReplaceText", Args: []introspect.Arg{
			{Name: "id", Type: "u", Direction: "in"},
			{Name: "summary", Type: "s", Direction: "in"},
			{Name: "body", Type: "s", Direction: "in"},
			{Name: "found", Type: "b", Direction: "out"},
		}},
		{Name: "ActiveCount", Args: []introspect.Arg{
			{Name: "count", Type: "u", Direction: "out"},
		}},
		{Name: "GetLayout", Args: []introspect.Arg{
			{Name: "group", Type: "y", Direction: "out"},
		}},
		{Name: "SetLayout", Args: []introspect.Arg{
			{Name: "group", Type: "y", Direction: "in"},
		}},
		{Name: "GetGroupNames", Args: []introspect.Arg{
			{Name: "names", Type: "s", Direction: "out"},
		}},
	}
}

func controlSignals() []introspect.Signal {
	return []introspect.Signal{
		{Name: "GroupChanged", Args: []introspect.Arg{
			{Name: "group", Type: "y"},
		}},
		{Name: "MapChanged"},
	}
}
