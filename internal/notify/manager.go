package notify

import (
	"fmt"
	"image"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wmkit/wmkit/internal/config"
	"github.com/wmkit/wmkit/internal/icon"
	"github.com/wmkit/wmkit/internal/markup"
	"github.com/wmkit/wmkit/internal/render"
)

// Manager owns every notification registry: the per-screen per-corner
// stacks, the suspended list and the id index. All methods are safe for
// concurrent use.
type Manager struct {
	mu        sync.Mutex
	cfg       *config.Config
	backend   Backend
	renderer  Renderer
	logger    *slog.Logger
	lists     map[listKey][]*Notification
	queue     []*Notification // created while suspended, shown on resume
	byID      map[uint32]*Notification
	byWindow  map[uint32]*Notification
	nextID    uint32
	suspended bool

	filter    func(*Args) bool
	onClosed  func(id uint32, reason Reason)
	playSound func(path string)

	// newTimer is swapped out in tests to observe timer behavior.
	newTimer func(d time.Duration, f func()) *time.Timer
}

// NewManager creates a notification manager over the given backend and
// renderer.
func NewManager(cfg *config.Config, backend Backend, renderer Renderer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:      cfg,
		backend:  backend,
		renderer: renderer,
		logger:   logger,
		lists:    make(map[listKey][]*Notification),
		byID:     make(map[uint32]*Notification),
		byWindow: make(map[uint32]*Notification),
		newTimer: time.AfterFunc,
	}
}

// SetClosedHandler registers the callback invoked whenever a notification
// is destroyed with a non-silent reason. The handler runs with the
// manager's lock held and must not call back into the manager.
func (m *Manager) SetClosedHandler(fn func(id uint32, reason Reason)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClosed = fn
}

// SetSoundPlayer registers the callback used to play notification sounds.
func (m *Manager) SetSoundPlayer(fn func(path string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playSound = fn
}

// SetFilter registers a callback consulted before every notify request.
// It may mutate the arguments; returning false vetoes the notification.
func (m *Manager) SetFilter(fn func(*Args) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter = fn
}

// UpdateConfig swaps the configuration. Existing popups keep their
// resolved style; new notifications pick up the change.
func (m *Manager) UpdateConfig(cfg *config.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
}

// Notify creates a notification from args and returns its id. A zero id
// with a nil error means the request was vetoed by the filter.
func (m *Manager) Notify(args Args) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.filter != nil && !m.filter(&args) {
		return 0, nil
	}

	style := m.cfg.Resolve(args.Preset)
	applyOverrides(&style, args)

	text, tier := markup.Resolve(args.Body)
	if tier == markup.TierError {
		m.logger.Warn("notification body unusable, using error text", "app", args.AppName)
	}

	pos := config.Position(m.cfg.Display.Position)
	if args.Position != nil {
		pos = *args.Position
	}
	screen := m.cfg.Display.Monitor
	if args.Screen != nil {
		screen = *args.Screen
	}
	if screen < 0 {
		s, err := m.backend.ScreenForPointer()
		if err != nil {
			m.logger.Warn("pointer screen lookup failed", "error", err)
			s = 0
		}
		screen = s
	}

	// Replacing an existing id destroys the old popup without telling
	// anyone, and the new one takes over the id. The counter must not
	// hand out an adopted id a second time.
	id := args.ReplacesID
	if id != 0 {
		if old, ok := m.byID[id]; ok {
			key := old.key()
			m.destroyLocked(old)
			m.arrangeLocked(key)
		}
		if id > m.nextID {
			m.nextID = id
		}
	} else {
		m.nextID++
		id = m.nextID
	}

	n := &Notification{
		ID:        id,
		UID:       ulid.Make(),
		AppName:   args.AppName,
		Title:     args.Title,
		Body:      args.Body,
		Text:      text,
		Tier:      tier,
		Preset:    args.Preset,
		Screen:    screen,
		Position:  pos,
		Timeout:   style.Timeout.Duration(),
		CreatedAt: time.Now(),
		style:     style,
		icon:      m.loadIcon(args, style),
		onDestroy: args.OnDestroy,
		onRun:     args.OnRun,
	}

	if err := m.materializeLocked(n, args.Width, args.Height); err != nil {
		return 0, err
	}
	m.byID[id] = n

	if m.suspended {
		n.queued = true
		m.queue = append(m.queue, n)
		return id, nil
	}

	m.attachLocked(n)
	m.soundLocked(n, args.SuppressSound)
	return id, nil
}

// applyOverrides merges explicit request fields over the resolved preset.
func applyOverrides(style *config.Style, args Args) {
	if args.Timeout != nil {
		style.Timeout = config.Duration(*args.Timeout)
	}
	if args.FontSize != nil {
		style.FontSize = *args.FontSize
	}
	if args.Foreground != "" {
		style.Foreground = args.Foreground
	}
	if args.Background != "" {
		style.Background = args.Background
	}
	if args.BorderColor != "" {
		style.BorderColor = args.BorderColor
	}
}

// loadIcon resolves the request icon, scaled per style. Failures are
// logged and the icon dropped; a broken icon never blocks the popup.
func (m *Manager) loadIcon(args Args, style config.Style) *image.RGBA {
	if args.IconImage != nil {
		return icon.Scale(args.IconImage, style.IconSize, style.MinIconSize)
	}
	if args.IconPath == "" {
		return nil
	}
	img, err := icon.Load(args.IconPath, style.IconSize, style.MinIconSize)
	if err != nil {
		m.logger.Warn("failed to load notification icon", "path", args.IconPath, "error", err)
		return nil
	}
	return img
}

// materializeLocked measures, clamps, renders and uploads n's content,
// creating the (hidden) surface on first call.
func (m *Manager) materializeLocked(n *Notification, wOverride, hOverride *int) error {
	wa, err := m.backend.Workarea(n.Screen)
	if err != nil {
		return fmt.Errorf("workarea for screen %d: %w", n.Screen, err)
	}

	pad := m.cfg.Display.Padding
	b := n.style.BorderWidth
	maxW := wa.Width - 2*b - 2*pad
	maxH := wa.Height - 2*b - 2*pad
	if n.style.MaxWidth > 0 && n.style.MaxWidth < maxW {
		maxW = n.style.MaxWidth
	}
	if n.style.MaxHeight > 0 && n.style.MaxHeight < maxH {
		maxH = n.style.MaxHeight
	}

	content := m.contentLocked(n)
	maxText := maxW - 2*n.style.Padding
	if n.icon != nil {
		maxText -= n.icon.Bounds().Dx() + n.style.Padding
	}

	w, h := m.renderer.Measure(content, maxText)
	if wOverride != nil {
		w = *wOverride
	}
	if hOverride != nil {
		h = *hOverride
	}
	w = max(1, min(w, maxW))
	h = max(1, min(h, maxH))
	n.Width, n.Height = w, h

	img := m.renderer.Render(content, w, h)

	if n.surface == nil {
		bg, _ := render.ParseColor(n.style.Background)
		bc, _ := render.ParseColor(n.style.BorderColor)
		surf, err := m.backend.CreateSurface(SurfaceOptions{
			X:           n.X,
			Y:           n.Y,
			Width:       w,
			Height:      h,
			BorderWidth: b,
			Background:  bg,
			Border:      bc,
		})
		if err != nil {
			return fmt.Errorf("create popup surface: %w", err)
		}
		n.surface = surf
		m.byWindow[surf.Window()] = n
	}
	n.surface.Update(img)
	return nil
}

func (m *Manager) contentLocked(n *Notification) render.Content {
	fg, _ := render.ParseColor(n.style.Foreground)
	bg, _ := render.ParseColor(n.style.Background)
	return render.Content{
		Title:      n.Title,
		Body:       n.Text,
		Icon:       n.icon,
		Foreground: fg,
		Background: bg,
		FontSize:   n.style.FontSize,
		Padding:    n.style.Padding,
	}
}

// attachLocked inserts n into its stack, positions everything, shows the
// surface and arms the expiry timer.
func (m *Manager) attachLocked(n *Notification) {
	key := n.key()
	m.lists[key] = append(m.lists[key], n)
	m.arrangeLocked(key)
	n.surface.Show()
	m.startTimerLocked(n, n.Timeout)
}

// startTimerLocked replaces n's expiry timer. A non-positive duration
// stops expiry entirely.
func (m *Manager) startTimerLocked(n *Notification, d time.Duration) {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	if d <= 0 {
		return
	}
	n.timer = m.newTimer(d, func() { m.expire(n) })
}

// expire is the timer callback. The pointer comparison guards against the
// id having been reused since the timer was armed.
func (m *Manager) expire(n *Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byID[n.ID] != n {
		return
	}
	key := n.key()
	m.destroyLocked(n)
	m.arrangeLocked(key)
	m.notifyClosedLocked(n, ReasonExpired)
}

// destroyLocked tears n down. Sibling re-arrangement and the closed
// notifications belong to the caller, in that order: observers of the
// closed callbacks must see the surviving stack already repositioned.
func (m *Manager) destroyLocked(n *Notification) {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	if n.surface != nil {
		delete(m.byWindow, n.surface.Window())
		n.surface.Hide()
		n.surface.Destroy()
		n.surface = nil
	}
	delete(m.byID, n.ID)
	m.removeFromListLocked(n)
}

// notifyClosedLocked fires the per-notification and manager-level closed
// callbacks for an already destroyed n. Silent destroys tell no one.
func (m *Manager) notifyClosedLocked(n *Notification, reason Reason) {
	if reason == ReasonSilent {
		return
	}
	if n.onDestroy != nil {
		n.onDestroy(reason)
	}
	if m.onClosed != nil {
		m.onClosed(n.ID, reason)
	}
}

func (m *Manager) removeFromListLocked(n *Notification) {
	if n.queued {
		for i, q := range m.queue {
			if q == n {
				m.queue = append(m.queue[:i], m.queue[i+1:]...)
				break
			}
		}
		return
	}
	key := n.key()
	list := m.lists[key]
	for i, e := range list {
		if e == n {
			m.lists[key] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

func (m *Manager) soundLocked(n *Notification, suppress bool) {
	if suppress || !m.cfg.Audio.Enabled || n.style.Sound == "" || m.playSound == nil {
		return
	}
	m.playSound(n.style.Sound)
}

// DestroyByID destroys a notification with the given reason. Returns
// false if the id is unknown.
func (m *Manager) DestroyByID(id uint32, reason Reason) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.byID[id]
	if !ok {
		return false
	}
	key := n.key()
	m.destroyLocked(n)
	m.arrangeLocked(key)
	m.notifyClosedLocked(n, reason)
	return true
}

// GetByID returns a snapshot of the notification with the given id.
func (m *Manager) GetByID(id uint32) (Notification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.byID[id]
	if !ok {
		return Notification{}, false
	}
	return *n, true
}

// Active returns snapshots of every live notification, queued ones
// included, ordered by creation.
func (m *Manager) Active() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Notification, 0, len(m.byID))
	for _, n := range m.byID {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID.Compare(out[j].UID) < 0 })
	return out
}

// ActiveCount returns the number of live notifications.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// ResetTimeout restarts a notification's expiry timer. A positive d
// becomes the new timeout; zero restarts the existing one.
func (m *Manager) ResetTimeout(id uint32, d time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.byID[id]
	if !ok {
		return false
	}
	if d > 0 {
		n.Timeout = d
	}
	if !n.queued {
		m.startTimerLocked(n, n.Timeout)
	}
	return true
}

// ReplaceText swaps a notification's title and body in place, re-running
// markup resolution, re-rendering the surface and restarting the timer.
func (m *Manager) ReplaceText(id uint32, title, body string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.byID[id]
	if !ok {
		return false
	}

	n.Title = title
	n.Body = body
	n.Text, n.Tier = markup.Resolve(body)

	if err := m.materializeLocked(n, nil, nil); err != nil {
		m.logger.Warn("failed to re-render notification", "id", id, "error", err)
		return false
	}
	if !n.queued {
		m.startTimerLocked(n, n.Timeout)
		m.arrangeLocked(n.key())
	}
	return true
}

// CloseAll destroys every live notification with the given reason and
// returns how many went away.
func (m *Manager) CloseAll(reason Reason) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for len(m.byID) > 0 {
		for _, n := range m.byID {
			key := n.key()
			m.destroyLocked(n)
			m.arrangeLocked(key)
			m.notifyClosedLocked(n, reason)
			count++
			break
		}
	}
	return count
}

// Suspend stops new notifications from displaying. Popups already on
// screen are left alone.
func (m *Manager) Suspend() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended = true
}

// Resume re-enables display and shows everything that queued up while
// suspended, restarting each timer from its full duration.
func (m *Manager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumeLocked()
}

func (m *Manager) resumeLocked() {
	m.suspended = false
	queued := m.queue
	m.queue = nil
	for _, n := range queued {
		n.queued = false
		m.attachLocked(n)
	}
}

// Toggle flips the suspended state and reports the new value.
func (m *Manager) Toggle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.suspended {
		m.resumeLocked()
	} else {
		m.suspended = true
	}
	return m.suspended
}

// IsSuspended reports whether display is currently suspended.
func (m *Manager) IsSuspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspended
}

// HandleEnter processes a pointer entering a popup window. The running
// expiry timer is cancelled and the hover timeout takes over; a zero
// hover timeout destroys the popup immediately.
func (m *Manager) HandleEnter(window uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.byWindow[window]
	if !ok {
		return
	}
	n.hovered = true
	hover := n.style.HoverTimeout.Duration()
	if hover <= 0 {
		key := n.key()
		m.destroyLocked(n)
		m.arrangeLocked(key)
		m.notifyClosedLocked(n, ReasonExpired)
		return
	}
	m.startTimerLocked(n, hover)
}

// HandleLeave processes the pointer leaving a popup window, restarting
// the normal expiry timer.
func (m *Manager) HandleLeave(window uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.byWindow[window]
	if !ok || !n.hovered {
		return
	}
	n.hovered = false
	m.startTimerLocked(n, n.Timeout)
}

// HandleClick processes a button press on a popup window. Button 1 runs
// the notification's action first; any button dismisses.
func (m *Manager) HandleClick(window uint32, button byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.byWindow[window]
	if !ok {
		return
	}
	if button == 1 && n.onRun != nil {
		n.onRun()
	}
	key := n.key()
	m.destroyLocked(n)
	m.arrangeLocked(key)
	m.notifyClosedLocked(n, ReasonDismissed)
}
