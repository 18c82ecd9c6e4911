package notify

import (
	"fmt"
	"image"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmkit/wmkit/internal/config"
	"github.com/wmkit/wmkit/internal/markup"
	"github.com/wmkit/wmkit/internal/render"
	"github.com/wmkit/wmkit/internal/tile"
)

type fakeSurface struct {
	window    uint32
	x, y      int
	shown     bool
	destroyed bool
	updates   int
}

func (s *fakeSurface) Window() uint32         { return s.window }
func (s *fakeSurface) Move(x, y int)          { s.x, s.y = x, y }
func (s *fakeSurface) Show()                  { s.shown = true }
func (s *fakeSurface) Hide()                  { s.shown = false }
func (s *fakeSurface) Update(img *image.RGBA) { s.updates++ }
func (s *fakeSurface) Destroy()               { s.destroyed = true }

type fakeBackend struct {
	workarea   tile.Rect
	pointerScr int
	nextWindow uint32
	surfaces   []*fakeSurface
	createErr  error
}

func (b *fakeBackend) ScreenForPointer() (int, error) { return b.pointerScr, nil }

func (b *fakeBackend) Workarea(screen int) (tile.Rect, error) {
	if b.workarea.Empty() {
		return tile.Rect{}, fmt.Errorf("no such screen %d", screen)
	}
	return b.workarea, nil
}

func (b *fakeBackend) CreateSurface(opts SurfaceOptions) (Surface, error) {
	if b.createErr != nil {
		return nil, b.createErr
	}
	b.nextWindow++
	s := &fakeSurface{window: b.nextWindow, x: opts.X, y: opts.Y}
	b.surfaces = append(b.surfaces, s)
	return s, nil
}

// fakeRenderer reports a fixed content size regardless of input.
type fakeRenderer struct {
	w, h int
}

func (r *fakeRenderer) Measure(c render.Content, maxTextWidth int) (int, int) {
	return r.w, r.h
}

func (r *fakeRenderer) Render(c render.Content, width, height int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

type testEnv struct {
	m       *Manager
	backend *fakeBackend
	cfg     *config.Config
	timers  *[]time.Duration
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Display.Padding = 4
	cfg.Display.Spacing = 2
	cfg.Display.Monitor = 0

	backend := &fakeBackend{workarea: tile.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}}
	m := NewManager(cfg, backend, &fakeRenderer{w: 200, h: 50}, slog.Default())

	var timers []time.Duration
	m.newTimer = func(d time.Duration, f func()) *time.Timer {
		timers = append(timers, d)
		// Never fires on its own; tests drive expiry explicitly.
		return time.AfterFunc(time.Hour, f)
	}
	return &testEnv{m: m, backend: backend, cfg: cfg, timers: &timers}
}

func (e *testEnv) notify(t *testing.T, args Args) uint32 {
	t.Helper()
	id, err := e.m.Notify(args)
	require.NoError(t, err)
	require.NotZero(t, id)
	return id
}

func TestNotifyAssignsAscendingIDs(t *testing.T) {
	e := newTestEnv(t)

	a := e.notify(t, Args{Title: "a"})
	b := e.notify(t, Args{Title: "b"})
	c := e.notify(t, Args{Title: "c"})

	assert.Less(t, a, b)
	assert.Less(t, b, c)
	assert.Equal(t, 3, e.m.ActiveCount())
}

func TestReplaceDestroysSilentlyAndReusesID(t *testing.T) {
	e := newTestEnv(t)

	var closed []Reason
	var destroyed []Reason
	e.m.SetClosedHandler(func(id uint32, r Reason) { closed = append(closed, r) })

	id := e.notify(t, Args{Title: "first", OnDestroy: func(r Reason) { destroyed = append(destroyed, r) }})
	newID := e.notify(t, Args{ReplacesID: id, Title: "second"})

	assert.Equal(t, id, newID)
	assert.Empty(t, closed, "replacement must not fire the closed handler")
	assert.Empty(t, destroyed, "replacement must not fire the destroy callback")
	assert.True(t, e.backend.surfaces[0].destroyed)

	n, ok := e.m.GetByID(id)
	require.True(t, ok)
	assert.Equal(t, "second", n.Title)
	assert.Equal(t, 1, e.m.ActiveCount())
}

func TestReplaceUnknownIDAdvancesCounter(t *testing.T) {
	e := newTestEnv(t)

	// A replaces-id with no live match is adopted as-is; the counter must
	// skip past it so the id is never handed out a second time.
	adopted := e.notify(t, Args{ReplacesID: 7, Title: "adopted"})
	assert.Equal(t, uint32(7), adopted)

	fresh := e.notify(t, Args{Title: "fresh"})
	assert.Equal(t, uint32(8), fresh)

	n, ok := e.m.GetByID(adopted)
	require.True(t, ok)
	assert.Equal(t, "adopted", n.Title)
	assert.Equal(t, 2, e.m.ActiveCount())
}

func TestNotifyResolvesMarkup(t *testing.T) {
	e := newTestEnv(t)

	id := e.notify(t, Args{Body: "5 < 6 and <b>unclosed"})
	n, _ := e.m.GetByID(id)

	assert.Equal(t, markup.TierEscaped, n.Tier)
	assert.Equal(t, "5 &lt; 6 and &lt;b&gt;unclosed", n.Text)
}

func TestSizeClampedToWorkarea(t *testing.T) {
	e := newTestEnv(t)
	e.backend.workarea = tile.Rect{Width: 300, Height: 200}
	e.cfg.Defaults.BorderWidth = 2
	e.cfg.Defaults.MaxWidth = 0
	e.cfg.Defaults.MaxHeight = 0
	e.m.renderer = &fakeRenderer{w: 1000, h: 1000}

	id := e.notify(t, Args{Title: "huge"})
	n, _ := e.m.GetByID(id)

	// workarea minus twice the border and twice the edge padding
	assert.Equal(t, 300-2*2-2*4, n.Width)
	assert.Equal(t, 200-2*2-2*4, n.Height)
}

func TestStackingOffsetsTopRight(t *testing.T) {
	e := newTestEnv(t)

	a := e.notify(t, Args{Title: "a"})
	b := e.notify(t, Args{Title: "b"})

	na, _ := e.m.GetByID(a)
	nb, _ := e.m.GetByID(b)

	// Right-flush: workarea width minus outer width minus padding.
	border := e.cfg.Defaults.BorderWidth
	assert.Equal(t, 1920-(200+2*border)-4, na.X)
	assert.Equal(t, 4, na.Y)
	// The newer popup stacks below, one outer height plus spacing down.
	assert.Equal(t, na.Y+(50+2*border)+2, nb.Y)
}

func TestStackingOffsetsBottomLeft(t *testing.T) {
	e := newTestEnv(t)
	pos := config.PositionBottomLeft

	a := e.notify(t, Args{Title: "a", Position: &pos})
	b := e.notify(t, Args{Title: "b", Position: &pos})

	na, _ := e.m.GetByID(a)
	nb, _ := e.m.GetByID(b)
	border := e.cfg.Defaults.BorderWidth
	outerH := 50 + 2*border

	assert.Equal(t, 4, na.X)
	assert.Equal(t, 1080-4-outerH, na.Y)
	assert.Equal(t, na.Y-outerH-2, nb.Y)
}

func TestStackingOffsetsMiddleCentered(t *testing.T) {
	e := newTestEnv(t)
	pos := config.PositionTopMiddle

	id := e.notify(t, Args{Title: "a", Position: &pos})
	n, _ := e.m.GetByID(id)

	border := e.cfg.Defaults.BorderWidth
	assert.Equal(t, (1920-(200+2*border))/2, n.X)
}

func TestOverflowEvictsOldest(t *testing.T) {
	e := newTestEnv(t)
	// Room for two popups (2*52 + spacing = 106 <= 112) but not three.
	e.backend.workarea = tile.Rect{Width: 500, Height: 120}
	e.cfg.Defaults.BorderWidth = 1

	var closed []uint32
	var reasons []Reason
	e.m.SetClosedHandler(func(id uint32, r Reason) {
		closed = append(closed, id)
		reasons = append(reasons, r)
	})

	a := e.notify(t, Args{Title: "a"})
	b := e.notify(t, Args{Title: "b"})
	c := e.notify(t, Args{Title: "c"})

	assert.Equal(t, []uint32{a}, closed)
	assert.Equal(t, []Reason{ReasonExpired}, reasons)
	assert.Equal(t, 2, e.m.ActiveCount())

	// Survivors were re-stacked from the top edge.
	nb, _ := e.m.GetByID(b)
	nc, _ := e.m.GetByID(c)
	assert.Equal(t, 4, nb.Y)
	assert.Greater(t, nc.Y, nb.Y)
}

func TestSingleOversizedPopupIsNotEvicted(t *testing.T) {
	e := newTestEnv(t)
	e.backend.workarea = tile.Rect{Width: 500, Height: 60}

	id := e.notify(t, Args{Title: "tall"})
	assert.Equal(t, 1, e.m.ActiveCount())

	n, _ := e.m.GetByID(id)
	assert.LessOrEqual(t, n.Height, 60)
}

func TestSuspendQueuesAndResumeShows(t *testing.T) {
	e := newTestEnv(t)
	e.m.Suspend()
	assert.True(t, e.m.IsSuspended())

	id := e.notify(t, Args{Title: "queued"})
	require.Len(t, e.backend.surfaces, 1)
	assert.False(t, e.backend.surfaces[0].shown, "queued popup must stay invisible")
	assert.Empty(t, *e.timers, "queued popup must not arm a timer")
	assert.Equal(t, 1, e.m.ActiveCount())

	e.m.Resume()
	assert.False(t, e.m.IsSuspended())
	assert.True(t, e.backend.surfaces[0].shown)
	require.Len(t, *e.timers, 1)
	assert.Equal(t, e.cfg.Defaults.Timeout.Duration(), (*e.timers)[0])

	n, ok := e.m.GetByID(id)
	require.True(t, ok)
	assert.NotZero(t, n.Y)
}

func TestToggleFlipsSuspension(t *testing.T) {
	e := newTestEnv(t)

	assert.True(t, e.m.Toggle())
	assert.True(t, e.m.IsSuspended())
	assert.False(t, e.m.Toggle())
	assert.False(t, e.m.IsSuspended())
}

func TestZeroTimeoutNeverExpires(t *testing.T) {
	e := newTestEnv(t)

	zero := time.Duration(0)
	e.notify(t, Args{Title: "sticky", Timeout: &zero})
	assert.Empty(t, *e.timers)
}

func TestPresetTimeoutApplies(t *testing.T) {
	e := newTestEnv(t)

	e.notify(t, Args{Title: "quick", Preset: "low"})
	require.Len(t, *e.timers, 1)
	assert.Equal(t, 5*time.Second, (*e.timers)[0])

	e.notify(t, Args{Title: "stays", Preset: "critical"})
	assert.Len(t, *e.timers, 1, "critical preset must not arm a timer")
}

func TestExpiryDestroysWithExpiredReason(t *testing.T) {
	e := newTestEnv(t)

	var gotID uint32
	var gotReason Reason
	e.m.SetClosedHandler(func(id uint32, r Reason) { gotID, gotReason = id, r })

	id := e.notify(t, Args{Title: "a"})
	n := e.m.byID[id]
	e.m.expire(n)

	assert.Equal(t, id, gotID)
	assert.Equal(t, ReasonExpired, gotReason)
	assert.Zero(t, e.m.ActiveCount())
}

func TestExpireIgnoresReusedID(t *testing.T) {
	e := newTestEnv(t)

	id := e.notify(t, Args{Title: "old"})
	stale := e.m.byID[id]
	e.notify(t, Args{ReplacesID: id, Title: "new"})

	e.m.expire(stale)
	assert.Equal(t, 1, e.m.ActiveCount(), "stale timer must not destroy the replacement")
}

func TestHoverSwitchesToHoverTimeout(t *testing.T) {
	e := newTestEnv(t)
	e.cfg.Defaults.HoverTimeout = config.Duration(3 * time.Second)

	id := e.notify(t, Args{Title: "a"})
	n, _ := e.m.GetByID(id)
	win := e.backend.surfaces[0].window

	e.m.HandleEnter(win)
	require.Len(t, *e.timers, 2)
	assert.Equal(t, 3*time.Second, (*e.timers)[1])

	e.m.HandleLeave(win)
	require.Len(t, *e.timers, 3)
	assert.Equal(t, n.Timeout, (*e.timers)[2])
}

func TestHoverZeroDestroysImmediately(t *testing.T) {
	e := newTestEnv(t)
	e.cfg.Defaults.HoverTimeout = 0

	e.notify(t, Args{Title: "a"})
	e.m.HandleEnter(e.backend.surfaces[0].window)

	assert.Zero(t, e.m.ActiveCount())
	assert.True(t, e.backend.surfaces[0].destroyed)
}

func TestClickRunsActionAndDismisses(t *testing.T) {
	e := newTestEnv(t)

	ran := false
	var reason Reason
	e.notify(t, Args{
		Title:     "a",
		OnRun:     func() { ran = true },
		OnDestroy: func(r Reason) { reason = r },
	})

	e.m.HandleClick(e.backend.surfaces[0].window, 1)
	assert.True(t, ran)
	assert.Equal(t, ReasonDismissed, reason)
	assert.Zero(t, e.m.ActiveCount())
}

func TestRightClickDismissesWithoutAction(t *testing.T) {
	e := newTestEnv(t)

	ran := false
	e.notify(t, Args{Title: "a", OnRun: func() { ran = true }})

	e.m.HandleClick(e.backend.surfaces[0].window, 3)
	assert.False(t, ran)
	assert.Zero(t, e.m.ActiveCount())
}

func TestResetTimeout(t *testing.T) {
	e := newTestEnv(t)

	id := e.notify(t, Args{Title: "a"})
	require.Len(t, *e.timers, 1)

	// A positive duration becomes the new timeout.
	assert.True(t, e.m.ResetTimeout(id, 30*time.Second))
	require.Len(t, *e.timers, 2)
	assert.Equal(t, 30*time.Second, (*e.timers)[1])

	// Zero restarts the current timeout.
	assert.True(t, e.m.ResetTimeout(id, 0))
	require.Len(t, *e.timers, 3)
	assert.Equal(t, 30*time.Second, (*e.timers)[2])

	assert.False(t, e.m.ResetTimeout(999, time.Second))
}

func TestReplaceText(t *testing.T) {
	e := newTestEnv(t)

	id := e.notify(t, Args{Title: "before", Body: "old"})
	surf := e.backend.surfaces[0]
	updatesBefore := surf.updates
	timersBefore := len(*e.timers)

	assert.True(t, e.m.ReplaceText(id, "after", "new <b>body</b>"))

	n, _ := e.m.GetByID(id)
	assert.Equal(t, "after", n.Title)
	assert.Equal(t, "new <b>body</b>", n.Text)
	assert.Equal(t, markup.TierRich, n.Tier)
	assert.Greater(t, surf.updates, updatesBefore)
	assert.Greater(t, len(*e.timers), timersBefore, "timer restarts on replace")

	assert.False(t, e.m.ReplaceText(999, "x", "y"))
}

func TestDestroyByIDReason(t *testing.T) {
	e := newTestEnv(t)

	var reason Reason
	id := e.notify(t, Args{Title: "a", OnDestroy: func(r Reason) { reason = r }})

	assert.True(t, e.m.DestroyByID(id, ReasonClosed))
	assert.Equal(t, ReasonClosed, reason)
	assert.False(t, e.m.DestroyByID(id, ReasonClosed))
}

func TestClosedHandlerSeesRearrangedStack(t *testing.T) {
	e := newTestEnv(t)

	a := e.notify(t, Args{Title: "a"})
	b := e.notify(t, Args{Title: "b"})

	// The closed handler runs with the lock held, so it reads the sibling
	// position straight off the map.
	siblingY := -1
	e.m.SetClosedHandler(func(id uint32, r Reason) {
		assert.Equal(t, a, id)
		siblingY = e.m.byID[b].Y
	})

	require.True(t, e.m.DestroyByID(a, ReasonDismissed))
	assert.Equal(t, 4, siblingY, "sibling must occupy the top slot before the closed handler fires")
}

func TestDestroyMiddleRestacksNeighbours(t *testing.T) {
	e := newTestEnv(t)
	border := e.cfg.Defaults.BorderWidth
	step := (50 + 2*border) + 2

	a := e.notify(t, Args{Title: "a"})
	b := e.notify(t, Args{Title: "b"})
	c := e.notify(t, Args{Title: "c"})

	nc, _ := e.m.GetByID(c)
	require.Equal(t, 4+2*step, nc.Y)

	require.True(t, e.m.DestroyByID(b, ReasonDismissed))

	na, _ := e.m.GetByID(a)
	nc, _ = e.m.GetByID(c)
	assert.Equal(t, 4, na.Y, "first popup stays at the padded edge")
	assert.Equal(t, 4+step, nc.Y, "third popup moves up one slot")
	assert.Equal(t, na.Y, e.backend.surfaces[0].y)
	assert.Equal(t, nc.Y, e.backend.surfaces[2].y)
}

func TestDestroySilentSkipsCallbacks(t *testing.T) {
	e := newTestEnv(t)

	called := false
	id := e.notify(t, Args{Title: "a", OnDestroy: func(Reason) { called = true }})
	e.m.SetClosedHandler(func(uint32, Reason) { called = true })

	assert.True(t, e.m.DestroyByID(id, ReasonSilent))
	assert.False(t, called)
}

func TestCloseAll(t *testing.T) {
	e := newTestEnv(t)

	e.notify(t, Args{Title: "a"})
	e.notify(t, Args{Title: "b"})
	e.m.Suspend()
	e.notify(t, Args{Title: "queued"})

	assert.Equal(t, 3, e.m.CloseAll(ReasonClosed))
	assert.Zero(t, e.m.ActiveCount())
}

func TestFilterVeto(t *testing.T) {
	e := newTestEnv(t)
	e.m.SetFilter(func(a *Args) bool { return a.AppName != "spammy" })

	id, err := e.m.Notify(Args{AppName: "spammy", Title: "buy now"})
	require.NoError(t, err)
	assert.Zero(t, id)
	assert.Empty(t, e.backend.surfaces)

	id, err = e.m.Notify(Args{AppName: "ok", Title: "hello"})
	require.NoError(t, err)
	assert.NotZero(t, id)
}

func TestFilterMayMutateArgs(t *testing.T) {
	e := newTestEnv(t)
	e.m.SetFilter(func(a *Args) bool {
		a.Preset = "critical"
		return true
	})

	id := e.notify(t, Args{Title: "a"})
	n, _ := e.m.GetByID(id)
	assert.Equal(t, "critical", n.Preset)
}

func TestActiveSnapshotsOrdered(t *testing.T) {
	e := newTestEnv(t)

	a := e.notify(t, Args{Title: "a"})
	b := e.notify(t, Args{Title: "b"})

	active := e.m.Active()
	require.Len(t, active, 2)
	assert.Equal(t, a, active[0].ID)
	assert.Equal(t, b, active[1].ID)
}

func TestNotifyWorkareaErrorPropagates(t *testing.T) {
	e := newTestEnv(t)
	e.backend.workarea = tile.Rect{}

	_, err := e.m.Notify(Args{Title: "a"})
	assert.Error(t, err)
}
