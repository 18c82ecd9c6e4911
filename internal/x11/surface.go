package x11

import (
	"fmt"
	"image"
	"sync"

	"github.com/jezek/xgb/xproto"

	"github.com/wmkit/wmkit/internal/notify"
	"github.com/wmkit/wmkit/internal/render"
)

// surface is a popup window. It keeps the last rendered image so expose
// events can be answered without going back through the renderer.
type surface struct {
	c   *Conn
	win xproto.Window
	gc  xproto.Gcontext

	mu  sync.Mutex
	img *image.RGBA
}

// CreateSurface creates an unmapped override-redirect window for a popup.
func (c *Conn) CreateSurface(opts notify.SurfaceOptions) (notify.Surface, error) {
	wid, err := xproto.NewWindowId(c.conn)
	if err != nil {
		return nil, fmt.Errorf("allocate window id: %w", err)
	}

	// Value order follows the mask bit order.
	mask := uint32(xproto.CwBackPixel | xproto.CwBorderPixel |
		xproto.CwOverrideRedirect | xproto.CwEventMask)
	values := []uint32{
		render.Pixel(opts.Background),
		render.Pixel(opts.Border),
		1, // override-redirect keeps the WM from managing the popup
		xproto.EventMaskExposure | xproto.EventMaskEnterWindow |
			xproto.EventMaskLeaveWindow | xproto.EventMaskButtonPress,
	}

	err = xproto.CreateWindowChecked(c.conn, c.screen.RootDepth, wid, c.root,
		int16(opts.X), int16(opts.Y), uint16(opts.Width), uint16(opts.Height),
		uint16(opts.BorderWidth), xproto.WindowClassInputOutput,
		c.screen.RootVisual, mask, values).Check()
	if err != nil {
		return nil, fmt.Errorf("create popup window: %w", err)
	}

	gc, err := xproto.NewGcontextId(c.conn)
	if err != nil {
		return nil, fmt.Errorf("allocate gcontext: %w", err)
	}
	err = xproto.CreateGCChecked(c.conn, gc, xproto.Drawable(wid),
		xproto.GcForeground, []uint32{c.screen.BlackPixel}).Check()
	if err != nil {
		return nil, fmt.Errorf("create gcontext: %w", err)
	}

	s := &surface{c: c, win: wid, gc: gc}
	c.mu.Lock()
	c.surfaces[wid] = s
	c.mu.Unlock()
	return s, nil
}

func (s *surface) Window() uint32 {
	return uint32(s.win)
}

func (s *surface) Move(x, y int) {
	xproto.ConfigureWindow(s.c.conn, s.win,
		xproto.ConfigWindowX|xproto.ConfigWindowY,
		[]uint32{uint32(x), uint32(y)})
}

func (s *surface) Show() {
	xproto.MapWindow(s.c.conn, s.win)
	// Popups always float above everything else.
	xproto.ConfigureWindow(s.c.conn, s.win,
		xproto.ConfigWindowStackMode,
		[]uint32{xproto.StackModeAbove})
}

func (s *surface) Hide() {
	xproto.UnmapWindow(s.c.conn, s.win)
}

// Update swaps the surface content, resizing the window to the image.
func (s *surface) Update(img *image.RGBA) {
	s.mu.Lock()
	s.img = img
	s.mu.Unlock()

	b := img.Bounds()
	xproto.ConfigureWindow(s.c.conn, s.win,
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(b.Dx()), uint32(b.Dy())})
	s.draw()
}

func (s *surface) Destroy() {
	s.c.mu.Lock()
	delete(s.c.surfaces, s.win)
	s.c.mu.Unlock()

	xproto.FreeGC(s.c.conn, s.gc)
	xproto.DestroyWindow(s.c.conn, s.win)
}

// draw uploads the cached image, chunked by rows to keep each PutImage
// request under the protocol size limit.
func (s *surface) draw() {
	s.mu.Lock()
	img := s.img
	s.mu.Unlock()
	if img == nil {
		return
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return
	}

	rowsPerChunk := max(1, 63*1024/(w*4))
	for y := 0; y < h; y += rowsPerChunk {
		rows := min(rowsPerChunk, h-y)
		data := bgrx(img, y, rows)
		xproto.PutImage(s.c.conn, xproto.ImageFormatZPixmap,
			xproto.Drawable(s.win), s.gc,
			uint16(w), uint16(rows), 0, int16(y),
			0, s.c.screen.RootDepth, data)
	}
}

// bgrx converts rows of an RGBA image into the little-endian 32-bit
// ZPixmap layout the server expects.
func bgrx(img *image.RGBA, startRow, rows int) []byte {
	b := img.Bounds()
	w := b.Dx()
	out := make([]byte, w*rows*4)

	i := 0
	for y := 0; y < rows; y++ {
		src := img.Pix[(startRow+y)*img.Stride : (startRow+y)*img.Stride+w*4]
		for x := 0; x < w*4; x += 4 {
			out[i] = src[x+2]   // B
			out[i+1] = src[x+1] // G
			out[i+2] = src[x]   // R
			out[i+3] = 0
			i += 4
		}
	}
	return out
}
