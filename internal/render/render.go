// Package render rasterizes notification popups into RGBA images the X
// backend can upload. Text is drawn with the embedded Go fonts so no
// server-side font machinery is needed.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/wmkit/wmkit/internal/markup"
)

// DefaultFontSize is used when Content does not specify a size.
const DefaultFontSize = 12

// Content is everything that ends up on one popup surface. Title and Body
// are resolved markup (see the markup package); tags are stripped at draw
// time.
type Content struct {
	Title      string
	Body       string
	Icon       *image.RGBA
	Foreground color.RGBA
	Background color.RGBA
	FontSize   float64 // body point size at 72 DPI, 0 = DefaultFontSize
	Padding    int     // inner margin between the popup edge and content
}

// faces bundles the two type faces for one font size.
type faces struct {
	title  font.Face
	body   font.Face
	line   int // body line advance in pixels
	ascent int
}

// Renderer measures and draws popup content. Faces are built lazily per
// font size and cached; a Renderer is safe for concurrent use.
type Renderer struct {
	titleFont *opentype.Font
	bodyFont  *opentype.Font

	mu    sync.Mutex
	cache map[float64]faces
}

// New builds a renderer from the embedded Go Regular and Go Bold fonts.
func New() (*Renderer, error) {
	bodyFont, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse body font: %w", err)
	}
	titleFont, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse title font: %w", err)
	}

	return &Renderer{
		titleFont: titleFont,
		bodyFont:  bodyFont,
		cache:     make(map[float64]faces),
	}, nil
}

// facesFor returns the cached faces for size, building them on first use.
// The title uses the bold face one point larger than the body.
func (r *Renderer) facesFor(size float64) (faces, error) {
	if size <= 0 {
		size = DefaultFontSize
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.cache[size]; ok {
		return f, nil
	}

	bodyFace, err := opentype.NewFace(r.bodyFont, &opentype.FaceOptions{
		Size: size, DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		return faces{}, fmt.Errorf("body face: %w", err)
	}
	titleFace, err := opentype.NewFace(r.titleFont, &opentype.FaceOptions{
		Size: size + 1, DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		return faces{}, fmt.Errorf("title face: %w", err)
	}

	m := bodyFace.Metrics()
	f := faces{
		title:  titleFace,
		body:   bodyFace,
		line:   m.Height.Ceil(),
		ascent: m.Ascent.Ceil(),
	}
	r.cache[size] = f
	return f, nil
}

// Measure returns the pixel size of c rendered with the text column wrapped
// at maxTextWidth (0 means no wrapping).
func (r *Renderer) Measure(c Content, maxTextWidth int) (int, int) {
	f, err := r.facesFor(c.FontSize)
	if err != nil {
		return 0, 0
	}
	titleLines, bodyLines := lines(f, c, maxTextWidth)

	textW := 0
	for _, l := range titleLines {
		textW = max(textW, font.MeasureString(f.title, l).Ceil())
	}
	for _, l := range bodyLines {
		textW = max(textW, font.MeasureString(f.body, l).Ceil())
	}
	textH := (len(titleLines) + len(bodyLines)) * f.line

	w, h := textW, textH
	if c.Icon != nil {
		w += c.Icon.Bounds().Dx() + iconGap(c)
		h = max(h, c.Icon.Bounds().Dy())
	}
	return w + 2*c.Padding, h + 2*c.Padding
}

// Render draws c into a width x height image. Content that does not fit is
// clipped at the edges.
func (r *Renderer) Render(c Content, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(c.Background), image.Point{}, draw.Src)

	f, err := r.facesFor(c.FontSize)
	if err != nil {
		return img
	}

	x := c.Padding
	if c.Icon != nil {
		ib := c.Icon.Bounds()
		dst := image.Rect(x, c.Padding, x+ib.Dx(), c.Padding+ib.Dy())
		draw.Draw(img, dst, c.Icon, ib.Min, draw.Over)
		x += ib.Dx() + iconGap(c)
	}

	maxText := width - x - c.Padding
	titleLines, bodyLines := lines(f, c, maxText)

	fg := image.NewUniform(c.Foreground)
	y := c.Padding + f.ascent
	for _, l := range titleLines {
		drawLine(img, f.title, fg, l, x, y)
		y += f.line
	}
	for _, l := range bodyLines {
		drawLine(img, f.body, fg, l, x, y)
		y += f.line
	}
	return img
}

// iconGap is the space between the icon column and the text column.
func iconGap(c Content) int {
	if c.Padding > 0 {
		return c.Padding
	}
	return 4
}

func drawLine(dst draw.Image, face font.Face, src image.Image, s string, x, y int) {
	d := font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// lines resolves markup into wrapped title and body lines. Titles are plain
// text, so any markup-looking characters get escaped to survive the line
// splitter literally; only the body honours markup.
func lines(f faces, c Content, maxWidth int) (title, body []string) {
	if c.Title != "" {
		for _, l := range markup.ToLines(markup.Escape(c.Title)) {
			title = append(title, wrap(f.title, l, maxWidth)...)
		}
	}
	if c.Body != "" {
		for _, l := range markup.ToLines(c.Body) {
			body = append(body, wrap(f.body, l, maxWidth)...)
		}
	}
	return title, body
}

// wrap splits s into lines no wider than maxWidth, breaking on spaces. Words
// wider than the limit get a line of their own rather than being cut.
func wrap(face font.Face, s string, maxWidth int) []string {
	if maxWidth <= 0 || font.MeasureString(face, s).Ceil() <= maxWidth {
		return []string{s}
	}

	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{s}
	}

	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		cand := cur + " " + w
		if font.MeasureString(face, cand).Ceil() > maxWidth {
			lines = append(lines, cur)
			cur = w
			continue
		}
		cur = cand
	}
	return append(lines, cur)
}
