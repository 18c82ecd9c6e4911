// Package icon loads and scales notification icons.
package icon

import (
	"fmt"
	"image"
	"os"

	// Decoders for the formats notification icons come in.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/transform"
)

// Load reads the image at path and scales it for display.
//
// Icons larger than targetSize on their longest edge are scaled down to it,
// keeping the aspect ratio. Icons smaller than minSize on their shortest
// edge are scaled up so they stay visible. A targetSize of zero skips the
// downscale. Failures are returned for the caller to log; an icon is never
// required.
func Load(path string, targetSize, minSize int) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open icon: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode icon %q: %w", path, err)
	}

	return Scale(img, targetSize, minSize), nil
}

// Scale applies the target and minimum sizing rules to an already decoded
// image.
func Scale(img image.Image, targetSize, minSize int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return transform.Resize(img, 1, 1, transform.Linear)
	}

	long := max(w, h)
	if targetSize > 0 && long > targetSize {
		w, h = scaleDims(w, h, targetSize, long)
	}

	if short := min(w, h); minSize > 0 && short < minSize {
		// Scale up so the shortest edge reaches the minimum.
		w = w * minSize / short
		h = h * minSize / short
	}

	if w == b.Dx() && h == b.Dy() {
		if rgba, ok := img.(*image.RGBA); ok {
			return rgba
		}
	}
	return transform.Resize(img, w, h, transform.Linear)
}

// scaleDims shrinks (w, h) so the longest edge equals target.
func scaleDims(w, h, target, long int) (int, int) {
	w = max(1, w*target/long)
	h = max(1, h*target/long)
	return w, h
}
