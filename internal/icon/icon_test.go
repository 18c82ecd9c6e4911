package icon

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	return img
}

func TestScale_DownToTarget(t *testing.T) {
	got := Scale(solidImage(128, 64), 64, 0)
	assert.Equal(t, 64, got.Bounds().Dx())
	assert.Equal(t, 32, got.Bounds().Dy())
}

func TestScale_UpToMinimum(t *testing.T) {
	got := Scale(solidImage(8, 16), 64, 16)
	assert.Equal(t, 16, got.Bounds().Dx())
	assert.Equal(t, 32, got.Bounds().Dy())
}

func TestScale_NoopWhenWithinBounds(t *testing.T) {
	src := solidImage(32, 32)
	got := Scale(src, 64, 16)
	assert.Same(t, src, got)
}

func TestScale_ZeroTargetSkipsDownscale(t *testing.T) {
	got := Scale(solidImage(200, 200), 0, 0)
	assert.Equal(t, 200, got.Bounds().Dx())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.png"), 64, 16)
	assert.Error(t, err)
}

func TestLoad_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.png")
	require.NoError(t, os.WriteFile(path, []byte("not a png"), 0o644))

	_, err := Load(path, 64, 16)
	assert.Error(t, err)
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icon.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, solidImage(100, 50)))
	require.NoError(t, f.Close())

	got, err := Load(path, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Bounds().Dx())
	assert.Equal(t, 25, got.Bounds().Dy())
}
