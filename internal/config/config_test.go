package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestDefaultPresets(t *testing.T) {
	cfg := Default()

	low := cfg.Resolve("low")
	assert.Equal(t, 5*time.Second, low.Timeout.Duration())

	normal := cfg.Resolve("normal")
	assert.Equal(t, 10*time.Second, normal.Timeout.Duration())

	critical := cfg.Resolve("critical")
	assert.Equal(t, time.Duration(0), critical.Timeout.Duration())
	assert.Equal(t, "#900000", critical.Background)
}

func TestResolveUnknownPresetFallsBack(t *testing.T) {
	cfg := Default()

	style := cfg.Resolve("no-such-preset")
	assert.Equal(t, cfg.Defaults, style)
}

func TestResolveOverlaysOnlySetFields(t *testing.T) {
	cfg := Default()
	width := 600
	cfg.Presets["wide"] = Preset{MaxWidth: &width}

	style := cfg.Resolve("wide")
	assert.Equal(t, 600, style.MaxWidth)
	assert.Equal(t, cfg.Defaults.Timeout, style.Timeout)
	assert.Equal(t, cfg.Defaults.Foreground, style.Foreground)
}

func TestResolveZeroTimeoutIsExplicit(t *testing.T) {
	cfg := Default()

	// An explicit zero timeout must not be confused with unset.
	style := cfg.Resolve("critical")
	assert.Equal(t, time.Duration(0), style.Timeout.Duration())
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wmkitd.toml")
	data := `
[display]
position = "bottom_left"
spacing = 10

[defaults]
timeout = "30s"

[presets.sticky]
timeout = "0"

[keyboard]
notify_on_change = true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "bottom_left", cfg.Display.Position)
	assert.Equal(t, 10, cfg.Display.Spacing)
	assert.Equal(t, 30*time.Second, cfg.Defaults.Timeout.Duration())
	assert.True(t, cfg.Keyboard.NotifyOnChange)

	// Built-in presets survive the overlay
	assert.Equal(t, 5*time.Second, cfg.Resolve("low").Timeout.Duration())
	assert.Equal(t, time.Duration(0), cfg.Resolve("sticky").Timeout.Duration())
}

func TestLoadFromRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wmkitd.toml")
	require.NoError(t, os.WriteFile(path, []byte("[display]\nposition = \"sideways\"\n"), 0600))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestDurationUnmarshal(t *testing.T) {
	var d Duration

	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	require.NoError(t, d.UnmarshalText([]byte("1500")))
	assert.Equal(t, 1500*time.Millisecond, d.Duration())

	require.NoError(t, d.UnmarshalText([]byte("0")))
	assert.Equal(t, time.Duration(0), d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestPositionHelpers(t *testing.T) {
	assert.True(t, PositionTopLeft.Top())
	assert.False(t, PositionBottomRight.Top())
	assert.True(t, PositionBottomLeft.Left())
	assert.True(t, PositionTopMiddle.Middle())
	assert.False(t, PositionTopRight.Left())
}

func TestValidColor(t *testing.T) {
	assert.True(t, ValidColor("#1d1f21"))
	assert.False(t, ValidColor("1d1f21"))
	assert.False(t, ValidColor("#1d1f2"))
	assert.False(t, ValidColor("#zzzzzz"))
}

func TestPresetForUrgency(t *testing.T) {
	assert.Equal(t, "low", PresetForUrgency(0))
	assert.Equal(t, "normal", PresetForUrgency(1))
	assert.Equal(t, "critical", PresetForUrgency(2))
	assert.Equal(t, "normal", PresetForUrgency(9))
}

func TestWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wmkitd.toml")
	require.NoError(t, os.WriteFile(path, []byte("[display]\nspacing = 1\n"), 0600))

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("[display]\nspacing = 7\n"), 0600))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 7, cfg.Display.Spacing)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
