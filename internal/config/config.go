// Package config loads and validates the wmkitd configuration.
//
// Configuration lives in a single TOML file under the XDG config home
// (~/.config/wmkit/wmkitd.toml). Missing files are not an error: the
// built-in defaults apply, and any file contents overlay them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that can be unmarshaled from human-readable
// strings like "5s", "1m30s", or plain integer milliseconds.
// A value of "0" or 0 means never expire.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Plain integers are taken as milliseconds
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m30s' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Position represents a popup anchor corner on screen.
type Position string

const (
	PositionTopLeft      Position = "top_left"
	PositionTopMiddle    Position = "top_middle"
	PositionTopRight     Position = "top_right"
	PositionBottomLeft   Position = "bottom_left"
	PositionBottomMiddle Position = "bottom_middle"
	PositionBottomRight  Position = "bottom_right"
)

// ValidPositions returns all valid position values.
func ValidPositions() []Position {
	return []Position{
		PositionTopLeft,
		PositionTopMiddle,
		PositionTopRight,
		PositionBottomLeft,
		PositionBottomMiddle,
		PositionBottomRight,
	}
}

// Top reports whether the position anchors to the top edge.
func (p Position) Top() bool {
	return strings.HasPrefix(string(p), "top")
}

// Left reports whether the position anchors to the left edge.
func (p Position) Left() bool {
	return strings.Contains(string(p), "left")
}

// Middle reports whether the position is horizontally centered.
func (p Position) Middle() bool {
	return strings.Contains(string(p), "middle")
}

// Config is the configuration for wmkitd.
// Loaded from ~/.config/wmkit/wmkitd.toml
type Config struct {
	Display  DisplayConfig     `toml:"display"`
	Defaults Style             `toml:"defaults"`
	Presets  map[string]Preset `toml:"presets"`
	Keyboard KeyboardConfig    `toml:"keyboard"`
	Audio    AudioConfig       `toml:"audio"`
}

// DisplayConfig contains popup placement settings.
type DisplayConfig struct {
	Position string `toml:"position"` // "top_right", "bottom_left", etc.
	Padding  int    `toml:"padding"`  // Pixels between popups and the workarea edge
	Spacing  int    `toml:"spacing"`  // Gap between stacked popups
	Monitor  int    `toml:"monitor"`  // -1 = screen under the pointer, 0+ = fixed screen
}

// Style holds every visual and timing attribute of a popup, fully
// resolved. The Defaults section uses it directly; presets overlay it.
type Style struct {
	Timeout      Duration `toml:"timeout"`       // 0 = never expire
	HoverTimeout Duration `toml:"hover_timeout"` // Applied after the pointer enters; 0 = dismiss on hover
	FontSize     float64  `toml:"font_size"`
	Foreground   string   `toml:"fg"` // "#rrggbb"
	Background   string   `toml:"bg"`
	BorderColor  string   `toml:"border_color"`
	BorderWidth  int      `toml:"border_width"`
	Padding      int      `toml:"padding"` // Inner padding between border and content
	MaxWidth     int      `toml:"max_width"`
	MaxHeight    int      `toml:"max_height"`
	IconSize     int      `toml:"icon_size"`     // 0 = no downscaling
	MinIconSize  int      `toml:"min_icon_size"` // 0 = no upscaling
	Sound        string   `toml:"sound"`         // Path to a wav/ogg/mp3, empty = silent
}

// Preset overlays Style. Pointer fields distinguish "unset, inherit the
// default" from explicit zero values; a timeout of 0 is meaningful.
type Preset struct {
	Timeout      *Duration `toml:"timeout"`
	HoverTimeout *Duration `toml:"hover_timeout"`
	FontSize     *float64  `toml:"font_size"`
	Foreground   *string   `toml:"fg"`
	Background   *string   `toml:"bg"`
	BorderColor  *string   `toml:"border_color"`
	BorderWidth  *int      `toml:"border_width"`
	Padding      *int      `toml:"padding"`
	MaxWidth     *int      `toml:"max_width"`
	MaxHeight    *int      `toml:"max_height"`
	IconSize     *int      `toml:"icon_size"`
	MinIconSize  *int      `toml:"min_icon_size"`
	Sound        *string   `toml:"sound"`
}

// KeyboardConfig contains keyboard layout bridge settings.
type KeyboardConfig struct {
	Enabled        bool `toml:"enabled"`          // Track XKB state and serve layout calls
	NotifyOnChange bool `toml:"notify_on_change"` // Pop up the layout name when the group changes
}

// AudioConfig contains audio settings.
type AudioConfig struct {
	Enabled bool `toml:"enabled"`
	Volume  int  `toml:"volume"` // 0-100
}

// Default returns a new Config with default values, including the
// built-in "low", "normal" and "critical" presets.
func Default() *Config {
	return &Config{
		Display: DisplayConfig{
			Position: string(PositionTopRight),
			Padding:  4,
			Spacing:  1,
			Monitor:  -1,
		},
		Defaults: Style{
			Timeout:      Duration(10 * time.Second),
			HoverTimeout: Duration(2 * time.Second),
			FontSize:     12,
			Foreground:   "#ffffff",
			Background:   "#1d1f21",
			BorderColor:  "#444444",
			BorderWidth:  1,
			Padding:      8,
			MaxWidth:     400,
			MaxHeight:    300,
			IconSize:     48,
			MinIconSize:  0,
		},
		Presets: map[string]Preset{
			"low": {
				Timeout: durationPtr(5 * time.Second),
			},
			"normal": {},
			"critical": {
				Timeout:    durationPtr(0), // Never expires
				Foreground: strPtr("#ffffff"),
				Background: strPtr("#900000"),
			},
		},
		Keyboard: KeyboardConfig{
			Enabled:        true,
			NotifyOnChange: false,
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  80,
		},
	}
}

func durationPtr(d time.Duration) *Duration {
	v := Duration(d)
	return &v
}

func strPtr(s string) *string {
	return &s
}

// Path returns the path to the daemon config file.
func Path() string {
	return filepath.Join(xdg.ConfigHome, "wmkit", "wmkitd.toml")
}

// Load loads the configuration from disk. If the file doesn't exist,
// returns the default configuration.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom loads the configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to disk atomically.
func Save(cfg *Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validPos := false
	for _, p := range ValidPositions() {
		if c.Display.Position == string(p) {
			validPos = true
			break
		}
	}
	if !validPos {
		return fmt.Errorf("invalid position %q, must be one of: %v", c.Display.Position, ValidPositions())
	}

	if c.Display.Padding < 0 {
		return fmt.Errorf("display padding must not be negative, got %d", c.Display.Padding)
	}
	if c.Display.Spacing < 0 {
		return fmt.Errorf("display spacing must not be negative, got %d", c.Display.Spacing)
	}
	if c.Display.Monitor < -1 {
		return fmt.Errorf("monitor must be -1 or a screen index, got %d", c.Display.Monitor)
	}

	if err := validateStyle("defaults", c.Defaults); err != nil {
		return err
	}
	for name, preset := range c.Presets {
		if err := validatePreset(name, preset); err != nil {
			return err
		}
	}

	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Audio.Volume)
	}

	return nil
}

func validateStyle(section string, s Style) error {
	for field, color := range map[string]string{
		"fg":           s.Foreground,
		"bg":           s.Background,
		"border_color": s.BorderColor,
	} {
		if !ValidColor(color) {
			return fmt.Errorf("%s: invalid %s color %q, must be #rrggbb", section, field, color)
		}
	}
	if s.FontSize <= 0 {
		return fmt.Errorf("%s: font_size must be positive, got %v", section, s.FontSize)
	}
	if s.BorderWidth < 0 || s.Padding < 0 {
		return fmt.Errorf("%s: border_width and padding must not be negative", section)
	}
	if s.MaxWidth < 0 || s.MaxHeight < 0 {
		return fmt.Errorf("%s: max_width and max_height must not be negative", section)
	}
	return nil
}

func validatePreset(name string, p Preset) error {
	for field, color := range map[string]*string{
		"fg":           p.Foreground,
		"bg":           p.Background,
		"border_color": p.BorderColor,
	} {
		if color != nil && !ValidColor(*color) {
			return fmt.Errorf("preset %q: invalid %s color %q, must be #rrggbb", name, field, *color)
		}
	}
	if p.FontSize != nil && *p.FontSize <= 0 {
		return fmt.Errorf("preset %q: font_size must be positive", name)
	}
	return nil
}

// ValidColor reports whether s is a "#rrggbb" hex color.
func ValidColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	_, err := strconv.ParseUint(s[1:], 16, 32)
	return err == nil
}

// Resolve returns the fully resolved style for a preset name. Unknown or
// empty names resolve to the defaults unchanged.
func (c *Config) Resolve(name string) Style {
	style := c.Defaults
	preset, ok := c.Presets[name]
	if !ok {
		return style
	}

	if preset.Timeout != nil {
		style.Timeout = *preset.Timeout
	}
	if preset.HoverTimeout != nil {
		style.HoverTimeout = *preset.HoverTimeout
	}
	if preset.FontSize != nil {
		style.FontSize = *preset.FontSize
	}
	if preset.Foreground != nil {
		style.Foreground = *preset.Foreground
	}
	if preset.Background != nil {
		style.Background = *preset.Background
	}
	if preset.BorderColor != nil {
		style.BorderColor = *preset.BorderColor
	}
	if preset.BorderWidth != nil {
		style.BorderWidth = *preset.BorderWidth
	}
	if preset.Padding != nil {
		style.Padding = *preset.Padding
	}
	if preset.MaxWidth != nil {
		style.MaxWidth = *preset.MaxWidth
	}
	if preset.MaxHeight != nil {
		style.MaxHeight = *preset.MaxHeight
	}
	if preset.IconSize != nil {
		style.IconSize = *preset.IconSize
	}
	if preset.MinIconSize != nil {
		style.MinIconSize = *preset.MinIconSize
	}
	if preset.Sound != nil {
		style.Sound = *preset.Sound
	}
	return style
}

// PresetForUrgency maps a freedesktop urgency byte to a preset name.
func PresetForUrgency(urgency byte) string {
	switch urgency {
	case 0:
		return "low"
	case 2:
		return "critical"
	default:
		return "normal"
	}
}
