package cliconfig

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig is the optional TOML configuration file. Every field is a
// pointer so that absent keys leave the defaults untouched. Command-line
// tokens are applied afterwards and take precedence.
type FileConfig struct {
	Name        *string `toml:"name"`
	Display     *string `toml:"display"` // same WxH[@R] grammar as -s
	MaxFPS      *string `toml:"max_fps"`
	Overscan    *bool   `toml:"overscan"`
	Flip        *string `toml:"flip"`
	Rotate      *string `toml:"rotate"`
	VideoSink   *string `toml:"video_sink"`
	AudioSink   *string `toml:"audio_sink"`
	Audio       *bool   `toml:"audio"`
	RandomID    *bool   `toml:"random_id"`
	Debug       *bool   `toml:"debug"`
	IdleTimeout *string `toml:"idle_timeout"`
	MetricsAddr *string `toml:"metrics_addr"`
}

// LoadFileConfig reads and decodes a TOML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return fc, fmt.Errorf("decode config file: %w", err)
	}
	return fc, nil
}

// ApplyFileConfig folds file values into the config. String-typed fields
// run through the same validators as their command-line counterparts.
func ApplyFileConfig(c *Config, fc FileConfig) error {
	if fc.Name != nil && *fc.Name != "" {
		c.Name = *fc.Name
	}
	if fc.Display != nil {
		w, h, r, err := parseDisplayGeometry(*fc.Display)
		if err != nil {
			return &ValidationError{Flag: "display", Value: *fc.Display, Reason: err.Error()}
		}
		c.Width, c.Height = w, h
		if r != 0 {
			c.Refresh = r
		}
	}
	if fc.MaxFPS != nil {
		n, err := parseBoundedCount(*fc.MaxFPS, 255)
		if err != nil {
			return &ValidationError{Flag: "max_fps", Value: *fc.MaxFPS, Reason: err.Error()}
		}
		c.MaxFPS = uint16(n)
	}
	if fc.Overscan != nil {
		c.Overscan = *fc.Overscan
	}
	if fc.Flip != nil {
		flip, err := parseFlip(*fc.Flip)
		if err != nil {
			return &ValidationError{Flag: "flip", Value: *fc.Flip, Reason: err.Error()}
		}
		c.Flip = flip
	}
	if fc.Rotate != nil {
		rot, err := parseRotate(*fc.Rotate)
		if err != nil {
			return &ValidationError{Flag: "rotate", Value: *fc.Rotate, Reason: err.Error()}
		}
		c.Rotate = rot
	}
	if fc.VideoSink != nil && *fc.VideoSink != "" {
		c.VideoSink = *fc.VideoSink
	}
	if fc.AudioSink != nil && *fc.AudioSink != "" {
		c.AudioSink = *fc.AudioSink
	}
	if fc.Audio != nil {
		c.UseAudio = *fc.Audio
	}
	if fc.RandomID != nil {
		c.RandomID = *fc.RandomID
	}
	if fc.Debug != nil {
		c.Debug = *fc.Debug
	}
	if fc.IdleTimeout != nil {
		n, err := parseBoundedCount(*fc.IdleTimeout, 0)
		if err != nil {
			return &ValidationError{Flag: "idle_timeout", Value: *fc.IdleTimeout, Reason: err.Error()}
		}
		c.IdleTimeout = n
	}
	if fc.MetricsAddr != nil {
		c.MetricsAddr = *fc.MetricsAddr
	}
	return nil
}
