package cliconfig

import (
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Name != DefaultName {
		t.Errorf("Name = %v, want %v", cfg.Name, DefaultName)
	}
	if cfg.VideoSink != DefaultVideoSink {
		t.Errorf("VideoSink = %v, want %v", cfg.VideoSink, DefaultVideoSink)
	}
	if cfg.AudioSink != DefaultAudioSink {
		t.Errorf("AudioSink = %v, want %v", cfg.AudioSink, DefaultAudioSink)
	}
	if !cfg.UseAudio {
		t.Error("UseAudio = false, want true")
	}
	if cfg.IdleTimeout != 0 {
		t.Errorf("IdleTimeout = %v, want 0 (disabled)", cfg.IdleTimeout)
	}
	if cfg.Width != 0 || cfg.Height != 0 || cfg.Refresh != 0 || cfg.MaxFPS != 0 {
		t.Error("display fields should default to 0 (engine defaults)")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:   "explicit distinct ports",
			mutate: func(c *Config) { c.TCPPorts = [3]uint16{7100, 7000, 7001} },
		},
		{
			name: "legacy plan",
			mutate: func(c *Config) {
				c.TCPPorts = LegacyTCPPorts
				c.UDPPorts = LegacyUDPPorts
			},
		},
		{
			name:    "partially set triple",
			mutate:  func(c *Config) { c.TCPPorts = [3]uint16{7100, 0, 7001} },
			wantErr: true,
		},
		{
			name:    "duplicate within triple",
			mutate:  func(c *Config) { c.UDPPorts = [3]uint16{6000, 6001, 6000} },
			wantErr: true,
		},
		{
			name:    "port below floor",
			mutate:  func(c *Config) { c.TCPPorts = [3]uint16{1000, 1001, 1002} },
			wantErr: true,
		},
		{
			name:    "empty name",
			mutate:  func(c *Config) { c.Name = "" },
			wantErr: true,
		},
		{
			name:    "empty video sink",
			mutate:  func(c *Config) { c.VideoSink = "" },
			wantErr: true,
		},
		{
			name:    "empty audio sink",
			mutate:  func(c *Config) { c.AudioSink = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr != (err != nil) {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_AppendHostname(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AppendHostname()
	if cfg.Name == DefaultName {
		// No hostname available on this host; nothing to assert.
		return
	}
	if !strings.HasPrefix(cfg.Name, DefaultName+"@") {
		t.Errorf("Name = %q, want %q prefix", cfg.Name, DefaultName+"@")
	}
}
