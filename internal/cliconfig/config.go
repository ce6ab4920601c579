// Package cliconfig parses and validates the castd configuration surface:
// the legacy single-dash command-line grammar, an optional TOML config
// file applied beneath it, and the cross-field invariants of the resulting
// record. The Config produced here is immutable for the whole process run,
// including across relaunch cycles.
package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/castkit/castd/internal/ports"
)

// Port range accepted for explicitly configured ports.
const (
	LowestPort  = 1024
	HighestPort = 65535
)

// DefaultName is the advertised service name before the hostname suffix.
const DefaultName = "castd"

// Default renderer sinks. SinkDisabled turns the corresponding pipeline off.
const (
	DefaultVideoSink = "autovideosink"
	DefaultAudioSink = "autoaudiosink"
	SinkDisabled     = "0"
)

// Legacy fixed port plan selected by a bare "-p".
var (
	LegacyTCPPorts = [3]uint16{7100, 7000, 7001}
	LegacyUDPPorts = [3]uint16{7011, 6001, 6000}
)

// Config holds the validated castd configuration. Zero numeric display
// values mean "use the engine default"; zero port entries mean "assign
// dynamically".
type Config struct {
	Name string

	Width    uint16
	Height   uint16
	Refresh  uint16
	MaxFPS   uint16
	Overscan bool

	TCPPorts [3]uint16
	UDPPorts [3]uint16

	Flip   ports.Flip
	Rotate ports.Rotate

	VideoSink string
	AudioSink string
	UseAudio  bool

	RandomID bool
	Debug    bool

	// IdleTimeout is the idle-relaunch span in seconds; 0 disables it.
	IdleTimeout uint

	// MetricsAddr enables the Prometheus listener when set (file-only).
	MetricsAddr string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Name:      DefaultName,
		VideoSink: DefaultVideoSink,
		AudioSink: DefaultAudioSink,
		UseAudio:  true,
	}
}

// Validate checks the cross-field invariants that the per-flag parsers
// cannot see. Each port triple must be either fully dynamic or fully
// explicit with mutually distinct in-range entries.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("service name must not be empty")
	}
	if c.VideoSink == "" {
		return fmt.Errorf("video sink must not be empty")
	}
	if c.AudioSink == "" {
		return fmt.Errorf("audio sink must not be empty")
	}
	if err := validateTriple("tcp", c.TCPPorts); err != nil {
		return err
	}
	if err := validateTriple("udp", c.UDPPorts); err != nil {
		return err
	}
	return nil
}

func validateTriple(group string, ports [3]uint16) error {
	set := 0
	for _, p := range ports {
		if p != 0 {
			set++
		}
	}
	if set == 0 {
		return nil
	}
	if set != len(ports) {
		return fmt.Errorf("%s ports must be all dynamic or all explicit", group)
	}
	for i, p := range ports {
		if p < LowestPort {
			return fmt.Errorf("%s port %d out of range [%d,%d]", group, p, LowestPort, HighestPort)
		}
		for j := 0; j < i; j++ {
			if ports[j] == p {
				return fmt.Errorf("%s ports must be distinct, %d repeats", group, p)
			}
		}
	}
	return nil
}

// AppendHostname suffixes the service name with "@hostname" when the
// hostname is available.
func (c *Config) AppendHostname() {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return
	}
	c.Name = c.Name + "@" + host
}

// DefaultConfigPath returns the conventional config file location.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".castd", "config.toml")
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
