package cliconfig

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/castkit/castd/internal/ports"
)

// ErrHelp is returned by ParseArgs when -h or -v is present; the caller
// prints usage and exits 0.
var ErrHelp = errors.New("help requested")

// ValidationError describes a rejected configuration token. It names the
// offending flag and value so the diagnostic can be printed verbatim.
type ValidationError struct {
	Flag   string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %q: %s", e.Flag, e.Reason)
	}
	return fmt.Sprintf("invalid %q %q: %s", e.Flag, e.Value, e.Reason)
}

// ParseArgs applies the legacy single-dash token grammar on top of the
// current config values. Tokens are highest precedence; anything already
// set from the config file is overwritten.
func (c *Config) ParseArgs(args []string) error {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-n":
			v, err := takeValue(args, i, arg)
			if err != nil {
				return err
			}
			i++
			c.Name = v
		case "-s":
			v, err := takeValue(args, i, arg)
			if err != nil {
				return err
			}
			i++
			w, h, r, err := parseDisplayGeometry(v)
			if err != nil {
				return &ValidationError{Flag: arg, Value: v, Reason: err.Error()}
			}
			c.Width, c.Height = w, h
			if r != 0 {
				c.Refresh = r
			}
		case "-fps":
			v, err := takeValue(args, i, arg)
			if err != nil {
				return err
			}
			i++
			n, err := parseBoundedCount(v, 255)
			if err != nil {
				return &ValidationError{Flag: arg, Value: v, Reason: err.Error()}
			}
			c.MaxFPS = uint16(n)
		case "-o":
			c.Overscan = true
		case "-f":
			v, err := takeValue(args, i, arg)
			if err != nil {
				return err
			}
			i++
			flip, err := parseFlip(v)
			if err != nil {
				return &ValidationError{Flag: arg, Value: v, Reason: err.Error()}
			}
			c.Flip = flip
		case "-r":
			v, err := takeValue(args, i, arg)
			if err != nil {
				return err
			}
			i++
			rot, err := parseRotate(v)
			if err != nil {
				return &ValidationError{Flag: arg, Value: v, Reason: err.Error()}
			}
			c.Rotate = rot
		case "-p":
			n, err := c.parsePortTokens(args, i)
			if err != nil {
				return err
			}
			i += n
		case "-m":
			c.RandomID = true
		case "-a":
			c.UseAudio = false
		case "-d":
			c.Debug = !c.Debug
		case "-vs":
			v, err := takeValue(args, i, arg)
			if err != nil {
				return err
			}
			i++
			c.VideoSink = v
		case "-as":
			v, err := takeValue(args, i, arg)
			if err != nil {
				return err
			}
			i++
			c.AudioSink = v
		case "-t":
			v, err := takeValue(args, i, arg)
			if err != nil {
				return err
			}
			i++
			n, err := parseBoundedCount(v, 0)
			if err != nil {
				return &ValidationError{Flag: arg, Value: v, Reason: err.Error()}
			}
			c.IdleTimeout = n
		case "-c":
			// Config file path; consumed here, applied by the caller
			// before token parsing.
			if _, err := takeValue(args, i, arg); err != nil {
				return err
			}
			i++
		case "-h", "-v":
			return ErrHelp
		default:
			return &ValidationError{Flag: arg, Reason: "unknown option"}
		}
	}
	return nil
}

// parsePortTokens handles the "-p" grammar: bare -p selects the legacy
// fixed plan; "-p tcp N..." and "-p udp N..." set one triple; "-p N..."
// sets TCP and copies the second and third entries to UDP. Returns the
// number of extra tokens consumed.
func (c *Config) parsePortTokens(args []string, i int) (int, error) {
	if i >= len(args)-1 || strings.HasPrefix(args[i+1], "-") {
		c.TCPPorts = LegacyTCPPorts
		c.UDPPorts = LegacyUDPPorts
		return 0, nil
	}
	value := args[i+1]
	switch value {
	case "tcp":
		v, err := takeValue(args, i+1, "-p tcp")
		if err != nil {
			return 0, err
		}
		group, err := parsePortGroup(v, len(c.TCPPorts))
		if err != nil {
			return 0, &ValidationError{Flag: "-p tcp", Value: v, Reason: err.Error()}
		}
		copy(c.TCPPorts[:], group)
		return 2, nil
	case "udp":
		v, err := takeValue(args, i+1, "-p udp")
		if err != nil {
			return 0, err
		}
		group, err := parsePortGroup(v, len(c.UDPPorts))
		if err != nil {
			return 0, &ValidationError{Flag: "-p udp", Value: v, Reason: err.Error()}
		}
		copy(c.UDPPorts[:], group)
		return 2, nil
	default:
		group, err := parsePortGroup(value, len(c.TCPPorts))
		if err != nil {
			return 0, &ValidationError{Flag: "-p", Value: value, Reason: err.Error()}
		}
		copy(c.TCPPorts[:], group)
		// UDP primary stays dynamic; the remaining entries track TCP.
		for j := 1; j < len(c.UDPPorts); j++ {
			c.UDPPorts[j] = c.TCPPorts[j]
		}
		return 1, nil
	}
}

// takeValue returns the argument following args[i], rejecting a missing
// value or one that looks like the next option.
func takeValue(args []string, i int, flag string) (string, error) {
	if i >= len(args)-1 || strings.HasPrefix(args[i+1], "-") {
		return "", &ValidationError{Flag: flag, Reason: "option has no argument"}
	}
	return args[i+1], nil
}

// digitsOnly reports whether s is nonempty and entirely decimal digits.
// Signs are rejected outright; the grammar has no negative values and a
// leading "+" would survive strconv.
func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseDisplayGeometry validates "WxH" or "WxH@R". W and H are 1-4 digit
// nonzero integers; R is a 1-3 digit nonzero integer no greater than 255.
// A missing "@R" yields refresh 0, leaving the caller's default in place.
func parseDisplayGeometry(value string) (width, height, refresh uint16, err error) {
	xPos := strings.IndexByte(value, 'x')
	if xPos < 0 {
		return 0, 0, 0, fmt.Errorf("expected WxH or WxH@R")
	}
	wStr := value[:xPos]
	rest := value[xPos+1:]

	hStr := rest
	rStr := ""
	if atPos := strings.IndexByte(rest, '@'); atPos >= 0 {
		hStr = rest[:atPos]
		rStr = rest[atPos+1:]
	}

	w, err := parseGeometryField("width", wStr, 4, 0)
	if err != nil {
		return 0, 0, 0, err
	}
	h, err := parseGeometryField("height", hStr, 4, 0)
	if err != nil {
		return 0, 0, 0, err
	}
	var r uint16
	if rStr != "" || strings.Contains(rest, "@") {
		r, err = parseGeometryField("refresh", rStr, 3, 255)
		if err != nil {
			return 0, 0, 0, err
		}
	}
	return w, h, r, nil
}

func parseGeometryField(name, s string, maxDigits int, ceiling uint64) (uint16, error) {
	if !digitsOnly(s) || len(s) > maxDigits {
		return 0, fmt.Errorf("%s must be 1-%d digits", name, maxDigits)
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%s must be a nonzero integer", name)
	}
	if ceiling != 0 && n > ceiling {
		return 0, fmt.Errorf("%s must be at most %d", name, ceiling)
	}
	return uint16(n), nil
}

// parseBoundedCount validates a 1-10 digit nonzero decimal. A nonzero
// ceiling bounds the value; ceiling 0 means unbounded. Parsing at the
// platform word size rejects values a uint cannot hold on 32-bit hosts.
func parseBoundedCount(s string, ceiling uint) (uint, error) {
	if !digitsOnly(s) || len(s) > 10 {
		return 0, fmt.Errorf("must be 1-10 decimal digits")
	}
	n, err := strconv.ParseUint(s, 10, strconv.IntSize)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("must be a nonzero integer")
	}
	if ceiling > 0 && n > uint64(ceiling) {
		return 0, fmt.Errorf("must be at most %d", ceiling)
	}
	return uint(n), nil
}

// parsePortGroup validates up to count comma-separated ports. Every
// present entry must be a 1-5 digit value in [LowestPort, HighestPort] and
// distinct from the entries before it; duplicates reject the whole group.
// Missing entries are filled consecutively after the last given value,
// failing if that would run past HighestPort.
func parsePortGroup(csv string, count int) ([]uint16, error) {
	tokens := strings.Split(csv, ",")
	if len(tokens) > count {
		return nil, fmt.Errorf("at most %d ports allowed", count)
	}
	group := make([]uint16, 0, count)
	for _, tok := range tokens {
		if !digitsOnly(tok) || len(tok) > 5 {
			return nil, fmt.Errorf("each port must be 1-5 decimal digits")
		}
		n, err := strconv.ParseUint(tok, 10, 64)
		if err != nil || n < LowestPort || n > HighestPort {
			return nil, fmt.Errorf("each port must be in range [%d,%d]", LowestPort, HighestPort)
		}
		p := uint16(n)
		for _, prev := range group {
			if prev == p {
				return nil, fmt.Errorf("port %d repeats within the group", p)
			}
		}
		group = append(group, p)
	}
	last := group[len(group)-1]
	missing := count - len(group)
	if int(last)+missing > HighestPort {
		return nil, fmt.Errorf("consecutive fill past port %d exceeds %d", last, HighestPort)
	}
	for j := 0; j < missing; j++ {
		last++
		group = append(group, last)
	}
	return group, nil
}

// parseFlip maps the single-character mirror selector.
func parseFlip(s string) (ports.Flip, error) {
	if len(s) != 1 {
		return ports.FlipNone, fmt.Errorf("choices are H, V, I")
	}
	switch s[0] {
	case 'H':
		return ports.FlipHorizontal, nil
	case 'V':
		return ports.FlipVertical, nil
	case 'I':
		return ports.FlipInvert, nil
	default:
		return ports.FlipNone, fmt.Errorf("choices are H, V, I")
	}
}

// parseRotate maps the single-character rotation selector.
func parseRotate(s string) (ports.Rotate, error) {
	if len(s) != 1 {
		return ports.RotateNone, fmt.Errorf("choices are L, R")
	}
	switch s[0] {
	case 'L':
		return ports.RotateLeft, nil
	case 'R':
		return ports.RotateRight, nil
	default:
		return ports.RotateNone, fmt.Errorf("choices are L, R")
	}
}

// ConfigFilePath extracts the "-c PATH" token from args before the main
// parse, so the file can be applied beneath the remaining tokens.
func ConfigFilePath(args []string) (string, error) {
	for i := 0; i < len(args); i++ {
		if args[i] != "-c" {
			continue
		}
		return takeValue(args, i, "-c")
	}
	return "", nil
}
