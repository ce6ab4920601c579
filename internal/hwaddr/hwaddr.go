// Package hwaddr provisions the 6-octet device identifier that discovery
// clients use to tell service instances apart. The identifier is either
// read from the host's primary network interface or synthesized with the
// locally-administered unicast bits set.
package hwaddr

import (
	"encoding/hex"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"
)

// Octets is the length of a device identifier.
const Octets = 6

// DeviceID is a MAC-style 6-octet identifier.
type DeviceID [Octets]byte

// defaultSources are the sysfs interface identity files, in priority order.
var defaultSources = []string{
	"/sys/class/net/eth0/address",
	"/sys/class/net/wlan0/address",
}

// String formats the identifier as lowercase colon-separated hex.
func (id DeviceID) String() string {
	parts := make([]string, Octets)
	for i, b := range id {
		parts[i] = hex.EncodeToString([]byte{b})
	}
	return strings.Join(parts, ":")
}

// Parse converts colon-separated hex into a DeviceID.
func Parse(s string) (DeviceID, error) {
	var id DeviceID
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != Octets {
		return id, fmt.Errorf("hwaddr: expected %d octets, got %d in %q", Octets, len(parts), s)
	}
	for i, p := range parts {
		b, err := hex.DecodeString(p)
		if err != nil || len(b) != 1 {
			return id, fmt.Errorf("hwaddr: bad octet %q in %q", p, s)
		}
		id[i] = b[0]
	}
	return id, nil
}

// Discover reads the identifier from the first readable interface identity
// source. The second result is false when no source is present or parseable.
func Discover() (DeviceID, bool) {
	return DiscoverFrom(defaultSources...)
}

// DiscoverFrom reads the identifier from the first readable of the given
// files. Exposed for tests.
func DiscoverFrom(paths ...string) (DeviceID, bool) {
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		id, err := Parse(string(raw))
		if err != nil {
			continue
		}
		return id, true
	}
	return DeviceID{}, false
}

var (
	rngOnce sync.Once
	rngMu   sync.Mutex
	rng     *rand.Rand
)

// Synthesize generates a random identifier. The first octet always carries
// the locally-administered bit set and the multicast bit clear, so the
// result never collides with the vendor-assigned unicast address space.
// The process-lifetime source is seeded from wall clock and pid so that
// concurrently launched instances diverge.
func Synthesize() DeviceID {
	rngOnce.Do(func() {
		rng = rand.New(rand.NewSource(time.Now().UnixNano() * int64(os.Getpid())))
	})
	rngMu.Lock()
	defer rngMu.Unlock()

	var id DeviceID
	id[0] = byte(rng.Intn(64))<<2 | 0x02
	for i := 1; i < Octets; i++ {
		id[i] = byte(rng.Intn(256))
	}
	return id
}
