package histogram

import (
	"AddrSpectra/internal/config"
	"fmt"
	"net/netip"
	"strings"
)

// Relationship selects which addresses of a packet are counted.
type Relationship int

const (
	Source Relationship = iota
	Destination
	SourceOrDestination
)

// ParseRelationship maps the config spelling (src, dst, src_or_dst) to a Relationship.
func ParseRelationship(s string) (Relationship, error) {
	switch s {
	case "src":
		return Source, nil
	case "dst":
		return Destination, nil
	case "src_or_dst":
		return SourceOrDestination, nil
	default:
		return 0, fmt.Errorf("%w: '%s'", config.ErrUnknownRelationship, s)
	}
}

func (r Relationship) String() string {
	switch r {
	case Source:
		return "src"
	case Destination:
		return "dst"
	case SourceOrDestination:
		return "src_or_dst"
	default:
		return fmt.Sprintf("Relationship(%d)", int(r))
	}
}

func (r Relationship) wantSource() bool {
	return r == Source || r == SourceOrDestination
}

func (r Relationship) wantDestination() bool {
	return r == Destination || r == SourceOrDestination
}

const hexDigits = "0123456789abcdef"

// FormatKey returns the canonical key of an address: dotted decimal for IPv4, and eight
// zero-padded 16-bit hex groups for IPv6 with no "::" compression.
func FormatKey(addr netip.Addr) string {
	if addr.Is4() {
		return addr.String()
	}
	if !addr.Is6() {
		return ""
	}

	raw := addr.As16()
	var sb strings.Builder
	sb.Grow(39)
	for i := 0; i < 16; i += 2 {
		if i > 0 {
			sb.WriteByte(':')
		}
		sb.WriteByte(hexDigits[raw[i]>>4])
		sb.WriteByte(hexDigits[raw[i]&0x0f])
		sb.WriteByte(hexDigits[raw[i+1]>>4])
		sb.WriteByte(hexDigits[raw[i+1]&0x0f])
	}
	return sb.String()
}

// ParseKey is the inverse of FormatKey.
func ParseKey(key string) (netip.Addr, error) {
	return netip.ParseAddr(key)
}

// addrBytes lays an address out in a fixed 16-byte buffer, most significant byte first.
// IPv4 occupies the first four bytes and the rest stays zero.
func addrBytes(addr netip.Addr) [16]byte {
	var out [16]byte
	if addr.Is4() {
		v4 := addr.As4()
		copy(out[:], v4[:])
		return out
	}
	if addr.Is6() {
		return addr.As16()
	}
	return out
}
