package histogram

import (
	"AddrSpectra/internal/engine/protocol"
	"net/netip"
)

// Extractor picks the addresses a packet contributes to a histogram.
type Extractor struct {
	relationship Relationship
}

// NewExtractor creates an extractor for the given relationship.
func NewExtractor(relationship Relationship) Extractor {
	return Extractor{relationship: relationship}
}

// Relationship returns the configured relationship.
func (e Extractor) Relationship() Relationship {
	return e.relationship
}

// Addresses returns zero, one or two addresses for one packet's network-layer bytes.
// IPv4 is tried first, then IPv6; anything else yields nothing.
// With SourceOrDestination both addresses are returned even when they are equal.
func (e Extractor) Addresses(network []byte) []netip.Addr {
	src, dst, ok := protocol.ParseIPv4(network)
	if !ok {
		src, dst, ok = protocol.ParseIPv6(network)
	}
	if !ok {
		return nil
	}

	out := make([]netip.Addr, 0, 2)
	if e.relationship.wantSource() {
		out = append(out, src)
	}
	if e.relationship.wantDestination() {
		out = append(out, dst)
	}
	return out
}

// Keys is Addresses formatted with FormatKey.
func (e Extractor) Keys(network []byte) []string {
	addrs := e.Addresses(network)
	if len(addrs) == 0 {
		return nil
	}
	keys := make([]string, len(addrs))
	for i, addr := range addrs {
		keys[i] = FormatKey(addr)
	}
	return keys
}
