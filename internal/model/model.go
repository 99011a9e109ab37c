package model

import (
	"net/netip"
	"time"
)

// PacketInfo holds what the engine needs from a single captured packet.
type PacketInfo struct {
	Timestamp time.Time
	// Network is the network-layer bytes of the packet, header included,
	// with any link-layer framing already stripped.
	Network []byte
	Length  int
}

// AddrCount is one (address, count) pair exported by a frequency structure.
type AddrCount struct {
	Addr  netip.Addr
	Count uint64
}
