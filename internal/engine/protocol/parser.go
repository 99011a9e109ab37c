package protocol

import (
	"AddrSpectra/internal/model"
	"fmt"
	"net/netip"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ParsePacket extracts the timestamp, wire length and network-layer bytes of a decoded packet.
// It fails only when the frame carries no network layer at all; whether that layer is usable
// IPv4 or IPv6 is decided later by ParseIPv4 and ParseIPv6.
func ParsePacket(packet gopacket.Packet) (*model.PacketInfo, error) {
	info := &model.PacketInfo{
		Timestamp: time.Now(), // Default to now, will be overwritten by packet metadata if available
		Length:    len(packet.Data()),
	}

	if meta := packet.Metadata(); meta != nil && !meta.Timestamp.IsZero() {
		info.Timestamp = meta.Timestamp
		if meta.Length > 0 {
			info.Length = meta.Length
		}
	}

	nl := packet.NetworkLayer()
	if nl == nil {
		return nil, fmt.Errorf("no network layer in packet")
	}

	header, payload := nl.LayerContents(), nl.LayerPayload()
	network := make([]byte, 0, len(header)+len(payload))
	network = append(network, header...)
	network = append(network, payload...)
	info.Network = network

	return info, nil
}

// ParseFrame decodes raw link-layer bytes of the given type and hands the result to ParsePacket.
func ParseFrame(data []byte, linkType gopacket.Decoder) (*model.PacketInfo, error) {
	return ParsePacket(gopacket.NewPacket(data, linkType, gopacket.Default))
}

// ParseIPv4 tries to read an IPv4 header from network-layer bytes.
// It reports false for anything that is not a well-formed IPv4 header.
func ParseIPv4(data []byte) (src, dst netip.Addr, ok bool) {
	if len(data) == 0 || data[0]>>4 != 4 {
		return netip.Addr{}, netip.Addr{}, false
	}

	var ip layers.IPv4
	if err := ip.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return netip.Addr{}, netip.Addr{}, false
	}

	src, srcOK := netip.AddrFromSlice(ip.SrcIP.To4())
	dst, dstOK := netip.AddrFromSlice(ip.DstIP.To4())
	if !srcOK || !dstOK {
		return netip.Addr{}, netip.Addr{}, false
	}
	return src, dst, true
}

// ParseIPv6 tries to read an IPv6 header from network-layer bytes.
// It reports false for anything that is not a well-formed IPv6 header.
func ParseIPv6(data []byte) (src, dst netip.Addr, ok bool) {
	if len(data) == 0 || data[0]>>4 != 6 {
		return netip.Addr{}, netip.Addr{}, false
	}

	var ip layers.IPv6
	if err := ip.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return netip.Addr{}, netip.Addr{}, false
	}

	src, srcOK := netip.AddrFromSlice(ip.SrcIP.To16())
	dst, dstOK := netip.AddrFromSlice(ip.DstIP.To16())
	if !srcOK || !dstOK {
		return netip.Addr{}, netip.Addr{}, false
	}
	return src, dst, true
}
