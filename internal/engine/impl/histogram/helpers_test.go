package histogram

import (
	"net"
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// networkBytes serializes an IP header with a small UDP datagram behind it.
func networkBytes(t *testing.T, src, dst string) []byte {
	t.Helper()

	srcAddr, err := netip.ParseAddr(src)
	if err != nil {
		t.Fatalf("invalid source address %q: %v", src, err)
	}
	dstAddr, err := netip.ParseAddr(dst)
	if err != nil {
		t.Fatalf("invalid destination address %q: %v", dst, err)
	}
	srcIP, dstIP := net.IP(srcAddr.AsSlice()), net.IP(dstAddr.AsSlice())
	udp := &layers.UDP{SrcPort: 40000, DstPort: 53}
	payload := gopacket.Payload([]byte("ping"))

	var ip gopacket.SerializableLayer
	if srcAddr.Is4() {
		ip = &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    srcIP,
			DstIP:    dstIP,
		}
	} else {
		ip = &layers.IPv6{
			Version:    6,
			HopLimit:   64,
			NextHeader: layers.IPProtocolUDP,
			SrcIP:      srcIP,
			DstIP:      dstIP,
		}
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, udp, payload); err != nil {
		t.Fatalf("failed to serialize packet: %v", err)
	}
	return buf.Bytes()
}
