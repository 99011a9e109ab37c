package pcap

import (
	"AddrSpectra/internal/model"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var (
	srcMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	dstMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

func frame(t *testing.T, l ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, l...); err != nil {
		t.Fatalf("failed to serialize frame: %v", err)
	}
	return buf.Bytes()
}

func writeCapture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mixed.pcap")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create capture: %v", err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("Failed to write header: %v", err)
	}

	payload := gopacket.Payload(make([]byte, 32))
	frames := [][]byte{
		frame(t,
			&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4},
			&layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolUDP,
				SrcIP: net.IP{192, 0, 2, 1}, DstIP: net.IP{198, 51, 100, 1}},
			&layers.UDP{SrcPort: 1000, DstPort: 53},
			payload),
		frame(t,
			&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv6},
			&layers.IPv6{Version: 6, HopLimit: 64, NextHeader: layers.IPProtocolUDP,
				SrcIP: net.ParseIP("2001:db8::1"), DstIP: net.ParseIP("2001:db8::2")},
			&layers.UDP{SrcPort: 1000, DstPort: 53},
			payload),
		frame(t,
			&layers.Ethernet{SrcMAC: srcMAC, DstMAC: net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, EthernetType: layers.EthernetTypeARP},
			&layers.ARP{AddrType: layers.LinkTypeEthernet, Protocol: layers.EthernetTypeIPv4,
				HwAddressSize: 6, ProtAddressSize: 4, Operation: layers.ARPRequest,
				SourceHwAddress: srcMAC, SourceProtAddress: []byte{192, 0, 2, 1},
				DstHwAddress: make([]byte, 6), DstProtAddress: []byte{192, 0, 2, 2}}),
	}

	ts := time.Unix(1700000000, 0)
	for i, data := range frames {
		ci := gopacket.CaptureInfo{Timestamp: ts.Add(time.Duration(i) * time.Second), CaptureLength: len(data), Length: len(data)}
		if err := w.WritePacket(ci, data); err != nil {
			t.Fatalf("Failed to write packet: %v", err)
		}
	}
	return path
}

func TestReader_ReadPackets(t *testing.T) {
	reader, err := NewReader(writeCapture(t))
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	defer reader.Close()

	if reader.LinkType() != layers.LinkTypeEthernet {
		t.Errorf("Expected Ethernet link type, got %v", reader.LinkType())
	}

	out := make(chan *model.PacketInfo)
	go reader.ReadPackets(out)

	var infos []*model.PacketInfo
	for info := range out {
		infos = append(infos, info)
	}

	if len(infos) != 2 {
		t.Fatalf("Expected 2 IP packets, got %d", len(infos))
	}
	if reader.Skipped() != 1 || reader.Read() != 2 {
		t.Errorf("Expected 2 read and 1 skipped, got %d and %d", reader.Read(), reader.Skipped())
	}
	if infos[0].Network[0]>>4 != 4 || infos[1].Network[0]>>4 != 6 {
		t.Error("Packets should keep capture order and carry their IP headers")
	}
	if !infos[0].Timestamp.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("Unexpected timestamp %v", infos[0].Timestamp)
	}
}

func TestNewReader_Errors(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.pcap")); err == nil {
		t.Error("Expected error for missing file")
	}

	garbage := filepath.Join(t.TempDir(), "garbage.pcap")
	if err := os.WriteFile(garbage, []byte("not a capture file"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader(garbage); err == nil {
		t.Error("Expected error for invalid header")
	}
}
