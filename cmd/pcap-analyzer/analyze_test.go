package main

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCapture(t *testing.T, pairs [][2]net.IP) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talkers.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	mac := net.HardwareAddr{0x02, 0, 0, 0, 0, 1}
	ts := time.Unix(1700000000, 0)
	for i, p := range pairs {
		eth := &layers.Ethernet{SrcMAC: mac, DstMAC: mac, EthernetType: layers.EthernetTypeIPv4}
		var ip gopacket.SerializableLayer = &layers.IPv4{Version: 4, IHL: 5, TTL: 64,
			Protocol: layers.IPProtocolUDP, SrcIP: p[0], DstIP: p[1]}
		if p[0].To4() == nil {
			eth.EthernetType = layers.EthernetTypeIPv6
			ip = &layers.IPv6{Version: 6, HopLimit: 64, NextHeader: layers.IPProtocolUDP, SrcIP: p[0], DstIP: p[1]}
		}
		buf := gopacket.NewSerializeBuffer()
		require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true},
			eth, ip, &layers.UDP{SrcPort: 5000, DstPort: 53}, gopacket.Payload([]byte("query"))))
		data := buf.Bytes()
		ci := gopacket.CaptureInfo{Timestamp: ts.Add(time.Duration(i) * time.Millisecond), CaptureLength: len(data), Length: len(data)}
		require.NoError(t, w.WritePacket(ci, data))
	}
	return path
}

func TestAnalyze(t *testing.T) {
	a, b := net.ParseIP("10.0.0.1").To4(), net.ParseIP("10.0.0.2").To4()
	v6a, v6b := net.ParseIP("2001:db8::1"), net.ParseIP("2001:db8::2")
	path := writeCapture(t, [][2]net.IP{{a, b}, {a, b}, {a, b}, {v6a, v6b}})
	chartPath := filepath.Join(t.TempDir(), "top.svg")

	var out bytes.Buffer
	snapshot, err := analyze(path, analyzeOptions{
		relationship: "src",
		bars:         3,
		backend:      "map",
		chartPath:    chartPath,
	}, &out)
	require.NoError(t, err)

	require.Len(t, snapshot.Top.Entries, 3)
	assert.Equal(t, "10.0.0.1", snapshot.Top.Entries[0].Key)
	assert.EqualValues(t, 3, snapshot.Top.Entries[0].Count)
	assert.Equal(t, "2001:0db8:0000:0000:0000:0000:0000:0001", snapshot.Top.Entries[1].Key)
	assert.True(t, snapshot.Top.Entries[2].IsEmpty())
	assert.EqualValues(t, 4, snapshot.Top.TotalCount)

	table := out.String()
	assert.Contains(t, table, "10.0.0.1")
	assert.Contains(t, table, "75.0%")
	assert.NotContains(t, table, "10.0.0.2")

	svg, err := os.ReadFile(chartPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(svg), "<svg"))
}

func TestAnalyze_Errors(t *testing.T) {
	_, err := analyze(filepath.Join(t.TempDir(), "missing.pcap"), analyzeOptions{relationship: "src"}, &bytes.Buffer{})
	assert.Error(t, err)

	path := writeCapture(t, nil)
	_, err = analyze(path, analyzeOptions{relationship: "sideways"}, &bytes.Buffer{})
	assert.Error(t, err)
}
