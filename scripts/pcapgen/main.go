package main

import (
	"flag"
	"log"
	"math/rand/v2"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

func main() {
	outputFile := flag.String("o", "test.pcap", "Output pcap file path")
	packetCount := flag.Int("c", 1000, "Number of packets to generate")
	hosts := flag.Int("hosts", 4096, "Number of distinct hosts per address family")
	skew := flag.Float64("skew", 1.1, "Zipf exponent of the host popularity, must be > 1")
	v6Share := flag.Float64("v6", 0.3, "Fraction of IPv6 packets")
	flag.Parse()

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	pcapWriter := pcapgo.NewWriter(f)
	if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		log.Fatalf("Failed to write pcap header: %v", err)
	}

	r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	zipf := rand.NewZipf(r, *skew, 1, uint64(*hosts-1))

	log.Printf("Generating %d packets into %s...", *packetCount, *outputFile)

	start := time.Now()
	for i := 0; i < *packetCount; i++ {
		if (i+1)%100000 == 0 {
			log.Printf("Generated %d packets...", i+1)
		}

		// Popular hosts send most of the traffic; receivers are uniform.
		src, dst := zipf.Uint64(), r.Uint64N(uint64(*hosts))
		v6 := r.Float64() < *v6Share

		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
			DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
			EthernetType: layers.EthernetTypeIPv4,
		}
		udp := &layers.UDP{
			SrcPort: layers.UDPPort(r.IntN(65535-1024) + 1024),
			DstPort: 53,
		}

		var ip gopacket.SerializableLayer
		if v6 {
			eth.EthernetType = layers.EthernetTypeIPv6
			ip6 := &layers.IPv6{
				Version:    6,
				HopLimit:   64,
				NextHeader: layers.IPProtocolUDP,
				SrcIP:      hostV6(src),
				DstIP:      hostV6(dst),
			}
			udp.SetNetworkLayerForChecksum(ip6)
			ip = ip6
		} else {
			ip4 := &layers.IPv4{
				Version:  4,
				TTL:      64,
				Protocol: layers.IPProtocolUDP,
				SrcIP:    hostV4(src),
				DstIP:    hostV4(dst),
			}
			udp.SetNetworkLayerForChecksum(ip4)
			ip = ip4
		}

		payload := make([]byte, r.IntN(512)+16)
		for j := range payload {
			payload[j] = byte(r.UintN(256))
		}

		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{
			ComputeChecksums: true,
			FixLengths:       true,
		}
		if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
			log.Fatalf("Failed to serialize layers: %v", err)
		}

		ci := gopacket.CaptureInfo{
			Timestamp:     start.Add(time.Duration(i) * time.Microsecond),
			CaptureLength: len(buf.Bytes()),
			Length:        len(buf.Bytes()),
		}
		if err := pcapWriter.WritePacket(ci, buf.Bytes()); err != nil {
			log.Fatalf("Failed to write packet: %v", err)
		}
	}

	log.Printf("Successfully generated %d packets into %s.", *packetCount, *outputFile)
}

func hostV4(n uint64) net.IP {
	return net.IP{10, byte(n >> 16), byte(n >> 8), byte(n)}
}

func hostV6(n uint64) net.IP {
	ip := net.ParseIP("2001:db8::")
	ip[13], ip[14], ip[15] = byte(n>>16), byte(n>>8), byte(n)
	return ip
}
