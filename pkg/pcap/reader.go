package pcap

import (
	"AddrSpectra/internal/engine/protocol"
	"AddrSpectra/internal/model"
	"bufio"
	"bytes"
	"fmt"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// Reader reads packets from a pcap or pcapng file.
type Reader struct {
	file     *os.File
	source   gopacket.PacketDataSource
	linkType layers.LinkType
	read     int
	skipped  int
}

// NewReader opens a capture file. The format is detected from its magic number.
func NewReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	buffered := bufio.NewReader(file)

	r := &Reader{file: file}
	magic, _ := buffered.Peek(len(pcapngMagic))
	if bytes.Equal(magic, pcapngMagic) {
		ng, err := pcapgo.NewNgReader(buffered, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to read pcapng header: %w", err)
		}
		r.source, r.linkType = ng, ng.LinkType()
	} else {
		pr, err := pcapgo.NewReader(buffered)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to read pcap header: %w", err)
		}
		r.source, r.linkType = pr, pr.LinkType()
	}
	return r, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// LinkType returns the link-layer type of the capture.
func (r *Reader) LinkType() layers.LinkType {
	return r.linkType
}

// ReadPackets parses every frame of the capture and sends the result to out.
// Frames without a network layer are skipped. It closes out when the file is exhausted.
func (r *Reader) ReadPackets(out chan<- *model.PacketInfo) {
	defer close(out)

	packetSource := gopacket.NewPacketSource(r.source, r.linkType)
	packetSource.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}
	for packet := range packetSource.Packets() {
		info, err := protocol.ParsePacket(packet)
		if err != nil {
			r.skipped++
			continue
		}
		r.read++
		out <- info
	}
}

// Read returns the number of frames delivered by ReadPackets.
func (r *Reader) Read() int {
	return r.read
}

// Skipped returns the number of frames ReadPackets dropped for lack of a network layer.
func (r *Reader) Skipped() int {
	return r.skipped
}
