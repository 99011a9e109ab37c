package persistent

import (
	"AddrSpectra/internal/config"
	"AddrSpectra/internal/engine/impl/histogram"
	"AddrSpectra/internal/engine/protocol"
	"AddrSpectra/internal/model"
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const defaultChannelBufferSize = 10000

// PacketContainer holds both the captured frame and the parsed info.
type PacketContainer struct {
	CaptureInfo gopacket.CaptureInfo
	Frame       []byte
	PacketInfo  *model.PacketInfo
}

// Worker writes captured packets to a single file in the background.
// One goroutine owns the file so records never interleave.
type Worker struct {
	packetChan chan *PacketContainer
	file       *os.File
	dropped    int
	mu         sync.Mutex
	done       chan struct{}
}

// NewWorker creates the output file and starts the writer goroutine.
// linkType is only used by the pcap encoding.
func NewWorker(cfg config.PersistenceConfig, linkType layers.LinkType) (*Worker, error) {
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create persistence directory: %w", err)
	}

	var ext string
	switch cfg.Encoding {
	case "pcap":
		ext = ".pcap"
	case "gob":
		ext = ".gob"
	case "text":
		ext = ".log"
	default:
		return nil, fmt.Errorf("unknown persistence encoding: '%s'", cfg.Encoding)
	}

	bufferSize := cfg.ChannelBufferSize
	if bufferSize <= 0 {
		bufferSize = defaultChannelBufferSize
	}

	filePath := filepath.Join(cfg.Path, time.Now().Format("2006-01-02_15-04-05")+ext)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	w := &Worker{
		packetChan: make(chan *PacketContainer, bufferSize),
		file:       file,
		done:       make(chan struct{}),
	}

	buffered := bufio.NewWriter(file)
	var encode func(*PacketContainer) error
	switch cfg.Encoding {
	case "pcap":
		pcapWriter := pcapgo.NewWriter(buffered)
		if err := pcapWriter.WriteFileHeader(65536, linkType); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write pcap file header: %w", err)
		}
		encode = func(c *PacketContainer) error {
			return pcapWriter.WritePacket(c.CaptureInfo, c.Frame)
		}
	case "gob":
		encoder := gob.NewEncoder(buffered)
		encode = func(c *PacketContainer) error {
			return encoder.Encode(c.PacketInfo)
		}
	case "text":
		encode = func(c *PacketContainer) error {
			return writeTextLine(buffered, c.PacketInfo)
		}
	}

	go w.run(buffered, encode)
	log.Printf("Persistent worker started, encoding: %s, writing to: %s", cfg.Encoding, filePath)
	return w, nil
}

// Path returns the output file path.
func (w *Worker) Path() string {
	return w.file.Name()
}

func (w *Worker) run(buffered *bufio.Writer, encode func(*PacketContainer) error) {
	defer close(w.done)
	for container := range w.packetChan {
		if err := encode(container); err != nil {
			log.Printf("PersistentWorker: Error writing packet: %v", err)
		}
	}
	if err := buffered.Flush(); err != nil {
		log.Printf("PersistentWorker: Error flushing file: %v", err)
	}
	if err := w.file.Close(); err != nil {
		log.Printf("PersistentWorker: Error closing file: %v", err)
	}
}

// writeTextLine writes "timestamp src -> dst len" using canonical address keys.
// Packets that are neither IPv4 nor IPv6 are written with "-" addresses.
func writeTextLine(out io.Writer, info *model.PacketInfo) error {
	src, dst := "-", "-"
	if s, d, ok := protocol.ParseIPv4(info.Network); ok {
		src, dst = histogram.FormatKey(s), histogram.FormatKey(d)
	} else if s, d, ok := protocol.ParseIPv6(info.Network); ok {
		src, dst = histogram.FormatKey(s), histogram.FormatKey(d)
	}
	_, err := fmt.Fprintf(out, "%s %s -> %s %d\n",
		info.Timestamp.Format("2006-01-02 15:04:05.000"), src, dst, info.Length)
	return err
}

// Stop closes the queue and waits until every queued packet is on disk.
func (w *Worker) Stop() {
	close(w.packetChan)
	<-w.done
	log.Printf("Persistent worker stopped and file closed (%d packets dropped).", w.Dropped())
}

// Enqueue hands a packet to the writer without blocking; it is dropped when the queue is full.
func (w *Worker) Enqueue(container *PacketContainer) {
	select {
	case w.packetChan <- container:
	default:
		w.mu.Lock()
		w.dropped++
		w.mu.Unlock()
	}
}

// Dropped returns how many packets were dropped because the queue was full.
func (w *Worker) Dropped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}
