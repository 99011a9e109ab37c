package main

import (
	"AddrSpectra/internal/config"
	"AddrSpectra/internal/engine/impl/histogram"
	"AddrSpectra/internal/engine/protocol"
	"AddrSpectra/internal/model"
	"AddrSpectra/internal/probe"
	"AddrSpectra/internal/probe/persistent"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

const (
	snapshotLen int32 = 1600
	promiscuous       = true
	timeout           = pcap.BlockForever
)

func main() {
	// --- Command-Line Flag Parsing ---
	mode := flag.String("mode", "sub", "Operating mode: 'pub' to capture and publish, 'sub' to subscribe and print.")
	iface := flag.String("iface", "", "Interface to capture packets from (required for pub mode).")
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// --- Mode Dispatch ---
	switch *mode {
	case "pub":
		runProbe(cfg.Probe, *iface)
	case "sub":
		runSubscriber(cfg.Probe)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runProbe captures packets from an interface and publishes their network layer to NATS.
func runProbe(cfg config.ProbeConfig, interfaceName string) {
	if interfaceName == "" {
		log.Println("Error: -iface flag is required for probe mode.")
		flag.Usage()
		os.Exit(1)
	}
	log.Printf("Starting ns-probe in PROBE mode on interface: %s", interfaceName)

	pub, err := probe.NewPublisher(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	handle, err := pcap.OpenLive(interfaceName, snapshotLen, promiscuous, timeout)
	if err != nil {
		log.Fatalf("Error opening device %s: %v", interfaceName, err)
	}
	defer handle.Close()

	var store *persistent.Worker
	if cfg.Persistence.Enabled {
		store, err = persistent.NewWorker(cfg.Persistence, handle.LinkType())
		if err != nil {
			log.Fatalf("Failed to start persistence: %v", err)
		}
		defer store.Stop()
		log.Printf("Persisting packets to %s", store.Path())
	}

	log.Println("Capture started successfully. Publishing packets to NATS...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
		packetsPublished := 0
		for packet := range packetSource.Packets() {
			info, err := protocol.ParsePacket(packet)
			if err != nil {
				continue // no network layer
			}
			if store != nil {
				store.Enqueue(&persistent.PacketContainer{
					CaptureInfo: packet.Metadata().CaptureInfo,
					Frame:       packet.Data(),
					PacketInfo:  info,
				})
			}
			if err := pub.Publish(info); err != nil {
				log.Printf("Failed to publish packet: %v", err)
				continue
			}
			packetsPublished++
			if packetsPublished%1000 == 0 {
				log.Printf("%d packets published...", packetsPublished)
			}
		}
	}()

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	if store != nil && store.Dropped() > 0 {
		log.Printf("Persistence dropped %d packets.", store.Dropped())
	}
}

// runSubscriber subscribes to NATS and prints every decoded packet.
func runSubscriber(cfg config.ProbeConfig) {
	log.Println("Starting ns-probe in SUBSCRIBER mode...")

	sub, err := probe.NewSubscriber(cfg)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	extractor := histogram.NewExtractor(histogram.SourceOrDestination)
	handler := func(info *model.PacketInfo) {
		log.Printf("Received Packet: %s (%d bytes)", strings.Join(extractor.Keys(info.Network), " -> "), info.Length)
	}

	if err := sub.Start(handler); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}
