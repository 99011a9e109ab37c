package streamaggregator

import (
	"AddrSpectra/internal/config"
	"AddrSpectra/internal/engine/manager"
	"AddrSpectra/internal/model"
	"AddrSpectra/internal/probe"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/nats-io/nats.go"
)

// StreamAggregator consumes packets from NATS and feeds them to a Manager.
type StreamAggregator struct {
	nc           *nats.Conn
	sub          *nats.Subscription
	manager      *manager.Manager
	inputChannel chan<- *model.PacketInfo
	natsURL      string
	natsSubject  string
	received     atomic.Uint64
	malformed    atomic.Uint64
}

// NewStreamAggregator creates a new real-time stream aggregator.
func NewStreamAggregator(cfg *config.Config) (*StreamAggregator, error) {
	mgr, err := manager.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	return newWithManager(mgr, cfg.Probe), nil
}

func newWithManager(mgr *manager.Manager, cfg config.ProbeConfig) *StreamAggregator {
	return &StreamAggregator{
		manager:      mgr,
		inputChannel: mgr.InputChannel(),
		natsURL:      cfg.NATSURL,
		natsSubject:  cfg.Subject,
	}
}

// Manager returns the underlying manager.
func (sa *StreamAggregator) Manager() *manager.Manager {
	return sa.manager
}

// Start connects to NATS, starts the underlying manager, and begins processing messages.
func (sa *StreamAggregator) Start() error {
	log.Println("StreamAggregator starting for nats: ", sa.natsURL)
	nc, err := nats.Connect(sa.natsURL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	sa.nc = nc

	sa.manager.Start()

	sa.sub, err = sa.nc.Subscribe(sa.natsSubject, sa.handlePacket)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	log.Printf("StreamAggregator subscribed to '%s'", sa.natsSubject)
	return nil
}

// Stop gracefully shuts down the aggregator.
func (sa *StreamAggregator) Stop() {
	log.Println("StreamAggregator stopping...")
	if sa.sub != nil {
		sa.sub.Unsubscribe()
	}
	if sa.nc != nil {
		sa.nc.Close()
	}
	// The manager closes its input channel, drains the workers and takes a final snapshot.
	sa.manager.Stop()
	log.Printf("StreamAggregator stopped after %d packets (%d malformed).", sa.received.Load(), sa.malformed.Load())
}

// handlePacket decodes the message and passes it to the manager's channel.
func (sa *StreamAggregator) handlePacket(msg *nats.Msg) {
	info, err := probe.DecodeMsg(msg)
	if err != nil {
		sa.malformed.Add(1)
		log.Printf("Error decoding packet: %v", err)
		return
	}
	sa.received.Add(1)
	sa.inputChannel <- info
}
