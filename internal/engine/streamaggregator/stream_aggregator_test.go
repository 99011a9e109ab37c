package streamaggregator

import (
	"AddrSpectra/internal/config"
	"AddrSpectra/internal/engine/impl/histogram"
	"AddrSpectra/internal/engine/manager"
	"AddrSpectra/internal/factory"
	"AddrSpectra/internal/model"
	"AddrSpectra/internal/probe"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestHandlePacket(t *testing.T) {
	task, err := histogram.New(config.HistogramTaskDef{Name: "src", Relationship: "src", MaxBars: 1})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	mgr, err := manager.NewManagerWithGroups([]factory.TaskGroup{{Tasks: []model.Task{task}}}, time.Hour, 1, 4)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	sa := newWithManager(mgr, config.ProbeConfig{Subject: "test"})
	mgr.Start()

	header := make([]byte, 20)
	header[0], header[3] = 0x45, 20
	copy(header[12:], []byte{203, 0, 113, 5, 10, 0, 0, 1})
	msg, err := probe.EncodeMsg("test", &model.PacketInfo{Timestamp: time.Now(), Network: header, Length: 20})
	if err != nil {
		t.Fatalf("EncodeMsg failed: %v", err)
	}

	sa.handlePacket(msg)
	sa.handlePacket(&nats.Msg{Data: []byte{0xff, 0xff}})
	sa.Stop()

	if sa.received.Load() != 1 || sa.malformed.Load() != 1 {
		t.Errorf("Expected 1 received and 1 malformed, got %d and %d", sa.received.Load(), sa.malformed.Load())
	}
	snapshot := task.Snapshot().(histogram.Snapshot)
	if snapshot.Top.Entries[0].Key != "203.0.113.5" {
		t.Errorf("Unexpected top entry %+v", snapshot.Top.Entries[0])
	}
}
