package probe

import (
	"AddrSpectra/internal/model"
	"bytes"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestEncodeDecodeMsg(t *testing.T) {
	ts := time.Unix(1700000000, 123456789)
	info := &model.PacketInfo{Timestamp: ts, Network: []byte{0x45, 0x00, 0x00, 0x14}, Length: 60}

	msg, err := EncodeMsg("addrspectra.packets.raw", info)
	if err != nil {
		t.Fatalf("EncodeMsg failed: %v", err)
	}
	if msg.Subject != "addrspectra.packets.raw" {
		t.Errorf("Unexpected subject %q", msg.Subject)
	}

	got, err := DecodeMsg(msg)
	if err != nil {
		t.Fatalf("DecodeMsg failed: %v", err)
	}
	if !got.Timestamp.Equal(ts) || got.Length != 60 || !bytes.Equal(got.Network, info.Network) {
		t.Errorf("Round trip mismatch: %+v", got)
	}
}

func TestDecodeMsg_WithoutHeaders(t *testing.T) {
	msg, err := EncodeMsg("s", &model.PacketInfo{Network: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("EncodeMsg failed: %v", err)
	}
	got, err := DecodeMsg(&nats.Msg{Data: msg.Data})
	if err != nil {
		t.Fatalf("DecodeMsg failed: %v", err)
	}
	if got.Length != 3 {
		t.Errorf("Expected payload length fallback, got %d", got.Length)
	}
}

func TestDecodeMsg_Garbage(t *testing.T) {
	if _, err := DecodeMsg(&nats.Msg{Data: []byte{0xff, 0xff, 0xff}}); err == nil {
		t.Error("Expected error for invalid protobuf")
	}
}
