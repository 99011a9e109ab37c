package probe

import (
	"AddrSpectra/internal/model"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	headerTimestamp = "Spectra-Ts"
	headerLength    = "Spectra-Len"
)

// EncodeMsg builds the NATS message for one packet: the network-layer bytes as a protobuf
// BytesValue in the body, capture time and wire length in headers.
func EncodeMsg(subject string, info *model.PacketInfo) (*nats.Msg, error) {
	data, err := proto.Marshal(wrapperspb.Bytes(info.Network))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal packet: %w", err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(headerTimestamp, strconv.FormatInt(info.Timestamp.UnixNano(), 10))
	msg.Header.Set(headerLength, strconv.Itoa(info.Length))
	return msg, nil
}

// DecodeMsg is the inverse of EncodeMsg. Missing headers fall back to the receive time and
// the payload length.
func DecodeMsg(msg *nats.Msg) (*model.PacketInfo, error) {
	var pb wrapperspb.BytesValue
	if err := proto.Unmarshal(msg.Data, &pb); err != nil {
		return nil, fmt.Errorf("failed to unmarshal packet: %w", err)
	}

	info := &model.PacketInfo{
		Timestamp: time.Now(),
		Network:   pb.GetValue(),
		Length:    len(pb.GetValue()),
	}
	if msg.Header == nil {
		return info, nil
	}
	if ts, err := strconv.ParseInt(msg.Header.Get(headerTimestamp), 10, 64); err == nil {
		info.Timestamp = time.Unix(0, ts)
	}
	if n, err := strconv.Atoi(msg.Header.Get(headerLength)); err == nil && n > 0 {
		info.Length = n
	}
	return info, nil
}
