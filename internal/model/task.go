package model

import "AddrSpectra/internal/config"

// Task defines a single, self-contained aggregation task.
// This is the interface for the "execution layer".
type Task interface {
	ProcessPacket(packet *PacketInfo)
	Snapshot() any
	Reset()
	Name() string
	// AlerterMsg evaluates the given rules and returns a markdown fragment when any of them fire.
	AlerterMsg(rules []config.AlerterRule) string
}
