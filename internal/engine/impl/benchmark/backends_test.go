package benchmark

import (
	"AddrSpectra/internal/config"
	"AddrSpectra/internal/engine/impl/histogram"
	"AddrSpectra/internal/model"
	"encoding/binary"
	"math/rand/v2"
	"testing"
	"time"
)

var packets []*model.PacketInfo

// skewedPackets builds IPv4 headers whose sources follow a Zipf distribution over a /16.
func skewedPackets(n int) []*model.PacketInfo {
	r := rand.New(rand.NewPCG(1, 2))
	zipf := rand.NewZipf(r, 1.2, 1, 1<<16-1)
	out := make([]*model.PacketInfo, n)
	for i := range out {
		hdr := make([]byte, 20)
		hdr[0] = 0x45
		binary.BigEndian.PutUint16(hdr[2:], 20)
		hdr[8] = 64
		hdr[9] = 17
		copy(hdr[12:], []byte{10, 1, 0, 0})
		binary.BigEndian.PutUint16(hdr[14:], uint16(zipf.Uint64()))
		copy(hdr[16:], []byte{192, 0, 2, byte(r.IntN(256))})
		out[i] = &model.PacketInfo{Timestamp: time.Unix(0, int64(i)), Network: hdr, Length: 20}
	}
	return out
}

func BenchmarkBackends(b *testing.B) {
	if packets == nil {
		packets = skewedPackets(1 << 16)
	}

	for _, backend := range []string{"map", "iptree", "countmin"} {
		def := config.HistogramTaskDef{
			Name:         backend,
			Relationship: "src",
			MaxBars:      10,
			Backend:      backend,
			Sketch:       config.SketchDef{Width: 1 << 13, Depth: 3, Threshold: 16},
		}

		b.Run("Insert_"+backend, func(b *testing.B) {
			task, err := histogram.New(def)
			if err != nil {
				b.Fatal(err)
			}
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					task.ProcessPacket(packets[i%len(packets)])
					i++
				}
			})
		})

		b.Run("Snapshot_"+backend, func(b *testing.B) {
			task, err := histogram.New(def)
			if err != nil {
				b.Fatal(err)
			}
			for _, p := range packets {
				task.ProcessPacket(p)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = task.Snapshot()
			}
		})
	}
}
