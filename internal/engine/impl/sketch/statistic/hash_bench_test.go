package statistic

import (
	"hash/crc32"
	"math/rand/v2"
	"testing"
)

func benchKeys() [][]byte {
	r := rand.New(rand.NewPCG(7, 7))
	keys := make([][]byte, 1024)
	for i := range keys {
		k := make([]byte, FingerprintSize)
		for j := range k {
			k[j] = byte(r.UintN(256))
		}
		keys[i] = k
	}
	return keys
}

func BenchmarkMurmurHash3(b *testing.B) {
	keys := benchKeys()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MurmurHash3(keys[i%len(keys)], 42)
	}
}

func BenchmarkCRC32(b *testing.B) {
	keys := benchKeys()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		crc32.ChecksumIEEE(keys[i%len(keys)])
	}
}

// Uniformity check: bucket occupancy over a small table should stay close to the mean.
func TestMurmurHash3_Spread(t *testing.T) {
	const buckets = 64
	keys := benchKeys()
	var hist [buckets]int
	for _, k := range keys {
		hist[MurmurHash3(k, 1)%buckets]++
	}
	mean := len(keys) / buckets
	for i, c := range hist {
		if c == 0 || c > 3*mean {
			t.Errorf("bucket %d holds %d keys, mean is %d", i, c, mean)
		}
	}
}
