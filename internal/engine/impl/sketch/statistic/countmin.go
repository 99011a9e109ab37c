package statistic

import (
	"AddrSpectra/internal/model"
	"math"
	"math/rand/v2"
	"net/netip"
)

const (
	defaultWidth     = 1 << 16
	defaultDepth     = 3
	defaultThreshold = 1

	// FingerprintSize is one family byte followed by the 16 address bytes.
	FingerprintSize = 17
)

type fingerprint [FingerprintSize]byte

func fingerprintOf(addr netip.Addr) fingerprint {
	var fp fingerprint
	if addr.Is4() {
		fp[0] = 4
		v4 := addr.As4()
		copy(fp[1:], v4[:])
	} else {
		fp[0] = 6
		v6 := addr.As16()
		copy(fp[1:], v6[:])
	}
	return fp
}

func (fp fingerprint) addr() netip.Addr {
	if fp[0] == 4 {
		return netip.AddrFrom4([4]byte(fp[1:5]))
	}
	return netip.AddrFrom16([16]byte(fp[1:]))
}

// Bucket holds the current owner of a cell and its vote counter.
type Bucket struct {
	FP fingerprint
	C  uint32
}

// CountMin is a heavy-keeper style table: every row keeps one fingerprint per cell and a
// counter that grows on matches and decays on collisions, so heavy addresses win their cells.
// Counts are estimates; Sum is exact. It is not safe for concurrent use.
type CountMin struct {
	w, d, threshold uint32
	seed            []uint32
	table           [][]Bucket
	sum             uint64
}

// NewCountMin creates a table with the given geometry. Zero values fall back to defaults.
func NewCountMin(width, depth, threshold uint32) *CountMin {
	if width == 0 {
		width = defaultWidth
	}
	if depth == 0 {
		depth = defaultDepth
	}
	if threshold == 0 {
		threshold = defaultThreshold
	}

	seed := make([]uint32, depth)
	for i := range seed {
		seed[i] = rand.Uint32()
	}

	table := make([][]Bucket, depth)
	for i := range table {
		table[i] = make([]Bucket, width)
	}

	return &CountMin{
		w:         width,
		d:         depth,
		threshold: threshold,
		seed:      seed,
		table:     table,
	}
}

// Add records n occurrences of addr in one step per row, with the same outcome as n single
// insertions. Cell counters saturate at math.MaxUint32.
func (t *CountMin) Add(addr netip.Addr, n uint64) {
	if !addr.IsValid() || n == 0 {
		return
	}
	fp := fingerprintOf(addr)
	for i := 0; i < int(t.d); i++ {
		insert(&t.table[i][MurmurHash3(fp[:], t.seed[i])%t.w], fp, n)
	}
	t.sum += n
}

// insert applies n votes for fp to one cell. A rival owner loses one vote per insertion;
// the insertion that empties the cell takes it over with a count of 1.
func insert(b *Bucket, fp fingerprint, n uint64) {
	c := uint64(b.C)
	switch {
	case c == 0:
		b.FP, c = fp, n
	case b.FP == fp:
		if n > math.MaxUint32-c {
			c = math.MaxUint32
		} else {
			c += n
		}
	case n < c:
		c -= n
	default:
		b.FP, c = fp, n-c+1
	}
	b.C = uint32(min(c, math.MaxUint32))
}

// Query returns the estimated count of addr.
func (t *CountMin) Query(addr netip.Addr) uint64 {
	fp := fingerprintOf(addr)
	est := uint32(0)
	for i := 0; i < int(t.d); i++ {
		b := t.table[i][MurmurHash3(fp[:], t.seed[i])%t.w]
		if b.C > 0 && b.FP == fp {
			est = max(est, b.C)
		}
	}
	return uint64(est)
}

// Export returns every address that owns a cell with a counter at or above the threshold,
// using the highest counter across rows as its estimate.
func (t *CountMin) Export() []model.AddrCount {
	hh := make(map[fingerprint]uint32)
	for i := 0; i < int(t.d); i++ {
		for j := 0; j < int(t.w); j++ {
			b := t.table[i][j]
			if b.C == 0 {
				continue
			}
			hh[b.FP] = max(hh[b.FP], b.C)
		}
	}

	out := make([]model.AddrCount, 0, len(hh))
	for fp, c := range hh {
		if c < t.threshold {
			continue
		}
		out = append(out, model.AddrCount{Addr: fp.addr(), Count: uint64(c)})
	}
	return out
}

// Sum returns the exact number of recorded occurrences.
func (t *CountMin) Sum() uint64 {
	return t.sum
}

// Reset clears every cell.
func (t *CountMin) Reset() {
	for i := range t.table {
		clear(t.table[i])
	}
	t.sum = 0
}
