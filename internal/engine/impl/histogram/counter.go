package histogram

import (
	"AddrSpectra/internal/model"
	"net/netip"
)

// Counter is an accumulating address-frequency structure a task can count into.
// Implementations are not required to be safe for concurrent use.
type Counter interface {
	FrequencySource
	Add(addr netip.Addr, n uint64)
	Reset()
}

// FrequencySource is anything that can export (address, count) pairs and the sum of all counts.
type FrequencySource interface {
	Export() []model.AddrCount
	Sum() uint64
}

// Histogram is the exact accumulating mapping keyed by canonical address key.
// It is owned by one aggregation session and is not safe for concurrent use.
type Histogram struct {
	extractor Extractor
	entries   map[string]*Entry
	sum       uint64
}

// NewHistogram creates an empty histogram that ingests packets with the given relationship.
func NewHistogram(relationship Relationship) *Histogram {
	return &Histogram{
		extractor: NewExtractor(relationship),
		entries:   make(map[string]*Entry),
	}
}

// Ingest extracts the addresses of one packet and increments each by one.
// It returns the addresses counted; unparseable packets count nothing.
func (h *Histogram) Ingest(network []byte) []netip.Addr {
	return ingest(h, h.extractor, network)
}

func ingest(c Counter, e Extractor, network []byte) []netip.Addr {
	addrs := e.Addresses(network)
	for _, addr := range addrs {
		c.Add(addr, 1)
	}
	return addrs
}

// Add increments the count of addr by n.
func (h *Histogram) Add(addr netip.Addr, n uint64) {
	if n == 0 || !addr.IsValid() {
		return
	}
	key := FormatKey(addr)
	if e, ok := h.entries[key]; ok {
		e.Count += n
	} else {
		h.entries[key] = &Entry{Key: key, Addr: addr, Count: n}
	}
	h.sum += n
}

// Count returns the current count of a canonical key.
func (h *Histogram) Count(key string) uint64 {
	if e, ok := h.entries[key]; ok {
		return e.Count
	}
	return 0
}

// Entries returns a copy of every entry, in no particular order.
func (h *Histogram) Entries() []Entry {
	out := make([]Entry, 0, len(h.entries))
	for _, e := range h.entries {
		out = append(out, *e)
	}
	return out
}

// Export implements FrequencySource.
func (h *Histogram) Export() []model.AddrCount {
	out := make([]model.AddrCount, 0, len(h.entries))
	for _, e := range h.entries {
		out = append(out, model.AddrCount{Addr: e.Addr, Count: e.Count})
	}
	return out
}

// Sum returns the total of all counts.
func (h *Histogram) Sum() uint64 {
	return h.sum
}

// Len returns the number of distinct keys.
func (h *Histogram) Len() int {
	return len(h.entries)
}

// Reset drops every entry.
func (h *Histogram) Reset() {
	h.entries = make(map[string]*Entry)
	h.sum = 0
}
