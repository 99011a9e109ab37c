package histogram

import (
	"bytes"
	"cmp"
	"net/netip"
	"slices"
)

// Entry is one (key, count) pair of a histogram.
type Entry struct {
	Key   string
	Addr  netip.Addr
	Count uint64
}

// IsEmpty reports whether the entry is a padding slot.
func (e Entry) IsEmpty() bool {
	return e.Key == "" && e.Count == 0
}

// TopN is a fixed-width ranked list of the heaviest addresses plus the total of all counts,
// including those that did not make the list.
type TopN struct {
	Entries    []Entry
	TotalCount uint64
}

// Shown returns the sum of the counts in the list.
func (t TopN) Shown() uint64 {
	var sum uint64
	for _, e := range t.Entries {
		sum += e.Count
	}
	return sum
}

// Compare orders entries by count descending, then by raw address bytes descending.
// An IPv4 address and an IPv6 address with the same leading bytes (10.0.0.1 and 0a00:0001::)
// share a byte layout; the IPv6 address ranks first, and the key decides anything left.
// Distinct keys never compare equal.
func Compare(a, b Entry) int {
	if c := cmp.Compare(b.Count, a.Count); c != 0 {
		return c
	}
	ab, bb := addrBytes(a.Addr), addrBytes(b.Addr)
	if c := bytes.Compare(bb[:], ab[:]); c != 0 {
		return c
	}
	if a4, b4 := a.Addr.Is4(), b.Addr.Is4(); a4 != b4 {
		if a4 {
			return 1
		}
		return -1
	}
	return cmp.Compare(b.Key, a.Key)
}

// Sort orders entries in place with Compare. Entries that compare equal keep their input order.
func Sort(entries []Entry) {
	slices.SortStableFunc(entries, Compare)
}

// Reduce ranks entries and keeps exactly n slots, padding with empty entries when fewer exist.
// TotalCount is the sum over all entries. The input slice is not modified.
func Reduce(entries []Entry, n int) TopN {
	var total uint64
	for _, e := range entries {
		total += e.Count
	}
	return reduce(slices.Clone(entries), total, n)
}

// FromSource ranks the pairs exported by a frequency structure and uses its aggregate sum as
// TotalCount.
func FromSource(src FrequencySource, n int) TopN {
	return reduce(entriesOf(src), src.Sum(), n)
}

// Ranked returns every pair exported by src as entries ordered by Compare.
func Ranked(src FrequencySource) []Entry {
	entries := entriesOf(src)
	Sort(entries)
	return entries
}

func entriesOf(src FrequencySource) []Entry {
	pairs := src.Export()
	entries := make([]Entry, 0, len(pairs))
	for _, p := range pairs {
		entries = append(entries, Entry{Key: FormatKey(p.Addr), Addr: p.Addr, Count: p.Count})
	}
	return entries
}

func reduce(entries []Entry, total uint64, n int) TopN {
	if n < 0 {
		n = 0
	}
	Sort(entries)

	top := make([]Entry, n)
	copy(top, entries)
	return TopN{Entries: top, TotalCount: total}
}
