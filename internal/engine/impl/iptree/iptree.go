// Package iptree implements a binary radix trie that counts addresses by their bits.
// IPv4 and IPv6 addresses live under separate roots, so the two families never share a path.
package iptree

import (
	"AddrSpectra/internal/model"
	"net/netip"
)

type node struct {
	child [2]*node
	count uint64 // only set on leaves
}

// Tree accumulates address counts. It is not safe for concurrent use.
type Tree struct {
	v4, v6 *node
	sum    uint64
	size   int
}

// New creates an empty tree.
func New() *Tree {
	return &Tree{v4: &node{}, v6: &node{}}
}

// Add increments the count of addr by n.
func (t *Tree) Add(addr netip.Addr, n uint64) {
	if n == 0 || !addr.IsValid() {
		return
	}

	root, raw := t.v6, addr.AsSlice()
	if addr.Is4() {
		root = t.v4
	}

	cur := root
	for _, b := range raw {
		for bit := 7; bit >= 0; bit-- {
			idx := (b >> uint(bit)) & 1
			if cur.child[idx] == nil {
				cur.child[idx] = &node{}
			}
			cur = cur.child[idx]
		}
	}
	if cur.count == 0 {
		t.size++
	}
	cur.count += n
	t.sum += n
}

// Query returns the count of a single address.
func (t *Tree) Query(addr netip.Addr) uint64 {
	if !addr.IsValid() {
		return 0
	}
	cur, raw := t.v6, addr.AsSlice()
	if addr.Is4() {
		cur = t.v4
	}
	for _, b := range raw {
		for bit := 7; bit >= 0; bit-- {
			cur = cur.child[(b>>uint(bit))&1]
			if cur == nil {
				return 0
			}
		}
	}
	return cur.count
}

// Sum returns the total of all counts.
func (t *Tree) Sum() uint64 {
	return t.sum
}

// Size returns the number of distinct addresses.
func (t *Tree) Size() int {
	return t.size
}

// Export walks the tree and returns every counted address in ascending address order,
// IPv4 before IPv6.
func (t *Tree) Export() []model.AddrCount {
	out := make([]model.AddrCount, 0, t.size)
	var v4 [4]byte
	walk(t.v4, v4[:], 0, func(raw []byte, count uint64) {
		out = append(out, model.AddrCount{Addr: netip.AddrFrom4([4]byte(raw)), Count: count})
	})
	var v6 [16]byte
	walk(t.v6, v6[:], 0, func(raw []byte, count uint64) {
		out = append(out, model.AddrCount{Addr: netip.AddrFrom16([16]byte(raw)), Count: count})
	})
	return out
}

// walk visits leaves depth first, building the address bit by bit in buf.
func walk(n *node, buf []byte, depth int, visit func(raw []byte, count uint64)) {
	if n == nil {
		return
	}
	if depth == len(buf)*8 {
		if n.count > 0 {
			visit(buf, n.count)
		}
		return
	}

	byteIdx, mask := depth/8, byte(1)<<uint(7-depth%8)
	buf[byteIdx] &^= mask
	walk(n.child[0], buf, depth+1, visit)
	buf[byteIdx] |= mask
	walk(n.child[1], buf, depth+1, visit)
	buf[byteIdx] &^= mask
}

// Reset drops every address.
func (t *Tree) Reset() {
	t.v4, t.v6 = &node{}, &node{}
	t.sum, t.size = 0, 0
}
