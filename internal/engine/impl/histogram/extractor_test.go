package histogram

import (
	"errors"
	"net/netip"
	"testing"

	"AddrSpectra/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractor_Relationships(t *testing.T) {
	pkt := networkBytes(t, "192.0.2.1", "198.51.100.7")

	cases := []struct {
		rel  Relationship
		want []string
	}{
		{Source, []string{"192.0.2.1"}},
		{Destination, []string{"198.51.100.7"}},
		{SourceOrDestination, []string{"192.0.2.1", "198.51.100.7"}},
	}
	for _, c := range cases {
		t.Run(c.rel.String(), func(t *testing.T) {
			assert.Equal(t, c.want, NewExtractor(c.rel).Keys(pkt))
		})
	}
}

func TestExtractor_IPv6Key(t *testing.T) {
	pkt := networkBytes(t, "2001:db8::1", "2001:db8::ff")
	keys := NewExtractor(Source).Keys(pkt)
	require.Len(t, keys, 1)
	assert.Equal(t, "2001:0db8:0000:0000:0000:0000:0000:0001", keys[0])
}

func TestExtractor_MalformedInputIsSkipped(t *testing.T) {
	e := NewExtractor(SourceOrDestination)
	for name, data := range map[string][]byte{
		"nil":         nil,
		"empty":       {},
		"short v4":    {0x45, 0x00, 0x00},
		"short v6":    {0x60, 0x00, 0x00, 0x00},
		"bad version": make([]byte, 40),
	} {
		assert.Empty(t, e.Addresses(data), name)
	}
}

func TestExtractor_SameSourceAndDestinationCountsTwice(t *testing.T) {
	h := NewHistogram(SourceOrDestination)
	counted := h.Ingest(networkBytes(t, "127.0.0.1", "127.0.0.1"))

	assert.Len(t, counted, 2)
	assert.Equal(t, uint64(2), h.Count("127.0.0.1"))
	assert.Equal(t, uint64(2), h.Sum())
	assert.Equal(t, 1, h.Len())
}

func TestFormatKey(t *testing.T) {
	cases := map[string]string{
		"10.0.0.1":        "10.0.0.1",
		"255.255.255.255": "255.255.255.255",
		"::1":             "0000:0000:0000:0000:0000:0000:0000:0001",
		"fe80::abcd:1":    "fe80:0000:0000:0000:0000:0000:abcd:0001",
		"::ffff:1.2.3.4":  "0000:0000:0000:0000:0000:ffff:0102:0304",
	}
	for in, want := range cases {
		addr := netip.MustParseAddr(in)
		key := FormatKey(addr)
		assert.Equal(t, want, key, in)

		back, err := ParseKey(key)
		require.NoError(t, err)
		assert.Equal(t, addr, back, in)
	}
	assert.Equal(t, "", FormatKey(netip.Addr{}))
}

func TestParseRelationship(t *testing.T) {
	for _, s := range []string{"src", "dst", "src_or_dst"} {
		rel, err := ParseRelationship(s)
		require.NoError(t, err)
		assert.Equal(t, s, rel.String())
	}

	_, err := ParseRelationship("both")
	assert.True(t, errors.Is(err, config.ErrUnknownRelationship))
}
