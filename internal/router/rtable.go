package router

import (
	"math/bits"

	"github.com/Albert24GG/pcom-assignments/internal/trie"
)

// RouteEntry is one forwarding rule. All addresses are numeric IPv4
// values in host order.
type RouteEntry struct {
	Prefix  uint32
	Mask    uint32
	NextHop uint32
	Iface   int
}

// RoutingTable answers longest-prefix-match queries over a set of
// RouteEntry values backed by a binary trie.
type RoutingTable struct {
	routes *trie.Trie[RouteEntry]
}

func NewRoutingTable() *RoutingTable {
	return &RoutingTable{routes: trie.New[RouteEntry]()}
}

// AddEntry inserts e keyed by its prefix and the run length of leading
// one bits in its mask. Non-contiguous masks are rejected.
func (t *RoutingTable) AddEntry(e RouteEntry) error {
	prefixLen := bits.LeadingZeros32(^e.Mask)
	if e.Mask != maskForLen(prefixLen) {
		return ErrBadRouteEntry
	}
	t.routes.Insert(e.Prefix, prefixLen, e)
	return nil
}

// AddEntries inserts every entry, stopping at the first invalid one.
func (t *RoutingTable) AddEntries(entries []RouteEntry) error {
	for _, e := range entries {
		if err := t.AddEntry(e); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the most specific route covering dst.
func (t *RoutingTable) Lookup(dst uint32) (RouteEntry, bool) {
	return t.routes.LongestPrefixMatch(dst)
}

func maskForLen(prefixLen int) uint32 {
	if prefixLen == 0 {
		return 0
	}
	return ^uint32(0) << (32 - prefixLen)
}
