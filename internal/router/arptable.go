package router

import (
	"net"
)

// PendingFrame is a frame queued until ARP resolution of its next hop
// completes. Iface is the egress interface recorded at queue time.
type PendingFrame struct {
	Iface int
	Frame []byte
}

// ArpTable maps resolved IPv4 addresses to hardware addresses and holds
// per-address queues of frames awaiting resolution.
type ArpTable struct {
	entries map[uint32]net.HardwareAddr
	pending map[uint32][]PendingFrame
}

func NewArpTable() *ArpTable {
	return &ArpTable{
		entries: make(map[uint32]net.HardwareAddr),
		pending: make(map[uint32][]PendingFrame),
	}
}

// AddEntry records ip -> mac. An existing entry for ip is preserved.
func (t *ArpTable) AddEntry(ip uint32, mac net.HardwareAddr) {
	if _, ok := t.entries[ip]; ok {
		return
	}
	t.entries[ip] = mac
}

func (t *ArpTable) Lookup(ip uint32) (net.HardwareAddr, bool) {
	mac, ok := t.entries[ip]
	return mac, ok
}

// EnqueuePending appends a frame to the queue for ip, creating the queue
// on first use.
func (t *ArpTable) EnqueuePending(ip uint32, f PendingFrame) {
	t.pending[ip] = append(t.pending[ip], f)
}

// DrainPending removes and returns the queue for ip in FIFO order, or nil
// if nothing is queued.
func (t *ArpTable) DrainPending(ip uint32) []PendingFrame {
	frames, ok := t.pending[ip]
	if !ok {
		return nil
	}
	delete(t.pending, ip)
	return frames
}
