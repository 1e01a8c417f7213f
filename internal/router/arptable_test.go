package router

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArpTableFirstWriterWins(t *testing.T) {
	tbl := NewArpTable()
	macA := net.HardwareAddr{1, 2, 3, 4, 5, 6}
	macB := net.HardwareAddr{6, 5, 4, 3, 2, 1}

	_, ok := tbl.Lookup(0x0A000001)
	assert.False(t, ok)

	tbl.AddEntry(0x0A000001, macA)
	tbl.AddEntry(0x0A000001, macB)

	mac, ok := tbl.Lookup(0x0A000001)
	require.True(t, ok)
	assert.Equal(t, macA, mac)
}

func TestArpTablePendingQueue(t *testing.T) {
	tbl := NewArpTable()

	assert.Nil(t, tbl.DrainPending(0x0A000001))

	tbl.EnqueuePending(0x0A000001, PendingFrame{Iface: 1, Frame: []byte{1}})
	tbl.EnqueuePending(0x0A000001, PendingFrame{Iface: 1, Frame: []byte{2}})
	tbl.EnqueuePending(0x0A000002, PendingFrame{Iface: 0, Frame: []byte{9}})

	frames := tbl.DrainPending(0x0A000001)
	require.Len(t, frames, 2)
	assert.Equal(t, []byte{1}, frames[0].Frame)
	assert.Equal(t, []byte{2}, frames[1].Frame)

	// Draining removes the queue; other queues are untouched.
	assert.Nil(t, tbl.DrainPending(0x0A000001))
	require.Len(t, tbl.DrainPending(0x0A000002), 1)
}

func TestArpTableEntryAndQueueCoexist(t *testing.T) {
	tbl := NewArpTable()
	mac := net.HardwareAddr{1, 2, 3, 4, 5, 6}

	tbl.EnqueuePending(0x0A000001, PendingFrame{Iface: 0, Frame: []byte{1}})
	tbl.AddEntry(0x0A000001, mac)

	_, ok := tbl.Lookup(0x0A000001)
	assert.True(t, ok)
	assert.Len(t, tbl.DrainPending(0x0A000001), 1)
}
